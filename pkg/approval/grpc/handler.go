package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/approval/pkg/approval"
	"github.com/bibbank/approval/pkg/approval/dto"
)

// ApprovalHandler is the gRPC handler for approval predictions.
type ApprovalHandler struct {
	UnimplementedApprovalServiceServer

	svc    *approval.Predictor
	logger *slog.Logger
	now    func() time.Time
}

// NewApprovalHandler creates a handler over the prediction use case.
func NewApprovalHandler(svc *approval.Predictor, logger *slog.Logger) *ApprovalHandler {
	return &ApprovalHandler{
		svc:    svc,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Predict scores one applicant. Missing or malformed fields map to
// InvalidArgument.
func (h *ApprovalHandler) Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	if len(req.Applicant) == 0 {
		return nil, status.Error(codes.InvalidArgument, "No data provided")
	}

	pred, err := h.svc.Predict(ctx, req.Applicant)
	if err != nil {
		if approval.IsClientError(err) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		h.logger.Error("prediction failed", "error", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &PredictResponse{Result: dto.FromPrediction(pred)}, nil
}

// GetModelStatus reports the loaded handles.
func (h *ApprovalHandler) GetModelStatus(_ context.Context, _ *GetModelStatusRequest) (*GetModelStatusResponse, error) {
	return &GetModelStatusResponse{Status: dto.ModelStatus(h.svc, h.now())}, nil
}
