package grpc

// Hand-written service descriptor for bib.approval.v1.ApprovalService. Messages
// travel through the JSON codec, so plain Go structs stand in for generated
// protobuf types.

import (
	"context"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/approval/pkg/approval/dto"
)

const serviceName = "bib.approval.v1.ApprovalService"

const (
	predictMethod        = "/" + serviceName + "/Predict"
	getModelStatusMethod = "/" + serviceName + "/GetModelStatus"
)

// PredictRequest carries the applicant fields of one prediction.
type PredictRequest struct {
	Applicant map[string]any `json:"applicant"`
}

// PredictResponse wraps the prediction result.
type PredictResponse struct {
	Result dto.PredictionResponse `json:"result"`
}

// GetModelStatusRequest asks for the loaded model status.
type GetModelStatusRequest struct{}

// GetModelStatusResponse wraps the model status.
type GetModelStatusResponse struct {
	Status dto.ModelStatusResponse `json:"status"`
}

// ApprovalServiceServer is the server API for ApprovalService.
type ApprovalServiceServer interface {
	Predict(context.Context, *PredictRequest) (*PredictResponse, error)
	GetModelStatus(context.Context, *GetModelStatusRequest) (*GetModelStatusResponse, error)
	mustEmbedUnimplementedApprovalServiceServer()
}

// UnimplementedApprovalServiceServer provides forward-compatible default implementations.
type UnimplementedApprovalServiceServer struct{}

func (UnimplementedApprovalServiceServer) Predict(context.Context, *PredictRequest) (*PredictResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Predict not implemented")
}
func (UnimplementedApprovalServiceServer) GetModelStatus(context.Context, *GetModelStatusRequest) (*GetModelStatusResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetModelStatus not implemented")
}
func (UnimplementedApprovalServiceServer) mustEmbedUnimplementedApprovalServiceServer() {}

// RegisterApprovalServiceServer registers the ApprovalServiceServer with the gRPC server.
func RegisterApprovalServiceServer(s grpclib.ServiceRegistrar, srv ApprovalServiceServer) {
	s.RegisterService(&approvalServiceDesc, srv)
}

var approvalServiceDesc = grpclib.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ApprovalServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "Predict", Handler: predictHandler},
		{MethodName: "GetModelStatus", Handler: getModelStatusHandler},
	},
	Streams: []grpclib.StreamDesc{},
}

func predictHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
	in := new(PredictRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ApprovalServiceServer).Predict(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: predictMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ApprovalServiceServer).Predict(ctx, req.(*PredictRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getModelStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
	in := new(GetModelStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ApprovalServiceServer).GetModelStatus(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: getModelStatusMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ApprovalServiceServer).GetModelStatus(ctx, req.(*GetModelStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ApprovalServiceClient is the client API for ApprovalService.
type ApprovalServiceClient interface {
	Predict(ctx context.Context, in *PredictRequest, opts ...grpclib.CallOption) (*PredictResponse, error)
	GetModelStatus(ctx context.Context, in *GetModelStatusRequest, opts ...grpclib.CallOption) (*GetModelStatusResponse, error)
}

type approvalServiceClient struct {
	cc grpclib.ClientConnInterface
}

// NewApprovalServiceClient creates a client that speaks the JSON codec.
func NewApprovalServiceClient(cc grpclib.ClientConnInterface) ApprovalServiceClient {
	return &approvalServiceClient{cc: cc}
}

func (c *approvalServiceClient) Predict(ctx context.Context, in *PredictRequest, opts ...grpclib.CallOption) (*PredictResponse, error) {
	out := new(PredictResponse)
	opts = append([]grpclib.CallOption{grpclib.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, predictMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *approvalServiceClient) GetModelStatus(ctx context.Context, in *GetModelStatusRequest, opts ...grpclib.CallOption) (*GetModelStatusResponse, error) {
	out := new(GetModelStatusResponse)
	opts = append([]grpclib.CallOption{grpclib.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, getModelStatusMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
