package grpc_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/bibbank/approval/pkg/approval"
	approvalgrpc "github.com/bibbank/approval/pkg/approval/grpc"
	"github.com/bibbank/approval/pkg/profile/loan"
)

func startServer(t *testing.T) *grpclib.ClientConn {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p := loan.Profile()
	set, err := p.RuleSet()
	require.NoError(t, err)
	engine, err := p.NewRuleEngine(set, logger)
	require.NoError(t, err)
	pipeline := approval.NewPipeline(approval.NewRegistry(nil, "", nil, ""), p.Schema, engine, p.Strategies)
	svc := approval.NewPredictor(p, pipeline, approval.WithLogger(logger))

	srv := approvalgrpc.NewServer(approvalgrpc.NewApprovalHandler(svc, logger),
		approvalgrpc.ServerConfig{ServiceName: loan.Service}, logger)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.ServeListener(lis) }()
	t.Cleanup(srv.GracefulStop)

	conn, err := grpclib.NewClient("passthrough:///bufnet",
		grpclib.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpclib.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestPredict(t *testing.T) {
	client := approvalgrpc.NewApprovalServiceClient(startServer(t))

	resp, err := client.Predict(context.Background(), &approvalgrpc.PredictRequest{Applicant: loan.Sample()})
	require.NoError(t, err)

	assert.Equal(t, "success", resp.Result.Status)
	assert.Equal(t, "fallback_rules", resp.Result.ModelUsed)
	assert.Equal(t, "approved", resp.Result.Decision)
	assert.InDelta(t, 0.65, resp.Result.Probability, 1e-9)
	assert.Equal(t, loan.RulesNote, resp.Result.Note)
}

func TestPredict_InvalidArgument(t *testing.T) {
	client := approvalgrpc.NewApprovalServiceClient(startServer(t))

	raw := loan.Sample()
	delete(raw, "loan_grade")
	_, err := client.Predict(context.Background(), &approvalgrpc.PredictRequest{Applicant: raw})

	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, "Missing required fields: loan_grade", status.Convert(err).Message())

	_, err = client.Predict(context.Background(), &approvalgrpc.PredictRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGetModelStatus(t *testing.T) {
	client := approvalgrpc.NewApprovalServiceClient(startServer(t))

	resp, err := client.GetModelStatus(context.Background(), &approvalgrpc.GetModelStatusRequest{})
	require.NoError(t, err)

	assert.Equal(t, loan.Service, resp.Status.Service)
	assert.False(t, resp.Status.ModelLoaded)
	assert.Equal(t, 30, resp.Status.NumFeatures)
	assert.Len(t, resp.Status.Rules, 8)
}

func TestHealth(t *testing.T) {
	conn := startServer(t)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: loan.Service})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
