package serve_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/approval/pkg/approval"
	"github.com/bibbank/approval/pkg/approval/model"
	"github.com/bibbank/approval/pkg/observability"
	"github.com/bibbank/approval/pkg/profile/card"
	"github.com/bibbank/approval/pkg/profile/loan"
	"github.com/bibbank/approval/pkg/serve"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loanService(t *testing.T) serve.Service {
	t.Helper()
	dir := t.TempDir()
	return serve.Service{
		Profile:    loan.Profile(),
		PageFile:   loan.PageFile,
		Candidates: loan.Candidates(dir, dir),
	}
}

func predict(t *testing.T, h http.Handler, body map[string]any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewReader(raw)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestBuild_FailPolicyWithoutModel(t *testing.T) {
	_, err := serve.Build(serve.Config{OnMissingModel: model.FailOnMissingModel}, loanService(t), serve.Deps{Logger: quietLogger()})
	assert.ErrorIs(t, err, approval.ErrModelNotFound)
}

func TestBuild_DegradedServesRules(t *testing.T) {
	dir := t.TempDir()
	svc := serve.Service{
		Profile:    card.Profile(),
		PageFile:   card.PageFile,
		Candidates: card.Candidates(dir, dir),
	}

	meter, metrics, err := observability.InitMetrics(observability.MetricsConfig{ServiceName: card.Service})
	require.NoError(t, err)
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })

	app, err := serve.Build(serve.Config{OnMissingModel: model.DegradeToRules}, svc, serve.Deps{
		Logger:  quietLogger(),
		Meter:   meter,
		Metrics: metrics,
		Clock:   func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })

	out := predict(t, app.Handler(), card.Sample())
	assert.Equal(t, "rule_based_fallback", out["model_used"])
	assert.Equal(t, "2025-03-01T12:00:00Z", out["timestamp"])

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "approval_predictions_total")

	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBuild_RulesFileOverride(t *testing.T) {
	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte(`base: 0.5
floor: 0.1
ceiling: 0.9
threshold: 0.5
rules:
  - name: strict_credit
    when: credit_score < 800.0
    adjust: -0.3
`), 0o600))

	app, err := serve.Build(serve.Config{
		OnMissingModel: model.DegradeToRules,
		RulesFile:      rules,
	}, loanService(t), serve.Deps{Logger: quietLogger()})
	require.NoError(t, err)

	out := predict(t, app.Handler(), loan.Sample())
	assert.Equal(t, "rejected", out["decision"])
	assert.InDelta(t, 0.2, out["probability"], 1e-9)
	assert.Equal(t, []string{"strict_credit"}, app.Predictor().Pipeline().Rules().Trace(mustRecord(t, loan.Sample())))
}

func TestBuild_BadRulesFile(t *testing.T) {
	_, err := serve.Build(serve.Config{
		OnMissingModel: model.DegradeToRules,
		RulesFile:      filepath.Join(t.TempDir(), "missing.yaml"),
	}, loanService(t), serve.Deps{Logger: quietLogger()})
	assert.Error(t, err)
}

func TestBuild_RulesFileWithoutThreshold(t *testing.T) {
	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte(`base: 0.5
floor: 0.1
ceiling: 0.9
rules:
  - name: defaulted
    when: previous_loan_defaults_on_file == 'Yes'
    adjust: -0.4
`), 0o600))

	_, err := serve.Build(serve.Config{
		OnMissingModel: model.DegradeToRules,
		RulesFile:      rules,
	}, loanService(t), serve.Deps{Logger: quietLogger()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold")
}

func TestApp_ServeStopsOnCancel(t *testing.T) {
	app, err := serve.Build(serve.Config{
		OnMissingModel: model.DegradeToRules,
		GRPCPort:       "0",
	}, loanService(t), serve.Deps{Logger: quietLogger()})
	require.NoError(t, err)

	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, httpLis, grpcLis) }()

	url := "http://" + httpLis.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestConfigAddresses(t *testing.T) {
	cfg := serve.Config{HTTPPort: "5001", GRPCPort: "9501"}
	assert.Equal(t, ":5001", cfg.HTTPAddress())
	assert.Equal(t, ":9501", cfg.GRPCAddress())
}

func mustRecord(t *testing.T, raw map[string]any) approval.Record {
	t.Helper()
	rec, err := loan.Fields().Build(raw)
	require.NoError(t, err)
	return rec
}
