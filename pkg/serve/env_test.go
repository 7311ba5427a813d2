package serve_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/approval/pkg/approval/model"
	"github.com/bibbank/approval/pkg/serve"
)

var loanDefaults = serve.Defaults{
	HTTPPort:       "5001",
	GRPCPort:       "9501",
	OnMissingModel: model.FailOnMissingModel,
	KafkaTopic:     "approval.loan.events",
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := serve.FromEnv(loanDefaults)
	require.NoError(t, err)

	assert.Equal(t, "5001", cfg.HTTPPort)
	assert.Equal(t, "9501", cfg.GRPCPort)
	assert.Equal(t, model.FailOnMissingModel, cfg.OnMissingModel)
	assert.Equal(t, 2*time.Second, cfg.PredictTimeout)
	assert.Equal(t, "static", cfg.StaticDir)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "approval.loan.events", cfg.KafkaTopic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.OTLPEndpoint)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("GRPC_PORT", "")
	t.Setenv("ON_MISSING_MODEL", "Degrade_To_Rules")
	t.Setenv("PREDICT_TIMEOUT", "1.5")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("KAFKA_SASL_ENABLED", "true")
	t.Setenv("KAFKA_SASL_MECHANISM", "SCRAM-SHA-512")
	t.Setenv("EVENT_BUFFER", "not-a-number")
	t.Setenv("RULES_FILE", "/etc/approval/rules.yaml")

	cfg, err := serve.FromEnv(loanDefaults)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Empty(t, cfg.GRPCPort)
	assert.Equal(t, model.DegradeToRules, cfg.OnMissingModel)
	assert.Equal(t, 1500*time.Millisecond, cfg.PredictTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.SASLEnabled)
	assert.Equal(t, "SCRAM-SHA-512", cfg.Kafka.SASLMechanism)
	assert.Equal(t, 256, cfg.EventBuffer)
	assert.Equal(t, "/etc/approval/rules.yaml", cfg.RulesFile)
}

func TestFromEnv_InvalidPolicy(t *testing.T) {
	t.Setenv("ON_MISSING_MODEL", "retry")
	_, err := serve.FromEnv(loanDefaults)
	assert.ErrorContains(t, err, "ON_MISSING_MODEL")
}
