package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/approval/pkg/approval/model"
	"github.com/bibbank/approval/services/loan-service/internal/config"
)

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ON_MISSING_MODEL", "")
	cfg, err := config.Load()
	require.Error(t, err, "an empty policy is rejected")

	t.Setenv("ON_MISSING_MODEL", "degrade_to_rules")
	cfg, err = config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":5001", cfg.HTTPAddress(), "empty PORT falls back to the default")
	assert.Equal(t, model.DegradeToRules, cfg.OnMissingModel)
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, "5001", config.Defaults.HTTPPort)
	assert.Equal(t, "9501", config.Defaults.GRPCPort)
	assert.Equal(t, model.FailOnMissingModel, config.Defaults.OnMissingModel)
}
