// Package config loads the loan service settings from the environment.
package config

import (
	"github.com/bibbank/approval/pkg/approval/model"
	"github.com/bibbank/approval/pkg/serve"
)

// Defaults used when the corresponding variable is unset. The loan service
// refuses to start without a trained model.
var Defaults = serve.Defaults{
	HTTPPort:       "5001",
	GRPCPort:       "9501",
	OnMissingModel: model.FailOnMissingModel,
	KafkaTopic:     "approval.loan.events",
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (serve.Config, error) {
	return serve.FromEnv(Defaults)
}
