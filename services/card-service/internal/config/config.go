// Package config loads the credit card service settings from the environment.
package config

import (
	"github.com/bibbank/approval/pkg/approval/model"
	"github.com/bibbank/approval/pkg/serve"
)

// Defaults used when the corresponding variable is unset. Without a model
// the card service keeps serving rule-based predictions.
var Defaults = serve.Defaults{
	HTTPPort:       "5002",
	GRPCPort:       "9502",
	OnMissingModel: model.DegradeToRules,
	KafkaTopic:     "approval.card.events",
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (serve.Config, error) {
	return serve.FromEnv(Defaults)
}
