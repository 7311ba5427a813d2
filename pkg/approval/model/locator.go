package model

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bibbank/approval/pkg/approval"
)

// MissingModelPolicy decides what happens when no model can be loaded.
type MissingModelPolicy string

const (
	// FailOnMissingModel makes Locate return approval.ErrModelNotFound.
	FailOnMissingModel MissingModelPolicy = "fail"
	// DegradeToRules serves every request from the rule engine.
	DegradeToRules MissingModelPolicy = "degrade_to_rules"
)

// ParsePolicy parses an ON_MISSING_MODEL value.
func ParsePolicy(s string) (MissingModelPolicy, error) {
	switch p := MissingModelPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case FailOnMissingModel, DegradeToRules:
		return p, nil
	default:
		return "", fmt.Errorf("unknown missing model policy %q", s)
	}
}

// Candidates lists model and scaler paths in priority order.
type Candidates struct {
	Models  []string
	Scalers []string
}

// Under joins each name onto dir.
func Under(dir string, names ...string) []string {
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths
}

// Locate loads the first existing model and the first existing scaler. A
// model that exists but cannot be loaded is treated like a missing one; a
// scaler that cannot be loaded is logged and ignored. Nothing is retried.
func Locate(c Candidates, policy MissingModelPolicy, logger *slog.Logger) (*approval.Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		classifier approval.Classifier
		modelPath  string
	)
	if path, ok := firstExisting(c.Models); ok {
		m, err := LoadClassifier(path)
		if err != nil {
			logger.Error("failed to load model", "path", path, "error", err)
		} else {
			classifier, modelPath = m, path
			logger.Info("model loaded", "path", path, "features", describe(m.Features()))
			if m.Features().Positional {
				logger.Warn("model declares only a feature count; features will be matched by position name",
					"path", path,
					"features", m.Features().Len(),
				)
			}
		}
	}

	if classifier == nil {
		if policy == FailOnMissingModel {
			return nil, fmt.Errorf("%w: searched %s", approval.ErrModelNotFound, strings.Join(c.Models, ", "))
		}
		logger.Warn("no usable model found, serving rule-based predictions only", "searched", c.Models)
	}

	var (
		scaler     approval.Scaler
		scalerPath string
	)
	if path, ok := firstExisting(c.Scalers); ok {
		s, err := LoadScaler(path)
		if err != nil {
			logger.Warn("failed to load scaler, continuing without scaling", "path", path, "error", err)
		} else {
			scaler, scalerPath = s, path
			logger.Info("scaler loaded", "path", path, "features", describe(s.Features()))
		}
	} else {
		logger.Info("no scaler found", "searched", c.Scalers)
	}

	if classifier != nil && scaler != nil {
		mf, sf := classifier.Features(), scaler.Features()
		if mf.Known() && sf.Known() && mf.Len() != sf.Len() {
			logger.Warn("model and scaler declare different feature counts",
				"model_features", mf.Len(),
				"scaler_features", sf.Len(),
			)
		}
	}

	return approval.NewRegistry(classifier, modelPath, scaler, scalerPath), nil
}

func firstExisting(paths []string) (string, bool) {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}

func describe(s approval.FeatureSchema) any {
	if !s.Known() {
		return "unknown"
	}
	return s.Len()
}
