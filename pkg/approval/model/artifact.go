// Package model loads classifier and scaler artifacts from disk and locates
// them among a service's candidate paths.
//
// Artifacts are JSON documents with a "type" discriminator:
//
//	logistic_regression  coef, intercept
//	decision_tree        nodes (flattened, root first)
//	standard_scaler      mean, scale
//	minmax_scaler        min, max
//
// Every artifact may declare feature_names_in and/or n_features_in.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/bibbank/approval/pkg/approval"
)

// Artifact types.
const (
	TypeLogisticRegression = "logistic_regression"
	TypeDecisionTree       = "decision_tree"
	TypeStandardScaler     = "standard_scaler"
	TypeMinMaxScaler       = "minmax_scaler"
)

var (
	// ErrUnsupportedArtifact is returned for an unknown or mismatched type.
	ErrUnsupportedArtifact = errors.New("model: unsupported artifact type")

	// ErrFeatureMismatch is returned when a vector does not fit the artifact.
	ErrFeatureMismatch = errors.New("model: feature count mismatch")
)

type header struct {
	Type           string   `json:"type"`
	FeatureNamesIn []string `json:"feature_names_in,omitempty"`
	NFeaturesIn    int      `json:"n_features_in,omitempty"`
}

// schema introspects the declared features: names when present, otherwise a
// positional schema from the count, otherwise unknown.
func (h header) schema() (approval.FeatureSchema, error) {
	switch {
	case len(h.FeatureNamesIn) > 0:
		if h.NFeaturesIn > 0 && h.NFeaturesIn != len(h.FeatureNamesIn) {
			return approval.FeatureSchema{}, fmt.Errorf("%w: n_features_in %d but %d names",
				ErrFeatureMismatch, h.NFeaturesIn, len(h.FeatureNamesIn))
		}
		return approval.NamedFeatures(h.FeatureNamesIn...), nil
	case h.NFeaturesIn > 0:
		return approval.PositionalFeatures(h.NFeaturesIn), nil
	default:
		return approval.FeatureSchema{}, nil
	}
}

func readArtifact(path string) ([]byte, header, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, header{}, fmt.Errorf("read artifact %s: %w", path, err)
	}
	var h header
	if err := json.Unmarshal(payload, &h); err != nil {
		return nil, header{}, fmt.Errorf("decode artifact %s: %w", path, err)
	}
	return payload, h, nil
}

// LoadClassifier reads a classifier artifact.
func LoadClassifier(path string) (approval.Classifier, error) {
	payload, h, err := readArtifact(path)
	if err != nil {
		return nil, err
	}

	var c approval.Classifier
	switch h.Type {
	case TypeLogisticRegression:
		c, err = decodeLogistic(payload)
	case TypeDecisionTree:
		c, err = decodeTree(payload)
	default:
		err = fmt.Errorf("%w: %q is not a classifier", ErrUnsupportedArtifact, h.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("load classifier %s: %w", path, err)
	}
	return c, nil
}

// LoadScaler reads a scaler artifact.
func LoadScaler(path string) (approval.Scaler, error) {
	payload, h, err := readArtifact(path)
	if err != nil {
		return nil, err
	}

	var s approval.Scaler
	switch h.Type {
	case TypeStandardScaler:
		s, err = decodeStandard(payload)
	case TypeMinMaxScaler:
		s, err = decodeMinMax(payload)
	default:
		err = fmt.Errorf("%w: %q is not a scaler", ErrUnsupportedArtifact, h.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("load scaler %s: %w", path, err)
	}
	return s, nil
}

// checkWidth verifies a vector against the artifact's parameter count.
func checkWidth(v approval.FeatureVector, want int) error {
	if v.Len() != want {
		return fmt.Errorf("%w: got %d features, want %d", ErrFeatureMismatch, v.Len(), want)
	}
	return nil
}

// checkDeclared verifies that a declared schema agrees with the parameter count.
func checkDeclared(s approval.FeatureSchema, params int) error {
	if s.Known() && s.Len() != params {
		return fmt.Errorf("%w: declares %d features but has %d parameters", ErrFeatureMismatch, s.Len(), params)
	}
	return nil
}
