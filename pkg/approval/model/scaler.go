package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bibbank/approval/pkg/approval"
)

type standardArtifact struct {
	header
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// StandardScaler standardises features to zero mean and unit variance.
type StandardScaler struct {
	features approval.FeatureSchema
	mean     []float64
	scale    []float64
}

// NewStandardScaler builds a scaler from fitted means and scales. A zero
// scale leaves the centred value unscaled.
func NewStandardScaler(features approval.FeatureSchema, mean, scale []float64) (*StandardScaler, error) {
	if len(mean) == 0 || len(mean) != len(scale) {
		return nil, fmt.Errorf("standard scaler: %d means for %d scales", len(mean), len(scale))
	}
	if err := checkDeclared(features, len(mean)); err != nil {
		return nil, err
	}
	return &StandardScaler{
		features: features,
		mean:     append([]float64(nil), mean...),
		scale:    append([]float64(nil), scale...),
	}, nil
}

func decodeStandard(payload []byte) (*StandardScaler, error) {
	var a standardArtifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("decode standard scaler: %w", err)
	}
	features, err := a.schema()
	if err != nil {
		return nil, err
	}
	return NewStandardScaler(features, a.Mean, a.Scale)
}

func (s *StandardScaler) Features() approval.FeatureSchema {
	return s.features
}

func (s *StandardScaler) Transform(_ context.Context, v approval.FeatureVector) (approval.FeatureVector, error) {
	if err := checkWidth(v, len(s.mean)); err != nil {
		return approval.FeatureVector{}, err
	}
	values := v.Values()
	for i, x := range values {
		scale := s.scale[i]
		if scale == 0 {
			scale = 1
		}
		values[i] = (x - s.mean[i]) / scale
	}
	return approval.NewFeatureVector(v.Names(), values)
}

type minMaxArtifact struct {
	header
	Min []float64 `json:"min"`
	Max []float64 `json:"max"`
}

// MinMaxScaler maps each feature onto [0, 1] using the fitted range.
type MinMaxScaler struct {
	features approval.FeatureSchema
	min      []float64
	max      []float64
}

// NewMinMaxScaler builds a scaler from fitted minimums and maximums.
func NewMinMaxScaler(features approval.FeatureSchema, min, max []float64) (*MinMaxScaler, error) {
	if len(min) == 0 || len(min) != len(max) {
		return nil, errors.New("minmax scaler: min and max must be non-empty and of equal length")
	}
	if err := checkDeclared(features, len(min)); err != nil {
		return nil, err
	}
	return &MinMaxScaler{
		features: features,
		min:      append([]float64(nil), min...),
		max:      append([]float64(nil), max...),
	}, nil
}

func decodeMinMax(payload []byte) (*MinMaxScaler, error) {
	var a minMaxArtifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("decode minmax scaler: %w", err)
	}
	features, err := a.schema()
	if err != nil {
		return nil, err
	}
	return NewMinMaxScaler(features, a.Min, a.Max)
}

func (s *MinMaxScaler) Features() approval.FeatureSchema {
	return s.features
}

func (s *MinMaxScaler) Transform(_ context.Context, v approval.FeatureVector) (approval.FeatureVector, error) {
	if err := checkWidth(v, len(s.min)); err != nil {
		return approval.FeatureVector{}, err
	}
	values := v.Values()
	for i, x := range values {
		values[i] = normalize(x, s.min[i], s.max[i])
	}
	return approval.NewFeatureVector(v.Names(), values)
}

func normalize(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	return (value - min) / (max - min)
}
