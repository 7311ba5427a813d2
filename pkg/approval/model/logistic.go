package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/bibbank/approval/pkg/approval"
)

type logisticArtifact struct {
	header
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// LogisticRegression is a binary logistic regression classifier.
type LogisticRegression struct {
	features  approval.FeatureSchema
	coef      []float64
	intercept float64
}

// NewLogisticRegression builds a classifier from fitted parameters.
func NewLogisticRegression(features approval.FeatureSchema, coef []float64, intercept float64) (*LogisticRegression, error) {
	if len(coef) == 0 {
		return nil, errors.New("logistic regression: no coefficients")
	}
	if err := checkDeclared(features, len(coef)); err != nil {
		return nil, err
	}
	return &LogisticRegression{
		features:  features,
		coef:      append([]float64(nil), coef...),
		intercept: intercept,
	}, nil
}

func decodeLogistic(payload []byte) (*LogisticRegression, error) {
	var a logisticArtifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("decode logistic regression: %w", err)
	}
	features, err := a.schema()
	if err != nil {
		return nil, err
	}
	return NewLogisticRegression(features, a.Coef, a.Intercept)
}

func (m *LogisticRegression) Features() approval.FeatureSchema {
	return m.features
}

// Predict returns 1 when the decision function is positive.
func (m *LogisticRegression) Predict(_ context.Context, v approval.FeatureVector) (int, error) {
	z, err := m.decision(v)
	if err != nil {
		return 0, err
	}
	if z > 0 {
		return 1, nil
	}
	return 0, nil
}

func (m *LogisticRegression) PredictProba(_ context.Context, v approval.FeatureVector) ([2]float64, error) {
	z, err := m.decision(v)
	if err != nil {
		return [2]float64{}, err
	}
	p := 1 / (1 + math.Exp(-z))
	return [2]float64{1 - p, p}, nil
}

func (m *LogisticRegression) decision(v approval.FeatureVector) (float64, error) {
	if err := checkWidth(v, len(m.coef)); err != nil {
		return 0, err
	}
	z := m.intercept
	for i, x := range v.Values() {
		z += m.coef[i] * x
	}
	return z, nil
}
