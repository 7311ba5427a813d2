package approval_test

import (
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bibbank/approval/pkg/approval"
)

const testRules = `
base: 0.5
floor: 0.1
ceiling: 0.9
threshold: 0.5
rules:
  - name: strong_credit
    when: credit_score >= 750.0
    adjust: 0.3
  - name: fair_credit
    when: credit_score >= 650.0 && credit_score < 750.0
    adjust: 0.15
  - name: high_ratio
    when: ratio > 0.5
    adjust: -0.3
  - name: prior_default
    when: defaults == 'Yes'
    adjust: -0.25
`

var testStrategies = approval.Strategies{
	Scaled:   "scaled",
	Unscaled: "unscaled",
	Rules:    "rules",
}

func testFields() approval.FieldSet {
	return approval.FieldSet{
		{Name: "credit_score", Kind: approval.Number, Required: true},
		{Name: "income", Kind: approval.Number, Required: true},
		{Name: "debt", Kind: approval.Number, Default: 0.0},
		{Name: "children", Kind: approval.Integer, Default: 0.0},
		{Name: "owner", Kind: approval.Category, Default: "rent", Case: approval.Upper},
		{Name: "defaults", Kind: approval.Category, Default: "No", Case: approval.Title},
		{Name: "debt_share", Kind: approval.Number, Derive: func(r approval.Record) float64 {
			return r.Number("debt") / math.Max(1, r.Number("income"))
		}},
	}
}

func testSchema() *approval.Schema {
	return approval.NewSchema(
		approval.Numeric("credit_score", "income", "debt"),
		approval.OneHot("owner", "RENT", "OWN"),
		approval.OneHot("defaults", "No", "Yes"),
	)
}

func testSignals() []approval.Signal {
	return []approval.Signal{
		{Name: "ratio", Compute: func(r approval.Record) float64 {
			return r.Number("debt") / math.Max(1, r.Number("income"))
		}},
	}
}

func testProfile() approval.Profile {
	return approval.Profile{
		Service:    "test-service",
		Fields:     testFields(),
		Schema:     testSchema(),
		Signals:    testSignals(),
		Strategies: testStrategies,
		Insights: approval.Insights{
			RiskFunc: func(r approval.Record, _ float64) []string {
				if r.Category("defaults") == "Yes" {
					return []string{"Previous defaults"}
				}
				return nil
			},
			NoRisks:           "No risks",
			NoRecommendations: "Keep going",
		},
		Summarize: func(r approval.Record, _ approval.Outcome) approval.Summary {
			return approval.Summary{Input: map[string]any{"income": r.Number("income")}}
		},
		Rules: []byte(testRules),
	}
}

func newTestEngine(t *testing.T) *approval.RuleEngine {
	t.Helper()
	set, err := approval.ParseRuleSet([]byte(testRules))
	require.NoError(t, err)
	engine, err := approval.NewRuleEngine(set, testFields(), testSignals(), slog.Default())
	require.NoError(t, err)
	return engine
}

func mustRecord(t *testing.T, raw map[string]any) approval.Record {
	t.Helper()
	rec, err := testFields().Parse(raw)
	require.NoError(t, err)
	return rec
}

type mockClassifier struct {
	features     approval.FeatureSchema
	predictFn    func(ctx context.Context, v approval.FeatureVector) (int, error)
	predictProba func(ctx context.Context, v approval.FeatureVector) ([2]float64, error)
}

func (m *mockClassifier) Predict(ctx context.Context, v approval.FeatureVector) (int, error) {
	return m.predictFn(ctx, v)
}

func (m *mockClassifier) PredictProba(ctx context.Context, v approval.FeatureVector) ([2]float64, error) {
	if m.predictProba == nil {
		return [2]float64{0.25, 0.75}, nil
	}
	return m.predictProba(ctx, v)
}

func (m *mockClassifier) Features() approval.FeatureSchema {
	return m.features
}

type mockScaler struct {
	features  approval.FeatureSchema
	transform func(ctx context.Context, v approval.FeatureVector) (approval.FeatureVector, error)
}

func (m *mockScaler) Transform(ctx context.Context, v approval.FeatureVector) (approval.FeatureVector, error) {
	return m.transform(ctx, v)
}

func (m *mockScaler) Features() approval.FeatureSchema {
	return m.features
}

// halvingScaler divides every feature by two.
func halvingScaler(features approval.FeatureSchema) *mockScaler {
	return &mockScaler{
		features: features,
		transform: func(_ context.Context, v approval.FeatureVector) (approval.FeatureVector, error) {
			values := v.Values()
			for i := range values {
				values[i] /= 2
			}
			return approval.NewFeatureVector(v.Names(), values)
		},
	}
}

type recordingPublisher struct {
	events []approval.PredictionCompleted
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, events ...approval.PredictionCompleted) error {
	p.events = append(p.events, events...)
	return p.err
}
