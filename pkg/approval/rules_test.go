package approval_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/approval/pkg/approval"
)

func TestRuleEngine_Score(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name     string
		raw      map[string]any
		expected float64
		fired    []string
	}{
		{
			name:     "no rule fires keeps the base",
			raw:      map[string]any{"credit_score": 600, "income": 1000},
			expected: 0.5,
		},
		{
			name:     "strong credit",
			raw:      map[string]any{"credit_score": 800, "income": 1000},
			expected: 0.8,
			fired:    []string{"strong_credit"},
		},
		{
			name:     "bands are exclusive",
			raw:      map[string]any{"credit_score": 700, "income": 1000},
			expected: 0.65,
			fired:    []string{"fair_credit"},
		},
		{
			name:     "adjustments accumulate and clamp at the floor",
			raw:      map[string]any{"credit_score": 500, "income": 1000, "debt": 900, "defaults": "yes"},
			expected: 0.1,
			fired:    []string{"high_ratio", "prior_default"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := mustRecord(t, tt.raw)
			assert.InDelta(t, tt.expected, engine.Score(rec), 1e-9)
			assert.Equal(t, tt.fired, engine.Trace(rec))
		})
	}
}

func TestRuleEngine_ClampsAtCeiling(t *testing.T) {
	set, err := approval.ParseRuleSet([]byte(`
base: 0.5
floor: 0.1
ceiling: 0.9
threshold: 0.5
rules:
  - name: generous
    when: income > 0.0
    adjust: 0.7
`))
	require.NoError(t, err)
	engine, err := approval.NewRuleEngine(set, testFields(), nil, slog.Default())
	require.NoError(t, err)

	p := engine.Score(mustRecord(t, map[string]any{"credit_score": 1, "income": 1}))
	assert.Equal(t, 0.9, p)
	assert.True(t, engine.Approved(p))
	assert.False(t, engine.Approved(0.5), "approval requires strictly more than the threshold")
}

func TestRuleEngine_Deterministic(t *testing.T) {
	engine := newTestEngine(t)
	rec := mustRecord(t, map[string]any{"credit_score": 690, "income": 4000, "debt": 2500, "defaults": "No"})

	first := engine.Score(rec)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, engine.Score(rec))
	}
}

func TestNewRuleEngine_RejectsBadConditions(t *testing.T) {
	tests := []struct {
		name string
		when string
	}{
		{name: "not boolean", when: "credit_score + 1.0"},
		{name: "unknown variable", when: "salary > 10.0"},
		{name: "syntax error", when: "credit_score >>> 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := approval.RuleSet{
				Base: 0.5, Floor: 0.1, Ceiling: 0.9, Threshold: 0.5,
				Rules: []approval.Rule{{Name: "bad", When: tt.when, Adjust: 0.1}},
			}
			_, err := approval.NewRuleEngine(set, testFields(), testSignals(), slog.Default())
			assert.Error(t, err)
		})
	}
}

func TestParseRuleSet_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "inverted bounds", yaml: "base: 0.5\nfloor: 0.9\nceiling: 0.1\nthreshold: 0.5\n"},
		{name: "base outside bounds", yaml: "base: 0.95\nfloor: 0.1\nceiling: 0.9\nthreshold: 0.5\n"},
		{name: "missing threshold", yaml: "base: 0.5\nfloor: 0.1\nceiling: 0.9\n"},
		{name: "threshold above ceiling", yaml: "base: 0.5\nfloor: 0.1\nceiling: 0.9\nthreshold: 0.95\n"},
		{name: "unnamed rule", yaml: "base: 0.5\nfloor: 0.1\nceiling: 0.9\nthreshold: 0.5\nrules:\n  - when: income > 1.0\n"},
		{name: "missing condition", yaml: "base: 0.5\nfloor: 0.1\nceiling: 0.9\nthreshold: 0.5\nrules:\n  - name: a\n"},
		{name: "duplicate rule", yaml: "base: 0.5\nfloor: 0.1\nceiling: 0.9\nthreshold: 0.5\nrules:\n  - {name: a, when: 'true'}\n  - {name: a, when: 'true'}\n"},
		{name: "unknown key", yaml: "base: 0.5\nfloor: 0.1\nceiling: 0.9\nthreshold: 0.5\nbias: 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := approval.ParseRuleSet([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadRuleSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRules), 0o600))

	set, err := approval.LoadRuleSet(path)
	require.NoError(t, err)
	assert.Len(t, set.Rules, 4)
	assert.Equal(t, "strong_credit", set.Rules[0].Name)

	_, err = approval.LoadRuleSet(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
