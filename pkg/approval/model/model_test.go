package model_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/approval/pkg/approval"
	"github.com/bibbank/approval/pkg/approval/model"
)

func writeArtifact(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func vector(t *testing.T, names []string, values ...float64) approval.FeatureVector {
	t.Helper()
	v, err := approval.NewFeatureVector(names, values)
	require.NoError(t, err)
	return v
}

func TestLoadClassifier_LogisticRegression(t *testing.T) {
	path := writeArtifact(t, t.TempDir(), "model.json", `{
		"type": "logistic_regression",
		"feature_names_in": ["a", "b"],
		"coef": [2.0, -1.0],
		"intercept": -1.0
	}`)

	m, err := model.LoadClassifier(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, m.Features().Names)

	ctx := context.Background()
	v := vector(t, []string{"a", "b"}, 1, 1) // z = 2 - 1 - 1 = 0

	label, err := m.Predict(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, 0, label)

	proba, err := m.PredictProba(ctx, v)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, proba[1], 1e-12)

	label, err = m.Predict(ctx, vector(t, []string{"a", "b"}, 3, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, label)

	_, err = m.Predict(ctx, vector(t, []string{"a"}, 1))
	assert.ErrorIs(t, err, model.ErrFeatureMismatch)
}

func TestLoadClassifier_PositionalFeatures(t *testing.T) {
	path := writeArtifact(t, t.TempDir(), "model.json",
		`{"type": "logistic_regression", "n_features_in": 3, "coef": [1, 1, 1], "intercept": 0}`)

	m, err := model.LoadClassifier(path)
	require.NoError(t, err)
	assert.True(t, m.Features().Positional)
	assert.Equal(t, []string{"feature_0", "feature_1", "feature_2"}, m.Features().Names)
}

func TestLoadClassifier_UnknownFeatures(t *testing.T) {
	path := writeArtifact(t, t.TempDir(), "model.json",
		`{"type": "logistic_regression", "coef": [1, 1], "intercept": 0}`)

	m, err := model.LoadClassifier(path)
	require.NoError(t, err)
	assert.False(t, m.Features().Known())
}

func TestLoadClassifier_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "\x80\x04pickle"},
		{name: "unknown type", body: `{"type": "random_forest"}`},
		{name: "scaler passed as model", body: `{"type": "standard_scaler", "mean": [0], "scale": [1]}`},
		{name: "names and count disagree", body: `{"type": "logistic_regression", "feature_names_in": ["a"], "n_features_in": 2, "coef": [1]}`},
		{name: "coefficient count disagrees", body: `{"type": "logistic_regression", "feature_names_in": ["a", "b"], "coef": [1]}`},
		{name: "empty tree", body: `{"type": "decision_tree", "nodes": []}`},
		{name: "tree with cycle", body: `{"type": "decision_tree", "nodes": [{"feature_idx": 0, "left_child": 0, "right_child": 0}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeArtifact(t, dir, "model.json", tt.body)
			_, err := model.LoadClassifier(path)
			assert.Error(t, err)
		})
	}

	_, err := model.LoadClassifier(filepath.Join(dir, "absent.json"))
	assert.Error(t, err)

	path := writeArtifact(t, dir, "forest.json", `{"type": "random_forest"}`)
	_, err = model.LoadClassifier(path)
	assert.ErrorIs(t, err, model.ErrUnsupportedArtifact)
}

const treeArtifact = `{
	"type": "decision_tree",
	"feature_names_in": ["credit_score", "income"],
	"nodes": [
		{"feature_idx": 0, "threshold": 650, "left_child": 1, "right_child": 2},
		{"is_leaf": true, "class_label": 0, "value": [30, 10]},
		{"is_leaf": true, "class_label": 1, "value": [5, 45]}
	]
}`

func TestDecisionTree(t *testing.T) {
	path := writeArtifact(t, t.TempDir(), "tree.json", treeArtifact)
	m, err := model.LoadClassifier(path)
	require.NoError(t, err)

	ctx := context.Background()
	names := []string{"credit_score", "income"}

	label, err := m.Predict(ctx, vector(t, names, 600, 1000))
	require.NoError(t, err)
	assert.Equal(t, 0, label)
	proba, err := m.PredictProba(ctx, vector(t, names, 600, 1000))
	require.NoError(t, err)
	assert.InDelta(t, 0.25, proba[1], 1e-12)

	label, err = m.Predict(ctx, vector(t, names, 700, 1000))
	require.NoError(t, err)
	assert.Equal(t, 1, label)
	proba, err = m.PredictProba(ctx, vector(t, names, 700, 1000))
	require.NoError(t, err)
	assert.InDelta(t, 0.9, proba[1], 1e-12)
}

func TestDecisionTree_LabelOnly(t *testing.T) {
	tree, err := model.NewDecisionTree(approval.FeatureSchema{}, []model.TreeNode{
		{FeatureIdx: 0, Threshold: 0.5, LeftChild: 1, RightChild: 2},
		{IsLeaf: true, ClassLabel: 0},
		{IsLeaf: true, ClassLabel: 1},
	})
	require.NoError(t, err)

	_, err = tree.PredictProba(context.Background(), vector(t, []string{"x"}, 1))
	assert.ErrorIs(t, err, approval.ErrNoProbabilities)

	_, err = tree.Predict(context.Background(), approval.FeatureVector{})
	assert.ErrorIs(t, err, model.ErrFeatureMismatch)
}

func TestLoadScaler(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	names := []string{"a", "b"}

	std, err := model.LoadScaler(writeArtifact(t, dir, "std.json",
		`{"type": "standard_scaler", "feature_names_in": ["a", "b"], "mean": [10, 0], "scale": [2, 0]}`))
	require.NoError(t, err)
	out, err := std.Transform(ctx, vector(t, names, 14, 3))
	require.NoError(t, err)
	assert.Equal(t, names, out.Names())
	assert.Equal(t, []float64{2, 3}, out.Values())

	mm, err := model.LoadScaler(writeArtifact(t, dir, "mm.json",
		`{"type": "minmax_scaler", "n_features_in": 2, "min": [0, 5], "max": [10, 5]}`))
	require.NoError(t, err)
	out, err = mm.Transform(ctx, vector(t, names, 2.5, 7))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0}, out.Values())

	_, err = mm.Transform(ctx, vector(t, []string{"a"}, 1))
	assert.ErrorIs(t, err, model.ErrFeatureMismatch)

	_, err = model.LoadScaler(writeArtifact(t, dir, "bad.json", `{"type": "decision_tree"}`))
	assert.ErrorIs(t, err, model.ErrUnsupportedArtifact)
}
