package approval_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/approval/pkg/approval"
)

func TestFieldSet_ParseMissingRequired(t *testing.T) {
	_, err := testFields().Parse(map[string]any{"debt": 10.0})
	require.Error(t, err)

	var missing *approval.MissingFieldsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"credit_score", "income"}, missing.Fields)
	assert.Equal(t, "Missing required fields: credit_score, income", err.Error())
	assert.True(t, approval.IsClientError(err))
}

func TestFieldSet_NullCountsAsMissing(t *testing.T) {
	_, err := testFields().Parse(map[string]any{"credit_score": nil, "income": 1000.0})

	var missing *approval.MissingFieldsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"credit_score"}, missing.Fields)
}

func TestFieldSet_InvalidNumber(t *testing.T) {
	_, err := testFields().Parse(map[string]any{"credit_score": "excellent", "income": 1000.0})
	require.Error(t, err)

	var invalid *approval.InvalidFieldError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "credit_score", invalid.Field)
	assert.Contains(t, err.Error(), "credit_score")
	assert.True(t, approval.IsClientError(err))
}

func TestFieldSet_RejectsNonFiniteNumbers(t *testing.T) {
	_, err := testFields().Parse(map[string]any{"credit_score": "NaN", "income": 1000.0})
	assert.True(t, approval.IsClientError(err))

	_, err = testFields().Parse(map[string]any{"credit_score": 700.0, "income": "+Inf"})
	assert.True(t, approval.IsClientError(err))
}

func TestFieldSet_CoercesAndDefaults(t *testing.T) {
	rec := mustRecord(t, map[string]any{
		"credit_score": json.Number("720"),
		"income":       " 50000 ",
		"debt":         5000,
		"children":     2.9,
		"defaults":     "yes",
	})

	assert.Equal(t, 720.0, rec.Number("credit_score"))
	assert.Equal(t, 50000.0, rec.Number("income"))
	assert.Equal(t, 5000.0, rec.Number("debt"))
	assert.Equal(t, 2.0, rec.Number("children"), "integer fields truncate")
	assert.Equal(t, "RENT", rec.Category("owner"), "default is normalised too")
	assert.Equal(t, "Yes", rec.Category("defaults"))
	assert.InDelta(t, 0.1, rec.Number("debt_share"), 1e-12)
}

func TestFieldSet_SuppliedValueWinsOverDerivation(t *testing.T) {
	rec := mustRecord(t, map[string]any{
		"credit_score": 700,
		"income":       100,
		"debt":         50,
		"debt_share":   0.9,
	})
	assert.Equal(t, 0.9, rec.Number("debt_share"))
}

func TestFieldSet_DerivationGuardsZeroIncome(t *testing.T) {
	rec := mustRecord(t, map[string]any{"credit_score": 700, "income": 0, "debt": 300})
	assert.Equal(t, 300.0, rec.Number("debt_share"))
}

func TestRecord_ValuesIsACopy(t *testing.T) {
	rec := mustRecord(t, map[string]any{"credit_score": 700, "income": 100})

	values := rec.Values()
	values["credit_score"] = 1.0

	assert.Equal(t, 700.0, rec.Number("credit_score"))
	assert.Contains(t, rec.Names(), "owner")
}

func TestFieldSet_Required(t *testing.T) {
	assert.Equal(t, []string{"credit_score", "income"}, testFields().Required())

	f, ok := testFields().Lookup("owner")
	require.True(t, ok)
	assert.Equal(t, approval.Category, f.Kind)
}
