package profile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bibbank/approval/pkg/profile"
)

func TestCurrency(t *testing.T) {
	assert.Equal(t, "$32,000", profile.Currency(32000))
	assert.Equal(t, "$1,234,568", profile.Currency(1234567.8))
	assert.Equal(t, "$500", profile.Currency(500))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "75.00%", profile.Percent(0.75, 2))
	assert.Equal(t, "62.5%", profile.Percent(0.625, 1))
}

func TestNumber(t *testing.T) {
	assert.Equal(t, "620", profile.Number(620))
	assert.Equal(t, "18.5", profile.Number(18.5))
}
