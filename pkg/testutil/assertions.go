package testutil

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// AssertDecimalEqual fails the test when want and got differ.
// decimal.Decimal cannot be compared with assert.Equal because equal values
// may carry different internal exponents.
func AssertDecimalEqual(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	assert.True(t, want.Equal(got), "want %s, got %s", want, got)
}

// AssertDecimalWithin fails the test when got deviates from want by more
// than tolerance.
func AssertDecimalWithin(t *testing.T, want, got, tolerance decimal.Decimal) {
	t.Helper()
	diff := want.Sub(got).Abs()
	assert.True(t, diff.LessThanOrEqual(tolerance),
		"want %s within %s of %s (diff %s)", got, tolerance, want, diff)
}
