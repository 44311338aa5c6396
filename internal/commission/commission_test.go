package commission

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCompute(t *testing.T) {
	cases := []struct {
		name        string
		affiliate   decimal.NullDecimal
		fallback    string
		orderAmount string
		wantRate    string
		wantAmount  string
	}{
		{"affiliate rate", decimal.NewNullDecimal(d("10")), "5", "200.00", "10", "20.00"},
		{"fallback rate", decimal.NullDecimal{}, "7.5", "100.00", "7.5", "7.50"},
		{"half up", decimal.NewNullDecimal(d("10")), "5", "0.25", "10", "0.03"},
		{"below half", decimal.NewNullDecimal(d("10")), "5", "0.24", "10", "0.02"},
		{"zero rate", decimal.NewNullDecimal(d("0")), "5", "99.99", "0", "0.00"},
		{"fractional rate", decimal.NewNullDecimal(d("12.3456")), "5", "1000", "12.3456", "123.46"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Compute(tc.affiliate, d(tc.fallback), d(tc.orderAmount))
			require.NoError(t, err)
			assert.True(t, got.Rate.Equal(d(tc.wantRate)), "rate %s", got.Rate)
			assert.True(t, got.Amount.Equal(d(tc.wantAmount)), "amount %s", got.Amount)
		})
	}
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	_, err := Compute(decimal.NullDecimal{}, d("10"), d("0"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Compute(decimal.NullDecimal{}, d("10"), d("-5"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Compute(decimal.NullDecimal{}, d("10"), d("0.015"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Compute(decimal.NewNullDecimal(d("101")), d("10"), d("5"))
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestIsMoney(t *testing.T) {
	assert.True(t, IsMoney(d("0.01")))
	assert.True(t, IsMoney(d("10.500")))
	assert.True(t, IsMoney(d("200")))
	assert.False(t, IsMoney(d("0.004")))
	assert.False(t, IsMoney(d("0.015")))
	assert.False(t, IsMoney(d("0")))
	assert.False(t, IsMoney(d("-1.00")))
}
