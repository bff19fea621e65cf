package quant

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestQuantizeQuantityFloors(t *testing.T) {
	cases := []struct {
		raw, step, want string
	}{
		{"0.0033", "0.001", "0.003"},
		{"0.0039999", "0.001", "0.003"},
		{"1.5", "0.5", "1.5"},
		{"1.49", "0.5", "1"},
		{"0.105", "0.01", "0.1"},
		{"123.456", "1", "123"},
		{"0.0009", "0.001", "0"},
		{"5", "0.00100", "5"},
	}
	for _, tc := range cases {
		got := QuantizeQuantity(dec(tc.raw), dec(tc.step))
		assert.True(t, got.Equal(dec(tc.want)), "raw=%s step=%s got=%s want=%s", tc.raw, tc.step, got, tc.want)
	}
}

func TestQuantizeQuantityNeverRoundsUp(t *testing.T) {
	raws := []string{"0.1", "0.0033", "7.7777777", "0.00000001", "99999.99999999"}
	steps := []string{"0.001", "0.01", "0.1", "1", "0.00000001", "0.003"}
	for _, r := range raws {
		for _, s := range steps {
			raw, step := dec(r), dec(s)
			got := QuantizeQuantity(raw, step)
			assert.True(t, got.LessThanOrEqual(raw), "raw=%s step=%s got=%s", r, s, got)
			assert.True(t, got.Mod(step).IsZero(), "raw=%s step=%s got=%s not a multiple", r, s, got)
		}
	}
}

func TestQuantizeQuantityIdempotent(t *testing.T) {
	raws := []string{"0.0033", "1.49", "42", "0.10500001"}
	steps := []string{"0.001", "0.5", "0.003"}
	for _, r := range raws {
		for _, s := range steps {
			once := QuantizeQuantity(dec(r), dec(s))
			twice := QuantizeQuantity(once, dec(s))
			assert.True(t, once.Equal(twice), "raw=%s step=%s once=%s twice=%s", r, s, once, twice)
		}
	}
}

func TestQuantizeQuantityDegradesOnBadStep(t *testing.T) {
	raw := dec("0.123456789123")
	got := QuantizeQuantity(raw, decimal.Zero)
	assert.True(t, got.Equal(dec("0.12345678")))

	got = QuantizeQuantity(raw, dec("-0.001"))
	assert.True(t, got.Equal(dec("0.12345678")))
}

func TestQuantizePrice(t *testing.T) {
	got := QuantizePrice(dec("50000.123"), dec("0.01"))
	assert.True(t, got.Equal(dec("50000.12")))

	got = QuantizePrice(dec("50000.123"), decimal.Zero)
	assert.True(t, got.Equal(dec("50000.123")), "zero tick must pass price through")
}

func TestStepPrecision(t *testing.T) {
	require.EqualValues(t, 3, StepPrecision(dec("0.001")))
	require.EqualValues(t, 3, StepPrecision(dec("0.00100")))
	require.EqualValues(t, 0, StepPrecision(dec("1")))
	require.EqualValues(t, 8, StepPrecision(dec("0.00000001")))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0.003", FormatAmount(dec("0.003")))
	assert.Equal(t, "5", FormatAmount(dec("5.0")))
	assert.Equal(t, "0.00000001", FormatAmount(dec("0.00000001")))
}
