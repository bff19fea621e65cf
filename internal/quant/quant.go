// Package quant implements the exchange-mandated rounding rules for order
// quantities and prices. All rounding is toward zero: an order must never be
// sized above what the caller asked for or what the exchange allows.
package quant

import (
	"strings"

	"github.com/shopspring/decimal"
)

// defaultPrecision is used when a step size is missing or malformed.
const defaultPrecision = 8

// QuantizeQuantity floors raw to the nearest multiple of step, formatted to
// the precision implied by step. A zero or negative step degrades to plain
// flooring at 8 decimal places instead of failing.
func QuantizeQuantity(raw, step decimal.Decimal) decimal.Decimal {
	if step.Sign() <= 0 {
		return raw.Truncate(defaultPrecision)
	}
	steps, _ := raw.QuoRem(step, 0)
	return steps.Mul(step).Truncate(StepPrecision(step))
}

// QuantizePrice floors raw to the nearest multiple of tick. A zero or
// negative tick returns the price unchanged.
func QuantizePrice(raw, tick decimal.Decimal) decimal.Decimal {
	if tick.Sign() <= 0 {
		return raw
	}
	ticks, _ := raw.QuoRem(tick, 0)
	return ticks.Mul(tick).Truncate(StepPrecision(tick))
}

// StepPrecision returns the number of significant fractional digits of a
// step size once trailing zeros are stripped, e.g. "0.00100" -> 3.
func StepPrecision(step decimal.Decimal) int32 {
	s := step.String()
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0
	}
	frac := strings.TrimRight(s[dot+1:], "0")
	return int32(len(frac))
}

// FormatAmount renders a quantity or price the way the exchange expects it
// on the wire: fixed decimals, trailing zeros and a dangling point removed.
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(defaultPrecision)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
