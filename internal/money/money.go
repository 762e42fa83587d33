// Package money holds the decimal helpers shared by the split and balance
// engines. All monetary values are shopspring decimals; rounding to cents
// happens only where a caller explicitly asks for it.
package money

import "github.com/shopspring/decimal"

// Places is the number of fractional digits stored for every amount.
const Places int32 = 2

var (
	// Tolerance is the largest accepted deviation when two totals are compared.
	Tolerance = decimal.New(1, -Places)

	// Hundred is used for percentage arithmetic.
	Hundred = decimal.NewFromInt(100)
)

// Round rounds to cents, half away from zero (round-half-up for positive amounts).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// HasCents reports whether d has no digits beyond Places. Trailing zeros
// are ignored, so 10.500 is accepted.
func HasCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(Places))
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// WithinTolerance reports whether |a-b| <= Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}
