package spend

import (
	"fmt"
	"math"
)

// Amount is a monetary value in integer micro-dollars (1e-6 USD).
//
// Fixed-point integers keep accumulation exact: adding $0.003 ten thousand
// times yields exactly $30, which float64 cents cannot guarantee. Rounding
// to display precision happens only in String and Dollars, never while
// accumulating.
type Amount int64

// microsPerDollar is the fixed-point scale.
const microsPerDollar = 1_000_000

// FromDollars converts a dollar value to an Amount, rounding to the nearest
// micro-dollar. Intended for configuration and provider-reported costs that
// arrive as decimals; internal arithmetic never round-trips through float64.
func FromDollars(d float64) Amount {
	return Amount(math.Round(d * microsPerDollar))
}

// FromMicros constructs an Amount from raw micro-dollars.
func FromMicros(m int64) Amount { return Amount(m) }

// Micros returns the raw micro-dollar value.
func (a Amount) Micros() int64 { return int64(a) }

// Dollars returns the value as a float64 for presentation and metrics.
func (a Amount) Dollars() float64 {
	return float64(a) / microsPerDollar
}

// String renders the amount at cent precision, e.g. "$12.34". Negative
// amounts render as "-$12.34".
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	cents := (v + microsPerDollar/200) / (microsPerDollar / 100) // round half up
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
