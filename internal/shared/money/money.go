package money

import "fmt"

// Amounts are integer cents end to end; floats never touch stored totals.

// RoundHalfUp divides num by den with half-up rounding. den must be > 0.
func RoundHalfUp(num, den int64) int64 {
	if num >= 0 {
		return (num + den/2) / den
	}
	return -((-num + den/2) / den)
}

// Percent applies bps (basis points, 1000 = 10%) to cents, half-up.
func Percent(cents int64, bps int64) int64 {
	return RoundHalfUp(cents*bps, 10000)
}

// Format renders cents with the currency symbol.
func Format(currency string, cents int64) string {
	major := float64(cents) / 100.0
	switch currency {
	case "EUR":
		return fmt.Sprintf("€%.2f", major)
	case "TRY":
		return fmt.Sprintf("₺%.2f", major)
	case "USD":
		return fmt.Sprintf("$%.2f", major)
	default:
		return fmt.Sprintf("%.2f %s", major, currency)
	}
}
