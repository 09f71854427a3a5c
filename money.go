package cryptofolio

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// EUR renders a decimal euro amount with the locale-aware EUR formatter.
// Values keep exact decimal arithmetic everywhere; formatting is the only
// place they are rounded to cents.
func EUR(v decimal.Decimal) string {
	cur := *money.New(0, money.EUR).Currency()
	return cur.Formatter().Format(v.Shift(int32(cur.Fraction)).Round(0).IntPart())
}

// SignedEUR is EUR with an explicit sign, rendering zero as "-".
func SignedEUR(v decimal.Decimal) string {
	if v.IsZero() {
		return "-"
	}
	if v.IsPositive() {
		return "+" + EUR(v)
	}
	return EUR(v)
}

// Crypto renders a coin quantity: small amounts keep precision, large ones
// get thousands suffixes so tables stay readable.
func Crypto(v decimal.Decimal) string {
	abs := v.Abs()
	switch {
	case abs.LessThan(decimal.RequireFromString("0.000001")):
		return "0"
	case abs.GreaterThanOrEqual(decimal.NewFromInt(1_000_000)):
		return v.Div(decimal.NewFromInt(1_000_000)).StringFixed(2) + "M"
	case abs.GreaterThanOrEqual(decimal.NewFromInt(1_000)):
		return v.Div(decimal.NewFromInt(1_000)).StringFixed(2) + "K"
	default:
		return v.StringFixed(6)
	}
}
