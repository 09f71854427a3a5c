package cryptofolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is a point-in-time holding snapshot reported directly by a source.
// Snapshots are the fast view of the portfolio; the replayed transaction
// history is the authoritative one for tax purposes, and the two are compared
// for divergence rather than reconciled.
type Balance struct {
	Coin   string `json:"coin"`
	Source string `json:"source"`
	Chain  string `json:"chain"`

	Amount   decimal.Decimal `json:"amount"`
	PriceEUR decimal.Decimal `json:"priceEUR"`
	ValueEUR decimal.Decimal `json:"valueEUR"`

	LastUpdate int64 `json:"lastUpdate"` // epoch millis of the snapshot
}

// Key returns the identity under which snapshots are upserted: one balance
// per coin per chain per source.
func (b Balance) Key() string { return b.Coin + "_" + b.Chain + "_" + b.Source }

// NewBalance fills the unset fields of a snapshot: a zero value is derived
// from amount and unit price, and a zero update time is stamped now.
func NewBalance(b Balance) Balance {
	if b.ValueEUR.IsZero() && !b.Amount.IsZero() && !b.PriceEUR.IsZero() {
		b.ValueEUR = b.Amount.Mul(b.PriceEUR)
	}
	if b.LastUpdate == 0 {
		b.LastUpdate = time.Now().UnixMilli()
	}
	return b
}

// MarshalJSON emits the snapshot wire shape with all numeric fields present.
func (b Balance) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("coin", b.Coin)
	w.Append("source", b.Source)
	w.Append("chain", b.Chain)
	w.Number("amount", b.Amount)
	w.Number("priceEUR", b.PriceEUR)
	w.Number("valueEUR", b.ValueEUR)
	w.Append("lastUpdate", b.LastUpdate)
	return w.MarshalJSON()
}
