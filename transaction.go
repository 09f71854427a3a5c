package cryptofolio

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TxType identifies the kind of movement a canonical transaction records.
type TxType string

// Canonical transaction types. Every source maps its native records onto
// these; anything a source cannot classify is tagged TxUnknown rather than
// dropped, so the record is still visible for manual review.
const (
	TxDeposit       TxType = "deposit"
	TxWithdrawal    TxType = "withdrawal"
	TxTrade         TxType = "trade"
	TxFee           TxType = "fee"
	TxStakingReward TxType = "staking_reward"
	TxStaking       TxType = "staking"
	TxAirdrop       TxType = "airdrop"
	TxUnknown       TxType = "unknown"
)

// Transaction is the universal normalized movement record. It is immutable
// once created: the ledger only ever appends or deletes, never mutates.
//
// The pair (Source, SourceID) is the deduplication key: for a given pair at
// most one transaction may exist in a ledger, which is what makes repeated
// scans of the same wallet or exchange safe.
type Transaction struct {
	ID       string `json:"id"`
	Source   string `json:"source"`   // e.g. "binance" or "wallet_0xabc..."
	SourceID string `json:"sourceId"` // the origin's own id: tx hash, order id

	Timestamp int64  `json:"timestamp"` // epoch millis, transaction time
	Date      string `json:"date"`      // ISO 8601 rendering of Timestamp
	Year      int    `json:"year"`      // calendar year of Timestamp, for tax grouping

	Type TxType `json:"type"`

	CoinIn    string          `json:"coinIn"`
	AmountIn  decimal.Decimal `json:"amountIn"`
	CoinOut   string          `json:"coinOut"`
	AmountOut decimal.Decimal `json:"amountOut"`

	ValueEUR decimal.Decimal `json:"valueEUR"` // 0 means "unresolved", not "worthless"
	PriceEUR decimal.Decimal `json:"priceEUR"`

	FeeCoin   string          `json:"feeCoin"`
	FeeAmount decimal.Decimal `json:"feeAmount"`
	FeeEUR    decimal.Decimal `json:"feeEUR"`

	Wallet string `json:"wallet"` // empty for centralized-exchange sources
	Chain  string `json:"chain"`
	Notes  string `json:"notes"`

	ImportedAt int64 `json:"importedAt"` // ingestion time, distinct from Timestamp
	Verified   bool  `json:"verified"`
}

// DedupKey returns the identity under which the ledger deduplicates.
func (t Transaction) DedupKey() string { return t.Source + "\x00" + t.SourceID }

// When returns the calendar date of the transaction.
func (t Transaction) When() Date { return DateOfMillis(t.Timestamp) }

// IsValid reports whether the record carries enough identity and substance to
// be stored. A record with all amounts zero records no movement and must be
// dropped before insertion.
func (t Transaction) IsValid() bool {
	if t.Source == "" || t.SourceID == "" {
		return false
	}
	if t.AmountIn.IsNegative() || t.AmountOut.IsNegative() || t.FeeAmount.IsNegative() {
		return false
	}
	return !(t.AmountIn.IsZero() && t.AmountOut.IsZero() && t.FeeAmount.IsZero())
}

// NewTransaction fills the unset fields of a partially populated transaction
// with type-appropriate defaults: a fresh UUID, the current time for a zero
// timestamp, the year and ISO date derived from the timestamp, and TxUnknown
// for a missing type. It never fails; upstream sources are unreliable and a
// defaulted record is preferable to an aborted scan.
func NewTransaction(t Transaction) Transaction {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Timestamp == 0 {
		t.Timestamp = time.Now().UnixMilli()
	}
	if t.Date == "" {
		t.Date = time.UnixMilli(t.Timestamp).UTC().Format(time.RFC3339)
	}
	if t.Year == 0 {
		t.Year = t.When().Year()
	}
	if t.Type == "" {
		t.Type = TxUnknown
	}
	if t.ImportedAt == 0 {
		t.ImportedAt = time.Now().UnixMilli()
	}
	return t
}

// ParseTransaction coerces an untyped record (as decoded from JSON or a CSV
// producer) into a canonical Transaction. Malformed values are replaced by
// zero values and reported as warnings instead of failing: silent data loss
// should at least be observable.
func ParseTransaction(raw map[string]any) (Transaction, []string) {
	var warns []string
	t := Transaction{
		ID:        coerceString(raw, "id", &warns),
		Source:    coerceString(raw, "source", &warns),
		SourceID:  coerceString(raw, "sourceId", &warns),
		Timestamp: coerceMillis(raw, "timestamp", &warns),
		Date:      coerceString(raw, "date", &warns),
		Year:      int(coerceMillis(raw, "year", &warns)),
		Type:      TxType(coerceString(raw, "type", &warns)),
		CoinIn:    coerceString(raw, "coinIn", &warns),
		AmountIn:  coerceDecimal(raw, "amountIn", &warns),
		CoinOut:   coerceString(raw, "coinOut", &warns),
		AmountOut: coerceDecimal(raw, "amountOut", &warns),
		ValueEUR:  coerceDecimal(raw, "valueEUR", &warns),
		PriceEUR:  coerceDecimal(raw, "priceEUR", &warns),
		FeeCoin:   coerceString(raw, "feeCoin", &warns),
		FeeAmount: coerceDecimal(raw, "feeAmount", &warns),
		FeeEUR:    coerceDecimal(raw, "feeEUR", &warns),
		Wallet:    coerceString(raw, "wallet", &warns),
		Chain:     coerceString(raw, "chain", &warns),
		Notes:     coerceString(raw, "notes", &warns),
	}
	if v, ok := raw["importedAt"]; ok {
		t.ImportedAt = coerceInt64(v, "importedAt", &warns)
	}
	if v, ok := raw["verified"]; ok {
		b, isBool := v.(bool)
		if !isBool {
			warns = append(warns, fmt.Sprintf("verified: not a bool: %v", v))
		}
		t.Verified = b
	}
	return NewTransaction(t), warns
}

func coerceString(raw map[string]any, key string, warns *[]string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return decimal.NewFromFloat(s).String()
	default:
		*warns = append(*warns, fmt.Sprintf("%s: not a string: %v", key, v))
		return ""
	}
}

func coerceDecimal(raw map[string]any, key string, warns *[]string) decimal.Decimal {
	v, ok := raw[key]
	if !ok || v == nil {
		return decimal.Zero
	}
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			*warns = append(*warns, fmt.Sprintf("%s: not a number: %v", key, v))
			return decimal.Zero
		}
		return d
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			*warns = append(*warns, fmt.Sprintf("%s: not a number: %q", key, n))
			return decimal.Zero
		}
		return d
	case decimal.Decimal:
		return n
	default:
		*warns = append(*warns, fmt.Sprintf("%s: not a number: %v", key, v))
		return decimal.Zero
	}
}

func coerceMillis(raw map[string]any, key string, warns *[]string) int64 {
	v, ok := raw[key]
	if !ok || v == nil {
		return 0
	}
	return coerceInt64(v, key, warns)
}

func coerceInt64(v any, key string, warns *[]string) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			*warns = append(*warns, fmt.Sprintf("%s: not an integer: %v", key, v))
			return 0
		}
		return i
	default:
		*warns = append(*warns, fmt.Sprintf("%s: not an integer: %v", key, v))
		return 0
	}
}

// MarshalJSON emits the exact wire shape, every contract field present,
// zero-valued numerics included.
func (t Transaction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", t.ID)
	w.Append("source", t.Source)
	w.Append("sourceId", t.SourceID)
	w.Append("timestamp", t.Timestamp)
	w.Append("date", t.Date)
	w.Append("year", t.Year)
	w.Append("type", t.Type)
	w.Append("coinIn", t.CoinIn)
	w.Number("amountIn", t.AmountIn)
	w.Append("coinOut", t.CoinOut)
	w.Number("amountOut", t.AmountOut)
	w.Number("valueEUR", t.ValueEUR)
	w.Number("priceEUR", t.PriceEUR)
	w.Append("feeCoin", t.FeeCoin)
	w.Number("feeAmount", t.FeeAmount)
	w.Number("feeEUR", t.FeeEUR)
	w.Append("wallet", t.Wallet)
	w.Append("chain", t.Chain)
	w.Append("notes", t.Notes)
	w.Append("importedAt", t.ImportedAt)
	w.Append("verified", t.Verified)
	return w.MarshalJSON()
}
