package cryptofolio

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewTransaction_FillsDefaults(t *testing.T) {
	got := NewTransaction(Transaction{
		Source:    "test",
		SourceID:  "abc",
		Timestamp: ms(2025, time.June, 15),
		CoinIn:    "ETH",
		AmountIn:  d("1"),
	})

	if got.ID == "" {
		t.Error("ID not generated")
	}
	if got.Year != 2025 {
		t.Errorf("Year = %d, want 2025", got.Year)
	}
	if !strings.HasPrefix(got.Date, "2025-06-15") {
		t.Errorf("Date = %q, want a 2025-06-15 timestamp", got.Date)
	}
	if got.Type != TxUnknown {
		t.Errorf("Type = %s, want %s", got.Type, TxUnknown)
	}
	if got.ImportedAt == 0 {
		t.Error("ImportedAt not stamped")
	}
}

func TestNewTransaction_KeepsProvidedFields(t *testing.T) {
	in := Transaction{
		ID: "fixed", Source: "test", SourceID: "abc",
		Timestamp: ms(2025, time.June, 15),
		Type:      TxTrade, Year: 2024, Date: "2024-12-31T00:00:00Z",
	}
	got := NewTransaction(in)
	if got.ID != "fixed" || got.Type != TxTrade || got.Year != 2024 {
		t.Errorf("NewTransaction overwrote provided fields: %+v", got)
	}
}

func TestTransaction_IsValid(t *testing.T) {
	valid := buy("ETH", "1", "100", ms(2025, time.June, 15))
	if !valid.IsValid() {
		t.Error("a complete record must be valid")
	}

	noSource := valid
	noSource.Source = ""
	if noSource.IsValid() {
		t.Error("a record without source must be invalid")
	}

	negative := valid
	negative.AmountIn = d("-1")
	if negative.IsValid() {
		t.Error("a record with a negative amount must be invalid")
	}

	feeOnly := Transaction{Source: "test", SourceID: "fee", FeeCoin: "ETH", FeeAmount: d("0.001")}
	if !feeOnly.IsValid() {
		t.Error("a fee-only record moves value and must be valid")
	}
}

func TestParseTransaction_CoercesLooseTypes(t *testing.T) {
	raw := map[string]any{
		"source":    "binance_csv",
		"sourceId":  "row-7",
		"timestamp": float64(1750000000000), // JSON numbers decode as float64
		"type":      "trade",
		"coinIn":    "ETH",
		"amountIn":  "1.5", // amount as string
		"coinOut":   "USDT",
		"amountOut": float64(3000),
		"valueEUR":  2800.5,
	}
	tx, warns := ParseTransaction(raw)
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	if !tx.AmountIn.Equal(d("1.5")) {
		t.Errorf("AmountIn = %s, want 1.5", tx.AmountIn)
	}
	if !tx.AmountOut.Equal(d("3000")) {
		t.Errorf("AmountOut = %s, want 3000", tx.AmountOut)
	}
	if tx.Timestamp != 1750000000000 {
		t.Errorf("Timestamp = %d, want 1750000000000", tx.Timestamp)
	}
	if tx.Type != TxTrade {
		t.Errorf("Type = %s, want trade", tx.Type)
	}
	if !tx.IsValid() {
		t.Error("coerced record must be valid")
	}
}

func TestParseTransaction_WarnsOnGarbage(t *testing.T) {
	raw := map[string]any{
		"source":   "test",
		"sourceId": "bad-1",
		"amountIn": "not a number",
		"coinIn":   []any{"ETH"},
	}
	tx, warns := ParseTransaction(raw)
	if len(warns) != 2 {
		t.Errorf("warnings = %v, want one per malformed field", warns)
	}
	if !tx.AmountIn.IsZero() {
		t.Errorf("AmountIn = %s, want 0 for garbage input", tx.AmountIn)
	}
	if tx.CoinIn != "" {
		t.Errorf("CoinIn = %q, want empty for garbage input", tx.CoinIn)
	}
}

func TestTransaction_MarshalKeepsEveryField(t *testing.T) {
	tx := NewTransaction(buy("ETH", "1.5", "3000", ms(2025, time.June, 15)))
	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{
		"id", "source", "sourceId", "timestamp", "date", "year", "type",
		"coinIn", "amountIn", "coinOut", "amountOut", "valueEUR", "priceEUR",
		"feeCoin", "feeAmount", "feeEUR", "wallet", "chain", "notes",
		"importedAt", "verified",
	} {
		if _, ok := decoded[field]; !ok {
			t.Errorf("field %q missing from the wire shape", field)
		}
	}
	// amounts must be JSON numbers, not strings
	if _, ok := decoded["amountIn"].(float64); !ok {
		t.Errorf("amountIn serialized as %T, want a number", decoded["amountIn"])
	}
}

func TestTransaction_DedupKey(t *testing.T) {
	a := buy("ETH", "1", "100", ms(2025, time.June, 15))
	b := a
	b.SourceID = "other"
	if a.DedupKey() == b.DedupKey() {
		t.Error("different sourceIds must have different dedup keys")
	}
	c := a
	c.Source = "elsewhere"
	if a.DedupKey() == c.DedupKey() {
		t.Error("different sources must have different dedup keys")
	}
}
