package cryptofolio

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// testPrices returns a service on a stub transport with a controllable clock
// and no pacing sleeps.
func testPrices(t *testing.T, doer *stubDoer) (*PriceService, *time.Time) {
	t.Helper()
	clock := time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
	svc := NewPriceService(doer, testLedger(t), zerolog.Nop())
	svc.now = func() time.Time { return clock }
	svc.pace.now = svc.now
	svc.pace.sleep = func(time.Duration) {}
	return svc, &clock
}

func countMatching(urls []string, part string) int {
	n := 0
	for _, u := range urls {
		if strings.Contains(u, part) {
			n++
		}
	}
	return n
}

func TestRefreshLive_CachesQuotes(t *testing.T) {
	doer := newStubDoer()
	doer.on("simple/price", `{"ethereum":{"eur":2000.5,"usd":2200.1},"bitcoin":{"eur":60000,"usd":66000}}`)
	svc, _ := testPrices(t, doer)

	if err := svc.RefreshLive([]string{"ETH", "BTC"}); err != nil {
		t.Fatalf("RefreshLive() error = %v", err)
	}
	if got := svc.Price("ETH"); !got.Equal(d("2000.5")) {
		t.Errorf("Price(ETH) = %s, want 2000.5", got)
	}
	if got := svc.PriceUSD("BTC"); !got.Equal(d("66000")) {
		t.Errorf("PriceUSD(BTC) = %s, want 66000", got)
	}
	if !svc.Fresh("ETH") {
		t.Error("Fresh(ETH) = false right after a refresh")
	}
	if got := svc.ConvertToEUR("ETH", d("2")); !got.Equal(d("4001")) {
		t.Errorf("ConvertToEUR(ETH, 2) = %s, want 4001", got)
	}
}

func TestRefreshLive_HonorsMinFetchInterval(t *testing.T) {
	doer := newStubDoer()
	doer.on("simple/price", `{"ethereum":{"eur":2000,"usd":2200}}`)
	svc, clock := testPrices(t, doer)

	svc.RefreshLive([]string{"ETH"})
	*clock = clock.Add(5 * time.Second)
	svc.RefreshLive([]string{"ETH"}) // within the interval: served from cache

	if got := countMatching(doer.seen(), "simple/price"); got != 1 {
		t.Fatalf("bulk endpoint hit %d times, want 1 within the interval", got)
	}

	*clock = clock.Add(6 * time.Second) // past the interval now
	svc.RefreshLive([]string{"ETH"})
	if got := countMatching(doer.seen(), "simple/price"); got != 2 {
		t.Errorf("bulk endpoint hit %d times, want 2 after the interval", got)
	}
}

func TestPrice_StaleQuoteStillServed(t *testing.T) {
	doer := newStubDoer()
	doer.on("simple/price", `{"ethereum":{"eur":2000,"usd":2200}}`)
	svc, clock := testPrices(t, doer)

	svc.RefreshLive([]string{"ETH"})
	*clock = clock.Add(10 * time.Minute)

	if svc.Fresh("ETH") {
		t.Error("Fresh(ETH) = true ten minutes after the refresh")
	}
	if got := svc.Price("ETH"); !got.Equal(d("2000")) {
		t.Errorf("Price(ETH) = %s, want the stale quote over zero", got)
	}
}

func TestHistoricalPrice_ResolvedCloseIsPermanent(t *testing.T) {
	doer := newStubDoer()
	doer.on("coins/bitcoin/history", `{"market_data":{"current_price":{"eur":42000.25}}}`)
	svc, _ := testPrices(t, doer)
	day := NewDate(2025, time.December, 31)

	if got := svc.HistoricalPrice("BTC", day); !got.Equal(d("42000.25")) {
		t.Fatalf("HistoricalPrice(BTC) = %s, want 42000.25", got)
	}
	// second lookup must come from the ledger cache
	svc.HistoricalPrice("BTC", day)
	if got := countMatching(doer.seen(), "history"); got != 1 {
		t.Errorf("history endpoint hit %d times, want 1", got)
	}

	// the CoinGecko date parameter is day-month-year
	for _, u := range doer.seen() {
		if strings.Contains(u, "history") && !strings.Contains(u, "date=31-12-2025") {
			t.Errorf("history URL %q does not carry date=31-12-2025", u)
		}
	}
}

func TestHistoricalPrice_FailureRetriedAfterTTL(t *testing.T) {
	doer := newStubDoer()
	doer.onStatus("coins/bitcoin/history", http.StatusInternalServerError, "")
	svc, clock := testPrices(t, doer)
	day := NewDate(2025, time.December, 31)

	if got := svc.HistoricalPrice("BTC", day); !got.IsZero() {
		t.Fatalf("HistoricalPrice() = %s on a failing API, want 0", got)
	}
	// within the failure TTL the API is left alone
	*clock = clock.Add(30 * time.Minute)
	svc.HistoricalPrice("BTC", day)
	if got := countMatching(doer.seen(), "history"); got != 1 {
		t.Fatalf("history endpoint hit %d times within the failure TTL, want 1", got)
	}

	// after the TTL the API recovered: the close resolves
	doer.on("coins/bitcoin/history", `{"market_data":{"current_price":{"eur":42000}}}`)
	*clock = clock.Add(time.Hour)
	if got := svc.HistoricalPrice("BTC", day); !got.Equal(d("42000")) {
		t.Errorf("HistoricalPrice() after retry = %s, want 42000", got)
	}
}

func TestHistoricalPrice_UnknownCoin(t *testing.T) {
	doer := newStubDoer()
	svc, _ := testPrices(t, doer)

	if got := svc.HistoricalPrice("NOSUCHCOIN", NewDate(2025, time.June, 1)); !got.IsZero() {
		t.Errorf("HistoricalPrice(NOSUCHCOIN) = %s, want 0", got)
	}
	if len(doer.seen()) != 0 {
		t.Error("an unmapped coin must not hit the API")
	}
}

func TestPortfolioValueAt_SkipsEmptyAndKeepsUnpriced(t *testing.T) {
	doer := newStubDoer()
	svc, _ := testPrices(t, doer)
	day := NewDate(2025, time.December, 31)

	// seed the ledger cache directly: BTC priced, OBSCURE unknown
	svc.ledger.SetHistoricalPrice(historicalKey("BTC", day), d("40000"))

	total, details := svc.PortfolioValueAt(map[string]decimal.Decimal{
		"BTC":     d("0.5"),
		"OBSCURE": d("100"),
		"ZERO":    d("0"),
	}, day)

	if !total.Equal(d("20000")) {
		t.Errorf("total = %s, want 20000", total)
	}
	if len(details) != 2 {
		t.Fatalf("details = %d rows, want 2 (zero holdings skipped)", len(details))
	}
	// sorted by coin: BTC first, OBSCURE second with zero value
	if details[0].Coin != "BTC" || details[1].Coin != "OBSCURE" {
		t.Errorf("details order = %s, %s, want BTC, OBSCURE", details[0].Coin, details[1].Coin)
	}
	if !details[1].ValueEUR.IsZero() {
		t.Errorf("unpriced coin valued at %s, want 0", details[1].ValueEUR)
	}
}

func TestHistoricalPriceFutureDayNeverFetches(t *testing.T) {
	doer := newStubDoer()
	svc, _ := testPrices(t, doer)

	if got := svc.HistoricalPrice("BTC", NewDate(2026, time.December, 31)); !got.IsZero() {
		t.Errorf("future close = %s, want 0", got)
	}
	if got := len(doer.seen()); got != 0 {
		t.Errorf("API hits for a future day = %d, want 0", got)
	}
}
