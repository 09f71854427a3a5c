package cryptofolio

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// liveTTL is how long a live quote counts as fresh.
	liveTTL = time.Minute
	// minFetchInterval bounds how often the bulk live endpoint is hit; a
	// refresh requested sooner serves the cache instead.
	minFetchInterval = 10 * time.Second
	// histFetchPace spaces sequential historical lookups to stay inside the
	// free-tier rate limit.
	histFetchPace = 6 * time.Second
	// histFailureTTL is how long a failed historical lookup is remembered
	// before it may be retried. Failures are never cached permanently: the
	// API being down today says nothing about tomorrow.
	histFailureTTL = time.Hour
)

// defaultLiveCoins are refreshed when no explicit set is requested.
var defaultLiveCoins = []string{"BTC", "ETH", "BNB", "SOL", "MATIC", "ATOM", "OSMO", "LUNC", "USTC"}

// PriceService resolves live and historical EUR prices through CoinGecko,
// caching through the ledger: live quotes with a short TTL, historical
// closes permanently. All remote access is paced for free-tier rate limits.
type PriceService struct {
	client httpDoer
	ledger *Ledger
	log    zerolog.Logger

	mu        sync.Mutex
	fetching  bool      // collapses concurrent live refreshes into one
	lastFetch time.Time // last time the bulk endpoint was actually hit
	failures  map[string]time.Time

	pace *pacer
	now  func() time.Time
}

// NewPriceService returns a resolver caching through the given ledger.
func NewPriceService(client httpDoer, ledger *Ledger, log zerolog.Logger) *PriceService {
	return &PriceService{
		client:   client,
		ledger:   ledger,
		log:      log.With().Str("component", "prices").Logger(),
		failures: make(map[string]time.Time),
		pace:     newPacer(histFetchPace),
		now:      time.Now,
	}
}

// RefreshLive updates the live quote cache for the given coins (a default
// set when empty). A refresh already in flight, or one requested within the
// minimum fetch interval, returns immediately and the caller reads whatever
// the cache holds.
func (s *PriceService) RefreshLive(coins []string) error {
	s.mu.Lock()
	if s.fetching || s.now().Sub(s.lastFetch) < minFetchInterval {
		s.mu.Unlock()
		return nil
	}
	s.fetching = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.fetching = false
		s.mu.Unlock()
	}()

	if len(coins) == 0 {
		coins = defaultLiveCoins
	}
	ids := make([]string, 0, len(coins))
	byID := make(map[string]string, len(coins))
	for _, c := range coins {
		if id, ok := CoingeckoID(c); ok {
			ids = append(ids, id)
			byID[id] = strings.ToUpper(c)
		}
	}
	if len(ids) == 0 {
		s.log.Warn().Msg("no priceable coins requested")
		return nil
	}

	var quotes map[string]struct {
		EUR decimal.Decimal `json:"eur"`
		USD decimal.Decimal `json:"usd"`
	}
	if err := jwget(s.client, simplePriceURL(ids), nil, &quotes); err != nil {
		s.log.Error().Err(err).Msg("live price fetch failed")
		return err
	}

	stamp := s.now().UnixMilli()
	for id, q := range quotes {
		symbol, ok := byID[id]
		if !ok {
			continue
		}
		s.ledger.SetLivePrice(symbol, PricePoint{EUR: q.EUR, USD: q.USD, LastUpdate: stamp})
	}
	s.mu.Lock()
	s.lastFetch = s.now()
	s.mu.Unlock()
	s.log.Info().Int("coins", len(quotes)).Msg("live prices refreshed")
	return nil
}

// Price returns the cached live EUR price for a coin. A stale quote is still
// returned (it beats zero); a coin never quoted yields zero.
func (s *PriceService) Price(coin string) decimal.Decimal {
	p, ok := s.ledger.LivePrice(coin)
	if !ok {
		return decimal.Zero
	}
	return p.EUR
}

// PriceUSD is Price in USD.
func (s *PriceService) PriceUSD(coin string) decimal.Decimal {
	p, ok := s.ledger.LivePrice(coin)
	if !ok {
		return decimal.Zero
	}
	return p.USD
}

// Fresh reports whether the cached quote for coin is within the live TTL.
func (s *PriceService) Fresh(coin string) bool {
	p, ok := s.ledger.LivePrice(coin)
	return ok && s.now().Sub(time.UnixMilli(p.LastUpdate)) < liveTTL
}

// ConvertToEUR values an amount of coin at the cached live price.
func (s *PriceService) ConvertToEUR(coin string, amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(s.Price(coin))
}

func historicalKey(coin string, day Date) string {
	return strings.ToUpper(coin) + "_" + day.String()
}

// HistoricalPrice returns the EUR close of a coin on a given day. Resolved
// closes cache permanently; failures are remembered briefly so a dead API
// does not stall a report, then retried. Zero means unresolved, and callers
// must treat it as unknown rather than worthless.
func (s *PriceService) HistoricalPrice(coin string, day Date) decimal.Decimal {
	key := historicalKey(coin, day)
	if p, ok := s.ledger.HistoricalPrice(key); ok {
		return p
	}
	// a close only exists for past days
	if day.After(DateOf(s.now())) {
		return decimal.Zero
	}
	s.mu.Lock()
	if at, ok := s.failures[key]; ok && s.now().Sub(at) < histFailureTTL {
		s.mu.Unlock()
		return decimal.Zero
	}
	s.mu.Unlock()

	id, ok := CoingeckoID(coin)
	if !ok {
		s.log.Warn().Str("coin", coin).Msg("no asset id, cannot price")
		return decimal.Zero
	}

	s.pace.Wait()
	var jobj any
	if err := jwget(s.client, historyURL(id, day), nil, &jobj); err != nil {
		s.log.Error().Err(err).Str("coin", coin).Stringer("date", day).Msg("historical price fetch failed")
		s.rememberFailure(key)
		return decimal.Zero
	}
	eur, err := jqfloat(jobj, "$.market_data.current_price.eur")
	if err != nil {
		// asset existed but had no market on that day
		s.log.Warn().Str("coin", coin).Stringer("date", day).Msg("no historical price for day")
		s.rememberFailure(key)
		return decimal.Zero
	}
	price := decimal.NewFromFloat(eur)
	s.ledger.SetHistoricalPrice(key, price)
	s.log.Debug().Str("coin", coin).Stringer("date", day).Stringer("eur", price).Msg("historical price resolved")
	return price
}

func (s *PriceService) rememberFailure(key string) {
	s.mu.Lock()
	s.failures[key] = s.now()
	s.mu.Unlock()
}

// PriceAtJanuary1 returns the coin's EUR close on January 1st of year.
func (s *PriceService) PriceAtJanuary1(coin string, year int) decimal.Decimal {
	return s.HistoricalPrice(coin, January1(year))
}

// PriceAtDecember31 returns the coin's EUR close on December 31st of year.
func (s *PriceService) PriceAtDecember31(coin string, year int) decimal.Decimal {
	return s.HistoricalPrice(coin, December31(year))
}

// YearPrices resolves the January 1st and December 31st closes for every
// coin, sequentially and paced. Wealth-tax figures need both endpoints of
// the year.
func (s *PriceService) YearPrices(coins []string, year int) (jan1, dec31 map[string]decimal.Decimal) {
	jan1 = make(map[string]decimal.Decimal, len(coins))
	dec31 = make(map[string]decimal.Decimal, len(coins))
	for _, c := range coins {
		jan1[strings.ToUpper(c)] = s.PriceAtJanuary1(c, year)
		dec31[strings.ToUpper(c)] = s.PriceAtDecember31(c, year)
	}
	return jan1, dec31
}

// ValuedHolding is one coin's contribution to a portfolio valuation.
type ValuedHolding struct {
	Coin     string
	Amount   decimal.Decimal
	PriceEUR decimal.Decimal
	ValueEUR decimal.Decimal
}

// PortfolioValueAt values a set of holdings at a day's historical closes.
// Holdings of unpriceable coins contribute zero but still appear in the
// detail so the gap is visible.
func (s *PriceService) PortfolioValueAt(holdings map[string]decimal.Decimal, day Date) (decimal.Decimal, []ValuedHolding) {
	coins := make([]string, 0, len(holdings))
	for coin := range holdings {
		coins = append(coins, coin)
	}
	sort.Strings(coins)

	total := decimal.Zero
	details := make([]ValuedHolding, 0, len(coins))
	for _, coin := range coins {
		amount := holdings[coin]
		if !amount.IsPositive() {
			continue
		}
		price := s.HistoricalPrice(coin, day)
		value := amount.Mul(price)
		total = total.Add(value)
		details = append(details, ValuedHolding{Coin: coin, Amount: amount, PriceEUR: price, ValueEUR: value})
	}
	return total, details
}
