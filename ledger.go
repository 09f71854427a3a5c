package cryptofolio

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Ledger is the single store of portfolio state: canonical transactions,
// balance snapshots, tracked wallets and exchanges, credentials, and the
// price caches. All access is serialized by one mutex; scanners run
// concurrently and funnel their results through here.
//
// Mutations persist through a debounced saver so a scan inserting hundreds
// of records costs one write. Destructive operations (wallet removal, reset)
// persist synchronously before returning.
type Ledger struct {
	mu    sync.Mutex
	doc   *Document
	dedup map[string]bool // (source, sourceId) pairs already stored

	primary DocumentStore // durable backend
	backup  DocumentStore // local snapshot, always written, read on fallback

	saver *debouncer
	log   zerolog.Logger
}

// saveDebounce is the quiet period before a batch of mutations is persisted.
const saveDebounce = 2 * time.Second

// OpenLedger loads state from the primary store, falling back to the local
// backup when the primary is unreachable. A missing document on both sides
// yields an empty ledger, not an error.
func OpenLedger(primary, backup DocumentStore, log zerolog.Logger) (*Ledger, error) {
	l := &Ledger{
		primary: primary,
		backup:  backup,
		log:     log.With().Str("component", "ledger").Logger(),
	}
	l.saver = newDebouncer(saveDebounce, l.saveNow)

	doc, err := loadDocument(primary)
	if err != nil {
		l.log.Warn().Err(err).Msg("primary store unreachable, loading local backup")
		doc, err = loadDocument(backup)
		if err != nil {
			return nil, err
		}
	}
	l.doc = doc
	l.dedup = make(map[string]bool, len(doc.Transactions))
	for _, t := range doc.Transactions {
		l.dedup[t.DedupKey()] = true
	}
	l.log.Info().
		Int("transactions", len(doc.Transactions)).
		Int("wallets", len(doc.Wallets)).
		Msg("ledger loaded")
	return l, nil
}

// save schedules a debounced persist. Callers hold l.mu.
func (l *Ledger) save() { l.saver.Trigger() }

// saveNow persists synchronously to both stores. Failures on the primary
// are logged, not fatal: the local backup is the safety net.
func (l *Ledger) saveNow() {
	l.mu.Lock()
	doc := l.snapshotLocked()
	l.mu.Unlock()

	if err := saveDocument(l.primary, doc); err != nil {
		l.log.Error().Err(err).Msg("cannot persist to primary store")
	}
	if err := saveDocument(l.backup, doc); err != nil {
		l.log.Error().Err(err).Msg("cannot persist local backup")
	}
}

// Flush forces any pending debounced save to complete. The CLI calls it
// before exiting.
func (l *Ledger) Flush() { l.saver.Flush() }

// snapshotLocked deep-copies the document so persistence can marshal it
// without holding the ledger lock.
func (l *Ledger) snapshotLocked() *Document {
	doc := *l.doc
	doc.Transactions = append([]Transaction(nil), l.doc.Transactions...)
	doc.Wallets = append([]Wallet(nil), l.doc.Wallets...)
	doc.SelectedChains = append([]string(nil), l.doc.SelectedChains...)
	doc.Balances = make(map[string]Balance, len(l.doc.Balances))
	for k, v := range l.doc.Balances {
		doc.Balances[k] = v
	}
	doc.Exchanges = make(map[string]Exchange, len(l.doc.Exchanges))
	for k, v := range l.doc.Exchanges {
		doc.Exchanges[k] = v
	}
	doc.APIKeys = make(map[string][]string, len(l.doc.APIKeys))
	for k, v := range l.doc.APIKeys {
		doc.APIKeys[k] = append([]string(nil), v...)
	}
	doc.Prices = make(map[string]PricePoint, len(l.doc.Prices))
	for k, v := range l.doc.Prices {
		doc.Prices[k] = v
	}
	doc.HistoricalPrices = make(map[string]decimal.Decimal, len(l.doc.HistoricalPrices))
	for k, v := range l.doc.HistoricalPrices {
		doc.HistoricalPrices[k] = v
	}
	return &doc
}

// AddTransaction stores a transaction unless its (source, sourceId) pair is
// already present or the record is invalid. It reports whether the record
// was added, which makes re-scanning a source idempotent.
func (l *Ledger) AddTransaction(t Transaction) bool {
	t = NewTransaction(t)
	if !t.IsValid() {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dedup[t.DedupKey()] {
		return false
	}
	l.dedup[t.DedupKey()] = true
	l.doc.Transactions = append(l.doc.Transactions, t)
	l.save()
	return true
}

// AddTransactions stores a batch, returning how many were actually new.
func (l *Ledger) AddTransactions(txs []Transaction) int {
	added := 0
	for _, t := range txs {
		if l.AddTransaction(t) {
			added++
		}
	}
	l.log.Info().Int("added", added).Int("offered", len(txs)).Msg("transactions ingested")
	return added
}

// TxFilter selects transactions; zero-valued fields do not constrain.
// Multiple set fields must all match.
type TxFilter struct {
	Source string
	Year   int
	Coin   string // matches either leg
	Type   TxType
}

func (f TxFilter) match(t Transaction) bool {
	if f.Source != "" && t.Source != f.Source {
		return false
	}
	if f.Year != 0 && t.Year != f.Year {
		return false
	}
	if f.Coin != "" && t.CoinIn != f.Coin && t.CoinOut != f.Coin {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	return true
}

// Transactions returns the matching transactions newest first. The result
// is a copy; mutating it does not affect the ledger.
func (l *Ledger) Transactions(f TxFilter) []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Transaction
	for _, t := range l.doc.Transactions {
		if f.match(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

// Chronological returns all transactions oldest first, ties keeping their
// insertion order. This is the replay order the tax engine depends on.
func (l *Ledger) Chronological() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := append([]Transaction(nil), l.doc.Transactions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// DeleteTransactions removes the matching transactions and returns the count.
func (l *Ledger) DeleteTransactions(f TxFilter) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.doc.Transactions[:0]
	deleted := 0
	for _, t := range l.doc.Transactions {
		if f.match(t) {
			delete(l.dedup, t.DedupKey())
			deleted++
			continue
		}
		kept = append(kept, t)
	}
	l.doc.Transactions = kept
	if deleted > 0 {
		l.log.Info().Int("deleted", deleted).Msg("transactions deleted")
		l.save()
	}
	return deleted
}

// AddWallet registers an address for scanning, case-insensitively unique.
func (l *Ledger) AddWallet(w Wallet) bool {
	if w.AddedAt == 0 {
		w.AddedAt = time.Now().UnixMilli()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, x := range l.doc.Wallets {
		if strings.EqualFold(x.Address, w.Address) {
			return false
		}
	}
	l.doc.Wallets = append(l.doc.Wallets, w)
	l.save()
	return true
}

// RemoveWallet unregisters an address and cascades: every balance whose
// source contains the address and every transaction whose wallet or source
// contains it are removed too, so stale rows cannot poison later tax runs.
// The result is persisted synchronously before returning.
func (l *Ledger) RemoveWallet(address string) bool {
	addr := strings.ToLower(address)

	l.mu.Lock()
	idx := -1
	for i, w := range l.doc.Wallets {
		if strings.ToLower(w.Address) == addr {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.mu.Unlock()
		return false
	}
	l.doc.Wallets = append(l.doc.Wallets[:idx], l.doc.Wallets[idx+1:]...)

	removedBalances := 0
	for key, b := range l.doc.Balances {
		if strings.Contains(strings.ToLower(b.Source), addr) {
			delete(l.doc.Balances, key)
			removedBalances++
		}
	}

	kept := l.doc.Transactions[:0]
	removedTxs := 0
	for _, t := range l.doc.Transactions {
		if strings.Contains(strings.ToLower(t.Wallet), addr) ||
			strings.Contains(strings.ToLower(t.Source), addr) {
			delete(l.dedup, t.DedupKey())
			removedTxs++
			continue
		}
		kept = append(kept, t)
	}
	l.doc.Transactions = kept
	l.mu.Unlock()

	l.log.Info().
		Str("address", addr).
		Int("balances", removedBalances).
		Int("transactions", removedTxs).
		Msg("wallet removed")
	l.saveNow()
	return true
}

// Wallets returns the tracked addresses.
func (l *Ledger) Wallets() []Wallet {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Wallet(nil), l.doc.Wallets...)
}

// SetExchange stores or replaces a linked exchange account.
func (l *Ledger) SetExchange(e Exchange) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.doc.Exchanges[e.Name] = e
	l.save()
}

// RemoveExchange unlinks an exchange and cascades to its transactions and
// balances like RemoveWallet does, persisting synchronously.
func (l *Ledger) RemoveExchange(name string) bool {
	key := strings.ToLower(name)

	l.mu.Lock()
	if _, ok := l.doc.Exchanges[name]; !ok {
		l.mu.Unlock()
		return false
	}
	delete(l.doc.Exchanges, name)
	for k, b := range l.doc.Balances {
		if strings.Contains(strings.ToLower(b.Source), key) {
			delete(l.doc.Balances, k)
		}
	}
	kept := l.doc.Transactions[:0]
	for _, t := range l.doc.Transactions {
		if strings.Contains(strings.ToLower(t.Source), key) {
			delete(l.dedup, t.DedupKey())
			continue
		}
		kept = append(kept, t)
	}
	l.doc.Transactions = kept
	l.mu.Unlock()

	l.saveNow()
	return true
}

// Exchanges returns the linked exchange accounts.
func (l *Ledger) Exchanges() map[string]Exchange {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]Exchange, len(l.doc.Exchanges))
	for k, v := range l.doc.Exchanges {
		out[k] = v
	}
	return out
}

// UpdateBalance upserts a snapshot under its (coin, chain, source) key and
// stamps the update time.
func (l *Ledger) UpdateBalance(b Balance) {
	b = NewBalance(b)
	b.LastUpdate = time.Now().UnixMilli()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.doc.Balances[b.Key()] = b
	l.save()
}

// Balances returns the snapshots sorted by descending EUR value.
func (l *Ledger) Balances() []Balance {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Balance, 0, len(l.doc.Balances))
	for _, b := range l.doc.Balances {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ValueEUR.Equal(out[j].ValueEUR) {
			return out[i].ValueEUR.GreaterThan(out[j].ValueEUR)
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}

// ReplayBalances derives per-coin holdings from the transaction history
// alone, the reconciliation view against the scanned snapshots. Staking
// (un)delegations move coins without changing ownership and are skipped,
// matching the gains replay.
func (l *Ledger) ReplayBalances() map[string]decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]decimal.Decimal)
	for _, t := range l.doc.Transactions {
		if t.Type == TxStaking {
			continue
		}
		if t.CoinIn != "" && t.AmountIn.IsPositive() {
			out[t.CoinIn] = out[t.CoinIn].Add(t.AmountIn)
		}
		if t.CoinOut != "" && t.AmountOut.IsPositive() {
			out[t.CoinOut] = out[t.CoinOut].Sub(t.AmountOut)
		}
	}
	for coin, amt := range out {
		if amt.IsZero() {
			delete(out, coin)
		}
	}
	return out
}

// SetAPIKeys replaces the credential list for a provider.
func (l *Ledger) SetAPIKeys(provider string, keys ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.doc.APIKeys[provider] = append([]string(nil), keys...)
	l.save()
}

// APIKeys returns the credentials for a provider.
func (l *Ledger) APIKeys(provider string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.doc.APIKeys[provider]...)
}

// SelectedChains returns the EVM chains scans cover.
func (l *Ledger) SelectedChains() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.doc.SelectedChains...)
}

// SetSelectedChains replaces the scanned EVM chain set.
func (l *Ledger) SetSelectedChains(chains []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.doc.SelectedChains = append([]string(nil), chains...)
	l.save()
}

// LivePrice returns the cached live quote for a coin symbol, if any.
func (l *Ledger) LivePrice(coin string) (PricePoint, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.doc.Prices[strings.ToUpper(coin)]
	return p, ok
}

// SetLivePrice stores a live quote. Live quotes persist so a restart starts
// from the last known prices instead of zeros.
func (l *Ledger) SetLivePrice(coin string, p PricePoint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.doc.Prices[strings.ToUpper(coin)] = p
	l.save()
}

// HistoricalPrice returns the cached close for a "COIN_YYYY-MM-DD" key.
func (l *Ledger) HistoricalPrice(key string) (decimal.Decimal, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.doc.HistoricalPrices[key]
	return p, ok
}

// SetHistoricalPrice caches a historical close permanently; a day's closing
// price never changes.
func (l *Ledger) SetHistoricalPrice(key string, p decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.doc.HistoricalPrices[key] = p
	l.save()
}

// Reset erases all portfolio data (wallets, exchanges, transactions,
// balances, price caches), keeping credentials, and persists synchronously.
func (l *Ledger) Reset() {
	l.mu.Lock()
	keys := l.doc.APIKeys
	chains := l.doc.SelectedChains
	l.doc = newDocument()
	l.doc.APIKeys = keys
	l.doc.SelectedChains = chains
	l.dedup = make(map[string]bool)
	l.mu.Unlock()

	l.log.Warn().Msg("ledger reset, all portfolio data erased")
	l.saveNow()
}
