package cryptofolio

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentStore persists named JSON documents. The durable backend and the
// local snapshot file both implement it; the ledger writes through both and
// reads the local one only when the durable one is unreachable.
type DocumentStore interface {
	// Get returns the named document, or ok=false when it does not exist.
	Get(name string) (data []byte, ok bool, err error)
	// Put writes the named document, replacing any previous version.
	Put(name string, data []byte) error
	// Delete removes the named document if present.
	Delete(name string) error
}

// mainDocument is the name of the root document. Overflow transaction chunks
// are stored beside it as "transactions_0", "transactions_1", ...
const mainDocument = "data"

// Backends cap document size around 1MB; past this margin transactions are
// split out into fixed-size chunks.
const (
	maxDocumentBytes = 900_000
	txChunkSize      = 500
)

// PricePoint is a live quote with the time it was fetched, so readers can
// tell a fresh price from a stale one.
type PricePoint struct {
	EUR        decimal.Decimal `json:"eur"`
	USD        decimal.Decimal `json:"usd"`
	LastUpdate int64           `json:"lastUpdate"`
}

// Wallet is a tracked on-chain address.
type Wallet struct {
	Address string `json:"address"`
	Chain   string `json:"chain"` // chain family or specific chain id
	Name    string `json:"name"`
	AddedAt int64  `json:"addedAt"`
}

// Exchange is a linked centralized-exchange account.
type Exchange struct {
	Name      string `json:"name"`
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
	LastSync  int64  `json:"lastSync"`
}

// Document is the complete serialized state of a ledger.
type Document struct {
	Transactions []Transaction       `json:"transactions"`
	Balances     map[string]Balance  `json:"balances"`
	Wallets      []Wallet            `json:"wallets"`
	Exchanges    map[string]Exchange `json:"exchanges"`

	APIKeys        map[string][]string `json:"apiKeys"`
	SelectedChains []string            `json:"selectedChains"`

	Prices           map[string]PricePoint      `json:"prices"`
	HistoricalPrices map[string]decimal.Decimal `json:"historicalPrices"`

	LastSync int64 `json:"lastSync"`
	// TxChunks is the number of overflow chunk documents; 0 means all
	// transactions are inline.
	TxChunks int `json:"txChunks"`
}

// txChunk is one overflow document of transactions.
type txChunk struct {
	Transactions []Transaction `json:"transactions"`
	ChunkIndex   int           `json:"chunkIndex"`
	TotalChunks  int           `json:"totalChunks"`
}

func newDocument() *Document {
	return &Document{
		Balances:         make(map[string]Balance),
		Exchanges:        make(map[string]Exchange),
		APIKeys:          make(map[string][]string),
		SelectedChains:   []string{"eth", "bsc", "polygon"},
		Prices:           make(map[string]PricePoint),
		HistoricalPrices: make(map[string]decimal.Decimal),
	}
}

func chunkName(i int) string { return fmt.Sprintf("transactions_%d", i) }

// saveDocument writes the document to the store, splitting transactions into
// chunk documents when the serialized whole exceeds the size ceiling.
func saveDocument(store DocumentStore, doc *Document) error {
	doc.LastSync = time.Now().UnixMilli()

	whole := *doc
	whole.TxChunks = 0
	data, err := json.Marshal(&whole)
	if err != nil {
		return fmt.Errorf("cannot serialize ledger: %w", err)
	}
	if len(data) <= maxDocumentBytes {
		if err := store.Put(mainDocument, data); err != nil {
			return err
		}
		// stale chunks from an earlier oversized save must not survive
		return deleteChunks(store, 0)
	}

	txs := doc.Transactions
	total := (len(txs) + txChunkSize - 1) / txChunkSize
	for i := 0; i < total; i++ {
		end := (i + 1) * txChunkSize
		if end > len(txs) {
			end = len(txs)
		}
		chunk := txChunk{Transactions: txs[i*txChunkSize : end], ChunkIndex: i, TotalChunks: total}
		data, err := json.Marshal(&chunk)
		if err != nil {
			return fmt.Errorf("cannot serialize chunk %d: %w", i, err)
		}
		if err := store.Put(chunkName(i), data); err != nil {
			return err
		}
	}

	main := *doc
	main.Transactions = nil
	main.TxChunks = total
	data, err = json.Marshal(&main)
	if err != nil {
		return fmt.Errorf("cannot serialize ledger: %w", err)
	}
	if err := store.Put(mainDocument, data); err != nil {
		return err
	}
	return deleteChunks(store, total)
}

// deleteChunks removes chunk documents from index `from` upward until one is
// missing.
func deleteChunks(store DocumentStore, from int) error {
	for i := from; ; i++ {
		_, ok, err := store.Get(chunkName(i))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := store.Delete(chunkName(i)); err != nil {
			return err
		}
	}
}

// loadDocument reads the document back, reassembling chunked transactions in
// chunk-index order. A missing main document yields a fresh empty one.
func loadDocument(store DocumentStore) (*Document, error) {
	data, ok, err := store.Get(mainDocument)
	if err != nil {
		return nil, err
	}
	if !ok {
		return newDocument(), nil
	}
	doc := newDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("cannot parse ledger document: %w", err)
	}
	if doc.TxChunks > 0 {
		chunks := make([]txChunk, 0, doc.TxChunks)
		for i := 0; i < doc.TxChunks; i++ {
			data, ok, err := store.Get(chunkName(i))
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("transaction chunk %d/%d missing", i, doc.TxChunks)
			}
			var c txChunk
			if err := json.Unmarshal(data, &c); err != nil {
				return nil, fmt.Errorf("cannot parse chunk %d: %w", i, err)
			}
			chunks = append(chunks, c)
		}
		sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })
		doc.Transactions = doc.Transactions[:0]
		for _, c := range chunks {
			doc.Transactions = append(doc.Transactions, c.Transactions...)
		}
		doc.TxChunks = 0
	}
	return doc, nil
}

// debouncer coalesces bursts of calls into one invocation of fn after a
// quiet period. A scan inserting hundreds of transactions triggers a single
// save instead of hundreds.
type debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	fn    func()
}

func newDebouncer(delay time.Duration, fn func()) *debouncer {
	return &debouncer{delay: delay, fn: fn}
}

// Trigger schedules fn to run after the quiet period, restarting the clock
// if a run is already pending.
func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Flush cancels any pending run and invokes fn synchronously.
func (d *debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	d.fn()
}

// Stop cancels any pending run without invoking fn.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
