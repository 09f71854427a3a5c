package cryptofolio

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// bigHistory builds enough transactions to push the serialized document past
// the size ceiling.
func bigHistory(n int) []Transaction {
	txs := make([]Transaction, 0, n)
	when := ms(2025, time.January, 1)
	for i := 0; i < n; i++ {
		t := buy("ETH", "1", "100", when+int64(i))
		t.SourceID = fmt.Sprintf("big-%d", i)
		t.Notes = strings.Repeat("x", 400) // fatten each record
		txs = append(txs, NewTransaction(t))
	}
	return txs
}

func TestSaveDocument_InlineBelowCeiling(t *testing.T) {
	store := newMemStore()
	doc := newDocument()
	doc.Transactions = bigHistory(3)

	if err := saveDocument(store, doc); err != nil {
		t.Fatalf("saveDocument() error = %v", err)
	}
	if _, ok, _ := store.Get(chunkName(0)); ok {
		t.Error("small document produced a chunk")
	}

	loaded, err := loadDocument(store)
	if err != nil {
		t.Fatalf("loadDocument() error = %v", err)
	}
	if len(loaded.Transactions) != 3 {
		t.Errorf("loaded %d transactions, want 3", len(loaded.Transactions))
	}
}

func TestSaveDocument_ChunksAboveCeiling(t *testing.T) {
	store := newMemStore()
	doc := newDocument()
	doc.Transactions = bigHistory(1600) // ~1600*500B, well past the ceiling

	if err := saveDocument(store, doc); err != nil {
		t.Fatalf("saveDocument() error = %v", err)
	}

	main, ok, _ := store.Get(mainDocument)
	if !ok {
		t.Fatal("main document missing")
	}
	if len(main) > maxDocumentBytes {
		t.Errorf("main document is %d bytes, want under the ceiling", len(main))
	}
	// 1600 transactions at 500 per chunk
	for i := 0; i < 4; i++ {
		if _, ok, _ := store.Get(chunkName(i)); !ok {
			t.Errorf("chunk %d missing", i)
		}
	}
	if _, ok, _ := store.Get(chunkName(4)); ok {
		t.Error("unexpected fifth chunk")
	}

	loaded, err := loadDocument(store)
	if err != nil {
		t.Fatalf("loadDocument() error = %v", err)
	}
	if len(loaded.Transactions) != 1600 {
		t.Fatalf("loaded %d transactions, want 1600", len(loaded.Transactions))
	}
	// order survives the round trip
	for i, tx := range loaded.Transactions {
		if want := fmt.Sprintf("big-%d", i); tx.SourceID != want {
			t.Fatalf("transaction %d = %s, want %s", i, tx.SourceID, want)
		}
	}
	if loaded.TxChunks != 0 {
		t.Errorf("TxChunks after load = %d, want 0", loaded.TxChunks)
	}
}

func TestSaveDocument_ShrinkingDeletesStaleChunks(t *testing.T) {
	store := newMemStore()
	doc := newDocument()
	doc.Transactions = bigHistory(1600)
	if err := saveDocument(store, doc); err != nil {
		t.Fatal(err)
	}

	doc.Transactions = doc.Transactions[:2]
	if err := saveDocument(store, doc); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := store.Get(chunkName(0)); ok {
		t.Error("stale chunk survived a shrinking save")
	}

	loaded, err := loadDocument(store)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Transactions) != 2 {
		t.Errorf("loaded %d transactions, want 2", len(loaded.Transactions))
	}
}

func TestLoadDocument_MissingYieldsEmpty(t *testing.T) {
	doc, err := loadDocument(newMemStore())
	if err != nil {
		t.Fatalf("loadDocument() on empty store error = %v", err)
	}
	if len(doc.Transactions) != 0 {
		t.Error("empty store yielded transactions")
	}
	// the JS app seeded these three by default
	if len(doc.SelectedChains) != 3 {
		t.Errorf("default chains = %v, want eth, bsc, polygon", doc.SelectedChains)
	}
}

func TestDebouncer_CoalescesBursts(t *testing.T) {
	var runs atomic.Int32
	deb := newDebouncer(20*time.Millisecond, func() { runs.Add(1) })

	for i := 0; i < 50; i++ {
		deb.Trigger()
	}
	time.Sleep(100 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Errorf("fn ran %d times for a burst, want 1", got)
	}
}

func TestDebouncer_FlushRunsNowAndCancelsPending(t *testing.T) {
	var runs atomic.Int32
	deb := newDebouncer(time.Hour, func() { runs.Add(1) })

	deb.Trigger()
	deb.Flush()
	if got := runs.Load(); got != 1 {
		t.Fatalf("fn ran %d times after Flush, want 1", got)
	}
	time.Sleep(20 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Errorf("pending run fired after Flush, total %d", got)
	}
}

func TestDebouncer_StopCancels(t *testing.T) {
	var runs atomic.Int32
	deb := newDebouncer(10*time.Millisecond, func() { runs.Add(1) })

	deb.Trigger()
	deb.Stop()
	time.Sleep(50 * time.Millisecond)
	if got := runs.Load(); got != 0 {
		t.Errorf("fn ran %d times after Stop, want 0", got)
	}
}
