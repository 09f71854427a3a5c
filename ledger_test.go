package cryptofolio

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := OpenLedger(newMemStore(), newMemStore(), zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenLedger() error = %v", err)
	}
	return l
}

func TestLedger_AddTransactionDeduplicates(t *testing.T) {
	l := testLedger(t)

	tx := buy("ETH", "1", "100", ms(2025, time.January, 10))
	if !l.AddTransaction(tx) {
		t.Fatal("first AddTransaction() = false, want true")
	}
	if l.AddTransaction(tx) {
		t.Error("second AddTransaction() = true, want false for the same (source, sourceId)")
	}
	if got := len(l.Transactions(TxFilter{})); got != 1 {
		t.Errorf("stored transactions = %d, want 1", got)
	}
}

func TestLedger_ReingestionIsIdempotent(t *testing.T) {
	l := testLedger(t)

	batch := []Transaction{
		buy("ETH", "1", "100", ms(2025, time.January, 10)),
		buy("BTC", "1", "500", ms(2025, time.January, 11)),
		sell("ETH", "1", "150", ms(2025, time.February, 1)),
	}
	if added := l.AddTransactions(batch); added != 3 {
		t.Fatalf("first AddTransactions() = %d, want 3", added)
	}
	if added := l.AddTransactions(batch); added != 0 {
		t.Errorf("second AddTransactions() = %d, want 0", added)
	}
}

func TestLedger_RejectsInvalidTransactions(t *testing.T) {
	l := testLedger(t)

	noID := buy("ETH", "1", "100", ms(2025, time.January, 10))
	noID.SourceID = ""
	if l.AddTransaction(noID) {
		t.Error("AddTransaction() accepted a record without sourceId")
	}

	empty := Transaction{Source: "test", SourceID: "empty"}
	if l.AddTransaction(empty) {
		t.Error("AddTransaction() accepted a record with all amounts zero")
	}
}

func TestLedger_TransactionsFilterAndOrder(t *testing.T) {
	l := testLedger(t)
	l.AddTransactions([]Transaction{
		buy("ETH", "1", "100", ms(2024, time.June, 1)),
		buy("BTC", "1", "500", ms(2025, time.January, 10)),
		sell("ETH", "1", "150", ms(2025, time.March, 1)),
	})

	eth := l.Transactions(TxFilter{Coin: "ETH"})
	if len(eth) != 2 {
		t.Fatalf("ETH transactions = %d, want 2", len(eth))
	}
	if eth[0].Timestamp < eth[1].Timestamp {
		t.Error("Transactions() must return newest first")
	}

	y2025 := l.Transactions(TxFilter{Year: 2025})
	if len(y2025) != 2 {
		t.Errorf("2025 transactions = %d, want 2", len(y2025))
	}

	chrono := l.Chronological()
	for i := 1; i < len(chrono); i++ {
		if chrono[i-1].Timestamp > chrono[i].Timestamp {
			t.Fatal("Chronological() must return oldest first")
		}
	}
}

func TestLedger_AddWalletIsCaseInsensitivelyUnique(t *testing.T) {
	l := testLedger(t)

	addr := "0xAbCd000000000000000000000000000000001234"
	if !l.AddWallet(Wallet{Address: addr, Chain: "evm"}) {
		t.Fatal("AddWallet() = false, want true")
	}
	if l.AddWallet(Wallet{Address: "0xabcd000000000000000000000000000000001234", Chain: "evm"}) {
		t.Error("AddWallet() accepted the same address with different casing")
	}
}

func TestLedger_RemoveWalletCascades(t *testing.T) {
	l := testLedger(t)
	addr := "0xabcd000000000000000000000000000000001234"
	other := "0x9999000000000000000000000000000000009999"
	l.AddWallet(Wallet{Address: addr, Chain: "evm"})
	l.AddWallet(Wallet{Address: other, Chain: "evm"})

	mine := buy("ETH", "1", "100", ms(2025, time.January, 10))
	mine.Wallet = addr
	mine.Source = "eth_" + addr
	theirs := buy("BTC", "1", "500", ms(2025, time.January, 11))
	theirs.Wallet = other
	theirs.Source = "eth_" + other
	l.AddTransactions([]Transaction{mine, theirs})

	l.UpdateBalance(Balance{Coin: "ETH", Source: "eth_" + addr, Chain: "eth", Amount: d("1")})
	l.UpdateBalance(Balance{Coin: "BTC", Source: "eth_" + other, Chain: "eth", Amount: d("1")})

	if !l.RemoveWallet(addr) {
		t.Fatal("RemoveWallet() = false, want true")
	}

	if got := len(l.Wallets()); got != 1 {
		t.Errorf("wallets after removal = %d, want 1", got)
	}
	txs := l.Transactions(TxFilter{})
	if len(txs) != 1 || txs[0].Wallet != other {
		t.Errorf("transactions after removal = %v, want only the other wallet's", txs)
	}
	balances := l.Balances()
	if len(balances) != 1 || balances[0].Coin != "BTC" {
		t.Errorf("balances after removal = %v, want only BTC", balances)
	}

	// the freed (source, sourceId) pair can be ingested again
	if !l.AddTransaction(mine) {
		t.Error("AddTransaction() = false after cascade freed the dedup key")
	}
}

func TestLedger_UpdateBalanceUpserts(t *testing.T) {
	l := testLedger(t)

	l.UpdateBalance(Balance{Coin: "ETH", Source: "eth_0xabc", Chain: "eth", Amount: d("1"), PriceEUR: d("2000")})
	l.UpdateBalance(Balance{Coin: "ETH", Source: "eth_0xabc", Chain: "eth", Amount: d("2"), PriceEUR: d("2000")})

	balances := l.Balances()
	if len(balances) != 1 {
		t.Fatalf("balances = %d, want 1 after upsert on the same key", len(balances))
	}
	if !balances[0].Amount.Equal(d("2")) {
		t.Errorf("Amount = %s, want 2", balances[0].Amount)
	}
	if !balances[0].ValueEUR.Equal(d("4000")) {
		t.Errorf("ValueEUR = %s, want 4000", balances[0].ValueEUR)
	}
	if balances[0].LastUpdate == 0 {
		t.Error("LastUpdate not stamped")
	}
}

func TestLedger_ResetKeepsCredentials(t *testing.T) {
	l := testLedger(t)
	l.SetAPIKeys("moralis", "keyA", "keyB")
	l.SetSelectedChains([]string{"eth", "base"})
	l.AddWallet(Wallet{Address: "0xabcd000000000000000000000000000000001234", Chain: "evm"})
	l.AddTransaction(buy("ETH", "1", "100", ms(2025, time.January, 10)))
	l.UpdateBalance(Balance{Coin: "ETH", Source: "eth_0xabc", Chain: "eth", Amount: d("1")})

	l.Reset()

	if got := len(l.Wallets()); got != 0 {
		t.Errorf("wallets after reset = %d, want 0", got)
	}
	if got := len(l.Transactions(TxFilter{})); got != 0 {
		t.Errorf("transactions after reset = %d, want 0", got)
	}
	if got := len(l.Balances()); got != 0 {
		t.Errorf("balances after reset = %d, want 0", got)
	}
	if got := l.APIKeys("moralis"); len(got) != 2 {
		t.Errorf("API keys after reset = %v, want both kept", got)
	}
	if got := l.SelectedChains(); len(got) != 2 {
		t.Errorf("selected chains after reset = %v, want kept", got)
	}
}

func TestLedger_PersistsAcrossReopen(t *testing.T) {
	primary := newMemStore()
	backup := newMemStore()
	l, err := OpenLedger(primary, backup, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	l.AddTransaction(buy("ETH", "1", "100", ms(2025, time.January, 10)))
	l.Flush()

	reopened, err := OpenLedger(primary, backup, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if got := len(reopened.Transactions(TxFilter{})); got != 1 {
		t.Fatalf("transactions after reopen = %d, want 1", got)
	}
	// dedup survives the reload
	if reopened.AddTransaction(buy("ETH", "1", "100", ms(2025, time.January, 10))) {
		t.Error("AddTransaction() = true after reopen, want dedup to hold")
	}
}

type failingStore struct{}

func (failingStore) Get(string) ([]byte, bool, error) { return nil, false, errStoreDown }
func (failingStore) Put(string, []byte) error         { return errStoreDown }
func (failingStore) Delete(string) error              { return errStoreDown }

var errStoreDown = errors.New("store down")

func TestLedger_FallsBackToBackupStore(t *testing.T) {
	backup := newMemStore()
	l, err := OpenLedger(newMemStore(), backup, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	l.AddTransaction(buy("ETH", "1", "100", ms(2025, time.January, 10)))
	l.Flush()

	fromBackup, err := OpenLedger(failingStore{}, backup, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenLedger() with dead primary error = %v", err)
	}
	if got := len(fromBackup.Transactions(TxFilter{})); got != 1 {
		t.Errorf("transactions from backup = %d, want 1", got)
	}
}

func TestLedger_ReplayBalances(t *testing.T) {
	l := testLedger(t)

	l.AddTransaction(buy("ETH", "3", "3000", ms(2024, time.March, 1)))
	l.AddTransaction(sell("ETH", "1", "1500", ms(2024, time.June, 1)))
	l.AddTransaction(buy("SOL", "10", "800", ms(2024, time.July, 1)))
	l.AddTransaction(sell("SOL", "10", "900", ms(2024, time.August, 1)))
	delegation := buy("ETH", "2", "0", ms(2024, time.September, 1))
	delegation.SourceID = "delegate-1"
	delegation.Type = TxStaking
	l.AddTransaction(delegation)

	got := l.ReplayBalances()
	if !got["ETH"].Equal(d("2")) {
		t.Errorf("ETH = %s, want 2 (staking must not move ownership)", got["ETH"])
	}
	if _, ok := got["SOL"]; ok {
		t.Error("fully sold coin still present in replay")
	}
}
