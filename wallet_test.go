package cryptofolio

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeScanner serves canned scan results for one family.
type fakeScanner struct {
	family   ChainFamily
	balances []Balance
	txs      []Transaction
	balErr   error
	txErr    error
}

func (f *fakeScanner) Family() ChainFamily { return f.family }
func (f *fakeScanner) ScanBalances(string) ([]Balance, error) {
	return f.balances, f.balErr
}
func (f *fakeScanner) ScanTransactions(string) ([]Transaction, error) {
	return f.txs, f.txErr
}

func testScanService(t *testing.T, sc Scanner) (*ScanService, *Ledger) {
	t.Helper()
	ledger := testLedger(t)
	prices := NewPriceService(newStubDoer(), ledger, zerolog.Nop())
	svc := NewScanService(ledger, NewTokenPolicy(), prices, zerolog.Nop())
	svc.Register(sc)
	return svc, ledger
}

func TestScan_StoresBalancesAndTransactions(t *testing.T) {
	source := "wallet_" + evmAddr
	sc := &fakeScanner{
		family: FamilyEVM,
		balances: []Balance{
			{Coin: "ETH", Amount: d("1.5"), Source: source, Chain: "eth"},
			{Coin: "SPAMCLAIM", Amount: d("9999"), Source: source, Chain: "eth"},
		},
		txs: []Transaction{
			buy("ETH", "1.5", "3000", ms(2025, time.March, 1)),
		},
	}
	svc, ledger := testScanService(t, sc)

	out := svc.Scan(evmAddr)
	if out.Err != nil {
		t.Fatalf("Scan() error = %v", out.Err)
	}
	if out.Family != FamilyEVM {
		t.Errorf("Family = %s, want evm", out.Family)
	}
	if out.Balances != 1 || out.Filtered != 1 {
		t.Errorf("Balances = %d Filtered = %d, want 1 and 1", out.Balances, out.Filtered)
	}
	if out.Transactions != 1 {
		t.Errorf("Transactions = %d, want 1", out.Transactions)
	}
	if got := len(ledger.Balances()); got != 1 {
		t.Errorf("stored balances = %d, want the spam one dropped", got)
	}

	// rescans add nothing
	again := svc.Scan(evmAddr)
	if again.Transactions != 0 {
		t.Errorf("rescan added %d transactions, want 0", again.Transactions)
	}
}

func TestScan_UnknownFamily(t *testing.T) {
	svc, _ := testScanService(t, &fakeScanner{family: FamilyEVM})
	out := svc.Scan("not an address")
	if !errors.Is(out.Err, ErrUnknownAddress) {
		t.Errorf("Scan() error = %v, want ErrUnknownAddress", out.Err)
	}
}

func TestScan_PartialFailureKeepsResults(t *testing.T) {
	bang := errors.New("api down")
	sc := &fakeScanner{
		family: FamilyEVM,
		txs: []Transaction{
			buy("ETH", "1", "2000", ms(2025, time.March, 1)),
		},
		balErr: bang,
	}
	svc, ledger := testScanService(t, sc)

	out := svc.Scan(evmAddr)
	if !errors.Is(out.Err, bang) {
		t.Errorf("Scan() error = %v, want the balance failure surfaced", out.Err)
	}
	if out.Transactions != 1 {
		t.Errorf("Transactions = %d, want the history stored despite the balance failure", out.Transactions)
	}
	if got := len(ledger.Transactions(TxFilter{})); got != 1 {
		t.Errorf("stored transactions = %d, want 1", got)
	}
}

func TestScanAll_CoversEveryWallet(t *testing.T) {
	sc := &fakeScanner{family: FamilyEVM}
	svc, ledger := testScanService(t, sc)
	ledger.AddWallet(Wallet{Address: "0x1111111111111111111111111111111111111111", Chain: "evm"})
	ledger.AddWallet(Wallet{Address: "0x2222222222222222222222222222222222222222", Chain: "evm"})

	outcomes := svc.ScanAll()
	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %d, want one per wallet", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Err != nil {
			t.Errorf("Scan(%s) error = %v", o.Address, o.Err)
		}
	}
}
