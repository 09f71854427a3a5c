package cryptofolio

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testEVMScanner(doer httpDoer, chains ...string) *EVMScanner {
	s := NewEVMScanner(doer, NewKeyPool("key1"), chains, NewTokenPolicy(), zerolog.Nop())
	s.pace.sleep = func(time.Duration) {}
	return s
}

const evmAddr = "0xd8da6bf26964af9d7eed9e03e53415d37aa96045"

func TestEVMScanBalances(t *testing.T) {
	doer := newStubDoer()
	doer.on("/balance?chain=0x1", `{"balance":"1500000000000000000"}`)
	doer.on("/erc20?chain=0x1", `[
		{"symbol":"USDC","name":"USD Coin","balance":"250000000","decimals":6,"token_address":"0xa0b8"},
		{"symbol":"SPAM","name":"visit claim-rewards.com","balance":"99999000000000000000000","decimals":18,"token_address":"0xdead"},
		{"symbol":"ZERO","name":"Zero","balance":"0","decimals":18,"token_address":"0x0"}
	]`)

	s := testEVMScanner(doer, "eth")
	balances, err := s.ScanBalances(evmAddr)
	if err != nil {
		t.Fatalf("ScanBalances() error = %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("balances = %d, want native + USDC", len(balances))
	}
	if balances[0].Coin != "ETH" || !balances[0].Amount.Equal(d("1.5")) {
		t.Errorf("native = %s %s, want 1.5 ETH", balances[0].Amount, balances[0].Coin)
	}
	if balances[1].Coin != "USDC" || !balances[1].Amount.Equal(d("250")) {
		t.Errorf("token = %s %s, want 250 USDC", balances[1].Amount, balances[1].Coin)
	}
	if balances[0].Source != "wallet_"+evmAddr {
		t.Errorf("Source = %q, want wallet_<address>", balances[0].Source)
	}
}

func TestEVMScanBalances_DropsNativeDust(t *testing.T) {
	doer := newStubDoer()
	doer.on("/balance?chain=0x1", `{"balance":"90000000000000"}`) // 0.00009
	doer.on("/erc20?chain=0x1", `[]`)

	s := testEVMScanner(doer, "eth")
	balances, err := s.ScanBalances(evmAddr)
	if err != nil {
		t.Fatalf("ScanBalances() error = %v", err)
	}
	if len(balances) != 0 {
		t.Errorf("balances = %v, want gas dust dropped", balances)
	}
}

func TestEVMScanTransactions(t *testing.T) {
	doer := newStubDoer()
	doer.on(evmAddr+"?chain=0x1", `{"result":[
		{"hash":"0xaaa","block_timestamp":"2025-03-01T10:00:00.000Z",
		 "from_address":"0x1111111111111111111111111111111111111111",
		 "to_address":"`+evmAddr+`",
		 "value":"2000000000000000000","gas":"21000","gas_price":"30000000000"},
		{"hash":"0xbbb","block_timestamp":"2025-03-02T10:00:00.000Z",
		 "from_address":"`+evmAddr+`",
		 "to_address":"0x2222222222222222222222222222222222222222",
		 "value":"1000000000000000000","gas":"21000","gas_price":"30000000000"}
	]}`)
	doer.on("/erc20/transfers", `{"result":[
		{"transaction_hash":"0xccc","log_index":3,"block_timestamp":"2025-03-03T10:00:00.000Z",
		 "from_address":"0x3333333333333333333333333333333333333333",
		 "to_address":"`+evmAddr+`",
		 "value":"500000000","token_symbol":"usdc","token_name":"USD Coin","token_decimals":"6"}
	]}`)

	s := testEVMScanner(doer, "eth")
	txs, err := s.ScanTransactions(evmAddr)
	if err != nil {
		t.Fatalf("ScanTransactions() error = %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("transactions = %d, want 3", len(txs))
	}

	in := txs[0]
	if in.Type != TxDeposit || in.CoinIn != "ETH" || !in.AmountIn.Equal(d("2")) {
		t.Errorf("incoming native = %+v, want a 2 ETH deposit", in)
	}
	if !in.FeeAmount.Equal(d("0.00063")) { // 21000 * 30 gwei
		t.Errorf("FeeAmount = %s, want 0.00063", in.FeeAmount)
	}
	if in.SourceID != "0xaaa" {
		t.Errorf("SourceID = %q, want the tx hash", in.SourceID)
	}

	outTx := txs[1]
	if outTx.Type != TxWithdrawal || outTx.CoinOut != "ETH" || !outTx.AmountOut.Equal(d("1")) {
		t.Errorf("outgoing native = %+v, want a 1 ETH withdrawal", outTx)
	}

	erc := txs[2]
	if erc.SourceID != "0xccc_3" {
		t.Errorf("erc20 SourceID = %q, want hash_logIndex", erc.SourceID)
	}
	if erc.CoinIn != "USDC" || !erc.AmountIn.Equal(d("500")) {
		t.Errorf("erc20 = %s %s, want 500 USDC in", erc.AmountIn, erc.CoinIn)
	}
}

// rotatingDoer refuses with 429 until the expected key shows up.
type rotatingDoer struct {
	goodKey string
	body    string
	seen    []string
}

func (r *rotatingDoer) Do(req *http.Request) (*http.Response, error) {
	key := req.Header.Get("X-API-Key")
	r.seen = append(r.seen, key)
	if key != r.goodKey {
		return &http.Response{
			StatusCode: http.StatusTooManyRequests,
			Status:     "429 Too Many Requests",
			Body:       io.NopCloser(strings.NewReader("")),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Body:       io.NopCloser(strings.NewReader(r.body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func TestEVMScanner_RotatesKeysOnRateLimit(t *testing.T) {
	doer := &rotatingDoer{goodKey: "key2", body: `{"balance":"1000000000000000000"}`}
	s := NewEVMScanner(doer, NewKeyPool("key1", "key2"), []string{"eth"}, NewTokenPolicy(), zerolog.Nop())
	s.pace.sleep = func(time.Duration) {}

	var native struct {
		Balance string `json:"balance"`
	}
	if err := s.getJSON(moralisBase+"/x/balance?chain=0x1", &native); err != nil {
		t.Fatalf("getJSON() error = %v", err)
	}
	if native.Balance != "1000000000000000000" {
		t.Errorf("Balance = %q after rotation", native.Balance)
	}
	if len(doer.seen) != 2 || doer.seen[0] != "key1" || doer.seen[1] != "key2" {
		t.Errorf("keys tried = %v, want key1 then key2", doer.seen)
	}
}

func TestEVMScanner_ExhaustsKeys(t *testing.T) {
	doer := &rotatingDoer{goodKey: "never"}
	s := NewEVMScanner(doer, NewKeyPool("key1", "key2"), []string{"eth"}, NewTokenPolicy(), zerolog.Nop())

	var out any
	err := s.getJSON(moralisBase+"/x/balance?chain=0x1", &out)
	if err == nil || !strings.Contains(err.Error(), ErrKeysExhausted.Error()) {
		t.Errorf("getJSON() error = %v, want keys exhausted", err)
	}
}

func TestEVMScanner_NoKeys(t *testing.T) {
	s := NewEVMScanner(newStubDoer(), NewKeyPool(), []string{"eth"}, NewTokenPolicy(), zerolog.Nop())
	var out any
	if err := s.getJSON(moralisBase+"/x/balance?chain=0x1", &out); err != ErrNoAPIKey {
		t.Errorf("getJSON() error = %v, want ErrNoAPIKey", err)
	}
}
