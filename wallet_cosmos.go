package cryptofolio

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// denomInfo maps a chain-native denom to its display coin.
type denomInfo struct {
	Symbol   string
	Decimals int32
}

// cosmosChain describes one Cosmos zone.
type cosmosChain struct {
	Name        string
	API         string
	ChainKey    string // short chain name in canonical records
	ValidDenoms map[string]denomInfo
	FCD         bool // zone exposes the Terra FCD transaction index
}

// cosmosChains is keyed by the zone CosmosZone derives from the address
// prefix. Denoms outside ValidDenoms (IBC vouchers and the like) are skipped.
var cosmosChains = map[string]cosmosChain{
	"terra": {
		Name:     "Terra Classic",
		API:      "https://terra-classic-fcd.publicnode.com",
		ChainKey: "terra",
		ValidDenoms: map[string]denomInfo{
			"uluna": {Symbol: "LUNC", Decimals: 6},
			"uusd":  {Symbol: "USTC", Decimals: 6},
		},
		FCD: true,
	},
	"cosmoshub": {
		Name:     "Cosmos Hub",
		API:      "https://cosmos-rest.publicnode.com",
		ChainKey: "atom",
		ValidDenoms: map[string]denomInfo{
			"uatom": {Symbol: "ATOM", Decimals: 6},
		},
	},
	"osmosis": {
		Name:     "Osmosis",
		API:      "https://osmosis-rest.publicnode.com",
		ChainKey: "osmo",
		ValidDenoms: map[string]denomInfo{
			"uosmo": {Symbol: "OSMO", Decimals: 6},
		},
	},
}

// cosmosDust is the minimum holding worth recording, in display units.
var cosmosDust = decimal.RequireFromString("0.000001")

// fcdPageSize and fcdMaxTxs bound the Terra transaction walk; an address
// with more history than the cap gets its most recent window.
const (
	fcdPageSize = 100
	fcdMaxTxs   = 5000
)

// CosmosScanner reads Cosmos-family wallets over the zones' public REST
// endpoints. Transaction history is available for Terra Classic only, which
// keeps its FCD index; the other zones report balances alone.
type CosmosScanner struct {
	client httpDoer
	pace   *pacer
	log    zerolog.Logger
}

func NewCosmosScanner(client httpDoer, log zerolog.Logger) *CosmosScanner {
	return &CosmosScanner{
		client: client,
		pace:   newPacer(200 * time.Millisecond),
		log:    log.With().Str("component", "cosmos").Logger(),
	}
}

func (s *CosmosScanner) Family() ChainFamily { return FamilyCosmos }

func (s *CosmosScanner) chainFor(address string) (cosmosChain, error) {
	zone, ok := CosmosZone(address)
	if !ok {
		return cosmosChain{}, fmt.Errorf("%w: %s", ErrUnknownAddress, address)
	}
	return cosmosChains[zone], nil
}

// ScanBalances reads the bank module balances, keeping only recognized
// denoms above the dust floor.
func (s *CosmosScanner) ScanBalances(address string) ([]Balance, error) {
	chain, err := s.chainFor(address)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Balances []struct {
			Denom  string `json:"denom"`
			Amount string `json:"amount"`
		} `json:"balances"`
	}
	url := fmt.Sprintf("%s/cosmos/bank/v1beta1/balances/%s", chain.API, address)
	if err := jwget(s.client, url, nil, &resp); err != nil {
		return nil, fmt.Errorf("cannot read %s balances: %w", chain.Name, err)
	}

	source := "wallet_" + strings.ToLower(address)
	var out []Balance
	for _, b := range resp.Balances {
		info, ok := chain.ValidDenoms[b.Denom]
		if !ok {
			continue
		}
		raw, err := decimal.NewFromString(b.Amount)
		if err != nil {
			continue
		}
		amount := raw.Shift(-info.Decimals)
		if amount.GreaterThan(cosmosDust) {
			out = append(out, NewBalance(Balance{
				Coin: info.Symbol, Amount: amount, Source: source, Chain: chain.ChainKey,
			}))
		}
	}
	s.log.Info().Str("chain", chain.ChainKey).Int("balances", len(out)).Msg("balances scanned")
	return out, nil
}

// fcdTx is the slice of an FCD transaction the parser needs.
type fcdTx struct {
	TxHash    string `json:"txhash"`
	Timestamp string `json:"timestamp"`
	Code      int    `json:"code"`
	Tx        struct {
		Body struct {
			Messages []fcdMsg `json:"messages"`
		} `json:"body"`
		AuthInfo struct {
			Fee struct {
				Amount []fcdCoin `json:"amount"`
			} `json:"fee"`
		} `json:"auth_info"`
	} `json:"tx"`
}

type fcdMsg struct {
	Type        string    `json:"@type"`
	FromAddress string    `json:"from_address"`
	ToAddress   string    `json:"to_address"`
	Amounts     []fcdCoin `json:"amount"`
	Amount      *fcdCoin  `json:"-"` // delegate messages carry a single coin
}

type fcdCoin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// UnmarshalJSON handles the amount field being either one coin (delegate
// messages) or a list of coins (send messages).
func (m *fcdMsg) UnmarshalJSON(data []byte) error {
	type alias struct {
		Type        string          `json:"@type"`
		FromAddress string          `json:"from_address"`
		ToAddress   string          `json:"to_address"`
		Amount      json.RawMessage `json:"amount"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	m.Type = a.Type
	m.FromAddress = a.FromAddress
	m.ToAddress = a.ToAddress
	if len(a.Amount) == 0 {
		return nil
	}
	if a.Amount[0] == '[' {
		return json.Unmarshal(a.Amount, &m.Amounts)
	}
	var c fcdCoin
	if err := json.Unmarshal(a.Amount, &c); err != nil {
		return err
	}
	m.Amount = &c
	return nil
}

// ScanTransactions walks the Terra FCD transaction index page by page, up to
// the history cap. Zones without an FCD index return nothing.
func (s *CosmosScanner) ScanTransactions(address string) ([]Transaction, error) {
	chain, err := s.chainFor(address)
	if err != nil {
		return nil, err
	}
	if !chain.FCD {
		return nil, nil
	}

	addr := strings.ToLower(address)
	var out []Transaction
	offset, fetched := 0, 0
	for fetched < fcdMaxTxs {
		s.pace.Wait()
		var page struct {
			Txs []fcdTx `json:"txs"`
		}
		url := fmt.Sprintf("%s/v1/txs?account=%s&limit=%d&offset=%d", chain.API, address, fcdPageSize, offset)
		if err := jwget(s.client, url, nil, &page); err != nil {
			if fetched == 0 {
				return nil, fmt.Errorf("cannot read %s transactions: %w", chain.Name, err)
			}
			s.log.Warn().Err(err).Int("fetched", fetched).Msg("pagination interrupted, keeping partial history")
			break
		}
		if len(page.Txs) == 0 {
			break
		}
		for _, tx := range page.Txs {
			out = append(out, s.parseTx(tx, addr, chain)...)
		}
		fetched += len(page.Txs)
		offset += fcdPageSize
	}
	s.log.Info().Int("raw", fetched).Int("records", len(out)).Msg("terra history scanned")
	return out, nil
}

// parseTx expands one chain transaction into canonical records: one per
// transfer leg touching the wallet, one per (un)delegation, and one fee row.
// Failed transactions moved nothing and are skipped entirely.
func (s *CosmosScanner) parseTx(tx fcdTx, addr string, chain cosmosChain) []Transaction {
	if tx.Code != 0 {
		return nil
	}
	when, err := time.Parse(time.RFC3339, tx.Timestamp)
	if err != nil {
		when = time.Now()
	}
	ms := when.UnixMilli()
	source := "wallet_" + addr

	var out []Transaction
	leg := 0
	sourceID := func() string {
		leg++
		if leg == 1 {
			return tx.TxHash
		}
		return fmt.Sprintf("%s_%d", tx.TxHash, leg-1)
	}

	for _, msg := range tx.Tx.Body.Messages {
		switch {
		case strings.Contains(msg.Type, "MsgSend"):
			outgoing := strings.ToLower(msg.FromAddress) == addr
			incoming := strings.ToLower(msg.ToAddress) == addr
			if !outgoing && !incoming {
				continue
			}
			for _, c := range msg.Amounts {
				info, ok := chain.ValidDenoms[c.Denom]
				if !ok {
					continue
				}
				amount := shiftCoin(c.Amount, info.Decimals)
				if !amount.IsPositive() {
					continue
				}
				rec := Transaction{
					Source: source, SourceID: sourceID(), Timestamp: ms,
					Wallet: addr, Chain: chain.ChainKey,
				}
				if outgoing {
					rec.Type = TxWithdrawal
					rec.CoinOut = info.Symbol
					rec.AmountOut = amount
					rec.Notes = "Send"
				} else {
					rec.Type = TxDeposit
					rec.CoinIn = info.Symbol
					rec.AmountIn = amount
					rec.Notes = "Receive"
				}
				out = append(out, NewTransaction(rec))
			}

		case strings.Contains(msg.Type, "MsgUndelegate"):
			if rec, ok := stakingLeg(msg, chain, false); ok {
				rec.Source, rec.SourceID, rec.Timestamp = source, sourceID(), ms
				rec.Wallet, rec.Chain = addr, chain.ChainKey
				out = append(out, NewTransaction(rec))
			}

		case strings.Contains(msg.Type, "MsgDelegate"):
			if rec, ok := stakingLeg(msg, chain, true); ok {
				rec.Source, rec.SourceID, rec.Timestamp = source, sourceID(), ms
				rec.Wallet, rec.Chain = addr, chain.ChainKey
				out = append(out, NewTransaction(rec))
			}
		}
	}

	for _, c := range tx.Tx.AuthInfo.Fee.Amount {
		info, ok := chain.ValidDenoms[c.Denom]
		if !ok {
			continue
		}
		fee := shiftCoin(c.Amount, info.Decimals)
		if !fee.IsPositive() {
			continue
		}
		out = append(out, NewTransaction(Transaction{
			Source: source, SourceID: tx.TxHash + "_fee", Timestamp: ms,
			Type:    TxFee,
			CoinOut: info.Symbol, AmountOut: fee,
			FeeCoin: info.Symbol, FeeAmount: fee,
			Wallet: addr, Chain: chain.ChainKey, Notes: "Transaction Fee",
		}))
	}
	return out
}

// stakingLeg builds the movement half of a (un)delegation: delegating locks
// coins away (outgoing), undelegating returns them (incoming).
func stakingLeg(msg fcdMsg, chain cosmosChain, delegate bool) (Transaction, bool) {
	if msg.Amount == nil {
		return Transaction{}, false
	}
	info, ok := chain.ValidDenoms[msg.Amount.Denom]
	if !ok {
		return Transaction{}, false
	}
	amount := shiftCoin(msg.Amount.Amount, info.Decimals)
	if !amount.IsPositive() {
		return Transaction{}, false
	}
	rec := Transaction{Type: TxStaking}
	if delegate {
		rec.CoinOut = info.Symbol
		rec.AmountOut = amount
		rec.Notes = "Delegate (Staking)"
	} else {
		rec.CoinIn = info.Symbol
		rec.AmountIn = amount
		rec.Notes = "Undelegate (Unstaking)"
	}
	return rec, true
}

func shiftCoin(amount string, decimals int32) decimal.Decimal {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero
	}
	return d.Shift(-decimals)
}
