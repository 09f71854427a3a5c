package cryptofolio

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	heliusBase = "https://api.helius.xyz/v0"
	heliusRPC  = "https://mainnet.helius-rpc.com"
)

// solanaToken names a known SPL mint. The DAS metadata for these mints is
// sometimes missing or wrong, so the table wins over whatever the API says.
type solanaToken struct {
	Symbol   string
	Name     string
	Decimals int32
}

var knownSolanaTokens = map[string]solanaToken{
	"So11111111111111111111111111111111111111112":  {Symbol: "SOL", Name: "Solana", Decimals: 9},
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": {Symbol: "USDC", Name: "USD Coin", Decimals: 6},
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": {Symbol: "USDT", Name: "Tether USD", Decimals: 6},
	"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": {Symbol: "BONK", Name: "Bonk", Decimals: 5},
	"JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN":  {Symbol: "JUP", Name: "Jupiter", Decimals: 6},
	"EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm": {Symbol: "WIF", Name: "dogwifhat", Decimals: 6},
	"rndrizKT3MK1iimdxRdWabcF7Zg7AR5T4nud4EkHBof":  {Symbol: "RENDER", Name: "Render Token", Decimals: 8},
	"HZ1JovNiVvGrGNiiYvEozEVgZ58xaU3RKwX8eACQBCt3": {Symbol: "PYTH", Name: "Pyth Network", Decimals: 6},
	"7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs": {Symbol: "ETH", Name: "Wrapped Ether (Wormhole)", Decimals: 8},
	"3NZ9JMVBmGAqocybic2c7LQCJScmgsAZ6vQqTDzcqmJh": {Symbol: "WBTC", Name: "Wrapped BTC (Wormhole)", Decimals: 8},
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So":  {Symbol: "MSOL", Name: "Marinade staked SOL", Decimals: 9},
	"J1toso1uCk3RLmjorhTtrVwY9HJ7X8V9yYac6Y7kGCPn": {Symbol: "JITOSOL", Name: "Jito Staked SOL", Decimals: 9},
	"bSo13r4TkiE4KumL71LsHTPpL2euBYLFx6h9HP3piy1":  {Symbol: "BSOL", Name: "BlazeStake Staked SOL", Decimals: 9},
	"7dHbWXmci3dT8UFYWYZweBLXgycu7Y3iL6trKn1Y7ARj": {Symbol: "STSOL", Name: "Lido Staked SOL", Decimals: 9},
	"orcaEKTdK7LKz57vaAYr9QeNsVEPfiu6QeMU1kektZE":  {Symbol: "ORCA", Name: "Orca", Decimals: 6},
	"RaijcLrq6R4V4eXddhY7CbUDfJR1qMJhpwBPNsXQfrJ":  {Symbol: "RAY", Name: "Raydium", Decimals: 6},
	"SRMuApVNdxXokk5GT7XD5cUUgXMBCoAz2LHeuAoKWRt":  {Symbol: "SRM", Name: "Serum", Decimals: 6},
	"MNDEFzGvMt87ueuHvVU9VcTqsAP5b3fTGPsHuuPA5ey":  {Symbol: "MNDE", Name: "Marinade", Decimals: 9},
	"MEW1gQWJ3nEXg2qgERiKu7FAFj79PHvQVREQUzScPP5":  {Symbol: "MEW", Name: "cat in a dogs world", Decimals: 5},
	"ukHH6c7mMyiWCf1b9pnWe25TSpkDDt3H5pQZgZ74J82":  {Symbol: "BOME", Name: "BOOK OF MEME", Decimals: 6},
	"5z3EqYQo9HiCEs3R84RCDMu2n4DKWu2JB9xwkdM4pEUa": {Symbol: "POPCAT", Name: "Popcat", Decimals: 9},
}

// SolanaScanner reads Solana wallets through the Helius API: native balance
// over JSON-RPC, SPL holdings through the DAS asset walk with a plain
// balances endpoint as fallback, and enhanced transactions for history.
type SolanaScanner struct {
	client httpDoer
	keys   *KeyPool
	policy *TokenPolicy
	pace   *pacer
	log    zerolog.Logger
}

func NewSolanaScanner(client httpDoer, keys *KeyPool, policy *TokenPolicy, log zerolog.Logger) *SolanaScanner {
	return &SolanaScanner{
		client: client,
		keys:   keys,
		policy: policy,
		pace:   newPacer(500 * time.Millisecond),
		log:    log.With().Str("component", "solana").Logger(),
	}
}

func (s *SolanaScanner) Family() ChainFamily { return FamilySolana }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

func (s *SolanaScanner) rpc(method string, params any, result any) error {
	key, err := s.keys.Current()
	if err != nil {
		return ErrNoAPIKey
	}
	url := fmt.Sprintf("%s/?api-key=%s", heliusRPC, key)
	return jwpost(s.client, url, rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}, result)
}

// ScanBalances reads the native SOL balance and every fungible SPL holding.
func (s *SolanaScanner) ScanBalances(address string) ([]Balance, error) {
	source := "wallet_" + address
	var out []Balance

	var native struct {
		Result struct {
			Value int64 `json:"value"`
		} `json:"result"`
	}
	if err := s.rpc("getBalance", []any{address}, &native); err != nil {
		return nil, fmt.Errorf("cannot read SOL balance: %w", err)
	}
	if native.Result.Value > 0 {
		out = append(out, NewBalance(Balance{
			Coin:   "SOL",
			Amount: decimal.NewFromInt(native.Result.Value).Shift(-9), // lamports
			Source: source,
			Chain:  "sol",
		}))
	}

	s.pace.Wait()
	var assets struct {
		Result struct {
			Items []struct {
				ID        string `json:"id"`
				Interface string `json:"interface"`
				TokenInfo struct {
					Balance  int64  `json:"balance"`
					Decimals int32  `json:"decimals"`
					Symbol   string `json:"symbol"`
				} `json:"token_info"`
				Content struct {
					Metadata struct {
						Name   string `json:"name"`
						Symbol string `json:"symbol"`
					} `json:"metadata"`
				} `json:"content"`
			} `json:"items"`
		} `json:"result"`
	}
	params := map[string]any{
		"ownerAddress": address,
		"page":         1,
		"limit":        1000,
		"displayOptions": map[string]any{
			"showFungible":      true,
			"showNativeBalance": true,
		},
	}
	if err := s.rpc("getAssetsByOwner", params, &assets); err != nil {
		s.log.Error().Err(err).Msg("asset walk failed")
		return out, err
	}
	for _, a := range assets.Result.Items {
		if a.Interface != "FungibleToken" && a.Interface != "FungibleAsset" {
			continue
		}
		decimals := a.TokenInfo.Decimals
		if decimals == 0 {
			decimals = 9
		}
		amount := decimal.NewFromInt(a.TokenInfo.Balance).Shift(-decimals)
		if !amount.IsPositive() {
			continue
		}
		symbol, name := a.TokenInfo.Symbol, a.Content.Metadata.Name
		if known, ok := knownSolanaTokens[a.ID]; ok {
			symbol, name = known.Symbol, known.Name
			amount = decimal.NewFromInt(a.TokenInfo.Balance).Shift(-known.Decimals)
		}
		if symbol == "" {
			symbol = a.Content.Metadata.Symbol
		}
		if symbol == "" {
			symbol = "UNKNOWN"
		}
		if v := s.policy.QuickCheck(name, symbol); !v.Accept {
			s.log.Debug().Str("symbol", symbol).Str("reason", v.Reason).Msg("token filtered")
			continue
		}
		out = append(out, NewBalance(Balance{
			Coin: strings.ToUpper(symbol), Amount: amount, Source: source, Chain: "sol",
		}))
	}

	// the DAS walk sometimes misses SPL accounts; the flat balances endpoint
	// fills the gap
	if len(out) <= 1 {
		more, err := s.scanBalancesFallback(address, source, out)
		if err == nil {
			out = more
		}
	}
	return out, nil
}

func (s *SolanaScanner) scanBalancesFallback(address, source string, have []Balance) ([]Balance, error) {
	key, err := s.keys.Current()
	if err != nil {
		return have, ErrNoAPIKey
	}
	s.pace.Wait()
	var resp struct {
		Tokens []struct {
			Mint     string `json:"mint"`
			Amount   int64  `json:"amount"`
			Decimals int32  `json:"decimals"`
		} `json:"tokens"`
	}
	url := fmt.Sprintf("%s/addresses/%s/balances?api-key=%s", heliusBase, address, key)
	if err := jwget(s.client, url, nil, &resp); err != nil {
		return have, err
	}
	for _, t := range resp.Tokens {
		known, ok := knownSolanaTokens[t.Mint]
		if !ok {
			// unnamed mints here are overwhelmingly spam
			continue
		}
		amount := decimal.NewFromInt(t.Amount).Shift(-known.Decimals)
		if !amount.IsPositive() {
			continue
		}
		duplicate := false
		for _, b := range have {
			if b.Coin == known.Symbol {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		have = append(have, NewBalance(Balance{
			Coin: known.Symbol, Amount: amount, Source: source, Chain: "sol",
		}))
	}
	return have, nil
}

// ScanTransactions reads the enhanced transaction history: every token and
// native transfer touching the wallet becomes a deposit or withdrawal,
// keyed by signature and leg index.
func (s *SolanaScanner) ScanTransactions(address string) ([]Transaction, error) {
	key, err := s.keys.Current()
	if err != nil {
		return nil, ErrNoAPIKey
	}
	var txs []struct {
		Signature      string `json:"signature"`
		Timestamp      int64  `json:"timestamp"` // epoch seconds
		Fee            int64  `json:"fee"`       // lamports
		TokenTransfers []struct {
			Mint            string          `json:"mint"`
			FromUserAccount string          `json:"fromUserAccount"`
			ToUserAccount   string          `json:"toUserAccount"`
			TokenAmount     decimal.Decimal `json:"tokenAmount"`
		} `json:"tokenTransfers"`
		NativeTransfers []struct {
			FromUserAccount string `json:"fromUserAccount"`
			ToUserAccount   string `json:"toUserAccount"`
			Amount          int64  `json:"amount"` // lamports
		} `json:"nativeTransfers"`
	}
	url := fmt.Sprintf("%s/addresses/%s/transactions?api-key=%s&limit=100", heliusBase, address, key)
	if err := jwget(s.client, url, nil, &txs); err != nil {
		return nil, fmt.Errorf("cannot read transactions: %w", err)
	}

	source := "wallet_" + address
	var out []Transaction
	for _, tx := range txs {
		ms := tx.Timestamp * 1000
		leg := 0
		sourceID := func() string {
			leg++
			if leg == 1 {
				return tx.Signature
			}
			return fmt.Sprintf("%s_%d", tx.Signature, leg-1)
		}

		for _, tr := range tx.TokenTransfers {
			if !tr.TokenAmount.IsPositive() {
				continue
			}
			symbol := "UNKNOWN"
			if known, ok := knownSolanaTokens[tr.Mint]; ok {
				symbol = known.Symbol
			}
			incoming := strings.EqualFold(tr.ToUserAccount, address)
			outgoing := strings.EqualFold(tr.FromUserAccount, address)
			if !incoming && !outgoing {
				continue
			}
			rec := Transaction{
				Source: source, SourceID: sourceID(), Timestamp: ms,
				Wallet: address, Chain: "sol",
			}
			if incoming {
				rec.Type = TxDeposit
				rec.CoinIn = symbol
				rec.AmountIn = tr.TokenAmount
			} else {
				rec.Type = TxWithdrawal
				rec.CoinOut = symbol
				rec.AmountOut = tr.TokenAmount
			}
			out = append(out, NewTransaction(rec))
		}

		for _, tr := range tx.NativeTransfers {
			amount := decimal.NewFromInt(tr.Amount).Shift(-9)
			if !amount.IsPositive() {
				continue
			}
			incoming := strings.EqualFold(tr.ToUserAccount, address)
			outgoing := strings.EqualFold(tr.FromUserAccount, address)
			if !incoming && !outgoing {
				continue
			}
			rec := Transaction{
				Source: source, SourceID: sourceID(), Timestamp: ms,
				Wallet: address, Chain: "sol",
			}
			if incoming {
				rec.Type = TxDeposit
				rec.CoinIn = "SOL"
				rec.AmountIn = amount
			} else {
				rec.Type = TxWithdrawal
				rec.CoinOut = "SOL"
				rec.AmountOut = amount
				rec.FeeCoin = "SOL"
				rec.FeeAmount = decimal.NewFromInt(tx.Fee).Shift(-9)
			}
			out = append(out, NewTransaction(rec))
		}
	}
	s.log.Info().Int("raw", len(txs)).Int("records", len(out)).Msg("solana history scanned")
	return out, nil
}
