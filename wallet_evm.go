package cryptofolio

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const moralisBase = "https://deep-index.moralis.io/api/v2.2"

// evmChain describes one EVM network Moralis can scan.
type evmChain struct {
	HexID  string // Moralis chain parameter
	DecID  string // decimal chain id, for the security API
	Symbol string // native coin ticker
}

// evmChains are the scannable EVM networks, keyed by the short chain name
// stored in the ledger's selected-chain list.
var evmChains = map[string]evmChain{
	"eth":       {HexID: "0x1", DecID: "1", Symbol: "ETH"},
	"bsc":       {HexID: "0x38", DecID: "56", Symbol: "BNB"},
	"polygon":   {HexID: "0x89", DecID: "137", Symbol: "MATIC"},
	"arbitrum":  {HexID: "0xa4b1", DecID: "42161", Symbol: "ETH"},
	"base":      {HexID: "0x2105", DecID: "8453", Symbol: "ETH"},
	"avalanche": {HexID: "0xa86a", DecID: "43114", Symbol: "AVAX"},
	"fantom":    {HexID: "0xfa", DecID: "250", Symbol: "FTM"},
	"cronos":    {HexID: "0x19", DecID: "25", Symbol: "CRO"},
}

// SupportedEVMChains lists the scannable chain names, sorted.
func SupportedEVMChains() []string {
	names := make([]string, 0, len(evmChains))
	for name := range evmChains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// evmNativeDust is the minimum native balance worth recording. Gas dust
// below it is noise on every chain.
var evmNativeDust = decimal.RequireFromString("0.0001")

// EVMScanner reads EVM wallets through the Moralis API across a configured
// set of chains, rotating API keys on rate limits.
type EVMScanner struct {
	client   httpDoer
	keys     *KeyPool
	chains   []string
	policy   *TokenPolicy
	security *SecurityChecker // optional contract-level screening
	pace     *pacer
	log      zerolog.Logger
}

// NewEVMScanner scans the given chains (all known ones when empty).
func NewEVMScanner(client httpDoer, keys *KeyPool, chains []string, policy *TokenPolicy, log zerolog.Logger) *EVMScanner {
	if len(chains) == 0 {
		for name := range evmChains {
			chains = append(chains, name)
		}
	}
	return &EVMScanner{
		client: client,
		keys:   keys,
		chains: chains,
		policy: policy,
		pace:   newPacer(500 * time.Millisecond),
		log:    log.With().Str("component", "evm").Logger(),
	}
}

func (s *EVMScanner) Family() ChainFamily { return FamilyEVM }

// UseSecurity adds contract-level screening of ERC-20 holdings. Contracts the
// checker flags are blacklisted in the policy and skipped.
func (s *EVMScanner) UseSecurity(c *SecurityChecker) { s.security = c }

// getJSON fetches a Moralis endpoint, rotating to the next API key on a 429
// until the pool is exhausted.
func (s *EVMScanner) getJSON(url string, data any) error {
	if s.keys.Len() == 0 {
		return ErrNoAPIKey
	}
	var lastErr error
	for attempt := 0; attempt < s.keys.Len(); attempt++ {
		key, err := s.keys.Current()
		if err != nil {
			return err
		}
		err = jwget(s.client, url, map[string]string{"X-API-Key": key}, data)
		if err == nil {
			return nil
		}
		if isRateLimited(err) {
			s.log.Warn().Int("attempt", attempt+1).Msg("rate limited, rotating api key")
			s.keys.Rotate()
			lastErr = err
			continue
		}
		return err
	}
	return fmt.Errorf("%w: %v", ErrKeysExhausted, lastErr)
}

// ScanBalances reads the native balance and ERC-20 holdings on every
// configured chain. A chain that errors is skipped; the others still report.
func (s *EVMScanner) ScanBalances(address string) ([]Balance, error) {
	addr := strings.ToLower(address)
	source := "wallet_" + addr
	var out []Balance
	var firstErr error

	for _, chainKey := range s.chains {
		chain, ok := evmChains[chainKey]
		if !ok {
			continue
		}
		s.pace.Wait()

		var native struct {
			Balance string `json:"balance"`
		}
		url := fmt.Sprintf("%s/%s/balance?chain=%s", moralisBase, address, chain.HexID)
		if err := s.getJSON(url, &native); err != nil {
			s.log.Error().Err(err).Str("chain", chainKey).Msg("native balance fetch failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if wei, err := decimal.NewFromString(native.Balance); err == nil {
			amount := wei.Shift(-18)
			if amount.GreaterThan(evmNativeDust) {
				out = append(out, NewBalance(Balance{
					Coin: chain.Symbol, Amount: amount, Source: source, Chain: chainKey,
				}))
			}
		}

		var tokens []struct {
			Symbol   string `json:"symbol"`
			Name     string `json:"name"`
			Balance  string `json:"balance"`
			Decimals int    `json:"decimals"`
			Address  string `json:"token_address"`
		}
		url = fmt.Sprintf("%s/%s/erc20?chain=%s", moralisBase, address, chain.HexID)
		if err := s.getJSON(url, &tokens); err != nil {
			s.log.Error().Err(err).Str("chain", chainKey).Msg("token balance fetch failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, t := range tokens {
			raw, err := decimal.NewFromString(t.Balance)
			if err != nil || raw.IsZero() {
				continue
			}
			dec := t.Decimals
			if dec == 0 {
				dec = 18
			}
			symbol := t.Symbol
			if symbol == "" {
				symbol = "UNKNOWN"
			}
			if v := s.policy.QuickCheck(t.Name, symbol); !v.Accept {
				s.log.Debug().Str("symbol", symbol).Str("reason", v.Reason).Msg("token filtered")
				continue
			}
			if s.security != nil && !s.policy.IsWhitelisted(symbol) {
				if risky, flag := s.security.IsRisky(chain.DecID, t.Address); risky {
					s.log.Warn().Str("symbol", symbol).Str("flag", flag).Msg("contract flagged, blacklisting")
					s.policy.Blacklist(t.Address)
					continue
				}
			}
			out = append(out, NewBalance(Balance{
				Coin: strings.ToUpper(symbol), Amount: raw.Shift(int32(-dec)), Source: source, Chain: chainKey,
			}))
		}
	}
	return out, firstErr
}

// ScanTransactions reads native and ERC-20 transfers on every configured
// chain. Native rows carry the gas fee; ERC-20 rows are keyed by transaction
// hash and log index so several transfers in one transaction stay distinct.
func (s *EVMScanner) ScanTransactions(address string) ([]Transaction, error) {
	addr := strings.ToLower(address)
	source := "wallet_" + addr
	var out []Transaction
	var firstErr error

	for _, chainKey := range s.chains {
		chain, ok := evmChains[chainKey]
		if !ok {
			continue
		}
		s.pace.Wait()

		var native struct {
			Result []struct {
				Hash           string `json:"hash"`
				BlockTimestamp string `json:"block_timestamp"`
				FromAddress    string `json:"from_address"`
				ToAddress      string `json:"to_address"`
				Value          string `json:"value"`
				Gas            string `json:"gas"`
				GasPrice       string `json:"gas_price"`
			} `json:"result"`
		}
		url := fmt.Sprintf("%s/%s?chain=%s&limit=100", moralisBase, address, chain.HexID)
		if err := s.getJSON(url, &native); err != nil {
			s.log.Error().Err(err).Str("chain", chainKey).Msg("native tx fetch failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, tx := range native.Result {
			value, err := decimal.NewFromString(tx.Value)
			if err != nil || value.IsZero() {
				continue
			}
			amount := value.Shift(-18)
			when, err := time.Parse(time.RFC3339, tx.BlockTimestamp)
			if err != nil {
				continue
			}
			incoming := strings.EqualFold(tx.ToAddress, addr)
			rec := Transaction{
				Source:    source,
				SourceID:  tx.Hash,
				Timestamp: when.UnixMilli(),
				Wallet:    addr,
				Chain:     chainKey,
				FeeCoin:   chain.Symbol,
				FeeAmount: gasFee(tx.Gas, tx.GasPrice),
			}
			if incoming {
				rec.Type = TxDeposit
				rec.CoinIn = chain.Symbol
				rec.AmountIn = amount
			} else {
				rec.Type = TxWithdrawal
				rec.CoinOut = chain.Symbol
				rec.AmountOut = amount
			}
			out = append(out, NewTransaction(rec))
		}

		var transfers struct {
			Result []struct {
				TransactionHash string `json:"transaction_hash"`
				LogIndex        int    `json:"log_index"`
				BlockTimestamp  string `json:"block_timestamp"`
				FromAddress     string `json:"from_address"`
				ToAddress       string `json:"to_address"`
				Value           string `json:"value"`
				TokenSymbol     string `json:"token_symbol"`
				TokenName       string `json:"token_name"`
				TokenDecimals   string `json:"token_decimals"`
			} `json:"result"`
		}
		url = fmt.Sprintf("%s/%s/erc20/transfers?chain=%s&limit=100", moralisBase, address, chain.HexID)
		if err := s.getJSON(url, &transfers); err != nil {
			s.log.Error().Err(err).Str("chain", chainKey).Msg("token transfer fetch failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, tx := range transfers.Result {
			raw, err := decimal.NewFromString(tx.Value)
			if err != nil || raw.IsZero() {
				continue
			}
			dec := 18
			if d, err := decimal.NewFromString(tx.TokenDecimals); err == nil && d.IsPositive() {
				dec = int(d.IntPart())
			}
			amount := raw.Shift(int32(-dec))
			when, err := time.Parse(time.RFC3339, tx.BlockTimestamp)
			if err != nil {
				continue
			}
			symbol := strings.ToUpper(tx.TokenSymbol)
			if symbol == "" {
				symbol = "UNKNOWN"
			}
			if v := s.policy.QuickCheck(tx.TokenName, symbol); !v.Accept {
				continue
			}
			incoming := strings.EqualFold(tx.ToAddress, addr)
			rec := Transaction{
				Source:    source,
				SourceID:  fmt.Sprintf("%s_%d", tx.TransactionHash, tx.LogIndex),
				Timestamp: when.UnixMilli(),
				Wallet:    addr,
				Chain:     chainKey,
			}
			if incoming {
				rec.Type = TxDeposit
				rec.CoinIn = symbol
				rec.AmountIn = amount
			} else {
				rec.Type = TxWithdrawal
				rec.CoinOut = symbol
				rec.AmountOut = amount
			}
			out = append(out, NewTransaction(rec))
		}
	}
	return out, firstErr
}

// gasFee computes gas * gasPrice in native units.
func gasFee(gas, gasPrice string) decimal.Decimal {
	g, err := decimal.NewFromString(gas)
	if err != nil {
		return decimal.Zero
	}
	p, err := decimal.NewFromString(gasPrice)
	if err != nil {
		return decimal.Zero
	}
	return g.Mul(p).Shift(-18)
}
