package cryptofolio

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Scanner reads one family of on-chain wallets and reports holdings and
// movements in canonical form. Implementations never write to the ledger;
// the ScanService owns storage so every scanner benefits from the same
// dedup, filtering and persistence.
type Scanner interface {
	Family() ChainFamily
	ScanBalances(address string) ([]Balance, error)
	ScanTransactions(address string) ([]Transaction, error)
}

// Scan failures callers may want to distinguish.
var (
	ErrUnknownAddress = errors.New("unrecognized address format")
	ErrNoAPIKey       = errors.New("no api key configured")
)

// ScanOutcome summarizes one wallet's scan.
type ScanOutcome struct {
	Address      string
	Family       ChainFamily
	Balances     int
	Transactions int // newly added, not offered
	Filtered     int // balances dropped by the token policy
	Err          error
}

// ScanService routes wallet scans to the scanner matching the address
// family, filters results through the token policy, and records what
// survives. Rescanning is idempotent: records whose (source, sourceId) are
// already stored count as zero new transactions.
type ScanService struct {
	ledger   *Ledger
	policy   *TokenPolicy
	prices   *PriceService
	scanners map[ChainFamily]Scanner
	log      zerolog.Logger
}

// NewScanService returns a service with no scanners registered.
func NewScanService(ledger *Ledger, policy *TokenPolicy, prices *PriceService, log zerolog.Logger) *ScanService {
	return &ScanService{
		ledger:   ledger,
		policy:   policy,
		prices:   prices,
		scanners: make(map[ChainFamily]Scanner),
		log:      log.With().Str("component", "scan").Logger(),
	}
}

// Register adds a scanner, replacing any previous one for its family.
func (s *ScanService) Register(sc Scanner) { s.scanners[sc.Family()] = sc }

// Scan runs a full scan (balances then transactions) for one address.
// Partial failure is not fatal: whatever a scanner did return is stored and
// the error is reported in the outcome.
func (s *ScanService) Scan(address string) ScanOutcome {
	out := ScanOutcome{Address: address, Family: DetectChainFamily(address)}
	sc, ok := s.scanners[out.Family]
	if !ok {
		out.Err = fmt.Errorf("%w: %s", ErrUnknownAddress, address)
		return out
	}
	s.log.Info().Str("address", address).Str("family", string(out.Family)).Msg("scanning wallet")

	balances, err := sc.ScanBalances(address)
	if err != nil {
		out.Err = err
	}
	for _, b := range balances {
		if b.PriceEUR.IsZero() {
			b.PriceEUR = s.prices.Price(b.Coin)
			b.ValueEUR = b.Amount.Mul(b.PriceEUR)
		}
		if v := s.policy.Check(Token{Name: b.Coin, Symbol: b.Coin, Amount: b.Amount, PriceEUR: b.PriceEUR}); !v.Accept {
			s.log.Debug().Str("coin", b.Coin).Str("reason", v.Reason).Msg("balance filtered")
			out.Filtered++
			continue
		}
		s.ledger.UpdateBalance(b)
		out.Balances++
	}

	txs, err := sc.ScanTransactions(address)
	if err != nil && out.Err == nil {
		out.Err = err
	}
	out.Transactions = s.ledger.AddTransactions(txs)

	s.log.Info().
		Str("address", address).
		Int("balances", out.Balances).
		Int("newTransactions", out.Transactions).
		Int("filtered", out.Filtered).
		Msg("wallet scanned")
	return out
}

// ScanAll scans every tracked wallet sequentially.
func (s *ScanService) ScanAll() []ScanOutcome {
	wallets := s.ledger.Wallets()
	outcomes := make([]ScanOutcome, 0, len(wallets))
	for _, w := range wallets {
		outcomes = append(outcomes, s.Scan(w.Address))
	}
	return outcomes
}
