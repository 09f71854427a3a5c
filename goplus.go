package cryptofolio

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SecurityChecker asks the GoPlus token security API whether an EVM contract
// is a known honeypot or blacklisted token. It is an extra layer behind the
// static TokenPolicy checks and fails OPEN: when the API is unreachable or
// does not know the contract, the token is treated as clean. Filtering must
// never depend on a third-party being up.
type SecurityChecker struct {
	client httpDoer
	pace   *pacer
	log    zerolog.Logger

	mu    sync.Mutex
	cache map[string]securityEntry
	ttl   time.Duration

	now func() time.Time
}

type securityEntry struct {
	risky   bool
	reason  string
	fetched time.Time
}

const goplusBase = "https://api.gopluslabs.io/api/v1/token_security"

// NewSecurityChecker returns a checker with a 24h per-contract verdict cache.
func NewSecurityChecker(client httpDoer, log zerolog.Logger) *SecurityChecker {
	return &SecurityChecker{
		client: client,
		pace:   newPacer(time.Second),
		log:    log.With().Str("component", "security").Logger(),
		cache:  make(map[string]securityEntry),
		ttl:    24 * time.Hour,
		now:    time.Now,
	}
}

// IsRisky reports whether the contract is flagged by the security API, with
// the flag that triggered. chainID is the EVM numeric chain id as a string.
func (c *SecurityChecker) IsRisky(chainID, contract string) (bool, string) {
	contract = strings.ToLower(contract)
	key := chainID + ":" + contract

	c.mu.Lock()
	if e, ok := c.cache[key]; ok && c.now().Sub(e.fetched) < c.ttl {
		c.mu.Unlock()
		return e.risky, e.reason
	}
	c.mu.Unlock()

	c.pace.Wait()
	addr := fmt.Sprintf("%s/%s?contract_addresses=%s", goplusBase, chainID, contract)
	var jobj any
	if err := jwget(c.client, addr, nil, &jobj); err != nil {
		c.log.Warn().Err(err).Str("contract", contract).Msg("security check unavailable, passing token")
		return false, ""
	}

	risky, reason := c.judge(jobj, contract)
	c.mu.Lock()
	c.cache[key] = securityEntry{risky: risky, reason: reason, fetched: c.now()}
	c.mu.Unlock()
	return risky, reason
}

// riskFlags are the response fields that individually condemn a contract.
var riskFlags = []string{"is_honeypot", "is_blacklisted", "cannot_sell_all", "is_fake_token"}

func (c *SecurityChecker) judge(jobj any, contract string) (bool, string) {
	for _, flag := range riskFlags {
		path := fmt.Sprintf("$.result[%q].%s", contract, flag)
		v, err := jqfloat(jobj, path)
		if err != nil {
			// flag absent for this contract: not evidence of risk
			continue
		}
		if v == 1 {
			return true, flag
		}
	}
	return false, ""
}
