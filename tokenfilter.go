package cryptofolio

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// spamPatterns are lowercase substrings whose presence in a token name or
// symbol marks it as spam. Airdropped scam tokens advertise URLs, fake
// rewards and urgency in their metadata; genuine projects do not.
var spamPatterns = []string{
	// urls and domains
	".com", ".org", ".io", ".xyz", ".net", ".co", ".me", ".app",
	"http", "www.", "://",
	// bait verbs
	"visit", "claim", "reward", "airdrop", "bonus", "free", "gift",
	"redeem", "collect", "activate", "unlock", "swap here",
	// phishing vocabulary
	"voucher", "ticket", "points", "winner", "prize", "lottery",
	"giveaway", "promo", "promotional",
	// fake version suffixes
	"v2.0", "v3.0", "2.0", "3.0", "new ", " new", "upgraded",
	// symbols real tickers never carry
	"$", "#", "!", "?", "*", "→", "⇒", "»",
	// urgency
	"urgent", "limited", "hurry", "fast", "quick", "instant",
	"expire", "expiring", "deadline",
	// celebrity and multiplier scams
	"elon", "musk", "bezos", "zuck", "trump",
	"double", "triple", "10x", "100x", "1000x",
	// prize-notification phrasing
	"congratulation", "selected", "eligible", "qualified",
	// honeypot slang
	"safu", "safe ", " safe", "rug", "moon", "pump",
}

// whitelistSymbols are symbols that bypass the pattern checks entirely. The
// whitelist is checked before any pattern so that ELON the meme coin or
// tokens whose names happen to contain "moon" survive the filter.
var whitelistSymbols = []string{
	// top market cap
	"BTC", "ETH", "BNB", "SOL", "XRP", "ADA", "AVAX", "DOGE", "DOT", "LINK",
	"MATIC", "POL", "LTC", "SHIB", "TRX", "ATOM", "UNI", "XLM", "NEAR", "APT",
	"FIL", "ARB", "OP", "VET", "HBAR", "ALGO", "ICP", "GRT", "FTM", "AAVE",
	"EOS", "MKR", "SAND", "AXS", "MANA", "THETA", "XTZ", "EGLD", "FLOW", "CHZ",
	"KCS", "NEO", "KAVA", "MINA", "XDC", "IOTA", "ZEC", "DASH", "ENJ", "BAT",
	// stablecoins
	"USDT", "USDC", "DAI", "BUSD", "TUSD", "FRAX", "FDUSD", "PYUSD", "GUSD",
	"LUSD", "CRVUSD", "GHO", "USDD", "UST", "USTC", "MAI", "MIMATIC", "USDP",
	// wrapped and liquid staking
	"WETH", "WBTC", "WBNB", "WMATIC", "WAVAX", "WFTM", "WCRO", "WPLS",
	"STETH", "RETH", "CBETH", "WSTETH", "FRXETH", "SFRXETH",
	"MSOL", "JITOSOL", "BSOL", "STSOL",
	// defi
	"CRV", "CVX", "COMP", "SNX", "SUSHI", "1INCH", "CAKE", "LDO", "RPL",
	"FXS", "PENDLE", "GMX", "DYDX", "JOE", "SPELL", "YFI", "BAL", "LQTY",
	// layer 2 and scaling
	"IMX", "LRC", "ZK", "STRK", "MANTA", "METIS", "BOBA", "CELO", "GLMR",
	"MOVR", "SKL", "CTSI", "SYN",
	// exchange tokens
	"CRO", "OKB", "BGB", "GT", "HT", "LEO", "FTT", "MX", "WOO",
	// established meme coins
	"PEPE", "FLOKI", "BONK", "WIF", "BRETT", "POPCAT", "NEIRO", "TURBO",
	"COQ", "DEGEN", "TOSHI", "MEME", "LADYS", "MILADY", "WOJAK",
	"BABYDOGE", "ELON", "KISHU", "HOGE", "BONE", "LEASH",
	// ai and data
	"FET", "AGIX", "OCEAN", "RNDR", "RENDER", "TAO", "WLD", "ARKM", "AKT",
	// gaming and metaverse
	"GALA", "ILV", "PRIME", "MAGIC", "YGG", "PIXEL", "MAVIA", "BEAM",
	"BIGTIME", "GODS", "PYR", "REVV", "GHST", "ALICE", "TLM", "SUPER",
	// oracle and infrastructure
	"API3", "BAND", "TRB", "UMA", "REQ", "COTI", "CELR", "ANKR", "STORJ",
	// pulsechain
	"PLS", "PLSX", "HEX", "INC", "LOAN", "MINT", "PHIAT", "SPARK", "EHEX",
	// blackfort
	"BXN", "WBXN",
	// cosmos ecosystem
	"OSMO", "JUNO", "SCRT", "INJ", "SEI", "TIA", "DYM", "KUJI", "NTRN",
	"LUNA", "LUNC",
	// solana ecosystem
	"RAY", "ORCA", "MNDE", "SRM", "STEP", "SLND", "TULIP", "SHDW", "DUST",
	"JUP", "PYTH", "JTO", "TENSOR",
	// other established
	"MASK", "ENS", "RSS3", "ID", "BLUR", "X2Y2", "LOOKS", "RARE",
	"AUDIO", "JASMY", "HOT", "ONE", "ROSE", "QTUM", "ZIL", "ICX", "ONT",
	"WAVES", "SC", "DGB", "RVN", "FLUX", "KDA", "ERG", "CFX", "CKB",
}

const (
	maxTokenNameLength   = 40
	maxTokenSymbolLength = 12
	minLiquidityUSD      = 1000
)

// minTokenValueEUR is the dust threshold. A priced holding worth strictly
// less than this is rejected; a holding worth exactly this much is kept.
var minTokenValueEUR = decimal.RequireFromString("0.01")

var symbolCharsRe = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// Token is the candidate a scanner submits for filtering before it becomes
// a canonical record.
type Token struct {
	Name            string
	Symbol          string
	Amount          decimal.Decimal
	PriceEUR        decimal.Decimal
	ContractAddress string
	LiquidityUSD    decimal.Decimal // negative means unknown
	Native          bool
}

// Verdict is the outcome of filtering a token, with the first failing check's
// reason when rejected.
type Verdict struct {
	Accept bool
	Reason string
}

// TokenPolicy decides which scanned tokens are worth recording. Checks run
// cheapest first and the first rejection wins; the whitelist is consulted
// before any pattern so listed symbols can never be filtered by name.
type TokenPolicy struct {
	mu        sync.RWMutex
	whitelist map[string]bool
	scams     map[string]bool // known scam contract addresses, lowercased
	minValue  decimal.Decimal
}

// NewTokenPolicy returns a policy loaded with the built-in whitelist and
// default thresholds.
func NewTokenPolicy() *TokenPolicy {
	p := &TokenPolicy{
		whitelist: make(map[string]bool, len(whitelistSymbols)),
		scams:     make(map[string]bool),
		minValue:  minTokenValueEUR,
	}
	for _, s := range whitelistSymbols {
		p.whitelist[s] = true
	}
	return p
}

// IsWhitelisted reports whether the symbol bypasses pattern checks.
func (p *TokenPolicy) IsWhitelisted(symbol string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.whitelist[strings.ToUpper(symbol)]
}

// Whitelist adds a symbol at runtime, for tokens the user holds on purpose.
func (p *TokenPolicy) Whitelist(symbol string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.whitelist[strings.ToUpper(symbol)] = true
}

// Blacklist registers a known scam contract address.
func (p *TokenPolicy) Blacklist(contract string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scams[strings.ToLower(contract)] = true
}

// SetMinValue overrides the dust threshold.
func (p *TokenPolicy) SetMinValue(v decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minValue = v
}

// QuickCheck runs only the metadata checks (whitelist, patterns, lengths,
// symbol charset). Scanners call it inline to drop obvious spam before
// spending a price lookup on it.
func (p *TokenPolicy) QuickCheck(name, symbol string) Verdict {
	if p.IsWhitelisted(symbol) {
		return Verdict{Accept: true, Reason: "whitelist"}
	}
	n := strings.ToLower(name)
	s := strings.ToLower(symbol)
	for _, pattern := range spamPatterns {
		if strings.Contains(n, pattern) || strings.Contains(s, pattern) {
			return Verdict{Reason: fmt.Sprintf("pattern: %q", pattern)}
		}
	}
	if len(n) > maxTokenNameLength {
		return Verdict{Reason: "name too long"}
	}
	if len(s) > maxTokenSymbolLength {
		return Verdict{Reason: "symbol too long"}
	}
	if symbol != "" && !symbolCharsRe.MatchString(symbol) {
		return Verdict{Reason: "invalid symbol chars"}
	}
	return Verdict{Accept: true, Reason: "passed"}
}

// Check runs the full pipeline: metadata, contract blacklist, dust value,
// and liquidity for non-whitelisted tokens.
func (p *TokenPolicy) Check(t Token) Verdict {
	if v := p.QuickCheck(t.Name, t.Symbol); !v.Accept {
		return v
	}
	if t.ContractAddress != "" {
		p.mu.RLock()
		scam := p.scams[strings.ToLower(t.ContractAddress)]
		p.mu.RUnlock()
		if scam {
			return Verdict{Reason: "known scam contract"}
		}
	}
	if t.PriceEUR.IsPositive() {
		value := t.Amount.Mul(t.PriceEUR)
		p.mu.RLock()
		min := p.minValue
		p.mu.RUnlock()
		if value.LessThan(min) {
			return Verdict{Reason: fmt.Sprintf("dust: €%s", value.StringFixed(4))}
		}
	}
	if !p.IsWhitelisted(t.Symbol) && t.LiquidityUSD.IsPositive() &&
		t.LiquidityUSD.LessThan(decimal.NewFromInt(minLiquidityUSD)) {
		return Verdict{Reason: fmt.Sprintf("low liquidity: $%s", t.LiquidityUSD.StringFixed(0))}
	}
	return Verdict{Accept: true, Reason: "valid"}
}
