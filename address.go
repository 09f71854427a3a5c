package cryptofolio

import (
	"regexp"
	"strings"
)

// ChainFamily is the address family a wallet address belongs to. It selects
// which scanner handles the wallet; chain-specific detail (which EVM network,
// which Cosmos zone) is resolved inside the family's scanner.
type ChainFamily string

const (
	FamilyEVM     ChainFamily = "evm"
	FamilyCosmos  ChainFamily = "cosmos"
	FamilySolana  ChainFamily = "solana"
	FamilyUnknown ChainFamily = "unknown"
)

var (
	evmAddressRe    = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	solanaAddressRe = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
)

// cosmosPrefixes maps a bech32 human-readable prefix to the zone it denotes.
var cosmosPrefixes = map[string]string{
	"terra":  "terra",
	"cosmos": "cosmoshub",
	"osmo":   "osmosis",
}

// DetectChainFamily classifies a wallet address by its syntactic shape alone.
// The shapes are disjoint enough in practice (hex 0x prefix, bech32 prefix
// and separator, base58 alphabet) that no network lookup is needed.
func DetectChainFamily(address string) ChainFamily {
	address = strings.TrimSpace(address)
	if evmAddressRe.MatchString(address) {
		return FamilyEVM
	}
	if _, ok := CosmosZone(address); ok {
		return FamilyCosmos
	}
	if solanaAddressRe.MatchString(address) {
		return FamilySolana
	}
	return FamilyUnknown
}

// CosmosZone returns the Cosmos zone an address belongs to, matching the
// bech32 prefix before the "1" separator against the supported zones.
func CosmosZone(address string) (string, bool) {
	address = strings.TrimSpace(address)
	i := strings.IndexByte(address, '1')
	if i <= 0 || len(address) < i+39 {
		return "", false
	}
	zone, ok := cosmosPrefixes[address[:i]]
	return zone, ok
}
