package cryptofolio

import (
	"fmt"
	"strings"
)

const coingeckoBase = "https://api.coingecko.com/api/v3"

// coingeckoIDs maps ticker symbols to CoinGecko asset ids. Symbols absent
// from this table simply cannot be priced; they stay at value 0 rather than
// blocking a scan.
var coingeckoIDs = map[string]string{
	// major coins
	"BTC": "bitcoin", "ETH": "ethereum", "BNB": "binancecoin", "SOL": "solana",
	"XRP": "ripple", "ADA": "cardano", "AVAX": "avalanche-2", "DOT": "polkadot",
	"MATIC": "matic-network", "POL": "matic-network", "LINK": "chainlink",
	"LTC": "litecoin", "NEAR": "near", "APT": "aptos", "SUI": "sui",
	"TON": "the-open-network", "TRX": "tron", "XLM": "stellar",
	"ALGO": "algorand", "VET": "vechain", "FIL": "filecoin",
	"HBAR": "hedera-hashgraph",
	// layer 2 and scaling
	"ARB": "arbitrum", "OP": "optimism", "IMX": "immutable-x", "MANTA": "manta-network",
	// defi
	"UNI": "uniswap", "AAVE": "aave", "MKR": "maker", "CRV": "curve-dao-token",
	"COMP": "compound-governance-token", "SNX": "havven", "SUSHI": "sushi",
	"1INCH": "1inch", "CAKE": "pancakeswap-token", "LDO": "lido-dao",
	// meme coins
	"DOGE": "dogecoin", "SHIB": "shiba-inu", "PEPE": "pepe", "FLOKI": "floki",
	"BONK": "bonk", "WIF": "dogwifcoin", "BONE": "bone-shibaswap", "LEASH": "doge-killer",
	// stablecoins
	"USDT": "tether", "USDC": "usd-coin", "DAI": "dai", "BUSD": "binance-usd",
	"TUSD": "true-usd", "FRAX": "frax", "USDD": "usdd", "FDUSD": "first-digital-usd",
	// exchange tokens
	"CRO": "crypto-com-chain", "FTT": "ftx-token", "OKB": "okb",
	"KCS": "kucoin-shares", "GT": "gatechain-token", "BGB": "bitget-token",
	// cosmos ecosystem
	"ATOM": "cosmos", "OSMO": "osmosis", "INJ": "injective-protocol",
	"SEI": "sei-network", "TIA": "celestia",
	// terra
	"LUNC": "terra-luna", "LUNA": "terra-luna-2", "USTC": "terrausd",
	// pulsechain
	"PLS": "pulsechain", "HEX": "hex", "PLSX": "pulsex", "INC": "incentive",
	// gaming and metaverse
	"AXS": "axie-infinity", "SAND": "the-sandbox", "MANA": "decentraland",
	"ENJ": "enjincoin", "GALA": "gala",
	// wrapped
	"WETH": "weth", "WBTC": "wrapped-bitcoin", "WBNB": "wbnb", "WPLS": "wrapped-pls",
	// other popular
	"FTM": "fantom", "EGLD": "elrond-erd-2", "FLOW": "flow", "XTZ": "tezos",
	"EOS": "eos", "NEO": "neo", "KAVA": "kava", "ROSE": "oasis-network",
	"ZIL": "zilliqa", "ONE": "harmony", "CELO": "celo", "BXN": "bxn",
	"VSN": "vision-network",
}

// CoingeckoID returns the CoinGecko asset id for a ticker symbol.
func CoingeckoID(symbol string) (string, bool) {
	id, ok := coingeckoIDs[strings.ToUpper(symbol)]
	return id, ok
}

// simplePriceURL builds the bulk live quote endpoint for the given asset ids.
func simplePriceURL(ids []string) string {
	return fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=eur,usd", coingeckoBase, strings.Join(ids, ","))
}

// historyURL builds the single-day historical endpoint. CoinGecko wants the
// date as dd-mm-yyyy.
func historyURL(id string, day Date) string {
	return fmt.Sprintf("%s/coins/%s/history?date=%02d-%02d-%04d", coingeckoBase, id, day.Day(), int(day.Month()), day.Year())
}
