package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/cryptofolio"
	"github.com/shopspring/decimal"
)

// BalancesMarkdown renders the current holdings, sorted by descending value,
// with a grand total.
func BalancesMarkdown(balances []cryptofolio.Balance) string {
	var b strings.Builder

	fmt.Fprint(&b, "# Portfolio Balances\n\n")
	if len(balances) == 0 {
		fmt.Fprint(&b, "No balances recorded. Add a wallet and scan it first.\n")
		return b.String()
	}

	fmt.Fprintln(&b, "| Coin | Chain | Source | Amount | Price | Value |")
	fmt.Fprintln(&b, "|:---|:---|:---|---:|---:|---:|")
	total := decimal.Zero
	for _, bal := range balances {
		total = total.Add(bal.ValueEUR)
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			bal.Coin, bal.Chain, shorten(bal.Source),
			cryptofolio.Crypto(bal.Amount),
			cryptofolio.EUR(bal.PriceEUR),
			cryptofolio.EUR(bal.ValueEUR),
		)
	}
	fmt.Fprintf(&b, "| **Total** | | | | | **%s** |\n", cryptofolio.EUR(total))
	return b.String()
}

// shorten elides long wallet sources to keep table rows narrow.
func shorten(source string) string {
	if len(source) <= 20 {
		return source
	}
	return source[:12] + "…" + source[len(source)-4:]
}
