package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/cryptofolio"
	"github.com/shopspring/decimal"
)

// ValuationMarkdown renders a point-in-time valuation of the portfolio at a
// day's historical closes.
func ValuationMarkdown(day cryptofolio.Date, total decimal.Decimal, details []cryptofolio.ValuedHolding) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Portfolio Value on %s\n\n", day)
	if len(details) == 0 {
		fmt.Fprint(&b, "No holdings on that day.\n")
		return b.String()
	}

	fmt.Fprintln(&b, "| Coin | Amount | Close | Value |")
	fmt.Fprintln(&b, "|:---|---:|---:|---:|")
	for _, h := range details {
		px := cryptofolio.EUR(h.PriceEUR)
		if h.PriceEUR.IsZero() {
			px = "?"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			h.Coin, cryptofolio.Crypto(h.Amount), px, cryptofolio.EUR(h.ValueEUR))
	}
	fmt.Fprintf(&b, "| **Total** | | | **%s** |\n", cryptofolio.EUR(total))
	return b.String()
}
