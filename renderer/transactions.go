package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/cryptofolio"
	"github.com/shopspring/decimal"
)

// TransactionsMarkdown renders a transaction listing, newest first, as the
// ledger returns them.
func TransactionsMarkdown(txs []cryptofolio.Transaction) string {
	var b strings.Builder

	fmt.Fprint(&b, "# Transactions\n\n")
	if len(txs) == 0 {
		fmt.Fprint(&b, "No transactions recorded.\n")
		return b.String()
	}

	fmt.Fprintln(&b, "| Date | Type | In | Out | Value | Source | Chain |")
	fmt.Fprintln(&b, "|:---|:---|:---|:---|---:|:---|:---|")
	for _, t := range txs {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			t.When(), t.Type,
			leg(t.CoinIn, t.AmountIn),
			leg(t.CoinOut, t.AmountOut),
			cryptofolio.EUR(t.ValueEUR),
			shorten(t.Source), t.Chain,
		)
	}
	fmt.Fprintf(&b, "\n%d transactions.\n", len(txs))
	return b.String()
}

func leg(coin string, amount decimal.Decimal) string {
	if coin == "" {
		return ""
	}
	return fmt.Sprintf("%s %s", cryptofolio.Crypto(amount), coin)
}

// ScanMarkdown summarizes the outcome of a wallet scan run.
func ScanMarkdown(outcomes []cryptofolio.ScanOutcome) string {
	var b strings.Builder

	fmt.Fprint(&b, "# Scan Results\n\n")
	fmt.Fprintln(&b, "| Wallet | Family | Balances | New Txs | Filtered | Status |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|:---|")
	for _, o := range outcomes {
		status := "ok"
		if o.Err != nil {
			status = o.Err.Error()
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %d | %s |\n",
			shorten(o.Address), o.Family, o.Balances, o.Transactions, o.Filtered, status)
	}
	return b.String()
}
