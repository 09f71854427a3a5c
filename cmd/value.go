package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cryptofolio"
	"github.com/etnz/cryptofolio/renderer"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// valueCmd holds the flags for the 'value' subcommand.
type valueCmd struct {
	date string
}

func (*valueCmd) Name() string     { return "value" }
func (*valueCmd) Synopsis() string { return "value the portfolio at a day's closes" }
func (*valueCmd) Usage() string {
	return `cfolio value [-d YYYY-MM-DD]

  Values the stored holdings at a day's historical closes. Defaults to
  yesterday, the most recent day with a settled close.

Usage Examples:
$ cfolio value -d 2025-12-31
`
}

func (c *valueCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Valuation day, format YYYY-MM-DD. Default: yesterday.")
}

func (c *valueCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day := cryptofolio.Today().Add(-1)
	if c.date != "" {
		var err error
		day, err = cryptofolio.ParseDate(c.date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	app, err := OpenApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	// Collapse per-wallet balances into one holding per coin.
	holdings := make(map[string]decimal.Decimal)
	for _, b := range app.Ledger.Balances() {
		holdings[b.Coin] = holdings[b.Coin].Add(b.Amount)
	}
	if len(holdings) == 0 {
		fmt.Println("No balances stored. Run 'cfolio scan' first.")
		return subcommands.ExitSuccess
	}

	total, details := app.Prices.PortfolioValueAt(holdings, day)
	printMarkdown(renderer.ValuationMarkdown(day, total, details))
	return subcommands.ExitSuccess
}
