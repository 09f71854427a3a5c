package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cryptofolio/renderer"
	"github.com/google/subcommands"
)

// balancesCmd holds the flags for the 'balances' subcommand.
type balancesCmd struct {
	refresh bool
}

func (*balancesCmd) Name() string     { return "balances" }
func (*balancesCmd) Synopsis() string { return "show current holdings and their EUR value" }
func (*balancesCmd) Usage() string {
	return `cfolio balances [-u]

  Shows the stored balances of every wallet, valued at the cached live
  prices. Use -u to refresh prices first.
`
}

func (c *balancesCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.refresh, "u", false, "Refresh live prices before displaying.")
}

func (c *balancesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := OpenApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	balances := app.Ledger.Balances()
	if c.refresh {
		coins := make([]string, 0, len(balances))
		for _, b := range balances {
			coins = append(coins, b.Coin)
		}
		if err := app.Prices.RefreshLive(coins); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: live price refresh failed: %v\n", err)
		}
		// re-value holdings at the refreshed quotes
		for _, b := range balances {
			b.PriceEUR = app.Prices.Price(b.Coin)
			b.ValueEUR = b.Amount.Mul(b.PriceEUR)
			app.Ledger.UpdateBalance(b)
		}
		balances = app.Ledger.Balances()
	}

	if len(balances) == 0 {
		fmt.Println("No balances stored. Run 'cfolio scan' first.")
		return subcommands.ExitSuccess
	}
	printMarkdown(renderer.BalancesMarkdown(balances))
	return subcommands.ExitSuccess
}
