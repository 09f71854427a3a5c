package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/cryptofolio"
	"github.com/google/subcommands"
)

// pricesCmd holds the flags for the 'prices' subcommand.
type pricesCmd struct {
	refresh bool
	date    string
}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "show or refresh coin prices" }
func (*pricesCmd) Usage() string {
	return `cfolio prices [-u] [-d <date>] [coin ...]

  Shows cached EUR quotes for the given coins (or every held coin). Use -u
  to refresh live quotes first, or -d to look up the historical close of a
  specific day.

Usage Examples:
$ cfolio prices -u
$ cfolio prices -d 2025-12-31 BTC ETH
`
}

func (c *pricesCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.refresh, "u", false, "Refresh live quotes before displaying.")
	f.StringVar(&c.date, "d", "", "Show the historical close of this day (YYYY-MM-DD) instead of live quotes.")
}

func (c *pricesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := OpenApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	coins := f.Args()
	if len(coins) == 0 {
		for _, b := range app.Ledger.Balances() {
			coins = append(coins, b.Coin)
		}
	}
	if len(coins) == 0 {
		fmt.Println("No coins to price. Pass coin symbols or run 'cfolio scan' first.")
		return subcommands.ExitSuccess
	}

	if c.date != "" {
		day, err := cryptofolio.ParseDate(c.date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
			return subcommands.ExitUsageError
		}
		for _, coin := range coins {
			coin = strings.ToUpper(coin)
			p := app.Prices.HistoricalPrice(coin, day)
			if p.IsZero() {
				fmt.Printf("%-8s %s  unavailable\n", coin, day)
				continue
			}
			fmt.Printf("%-8s %s  %s\n", coin, day, cryptofolio.EUR(p))
		}
		return subcommands.ExitSuccess
	}

	if c.refresh {
		if err := app.Prices.RefreshLive(coins); err != nil {
			fmt.Fprintf(os.Stderr, "Error refreshing prices: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	for _, coin := range coins {
		coin = strings.ToUpper(coin)
		p := app.Prices.Price(coin)
		if p.IsZero() {
			fmt.Printf("%-8s unquoted\n", coin)
			continue
		}
		state := "fresh"
		if !app.Prices.Fresh(coin) {
			state = "stale"
		}
		fmt.Printf("%-8s %s (%s)\n", coin, cryptofolio.EUR(p), state)
	}
	return subcommands.ExitSuccess
}
