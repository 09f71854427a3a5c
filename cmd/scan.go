package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cryptofolio"
	"github.com/etnz/cryptofolio/renderer"
	"github.com/google/subcommands"
)

// scanCmd holds the flags for the 'scan' subcommand.
type scanCmd struct {
	address string
}

func (*scanCmd) Name() string     { return "scan" }
func (*scanCmd) Synopsis() string { return "fetch balances and transactions from the chains" }
func (*scanCmd) Usage() string {
	return `cfolio scan [-a <address>]

  Scans every tracked wallet (or a single address with -a), pulls current
  balances and transaction history from the chain APIs, filters spam tokens,
  and stores new records. Re-running a scan never duplicates transactions.

Usage Examples:
$ cfolio scan
$ cfolio scan -a 0x1234...abcd
`
}

func (c *scanCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.address, "a", "", "Scan a single address instead of all tracked wallets.")
}

func (c *scanCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := OpenApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	// Live prices make filtered-token value checks meaningful.
	if err := app.Prices.RefreshLive(nil); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: live price refresh failed: %v\n", err)
	}

	var outcomes []cryptofolio.ScanOutcome
	if c.address != "" {
		outcomes = append(outcomes, app.Scans.Scan(c.address))
	} else {
		outcomes = app.Scans.ScanAll()
	}
	if len(outcomes) == 0 {
		fmt.Println("No wallets to scan. Add one with 'cfolio wallet-add'.")
		return subcommands.ExitSuccess
	}

	printMarkdown(renderer.ScanMarkdown(outcomes))
	for _, o := range outcomes {
		if o.Err != nil {
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}
