package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/etnz/cryptofolio"
	"github.com/google/subcommands"
)

// exchangeAddCmd holds the flags for the 'exchange-add' subcommand.
type exchangeAddCmd struct {
	apiKey    string
	apiSecret string
}

func (*exchangeAddCmd) Name() string     { return "exchange-add" }
func (*exchangeAddCmd) Synopsis() string { return "link a centralized exchange account" }
func (*exchangeAddCmd) Usage() string {
	return `cfolio exchange-add -key <key> -secret <secret> <name>

  Links an exchange account under the given name, storing its API
  credentials for later imports.

Usage Examples:
$ cfolio exchange-add -key abc -secret def binance
`
}

func (c *exchangeAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.apiKey, "key", "", "Exchange API key.")
	f.StringVar(&c.apiSecret, "secret", "", "Exchange API secret.")
}

func (c *exchangeAddCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "exchange-add expects exactly one exchange name")
		return subcommands.ExitUsageError
	}
	app, err := OpenApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	name := strings.ToLower(f.Arg(0))
	app.Ledger.SetExchange(cryptofolio.Exchange{
		Name:      name,
		APIKey:    c.apiKey,
		APISecret: c.apiSecret,
		LastSync:  time.Now().UnixMilli(),
	})
	fmt.Printf("Linked exchange %s.\n", name)
	return subcommands.ExitSuccess
}

// exchangeRemoveCmd holds the flags for the 'exchange-remove' subcommand.
type exchangeRemoveCmd struct{}

func (*exchangeRemoveCmd) Name() string { return "exchange-remove" }
func (*exchangeRemoveCmd) Synopsis() string {
	return "unlink an exchange and purge its records"
}
func (*exchangeRemoveCmd) Usage() string {
	return `cfolio exchange-remove <name>

  Unlinks an exchange account and deletes every balance and transaction
  that was imported from it.
`
}

func (*exchangeRemoveCmd) SetFlags(f *flag.FlagSet) {}

func (c *exchangeRemoveCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "exchange-remove expects exactly one exchange name")
		return subcommands.ExitUsageError
	}
	app, err := OpenApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	name := strings.ToLower(f.Arg(0))
	if !app.Ledger.RemoveExchange(name) {
		fmt.Fprintf(os.Stderr, "Exchange %s is not linked.\n", name)
		return subcommands.ExitFailure
	}
	fmt.Printf("Removed exchange %s and its records.\n", name)
	return subcommands.ExitSuccess
}

// exchangeListCmd holds the flags for the 'exchange-list' subcommand.
type exchangeListCmd struct{}

func (*exchangeListCmd) Name() string     { return "exchange-list" }
func (*exchangeListCmd) Synopsis() string { return "list linked exchange accounts" }
func (*exchangeListCmd) Usage() string {
	return `cfolio exchange-list

  Lists every linked exchange account. Secrets are not shown.
`
}

func (*exchangeListCmd) SetFlags(f *flag.FlagSet) {}

func (c *exchangeListCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := OpenApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	exchanges := app.Ledger.Exchanges()
	if len(exchanges) == 0 {
		fmt.Println("No exchanges linked. Add one with 'cfolio exchange-add'.")
		return subcommands.ExitSuccess
	}
	for name, e := range exchanges {
		last := "never"
		if e.LastSync > 0 {
			last = time.UnixMilli(e.LastSync).Format("2006-01-02 15:04")
		}
		fmt.Printf("%-12s key=%s… synced %s\n", name, head(e.APIKey, 6), last)
	}
	return subcommands.ExitSuccess
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
