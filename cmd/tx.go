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

// txCmd holds the flags for the 'tx' subcommand.
type txCmd struct {
	source string
	year   int
	coin   string
	txType string
	limit  int
	del    bool
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list stored transactions" }
func (*txCmd) Usage() string {
	return `cfolio tx [-source <s>] [-year <y>] [-coin <c>] [-type <t>] [-n <count>]

  Lists stored transactions, newest first. Filters combine.

Usage Examples:
$ cfolio tx -year 2025 -coin ETH
$ cfolio tx -type trade -n 20
`
}

func (c *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.source, "source", "", "Only transactions imported from this source.")
	f.IntVar(&c.year, "year", 0, "Only transactions of this calendar year.")
	f.StringVar(&c.coin, "coin", "", "Only transactions touching this coin.")
	f.StringVar(&c.txType, "type", "", "Only transactions of this type (deposit, withdrawal, trade, fee, staking_reward, staking, airdrop).")
	f.IntVar(&c.limit, "n", 50, "Maximum number of transactions shown (0 for all).")
	f.BoolVar(&c.del, "delete", false, "Delete the matching transactions instead of listing them.")
}

func (c *txCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := OpenApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	filter := cryptofolio.TxFilter{
		Source: c.source,
		Year:   c.year,
		Coin:   c.coin,
		Type:   cryptofolio.TxType(c.txType),
	}

	if c.del {
		if filter == (cryptofolio.TxFilter{}) {
			fmt.Fprintln(os.Stderr, "-delete without a filter would wipe the history; use 'cfolio reset' for that")
			return subcommands.ExitUsageError
		}
		deleted := app.Ledger.DeleteTransactions(filter)
		fmt.Printf("Deleted %d transaction(s).\n", deleted)
		return subcommands.ExitSuccess
	}

	txs := app.Ledger.Transactions(filter)
	if len(txs) == 0 {
		fmt.Println("No matching transactions.")
		return subcommands.ExitSuccess
	}
	if c.limit > 0 && len(txs) > c.limit {
		txs = txs[:c.limit]
	}
	printMarkdown(renderer.TransactionsMarkdown(txs))
	return subcommands.ExitSuccess
}
