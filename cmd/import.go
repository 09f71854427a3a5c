package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cryptofolio"
	"github.com/google/subcommands"
)

// importCmd holds the flags for the 'import' subcommand.
type importCmd struct {
	source string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import transactions from a JSON file" }
func (*importCmd) Usage() string {
	return `cfolio import -source <name> <file.json>

  Imports transactions from a JSON array of records, as exported by an
  exchange or by a previous installation. Malformed fields are coerced
  where possible and reported; records already stored are skipped.

Usage Examples:
$ cfolio import -source binance_export trades.json
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.source, "source", "", "Source label stamped on records that carry none.")
}

func (c *importCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "import expects exactly one file")
		return subcommands.ExitUsageError
	}
	data, err := os.ReadFile(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %q is not a JSON array of records: %v\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}

	app, err := OpenApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	txs := make([]cryptofolio.Transaction, 0, len(raw))
	for i, r := range raw {
		tx, warns := cryptofolio.ParseTransaction(r)
		for _, w := range warns {
			fmt.Fprintf(os.Stderr, "Warning: record %d: %s\n", i, w)
		}
		if tx.Source == "" {
			tx.Source = c.source
		}
		if tx.SourceID == "" {
			tx.SourceID = fmt.Sprintf("%s_%d", f.Arg(0), i)
		}
		txs = append(txs, tx)
	}
	added := app.Ledger.AddTransactions(txs)
	fmt.Printf("Imported %d new transaction(s) out of %d record(s).\n", added, len(raw))
	return subcommands.ExitSuccess
}
