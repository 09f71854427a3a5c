package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
)

// keysCmd holds the flags for the 'keys' subcommand.
type keysCmd struct{}

func (*keysCmd) Name() string     { return "keys" }
func (*keysCmd) Synopsis() string { return "store API keys for the chain providers" }
func (*keysCmd) Usage() string {
	return `cfolio keys <provider> <key>[,<key>...]

  Stores API keys for a data provider. Moralis accepts several keys,
  rotated automatically when one is rate limited.

  Providers: moralis, helius

Usage Examples:
$ cfolio keys moralis keyA,keyB
$ cfolio keys helius myHeliusKey
`
}

func (*keysCmd) SetFlags(f *flag.FlagSet) {}

func (c *keysCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "keys expects a provider and a comma-separated key list")
		return subcommands.ExitUsageError
	}
	provider := strings.ToLower(f.Arg(0))
	switch provider {
	case "moralis", "helius":
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown provider %q (want moralis or helius)\n", provider)
		return subcommands.ExitUsageError
	}

	var keys []string
	for _, k := range strings.Split(f.Arg(1), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no keys given")
		return subcommands.ExitUsageError
	}

	app, err := OpenApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	app.Ledger.SetAPIKeys(provider, keys...)
	fmt.Printf("Stored %d key(s) for %s.\n", len(keys), provider)
	return subcommands.ExitSuccess
}
