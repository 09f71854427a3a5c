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

// chainsCmd holds the flags for the 'chains' subcommand.
type chainsCmd struct{}

func (*chainsCmd) Name() string     { return "chains" }
func (*chainsCmd) Synopsis() string { return "show or select the scanned EVM chains" }
func (*chainsCmd) Usage() string {
	return `cfolio chains [<name>...]

  Without arguments, shows the selected EVM chains and the supported set.
  With arguments, replaces the selection. An empty selection means all
  supported chains.

Usage Examples:
$ cfolio chains eth base arbitrum
`
}

func (*chainsCmd) SetFlags(f *flag.FlagSet) {}

func (c *chainsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	supported := cryptofolio.SupportedEVMChains()
	known := make(map[string]bool, len(supported))
	for _, name := range supported {
		known[name] = true
	}

	app, err := OpenApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	if f.NArg() > 0 {
		selection := make([]string, 0, f.NArg())
		for _, arg := range f.Args() {
			name := strings.ToLower(arg)
			if !known[name] {
				fmt.Fprintf(os.Stderr, "Unknown chain %q. Supported: %s\n", arg, strings.Join(supported, ", "))
				return subcommands.ExitUsageError
			}
			selection = append(selection, name)
		}
		app.Ledger.SetSelectedChains(selection)
		fmt.Printf("Scanning chains: %s\n", strings.Join(selection, ", "))
		return subcommands.ExitSuccess
	}

	selected := app.Ledger.SelectedChains()
	if len(selected) == 0 {
		fmt.Println("Scanning all supported chains.")
	} else {
		fmt.Printf("Scanning: %s\n", strings.Join(selected, ", "))
	}
	fmt.Printf("Supported: %s\n", strings.Join(supported, ", "))
	return subcommands.ExitSuccess
}
