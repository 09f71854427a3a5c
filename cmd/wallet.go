package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/etnz/cryptofolio"
	"github.com/google/subcommands"
)

// walletAddCmd holds the flags for the 'wallet-add' subcommand.
type walletAddCmd struct {
	name string
}

func (*walletAddCmd) Name() string     { return "wallet-add" }
func (*walletAddCmd) Synopsis() string { return "track a new wallet address" }
func (*walletAddCmd) Usage() string {
	return `cfolio wallet-add [-name <label>] <address>

  Registers a wallet address for scanning. The chain family (EVM, Cosmos,
  Solana) is detected from the address format.

Usage Examples:
$ cfolio wallet-add -name cold 0x1234...abcd
$ cfolio wallet-add terra1xyz...
`
}

func (c *walletAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Display label for the wallet.")
}

func (c *walletAddCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "wallet-add expects exactly one address")
		return subcommands.ExitUsageError
	}
	address := f.Arg(0)
	family := cryptofolio.DetectChainFamily(address)
	if family == cryptofolio.FamilyUnknown {
		fmt.Fprintf(os.Stderr, "Error: unrecognized address format %q\n", address)
		return subcommands.ExitUsageError
	}

	app, err := OpenApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	added := app.Ledger.AddWallet(cryptofolio.Wallet{
		Address: address,
		Chain:   string(family),
		Name:    c.name,
		AddedAt: time.Now().UnixMilli(),
	})
	if !added {
		fmt.Fprintf(os.Stderr, "Wallet %s is already tracked.\n", address)
		return subcommands.ExitSuccess
	}
	fmt.Printf("Tracking %s wallet %s.\n", family, address)
	return subcommands.ExitSuccess
}

// walletRemoveCmd holds the flags for the 'wallet-remove' subcommand.
type walletRemoveCmd struct{}

func (*walletRemoveCmd) Name() string { return "wallet-remove" }
func (*walletRemoveCmd) Synopsis() string {
	return "stop tracking a wallet and purge its records"
}
func (*walletRemoveCmd) Usage() string {
	return `cfolio wallet-remove <address>

  Removes a wallet and deletes every balance and transaction that was
  imported from it.
`
}

func (*walletRemoveCmd) SetFlags(f *flag.FlagSet) {}

func (c *walletRemoveCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "wallet-remove expects exactly one address")
		return subcommands.ExitUsageError
	}
	app, err := OpenApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	if !app.Ledger.RemoveWallet(f.Arg(0)) {
		fmt.Fprintf(os.Stderr, "Wallet %s is not tracked.\n", f.Arg(0))
		return subcommands.ExitFailure
	}
	fmt.Printf("Removed wallet %s and its records.\n", f.Arg(0))
	return subcommands.ExitSuccess
}

// walletListCmd holds the flags for the 'wallet-list' subcommand.
type walletListCmd struct{}

func (*walletListCmd) Name() string     { return "wallet-list" }
func (*walletListCmd) Synopsis() string { return "list tracked wallets" }
func (*walletListCmd) Usage() string {
	return `cfolio wallet-list

  Lists every tracked wallet address with its chain family and label.
`
}

func (*walletListCmd) SetFlags(f *flag.FlagSet) {}

func (c *walletListCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := OpenApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	wallets := app.Ledger.Wallets()
	if len(wallets) == 0 {
		fmt.Println("No wallets tracked. Add one with 'cfolio wallet-add'.")
		return subcommands.ExitSuccess
	}
	for _, w := range wallets {
		label := w.Name
		if label == "" {
			label = "-"
		}
		fmt.Printf("%-10s %-44s %s\n", w.Chain, w.Address, label)
	}
	return subcommands.ExitSuccess
}
