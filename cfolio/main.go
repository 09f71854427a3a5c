package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/cryptofolio/cmd"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// completion describes the CLI for shell completion. It exits the process
// when invoked by the shell, and is a no-op otherwise.
func completion() {
	c := &complete.Command{
		Sub: map[string]*complete.Command{
			"wallet-add":    {Flags: map[string]complete.Predictor{"name": predict.Something}},
			"wallet-remove": {},
			"wallet-list":   {},
			"keys":          {},
			"chains":        {},
			"exchange-add": {Flags: map[string]complete.Predictor{
				"key":    predict.Something,
				"secret": predict.Something,
			}},
			"exchange-remove": {},
			"exchange-list":   {},
			"scan":          {Flags: map[string]complete.Predictor{"a": predict.Something}},
			"balances":      {Flags: map[string]complete.Predictor{"u": predict.Nothing}},
			"tx": {Flags: map[string]complete.Predictor{
				"source": predict.Something,
				"year":   predict.Something,
				"coin":   predict.Something,
				"type":   predict.Set{"deposit", "withdrawal", "trade", "fee", "staking_reward", "staking", "airdrop"},
				"n":      predict.Something,
				"delete": predict.Nothing,
			}},
			"import": {Flags: map[string]complete.Predictor{"source": predict.Something}},
			"value":  {Flags: map[string]complete.Predictor{"d": predict.Something}},
			"prices": {Flags: map[string]complete.Predictor{
				"u": predict.Nothing,
				"d": predict.Something,
			}},
			"report": {Flags: map[string]complete.Predictor{
				"year":      predict.Something,
				"method":    predict.Set{"lifo", "average"},
				"json":      predict.Nothing,
				"rate":      predict.Something,
				"threshold": predict.Something,
			}},
			"reset": {Flags: map[string]complete.Predictor{"f": predict.Nothing}},
		},
	}
	c.Complete("cfolio")
}

func main() {
	completion()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
