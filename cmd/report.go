package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/etnz/cryptofolio"
	"github.com/etnz/cryptofolio/renderer"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// reportCmd holds the flags for the 'report' subcommand.
type reportCmd struct {
	year     int
	method   string
	jsonOut  bool
	taxRate  float64
	noTaxCap float64
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "Italian tax report for a fiscal year" }
func (*reportCmd) Usage() string {
	return `cfolio report [-year <y>] [-method <lifo|average>] [-json]

  Replays the full transaction history and produces the figures for the
  Italian tax declaration: Quadro RT (capital gains at 26%) and Quadro RW
  (foreign holdings and IVAFE at 0.2%).

Usage Examples:
$ cfolio report -year 2025
$ cfolio report -year 2025 -method average -json > 2025.json
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", time.Now().Year()-1, "Fiscal year to report on.")
	f.StringVar(&c.method, "method", "", "Cost basis method (lifo, average). Defaults to lifo.")
	f.BoolVar(&c.jsonOut, "json", false, "Emit the raw report as JSON.")
	f.Float64Var(&c.taxRate, "rate", 0, "Override the capital gains rate (e.g. 0.26).")
	f.Float64Var(&c.noTaxCap, "threshold", -1, "Override the no-tax threshold in EUR.")
}

func (c *reportCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := OpenApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	cfg := cryptofolio.DefaultTaxConfig()
	switch c.method {
	case "", "lifo":
		cfg.Method = cryptofolio.LIFO
	case "average", "avg":
		cfg.Method = cryptofolio.AverageCost
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown cost method %q (want lifo or average)\n", c.method)
		return subcommands.ExitUsageError
	}
	if c.taxRate > 0 {
		cfg.CapitalGainsRate = decimal.NewFromFloat(c.taxRate)
	}
	if c.noTaxCap >= 0 {
		cfg.NoTaxThreshold = decimal.NewFromFloat(c.noTaxCap)
	}

	history := app.Ledger.Chronological()

	// Warm the historical cache with the year-boundary closes the RW section
	// needs, so the replay does not stall on one HTTP round trip per coin.
	seen := make(map[string]bool)
	var coins []string
	for _, tx := range history {
		if tx.Year > c.year {
			continue
		}
		for _, coin := range []string{tx.CoinIn, tx.CoinOut} {
			if coin != "" && !seen[coin] {
				seen[coin] = true
				coins = append(coins, coin)
			}
		}
	}
	app.Prices.YearPrices(coins, c.year)

	engine := cryptofolio.NewTaxEngine(cfg, app.Prices, app.Config.Logger())
	report := engine.Report(history, c.year)

	// Reconcile the replayed history against the scanned snapshots; a gap
	// over 1% on a coin usually means transactions are missing.
	replayed := app.Ledger.ReplayBalances()
	snap := make(map[string]decimal.Decimal)
	for _, b := range app.Ledger.Balances() {
		snap[b.Coin] = snap[b.Coin].Add(b.Amount)
	}
	onePct := decimal.NewFromFloat(0.01)
	for _, coin := range sortedKeys(snap) {
		want := snap[coin]
		if want.IsZero() {
			continue
		}
		if replayed[coin].Sub(want).Abs().Div(want.Abs()).GreaterThan(onePct) {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"%s: history replays to %s but wallets hold %s, transactions may be missing",
				coin, replayed[coin].String(), want.String()))
		}
	}

	if c.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding report: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	printMarkdown(renderer.TaxReportMarkdown(report))
	if len(report.Warnings) > 0 {
		fmt.Fprintf(os.Stderr, "Report for %s completed with %d warning(s).\n", strconv.Itoa(c.year), len(report.Warnings))
	}
	return subcommands.ExitSuccess
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
