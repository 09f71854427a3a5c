package cmd

import (
	"net/http"

	"github.com/etnz/cryptofolio"
	"github.com/google/subcommands"
)

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(&walletAddCmd{}, "wallets")
	c.Register(&walletRemoveCmd{}, "wallets")
	c.Register(&walletListCmd{}, "wallets")
	c.Register(&keysCmd{}, "wallets")
	c.Register(&chainsCmd{}, "wallets")
	c.Register(&exchangeAddCmd{}, "wallets")
	c.Register(&exchangeRemoveCmd{}, "wallets")
	c.Register(&exchangeListCmd{}, "wallets")

	c.Register(&scanCmd{}, "portfolio")
	c.Register(&balancesCmd{}, "portfolio")
	c.Register(&txCmd{}, "portfolio")
	c.Register(&importCmd{}, "portfolio")
	c.Register(&pricesCmd{}, "portfolio")
	c.Register(&valueCmd{}, "portfolio")
	c.Register(&resetCmd{}, "portfolio")

	c.Register(&reportCmd{}, "tax")
}

// App bundles the wired services every command needs.
type App struct {
	Config *cryptofolio.Config
	Ledger *cryptofolio.Ledger
	Prices *cryptofolio.PriceService
	Scans  *cryptofolio.ScanService

	store *cryptofolio.SQLiteStore
}

// OpenApp loads configuration and opens the ledger with its durable store
// and local backup. Close must be called to flush pending saves.
func OpenApp() (*App, error) {
	cfg := cryptofolio.LoadConfig()
	log := cfg.Logger()

	store, err := cryptofolio.OpenSQLiteStore(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	backup, err := cryptofolio.NewLocalStore(cfg.BackupDir)
	if err != nil {
		store.Close()
		return nil, err
	}
	ledger, err := cryptofolio.OpenLedger(store, backup, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	// environment keys seed the stored credentials once
	if len(cfg.MoralisKeys) > 0 && len(ledger.APIKeys("moralis")) == 0 {
		ledger.SetAPIKeys("moralis", cfg.MoralisKeys...)
	}
	if cfg.HeliusKey != "" && len(ledger.APIKeys("helius")) == 0 {
		ledger.SetAPIKeys("helius", cfg.HeliusKey)
	}

	client := new(http.Client)
	policy := cryptofolio.NewTokenPolicy()
	prices := cryptofolio.NewPriceService(client, ledger, log)

	chains := cfg.Chains
	if len(chains) == 0 {
		chains = ledger.SelectedChains()
	}
	scans := cryptofolio.NewScanService(ledger, policy, prices, log)
	evm := cryptofolio.NewEVMScanner(client, cryptofolio.NewKeyPool(ledger.APIKeys("moralis")...), chains, policy, log)
	evm.UseSecurity(cryptofolio.NewSecurityChecker(client, log))
	scans.Register(evm)
	scans.Register(cryptofolio.NewCosmosScanner(client, log))
	scans.Register(cryptofolio.NewSolanaScanner(client, cryptofolio.NewKeyPool(ledger.APIKeys("helius")...), policy, log))

	return &App{Config: cfg, Ledger: ledger, Prices: prices, Scans: scans, store: store}, nil
}

// Close flushes pending ledger writes and releases the store.
func (a *App) Close() error {
	a.Ledger.Flush()
	return a.store.Close()
}
