package cryptofolio

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds the runtime configuration read from the environment, with a
// .env file as the usual carrier. API keys set in the environment seed the
// ledger's stored credentials but never overwrite keys already stored.
type Config struct {
	DataDir      string
	DatabasePath string
	BackupDir    string

	MoralisKeys []string // comma separated in the environment
	HeliusKey   string

	Chains   []string // EVM chains to scan
	LogLevel string
}

// LoadConfig reads configuration from the environment, loading a .env file
// first when one exists.
func LoadConfig() *Config {
	_ = godotenv.Load()

	dataDir := getEnv("CRYPTOFOLIO_DATA_DIR", defaultDataDir())
	cfg := &Config{
		DataDir:      dataDir,
		DatabasePath: getEnv("CRYPTOFOLIO_DB_PATH", filepath.Join(dataDir, "cryptofolio.db")),
		BackupDir:    getEnv("CRYPTOFOLIO_BACKUP_DIR", filepath.Join(dataDir, "backup")),
		MoralisKeys:  splitList(os.Getenv("MORALIS_API_KEYS")),
		HeliusKey:    os.Getenv("HELIUS_API_KEY"),
		Chains:       splitList(os.Getenv("CRYPTOFOLIO_CHAINS")),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

// Logger builds the root logger at the configured level, writing
// human-readable output to stderr.
func (c *Config) Logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cryptofolio"
	}
	return filepath.Join(home, ".cryptofolio")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
