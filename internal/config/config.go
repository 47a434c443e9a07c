package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Chain     ChainConfig
	Auth      AuthConfig
	MongoDB   MongoDBConfig
	Sheets    SheetsConfig
	Reporting ReportingConfig
	LogLevel  string
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// ChainConfig points at the external signing agent and the deployed
// SupplyChainTracker contract.
type ChainConfig struct {
	// ProviderURL is the JSON-RPC endpoint of the signing agent. Both
	// signed writes and read-only calls go through it, mirroring a
	// wallet-injected provider.
	ProviderURL string
	// ContractAddress is the fixed address of the deployed contract.
	ContractAddress string
	// ConfirmTimeout bounds the receipt wait after a write submission.
	ConfirmTimeout time.Duration
	// ReceiptPollInterval is the spacing between receipt lookups.
	ReceiptPollInterval time.Duration
	// WatchInterval is the spacing between account/chain change probes.
	WatchInterval time.Duration
}

// AuthConfig holds settings for login token issuance.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// MongoDBConfig holds settings for the account and activity store.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// ReportingConfig holds scheduler-related settings. Reporting is
// optional; with Enabled false the scheduler and Sheets client are
// never constructed.
type ReportingConfig struct {
	Enabled      bool
	CronSchedule string
}

// Load reads environment variables (optionally from the provided file)
// and materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes from
		// the environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Chain: ChainConfig{
			ProviderURL:         os.Getenv("CHAIN_PROVIDER_URL"),
			ContractAddress:     getenvWithDefault("CHAIN_CONTRACT_ADDRESS", "0x7eEf6E6f577b20388cf24ac51a5ad991F6857855"),
			ConfirmTimeout:      getenvDuration("CHAIN_CONFIRM_TIMEOUT", 90*time.Second),
			ReceiptPollInterval: getenvDuration("CHAIN_RECEIPT_POLL_INTERVAL", 2*time.Second),
			WatchInterval:       getenvDuration("CHAIN_WATCH_INTERVAL", 5*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  getenvDuration("JWT_TOKEN_TTL", 24*time.Hour),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "agritrace"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		Reporting: ReportingConfig{
			Enabled:      getenvBool("REPORT_ENABLED", false),
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * *"),
		},
		LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch {
	case c.Chain.ProviderURL == "":
		return errors.New("CHAIN_PROVIDER_URL must be provided")
	case c.Chain.ContractAddress == "":
		return errors.New("CHAIN_CONTRACT_ADDRESS must be provided")
	case c.Chain.ConfirmTimeout <= 0:
		return errors.New("CHAIN_CONFIRM_TIMEOUT must be positive")
	case c.Chain.ReceiptPollInterval <= 0:
		return errors.New("CHAIN_RECEIPT_POLL_INTERVAL must be positive")
	case c.Chain.WatchInterval <= 0:
		return errors.New("CHAIN_WATCH_INTERVAL must be positive")
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must be provided")
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}

	if c.Reporting.Enabled {
		if c.Sheets.CredentialsPath == "" {
			return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided when reporting is enabled")
		}
		if c.Sheets.SpreadsheetID == "" {
			return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided when reporting is enabled")
		}
		if c.Reporting.CronSchedule == "" {
			return errors.New("REPORT_CRON_SCHEDULE must be provided when reporting is enabled")
		}
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
