package internal

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is read from the environment; command line flags override it.
type Config struct {
	StoreURL        string        `env:"SHEETSYNC_STORE_URL"`
	DatabaseURL     string        `env:"SHEETSYNC_DATABASE_URL"`
	CredentialsFile string        `env:"SPREADSHEET_AUTH_FILE"`
	Sheet           int           `env:"SHEETSYNC_SHEET" envDefault:"0"`
	Table           string        `env:"SHEETSYNC_TABLE" envDefault:"keystats"`
	Query           string        `env:"SHEETSYNC_QUERY"`
	Format          string        `env:"SHEETSYNC_FORMAT" envDefault:"text"`
	Every           time.Duration `env:"SHEETSYNC_EVERY"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadConfig parses the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) StoreOptions() StoreOptions {
	return StoreOptions{
		CredentialsFile: c.CredentialsFile,
		Sheet:           c.Sheet,
		Table:           c.Table,
	}
}
