package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all settings for the offline tooling and the query
// engines. Values come from an optional YAML file, overridden by
// environment variables, with defaults for everything.
type Config struct {
	// DataDir is the root under which all on-disk artifacts live:
	// the archive, the extracted tabular files, the store file and
	// the flat-file projections.
	DataDir string `yaml:"data_dir" validate:"required"`

	// FeedURL is the source of the schedule feed archive.
	FeedURL string `yaml:"feed_url" validate:"omitempty,url"`

	// SkipDownload disables the network fetch entirely in favor of
	// a pre-placed archive file.
	SkipDownload bool `yaml:"skip_download"`

	// RefreshDays is the staleness threshold: an archive or store
	// older than this many days is due for a refresh.
	RefreshDays int `yaml:"refresh_days" validate:"gt=0"`

	// PostgresDSN, when set, targets a server database instead of
	// the embedded store file.
	PostgresDSN string `yaml:"postgres_dsn"`

	// Port for the JSON API server.
	Port int `yaml:"port" validate:"gt=0"`
}

const DefaultRefreshDays = 7

// Load assembles configuration: .env file if present, then an
// optional YAML config file, then environment variables on top.
func Load(configPath string) (*Config, error) {
	// A missing .env is fine; it only exists on some deployments.
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:     "data",
		RefreshDays: DefaultRefreshDays,
		Port:        8080,
	}

	if configPath != "" {
		buf, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.DataDir = envStr("TRANSIT_DATA_DIR", cfg.DataDir)
	cfg.FeedURL = envStr("TRANSIT_FEED_URL", cfg.FeedURL)
	cfg.SkipDownload = envBool("TRANSIT_SKIP_DOWNLOAD", cfg.SkipDownload)
	cfg.RefreshDays = envInt("TRANSIT_REFRESH_DAYS", cfg.RefreshDays)
	cfg.PostgresDSN = envStr("TRANSIT_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.Port = envInt("TRANSIT_PORT", cfg.Port)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Fixed paths relative to the data root. These are the only contract
// between the offline tooling and the online query engines.

func (c *Config) ArchivePath() string {
	return filepath.Join(c.DataDir, "gtfs.zip")
}

func (c *Config) FeedDir() string {
	return filepath.Join(c.DataDir, "feed")
}

func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "transit.db")
}

func (c *Config) FlatDir() string {
	return filepath.Join(c.DataDir, "flat")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
