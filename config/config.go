package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Storage backends selectable through Backend.
const (
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
)

// JWTSecretEnvDefault is consulted when neither JWTSecret nor JWTSecretEnv
// is configured.
const JWTSecretEnvDefault = "YIELDD_JWT_SECRET"

type Config struct {
	ListenAddress     string       `toml:"ListenAddress"`
	DataDir           string       `toml:"DataDir"`
	Backend           string       `toml:"Backend"`
	MaxConnections    int          `toml:"MaxConnections"`
	GenesisFile       string       `toml:"GenesisFile"`
	Environment       string       `toml:"Environment"`
	JWTSecret         string       `toml:"JWTSecret"`
	JWTSecretEnv      string       `toml:"JWTSecretEnv"`
	ResetActiveOnEdit bool         `toml:"ResetActiveOnEdit"`
	Accounts          Accounts     `toml:"accounts"`
	RateLimit         RateLimit    `toml:"rate_limit"`
	Quota             Quota        `toml:"quota"`
	Pauses            Pauses       `toml:"pauses"`
	Oracle            OracleRunner `toml:"oracle"`
	Logging           Logging      `toml:"logging"`
	Telemetry         Telemetry    `toml:"telemetry"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0])
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration written on first run.
func Default() *Config {
	cfg := &Config{
		ListenAddress: ":8480",
		DataDir:       "./yield-data",
		Backend:       BackendLevelDB,
		JWTSecretEnv:  JWTSecretEnvDefault,
		Accounts: Accounts{
			Yield:     "eosio.yield",
			Oracle:    "oracle.yield",
			Admin:     "admin.yield",
			Metadata:  "admin.yield",
			PriceFeed: "delphioracle",
		},
		RateLimit: RateLimit{PerSecond: 10, Burst: 20},
		Quota:     Quota{MaxActionsPerEpoch: 600, EpochSeconds: 3600},
		Oracle:    OracleRunner{Schedule: "@every 10m", Limit: 20},
		Logging:   Logging{Level: "info", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28},
	}
	return cfg
}

func applyDefaults(cfg *Config) {
	def := Default()
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = def.ListenAddress
	}
	if strings.TrimSpace(cfg.Backend) == "" {
		cfg.Backend = def.Backend
	}
	if cfg.JWTSecret == "" && cfg.JWTSecretEnv == "" {
		cfg.JWTSecretEnv = def.JWTSecretEnv
	}
	if cfg.Accounts.Yield == "" {
		cfg.Accounts.Yield = def.Accounts.Yield
	}
	if cfg.Accounts.Oracle == "" {
		cfg.Accounts.Oracle = def.Accounts.Oracle
	}
	if cfg.Accounts.Admin == "" {
		cfg.Accounts.Admin = def.Accounts.Admin
	}
	if cfg.Accounts.Metadata == "" {
		cfg.Accounts.Metadata = cfg.Accounts.Admin
	}
	if cfg.Accounts.PriceFeed == "" {
		cfg.Accounts.PriceFeed = def.Accounts.PriceFeed
	}
	if cfg.RateLimit.PerSecond == 0 {
		cfg.RateLimit = def.RateLimit
	}
	if cfg.Oracle.Schedule == "" {
		cfg.Oracle.Schedule = def.Oracle.Schedule
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
}

// ResolveJWTSecret returns the configured HMAC secret, reading it from the
// environment when JWTSecretEnv is set.
func (c *Config) ResolveJWTSecret() ([]byte, error) {
	if secret := strings.TrimSpace(c.JWTSecret); secret != "" {
		return []byte(secret), nil
	}
	name := strings.TrimSpace(c.JWTSecretEnv)
	if name == "" {
		return nil, fmt.Errorf("jwt secret not configured")
	}
	secret := strings.TrimSpace(os.Getenv(name))
	if secret == "" {
		return nil, fmt.Errorf("jwt secret env %s is empty", name)
	}
	return []byte(secret), nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
