// Package config loads hopd settings from a YAML file overlaid with HOP_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/branched-services/go-hop/ethhost"
	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "HOP"

// Store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreBolt   = "bolt"
)

// Config is the full hopd configuration.
type Config struct {
	Server struct {
		Listen          string        `yaml:"listen" split_words:"true"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	} `yaml:"server"`

	Store struct {
		Kind        string `yaml:"kind" split_words:"true"`
		RedisAddr   string `yaml:"redis_addr" split_words:"true"`
		RedisPrefix string `yaml:"redis_prefix" split_words:"true"`
		BoltPath    string `yaml:"bolt_path" split_words:"true"`
	} `yaml:"store"`

	Ledger struct {
		RPCList     []string        `yaml:"rpc_list" split_words:"true"`
		NativeDenom string          `yaml:"native_denom" split_words:"true"`
		Tokens      []ethhost.Token `yaml:"tokens" ignored:"true"`
	} `yaml:"ledger"`

	Contract struct {
		Address        string        `yaml:"address" split_words:"true"`
		Admin          string        `yaml:"admin" split_words:"true"`
		ChainID        string        `yaml:"chain_id" split_words:"true"`
		PacketLifetime time.Duration `yaml:"packet_lifetime" split_words:"true"`
		NotifyLifetime time.Duration `yaml:"notify_lifetime" split_words:"true"`
	} `yaml:"contract"`

	Log struct {
		Level      string `yaml:"level" split_words:"true"`
		File       string `yaml:"file" split_words:"true"`
		MaxSizeMB  int    `yaml:"max_size_mb" split_words:"true"`
		MaxBackups int    `yaml:"max_backups" split_words:"true"`
		MaxAgeDays int    `yaml:"max_age_days" split_words:"true"`
	} `yaml:"log"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Listen = ":8080"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Store.Kind = StoreMemory
	cfg.Store.RedisPrefix = "hop"
	cfg.Ledger.NativeDenom = "wei"
	cfg.Contract.ChainID = "hop-1"
	cfg.Log.Level = "info"
	cfg.Log.MaxSizeMB = 100
	cfg.Log.MaxBackups = 3
	cfg.Log.MaxAgeDays = 28
	return cfg
}

// Load reads path (skipped when empty), applies HOP_* environment variables
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := readFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("config: reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.SetStrict(true)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen is required"))
	}

	switch c.Store.Kind {
	case StoreMemory:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for the redis store"))
		}
	case StoreBolt:
		if c.Store.BoltPath == "" {
			errs = append(errs, errors.New("store.bolt_path is required for the bolt store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.kind %q is not one of memory, redis, bolt", c.Store.Kind))
	}

	if !common.IsHexAddress(c.Contract.Address) {
		errs = append(errs, fmt.Errorf("contract.address %q is not a hex address", c.Contract.Address))
	}
	if c.Contract.Admin != "" && !common.IsHexAddress(c.Contract.Admin) {
		errs = append(errs, fmt.Errorf("contract.admin %q is not a hex address", c.Contract.Admin))
	}

	for i, t := range c.Ledger.Tokens {
		if !common.IsHexAddress(t.Address) {
			errs = append(errs, fmt.Errorf("ledger.tokens[%d].address %q is not a hex address", i, t.Address))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ContractAddress returns the parsed contract address.
func (c *Config) ContractAddress() common.Address {
	return common.HexToAddress(c.Contract.Address)
}
