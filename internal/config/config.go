// Package config loads the dispatcher's TOML configuration (spec.md §6),
// applying defaults for every optional key and rejecting a missing mandatory
// one with dispatchererr.ConfigInvalid.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Ash20pk/breakchain-sub000/internal/dispatchererr"
)

// Config is the fully-resolved startup configuration.
type Config struct {
	ContractAddress     string   `toml:"contract_address"`
	RPCURL              string   `toml:"rpc_url"`
	ChainID             int64    `toml:"chain_id"`
	AccountKeys         []string `toml:"account_keys"`
	RecoveryAccountKeys []string `toml:"recovery_account_keys"`

	QueueProcessIntervalMS int64 `toml:"queue_process_interval_ms"`
	TransactionCooldownMS  int64 `toml:"transaction_cooldown_ms"`
	FaultThreshold         int   `toml:"fault_threshold"`

	RecoveryIntervalMS int64 `toml:"recovery_interval_ms"`
	RecoveryBatch      int   `toml:"recovery_batch"`
	MaxRetries         int   `toml:"max_retries"`
	TxAgeLimitHours    int64 `toml:"tx_age_limit_hours"`

	PendingStaleMS int64 `toml:"pending_stale_ms"`
	RetentionMS    int64 `toml:"retention_ms"`

	StoreURL     string `toml:"store_url"`
	StorePoolMax int32  `toml:"store_pool_max"`

	ListenAddr string `toml:"listen_addr"`
}

// defaults holds every optional key's value per spec.md §6's config table.
func defaults() Config {
	return Config{
		QueueProcessIntervalMS: 200,
		TransactionCooldownMS:  100,
		FaultThreshold:         5,
		RecoveryIntervalMS:     5 * 60 * 1000,
		RecoveryBatch:          5,
		MaxRetries:             5,
		TxAgeLimitHours:        48,
		PendingStaleMS:         60 * 60 * 1000,
		RetentionMS:            24 * 60 * 60 * 1000,
		StorePoolMax:           10,
		ListenAddr:             ":8080",
	}
}

// Load starts from the defaults, reads path as TOML over them, applies
// environment variable overrides, and validates mandatory fields. Only
// DISPATCHER_RPC_URL, DISPATCHER_CONTRACT_ADDRESS, DISPATCHER_STORE_URL,
// DISPATCHER_ACCOUNT_KEYS, DISPATCHER_RECOVERY_ACCOUNT_KEYS (both
// comma-separated) and DISPATCHER_LISTEN_ADDR are read; the other keys have
// no environment override.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, dispatchererr.Wrapf(dispatchererr.ConfigInvalid, "reading config file %s: %v", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DISPATCHER_RPC_URL"); v != "" {
		cfg.RPCURL = v
	}
	if v := os.Getenv("DISPATCHER_CONTRACT_ADDRESS"); v != "" {
		cfg.ContractAddress = v
	}
	if v := os.Getenv("DISPATCHER_STORE_URL"); v != "" {
		cfg.StoreURL = v
	}
	if v := os.Getenv("DISPATCHER_ACCOUNT_KEYS"); v != "" {
		cfg.AccountKeys = strings.Split(v, ",")
	}
	if v := os.Getenv("DISPATCHER_RECOVERY_ACCOUNT_KEYS"); v != "" {
		cfg.RecoveryAccountKeys = strings.Split(v, ",")
	}
	if v := os.Getenv("DISPATCHER_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
}

func (c *Config) validate() error {
	switch {
	case c.RPCURL == "":
		return dispatchererr.Wrap(dispatchererr.ConfigInvalid, "rpc_url is required")
	case c.ContractAddress == "":
		return dispatchererr.Wrap(dispatchererr.ConfigInvalid, "contract_address is required")
	case c.StoreURL == "":
		return dispatchererr.Wrap(dispatchererr.ConfigInvalid, "store_url is required")
	case len(c.AccountKeys) == 0:
		return dispatchererr.Wrap(dispatchererr.ConfigInvalid, "account_keys must contain at least one signer")
	case len(c.RecoveryAccountKeys) == 0:
		return dispatchererr.Wrap(dispatchererr.ConfigInvalid, "recovery_account_keys must contain at least one signer")
	}
	return nil
}

// QueueProcessInterval is QueueProcessIntervalMS as a time.Duration.
func (c *Config) QueueProcessInterval() time.Duration {
	return time.Duration(c.QueueProcessIntervalMS) * time.Millisecond
}

// TransactionCooldown is TransactionCooldownMS as a time.Duration.
func (c *Config) TransactionCooldown() time.Duration {
	return time.Duration(c.TransactionCooldownMS) * time.Millisecond
}

// RecoveryInterval is RecoveryIntervalMS as a time.Duration.
func (c *Config) RecoveryInterval() time.Duration {
	return time.Duration(c.RecoveryIntervalMS) * time.Millisecond
}

// TxAgeLimit is TxAgeLimitHours as a time.Duration.
func (c *Config) TxAgeLimit() time.Duration {
	return time.Duration(c.TxAgeLimitHours) * time.Hour
}

// PendingStale is PendingStaleMS as a time.Duration.
func (c *Config) PendingStale() time.Duration {
	return time.Duration(c.PendingStaleMS) * time.Millisecond
}

// Retention is RetentionMS as a time.Duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionMS) * time.Millisecond
}
