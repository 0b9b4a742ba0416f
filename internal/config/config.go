// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keychain.
//
// go-keychain is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package config loads the vaultcrypto configuration from YAML with
// VAULTCRYPTO_* environment overrides.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/kdf"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keychain"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keystore"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/logging"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/ratelimit"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VAULTCRYPTO_"

// Config is the complete configuration.
type Config struct {
	Logging  logging.Config   `yaml:"logging" mapstructure:"logging"`
	Keystore KeystoreConfig   `yaml:"keystore" mapstructure:"keystore"`
	Kdf      KdfConfig        `yaml:"kdf" mapstructure:"kdf"`
	Service  ServiceConfig    `yaml:"service" mapstructure:"service"`
	Throttle ratelimit.Config `yaml:"throttle" mapstructure:"throttle"`
	Metrics  MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
}

// KeystoreConfig selects the memory backend for key stores.
type KeystoreConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // auto, mlock, memfd
}

// KdfConfig is the KDF used for new accounts and by the CLI.
type KdfConfig struct {
	Type        string `yaml:"type" mapstructure:"type"` // pbkdf2, argon2id
	Iterations  uint32 `yaml:"iterations" mapstructure:"iterations"`
	Memory      uint32 `yaml:"memory" mapstructure:"memory"` // MiB
	Parallelism uint32 `yaml:"parallelism" mapstructure:"parallelism"`
}

// ServiceConfig tunes the CryptoService.
type ServiceConfig struct {
	Workers  int `yaml:"workers" mapstructure:"workers"`
	MinChunk int `yaml:"min_chunk" mapstructure:"min_chunk"`
}

// MetricsConfig switches Prometheus recording.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// Default returns a valid configuration.
func Default() *Config {
	return &Config{
		Logging:  logging.Config{Level: "info", Format: "text"},
		Keystore: KeystoreConfig{Backend: keystore.BackendAuto},
		Kdf: KdfConfig{
			Type:       kdf.PBKDF2.String(),
			Iterations: kdf.DefaultPBKDF2Iterations,
		},
		Service: ServiceConfig{MinChunk: keychain.DefaultMinChunk},
		Throttle: ratelimit.Config{
			Enabled:           true,
			AttemptsPerMinute: 5,
			Burst:             5,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads path over the defaults, then applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	// #nosec G304 - config file path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromEnv returns the defaults with environment overrides applied.
func FromEnv() (*Config, error) {
	cfg := Default()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv(EnvPrefix + "KEYSTORE_BACKEND"); v != "" {
		cfg.Keystore.Backend = v
	}
	if v := os.Getenv(EnvPrefix + "KDF_TYPE"); v != "" {
		cfg.Kdf.Type = v
	}
	envUint32(EnvPrefix+"KDF_ITERATIONS", &cfg.Kdf.Iterations)
	envUint32(EnvPrefix+"KDF_MEMORY", &cfg.Kdf.Memory)
	envUint32(EnvPrefix+"KDF_PARALLELISM", &cfg.Kdf.Parallelism)
	envInt(EnvPrefix+"WORKERS", &cfg.Service.Workers)
	envInt(EnvPrefix+"MIN_CHUNK", &cfg.Service.MinChunk)
	envBool(EnvPrefix+"THROTTLE_ENABLED", &cfg.Throttle.Enabled)
	envInt(EnvPrefix+"THROTTLE_ATTEMPTS_PER_MINUTE", &cfg.Throttle.AttemptsPerMinute)
	envInt(EnvPrefix+"THROTTLE_BURST", &cfg.Throttle.Burst)
	envDuration(EnvPrefix+"THROTTLE_MAX_WAIT", &cfg.Throttle.MaxWait)
	envBool(EnvPrefix+"METRICS_ENABLED", &cfg.Metrics.Enabled)
}

func envInt(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: invalid %s value %q, using %d: %v", name, v, *dst, err)
		return
	}
	*dst = n
}

func envUint32(name string, dst *uint32) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		log.Printf("Warning: invalid %s value %q, using %d: %v", name, v, *dst, err)
		return
	}
	*dst = uint32(n)
}

func envDuration(name string, dst *time.Duration) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Warning: invalid %s value %q, using %s: %v", name, v, *dst, err)
		return
	}
	*dst = d
}

func envBool(name string, dst *bool) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Warning: invalid %s value %q, using %t: %v", name, v, *dst, err)
		return
	}
	*dst = b
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	switch c.Keystore.Backend {
	case keystore.BackendAuto, keystore.BackendMlock, keystore.BackendMemfd:
	default:
		return fmt.Errorf("invalid keystore backend: %q (must be auto, mlock, or memfd)", c.Keystore.Backend)
	}

	k, err := c.Kdf.Kdf()
	if err != nil {
		return err
	}
	if err := k.Validate(); err != nil {
		return fmt.Errorf("kdf: %w", err)
	}

	if c.Service.Workers < 0 {
		return fmt.Errorf("service workers must not be negative: %d", c.Service.Workers)
	}
	if c.Service.MinChunk != 0 && c.Service.MinChunk < keychain.DefaultMinChunk {
		return fmt.Errorf("service min_chunk must be at least %d: %d", keychain.DefaultMinChunk, c.Service.MinChunk)
	}

	if c.Throttle.Enabled {
		if c.Throttle.AttemptsPerMinute <= 0 {
			return fmt.Errorf("throttle attempts_per_minute must be positive when enabled")
		}
		if c.Throttle.Burst < 0 {
			return fmt.Errorf("throttle burst must not be negative: %d", c.Throttle.Burst)
		}
		if c.Throttle.MaxWait < 0 {
			return fmt.Errorf("throttle max_wait must not be negative: %s", c.Throttle.MaxWait)
		}
	}
	return nil
}

// Kdf converts the KDF section. Zero numbers fall back to the defaults
// for the type.
func (k KdfConfig) Kdf() (kdf.Kdf, error) {
	out, err := kdf.ParseKdf(k.Type, "", "", "")
	if err != nil {
		return kdf.Kdf{}, err
	}
	if k.Iterations != 0 {
		out.Iterations = k.Iterations
	}
	if out.Type == kdf.Argon2id {
		if k.Memory != 0 {
			out.Memory = k.Memory
		}
		if k.Parallelism != 0 {
			out.Parallelism = k.Parallelism
		}
	}
	return out, nil
}

// ServiceConfig returns the CryptoService configuration.
func (c *Config) ServiceConfig() keychain.Config {
	return keychain.Config{
		Backend:  c.Keystore.Backend,
		Workers:  c.Service.Workers,
		MinChunk: c.Service.MinChunk,
	}
}
