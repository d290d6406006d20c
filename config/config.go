// Package config loads and validates the gateway's JSON configuration:
// provider declarations, per-data-type routing chains, news
// deduplication tuning, circuit-breaker defaults, and performance
// knobs. A loaded Config is immutable for the lifetime of the process —
// there is no hot-reload path.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/finrelay/gateway/provider"
)

// Config is the complete, validated runtime configuration snapshot.
type Config struct {
	Version           string                  `json:"version"`
	Providers         []ProviderConfig        `json:"providers" validate:"required,min=1,dive"`
	Routing           RoutingConfig           `json:"routing"`
	NewsDeduplication NewsDeduplicationConfig `json:"newsDeduplication" validate:"required"`
	CircuitBreaker    CircuitBreakerConfig    `json:"circuitBreaker" validate:"required"`
	Performance       PerformanceConfig       `json:"performance"`
}

// ProviderConfig declares one upstream provider instance.
type ProviderConfig struct {
	ID       string            `json:"id" validate:"required"`
	Type     string            `json:"type" validate:"required"`
	Name     string            `json:"name"`
	Priority int               `json:"priority"`
	Enabled  bool              `json:"enabled"`
	Settings map[string]string `json:"settings,omitempty"`
}

// RoutingConfig maps data types to explicit chain descriptors. A data
// type absent from this map falls back to the registry's enabled
// providers sorted by priority.
type RoutingConfig struct {
	DataTypeRouting map[provider.DataType]ChainConfig `json:"dataTypeRouting"`
}

// ChainConfig is the explicit chain descriptor for one data type.
type ChainConfig struct {
	PrimaryProviderID   string   `json:"primaryProviderId" validate:"required"`
	FallbackProviderIDs []string `json:"fallbackProviderIds"`
	AggregateResults    bool     `json:"aggregateResults"`
	TimeoutSeconds      int      `json:"timeoutSeconds"`
}

// NewsDeduplicationConfig tunes the news deduplicator.
type NewsDeduplicationConfig struct {
	Enabled                  bool    `json:"enabled"`
	SimilarityThreshold      float64 `json:"similarityThreshold" validate:"gte=0.50,lte=0.99"`
	TimestampWindowHours     int     `json:"timestampWindowHours" validate:"gte=1,lte=168"`
	MaxArticlesForComparison int     `json:"maxArticlesForComparison" validate:"gte=10,lte=1000"`
}

// CircuitBreakerConfig supplies the default breaker tuning applied to
// every provider unless a provider-specific override exists.
type CircuitBreakerConfig struct {
	Enabled              bool `json:"enabled"`
	FailureThreshold     int  `json:"failureThreshold" validate:"gte=1"`
	HalfOpenAfterSeconds int  `json:"halfOpenAfterSeconds" validate:"gte=1"`
	TimeoutSeconds       int  `json:"timeoutSeconds" validate:"gte=0"`
}

// PerformanceConfig tunes the health monitor and background probing.
type PerformanceConfig struct {
	HealthCheckIntervalSeconds int `json:"healthCheckIntervalSeconds"`
	HealthWindowCap            int `json:"healthWindowCap"`
	HealthRetentionMinutes     int `json:"healthRetentionMinutes"`
}

// DefaultConfig returns the built-in defaults adopted when no config
// file path is given.
func DefaultConfig() *Config {
	return &Config{
		Version:   "1",
		Providers: nil,
		Routing:   RoutingConfig{DataTypeRouting: map[provider.DataType]ChainConfig{}},
		NewsDeduplication: NewsDeduplicationConfig{
			Enabled:                  true,
			SimilarityThreshold:      0.85,
			TimestampWindowHours:     24,
			MaxArticlesForComparison: 100,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:              true,
			FailureThreshold:     5,
			HalfOpenAfterSeconds: 30,
			TimeoutSeconds:       10,
		},
		Performance: PerformanceConfig{
			HealthCheckIntervalSeconds: 60,
			HealthWindowCap:            100,
			HealthRetentionMinutes:     5,
		},
	}
}

var envToken = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces every ${NAME} token with the value of the
// named environment variable. An unset variable is a hard error: unlike
// the legacy behavior this replaces, there is no default-value syntax
// and no silent fallback.
func expandEnvVars(s string) (string, error) {
	var firstErr error
	expanded := envToken.ReplaceAllStringFunc(s, func(token string) string {
		name := envToken.FindStringSubmatch(token)[1]
		val, ok := os.LookupEnv(name)
		if !ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("config: environment variable %q is not set", name)
			}
			return token
		}
		return val
	})
	if firstErr != nil {
		return "", firstErr
	}
	return expanded, nil
}

// Load loads and validates configuration from path. An empty path
// adopts DefaultConfig(). Any failure — unreadable file, invalid JSON,
// an unset ${NAME} reference, or a failing schema/semantic check — is
// fatal: Load never silently falls back to defaults once a path has
// been given.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %s", path, Redact(err.Error()))
	}

	expanded, err := expandEnvVars(string(raw))
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	cfg.Providers = nil
	dec := json.NewDecoder(strings.NewReader(expanded))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, redactErr(err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid %s: %w", path, redactErr(err))
	}

	return cfg, nil
}

var structValidator = validator.New()

// Validate runs struct-tag validation followed by the semantic checks
// tags can't express: provider ID uniqueness and chain resolution.
func (c *Config) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		return err
	}

	ids := make(map[string]struct{}, len(c.Providers))
	for _, p := range c.Providers {
		if _, dup := ids[p.ID]; dup {
			return fmt.Errorf("duplicate provider id %q", p.ID)
		}
		ids[p.ID] = struct{}{}
	}

	for dt, chain := range c.Routing.DataTypeRouting {
		if _, ok := ids[chain.PrimaryProviderID]; !ok {
			return fmt.Errorf("dataTypeRouting[%s]: primary provider %q is not declared", dt, chain.PrimaryProviderID)
		}
		for _, fb := range chain.FallbackProviderIDs {
			if _, ok := ids[fb]; !ok {
				return fmt.Errorf("dataTypeRouting[%s]: fallback provider %q is not declared", dt, fb)
			}
		}
	}

	return nil
}

// EnabledProvidersByPriority returns the configured providers that are
// enabled, sorted by ascending Priority, used as the default chain for
// any data type with no explicit routing entry.
func (c *Config) EnabledProvidersByPriority() []ProviderConfig {
	var out []ProviderConfig
	for _, p := range c.Providers {
		if p.Enabled {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

var secretRun = regexp.MustCompile(`[A-Za-z0-9]{16,}`)

// Redact sanitizes a diagnostic string by replacing any run of 16 or
// more alphanumerics with [REDACTED], so startup error messages never
// echo API keys or tokens embedded in a malformed config value.
func Redact(s string) string {
	return secretRun.ReplaceAllString(s, "[REDACTED]")
}

// redactErr wraps err so its Error() string is pre-redacted while still
// supporting errors.Is/As against the original.
func redactErr(err error) error {
	if err == nil {
		return nil
	}
	return redactedError{msg: Redact(err.Error()), cause: err}
}

type redactedError struct {
	msg   string
	cause error
}

func (e redactedError) Error() string { return e.msg }
func (e redactedError) Unwrap() error { return e.cause }
