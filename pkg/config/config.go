package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by ApplyDefaults.
const (
	defaultAddress        = "0.0.0.0"
	defaultPort           = 8080
	defaultMaxBodySize    = 1 << 20 // 1 MiB, messages are short
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 60 * time.Second // chat streams hold the writer open
	defaultIdleTimeout    = 60 * time.Second
	defaultRequestTimeout = 30 * time.Second

	defaultRateRPS   = 50
	defaultRateBurst = 100

	defaultLogLevel  = "info"
	defaultLogFormat = "json"

	defaultToneTimeout = 20 * time.Second
	defaultToneRetries = 2
	defaultToneTemp    = 0.7

	defaultMaintenanceCron = "0 3 * * *" // daily at 03:00
	defaultHoldThreshold   = 500 * time.Millisecond
)

// DefaultRelationships is the label set used when none is configured.
var DefaultRelationships = []string{"family", "friend", "colleague", "acquaintance"}

// Addr returns the HTTP server address as host:port.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = defaultAddress
	}
	port := c.Server.Port
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf("%s:%d", addr, port)
}

// LoadConfigFile reads and parses a config file.
func LoadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

// ParseConfig parses a YAML document.
func ParseConfig(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills in missing values. It never fails; Validate reports
// values that are set but wrong.
func (c *Config) ApplyDefaults() {
	s := &c.Server
	if s.MaxBodySize <= 0 {
		s.MaxBodySize = SizeBytes(defaultMaxBodySize)
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = Duration(defaultReadTimeout)
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = Duration(defaultWriteTimeout)
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = Duration(defaultIdleTimeout)
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = Duration(defaultRequestTimeout)
	}

	// Security defaults: rate limiting
	if c.Security.RateLimit.RPS <= 0 {
		c.Security.RateLimit.RPS = defaultRateRPS
	}
	if c.Security.RateLimit.Burst <= 0 {
		c.Security.RateLimit.Burst = defaultRateBurst
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}

	t := &c.Tone
	if t.APIKey == "" {
		t.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if t.Provider == "" {
		// a key means a real provider is wanted
		if t.APIKey != "" {
			t.Provider = "openai"
		} else {
			t.Provider = "echo"
		}
	}
	t.Provider = strings.ToLower(strings.TrimSpace(t.Provider))
	if t.Timeout <= 0 {
		t.Timeout = Duration(defaultToneTimeout)
	}
	if t.MaxRetries <= 0 {
		t.MaxRetries = defaultToneRetries
	}
	if t.Temperature == 0 {
		t.Temperature = defaultToneTemp
	}
	if t.Relationships == nil {
		t.Relationships = append([]string(nil), DefaultRelationships...)
	}

	if c.Maintenance.Cron == "" {
		c.Maintenance.Cron = defaultMaintenanceCron
	}
	if c.Gesture.HoldThreshold <= 0 {
		c.Gesture.HoldThreshold = Duration(defaultHoldThreshold)
	}
}

// ResolveConfigPath returns the config file path, preferring flag, then env.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("TONEAI_CONFIG"); p != "" {
		return p
	}
	return flagPath
}

// KeySet turns a key list into a lookup set, skipping blanks.
func KeySet(keys []string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			out[k] = struct{}{}
		}
	}
	return out
}
