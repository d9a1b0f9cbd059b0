package config

import (
	"fmt"
	"strings"

	"github.com/adhocore/gronx"
)

// fail fast on values that are set but unusable
func ValidateConfig(eff EffectiveConfigResult) error {
	cfg := eff.Config
	if cfg == nil {
		return fmt.Errorf("effective config is nil")
	}
	// DB path must be present
	if strings.TrimSpace(eff.DBPath) == "" {
		return fmt.Errorf("database path is empty: set --db flag, TONEAI_DB_PATH env, or server.db_path in config")
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", cfg.Server.Port)
	}

	switch cfg.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid logging.format %q: want json or console", cfg.Logging.Format)
	}

	switch cfg.Tone.Provider {
	case "echo":
	case "openai":
		if cfg.Tone.APIKey == "" && cfg.Tone.BaseURL == "" {
			return fmt.Errorf("tone.provider openai needs tone.api_key, TONEAI_TONE_API_KEY or OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown tone.provider %q: want openai or echo", cfg.Tone.Provider)
	}
	if cfg.Tone.Temperature < 0 || cfg.Tone.Temperature > 2 {
		return fmt.Errorf("invalid tone.temperature %.2f: want 0..2", cfg.Tone.Temperature)
	}
	for _, r := range cfg.Tone.Relationships {
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("tone.relationships contains an empty label")
		}
	}

	if cfg.Maintenance.Cron != "" && !gronx.IsValid(cfg.Maintenance.Cron) {
		return fmt.Errorf("invalid maintenance.cron: %q is not a valid cron expression", cfg.Maintenance.Cron)
	}
	if cfg.Gesture.HoldThreshold.Duration() < 0 {
		return fmt.Errorf("gesture.hold_threshold must be positive")
	}
	return nil
}
