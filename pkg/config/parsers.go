package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
)

const envPrefix = "TONEAI_"

// holds parsed command-line flag values and which were set
type Flags struct {
	Addr   string
	DB     string
	Config string
	Set    map[string]bool
}

// holds the results of applying environment overrides
type EnvResult struct {
	EnvUsed bool
}

// holds the result of LoadEffectiveConfig
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string // "flags", "config", "env" or "defaults"
}

// parses command-line flags from os.Args
func ParseConfigFlags() (Flags, error) {
	return ParseFlags(flag.CommandLine, os.Args[1:])
}

// ParseFlags registers the server flags on set and parses args.
func ParseFlags(set *flag.FlagSet, args []string) (Flags, error) {
	addrPtr := set.String("addr", ":8080", "HTTP listen address")
	dbPtr := set.String("db", "./.database", "Pebble DB path")
	cfgPtr := set.String("config", "./config.yaml", "Path to config file")
	if err := set.Parse(args); err != nil {
		return Flags{}, err
	}

	// record which flags were set explicitly
	setFlags := make(map[string]bool)
	set.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	return Flags{Addr: *addrPtr, DB: *dbPtr, Config: *cfgPtr, Set: setFlags}, nil
}

// loads config from file, returns config, found bool, and error
func ParseConfigFile(flags Flags) (*Config, bool, error) {
	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := LoadConfigFile(cfgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

// loads TONEAI_* environment variables into a new Config
func ParseConfigEnvs() (*Config, EnvResult, error) {
	return parseEnvs(os.Getenv)
}

func parseEnvs(getenv func(string) string) (*Config, EnvResult, error) {
	var res EnvResult
	var errs []error
	get := func(name string) string {
		v := strings.TrimSpace(getenv(envPrefix + name))
		if v != "" {
			res.EnvUsed = true
		}
		return v
	}
	parseList := func(v string) []string {
		if v == "" {
			return nil
		}
		parts := []string{}
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				parts = append(parts, s)
			}
		}
		return parts
	}
	parseBool := func(v string) bool {
		switch strings.ToLower(v) {
		case "1", "true", "yes":
			return true
		default:
			return false
		}
	}
	parseInt := func(name, v string) int {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
		}
		return n
	}
	parseDur := func(name, v string) Duration {
		d, err := ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
		}
		return d
	}

	cfg := &Config{}

	// a combined address wins over address/port pairs
	if v := get("ADDR"); v != "" {
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			cfg.Server.Port = parseInt("ADDR", p)
		} else {
			cfg.Server.Address = v
		}
	} else {
		cfg.Server.Address = get("SERVER_ADDRESS")
		if v := get("SERVER_PORT"); v != "" {
			cfg.Server.Port = parseInt("SERVER_PORT", v)
		}
	}
	cfg.Server.DBPath = get("DB_PATH")
	if v := get("MAX_BODY_SIZE"); v != "" {
		size, err := ParseSizeBytes(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_BODY_SIZE: %w", envPrefix, err))
		}
		cfg.Server.MaxBodySize = size
	}
	if v := get("REQUEST_TIMEOUT"); v != "" {
		cfg.Server.RequestTimeout = parseDur("REQUEST_TIMEOUT", v)
	}

	// security
	cfg.Security.CORS.AllowedOrigins = parseList(get("CORS_ORIGINS"))
	if v := get("RATE_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRATE_RPS: %w", envPrefix, err))
		}
		cfg.Security.RateLimit.RPS = f
	}
	if v := get("RATE_BURST"); v != "" {
		cfg.Security.RateLimit.Burst = parseInt("RATE_BURST", v)
	}
	cfg.Security.IPWhitelist = parseList(get("IP_WHITELIST"))
	cfg.Security.APIKeys.Backend = parseList(get("API_BACKEND_KEYS"))
	cfg.Security.APIKeys.Frontend = parseList(get("API_FRONTEND_KEYS"))
	cfg.Security.APIKeys.Admin = parseList(get("API_ADMIN_KEYS"))
	cfg.Security.SigningKeys = parseList(get("SIGNING_KEYS"))
	cfg.Security.JWT.Secret = get("JWT_SECRET")
	cfg.Security.JWT.Issuer = get("JWT_ISSUER")

	// logging
	cfg.Logging.Level = get("LOG_LEVEL")
	cfg.Logging.Format = get("LOG_FORMAT")

	// tone provider
	cfg.Tone.Provider = get("TONE_PROVIDER")
	cfg.Tone.Model = get("TONE_MODEL")
	cfg.Tone.BaseURL = get("TONE_BASE_URL")
	cfg.Tone.APIKey = get("TONE_API_KEY")
	if v := get("TONE_TIMEOUT"); v != "" {
		cfg.Tone.Timeout = parseDur("TONE_TIMEOUT", v)
	}
	if v := get("TONE_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTONE_TEMPERATURE: %w", envPrefix, err))
		}
		cfg.Tone.Temperature = f
	}
	cfg.Tone.Relationships = parseList(get("TONE_RELATIONSHIPS"))

	// maintenance
	if v := get("MAINTENANCE_ENABLED"); v != "" {
		cfg.Maintenance.Enabled = parseBool(v)
	}
	cfg.Maintenance.Cron = get("MAINTENANCE_CRON")

	if v := get("GESTURE_HOLD_THRESHOLD"); v != "" {
		cfg.Gesture.HoldThreshold = parseDur("GESTURE_HOLD_THRESHOLD", v)
	}

	return cfg, res, errors.Join(errs...)
}

// decides which single source to use (flags, config file, or env) and returns the effective config plus resolved addr and dbPath. if --config is set, only the config file is used; otherwise flags if set; else config file if present; else env
func LoadEffectiveConfig(flags Flags, fileCfg *Config, fileExists bool, envCfg *Config, envRes EnvResult) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult
	if fileCfg == nil {
		fileCfg = &Config{}
	}
	if envCfg == nil {
		envCfg = &Config{}
	}

	if flags.Set["config"] {
		if !fileExists {
			return res, fmt.Errorf("config file %s not found", flags.Config)
		}
		return effective(fileCfg, "config"), nil
	}

	if flags.Set["addr"] || flags.Set["db"] {
		// flags only carry the listener and db path; everything else still
		// comes from the file when there is one
		base := envCfg
		if fileExists {
			base = fileCfg
		}
		out := *base
		if flags.Set["addr"] {
			host, port := splitAddr(flags.Addr)
			out.Server.Address = host
			out.Server.Port = port
		}
		if flags.Set["db"] {
			out.Server.DBPath = flags.DB
		}
		return effective(&out, "flags"), nil
	}

	if fileExists {
		return effective(fileCfg, "config"), nil
	}
	src := "env"
	if !envRes.EnvUsed {
		src = "defaults"
	}
	if envCfg.Server.DBPath == "" {
		envCfg.Server.DBPath = flags.DB
	}
	return effective(envCfg, src), nil
}

func effective(cfg *Config, source string) EffectiveConfigResult {
	cfg.ApplyDefaults()
	return EffectiveConfigResult{
		Config: cfg,
		Addr:   cfg.Addr(),
		DBPath: cfg.Server.DBPath,
		Source: source,
	}
}

// splits host:port; a missing host listens on all interfaces
func splitAddr(a string) (string, int) {
	h, p, err := net.SplitHostPort(a)
	if err != nil {
		return a, 0
	}
	port, _ := strconv.Atoi(p)
	return h, port
}
