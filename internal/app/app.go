package app

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/valyala/fasthttp"

	"toneai/internal/maintenance"
	"toneai/pkg/config"
	"toneai/pkg/logger"
	"toneai/pkg/messaging"
	"toneai/pkg/metrics"
	"toneai/pkg/store"
	"toneai/pkg/tone"
)

// App groups server state and components.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	db        *store.DB
	tone      tone.Service
	messaging *messaging.Service
	registry  *prometheus.Registry

	srvFast      *fasthttp.Server
	closeGateway func()
	maintenance  *maintenance.Manager
	state        string
}

// New sets up resources that don't need a running context: validation,
// the store and the rewrite provider. Run starts the http server.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	// validate config and fail fast if not valid
	if err := config.ValidateConfig(eff); err != nil {
		return nil, err
	}
	cfg := eff.Config

	logger.LogConfigSummary("config_summary", []string{
		fmt.Sprintf("source: %s", eff.Source),
		fmt.Sprintf("addr: %s", eff.Addr),
		fmt.Sprintf("db_path: %s", eff.DBPath),
		fmt.Sprintf("max_body_size: %s", humanize.IBytes(uint64(cfg.Server.MaxBodySize.Int64()))),
		fmt.Sprintf("request_timeout: %s", cfg.Server.RequestTimeout.Duration()),
		fmt.Sprintf("tone_provider: %s", cfg.Tone.Provider),
		fmt.Sprintf("relationships: %d", len(cfg.Tone.Relationships)),
		fmt.Sprintf("maintenance: %t", cfg.Maintenance.Enabled),
	})
	if len(cfg.Security.APIKeys.Frontend) == 0 && len(cfg.Security.APIKeys.Backend) == 0 {
		logger.Warn("no_api_keys_configured", "msg", "every /v1 request will be rejected")
	}

	// open store (creates the directory)
	if err := os.MkdirAll(eff.DBPath, 0o700); err != nil {
		return nil, fmt.Errorf("create db dir %s: %w", eff.DBPath, err)
	}
	db, err := store.Open(eff.DBPath, store.Options{DisableWAL: cfg.Server.DisableWAL})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	svc, err := tone.New(cfg.Tone.Provider, tone.OpenAIConfig{
		APIKey:        cfg.Tone.APIKey,
		BaseURL:       cfg.Tone.BaseURL,
		Model:         cfg.Tone.Model,
		Temperature:   cfg.Tone.Temperature,
		Timeout:       cfg.Tone.Timeout.Duration(),
		MaxRetries:    cfg.Tone.MaxRetries,
		RewritePrompt: cfg.Tone.SystemPrompt,
		ChatPrompt:    cfg.Tone.ChatPrompt,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterRuntime(reg)
	metrics.RegisterStore(reg, db)

	a := &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		db:        db,
		tone:      svc,
		registry:  reg,
		state:     "initialized",
	}
	a.messaging = messaging.New(db, svc, messaging.Options{
		Relationships: cfg.Tone.Relationships,
		Observer:      metrics.New(reg),
	})

	if cfg.Maintenance.Enabled {
		m, err := maintenance.New(cfg.Maintenance.Cron, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		a.maintenance = m
	}
	return a, nil
}

// Run starts maintenance and the http server, and blocks until context
// cancellation or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	if a.maintenance != nil {
		a.maintenance.Start(ctx)
	} else {
		logger.Info("maintenance_disabled")
	}

	errCh := a.startHTTP(ctx)
	a.state = "running"
	logger.Info("server_listening", "addr", a.eff.Addr, "version", a.version)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}
