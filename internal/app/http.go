package app

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"

	"toneai/pkg/api"
	"toneai/pkg/api/auth"
	"toneai/pkg/api/router"
	"toneai/pkg/api/routes"
	"toneai/pkg/config"
	"toneai/pkg/config/banner"
)

// printBanner prints the startup banner and build info.
func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "" && a.commit != "none" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "" && a.buildDate != "unknown" {
		verStr += " @ " + a.buildDate
	}
	banner.PrintWithEff(a.eff, verStr)
}

// readyzHandlerFast handles the /readyz endpoint.
func (a *App) readyzHandlerFast(ctx *fasthttp.RequestCtx) {
	// check store
	if !a.db.Ready() {
		_ = router.WriteJSON(ctx, fasthttp.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	_ = router.WriteJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok", "version": ver})
}

// healthzHandlerFast handles the /healthz endpoint.
func (a *App) healthzHandlerFast(ctx *fasthttp.RequestCtx) {
	_ = router.WriteJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
}

// secConfig builds the gateway config from the effective config.
func secConfig(cfg *config.Config) auth.SecConfig {
	sec := auth.SecConfig{
		AllowedOrigins: append([]string{}, cfg.Security.CORS.AllowedOrigins...),
		RPS:            cfg.Security.RateLimit.RPS,
		Burst:          cfg.Security.RateLimit.Burst,
		IPWhitelist:    append([]string{}, cfg.Security.IPWhitelist...),
		BackendKeys:    config.KeySet(cfg.Security.APIKeys.Backend),
		FrontendKeys:   config.KeySet(cfg.Security.APIKeys.Frontend),
		AdminKeys:      config.KeySet(cfg.Security.APIKeys.Admin),
		JWTSecret:      cfg.Security.JWT.Secret,
		JWTIssuer:      cfg.Security.JWT.Issuer,
	}
	// nil lets the gateway fall back to the backend keys
	if len(cfg.Security.SigningKeys) > 0 {
		sec.SigningKeys = config.KeySet(cfg.Security.SigningKeys)
	}
	return sec
}

// handler builds the full request pipeline: gateway middleware in front of
// the router.
func (a *App) handler() fasthttp.RequestHandler {
	cfg := a.eff.Config
	gw := auth.NewGateway(secConfig(cfg))
	a.closeGateway = gw.Close

	r := router.New()
	// health and ready handlers
	r.GET("/healthz", a.healthzHandlerFast)
	r.GET("/readyz", a.readyzHandlerFast)

	api.RegisterRoutes(r, &routes.Handlers{
		Messaging:      a.messaging,
		Users:          a.db,
		Chatter:        a.tone,
		Stats:          a.db,
		RequestTimeout: cfg.Server.RequestTimeout.Duration(),
	}, a.registry)

	r.NotFound(func(ctx *fasthttp.RequestCtx) {
		router.WriteJSONError(ctx, fasthttp.StatusNotFound, "not found")
	})

	return gw.Middleware(r.Handler)
}

// startHTTP builds and starts the fasthttp server, returning a channel that delivers errors.
func (a *App) startHTTP(_ context.Context) <-chan error {
	cfg := a.eff.Config

	const (
		readBufferSize       = 64 * 1024       // 64 KiB read buffer per connection
		maxKeepaliveDuration = 2 * time.Minute // max duration for keep-alive connection
	)
	a.srvFast = &fasthttp.Server{
		Name:                 "toneai",
		Handler:              a.handler(),
		ReadBufferSize:       readBufferSize,
		MaxRequestBodySize:   int(cfg.Server.MaxBodySize.Int64()),
		ReduceMemoryUsage:    true,
		ReadTimeout:          cfg.Server.ReadTimeout.Duration(),
		WriteTimeout:         cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:          cfg.Server.IdleTimeout.Duration(),
		MaxKeepaliveDuration: maxKeepaliveDuration,
	}

	// start server in goroutine and return error channel
	errCh := make(chan error, 1)
	go func() {
		// plain TCP; TLS terminates at the proxy
		errCh <- a.srvFast.ListenAndServe(a.eff.Addr)
	}()
	return errCh
}
