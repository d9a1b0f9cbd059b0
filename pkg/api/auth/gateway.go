package auth

import (
	"net"
	"strings"

	"github.com/valyala/fasthttp"

	"toneai/pkg/api/router"
	"toneai/pkg/api/utils"
	"toneai/pkg/logger"
)

// Gateway is the request front door: cors, ip allow list, API key roles,
// route restrictions per role, per-key rate limits and caller identity.
type Gateway struct {
	cfg      SecConfig
	limiters *limiterPool
}

func NewGateway(cfg SecConfig) *Gateway {
	if cfg.SigningKeys == nil {
		cfg.SigningKeys = cfg.BackendKeys
	}
	return &Gateway{cfg: cfg, limiters: &limiterPool{cfg: cfg}}
}

// Close stops the limiter cleanup loop.
func (g *Gateway) Close() { g.limiters.Shutdown() }

func (g *Gateway) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	cfg := g.cfg
	return func(ctx *fasthttp.RequestCtx) {
		logger.LogRequestFast(ctx)

		// cors headers and handle options shortcut
		origin := utils.GetHeader(ctx, "Origin")
		if origin != "" && originAllowed(origin, cfg.AllowedOrigins) {
			ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
			ctx.Response.Header.Set("Vary", "Origin")
			ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			ctx.Response.Header.Set("Access-Control-Max-Age", "600")
			ctx.Response.Header.Set("Access-Control-Allow-Headers", "Authorization,Content-Type,X-API-Key,X-User-ID,X-User-Signature,X-User-Token")
			ctx.Response.Header.Set("Access-Control-Expose-Headers", "X-Role-Name")
		}
		if string(ctx.Method()) == fasthttp.MethodOptions {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		// ip whitelist check (always before all other checks except cors/options)
		if len(cfg.IPWhitelist) > 0 {
			ip := clientIPFast(ctx)
			if !ipWhitelisted(ip, cfg.IPWhitelist) {
				router.WriteJSONError(ctx, fasthttp.StatusForbidden, "forbidden")
				logger.Warn("request_blocked", "reason", "ip_not_whitelisted", "ip", ip, "path", utils.GetPath(ctx))
				return
			}
		}

		if publicAllowedPath(ctx) {
			ctx.Request.Header.Set(utils.HeaderRoleName, RoleUnauth.String())
			next(ctx)
			return
		}

		role, key := validateAPIKey(ctx, cfg)
		if role == RoleUnauth {
			router.WriteJSONError(ctx, fasthttp.StatusUnauthorized, "Unauthorized")
			logger.Warn("request_unauthorized", "path", utils.GetPath(ctx), "remote", ctx.RemoteAddr().String())
			return
		}
		ctx.Request.Header.Set(utils.HeaderRoleName, role.String())
		ctx.Response.Header.Set(utils.HeaderRoleName, role.String())

		// frontends only reach the user-facing routes
		if role == RoleFrontend && !frontendAllowedFast(ctx) {
			router.WriteJSONError(ctx, fasthttp.StatusForbidden, "forbidden")
			logger.Warn("request_forbidden", "reason", "frontend_not_allowed", "path", utils.GetPath(ctx))
			return
		}
		if role == RoleBackend && utils.HasPathPrefix(ctx, "/admin") {
			router.WriteJSONError(ctx, fasthttp.StatusForbidden, "backend api keys cannot access admin routes")
			logger.Warn("backend_admin_access_attempt", "path", utils.GetPath(ctx), "remote", ctx.RemoteAddr().String())
			return
		}
		// admins can only access /admin paths
		if role == RoleAdmin && !utils.HasPathPrefix(ctx, "/admin") {
			router.WriteJSONError(ctx, fasthttp.StatusForbidden, "admin api keys may only access /admin routes")
			logger.Warn("admin_route_violation", "path", utils.GetPath(ctx), "remote", ctx.RemoteAddr().String())
			return
		}

		// rate limiting (per-key)
		if !g.limiters.Allow(key) {
			router.WriteJSONError(ctx, fasthttp.StatusTooManyRequests, "rate limit exceeded")
			logger.Warn("rate_limited", "role", role.String(), "path", utils.GetPath(ctx))
			return
		}

		if role != RoleAdmin {
			id, err := resolveIdentity(ctx, role, cfg)
			if err != nil {
				router.WriteJSONError(ctx, fasthttp.StatusUnauthorized, "Unauthorized")
				logger.Warn("identity_rejected", "role", role.String(), "path", utils.GetPath(ctx), "error", err)
				return
			}
			if id != "" {
				setCaller(ctx, id)
			}
		}

		next(ctx)
	}
}

func clientIPFast(ctx *fasthttp.RequestCtx) string {
	host := ctx.RemoteAddr().String()
	h, _, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	return h
}

func validateAPIKey(ctx *fasthttp.RequestCtx, cfg SecConfig) (Role, string) {
	key := utils.ExtractAPIKey(ctx)
	if key == "" {
		return RoleUnauth, ""
	}
	if _, ok := cfg.AdminKeys[key]; ok {
		return RoleAdmin, key
	}
	if _, ok := cfg.BackendKeys[key]; ok {
		return RoleBackend, key
	}
	if _, ok := cfg.FrontendKeys[key]; ok {
		return RoleFrontend, key
	}
	return RoleUnauth, key
}

func frontendAllowedFast(ctx *fasthttp.RequestCtx) bool {
	for _, p := range []string{"/v1/contacts", "/v1/messages", "/v1/chat", "/v1/relationships"} {
		if utils.HasPathPrefix(ctx, p) {
			return true
		}
	}
	// profiles are written by backends only
	return utils.HasPathPrefix(ctx, "/v1/users") && string(ctx.Method()) == fasthttp.MethodGet
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

func ipWhitelisted(ip string, list []string) bool {
	for _, w := range list {
		if ip == w {
			return true
		}
	}
	return false
}

func publicAllowedPath(ctx *fasthttp.RequestCtx) bool {
	path := utils.GetPath(ctx)
	method := string(ctx.Method())
	return (path == "/healthz" || path == "/readyz") && method == fasthttp.MethodGet
}
