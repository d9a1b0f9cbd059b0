package api

import (
	"net/http"
	"net/http/pprof"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"toneai/pkg/api/router"
	"toneai/pkg/api/routes"
)

// wrapHTTPHandler wraps an http.Handler to work with fasthttp.
func wrapHTTPHandler(h http.Handler) func(ctx *fasthttp.RequestCtx) {
	return fasthttpadaptor.NewFastHTTPHandler(h)
}

// RegisterRoutes wires all API routes onto the provided router.
func RegisterRoutes(r *router.Router, h *routes.Handlers, gatherer prometheus.Gatherer) {
	// contact relationships
	r.GET("/v1/contacts", h.ListContacts)
	r.POST("/v1/contacts", h.CreateContact)
	r.PUT("/v1/contacts", h.UpdateContact)
	r.DELETE("/v1/contacts", h.DeleteContact)
	r.GET("/v1/relationships", h.ListRelationships)

	// messages
	r.GET("/v1/messages", h.ListMessages)
	r.POST("/v1/messages", h.CreateMessage)

	// chat demo
	r.POST("/v1/chat", h.Chat)

	// user directory
	r.GET("/v1/users/{userId}", h.GetUser)
	r.PUT("/v1/users/{userId}", h.PutUser)

	// admin
	r.GET("/admin/stats", h.AdminStats)

	// admin debug routes
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/admin/debug/prometheus", wrapHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	r.GET("/admin/debug/pprof/", wrapHTTPHandler(http.HandlerFunc(pprof.Index)))
	r.GET("/admin/debug/pprof/profile", wrapHTTPHandler(http.HandlerFunc(pprof.Profile)))
}

// Handler returns the fasthttp handler for the API.
func Handler(h *routes.Handlers, gatherer prometheus.Gatherer) fasthttp.RequestHandler {
	r := router.New()
	RegisterRoutes(r, h, gatherer)
	return r.Handler
}
