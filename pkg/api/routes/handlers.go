// Package routes holds the HTTP handlers of the public and admin API.
package routes

import (
	"context"
	"errors"
	"time"

	"github.com/valyala/fasthttp"

	"toneai/pkg/api/auth"
	"toneai/pkg/api/router"
	"toneai/pkg/api/utils"
	"toneai/pkg/logger"
	"toneai/pkg/messaging"
	"toneai/pkg/models"
	"toneai/pkg/store"
	"toneai/pkg/tone"
)

// Directory is the user profile lookup.
type Directory interface {
	PutUser(ctx context.Context, u models.User) (models.User, error)
	GetUser(ctx context.Context, userID string) (models.User, error)
}

type StatsSource interface {
	Stats() (store.Stats, error)
}

// Handlers carries the services the routes call into.
type Handlers struct {
	Messaging *messaging.Service
	Users     Directory
	Chatter   tone.Chatter
	Stats     StatsSource
	// RequestTimeout bounds each handler's work, including rewrite calls.
	RequestTimeout time.Duration
}

func (h *Handlers) context() (context.Context, context.CancelFunc) {
	if h.RequestTimeout > 0 {
		return context.WithTimeout(context.Background(), h.RequestTimeout)
	}
	return context.WithCancel(context.Background())
}

// requireCaller writes 401 when the request carries no user identity.
func requireCaller(ctx *fasthttp.RequestCtx) (string, bool) {
	id := auth.CallerID(ctx)
	if id == "" {
		router.WriteJSONError(ctx, fasthttp.StatusUnauthorized, "Unauthorized")
		return "", false
	}
	return id, true
}

// writeError maps domain errors to status codes and client messages;
// notFound is the message for store.ErrNotFound.
func writeError(ctx *fasthttp.RequestCtx, err error, notFound string) {
	var vErr *router.ValidationError
	var vRes *router.ValidationResult
	switch {
	case errors.Is(err, messaging.ErrContentRequired):
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "Content is required")
	case errors.Is(err, messaging.ErrNoRelationship):
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "Contact relationship not found")
	case errors.Is(err, store.ErrDuplicateRelationship):
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "Contact already exists")
	case errors.Is(err, store.ErrNotFound):
		router.WriteJSONError(ctx, fasthttp.StatusNotFound, notFound)
	case errors.Is(err, store.ErrInvalidInput):
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, err.Error())
	case errors.As(err, &vErr), errors.As(err, &vRes):
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, err.Error())
	case errors.Is(err, tone.ErrTransformationFailed):
		router.WriteJSONError(ctx, fasthttp.StatusBadGateway, "Message transformation failed")
	case errors.Is(err, context.DeadlineExceeded):
		router.WriteJSONError(ctx, fasthttp.StatusGatewayTimeout, "request timed out")
	default:
		logger.Error("request_failed", "path", utils.GetPath(ctx), "error", err)
		router.WriteJSONError(ctx, fasthttp.StatusInternalServerError, "internal error")
	}
}
