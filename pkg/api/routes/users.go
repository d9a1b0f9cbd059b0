package routes

import (
	"github.com/valyala/fasthttp"

	"toneai/pkg/api/router"
	"toneai/pkg/api/utils"
	"toneai/pkg/models"
)

type UserResponse struct {
	User models.User `json:"user"`
}

// PutUser upserts a profile; backend only, enforced by the gateway.
func (h *Handlers) PutUser(ctx *fasthttp.RequestCtx) {
	userID := utils.GetPathParam(ctx, "userId")
	if userID == "" {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "userId missing")
		return
	}
	payload, err := router.ValidateUserRequest(ctx)
	if err != nil {
		writeError(ctx, err, "User not found")
		return
	}
	c, cancel := h.context()
	defer cancel()

	u, err := h.Users.PutUser(c, models.User{
		ID:    userID,
		Name:  payload.Name,
		Email: payload.Email,
		Image: payload.Image,
	})
	if err != nil {
		writeError(ctx, err, "User not found")
		return
	}
	_ = router.WriteJSON(ctx, fasthttp.StatusOK, UserResponse{User: u})
}

func (h *Handlers) GetUser(ctx *fasthttp.RequestCtx) {
	userID := utils.GetPathParam(ctx, "userId")
	if userID == "" {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "userId missing")
		return
	}
	c, cancel := h.context()
	defer cancel()

	u, err := h.Users.GetUser(c, userID)
	if err != nil {
		writeError(ctx, err, "User not found")
		return
	}
	_ = router.WriteJSON(ctx, fasthttp.StatusOK, UserResponse{User: u})
}
