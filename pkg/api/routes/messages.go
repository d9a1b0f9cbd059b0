package routes

import (
	"context"
	"errors"

	"github.com/valyala/fasthttp"

	"toneai/pkg/api/router"
	"toneai/pkg/api/utils"
	"toneai/pkg/messaging"
	"toneai/pkg/models"
	"toneai/pkg/store"
)

type MessagesListResponse struct {
	Messages []models.MessageView `json:"messages"`
}

type MessageResponse struct {
	Message models.Message `json:"message"`
}

func (h *Handlers) ListMessages(ctx *fasthttp.RequestCtx) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	partner := utils.GetQuery(ctx, "receiver_id")
	if partner == "" {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "Missing receiver_id")
		return
	}
	page, err := utils.ParsePageRequest(ctx)
	if err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}
	c, cancel := h.context()
	defer cancel()

	msgs, err := h.Messaging.Conversation(c, caller, partner, page)
	if err != nil {
		writeError(ctx, err, "Message not found")
		return
	}

	names, err := h.displayNames(c, caller, partner)
	if err != nil {
		writeError(ctx, err, "User not found")
		return
	}
	out := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, models.MessageView{
			Message:      m,
			SenderName:   names[m.SenderID],
			ReceiverName: names[m.ReceiverID],
		})
	}
	_ = router.WriteJSON(ctx, fasthttp.StatusOK, MessagesListResponse{Messages: out})
}

func (h *Handlers) CreateMessage(ctx *fasthttp.RequestCtx) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	payload, err := router.ValidateCreateMessageRequest(ctx)
	if err != nil {
		writeError(ctx, err, "")
		return
	}
	c, cancel := h.context()
	defer cancel()

	msg, err := h.Messaging.Send(c, caller, messaging.SendInput{
		ReceiverID: payload.ReceiverID,
		Content:    payload.Content,
		IsStamp:    payload.IsStamp,
	})
	if err != nil {
		writeError(ctx, err, "")
		return
	}
	_ = router.WriteJSON(ctx, fasthttp.StatusOK, MessageResponse{Message: msg})
}

// missing profiles leave the name empty
func (h *Handlers) displayNames(ctx context.Context, ids ...string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if h.Users == nil {
		return names, nil
	}
	for _, id := range ids {
		u, err := h.Users.GetUser(ctx, id)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		names[id] = u.Name
	}
	return names, nil
}
