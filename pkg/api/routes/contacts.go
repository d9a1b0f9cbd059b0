package routes

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/valyala/fasthttp"

	"toneai/pkg/api/router"
	"toneai/pkg/api/utils"
	"toneai/pkg/models"
)

type ContactsListResponse struct {
	Contacts []models.ContactView `json:"contacts"`
}

type ContactResponse struct {
	Contact models.ContactRelationship `json:"contact"`
}

type RelationshipsResponse struct {
	Relationships []string `json:"relationships"`
	// Open is true when any label is accepted.
	Open bool `json:"open"`
}

func (h *Handlers) ListContacts(ctx *fasthttp.RequestCtx) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	c, cancel := h.context()
	defer cancel()

	contacts, err := h.Messaging.Contacts(c, caller)
	if err != nil {
		writeError(ctx, err, "Contact not found")
		return
	}
	_ = router.WriteJSON(ctx, fasthttp.StatusOK, ContactsListResponse{Contacts: contacts})
}

func (h *Handlers) CreateContact(ctx *fasthttp.RequestCtx) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	payload, err := router.ValidateContactRequest(ctx)
	if err != nil {
		writeContactValidation(ctx, err)
		return
	}
	c, cancel := h.context()
	defer cancel()

	rel, err := h.Messaging.AddContact(c, caller, payload.ContactID, payload.Relationship)
	if err != nil {
		writeError(ctx, err, "Contact not found")
		return
	}
	_ = router.WriteJSON(ctx, fasthttp.StatusOK, ContactResponse{Contact: rel})
}

func (h *Handlers) UpdateContact(ctx *fasthttp.RequestCtx) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	payload, err := router.ValidateContactRequest(ctx)
	if err != nil {
		writeContactValidation(ctx, err)
		return
	}
	c, cancel := h.context()
	defer cancel()

	rel, err := h.Messaging.UpdateContact(c, caller, payload.ContactID, payload.Relationship)
	if err != nil {
		writeError(ctx, err, "Contact not found")
		return
	}
	_ = router.WriteJSON(ctx, fasthttp.StatusOK, ContactResponse{Contact: rel})
}

// DeleteContact takes contact_id from the query, or from a JSON body.
func (h *Handlers) DeleteContact(ctx *fasthttp.RequestCtx) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	contactID := utils.GetQuery(ctx, "contact_id")
	if contactID == "" && len(ctx.PostBody()) > 0 {
		var payload router.ContactPayload
		if err := json.Unmarshal(ctx.PostBody(), &payload); err == nil {
			contactID = strings.TrimSpace(payload.ContactID)
		}
	}
	if contactID == "" {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "Missing contact_id")
		return
	}
	c, cancel := h.context()
	defer cancel()

	if err := h.Messaging.RemoveContact(c, caller, contactID); err != nil {
		writeError(ctx, err, "Contact not found")
		return
	}
	router.WriteJSONOk(ctx, map[string]interface{}{"success": true})
}

func (h *Handlers) ListRelationships(ctx *fasthttp.RequestCtx) {
	labels := h.Messaging.Relationships()
	_ = router.WriteJSON(ctx, fasthttp.StatusOK, RelationshipsResponse{
		Relationships: append([]string{}, labels...),
		Open:          len(labels) == 0,
	})
}

func writeContactValidation(ctx *fasthttp.RequestCtx, err error) {
	var vRes *router.ValidationResult
	if errors.As(err, &vRes) {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "Missing required fields")
		return
	}
	router.WriteJSONError(ctx, fasthttp.StatusBadRequest, err.Error())
}
