package router

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/valyala/fasthttp"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Message: message})
}

func (vr *ValidationResult) Error() string {
	if vr.Valid {
		return ""
	}
	msg := "validation failed:"
	for _, err := range vr.Errors {
		msg += fmt.Sprintf(" %s;", err.Error())
	}
	return msg
}

func (vr *ValidationResult) Err() error {
	if vr.Valid {
		return nil
	}
	return vr
}

type ContactPayload struct {
	ContactID    string `json:"contact_id"`
	Relationship string `json:"relationship"`
}

type MessagePayload struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
	IsStamp    bool   `json:"is_stamp"`
}

type UserPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

type ChatTurnPayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatPayload struct {
	Relationship string            `json:"relationship"`
	Messages     []ChatTurnPayload `json:"messages"`
}

// decodes a required JSON body into v
func DecodeBody(ctx *fasthttp.RequestCtx, v interface{}) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return &ValidationError{Field: "body", Message: "request body is required"}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &ValidationError{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

func ValidateContactRequest(ctx *fasthttp.RequestCtx) (ContactPayload, error) {
	var payload ContactPayload
	if err := DecodeBody(ctx, &payload); err != nil {
		return payload, err
	}
	payload.ContactID = strings.TrimSpace(payload.ContactID)
	payload.Relationship = strings.TrimSpace(payload.Relationship)

	result := &ValidationResult{Valid: true}
	if payload.ContactID == "" {
		result.AddError("contact_id", "contact_id is required")
	}
	if payload.Relationship == "" {
		result.AddError("relationship", "relationship is required")
	}
	return payload, result.Err()
}

// content emptiness is left to the messaging service so the caller gets
// its dedicated error
func ValidateCreateMessageRequest(ctx *fasthttp.RequestCtx) (MessagePayload, error) {
	var payload MessagePayload
	if err := DecodeBody(ctx, &payload); err != nil {
		return payload, err
	}
	payload.ReceiverID = strings.TrimSpace(payload.ReceiverID)
	return payload, nil
}

func ValidateUserRequest(ctx *fasthttp.RequestCtx) (UserPayload, error) {
	var payload UserPayload
	if err := DecodeBody(ctx, &payload); err != nil {
		return payload, err
	}
	result := &ValidationResult{Valid: true}
	if strings.TrimSpace(payload.Name) == "" && strings.TrimSpace(payload.Email) == "" {
		result.AddError("name", "name or email is required")
	}
	if len(payload.Image) > 2048 {
		result.AddError("image", "image reference too long")
	}
	return payload, result.Err()
}

func ValidateChatRequest(ctx *fasthttp.RequestCtx) (ChatPayload, error) {
	var payload ChatPayload
	if err := DecodeBody(ctx, &payload); err != nil {
		return payload, err
	}
	result := &ValidationResult{Valid: true}
	if len(payload.Messages) == 0 {
		result.AddError("messages", "at least one message is required")
	}
	for i, m := range payload.Messages {
		if m.Role != "user" && m.Role != "assistant" {
			result.AddError(fmt.Sprintf("messages[%d].role", i), "role must be user or assistant")
		}
		if strings.TrimSpace(m.Content) == "" {
			result.AddError(fmt.Sprintf("messages[%d].content", i), "content is required")
		}
	}
	return payload, result.Err()
}
