package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func request(method, uri, body string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	return ctx
}

func TestRouterParamsAndMethods(t *testing.T) {
	r := New()
	var got string
	r.GET("/v1/contacts", func(ctx *fasthttp.RequestCtx) { got = "list" })
	r.DELETE("/v1/contacts/{id}", func(ctx *fasthttp.RequestCtx) {
		got = "delete " + ctx.UserValue("id").(string)
	})
	r.GET("/", func(ctx *fasthttp.RequestCtx) { got = "root" })

	r.Handler(request("GET", "/v1/contacts", ""))
	assert.Equal(t, "list", got)

	r.Handler(request("DELETE", "/v1/contacts/bob", ""))
	assert.Equal(t, "delete bob", got)

	r.Handler(request("GET", "/", ""))
	assert.Equal(t, "root", got)

	ctx := request("POST", "/v1/contacts/bob", "")
	r.Handler(ctx)
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, ctx.Response.StatusCode())
	assert.Equal(t, "DELETE", string(ctx.Response.Header.Peek("Allow")))

	ctx = request("GET", "/v1/contacts/bob/extra", "")
	r.Handler(ctx)
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"error":"not found"}`, string(ctx.Response.Body()))
}

func TestRouterCustomNotFound(t *testing.T) {
	r := New()
	r.NotFound(func(ctx *fasthttp.RequestCtx) {
		WriteJSONError(ctx, fasthttp.StatusNotFound, "no such route")
	})
	ctx := request("GET", "/missing", "")
	r.Handler(ctx)
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "no such route")
}

func TestValidateContactRequest(t *testing.T) {
	p, err := ValidateContactRequest(request("POST", "/v1/contacts", `{"contact_id":" bob ","relationship":"friend"}`))
	require.NoError(t, err)
	assert.Equal(t, "bob", p.ContactID)

	_, err = ValidateContactRequest(request("POST", "/v1/contacts", `{"contact_id":"bob"}`))
	var vr *ValidationResult
	require.ErrorAs(t, err, &vr)
	assert.Len(t, vr.Errors, 1)
	assert.Equal(t, "relationship", vr.Errors[0].Field)

	_, err = ValidateContactRequest(request("POST", "/v1/contacts", ""))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "body", ve.Field)

	_, err = ValidateContactRequest(request("POST", "/v1/contacts", "{"))
	assert.ErrorContains(t, err, "invalid JSON")
}

func TestValidateChatRequest(t *testing.T) {
	_, err := ValidateChatRequest(request("POST", "/v1/chat",
		`{"relationship":"friend","messages":[{"role":"user","content":"hi"}]}`))
	assert.NoError(t, err)

	_, err = ValidateChatRequest(request("POST", "/v1/chat",
		`{"messages":[{"role":"system","content":""}]}`))
	var vr *ValidationResult
	require.ErrorAs(t, err, &vr)
	assert.Len(t, vr.Errors, 2)

	_, err = ValidateChatRequest(request("POST", "/v1/chat", `{"messages":[]}`))
	assert.ErrorContains(t, err, "at least one message")
}

func TestValidateUserRequest(t *testing.T) {
	_, err := ValidateUserRequest(request("PUT", "/v1/users/alice", `{"email":"a@example.com"}`))
	assert.NoError(t, err)

	_, err = ValidateUserRequest(request("PUT", "/v1/users/alice", `{"image":"x"}`))
	assert.ErrorContains(t, err, "name or email is required")
}
