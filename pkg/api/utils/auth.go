package utils

import (
	"strings"

	"github.com/valyala/fasthttp"
)

const (
	HeaderAPIKey        = "X-API-Key"
	HeaderRoleName      = "X-Role-Name"
	HeaderUserID        = "X-User-ID"
	HeaderUserSignature = "X-User-Signature"
	HeaderUserToken     = "X-User-Token"
)

// Extracts an API key from either the Authorization header or the X-API-Key header
func ExtractAPIKey(ctx *fasthttp.RequestCtx) string {
	auth := GetHeader(ctx, "Authorization")

	// "Bearer <token>" with flexible whitespace
	if auth != "" {
		parts := strings.Fields(auth) // splits on ANY whitespace

		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	return GetHeader(ctx, HeaderAPIKey)
}

// Returns the value of the X-User-ID header
func GetUserID(ctx *fasthttp.RequestCtx) string {
	return GetHeader(ctx, HeaderUserID)
}

// Returns the value of the X-User-Signature header
func GetUserSignature(ctx *fasthttp.RequestCtx) string {
	return GetHeader(ctx, HeaderUserSignature)
}

// Returns the value of the X-User-Token header
func GetUserToken(ctx *fasthttp.RequestCtx) string {
	return GetHeader(ctx, HeaderUserToken)
}
