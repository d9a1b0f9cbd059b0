package utils

import (
	"strings"

	"github.com/valyala/fasthttp"
)

// GetPath returns the request path as string
func GetPath(ctx *fasthttp.RequestCtx) string {
	return string(ctx.Path())
}

// HasPathPrefix checks if the request path is prefix or lies below it
func HasPathPrefix(ctx *fasthttp.RequestCtx, prefix string) bool {
	p := GetPath(ctx)
	return p == prefix || strings.HasPrefix(p, strings.TrimSuffix(prefix, "/")+"/")
}
