package utils

import (
	"fmt"
	"strconv"

	"github.com/valyala/fasthttp"

	"toneai/pkg/models"
)

const MaxPageLimit = 1000

// ParsePageRequest reads the optional limit/after conversation paging params
func ParsePageRequest(ctx *fasthttp.RequestCtx) (models.PageRequest, error) {
	req := models.PageRequest{After: GetQuery(ctx, "after")}

	if limitStr := GetQuery(ctx, "limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return req, fmt.Errorf("limit must be an integer")
		}
		req.Limit = limit
	}
	if req.Limit < 0 {
		return req, fmt.Errorf("limit must be at least 0")
	}
	if req.Limit > MaxPageLimit {
		return req, fmt.Errorf("limit cannot exceed %d", MaxPageLimit)
	}
	return req, nil
}
