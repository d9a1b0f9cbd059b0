package routes

import (
	"github.com/valyala/fasthttp"

	"toneai/pkg/api/router"
)

type AdminStatsResponse struct {
	Contacts int `json:"contacts"`
	Users    int `json:"users"`
	Messages int `json:"messages"`
}

func (h *Handlers) AdminStats(ctx *fasthttp.RequestCtx) {
	st, err := h.Stats.Stats()
	if err != nil {
		writeError(ctx, err, "")
		return
	}
	_ = router.WriteJSON(ctx, fasthttp.StatusOK, AdminStatsResponse{
		Contacts: st.Contacts,
		Users:    st.Users,
		Messages: st.Messages,
	})
}
