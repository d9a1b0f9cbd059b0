package routes

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/valyala/fasthttp"

	"toneai/pkg/api/router"
	"toneai/pkg/logger"
	"toneai/pkg/stream"
	"toneai/pkg/tone"
)

type chatFragmentEvent struct {
	Text    string `json:"text"`
	Partial string `json:"partial"`
}

type chatRewrittenEvent struct {
	Original  string `json:"original"`
	Rewritten string `json:"rewritten"`
}

type chatDoneEvent struct {
	Text string `json:"text"`
}

type chatErrorEvent struct {
	Error string `json:"error"`
}

// Chat streams a demo reply as server-sent events. With a relationship set,
// the caller's last turn is first rewritten for it and announced in a
// rewritten event, and the model answers the rewritten text. Then come
// fragment events while text arrives, then exactly one done or error event.
func (h *Handlers) Chat(ctx *fasthttp.RequestCtx) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	payload, err := router.ValidateChatRequest(ctx)
	if err != nil {
		writeError(ctx, err, "")
		return
	}
	history := make([]tone.Turn, 0, len(payload.Messages))
	for _, m := range payload.Messages {
		history = append(history, tone.Turn{Role: m.Role, Content: m.Content})
	}

	c, cancel := h.context()
	var rewritten *chatRewrittenEvent
	if last := &history[len(history)-1]; payload.Relationship != "" && last.Role == "user" {
		out, err := h.Messaging.Transform(c, last.Content, payload.Relationship, false)
		if err != nil {
			cancel()
			logger.Warn("chat_rewrite_failed", "user", caller, "relationship", payload.Relationship, "error", err)
			writeError(ctx, err, "")
			return
		}
		rewritten = &chatRewrittenEvent{Original: last.Content, Rewritten: out}
		last.Content = out
	}

	src, err := h.Chatter.ChatStream(c, payload.Relationship, history)
	if err != nil {
		cancel()
		logger.Warn("chat_stream_failed", "user", caller, "error", err)
		router.WriteJSONError(ctx, fasthttp.StatusBadGateway, "Chat service unavailable")
		return
	}

	ctx.SetContentType("text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("X-Accel-Buffering", "no")
	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		if rewritten != nil {
			if err := writeEvent(w, "rewritten", rewritten); err != nil {
				_ = src.Close()
				return
			}
		}
		streamChat(c, cancel, w, src, caller)
	})
}

func streamChat(c context.Context, cancel context.CancelFunc, w *bufio.Writer, src stream.Source, caller string) {
	asm := &stream.Assembler{
		OnFragment: func(fragment, partial string) {
			if err := writeEvent(w, "fragment", chatFragmentEvent{Text: fragment, Partial: partial}); err != nil {
				// client went away; stop pulling from upstream
				cancel()
			}
		},
	}
	full, err := asm.Consume(c, src)
	if err != nil {
		logger.Warn("chat_stream_interrupted", "user", caller, "error", err)
		_ = writeEvent(w, "error", chatErrorEvent{Error: "stream interrupted"})
		return
	}
	_ = writeEvent(w, "done", chatDoneEvent{Text: full})
	logger.Debug("chat_stream_done", "user", caller, "chars", len(full))
}

func writeEvent(w *bufio.Writer, event string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}
