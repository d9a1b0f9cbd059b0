package tone

import (
	"context"
	"strings"

	"toneai/pkg/stream"
)

// Echo is the offline provider: rewrites are the trimmed input and chat
// replies repeat the last user turn word by word.
type Echo struct{}

func (Echo) Rewrite(ctx context.Context, text, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return cleanRewrite(text)
}

func (Echo) ChatStream(ctx context.Context, _ string, history []Turn) (stream.Source, error) {
	if err := ValidateHistory(history); err != nil {
		return nil, err
	}
	var last string
	for _, t := range history {
		if t.Role == RoleUser {
			last = t.Content
		}
	}
	words := strings.Fields(last)
	frags := make([]string, len(words))
	for i, w := range words {
		if i > 0 {
			w = " " + w
		}
		frags[i] = w
	}
	return &stream.SliceSource{Fragments: frags}, nil
}
