// Package tone is the boundary to the text-generation service that rewrites
// messages for a relationship and streams demo chat replies.
package tone

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"toneai/pkg/stream"
)

var ErrTransformationFailed = errors.New("transformation failed")

// Rewriter rewrites text so it suits the sender's relationship to the
// receiver while keeping its intent and emotion.
type Rewriter interface {
	Rewrite(ctx context.Context, text, relationship string) (string, error)
}

// RewriterFunc adapts a function to Rewriter.
type RewriterFunc func(ctx context.Context, text, relationship string) (string, error)

func (f RewriterFunc) Rewrite(ctx context.Context, text, relationship string) (string, error) {
	return f(ctx, text, relationship)
}

// Turn is one entry of a chat history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Chatter streams an assistant reply for a chat history.
type Chatter interface {
	ChatStream(ctx context.Context, relationship string, history []Turn) (stream.Source, error)
}

// Service bundles both capabilities of one provider.
type Service interface {
	Rewriter
	Chatter
}

// ValidateHistory rejects histories the provider cannot answer.
func ValidateHistory(history []Turn) error {
	if len(history) == 0 {
		return errors.New("history is empty")
	}
	for i, t := range history {
		switch t.Role {
		case RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("turn %d: unknown role %q", i, t.Role)
		}
		if strings.TrimSpace(t.Content) == "" {
			return fmt.Errorf("turn %d: content is empty", i)
		}
	}
	return nil
}

// checks a rewrite result; empty or whitespace output is a malformed reply
func cleanRewrite(out string) (string, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: empty rewrite", ErrTransformationFailed)
	}
	return out, nil
}

const (
	ProviderOpenAI = "openai"
	ProviderEcho   = "echo"
)

// New builds the configured provider.
func New(provider string, cfg OpenAIConfig) (Service, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAI(cfg), nil
	case ProviderEcho:
		return Echo{}, nil
	default:
		return nil, fmt.Errorf("unknown tone provider %q", provider)
	}
}
