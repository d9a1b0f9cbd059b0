package tone

import (
	"context"
	"fmt"
	"time"

	"toneai/pkg/logger"
	"toneai/pkg/stream"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"
)

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	// RewritePrompt and ChatPrompt may contain {{relationship}}.
	RewritePrompt string
	ChatPrompt    string
}

// OpenAI talks to an OpenAI compatible chat completions endpoint.
type OpenAI struct {
	client openai.Client
	cfg    OpenAIConfig
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	opts := []option.RequestOption{
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.ChatModelGPT4oMini)
	}
	if cfg.RewritePrompt == "" {
		cfg.RewritePrompt = DefaultRewritePrompt
	}
	if cfg.ChatPrompt == "" {
		cfg.ChatPrompt = DefaultChatPrompt
	}
	return &OpenAI{client: openai.NewClient(opts...), cfg: cfg}
}

func (o *OpenAI) Rewrite(ctx context.Context, text, relationship string) (string, error) {
	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(RenderPrompt(o.cfg.RewritePrompt, relationship)),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(o.cfg.Temperature),
	})
	if err != nil {
		logger.Warn("openai_rewrite_failed", "model", o.cfg.Model, "error", err)
		return "", fmt.Errorf("%w: %v", ErrTransformationFailed, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", ErrTransformationFailed)
	}
	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", fmt.Errorf("%w: response filtered", ErrTransformationFailed)
	}
	out, err := cleanRewrite(choice.Message.Content)
	if err != nil {
		return "", err
	}
	logger.Debug("openai_rewrite_ok", "model", o.cfg.Model, "relationship", relationship, "took", time.Since(start))
	return out, nil
}

func (o *OpenAI) ChatStream(ctx context.Context, relationship string, history []Turn) (stream.Source, error) {
	if err := ValidateHistory(history); err != nil {
		return nil, err
	}
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	msgs = append(msgs, openai.SystemMessage(RenderPrompt(o.cfg.ChatPrompt, relationship)))
	for _, t := range history {
		if t.Role == RoleAssistant {
			msgs = append(msgs, openai.AssistantMessage(t.Content))
		} else {
			msgs = append(msgs, openai.UserMessage(t.Content))
		}
	}
	st := o.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.cfg.Model),
		Messages:    msgs,
		Temperature: openai.Float(o.cfg.Temperature),
	})
	return &chunkSource{st: st}, nil
}

// chunkSource exposes the delta text of each completion chunk
type chunkSource struct {
	st *ssestream.Stream[openai.ChatCompletionChunk]
}

func (c *chunkSource) Next() bool { return c.st.Next() }

func (c *chunkSource) Current() string {
	chunk := c.st.Current()
	if len(chunk.Choices) == 0 {
		return ""
	}
	return chunk.Choices[0].Delta.Content
}

func (c *chunkSource) Err() error   { return c.st.Err() }
func (c *chunkSource) Close() error { return c.st.Close() }
