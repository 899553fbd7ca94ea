package openrouter

import (
	"context"
	"errors"
	"strings"

	openaisdk "github.com/openai/openai-go"
)

const extractionMaxTokens = 500

// Turn is one prior exchange message passed to Complete.
type Turn struct {
	Assistant bool
	Text      string
}

// Completer issues plain chat completions through the OpenAI SDK.
type Completer struct {
	client      *openaisdk.Client
	model       string
	temperature float64
	maxTokens   int64

	usage *UsageTracker
	scope string
}

type CompleterOption func(*Completer)

// WithUsageTracker adds every call's token usage to tracker under scope.
func WithUsageTracker(tracker *UsageTracker, scope string) CompleterOption {
	return func(c *Completer) {
		c.usage = tracker
		c.scope = scope
	}
}

func NewCompleter(client *openaisdk.Client, cfg Config, opts ...CompleterOption) (*Completer, error) {
	if client == nil {
		return nil, errors.New("openrouter: client is required")
	}
	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		return nil, errors.New("openrouter: model is required")
	}

	c := &Completer{
		client:      client,
		model:       modelName,
		temperature: float64(cfg.Temperature),
		scope:       modelName,
	}
	for _, opt := range opts {
		opt(c)
	}
	if cfg.MaxCompletionToken != nil && *cfg.MaxCompletionToken > 0 {
		c.maxTokens = int64(*cfg.MaxCompletionToken)
	}
	return c, nil
}

// Complete sends system instructions, prior turns and the utterance.
func (c *Completer) Complete(ctx context.Context, system string, history []Turn, utterance string) (string, error) {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(history)+2)
	if s := strings.TrimSpace(system); s != "" {
		messages = append(messages, openaisdk.SystemMessage(s))
	}
	for _, t := range history {
		if t.Assistant {
			messages = append(messages, openaisdk.AssistantMessage(t.Text))
			continue
		}
		messages = append(messages, openaisdk.UserMessage(t.Text))
	}
	messages = append(messages, openaisdk.UserMessage(utterance))

	params := openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(c.model),
		Messages:    messages,
		Temperature: openaisdk.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openaisdk.Int(c.maxTokens)
	}
	return c.create(ctx, params)
}

// Extract runs a bounded extraction call and returns the raw text. The
// temperature comes from the config, which the extractor role keeps low.
func (c *Completer) Extract(ctx context.Context, prompt string, utterance string) (string, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(strings.TrimSpace(prompt)),
			openaisdk.UserMessage("Message: " + utterance),
		},
		Temperature: openaisdk.Float(c.temperature),
		MaxTokens:   openaisdk.Int(extractionMaxTokens),
	}
	return c.create(ctx, params)
}

func (c *Completer) create(ctx context.Context, params openaisdk.ChatCompletionNewParams) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	modelName := resp.Model
	if modelName == "" {
		modelName = c.model
	}
	c.usage.Record(c.scope, modelName, Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	})

	if len(resp.Choices) == 0 {
		return "", errors.New("openrouter: completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
