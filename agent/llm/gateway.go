package llm

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	statex "github.com/tanpawarit/civic-chat/agent/state"
	openrouterx "github.com/tanpawarit/civic-chat/pkg/openrouter"
)

// Backend is the subset of openrouter.Completer the gateway needs.
type Backend interface {
	Complete(ctx context.Context, system string, history []openrouterx.Turn, utterance string) (string, error)
	Extract(ctx context.Context, prompt string, utterance string) (string, error)
}

// Gateway adapts an OpenRouter completer to the completion and extraction
// contracts. Backend failures are wrapped in contract.ErrModelInvoke.
type Gateway struct {
	backend Backend
}

var (
	_ contractx.Completer = (*Gateway)(nil)
	_ contractx.Extractor = (*Gateway)(nil)
)

func NewGateway(backend Backend) *Gateway {
	return &Gateway{backend: backend}
}

// NewOpenRouterGateway builds the client and completer for role. A non-nil
// usage tracker receives the token usage of every call under the role name.
func NewOpenRouterGateway(cfg Config, role Role, usage *openrouterx.UsageTracker) (*Gateway, error) {
	orCfg := cfg.OpenRouterFor(role)
	completer, err := openrouterx.NewCompleter(openrouterx.NewClient(orCfg), orCfg, openrouterx.WithUsageTracker(usage, string(role)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s gateway: %v", contractx.ErrValidation, role, err)
	}
	return NewGateway(completer), nil
}

func (g *Gateway) Complete(ctx context.Context, system string, history []statex.Message, utterance string) (string, error) {
	turns := make([]openrouterx.Turn, 0, len(history))
	for _, msg := range history {
		turns = append(turns, openrouterx.Turn{
			Assistant: msg.Role == statex.RoleAssistant,
			Text:      msg.Text,
		})
	}
	out, err := g.backend.Complete(ctx, system, turns, utterance)
	if err != nil {
		return "", fmt.Errorf("%w: complete: %v", contractx.ErrModelInvoke, err)
	}
	return out, nil
}

func (g *Gateway) Extract(ctx context.Context, prompt string, utterance string) (string, error) {
	out, err := g.backend.Extract(ctx, prompt, utterance)
	if err != nil {
		return "", fmt.Errorf("%w: extract: %v", contractx.ErrModelInvoke, err)
	}
	return out, nil
}
