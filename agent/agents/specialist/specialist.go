// Package specialist runs the per-category handlers: one tool-calling model
// per handler with a bounded tool loop.
package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	llmx "github.com/tanpawarit/civic-chat/agent/llm"
	promptx "github.com/tanpawarit/civic-chat/agent/prompt"
	toolx "github.com/tanpawarit/civic-chat/agent/tool"
	openrouterx "github.com/tanpawarit/civic-chat/pkg/openrouter"
)

// MaxToolRounds bounds how many times a handler may call tools in one turn.
const MaxToolRounds = 3

type Handler struct {
	cfg     HandlerConfig
	runner  compose.Runnable[turnInput, *schema.Message]
	execute toolx.Executor
	invoke  []compose.Option
}

var _ contractx.Handler = (*Handler)(nil)

type HandlerOption func(*Handler)

// WithUsageTracker records each model round's token usage under the
// handler name.
func WithUsageTracker(tracker *openrouterx.UsageTracker) HandlerOption {
	return func(h *Handler) {
		h.invoke = append(h.invoke, compose.WithCallbacks(llmx.UsageCallback(tracker, h.cfg.Name)))
	}
}

func NewHandler(
	ctx context.Context,
	cfg HandlerConfig,
	chatModel einomodel.ToolCallingChatModel,
	catalog *toolx.Catalog,
	opts ...HandlerOption,
) (*Handler, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required for handler %s", contractx.ErrValidation, cfg.Name)
	}
	if catalog == nil {
		catalog = toolx.NewCatalog(toolx.Deps{})
	}
	systemPrompt, err := promptx.Lookup(cfg.Prompt)
	if err != nil {
		return nil, err
	}

	infos, execute, err := catalog.Build(cfg.Tools)
	if err != nil {
		return nil, err
	}
	var model einomodel.BaseChatModel = chatModel
	if len(infos) > 0 {
		toolModel, err := chatModel.WithTools(infos)
		if err != nil {
			return nil, fmt.Errorf("%w: bind tools for handler=%s: %v", contractx.ErrModelInvoke, cfg.Name, err)
		}
		model = toolModel
	}

	runner, err := compileHandlerGraph(ctx, model, systemPrompt, cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	h := &Handler{cfg: cfg, runner: runner, execute: execute}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *Handler) Name() string { return h.cfg.Name }

func (h *Handler) Config() HandlerConfig { return h.cfg }

// Run answers one turn. Tool calls are executed and fed back for at most
// MaxToolRounds rounds; a model still asking for tools after that must have
// produced text or the turn fails with ErrSchemaViolation.
func (h *Handler) Run(ctx context.Context, req contractx.HandlerRequest) (contractx.HandlerResponse, error) {
	var (
		scratch []*schema.Message
		results []contractx.ToolResult
	)
	for round := 0; ; round++ {
		msg, err := h.runner.Invoke(ctx, turnInput{Req: req, Scratch: scratch}, h.invoke...)
		if err != nil {
			return contractx.HandlerResponse{}, fmt.Errorf("%w: handler=%s invoke: %v", contractx.ErrModelInvoke, h.cfg.Name, err)
		}
		if msg == nil {
			return contractx.HandlerResponse{}, fmt.Errorf("%w: handler=%s empty response", contractx.ErrSchemaViolation, h.cfg.Name)
		}

		text := strings.TrimSpace(msg.Content)
		if len(msg.ToolCalls) == 0 || round >= MaxToolRounds {
			if text == "" {
				return contractx.HandlerResponse{}, fmt.Errorf("%w: handler=%s produced no text after %d tool rounds", contractx.ErrSchemaViolation, h.cfg.Name, round)
			}
			return contractx.HandlerResponse{Handler: h.cfg.Name, Text: text, ToolResults: results}, nil
		}

		requests, err := toToolRequests(msg.ToolCalls)
		if err != nil {
			return contractx.HandlerResponse{}, err
		}
		scratch = append(scratch, msg)
		for _, tr := range requests {
			out, err := h.execute(ctx, tr.Tool, tr.Args)
			if err != nil {
				return contractx.HandlerResponse{}, err
			}
			log.Debug().Str("handler", h.cfg.Name).Str("tool", tr.Tool).Bool("failed", out.Error != "").Msg("tool executed")
			results = append(results, out)
			scratch = append(scratch, schema.ToolMessage(encodeToolResult(out), tr.ID))
		}
	}
}

func encodeToolResult(out contractx.ToolResult) string {
	raw, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"tool":%q,"error":"unencodable result"}`, out.Tool)
	}
	return string(raw)
}

func toToolRequests(calls []schema.ToolCall) ([]contractx.ToolRequest, error) {
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for _, call := range calls {
		tool := strings.TrimSpace(call.Function.Name)
		if tool == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}

		args := map[string]any{}
		rawArgs := strings.TrimSpace(call.Function.Arguments)
		if rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, tool, err)
			}
		}

		reqs = append(reqs, contractx.ToolRequest{
			ID:   call.ID,
			Tool: tool,
			Args: args,
		})
	}
	return reqs, nil
}
