package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	statex "github.com/tanpawarit/civic-chat/agent/state"
	openrouterx "github.com/tanpawarit/civic-chat/pkg/openrouter"
)

func TestOpenRouterForOverrides(t *testing.T) {
	t.Parallel()

	cfg := Config{
		APIKey:               "k",
		Model:                "base/model",
		Temperature:          0.5,
		RouterModel:          "router/model",
		RouterTemperature:    0,
		ExtractorTemperature: 0.1,
		HandlerTemperature:   -1,
		MaxRetries:           2,
	}

	router := cfg.OpenRouterFor(RoleRouter)
	if router.Model != "router/model" || router.Temperature != 0 {
		t.Fatalf("router config = %+v", router)
	}
	if router.MaxRetries != 2 {
		t.Fatalf("MaxRetries = %d, want 2", router.MaxRetries)
	}

	educator := cfg.OpenRouterFor(RoleEducator)
	if educator.Model != "base/model" || educator.Temperature != 0.5 {
		t.Fatalf("educator config = %+v", educator)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := (Config{Model: "m"}).Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation", err)
	}
	if err := (Config{APIKey: "k", Model: "m"}).Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

type stubBackend struct {
	gotTurns []openrouterx.Turn
	err      error
}

func (s *stubBackend) Complete(_ context.Context, _ string, history []openrouterx.Turn, _ string) (string, error) {
	s.gotTurns = history
	return "ok", s.err
}

func (s *stubBackend) Extract(context.Context, string, string) (string, error) {
	return "{}", s.err
}

func TestGatewayConvertsHistory(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{}
	gw := NewGateway(backend)

	history := []statex.Message{statex.UserMessage("hola"), statex.AssistantMessage("¿en qué ayudo?")}
	if _, err := gw.Complete(context.Background(), "sys", history, "votar"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if len(backend.gotTurns) != 2 || backend.gotTurns[0].Assistant || !backend.gotTurns[1].Assistant {
		t.Fatalf("turns = %+v", backend.gotTurns)
	}
}

func TestGatewayWrapsErrors(t *testing.T) {
	t.Parallel()

	gw := NewGateway(&stubBackend{err: errors.New("boom")})
	if _, err := gw.Extract(context.Background(), "p", "u"); !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("Extract() error = %v, want ErrModelInvoke", err)
	}
}

func TestBuildMessagesOrder(t *testing.T) {
	t.Parallel()

	msgs := BuildMessages("sys", "[CTX]", []statex.Message{statex.UserMessage("a"), statex.AssistantMessage("b")}, "c")
	if len(msgs) != 5 {
		t.Fatalf("len = %d, want 5", len(msgs))
	}
	wantRoles := []schema.RoleType{schema.System, schema.System, schema.User, schema.Assistant, schema.User}
	for i, m := range msgs {
		if m.Role != wantRoles[i] {
			t.Fatalf("msgs[%d].Role = %s, want %s", i, m.Role, wantRoles[i])
		}
	}
	if msgs[4].Content != "c" {
		t.Fatalf("last message = %q", msgs[4].Content)
	}

	if got := BuildMessages("", "  ", nil, "hola"); len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
}

func TestUsageCallbackRecordsChatModelUsage(t *testing.T) {
	t.Parallel()

	tracker := openrouterx.NewUsageTracker()
	handler := UsageCallback(tracker, "guide")
	ctx := context.Background()
	modelInfo := &callbacks.RunInfo{Name: "model", Component: components.ComponentOfChatModel}

	handler.OnEnd(ctx, modelInfo, &einomodel.CallbackOutput{
		Config:     &einomodel.Config{Model: "openai/gpt-4o-mini"},
		TokenUsage: &einomodel.TokenUsage{PromptTokens: 10, CompletionTokens: 4, TotalTokens: 14},
	})
	handler.OnEnd(ctx, modelInfo, &schema.Message{
		Role:         schema.Assistant,
		Content:      "hola",
		ResponseMeta: &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 6, CompletionTokens: 2, TotalTokens: 8}},
	})
	handler.OnEnd(ctx, &callbacks.RunInfo{Name: "build_messages", Component: compose.ComponentOfLambda}, &schema.Message{
		ResponseMeta: &schema.ResponseMeta{Usage: &schema.TokenUsage{TotalTokens: 100}},
	})

	got := tracker.Totals("guide")
	want := openrouterx.Usage{Calls: 2, PromptTokens: 16, CompletionTokens: 6, TotalTokens: 22}
	if got != want {
		t.Fatalf("Totals() = %+v, want %+v", got, want)
	}
}
