package orchestratornode

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	"github.com/tanpawarit/civic-chat/agent/router"
)

type countingProvider struct {
	name   string
	block  string
	err    error
	panics bool
	after  atomic.Int32
}

func (p *countingProvider) Name() string { return p.name }

func (p *countingProvider) BeforeTurn(context.Context, string) (string, error) {
	return p.block, p.err
}

func (p *countingProvider) AfterTurn(context.Context, string, string, string) error {
	p.after.Add(1)
	if p.panics {
		panic("boom")
	}
	return p.err
}

func stateWith(providers ...contractx.ContextProvider) *GraphState {
	return &GraphState{
		SessionID: "s1",
		UserID:    "u1",
		Text:      "hola",
		Reply:     "respuesta",
		Binding:   router.Binding{Providers: providers},
	}
}

func TestBeforeTurnJoinsBlocksInOrder(t *testing.T) {
	t.Parallel()

	a := &countingProvider{name: "profile", block: "[INFORMACIÓN DEL USUARIO]"}
	b := &countingProvider{name: "broken", err: errors.New("down")}
	c := &countingProvider{name: "complaint", block: "[DENUNCIA EN CURSO]"}

	out, err := BeforeTurn(context.Background(), stateWith(a, b, c))
	if err != nil {
		t.Fatalf("BeforeTurn() error = %v", err)
	}
	if out.Context != "[INFORMACIÓN DEL USUARIO]\n\n[DENUNCIA EN CURSO]" {
		t.Fatalf("Context = %q", out.Context)
	}
}

func TestAfterTurnIsolatesProviders(t *testing.T) {
	t.Parallel()

	failing := &countingProvider{name: "profile", err: errors.New("persist failed")}
	panicking := &countingProvider{name: "other", panics: true}
	healthy := &countingProvider{name: "complaint"}

	if _, err := AfterTurn(context.Background(), stateWith(failing, panicking, healthy)); err != nil {
		t.Fatalf("AfterTurn() error = %v", err)
	}
	for _, p := range []*countingProvider{failing, panicking, healthy} {
		if p.after.Load() != 1 {
			t.Fatalf("provider %s ran %d times, want 1", p.name, p.after.Load())
		}
	}
}

func TestAfterTurnSkippedWhenCancelled(t *testing.T) {
	t.Parallel()

	p := &countingProvider{name: "profile"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := AfterTurn(ctx, stateWith(p)); err != nil {
		t.Fatalf("AfterTurn() error = %v", err)
	}
	if p.after.Load() != 0 {
		t.Fatalf("provider ran %d times after cancellation", p.after.Load())
	}
}

func TestFinalizeReplyRejectsEmpty(t *testing.T) {
	t.Parallel()

	if _, err := FinalizeReply(&GraphState{Reply: "  "}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("FinalizeReply() error = %v, want ErrValidation", err)
	}
}
