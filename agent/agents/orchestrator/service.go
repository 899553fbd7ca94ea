// Package orchestrator runs one chat turn through the classify, hook,
// dispatch and persist pipeline.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	nodex "github.com/tanpawarit/civic-chat/agent/nodes"
	statex "github.com/tanpawarit/civic-chat/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

type (
	Request = nodex.GraphInput
	Reply   = nodex.GraphOutput
)

type Config struct {
	ChannelType string
}

type Option func(*Orchestrator)

// WithValidator checks every handler reply before it is delivered.
func WithValidator(v contractx.OutputValidator) Option {
	return func(o *Orchestrator) { o.validator = v }
}

// WithTranslator enables language detection and translated fallbacks.
func WithTranslator(t contractx.Translator) Option {
	return func(o *Orchestrator) { o.translator = t }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithUserIDGenerator sets how anonymous users are named.
func WithUserIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) { o.newUserID = gen }
}

// Orchestrator is safe for concurrent use across sessions. The host must
// serialize turns within one session.
type Orchestrator struct {
	store      statex.Store
	router     nodex.TurnRouter
	validator  contractx.OutputValidator
	translator contractx.Translator

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	channelType string
	now         func() time.Time
	newUserID   func() string
}

func New(
	store statex.Store,
	router nodex.TurnRouter,
	cfg Config,
	opts ...Option,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if router == nil {
		return nil, errors.New("router is required")
	}

	channelType := strings.TrimSpace(cfg.ChannelType)
	if channelType == "" {
		channelType = "chat"
	}

	o := &Orchestrator{
		store:       store,
		router:      router,
		channelType: channelType,
		now:         time.Now,
		newUserID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Handle runs one turn. Only request validation and graph failures surface
// as errors; handler and hook failures are folded into the reply.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (Reply, error) {
	return o.graphRunner.Invoke(ctx, req)
}

func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID string, text string) (string, error) {
	out, err := o.Handle(ctx, Request{SessionID: sessionID, Text: text})
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}
