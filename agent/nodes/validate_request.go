package orchestratornode

import (
	"context"
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	"github.com/tanpawarit/civic-chat/agent/router"
	statex "github.com/tanpawarit/civic-chat/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

// TurnRouter is the router surface the pipeline needs.
type TurnRouter interface {
	Classify(ctx context.Context, utterance string, history []statex.Message) contractx.RouterDecision
	BindingFor(category contractx.IntentCategory) router.Binding
	Dispatch(ctx context.Context, req contractx.HandlerRequest, decision contractx.RouterDecision) (contractx.HandlerResponse, error)
}

type GraphInput struct {
	SessionID string
	UserID    string
	Text      string
	Language  string
}

type GraphOutput struct {
	Reply      string
	Category   contractx.IntentCategory
	Confidence float64
	Handler    string
	Language   string
	Fallback   bool
}

type GraphState struct {
	SessionID string
	UserID    string
	Text      string
	Language  string
	Now       time.Time

	Session  *statex.SessionState
	Decision contractx.RouterDecision
	Binding  router.Binding
	Context  string

	Response   contractx.HandlerResponse
	Reply      string
	Fallback   bool
	Validation contractx.ValidationResult
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		UserID:    strings.TrimSpace(in.UserID),
		Text:      text,
		Language:  strings.TrimSpace(in.Language),
		Now:       nowFn().UTC(),
	}, nil
}
