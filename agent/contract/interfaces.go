package contract

import (
	"context"

	statex "github.com/tanpawarit/civic-chat/agent/state"
)

// Completer is the chat-completion gateway.
type Completer interface {
	Complete(ctx context.Context, systemInstructions string, history []statex.Message, utterance string) (string, error)
}

// Extractor returns the raw model text for a structured-extraction prompt.
// Callers parse the text defensively.
type Extractor interface {
	Extract(ctx context.Context, prompt string, utterance string) (string, error)
}

type Classifier interface {
	Classify(ctx context.Context, utterance string, history []statex.Message) (RouterDecision, error)
}

type Handler interface {
	Name() string
	Run(ctx context.Context, req HandlerRequest) (HandlerResponse, error)
}

// ContextProvider is the before/after hook pair run around a handler turn.
type ContextProvider interface {
	Name() string
	BeforeTurn(ctx context.Context, userID string) (string, error)
	AfterTurn(ctx context.Context, userID string, utterance string, response string) error
}

type WebSearcher interface {
	Search(ctx context.Context, query string, lang string) ([]SearchResult, error)
}

type DocumentSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

type Translator interface {
	Translate(ctx context.Context, text string, targetLang string, sourceLang string) (string, error)
	Detect(ctx context.Context, text string) (string, error)
}

type SafetyClassifier interface {
	Classify(ctx context.Context, text string) (map[string]int, error)
}

// StorageGateway persists JSON documents grouped by container.
// Put with an existing id overwrites the stored document.
type StorageGateway interface {
	Put(ctx context.Context, container string, partitionKey string, doc Document) (string, error)
	Get(ctx context.Context, container string, id string, out any) error
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type OutputValidator interface {
	Validate(ctx context.Context, text string) ValidationResult
}
