// Package router classifies an utterance into one intent category and
// dispatches the turn to the handler bound to it.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	statex "github.com/tanpawarit/civic-chat/agent/state"
)

// Priority resolves ties when a classifier output names several categories:
// the earliest category wins.
var Priority = []contractx.IntentCategory{
	contractx.CategoryComplaintFiling,
	contractx.CategoryCivicEducation,
	contractx.CategoryFactCheck,
	contractx.CategoryPracticalGuide,
	contractx.CategoryCityGuide,
	contractx.CategoryGeneral,
}

func rank(c contractx.IntentCategory) int {
	for i, p := range Priority {
		if p == c {
			return i
		}
	}
	return len(Priority)
}

// Binding is a handler plus the context providers run around it.
type Binding struct {
	Handler   contractx.Handler
	Providers []contractx.ContextProvider
}

type Router struct {
	classifier contractx.Classifier
	bindings   map[contractx.IntentCategory]Binding
}

// New requires a binding for the general category, which serves every turn
// whose category has no binding of its own.
func New(classifier contractx.Classifier, general Binding) (*Router, error) {
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if general.Handler == nil {
		return nil, errors.New("general handler is required")
	}
	return &Router{
		classifier: classifier,
		bindings:   map[contractx.IntentCategory]Binding{contractx.CategoryGeneral: general},
	}, nil
}

func (r *Router) Bind(category contractx.IntentCategory, b Binding) error {
	if !category.Valid() {
		return fmt.Errorf("%w: unknown category %q", contractx.ErrValidation, category)
	}
	if b.Handler == nil {
		return fmt.Errorf("%w: handler is required for %s", contractx.ErrValidation, category)
	}
	r.bindings[category] = b
	return nil
}

// BindingFor returns the binding for category, or the general binding.
func (r *Router) BindingFor(category contractx.IntentCategory) Binding {
	if b, ok := r.bindings[category]; ok {
		return b
	}
	return r.bindings[contractx.CategoryGeneral]
}

func unclear(rationale string) contractx.RouterDecision {
	return contractx.RouterDecision{Category: contractx.CategoryGeneral, Confidence: 0, Rationale: rationale}
}

// Classify always returns a decision. Empty input, classifier errors and
// unknown labels all resolve to general with zero confidence.
func (r *Router) Classify(ctx context.Context, utterance string, history []statex.Message) (decision contractx.RouterDecision) {
	if strings.TrimSpace(utterance) == "" {
		return unclear("empty utterance")
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("classifier panicked")
			decision = unclear("classifier panic")
		}
	}()

	d, err := r.classifier.Classify(ctx, utterance, history)
	if err != nil {
		log.Warn().Err(err).Msg("intent classification failed")
		return unclear("classification failed")
	}
	if !d.Category.Valid() {
		log.Warn().Str("category", string(d.Category)).Msg("classifier returned unknown category")
		return unclear("unknown category")
	}
	if d.Confidence < 0 {
		d.Confidence = 0
	}
	if d.Confidence > 1 {
		d.Confidence = 1
	}
	return d
}

// Dispatch runs the handler bound to the decision. The result is returned
// as is.
func (r *Router) Dispatch(ctx context.Context, req contractx.HandlerRequest, decision contractx.RouterDecision) (contractx.HandlerResponse, error) {
	b := r.BindingFor(decision.Category)
	return b.Handler.Run(ctx, req)
}
