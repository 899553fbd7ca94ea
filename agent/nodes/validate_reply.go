package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	"github.com/tanpawarit/civic-chat/agent/fallback"
)

// ValidateReply swaps a rejected handler reply for the neutral message.
// Fallback replies are trusted as is.
func ValidateReply(
	ctx context.Context,
	in *GraphState,
	validator contractx.OutputValidator,
	translator contractx.Translator,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if validator == nil || in.Fallback {
		in.Validation = contractx.ValidationResult{Valid: true}
		return in, nil
	}

	in.Validation = validator.Validate(ctx, in.Reply)
	if !in.Validation.Valid {
		in.Reply = fallback.Localized(ctx, translator, fallback.Neutral, in.Language)
		in.Fallback = true
	}
	return in, nil
}
