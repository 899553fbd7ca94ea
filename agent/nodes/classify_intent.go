package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
)

func ClassifyIntent(ctx context.Context, in *GraphState, rt TurnRouter) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	in.Decision = rt.Classify(ctx, in.Text, in.Session.RecentHistory())
	in.Binding = rt.BindingFor(in.Decision.Category)

	log.Debug().
		Str("session_id", in.SessionID).
		Str("category", string(in.Decision.Category)).
		Float64("confidence", in.Decision.Confidence).
		Str("rationale", in.Decision.Rationale).
		Msg("intent classified")
	return in, nil
}
