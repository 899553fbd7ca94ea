package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	statex "github.com/tanpawarit/civic-chat/agent/state"
)

// SaveState appends the exchange to the session and persists it. A store
// failure is logged; the reply is still delivered.
func SaveState(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	in.Session.AppendTurn(in.Text, in.Reply, string(in.Decision.Category), in.Now)
	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("state validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Session); err != nil {
		log.Warn().Err(err).Str("session_id", in.SessionID).Msg("session save failed")
	}
	return in, nil
}
