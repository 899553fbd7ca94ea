package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	"github.com/tanpawarit/civic-chat/agent/fallback"
)

// DispatchHandler runs the bound handler. A handler failure or an empty reply
// becomes the generic fallback and the turn carries on.
func DispatchHandler(
	ctx context.Context,
	in *GraphState,
	rt TurnRouter,
	translator contractx.Translator,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	resp, err := rt.Dispatch(ctx, contractx.HandlerRequest{
		UserID:    in.UserID,
		Utterance: in.Text,
		History:   in.Session.RecentHistory(),
		Context:   in.Context,
		Language:  in.Language,
	}, in.Decision)
	in.Response = resp

	reply := strings.TrimSpace(resp.Text)
	if err != nil || reply == "" {
		log.Warn().Err(err).
			Str("session_id", in.SessionID).
			Str("category", string(in.Decision.Category)).
			Msg("handler failed; replying with fallback")
		in.Reply = fallback.Localized(ctx, translator, fallback.Generic, in.Language)
		in.Fallback = true
		return in, nil
	}
	in.Reply = reply
	return in, nil
}
