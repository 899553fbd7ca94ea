package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	"github.com/tanpawarit/civic-chat/agent/fallback"
	statex "github.com/tanpawarit/civic-chat/agent/state"
)

// LoadOrCreateState loads the session, resolves the user id and settles the
// reply language for the turn. A session store read failure starts a fresh
// session rather than failing the turn.
func LoadOrCreateState(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	detector contractx.Translator,
	channelType string,
	newUserID func() string,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st, err := store.Load(ctx, in.SessionID)
	switch {
	case err == nil:
	case errors.Is(err, statex.ErrStateNotFound):
		st = nil
	default:
		log.Warn().Err(err).Str("session_id", in.SessionID).Msg("session load failed; starting a new session")
		st = nil
	}

	userID := in.UserID
	if userID == "" && st != nil {
		userID = st.UserID
	}
	if userID == "" {
		userID = newUserID()
	}
	if st == nil {
		st = statex.NewSessionState(in.SessionID, userID, channelType, in.Now)
	}
	st.UserID = userID
	in.UserID = userID

	in.Language = fallback.Language(ctx, in.Language, st.Language, detector, in.Text)
	st.Language = in.Language
	in.Session = st
	return in, nil
}
