package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
)

// AfterTurn runs every bound provider's after hook concurrently. The providers
// own disjoint records, so their writes may land in any order. Failures and
// panics are logged and never fail the turn. A cancelled request skips the
// hooks entirely.
func AfterTurn(ctx context.Context, in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if err := ctx.Err(); err != nil {
		log.Debug().Err(err).Str("session_id", in.SessionID).Msg("request cancelled; skipping after_turn")
		return in, nil
	}

	p := pool.New().WithErrors()
	for _, provider := range in.Binding.Providers {
		p.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("provider %s panicked: %v", provider.Name(), rec)
				}
			}()
			if err := provider.AfterTurn(ctx, in.UserID, in.Text, in.Reply); err != nil {
				return fmt.Errorf("provider %s: %w", provider.Name(), err)
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		log.Warn().Err(err).Str("user_id", in.UserID).Str("session_id", in.SessionID).Msg("after_turn failed")
	}
	return in, nil
}
