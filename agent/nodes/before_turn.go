package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
)

// BeforeTurn collects the context blocks of the bound handler's providers in
// binding order. A failing provider contributes nothing.
func BeforeTurn(ctx context.Context, in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	blocks := make([]string, 0, len(in.Binding.Providers))
	for _, p := range in.Binding.Providers {
		block, err := p.BeforeTurn(ctx, in.UserID)
		if err != nil {
			log.Warn().Err(err).Str("provider", p.Name()).Str("user_id", in.UserID).Msg("before_turn failed")
			continue
		}
		if block = strings.TrimSpace(block); block != "" {
			blocks = append(blocks, block)
		}
	}
	in.Context = strings.Join(blocks, "\n\n")
	return in, nil
}
