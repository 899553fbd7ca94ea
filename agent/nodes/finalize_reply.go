package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: reply is empty", contractx.ErrValidation)
	}
	return GraphOutput{
		Reply:      reply,
		Category:   in.Decision.Category,
		Confidence: in.Decision.Confidence,
		Handler:    in.Response.Handler,
		Language:   in.Language,
		Fallback:   in.Fallback,
	}, nil
}
