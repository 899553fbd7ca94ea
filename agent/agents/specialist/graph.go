package specialist

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	llmx "github.com/tanpawarit/civic-chat/agent/llm"
)

type turnInput struct {
	Req     contractx.HandlerRequest
	Scratch []*schema.Message
}

func compileHandlerGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	name string,
) (compose.Runnable[turnInput, *schema.Message], error) {
	graph := compose.NewGraph[turnInput, *schema.Message]()

	if err := graph.AddLambdaNode("build_messages",
		compose.InvokableLambda(func(ctx context.Context, in turnInput) ([]*schema.Message, error) {
			msgs := llmx.BuildMessages(systemPrompt, contextBlock(in.Req), in.Req.History, in.Req.Utterance)
			return append(msgs, in.Scratch...), nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node build_messages: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add node model: %w", err)
	}

	edges := [][2]string{
		{compose.START, "build_messages"},
		{"build_messages", "model"},
		{"model", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("specialist."+name))
	if err != nil {
		return nil, fmt.Errorf("compile specialist graph: %w", err)
	}
	return runner, nil
}

// contextBlock joins the provider context with a reply-language hint.
func contextBlock(req contractx.HandlerRequest) string {
	if req.Language == "" {
		return req.Context
	}
	hint := fmt.Sprintf("Reply in the user's language (%s).", req.Language)
	if req.Context == "" {
		return hint
	}
	return req.Context + "\n\n" + hint
}
