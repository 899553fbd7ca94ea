package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/tidwall/gjson"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	llmx "github.com/tanpawarit/civic-chat/agent/llm"
	promptx "github.com/tanpawarit/civic-chat/agent/prompt"
	statex "github.com/tanpawarit/civic-chat/agent/state"
)

const transferPrefix = "transfer_to_"

type handoffInput struct {
	Utterance string
	History   []statex.Message
}

// HandoffClassifier lets a tool-calling model pick a category by calling one
// transfer_to_<category> tool.
type HandoffClassifier struct {
	runner compose.Runnable[handoffInput, *schema.Message]
	invoke []compose.Option
}

var _ contractx.Classifier = (*HandoffClassifier)(nil)

// TransferTools declares one transfer tool per routable category.
func TransferTools() []*schema.ToolInfo {
	tools := make([]*schema.ToolInfo, 0, len(Priority)-1)
	for _, category := range Priority {
		if category == contractx.CategoryGeneral {
			continue
		}
		tools = append(tools, &schema.ToolInfo{
			Name: transferPrefix + string(category),
			Desc: fmt.Sprintf("Hand the conversation to the %s specialist.", strings.ReplaceAll(string(category), "_", " ")),
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"reason": {Type: schema.String, Desc: "Short reason for the transfer", Required: false},
			}),
		})
	}
	return tools
}

// NewHandoffClassifier compiles the handoff graph. invoke options, such as
// usage callbacks, are passed to every classification call.
func NewHandoffClassifier(ctx context.Context, chatModel einomodel.ToolCallingChatModel, invoke ...compose.Option) (*HandoffClassifier, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	prompt, err := promptx.Lookup(promptx.RouterHandoff)
	if err != nil {
		return nil, err
	}
	toolModel, err := chatModel.WithTools(TransferTools())
	if err != nil {
		return nil, fmt.Errorf("%w: bind transfer tools: %v", contractx.ErrModelInvoke, err)
	}

	graph := compose.NewGraph[handoffInput, *schema.Message]()
	if err := graph.AddLambdaNode("build_messages",
		compose.InvokableLambda(func(ctx context.Context, in handoffInput) ([]*schema.Message, error) {
			return llmx.BuildMessages(prompt, "", in.History, in.Utterance), nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node build_messages: %w", err)
	}
	if err := graph.AddChatModelNode("model", toolModel); err != nil {
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

	runner, err := graph.Compile(ctx, compose.WithGraphName("router.handoff"))
	if err != nil {
		return nil, fmt.Errorf("compile handoff graph: %w", err)
	}
	return &HandoffClassifier{runner: runner, invoke: invoke}, nil
}

func (c *HandoffClassifier) Classify(ctx context.Context, utterance string, history []statex.Message) (contractx.RouterDecision, error) {
	msg, err := c.runner.Invoke(ctx, handoffInput{Utterance: utterance, History: history}, c.invoke...)
	if err != nil {
		return contractx.RouterDecision{}, fmt.Errorf("%w: handoff invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return contractx.RouterDecision{}, fmt.Errorf("%w: empty handoff response", contractx.ErrSchemaViolation)
	}
	return decideHandoff(msg), nil
}

// decideHandoff picks the highest-priority transfer among the tool calls.
func decideHandoff(msg *schema.Message) contractx.RouterDecision {
	best := contractx.RouterDecision{Category: contractx.CategoryGeneral}
	bestRank := len(Priority)
	transfers := 0
	for _, call := range msg.ToolCalls {
		name := strings.TrimSpace(call.Function.Name)
		category := contractx.IntentCategory(strings.TrimPrefix(name, transferPrefix))
		if !strings.HasPrefix(name, transferPrefix) || !category.Valid() {
			continue
		}
		transfers++
		if r := rank(category); r < bestRank {
			bestRank = r
			best.Category = category
			best.Rationale = gjson.Get(call.Function.Arguments, "reason").String()
		}
	}

	switch {
	case transfers == 0:
		best.Confidence = 0.5
		best.Rationale = strings.TrimSpace(msg.Content)
	case transfers == 1:
		best.Confidence = 1.0
	default:
		best.Confidence = 0.5
	}
	return best
}
