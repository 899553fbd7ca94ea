package llm

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"

	openrouterx "github.com/tanpawarit/civic-chat/pkg/openrouter"
)

// UsageCallback records the token usage of every chat model node it sees.
// Pass it with compose.WithCallbacks on each graph invocation.
func UsageCallback(tracker *openrouterx.UsageTracker, scope string) callbacks.Handler {
	return callbacks.NewHandlerBuilder().
		OnEndFn(func(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
			if info == nil || info.Component != components.ComponentOfChatModel {
				return ctx
			}
			out := einomodel.ConvCallbackOutput(output)
			if out == nil {
				return ctx
			}
			modelName, usage := usageOf(out)
			tracker.Record(scope, modelName, usage)
			return ctx
		}).
		Build()
}

// usageOf prefers the component-reported usage and falls back to the
// response metadata on the message.
func usageOf(out *einomodel.CallbackOutput) (string, openrouterx.Usage) {
	var modelName string
	if out.Config != nil {
		modelName = out.Config.Model
	}
	switch {
	case out.TokenUsage != nil:
		return modelName, openrouterx.Usage{
			PromptTokens:     int64(out.TokenUsage.PromptTokens),
			CompletionTokens: int64(out.TokenUsage.CompletionTokens),
			TotalTokens:      int64(out.TokenUsage.TotalTokens),
		}
	case out.Message != nil && out.Message.ResponseMeta != nil && out.Message.ResponseMeta.Usage != nil:
		u := out.Message.ResponseMeta.Usage
		return modelName, openrouterx.Usage{
			PromptTokens:     int64(u.PromptTokens),
			CompletionTokens: int64(u.CompletionTokens),
			TotalTokens:      int64(u.TotalTokens),
		}
	}
	return modelName, openrouterx.Usage{}
}
