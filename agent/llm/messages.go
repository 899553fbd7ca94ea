package llm

import (
	"strings"

	"github.com/cloudwego/eino/schema"

	statex "github.com/tanpawarit/civic-chat/agent/state"
)

// BuildMessages lays out a handler prompt: system instructions, the injected
// context block, prior history, then the current utterance.
func BuildMessages(system string, contextBlock string, history []statex.Message, utterance string) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(history)+3)
	if s := strings.TrimSpace(system); s != "" {
		msgs = append(msgs, schema.SystemMessage(s))
	}
	if c := strings.TrimSpace(contextBlock); c != "" {
		msgs = append(msgs, schema.SystemMessage(c))
	}
	for _, m := range history {
		if m.Role == statex.RoleAssistant {
			msgs = append(msgs, schema.AssistantMessage(m.Text, nil))
			continue
		}
		msgs = append(msgs, schema.UserMessage(m.Text))
	}
	msgs = append(msgs, schema.UserMessage(utterance))
	return msgs
}
