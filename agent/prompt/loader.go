package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
)

const (
	RouterLabel      = "router_label"
	RouterHandoff    = "router_handoff"
	ProfileExtract   = "profile_extract"
	ComplaintExtract = "complaint_extract"
)

//go:embed template/*.txt
var templates embed.FS

var (
	loadOnce sync.Once
	loaded   map[string]string
	loadErr  error
)

func load() {
	entries, err := templates.ReadDir("template")
	if err != nil {
		loadErr = fmt.Errorf("read prompt templates: %w", err)
		return
	}
	loaded = make(map[string]string, len(entries))
	for _, entry := range entries {
		raw, err := templates.ReadFile("template/" + entry.Name())
		if err != nil {
			loadErr = fmt.Errorf("read prompt %s: %w", entry.Name(), err)
			return
		}
		loaded[strings.TrimSuffix(entry.Name(), ".txt")] = strings.TrimSpace(string(raw))
	}
}

// Lookup returns the trimmed prompt stored as template/<name>.txt.
func Lookup(name string) (string, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return "", loadErr
	}
	text, ok := loaded[name]
	if !ok || text == "" {
		return "", fmt.Errorf("%w: %s", contractx.ErrPromptMissing, name)
	}
	return text, nil
}

// MustLookup panics when the prompt is missing. Use it for prompts that
// ship with the binary.
func MustLookup(name string) string {
	text, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return text
}
