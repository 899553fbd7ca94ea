package specialist

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	promptx "github.com/tanpawarit/civic-chat/agent/prompt"
	toolx "github.com/tanpawarit/civic-chat/agent/tool"
)

//go:embed handlers.yaml
var defaultHandlers []byte

// HandlerConfig is one specialist handler definition.
type HandlerConfig struct {
	Name                 string                   `yaml:"name"`
	Category             contractx.IntentCategory `yaml:"category"`
	Prompt               string                   `yaml:"prompt"`
	Tools                []string                 `yaml:"tools"`
	UsesContextProvider  bool                     `yaml:"uses_context_provider"`
	UsesComplaintTracker bool                     `yaml:"uses_complaint_tracker"`
}

type handlerFile struct {
	Handlers []HandlerConfig `yaml:"handlers"`
}

// DefaultConfigs returns the handler set shipped with the binary.
func DefaultConfigs() ([]HandlerConfig, error) {
	return ParseConfigs(defaultHandlers)
}

// ParseConfigs decodes and validates a handlers document. Every category may
// appear at most once and general is required.
func ParseConfigs(raw []byte) ([]HandlerConfig, error) {
	var file handlerFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: decode handlers: %v", contractx.ErrValidation, err)
	}

	seen := make(map[contractx.IntentCategory]string, len(file.Handlers))
	for i := range file.Handlers {
		h := &file.Handlers[i]
		h.Name = strings.TrimSpace(h.Name)
		if err := h.validate(); err != nil {
			return nil, err
		}
		if prev, dup := seen[h.Category]; dup {
			return nil, fmt.Errorf("%w: handlers %s and %s share category %s", contractx.ErrValidation, prev, h.Name, h.Category)
		}
		seen[h.Category] = h.Name
	}
	if _, ok := seen[contractx.CategoryGeneral]; !ok {
		return nil, fmt.Errorf("%w: a general handler is required", contractx.ErrValidation)
	}
	return file.Handlers, nil
}

func (h HandlerConfig) validate() error {
	if h.Name == "" {
		return fmt.Errorf("%w: handler name is required", contractx.ErrValidation)
	}
	if !h.Category.Valid() {
		return fmt.Errorf("%w: handler %s has unknown category %q", contractx.ErrValidation, h.Name, h.Category)
	}
	if _, err := promptx.Lookup(h.Prompt); err != nil {
		return fmt.Errorf("handler %s: %w", h.Name, err)
	}
	known := toolx.Names()
	for _, tool := range h.Tools {
		ok := false
		for _, k := range known {
			if tool == k {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: handler %s lists unknown tool %q", contractx.ErrValidation, h.Name, tool)
		}
	}
	return nil
}
