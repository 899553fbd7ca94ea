package specialist

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	llmx "github.com/tanpawarit/civic-chat/agent/llm"
	"github.com/tanpawarit/civic-chat/agent/router"
	toolx "github.com/tanpawarit/civic-chat/agent/tool"
)

// ModelFactory returns the chat model for a handler role.
type ModelFactory func(ctx context.Context, role llmx.Role) (einomodel.ToolCallingChatModel, error)

// OpenRouterModels builds each role's model from the OpenRouter config.
func OpenRouterModels(cfg llmx.Config) ModelFactory {
	return func(ctx context.Context, role llmx.Role) (einomodel.ToolCallingChatModel, error) {
		modelCfg := cfg.OpenRouterFor(role)
		m, err := modelCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, role, err)
		}
		return m, nil
	}
}

// Providers are the context providers a handler config can ask for.
type Providers struct {
	Profile   contractx.ContextProvider
	Complaint contractx.ContextProvider
}

type Registry struct {
	bindings map[contractx.IntentCategory]router.Binding
}

func NewRegistry(
	ctx context.Context,
	configs []HandlerConfig,
	models ModelFactory,
	catalog *toolx.Catalog,
	providers Providers,
	opts ...HandlerOption,
) (*Registry, error) {
	if models == nil {
		return nil, fmt.Errorf("%w: model factory is required", contractx.ErrValidation)
	}
	r := &Registry{
		bindings: make(map[contractx.IntentCategory]router.Binding, len(configs)),
	}
	for _, cfg := range configs {
		chatModel, err := models(ctx, llmx.Role(cfg.Name))
		if err != nil {
			return nil, err
		}
		h, err := NewHandler(ctx, cfg, chatModel, catalog, opts...)
		if err != nil {
			return nil, err
		}

		var bound []contractx.ContextProvider
		if cfg.UsesContextProvider && providers.Profile != nil {
			bound = append(bound, providers.Profile)
		}
		if cfg.UsesComplaintTracker {
			if providers.Complaint == nil {
				return nil, fmt.Errorf("%w: handler %s needs the complaint tracker", contractx.ErrValidation, cfg.Name)
			}
			bound = append(bound, providers.Complaint)
		}

		r.bindings[cfg.Category] = router.Binding{Handler: h, Providers: bound}
	}
	if _, ok := r.bindings[contractx.CategoryGeneral]; !ok {
		return nil, fmt.Errorf("%w: a general handler is required", contractx.ErrValidation)
	}
	return r, nil
}

// Router builds a router with every handler bound to its category.
func (r *Registry) Router(classifier contractx.Classifier) (*router.Router, error) {
	rt, err := router.New(classifier, r.bindings[contractx.CategoryGeneral])
	if err != nil {
		return nil, err
	}
	for category, b := range r.bindings {
		if category == contractx.CategoryGeneral {
			continue
		}
		if err := rt.Bind(category, b); err != nil {
			return nil, err
		}
	}
	return rt, nil
}
