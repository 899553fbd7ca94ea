package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	"github.com/tanpawarit/civic-chat/agent/fallback"
	"github.com/tanpawarit/civic-chat/agent/search"
)

const (
	ToolDocumentsSearch = "documents.search"
	ToolWebSearch       = "web.search"
	ToolServicesLookup  = "services.lookup"
	ToolTextTranslate   = "text.translate"
)

const defaultDocumentLimit = 5

type Executor func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)

// Deps are the gateways behind the tools. A nil gateway makes its tool
// report itself unavailable instead of failing the turn.
type Deps struct {
	Documents  contractx.DocumentSearcher
	Web        contractx.WebSearcher
	Translator contractx.Translator
	Services   *Directory
}

type Catalog struct {
	deps Deps
}

func NewCatalog(deps Deps) *Catalog {
	if deps.Services == nil {
		deps.Services = DefaultDirectory()
	}
	return &Catalog{deps: deps}
}

var infos = map[string]*schema.ToolInfo{
	ToolDocumentsSearch: {
		Name: ToolDocumentsSearch,
		Desc: "Search the civic knowledge base (constitution, voting rules, procedures) and return evidence snippets.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {Type: schema.String, Desc: "Search query", Required: true},
			"limit": {Type: schema.Integer, Desc: "Maximum number of snippets"},
		}),
	},
	ToolWebSearch: {
		Name: ToolWebSearch,
		Desc: "Search the web for current civic information such as news, election dates or official announcements.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {Type: schema.String, Desc: "Search query", Required: true},
			"lang":  {Type: schema.String, Desc: "Language code of the user, for example en or es"},
		}),
	},
	ToolServicesLookup: {
		Name: ToolServicesLookup,
		Desc: "Look up the municipal service line (311 style) that handles an issue in a city.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"city":  {Type: schema.String, Desc: "City name", Required: true},
			"issue": {Type: schema.String, Desc: "Issue to report, for example pothole or basura"},
		}),
	},
	ToolTextTranslate: {
		Name: ToolTextTranslate,
		Desc: "Translate text into the target language.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"text":   {Type: schema.String, Desc: "Text to translate", Required: true},
			"target": {Type: schema.String, Desc: "Target language code", Required: true},
			"source": {Type: schema.String, Desc: "Source language code, empty to auto-detect"},
		}),
	},
}

// Names lists every tool the catalog can serve.
func Names() []string {
	return []string{ToolDocumentsSearch, ToolWebSearch, ToolServicesLookup, ToolTextTranslate}
}

// Build returns the tool infos for names and an executor restricted to them.
// Unknown names are a validation error.
func (c *Catalog) Build(names []string) ([]*schema.ToolInfo, Executor, error) {
	out := make([]*schema.ToolInfo, 0, len(names))
	allowed := make(map[string]struct{}, len(names))
	for _, name := range names {
		info, ok := infos[name]
		if !ok {
			return nil, nil, fmt.Errorf("%w: unknown tool %q", contractx.ErrValidation, name)
		}
		if _, dup := allowed[name]; dup {
			continue
		}
		allowed[name] = struct{}{}
		out = append(out, info)
	}
	return out, c.executor(allowed), nil
}

func (c *Catalog) executor(allowed map[string]struct{}) Executor {
	return func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		if _, ok := allowed[tool]; !ok {
			return contractx.ToolResult{}, fmt.Errorf("%w: tool=%s is not allowed", contractx.ErrSchemaViolation, tool)
		}
		switch tool {
		case ToolDocumentsSearch:
			return c.searchDocuments(ctx, tool, args)
		case ToolWebSearch:
			return c.searchWeb(ctx, tool, args)
		case ToolServicesLookup:
			return c.lookupService(tool, args)
		case ToolTextTranslate:
			return c.translate(ctx, tool, args)
		default:
			return unavailable(tool), nil
		}
	}
}

func unavailable(tool string) contractx.ToolResult {
	return contractx.ToolResult{Tool: tool, Error: fmt.Sprintf("tool=%s is unavailable", tool)}
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return def
}

func (c *Catalog) searchDocuments(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
	if c.deps.Documents == nil {
		return unavailable(tool), nil
	}
	query := stringArg(args, "query")
	if query == "" {
		return contractx.ToolResult{Tool: tool, Error: "query is required"}, nil
	}
	results, err := c.deps.Documents.Search(ctx, query, intArg(args, "limit", defaultDocumentLimit))
	if err != nil {
		return contractx.ToolResult{Tool: tool, Error: err.Error()}, nil
	}
	return contractx.ToolResult{Tool: tool, Result: results}, nil
}

func (c *Catalog) searchWeb(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
	if c.deps.Web == nil {
		return unavailable(tool), nil
	}
	query := stringArg(args, "query")
	if query == "" {
		return contractx.ToolResult{Tool: tool, Error: "query is required"}, nil
	}
	lang := stringArg(args, "lang")
	results, err := c.deps.Web.Search(ctx, query, lang)
	if errors.Is(err, search.ErrSearchUnavailable) {
		return contractx.ToolResult{Tool: tool, Error: fallback.SearchFailure(lang)}, nil
	}
	if err != nil {
		return contractx.ToolResult{Tool: tool, Error: err.Error()}, nil
	}
	return contractx.ToolResult{Tool: tool, Result: results}, nil
}

func (c *Catalog) lookupService(tool string, args map[string]any) (contractx.ToolResult, error) {
	city := stringArg(args, "city")
	if city == "" {
		return contractx.ToolResult{Tool: tool, Error: "city is required"}, nil
	}
	contact, err := c.deps.Services.Lookup(city, stringArg(args, "issue"))
	if err != nil {
		return contractx.ToolResult{Tool: tool, Error: err.Error()}, nil
	}
	return contractx.ToolResult{Tool: tool, Result: contact}, nil
}

type TranslateOutput struct {
	Text   string `json:"text"`
	Target string `json:"target"`
}

func (c *Catalog) translate(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
	text := stringArg(args, "text")
	target := stringArg(args, "target")
	if text == "" || target == "" {
		return contractx.ToolResult{Tool: tool, Error: "text and target are required"}, nil
	}
	out := fallback.Translate(ctx, c.deps.Translator, text, target, stringArg(args, "source"))
	return contractx.ToolResult{Tool: tool, Result: TranslateOutput{Text: out, Target: target}}, nil
}
