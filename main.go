package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/civic-chat/agent/agents/orchestrator"
	"github.com/tanpawarit/civic-chat/agent/agents/specialist"
	"github.com/tanpawarit/civic-chat/agent/complaint"
	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	llmx "github.com/tanpawarit/civic-chat/agent/llm"
	"github.com/tanpawarit/civic-chat/agent/profile"
	"github.com/tanpawarit/civic-chat/agent/router"
	"github.com/tanpawarit/civic-chat/agent/safety"
	"github.com/tanpawarit/civic-chat/agent/search"
	statex "github.com/tanpawarit/civic-chat/agent/state"
	storex "github.com/tanpawarit/civic-chat/agent/store"
	toolx "github.com/tanpawarit/civic-chat/agent/tool"
	bingx "github.com/tanpawarit/civic-chat/pkg/bing"
	configx "github.com/tanpawarit/civic-chat/pkg/config"
	contentsafetyx "github.com/tanpawarit/civic-chat/pkg/contentsafety"
	_ "github.com/tanpawarit/civic-chat/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/civic-chat/pkg/openrouter"
	qstashx "github.com/tanpawarit/civic-chat/pkg/qstash"
	translatorx "github.com/tanpawarit/civic-chat/pkg/translator"
)

type AppConfig struct {
	// Router selects the classifier: "label" asks for one category token,
	// "handoff" lets the model call a transfer tool.
	Router      string `envconfig:"ROUTER" default:"label"`
	ChannelType string `envconfig:"CHANNEL_TYPE" default:"cli"`
	UserID      string `envconfig:"USER_ID"`
	Language    string `envconfig:"LANGUAGE"`
}

type app struct {
	orch     *orchestrator.Orchestrator
	profiles *profile.Provider
	machine  *complaint.Machine
	closers  []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("")
	a, err := build(ctx, *appCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer a.Close()

	userID := strings.TrimSpace(appCfg.UserID)
	if userID == "" {
		userID = uuid.NewString()
	}
	sessionID := uuid.NewString()
	log.Info().Str("session_id", sessionID).Str("user_id", userID).Msg("civic chat ready")

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/quit", "/salir":
			return
		case "/forget", "/olvidar":
			a.machine.Reset(userID)
			if err := a.profiles.Clear(ctx, userID); err != nil {
				log.Warn().Err(err).Str("user_id", userID).Msg("profile clear failed")
			}
			fmt.Println("OK")
		default:
			out, err := a.orch.Handle(ctx, orchestrator.Request{
				SessionID: sessionID,
				UserID:    userID,
				Text:      line,
				Language:  appCfg.Language,
			})
			if err != nil {
				log.Error().Err(err).Str("session_id", sessionID).Msg("turn failed")
			} else {
				fmt.Println(out.Reply)
			}
		}
		if ctx.Err() != nil {
			return
		}
		fmt.Print("> ")
	}
}

func build(ctx context.Context, appCfg AppConfig) (*app, error) {
	a := &app{}

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	if err := llmCfg.Validate(); err != nil {
		return nil, err
	}
	usage := openrouterx.NewUsageTracker()
	a.closers = append(a.closers, func() error {
		usage.LogTotals()
		return nil
	})

	var sessions statex.Store = statex.NewMemoryStore()
	if upstashCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH"); upstashCfg.Enabled() {
		s, err := statex.NewUpstashRedisStore(*upstashCfg)
		if err != nil {
			return nil, err
		}
		sessions = s
	}

	docs, err := storex.Open(ctx, *configx.MustNew[storex.Config]("DATABASE"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, docs.Close)

	extractor, err := llmx.NewOpenRouterGateway(*llmCfg, llmx.RoleExtractor, usage)
	if err != nil {
		return nil, err
	}

	var notifier contractx.Notifier = complaint.LogNotifier{}
	if qstashCfg := configx.MustNew[qstashx.Config]("QSTASH"); qstashCfg.Enabled() {
		n, err := complaint.NewQStashNotifier(qstashx.MustNew(*qstashCfg), qstashCfg.Destination)
		if err != nil {
			return nil, err
		}
		notifier = n
	}

	a.profiles, err = profile.NewProvider(docs, extractor)
	if err != nil {
		return nil, err
	}
	a.machine, err = complaint.NewMachine(docs, notifier, extractor)
	if err != nil {
		return nil, err
	}

	var translator contractx.Translator
	if trCfg := configx.MustNew[translatorx.Config]("TRANSLATOR"); trCfg.Enabled() {
		c, err := translatorx.NewClient(*trCfg)
		if err != nil {
			return nil, err
		}
		translator = c
	}

	var classifier contractx.SafetyClassifier
	if csCfg := configx.MustNew[contentsafetyx.Config]("CONTENT_SAFETY"); csCfg.Enabled() {
		c, err := contentsafetyx.NewClient(*csCfg)
		if err != nil {
			return nil, err
		}
		classifier = safety.NewContentSafetyClassifier(c)
	}

	searchCfg := configx.MustNew[search.Config]("SEARCH")
	var web contractx.WebSearcher
	if bingCfg := configx.MustNew[bingx.Config]("BING"); bingCfg.Enabled() {
		c, err := bingx.NewClient(*bingCfg)
		if err != nil {
			return nil, err
		}
		web = search.NewCachedSearcher(search.NewBingSearcher(c), search.NewResponseCache(searchCfg.CacheSize, searchCfg.CacheTTL))
	}

	index, err := search.NewIndex()
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, index.Close)
	documents, err := search.LoadDocuments(searchCfg.DocsDir)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := index.Initialize(ctx, documents); err != nil {
			log.Error().Err(err).Msg("document index initialization failed")
			return
		}
		log.Info().Int("documents", len(documents)).Msg("document index ready")
	}()

	configs, err := specialist.DefaultConfigs()
	if err != nil {
		return nil, err
	}
	catalog := toolx.NewCatalog(toolx.Deps{Documents: index, Web: web, Translator: translator})
	registry, err := specialist.NewRegistry(ctx, configs, specialist.OpenRouterModels(*llmCfg), catalog, specialist.Providers{
		Profile:   a.profiles,
		Complaint: complaint.NewProvider(a.machine),
	}, specialist.WithUsageTracker(usage))
	if err != nil {
		return nil, err
	}

	intent, err := newClassifier(ctx, appCfg.Router, *llmCfg, usage)
	if err != nil {
		return nil, err
	}
	rt, err := registry.Router(intent)
	if err != nil {
		return nil, err
	}

	a.orch, err = orchestrator.New(sessions, rt, orchestrator.Config{ChannelType: appCfg.ChannelType},
		orchestrator.WithValidator(safety.NewValidator(classifier)),
		orchestrator.WithTranslator(translator),
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func newClassifier(ctx context.Context, kind string, cfg llmx.Config, usage *openrouterx.UsageTracker) (contractx.Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "handoff":
		routerCfg := cfg.OpenRouterFor(llmx.RoleRouter)
		m, err := routerCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create router model: %v", contractx.ErrModelInvoke, err)
		}
		return router.NewHandoffClassifier(ctx, m, compose.WithCallbacks(llmx.UsageCallback(usage, string(llmx.RoleRouter))))
	case "", "label":
		gw, err := llmx.NewOpenRouterGateway(cfg, llmx.RoleRouter, usage)
		if err != nil {
			return nil, err
		}
		return router.NewLabelClassifier(gw)
	default:
		return nil, fmt.Errorf("%w: unknown router %q", contractx.ErrValidation, kind)
	}
}
