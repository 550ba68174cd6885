package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	dispatcherx "github.com/tanpawarit/kcartbot/agent/dispatcher"
	llmx "github.com/tanpawarit/kcartbot/agent/llm"
	"github.com/tanpawarit/kcartbot/agent/orchestrator"
	toolx "github.com/tanpawarit/kcartbot/agent/tool"
	translationx "github.com/tanpawarit/kcartbot/agent/translation"
	"github.com/tanpawarit/kcartbot/marketplace/expiry"
	"github.com/tanpawarit/kcartbot/marketplace/knowledge"
	"github.com/tanpawarit/kcartbot/marketplace/notify"
	"github.com/tanpawarit/kcartbot/marketplace/ops"
	"github.com/tanpawarit/kcartbot/marketplace/order"
	"github.com/tanpawarit/kcartbot/marketplace/store"
	configx "github.com/tanpawarit/kcartbot/pkg/config"
	logx "github.com/tanpawarit/kcartbot/pkg/logger"
	openrouterx "github.com/tanpawarit/kcartbot/pkg/openrouter"
	qstashx "github.com/tanpawarit/kcartbot/pkg/qstash"
	upstashx "github.com/tanpawarit/kcartbot/pkg/upstash"
	"github.com/tanpawarit/kcartbot/transport/httpapi"
)

type AppConfig struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	JWTSecret       string        `envconfig:"JWT_SECRET" required:"true"`
	PublicURL       string        `envconfig:"PUBLIC_URL"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func main() {
	logCfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*logCfg)

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("kcartbot stopped")
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("")
	dbCfg := configx.MustNew[store.Config]("DATABASE")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	expiryCfg := configx.MustNew[expiry.Config]("EXPIRY")
	knowledgeCfg := configx.MustNew[knowledge.Config]("KNOWLEDGE")
	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
	upstashCfg := configx.MustNew[upstashx.Config]("UPSTASH_REDIS")

	db, err := store.Open(ctx, *dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	st := store.New(db)

	hub := notify.NewHub(notify.WithHubLogger(logx.Component("hub")))
	notifier := notify.NewNotifier(st, hub, notify.WithLogger(logx.Component("notifier")))
	orders := order.NewService(st, notifier, order.WithLogger(logx.Component("order")))

	opsOpts := []ops.Option{ops.WithLogger(logx.Component("ops"))}
	imageCfg := llmCfg.OpenRouterFor(llmx.PurposeImage)
	if client := openrouterx.NewClient(imageCfg); client != nil {
		opsOpts = append(opsOpts, ops.WithImageGenerator(ops.NewOpenAIImageGenerator(client, imageCfg.Model)))
	}
	if kb := buildKnowledgeBase(ctx, *knowledgeCfg); kb != nil {
		opsOpts = append(opsOpts, ops.WithKnowledgeBase(kb))
	}
	marketplace := ops.New(st, orders, opsOpts...)

	chatCfg := llmCfg.OpenRouterFor(llmx.PurposeChat)
	chatModel, err := chatCfg.New(ctx)
	if err != nil {
		return err
	}
	dispatcher, err := dispatcherx.New(
		chatModel,
		toolx.NewExecutor(marketplace, logx.Component("tool")),
		dispatcherx.Config{MaxIterations: llmCfg.MaxIterations, HistoryWindow: llmCfg.HistoryWindow},
		dispatcherx.WithLogger(logx.Component("dispatcher")),
	)
	if err != nil {
		return err
	}

	translationCfg := llmCfg.OpenRouterFor(llmx.PurposeTranslation)
	translator, err := translationx.NewLLMTranslator(
		openrouterx.NewClient(translationCfg),
		translationCfg.Model,
		translationx.WithTemperature(float64(translationCfg.Temperature)),
	)
	if err != nil {
		return err
	}
	gateway := translationx.NewGateway(translator, translationx.WithLogger(logx.Component("translation")))

	conversation, err := orchestrator.New(gateway, dispatcher, notifier, orchestrator.WithLogger(logx.Component("orchestrator")))
	if err != nil {
		return err
	}

	monitorOpts := []expiry.Option{expiry.WithLogger(logx.Component("expiry"))}
	if upstashCfg.Enabled() {
		redis, err := upstashx.NewClient(*upstashCfg)
		if err != nil {
			return fmt.Errorf("upstash: %w", err)
		}
		monitorOpts = append(monitorOpts, expiry.WithLocker(upstashx.NewLock(redis)))
	}
	monitor := expiry.NewMonitor(st, notifier, *expiryCfg, monitorOpts...)

	deps := httpapi.Deps{
		Users:        st,
		Conversation: conversation,
		Inbox:        notifier,
		Orders:       orders,
		Hub:          hub,
	}
	if qstashCfg.Enabled() {
		verifier, err := qstashx.NewClient(*qstashCfg)
		if err != nil {
			return fmt.Errorf("qstash: %w", err)
		}
		deps.Sweeper = monitor
		deps.Verifier = verifier
	}
	router := httpapi.NewRouter(httpapi.Config{
		JWTSecret:      appCfg.JWTSecret,
		PublicURL:      appCfg.PublicURL,
		AllowedOrigins: appCfg.AllowedOrigins,
	}, deps, logx.Component("http"))

	// Request contexts derive from gctx so websocket handlers exit on shutdown.
	g, gctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr:              appCfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		log.Info().Str("addr", appCfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if !expiryCfg.Disabled {
		g.Go(func() error { return monitor.Run(gctx) })
	}

	return g.Wait()
}

// buildKnowledgeBase returns nil when knowledge search is not configured or the
// index cannot be built; knowledge_search then answers with its fixed fallback.
func buildKnowledgeBase(ctx context.Context, cfg knowledge.Config) ops.KnowledgeBase {
	if !cfg.Enabled() {
		return nil
	}
	l := logx.Component("knowledge")

	docs, err := knowledge.LoadDocuments(cfg.File)
	if err != nil {
		l.Warn().Err(err).Msg("knowledge base disabled")
		return nil
	}
	client := openrouterx.NewClient(openrouterx.Config{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Timeout: cfg.Timeout})
	embedder, err := knowledge.NewOpenAIEmbedder(client, cfg.Model)
	if err != nil {
		l.Warn().Err(err).Msg("knowledge base disabled")
		return nil
	}
	idx, err := knowledge.Build(ctx, embedder, docs, knowledge.WithTopK(cfg.TopK), knowledge.WithLogger(l))
	if err != nil {
		l.Warn().Err(err).Msg("knowledge base disabled")
		return nil
	}
	return idx
}
