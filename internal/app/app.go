package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"NewsRelay/internal/config"
	"NewsRelay/internal/dedup"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/httpapi"
	"NewsRelay/internal/infrastructure/lease"
	"NewsRelay/internal/infrastructure/llm"
	"NewsRelay/internal/infrastructure/ml"
	"NewsRelay/internal/infrastructure/parser"
	"NewsRelay/internal/infrastructure/scheduler"
	"NewsRelay/internal/infrastructure/storage"
	"NewsRelay/internal/infrastructure/telegram"
	"NewsRelay/internal/logging"
	"NewsRelay/internal/metrics"
	"NewsRelay/internal/ports"
	"NewsRelay/internal/scanner"
	"NewsRelay/internal/usecase"
	"NewsRelay/pkg/logger"
)

const summaryDrainTimeout = 90 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.Store
	redis     *redis.Client
	scheduler *usecase.Scheduler
	summaries *usecase.SummaryDispatcher
	server    *httpapi.Server
}

// New opens the store, seeds it from config and builds every component.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	a := &Application{cfg: cfg, logger: baseLogger, store: store}

	if err := a.seed(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Application) seed(ctx context.Context) error {
	err := a.store.EnsureSchedule(ctx, storage.ScheduleDefaults{
		UpdateIntervalMinutes: a.cfg.Scheduler.UpdateIntervalMinutes,
		StartTime:             a.cfg.Scheduler.StartTime,
	})
	if err != nil {
		return err
	}

	for _, f := range a.cfg.Feeds {
		name := f.Name
		if name == "" {
			name = f.ID
		}
		record := domain.FeedRecord{ID: f.ID, Name: name, URL: f.URL, Enabled: f.Enabled, CooldownMinutes: f.CooldownMinutes}
		if err := a.store.UpsertFeed(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (a *Application) build(ctx context.Context) error {
	cfg := a.cfg
	log := a.logger
	httpClient := &http.Client{Timeout: 30 * time.Second}

	gateLease, err := a.buildLease(ctx)
	if err != nil {
		return err
	}

	registry, err := parser.BuildRegistry(cfg, a.store, httpClient, log.With("component", "source"))
	if err != nil {
		return err
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		n, err := telegram.NewNotifier(tg.BotToken, tg.ChatID, "", httpClient)
		if err != nil {
			return err
		}
		notifier = n
	} else {
		log.Info("telegram notifications disabled")
	}

	var summaries ports.SummaryQueue
	if chat := llm.NewChatGPTClient(cfg.ChatGPT, httpClient); chat.Configured() {
		a.summaries = usecase.NewSummaryDispatcher(chat, a.store, cfg.ChatGPT.Concurrency, log.With("component", "summaries"))
		summaries = a.summaries
	} else {
		log.Info("summary generation disabled")
	}

	checker := dedup.NewChecker(a.store, dedup.CheckerConfig{
		Window:    cfg.Dedup.SemanticWindow,
		Threshold: cfg.Dedup.SemanticThreshold,
	})

	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Chain:            scanner.NewChain(parser.SourceStates(cfg.Sources)),
		Registry:         registry,
		Articles:         a.store,
		Schedule:         a.store,
		Feeds:            a.store,
		RunLogs:          a.store,
		Fetcher:          parser.NewArticleFetcher(httpClient, parser.FetchOptions{UserAgent: cfg.Fetch.UserAgent, Timeout: cfg.Fetch.ArticleTimeout}),
		Dedup:            checker,
		Categorizer:      ml.NewClient(cfg.ML.InferenceURL, cfg.ML.APIKey, httpClient),
		Notifier:         notifier,
		Summaries:        summaries,
		Logger:           log.With("component", "orchestrator"),
		Budget:           cfg.Scheduler.RunBudget,
		MinContentLength: cfg.Fetch.MinContentLength,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gate := usecase.NewGate(usecase.GateDeps{
		Schedule:       a.store,
		Lease:          gateLease,
		Runner:         orchestrator,
		RunLogs:        a.store,
		Recorder:       metrics.NewRecorder(reg),
		Location:       cfg.Scheduler.Location(),
		LockTTL:        cfg.Scheduler.LockTTL,
		MaxPostsPerDay: cfg.Scheduler.MaxPostsPerDay,
		Logger:         log.With("component", "gate"),
	})

	var driver ports.Scheduler
	if cfg.Scheduler.CronExpression != "" {
		driver = scheduler.NewCronScheduler(
			cfg.Scheduler.CronExpression,
			cfg.Scheduler.Location(),
			logger.New(log, "cron", slog.LevelDebug),
		)
	}
	a.scheduler = usecase.NewScheduler(driver, gate, log.With("component", "scheduler"))

	a.server = httpapi.NewServer(cfg.HTTP.Addr, httpapi.Deps{
		Runs:    a.scheduler,
		Logs:    a.store,
		Health:  a.store,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:  log.With("component", "http"),
	})
	return nil
}

func (a *Application) buildLease(ctx context.Context) (ports.Lease, error) {
	if a.cfg.Lease.Backend != "redis" {
		return usecase.NewStoreLease(a.store), nil
	}
	client, err := lease.Dial(ctx, a.cfg.Lease.RedisURL)
	if err != nil {
		return nil, err
	}
	a.redis = client
	return lease.NewRedisLease(client, a.cfg.Lease.Key), nil
}

// RunOnce performs a single gated invocation and waits for its summary work.
func (a *Application) RunOnce(ctx context.Context, opts usecase.InvokeOptions) (domain.RunResult, error) {
	result, err := a.scheduler.Trigger(ctx, opts)
	a.drainSummaries(ctx)
	return result, err
}

// RecentRuns returns the newest run-log entries.
func (a *Application) RecentRuns(ctx context.Context, limit int) ([]domain.RunLog, error) {
	return a.store.RecentRunLogs(ctx, limit)
}

// Serve starts the cron driver and the HTTP API until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression, "timezone", a.cfg.Scheduler.Location().String())

	serveErr := a.server.Start(ctx)

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), summaryDrainTimeout)
	defer cancel()
	stopErr := a.scheduler.Stop(stopCtx)
	a.drainSummaries(stopCtx)

	return errors.Join(serveErr, stopErr)
}

func (a *Application) drainSummaries(ctx context.Context) {
	if a.summaries == nil {
		return
	}
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), summaryDrainTimeout)
	defer cancel()
	if err := a.summaries.Wait(waitCtx); err != nil {
		a.logger.Warn("summary work still pending", "error", err)
	}
}

// Close releases the store and the Redis client.
func (a *Application) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
