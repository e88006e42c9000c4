package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"lori/internal/backend"
	"lori/internal/cache"
	"lori/internal/cli"
	"lori/internal/config"
	"lori/internal/gesture"
	apphttp "lori/internal/http"
	"lori/internal/log"
	"lori/internal/storage"
	"lori/internal/summary"
	"lori/internal/tab"
	"lori/internal/view"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger.Slog())

	if err := run(cfg, logger); err != nil {
		logger.Error("Lori stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(logger.Slog())
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog()).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	storageLogger := logger.WithComponent(log.ComponentStorage).Slog()
	items := storage.Load(ctx, res.Store, cfg.StorageKey, storageLogger)

	storeOpts := []tab.Option{
		tab.WithObserver(storage.NewSnapshotter(res.Store, cfg.StorageKey, storageLogger)),
	}
	if res.Events != nil {
		storeOpts = append(storeOpts, tab.WithObserver(res.Events))
	}
	store := tab.NewStore(items, storeOpts...)
	logger.Info("Tab loaded",
		log.FieldItems, store.Len(),
		log.FieldTotal, store.TotalBill(),
		log.FieldOperation, log.OpStartup)

	summarizer := newSummarizer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)

	cacheLogger := logger.WithComponent(log.ComponentCache)
	rows := cache.NewLRUCache[*gesture.Machine](cfg.GestureRowLimit, cfg.GestureRowTTL,
		cache.WithEvictHook(func(id string, _ *gesture.Machine) {
			cacheLogger.Debug("Gesture row evicted", log.FieldItemID, id)
		}))
	caches := cache.NewManager(cacheLogger.Slog())
	caches.Register(rows)
	caches.StartCleanup(cfg.CleanupInterval)
	defer caches.Stop()

	ctrl := view.NewController(store, summarizer,
		view.WithRowCache(rows),
		view.WithLogger(logger.WithComponent(log.ComponentView)))
	defer ctrl.Wait()

	srv := apphttp.NewServer(":"+cfg.Port, ctrl,
		apphttp.WithLogger(logger),
		apphttp.WithReadyCheck("storage", res.Store.Ping))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting lori server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"gemini", cfg.HasGemini(),
			"amqp", res.Events != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newSummarizer returns the Gemini-backed service when a key is configured
// and the offline summarizer otherwise.
func newSummarizer(ctx context.Context, apiKey, model string, logger *log.Logger) summary.Summarizer {
	summaryLogger := logger.WithComponent(log.ComponentSummary)
	if apiKey == "" {
		summaryLogger.Info("No Gemini API key, recap summaries use the offline text")
		return summary.Static{}
	}
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	gen, err := summary.NewGemini(initCtx, apiKey, model)
	if err != nil {
		summaryLogger.Warn("Failed to initialize Gemini client, using offline text", log.FieldError, err)
		return summary.Static{}
	}
	summaryLogger.Info("Gemini summaries enabled", "model", model)
	return summary.NewService(gen, summaryLogger.Slog())
}
