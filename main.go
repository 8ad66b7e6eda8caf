package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/evidentia-ai/evidentia/internal/activities"
	"github.com/evidentia-ai/evidentia/internal/cache"
	"github.com/evidentia-ai/evidentia/internal/config"
	"github.com/evidentia-ai/evidentia/internal/httpapi"
	"github.com/evidentia-ai/evidentia/internal/knowledge"
	"github.com/evidentia-ai/evidentia/internal/llm"
	"github.com/evidentia-ai/evidentia/internal/search"
	"github.com/evidentia-ai/evidentia/internal/webfetch"
	"github.com/evidentia-ai/evidentia/internal/workflows"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "evidentia: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	manager, err := config.NewManager(config.Path(), logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	defer manager.Stop()
	cfg := manager.Current()

	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    newZapAdapter(logger),
	})
	if err != nil {
		return fmt.Errorf("connect temporal at %s: %w", cfg.Temporal.HostPort, err)
	}
	defer tc.Close()

	cch, err := cache.New(cfg.Redis.Addr, cfg.Redis.Password, "evidentia", cfg.Redis.TTL, logger)
	if err != nil {
		logger.Warn("cache unavailable, continuing without it", zap.Error(err))
	}
	if cch != nil {
		defer cch.Close()
	}

	acts := activities.NewActivities(activities.Deps{
		Config: cfg,
		Generator: llm.NewClient(llm.Config{
			BaseURL:  cfg.Generation.BaseURL,
			Token:    cfg.Generation.Token,
			Provider: cfg.Provider,
			Timeout:  cfg.Generation.Timeout,
		}, logger),
		Search: search.NewClient(search.Config{
			BaseURL:  cfg.Search.BaseURL,
			APIKey:   cfg.Search.APIKey,
			EngineID: cfg.Search.EngineID,
			Timeout:  cfg.Search.Timeout,
		}, cch, logger),
		Knowledge: knowledge.NewClient(knowledge.Config{
			BaseURL:   cfg.Knowledge.BaseURL,
			Token:     cfg.Knowledge.Token,
			EndUserID: cfg.Knowledge.EndUserID,
			Timeout:   cfg.Knowledge.Timeout,
		}, cch, logger),
		Fetcher: webfetch.NewFetcher(webfetch.Config{
			SlowHostSuffixes: cfg.SlowHostSuffixes,
		}, logger),
		Metadata: webfetch.NewMetadataClient("", 0),
		Logger:   logger,
	})

	w := worker.New(tc, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.DeepAnswerWorkflow)
	w.RegisterActivity(acts)

	api := httpapi.NewServer(tc, manager, logger)
	adminSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.AdminPort),
		Handler: api.Handler(),
	}
	go func() {
		logger.Info("http api listening", zap.Int("port", cfg.AdminPort))
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http api stopped", zap.Error(err))
		}
	}()

	logger.Info("worker starting",
		zap.String("task_queue", cfg.Temporal.TaskQueue),
		zap.String("temporal", cfg.Temporal.HostPort))

	// Run blocks until SIGINT/SIGTERM or a fatal worker error.
	runErr := w.Run(worker.InterruptCh())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http api shutdown", zap.Error(err))
	}
	if runErr != nil {
		return fmt.Errorf("worker: %w", runErr)
	}
	return nil
}
