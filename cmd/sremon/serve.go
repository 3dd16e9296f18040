package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dreschagin/sre-monitor/internal/application/usecase"
	httpInterface "github.com/dreschagin/sre-monitor/internal/interfaces/http"
	"github.com/dreschagin/sre-monitor/internal/interfaces/http/handler"
	"github.com/dreschagin/sre-monitor/internal/scheduler"
	"github.com/dreschagin/sre-monitor/pkg/config"
	"github.com/dreschagin/sre-monitor/pkg/logger"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the monitoring scheduler and HTTP API",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Инициализируем logger
	log := logger.New(cfg.LogLevel)
	log.Info("Starting SRE monitor", "host", cfg.Monitor.Hostname, "target", cfg.Monitor.TargetURL)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 3. Инфраструктура и use cases
	p, err := buildPipeline(ctx, cfg, log, pipelineOptions{serve: true})
	if err != nil {
		log.Error("Failed to initialize pipeline", err)
		return err
	}

	// 4. Планировщик
	runner := scheduler.NewRunner(p.runCycle, log, scheduler.Config{
		FallbackInterval: cfg.Monitor.CheckInterval,
		MinInterval:      cfg.Monitor.MinInterval,
		MaxInterval:      cfg.Monitor.MaxInterval,
	})

	// 5. HTTP
	apiHandler := handler.NewAPIHandler(
		usecase.NewGetCurrentAnalysisUseCase(p.repository, p.cache, log),
		usecase.NewGetCycleHistoryUseCase(p.repository, p.cache, log),
		usecase.NewListReportsUseCase(p.reportStore, p.reportIndex, usecase.ListReportsConfig{
			DefaultHost: cfg.Monitor.Hostname,
		}, log),
		0,
		log,
	)
	websocketHandler := handler.NewWebSocketHandler(p.hub, handler.WebSocketConfig{
		AllowedOrigins: cfg.Security.AllowedOrigins,
		MaxClients:     cfg.Security.WebSocketMaxClients,
	}, log)

	var metricsHandler http.Handler
	if p.metrics != nil {
		metricsHandler = p.metrics.Handler()
	}

	router := httpInterface.NewRouter(
		apiHandler,
		websocketHandler,
		scheduler.NewHandler(runner),
		metricsHandler,
		cfg.Metrics,
		cfg.Security,
		log,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 6. Фоновые процессы
	go p.hub.Run(ctx)
	for _, limiter := range router.Limiters() {
		go limiter.RunCleanup(ctx)
	}

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		runner.Start(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 7. Ожидаем сигнал для graceful shutdown
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received, starting graceful shutdown...")
	case err = <-serverErr:
		log.Error("HTTP server failed", err)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// цикл в процессе выполнения доводится до конца
	runner.Stop()
	select {
	case <-schedulerDone:
	case <-shutdownCtx.Done():
		log.Warn("Scheduler did not stop before shutdown timeout")
	}

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error("Server shutdown error", shutdownErr)
	}

	p.Close(shutdownCtx)

	log.Info("Server stopped gracefully")
	return err
}
