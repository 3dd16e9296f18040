package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	// Application
	applicationPort "github.com/dreschagin/sre-monitor/internal/application/port"
	"github.com/dreschagin/sre-monitor/internal/application/usecase"

	// Domain
	"github.com/dreschagin/sre-monitor/internal/domain/repository"
	"github.com/dreschagin/sre-monitor/internal/domain/service"
	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"

	// Infrastructure
	"github.com/dreschagin/sre-monitor/internal/infrastructure/cache/memory"
	redisCache "github.com/dreschagin/sre-monitor/internal/infrastructure/cache/redis"
	"github.com/dreschagin/sre-monitor/internal/infrastructure/collector"
	natsInfra "github.com/dreschagin/sre-monitor/internal/infrastructure/messaging/nats"
	"github.com/dreschagin/sre-monitor/internal/infrastructure/notification/webhook"
	wsInfra "github.com/dreschagin/sre-monitor/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/sre-monitor/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/sre-monitor/internal/infrastructure/observability/prometheus"
	dynamodbRepo "github.com/dreschagin/sre-monitor/internal/infrastructure/persistence/dynamodb"
	"github.com/dreschagin/sre-monitor/internal/infrastructure/persistence/postgres"
	s3storage "github.com/dreschagin/sre-monitor/internal/infrastructure/storage/s3"

	// Shared
	"github.com/dreschagin/sre-monitor/pkg/config"
	"github.com/dreschagin/sre-monitor/pkg/logger"
)

// pipeline собранный цикл мониторинга вместе с инфраструктурой
type pipeline struct {
	runCycle *usecase.RunCycleUseCase

	repository  repository.CycleRepository
	cache       applicationPort.Cache
	metrics     *prometheus.PipelineMetrics
	hub         *wsInfra.Hub
	reportStore applicationPort.ReportStorage
	reportIndex applicationPort.ReportIndex

	// выполняются в обратном порядке при остановке
	closers []func(ctx context.Context)
}

type pipelineOptions struct {
	// serve подключает WebSocket hub и Prometheus
	serve bool
}

// Close освобождает ресурсы в обратном порядке создания
func (p *pipeline) Close(ctx context.Context) {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i](ctx)
	}
}

func (p *pipeline) onClose(fn func(ctx context.Context)) {
	p.closers = append(p.closers, fn)
}

// buildPipeline собирает зависимости по конфигурации.
// Опциональные интеграции (Postgres, Redis, NATS, AWS) подключаются только если включены.
func buildPipeline(ctx context.Context, cfg *config.Config, log *logger.Logger, opts pipelineOptions) (*pipeline, error) {
	p := &pipeline{}
	fail := func(err error) (*pipeline, error) {
		p.Close(context.Background())
		return nil, err
	}

	// CloudWatch Logs первым, чтобы остальная инициализация попала в лог-группу
	if cfg.CloudWatch.LogsEnabled {
		logsPublisher, err := cloudwatch.NewLogsPublisher(ctx, cloudwatch.LogsPublisherConfig{
			LogGroupName:    cfg.CloudWatch.LogGroupName,
			LogStreamName:   cfg.CloudWatch.LogStreamName,
			Region:          cfg.CloudWatch.Region,
			Endpoint:        cfg.CloudWatch.Endpoint,
			AccessKeyID:     cfg.CloudWatch.AccessKeyID,
			SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
			BufferSize:      cfg.CloudWatch.LogsBufferSize,
			FlushInterval:   cfg.CloudWatch.LogsFlushInterval,
			AutoCreate:      true,
		})
		if err != nil {
			return fail(fmt.Errorf("failed to initialize CloudWatch logs publisher: %w", err))
		}
		log.SetLogPublisher(logsPublisher)
		p.onClose(func(ctx context.Context) {
			log.SetLogPublisher(nil)
			if err := logsPublisher.Close(ctx); err != nil {
				log.Error("Failed to flush CloudWatch logs", err)
			}
		})
		log.Info("CloudWatch logs publisher initialized", "log_group", cfg.CloudWatch.LogGroupName)
	}

	thresholds, err := thresholdsFromConfig(cfg.Thresholds)
	if err != nil {
		return fail(err)
	}

	var pipelineMetrics applicationPort.PipelineMetrics
	if opts.serve && cfg.Metrics.PrometheusEnabled {
		p.metrics = prometheus.NewPipelineMetrics()
		pipelineMetrics = p.metrics
	}

	var runOpts []usecase.RunCycleOption

	// Postgres
	if cfg.Database.Enabled {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return fail(fmt.Errorf("failed to connect to database: %w", err))
		}
		p.onClose(func(context.Context) { _ = db.Close() })

		if err := postgres.Migrate(ctx, db); err != nil {
			return fail(fmt.Errorf("failed to migrate database: %w", err))
		}

		p.repository = postgres.NewPostgresCycleRepository(db)
		retention := time.Duration(cfg.Database.RetentionDays) * 24 * time.Hour
		runOpts = append(runOpts, usecase.WithCycleRepository(p.repository, retention))
		log.Info("Database connected successfully", "retention_days", cfg.Database.RetentionDays)
	} else {
		log.Warn("Cycle history is disabled, only the latest analysis is kept in cache")
	}

	// Redis, иначе in-memory кеш
	if cfg.Redis.Enabled {
		cache, err := redisCache.NewRedisCache(cfg.Redis)
		if err != nil {
			return fail(fmt.Errorf("failed to connect to redis: %w", err))
		}
		p.cache = cache
		log.Info("Redis cache initialized", "addr", cfg.Redis.Host+":"+cfg.Redis.Port)
	} else {
		p.cache = memory.NewCache(cfg.Redis.TTL)
		log.Info("Using in-memory cache", "ttl", cfg.Redis.TTL.String())
	}
	cache := p.cache
	p.onClose(func(context.Context) { _ = cache.Close() })
	runOpts = append(runOpts, usecase.WithCache(p.cache))

	// NATS
	if cfg.NATS.Enabled {
		publisher, err := natsInfra.NewNATSPublisher(cfg.NATS.URL, log)
		if err != nil {
			log.Warn("Failed to connect to NATS, continuing without event publishing", "error", err.Error())
		} else {
			p.onClose(func(context.Context) { _ = publisher.Close() })
			runOpts = append(runOpts, usecase.WithEventPublisher(publisher))
			log.Info("NATS event publisher initialized", "url", cfg.NATS.URL)
		}
	}

	// CloudWatch Metrics
	if cfg.CloudWatch.MetricsEnabled {
		publisher, err := cloudwatch.NewMetricsPublisher(ctx, cloudwatch.MetricsPublisherConfig{
			Namespace:         cfg.CloudWatch.MetricsNamespace,
			Region:            cfg.CloudWatch.Region,
			Endpoint:          cfg.CloudWatch.Endpoint,
			AccessKeyID:       cfg.CloudWatch.AccessKeyID,
			SecretAccessKey:   cfg.CloudWatch.SecretAccessKey,
			DefaultDimensions: cfg.CloudWatch.MetricsDimensions,
			BufferSize:        cfg.CloudWatch.MetricsBufferSize,
			FlushInterval:     cfg.CloudWatch.MetricsFlushInterval,
			StorageResolution: cfg.CloudWatch.MetricsStorageResolution,
		}, log)
		if err != nil {
			return fail(fmt.Errorf("failed to initialize CloudWatch metrics publisher: %w", err))
		}
		p.onClose(func(ctx context.Context) {
			if err := publisher.Close(ctx); err != nil {
				log.Error("Failed to flush CloudWatch metrics", err)
			}
		})
		runOpts = append(runOpts, usecase.WithMetricsPublisher(publisher))
		log.Info("CloudWatch metrics publisher initialized", "namespace", cfg.CloudWatch.MetricsNamespace)
	}

	if pipelineMetrics != nil {
		runOpts = append(runOpts, usecase.WithPipelineMetrics(pipelineMetrics))
	}

	// Архив отчетов: S3 + DynamoDB
	if cfg.S3.Enabled {
		storage, err := s3storage.NewReportStorage(ctx, s3storage.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			URLMode:         s3storage.URLMode(cfg.S3.URLMode),
			PresignedTTL:    cfg.S3.PresignedTTL,
		})
		if err != nil {
			return fail(fmt.Errorf("failed to initialize report storage: %w", err))
		}
		p.reportStore = storage

		if cfg.Dynamo.Enabled {
			index, err := dynamodbRepo.NewReportIndex(ctx, dynamodbRepo.Config{
				TableName:       cfg.Dynamo.TableReports,
				Region:          cfg.Dynamo.Region,
				Endpoint:        cfg.Dynamo.Endpoint,
				AccessKeyID:     cfg.Dynamo.AccessKeyID,
				SecretAccessKey: cfg.Dynamo.SecretAccessKey,
				StrongReads:     cfg.Dynamo.StrongReads,
			})
			if err != nil {
				return fail(fmt.Errorf("failed to initialize report index: %w", err))
			}
			p.reportIndex = index
			log.Info("Report index initialized", "provider", "dynamodb", "table", cfg.Dynamo.TableReports)
		} else {
			log.Warn("DynamoDB report index is disabled, archived reports are not listable")
		}

		archive, err := usecase.NewArchiveReportUseCase(p.reportStore, p.reportIndex, usecase.ArchiveReportConfig{
			Host:      cfg.Monitor.Hostname,
			KeyPrefix: cfg.S3.KeyPrefix,
			TTL:       time.Duration(cfg.Dynamo.ReportTTLDays) * 24 * time.Hour,
		}, log)
		if err != nil {
			return fail(err)
		}
		runOpts = append(runOpts, usecase.WithArchive(archive))
		log.Info("Report archive initialized", "bucket", cfg.S3.Bucket)
	}

	// Каналы уведомлений
	var sinks []applicationPort.NotificationService
	if cfg.Notification.WebhookURL != "" {
		sinks = append(sinks, webhook.NewNotifier(webhook.Config{
			URL:        cfg.Notification.WebhookURL,
			Secret:     cfg.Notification.WebhookSecret,
			Timeout:    cfg.Notification.WebhookTimeout,
			MaxRetries: cfg.Notification.MaxRetries,
			Backoff:    cfg.Notification.RetryBackoff,
		}, log))
	}
	if opts.serve {
		p.hub = wsInfra.NewHub(log)
		runOpts = append(runOpts, usecase.WithLiveFeed(p.hub))
		if cfg.Notification.WebSocket {
			sinks = append(sinks, p.hub)
		}
	}
	if len(sinks) == 0 && cfg.Monitor.EnableNotifications {
		log.Warn("Notifications are enabled but no channel is configured")
	}

	// Use cases
	collect := usecase.NewCollectCycleUseCase(
		collector.NewSystemMetricsCollector(),
		collector.NewHTTPLatencyProber(&http.Client{}),
		service.NewClassifier(thresholds, service.NewSampleAggregator(), service.NewMetricValidator()),
		service.NewSnapshotAggregator(),
		pipelineMetrics,
		usecase.CollectCycleConfig{
			Probe: applicationPort.LatencyProbeConfig{
				URL:      cfg.Monitor.TargetURL,
				Attempts: cfg.Monitor.ProbeAttempts,
				Timeout:  cfg.Monitor.ProbeTimeout,
			},
			DomainTimeout: cfg.Monitor.DomainTimeout,
		},
		log,
	)
	notify := usecase.NewNotifyUseCase(sinks, cfg.Monitor.EnableNotifications, pipelineMetrics, log)

	p.runCycle = usecase.NewRunCycleUseCase(collect, service.NewIncidentAnalyzer(), notify, log, runOpts...)

	return p, nil
}

type thresholdBinding struct {
	name   string
	pair   config.ThresholdPair
	target *valueobject.Threshold
}

// thresholdsFromConfig переводит пороги конфигурации в доменные
func thresholdsFromConfig(cfg config.ThresholdsConfig) (service.Thresholds, error) {
	var t service.Thresholds

	bindings := []thresholdBinding{
		{"disk", cfg.Disk, &t.Disk},
		{"memory", cfg.Memory, &t.Memory},
		{"cpu", cfg.CPU, &t.CPU},
		{"processes", cfg.Processes, &t.Processes},
		{"network", cfg.Network, &t.Network},
		{"latency_avg", cfg.LatencyAvg, &t.LatencyAvg},
		{"latency_p95", cfg.LatencyP95, &t.LatencyP95},
	}

	for _, b := range bindings {
		threshold, err := valueobject.NewThreshold(b.pair.Warn, b.pair.Crit)
		if err != nil {
			return service.Thresholds{}, fmt.Errorf("invalid %s threshold: %w", b.name, err)
		}
		*b.target = threshold
	}
	t.ConnectionWarn = cfg.ConnectionWarn

	return t, nil
}
