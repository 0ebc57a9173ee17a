package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"citai-analytics-service/internal/config"
	"citai-analytics-service/internal/db"
	"citai-analytics-service/internal/export"
	"citai-analytics-service/internal/exportjobs"
	httpapi "citai-analytics-service/internal/http"
	"citai-analytics-service/internal/http/handlers"
	"citai-analytics-service/internal/logger"
	"citai-analytics-service/internal/queue"
	"citai-analytics-service/internal/reports"
	"citai-analytics-service/internal/storage"
	"citai-analytics-service/internal/store"
	"citai-analytics-service/internal/ws"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	pg := store.NewPostgres(pool, log)
	hub := ws.NewHub(log)

	var (
		jobStore exportjobs.StatusStore = exportjobs.NewMemoryStore(cfg.ExportJobTTL)
		notifier exportjobs.Notifier    = hub
	)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = exportjobs.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("redis connection failed", zap.Error(err))
			}
			log.Warn("redis connection failed; export jobs stay in memory", zap.Error(err))
			redisClient = nil
		}
	}
	if redisClient != nil {
		defer redisClient.Close()
		jobStore = exportjobs.NewRedisStore(redisClient, cfg.ExportJobTTL)
		relay := ws.NewRedisRelay(redisClient, hub, log)
		notifier = relay
		go relay.Run(ctx)
		log.Info("redis enabled", zap.String("statusChannel", ws.ExportStatusChannel))
	}

	var objects *storage.ObjectStore
	if cfg.ObjectStoreConfigured() {
		objects, err = storage.NewObjectStore(ctx, storage.Config{
			Endpoint:        cfg.ObjectStoreEndpoint,
			Region:          cfg.ObjectStoreRegion,
			AccessKeyID:     cfg.ObjectStoreAccessKeyID,
			SecretAccessKey: cfg.ObjectStoreSecretAccessKey,
			Bucket:          cfg.ObjectStoreBucket,
			PublicBaseURL:   cfg.ObjectStorePublicBaseURL,
			StorageClass:    cfg.ObjectStoreStorageClass,
		})
		if err != nil {
			log.Fatal("object store init failed", zap.Error(err))
		}
	} else {
		log.Info("object store disabled; async exports and archiving unavailable")
	}

	exporter := export.NewService(export.NewExcelizeWriter(), storage.NewLogoLoader(objects, log), log)
	snapshots := reports.NewBuilder(pg, cfg.DefaultTimezone, cfg.AnalyticsNormalizeClockSkew, cfg.AnalyticsCacheTTL, log)

	var archive exportjobs.Archive
	if objects != nil {
		archive = objects
	}
	runner := &exportjobs.Runner{
		Store:         jobStore,
		Snapshots:     snapshots,
		Exporter:      exporter,
		Archive:       archive,
		Notifier:      notifier,
		ArchivePrefix: cfg.ExportArchivePrefix,
		MaxAttempts:   cfg.ExportMaxAttempts,
		Logger:        log,
	}
	jobs := &exportjobs.Service{
		Store:       jobStore,
		Runner:      runner,
		DownloadTTL: cfg.ExportDownloadURLTTL,
		Logger:      log,
	}

	var queueClient *queue.Client
	if cfg.RabbitMQURL != "" {
		log.Info("rabbitmq enabled", zap.String("exportsQueue", queue.ExportJobsQueue))
		qc, err := queue.New(cfg.RabbitMQURL)
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("rabbitmq connection failed", zap.Error(err))
			}
			log.Warn("rabbitmq connection failed; exports run in-process", zap.Error(err))
			qc = nil
		}
		if qc != nil {
			if err := queue.EnsureExportJobsTopology(ctx, qc); err != nil {
				if cfg.Env == "production" {
					log.Fatal("rabbitmq export topology failed", zap.Error(err))
				}
				log.Warn("rabbitmq export topology failed; exports run in-process", zap.Error(err))
				_ = qc.Close()
				qc = nil
			}
		}

		queueClient = qc
		if queueClient != nil {
			defer queueClient.Close()
			jobs.Publisher = queueClient
		}

		if queueClient != nil && cfg.RabbitMQWorkerMode == "daemon" {
			// Redeliveries must outlast the runner's own attempt budget.
			maxRetries := cfg.RabbitMQMaxRetries
			if maxRetries < cfg.ExportMaxAttempts {
				maxRetries = cfg.ExportMaxAttempts
			}
			if err := queueClient.Prefetch(1); err != nil {
				log.Warn("rabbitmq prefetch failed", zap.Error(err))
			}
			log.Info("export worker enabled", zap.String("mode", "daemon"))
			go func() {
				err := queueClient.ConsumeWithRetry(ctx, queue.ExportJobsQueue, runner.HandleMessage, maxRetries, 5*time.Second)
				if err != nil && !errors.Is(err, context.Canceled) {
					log.Error("export consumer stopped", zap.Error(err))
				}
			}()
		} else if queueClient != nil {
			log.Info("export worker disabled", zap.String("mode", cfg.RabbitMQWorkerMode))
		}
	} else {
		log.Info("export queue disabled (RABBITMQ_URL is empty); exports run in-process")
	}

	h := &handlers.Handler{
		Snapshots: snapshots,
		Exporter:  exporter,
		Jobs:      jobs,
		Archive:   archive,
		Logger:    log,
		Config:    cfg,
	}
	wsServer := ws.New(pg, cfg.JWTSecret, hub, log, cfg.WSHeartbeatInterval)
	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(log, cfg, h, pg, wsServer),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("analytics api ready", zap.String("base", "/api/merchant/analytics"))
		log.Info("export status ws ready", zap.String("path", "/ws/merchant/exports"))
		log.Info("analytics service listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	stopWorkers()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}
