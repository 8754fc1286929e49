package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/goodjin/migratehero/internal/config"
	"github.com/goodjin/migratehero/internal/handler"
	"github.com/goodjin/migratehero/internal/infrastructure/database"
	"github.com/goodjin/migratehero/internal/logger"
	"github.com/goodjin/migratehero/internal/metrics"
	"github.com/goodjin/migratehero/internal/middleware"
	"github.com/goodjin/migratehero/internal/poller"
	"github.com/goodjin/migratehero/internal/pushsub"
	"github.com/goodjin/migratehero/internal/pushsub/redis"
	"github.com/goodjin/migratehero/internal/pushsub/stomp"
	"github.com/goodjin/migratehero/internal/repository"
	"github.com/goodjin/migratehero/internal/service"
	"github.com/goodjin/migratehero/internal/store"
	"github.com/goodjin/migratehero/internal/validator"
	"github.com/goodjin/migratehero/internal/workerapi"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration",
			slog.String("error", err.Error()))
	}
	logger.SetLogger(logger.New(os.Stdout, cfg.LogLevel))

	// Worker API client: control requests always go here, snapshots unless
	// the read replica is configured.
	worker, err := workerapi.NewClient(workerapi.Config{
		BaseURL:  cfg.WorkerAPIURL,
		Token:    cfg.WorkerAPIToken,
		Timeout:  cfg.WorkerAPITimeout,
		RetryMax: cfg.WorkerAPIRetryMax,
	})
	if err != nil {
		logger.Fatal("Failed to create worker api client",
			slog.String("error", err.Error()))
	}

	checks := map[string]handler.Pinger{}

	var source poller.Source = worker
	if cfg.SnapshotSource == config.SnapshotSourcePostgres {
		pool, err := database.NewReplicaPool(context.Background(), database.PoolConfig{
			Host:              cfg.DBHost,
			Port:              cfg.DBPort,
			User:              cfg.DBUser,
			Password:          cfg.DBPassword,
			Database:          cfg.DBName,
			SSLMode:           cfg.DBSSLMode,
			MaxConns:          cfg.DBMaxConns,
			MinConns:          cfg.DBMinConns,
			MaxConnLifetime:   cfg.DBMaxConnLifetime,
			MaxConnIdleTime:   cfg.DBMaxConnIdleTime,
			HealthCheckPeriod: cfg.DBHealthCheckPeriod,
		})
		if err != nil {
			logger.Fatal("Failed to connect to read replica",
				slog.String("error", err.Error()))
		}
		defer pool.Close()

		poolStatsCollector := metrics.NewPoolStatsCollector(pool)
		poolStatsCollector.Start(15 * time.Second)
		defer poolStatsCollector.Stop()

		source = repository.NewPostgresSnapshotRepository(pool)
		checks["database"] = pool
	}

	// Push transport
	var transport pushsub.Transport
	switch cfg.PushTransport {
	case config.PushTransportStomp:
		transport, err = stomp.New(stomp.Config{
			URL:       cfg.PushURL,
			Token:     cfg.WorkerAPIToken,
			HeartBeat: cfg.PushHeartBeat,
		})
		if err != nil {
			logger.Fatal("Failed to create stomp transport",
				slog.String("error", err.Error()))
		}
	case config.PushTransportRedis:
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		transport = redis.New(rdb)
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	default:
		logger.Info("Push transport disabled, tracking by polling only")
	}

	// Tracking service
	v := validator.NewValidator()
	st := store.New(cfg.SubscriberBuffer)
	trackingService := service.NewTrackingService(st, source, worker, transport, v, service.Config{
		Poll: poller.Config{
			Interval:     cfg.PollInterval,
			Timeout:      cfg.PollTimeout,
			TriggerRate:  cfg.OnDemandFetchRate,
			TriggerBurst: cfg.OnDemandFetchBurst,
		},
		Push: pushsub.Config{
			InitialInterval: cfg.ReconnectInitial,
			MaxInterval:     cfg.ReconnectMax,
		},
		QueueSize: cfg.MergeQueueSize,
	})

	// Initialize handlers
	jobHandler := handler.NewJobHandler(trackingService, v)
	healthHandler := handler.NewHealthHandler(version, checks)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(gin.Logger())

	// Health and metrics endpoints
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/live", healthHandler.Live)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	jobHandler.RegisterRoutes(router.Group("/api/v1"))

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("Starting server",
			slog.String("port", cfg.ServerPort),
			slog.String("push_transport", cfg.PushTransport),
			slog.String("snapshot_source", cfg.SnapshotSource),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server",
				slog.String("error", err.Error()))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	// Unwatching every job closes its change streams, which ends open event
	// streams before the server waits for in-flight requests.
	logger.Info("Closing tracking service")
	trackingService.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error",
			slog.String("error", err.Error()))
	}

	logger.Info("Server exited")
}
