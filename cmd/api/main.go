package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdulrahman-963/new-pluta/internal/infra/config"
	"github.com/abdulrahman-963/new-pluta/internal/infra/engine"
	"github.com/abdulrahman-963/new-pluta/internal/infra/httpapi"
	"github.com/abdulrahman-963/new-pluta/internal/infra/metrics"
	miniostorage "github.com/abdulrahman-963/new-pluta/internal/infra/minio"
	"github.com/abdulrahman-963/new-pluta/internal/infra/postgres"
	"github.com/abdulrahman-963/new-pluta/internal/infra/rabbitmq"
	"github.com/abdulrahman-963/new-pluta/internal/infra/subprocess"
	"github.com/abdulrahman-963/new-pluta/internal/infra/tracing"
	"github.com/abdulrahman-963/new-pluta/internal/usecase"
	"github.com/abdulrahman-963/new-pluta/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting pluta video api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, "pluta-video-api")
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(context.Background())
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		UseSSL:    cfg.MinIOUseSSL,
		Bucket:    cfg.MinIOUploadBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBucket(ctx), "ensure minio bucket")

	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")
	defer pub.Close()
	fatalOnErr(rabbitmq.DeclareTopology(pub.Channel(), cfg.RabbitMQExchange, cfg.RabbitMQProcessingQueue, cfg.RabbitMQDLQ), "declare rabbitmq topology")

	videos := postgres.NewVideoRepository(pool)
	frames := postgres.NewFrameRepository(pool)
	tables := postgres.NewTableCatalog(pool)

	detector := engine.NewDetector(engine.DetectorConfig{
		Executable: cfg.EngineExecutable,
		Script:     cfg.EngineScript,
	}, subprocess.NewRunner(cfg.EngineTimeout), log)

	handler := httpapi.NewHandler(
		usecase.NewUploadVideoUseCase(videos, storage, rabbitmq.NewRunPublisher(pub), log),
		usecase.NewQueryVideoUseCase(videos, frames),
		usecase.NewAnalyzeImageUseCase(tables,
			usecase.NewZoneDispatcher(detector, cfg.EngineConcurrency, log),
			usecase.AnalyzeImageConfig{TempDir: cfg.TempDir, AnnotatedDir: cfg.AnnotatedDir},
			log,
		),
		cfg.MaxUploadBytes,
		log,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           httpapi.NewRouter(handler, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, pool.Ping, storage.Ping)

	go func() {
		log.Info("http server starting", zap.Int("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", zap.Error(err))
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Shutdown(shutdownCtx)

	log.Info("pluta video api stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
