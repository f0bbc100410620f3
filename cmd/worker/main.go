package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/abdulrahman-963/new-pluta/internal/domain/port"
	"github.com/abdulrahman-963/new-pluta/internal/infra/config"
	"github.com/abdulrahman-963/new-pluta/internal/infra/email"
	"github.com/abdulrahman-963/new-pluta/internal/infra/engine"
	"github.com/abdulrahman-963/new-pluta/internal/infra/ffmpeg"
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

	log.Info("starting pluta video worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if Jaeger unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, "pluta-video-worker")
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(context.Background())
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	// Migrations
	err = postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir)
	if err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		UseSSL:    cfg.MinIOUseSSL,
		Bucket:    cfg.MinIOUploadBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBucket(ctx), "ensure minio bucket")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Infra adapters
	videos := postgres.NewVideoRepository(pool)
	frames := postgres.NewFrameRepository(pool)
	tables := postgres.NewTableCatalog(pool)

	extractor := ffmpeg.NewExtractor(ffmpeg.ExtractorConfig{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		Width:       cfg.FrameWidth,
		Height:      cfg.FrameHeight,
	}, subprocess.NewRunner(cfg.ExtractorTimeout), log)

	detector := engine.NewDetector(engine.DetectorConfig{
		Executable: cfg.EngineExecutable,
		Script:     cfg.EngineScript,
	}, subprocess.NewRunner(cfg.EngineTimeout), log)

	var notifier port.FailureNotifier
	if cfg.SMTPHost != "" {
		notifier = email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.NotificationTo, log)
	}

	// Use cases
	uc := usecase.NewProcessVideoUseCase(
		videos, tables, storage,
		usecase.NewFrameSampler(extractor, cfg.FrameInterval, log),
		usecase.NewZoneDispatcher(detector, cfg.EngineConcurrency, log),
		usecase.NewResultCorrelator(tables, frames, log),
		dlqPub, notifier,
		log,
		usecase.ProcessVideoConfig{
			TempDir:      cfg.TempDir,
			FramesDir:    cfg.FramesDir,
			AnnotatedDir: cfg.AnnotatedDir,
			Thresholds:   entity.Thresholds{Frame: cfg.FrameConfidence, Zone: cfg.ZoneConfidence},
		},
	)
	reconciler := usecase.NewReconcileRunsUseCase(videos, notifier, cfg.ReconcileStaleAfter, log)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, pool.Ping, storage.Ping)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQProcessingQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	go reconciler.Start(ctx, cfg.ReconcileInterval)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("pluta video worker started, consuming messages")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("pluta video worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
