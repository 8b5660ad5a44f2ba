package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/domain/entity"
	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/infra/config"
	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/infra/metrics"
	miniostorage "github.com/8SOAT-GRUPO-41/hackathon-backend/internal/infra/minio"
	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/infra/postgres"
	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/infra/rabbitmq"
	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/infra/tracing"
	"github.com/8SOAT-GRUPO-41/hackathon-backend/internal/usecase"
	"github.com/8SOAT-GRUPO-41/hackathon-backend/pkg/logger"
	"github.com/google/uuid"
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

	log.Info("starting hackathon-backend job tracker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if Jaeger unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	// Migrations
	err = postgres.RunMigrations(cfg.DatabaseURL, "migrations")
	if err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		UseSSL:    cfg.MinIOUseSSL,
		Bucket:    cfg.MinIOBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBucket(ctx), "ensure minio bucket")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	notificationPub := rabbitmq.NewNotificationPublisher(pub)

	// Repositories
	videos := postgres.NewVideoRepository(pool)
	users := postgres.NewUserRepository(pool)

	// Use case
	tracker := usecase.NewTrackProcessingJobUseCase(videos, users, notificationPub, log)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	// Consumer (worker pool, same-video messages serialized per worker)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:               cfg.RabbitMQURL,
		Queue:             cfg.RabbitMQStatusQueue,
		Exchange:          cfg.RabbitMQExchange,
		NotificationQueue: cfg.RabbitMQNotificationQueue,
		Prefetch:          cfg.RabbitMQPrefetch,
		WorkerCount:       cfg.WorkerCount,
		BaseDelayMs:       cfg.RetryBaseDelayMs,
	}, trackHandler(tracker), log)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("hackathon-backend job tracker started, consuming messages")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("hackathon-backend job tracker stopped")
}

// trackHandler adapts a decoded queue message to the tracking use case.
func trackHandler(tracker *usecase.TrackProcessingJobUseCase) rabbitmq.MessageHandler {
	return func(ctx context.Context, msg entity.StatusUpdateMessage) error {
		videoID, err := uuid.Parse(msg.VideoID)
		if err != nil {
			return fmt.Errorf("parse video id %q: %w", msg.VideoID, err)
		}
		status, err := entity.ParseJobStatus(msg.Status)
		if err != nil {
			return err
		}

		_, err = tracker.Execute(ctx, usecase.TrackProcessingJobInput{
			VideoID:       videoID,
			Status:        status,
			FailureReason: msg.FailureReason,
		})
		return err
	}
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
