package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freelance-hub/internal/application/outbox"
	"github.com/freelance-hub/internal/config"
	"github.com/freelance-hub/internal/infrastructure/dynamo"
	jwtinfra "github.com/freelance-hub/internal/infrastructure/jwt"
	"github.com/freelance-hub/internal/infrastructure/smtp"
	"github.com/freelance-hub/internal/infrastructure/sns"
	"github.com/freelance-hub/internal/metrics"
	"github.com/freelance-hub/internal/pkg/logger"
	"github.com/freelance-hub/internal/realtime"
	transporthttp "github.com/freelance-hub/internal/transport/http"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// presenceTTL bounds how long a crashed instance can keep a user online.
const presenceTTL = 24 * time.Hour

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	zlog, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		zlog.Fatal("dynamodb client", zap.Error(err))
	}
	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables, zlog)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		zlog.Fatal("jwt provider", zap.Error(err))
	}

	mailer := smtp.NewMailer(cfg)
	if mailer == nil {
		zlog.Warn("SMTP_HOST not set, mail disabled")
	}

	push, err := sns.NewPublisher(ctx, cfg)
	if err != nil {
		zlog.Warn("sns publisher not available", zap.Error(err))
		push = nil
	}

	hub := realtime.NewHub(zlog)
	var (
		broker   realtime.Broker
		presence realtime.Presence
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			zlog.Fatal("redis ping", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		broker = realtime.NewRedisBroker(rdb, realtime.DefaultChannel, hub.Deliver, zlog)
		presence = realtime.NewRedisPresence(rdb, "freelance-hub", presenceTTL)
		zlog.Info("real-time delivery through redis", zap.String("addr", cfg.RedisAddr))
	} else {
		broker = realtime.NewLocalBroker(hub.Deliver)
		presence = realtime.NewLocalPresence()
		zlog.Info("REDIS_ADDR not set, real-time delivery limited to this instance")
	}
	emitter := realtime.NewEmitter(broker, zlog)

	tables := cfg.DynamoTables
	userRepo := dynamo.NewUserRepo(dynamoClient, tables.Users)
	notificationRepo := dynamo.NewNotificationRepo(dynamoClient, tables.Notifications, tables.Users)
	outboxRepo := dynamo.NewOutboxRepo(dynamoClient, tables.Outbox)

	deps := &transporthttp.Deps{
		UserRepo:         userRepo,
		ProjectRepo:      dynamo.NewProjectRepo(dynamoClient, tables.Projects, tables.Outbox),
		TeamRepo:         dynamo.NewTeamRepo(dynamoClient, tables.Teams, tables.Outbox),
		TaskRepo:         dynamo.NewTaskRepo(dynamoClient, tables.Tasks, tables.Projects, tables.Outbox),
		MessageRepo:      dynamo.NewMessageRepo(dynamoClient, tables.Messages, tables.Outbox),
		NotificationRepo: notificationRepo,
		OutboxRepo:       outboxRepo,
		RecoveryRepo:     dynamo.NewRecoveryRepo(dynamoClient, tables.RecoveryCodes),
		Mailer:           mailer,
		JWTProvider:      jwtProvider,
		Hub:              hub,
		Emitter:          emitter,
		Presence:         presence,
		Log:              zlog,
	}

	relay := outbox.NewRelay(outbox.Config{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxAttempts:  cfg.OutboxMaxAttempts,
	}, outbox.Deps{
		Events:        outboxRepo,
		Notifications: notificationRepo,
		Users:         userRepo,
		Emitter:       emitter,
		Presence:      presence,
		Push:          push,
		Mailer:        mailer,
		Log:           zlog.Named("outbox"),
	})

	go func() {
		if err := broker.Run(ctx); err != nil && ctx.Err() == nil {
			zlog.Error("broker stopped", zap.Error(err))
		}
	}()
	go relay.Run(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(ctx, cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zlog.Info("server starting", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	zlog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("forced shutdown", zap.Error(err))
	}
	zlog.Info("server stopped")
}
