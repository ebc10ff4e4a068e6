package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/microfeed/config"
	"github.com/d60-Lab/microfeed/internal/api"
	"github.com/d60-Lab/microfeed/internal/api/handler"
	"github.com/d60-Lab/microfeed/internal/id"
	"github.com/d60-Lab/microfeed/internal/model"
	"github.com/d60-Lab/microfeed/internal/mq"
	"github.com/d60-Lab/microfeed/internal/repository"
	"github.com/d60-Lab/microfeed/internal/service"
	"github.com/d60-Lab/microfeed/internal/sharding"
	"github.com/d60-Lab/microfeed/pkg/database"
	"github.com/d60-Lab/microfeed/pkg/logger"
	"github.com/d60-Lab/microfeed/pkg/metrics"
	"github.com/d60-Lab/microfeed/pkg/redisclient"
	"github.com/d60-Lab/microfeed/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Init(ctx, cfg.Tracing.Endpoint)
		if err != nil {
			logger.Warn("tracing init failed", zap.Error(err))
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	dbs, err := database.InitShards(cfg)
	if err != nil {
		logger.Error("open database", zap.Error(err))
		os.Exit(1)
	}
	router := sharding.NewRouter(dbs)
	for _, db := range dbs {
		if err := db.AutoMigrate(&model.User{}, &model.Post{}, &model.Follow{}, &model.Outbox{}); err != nil {
			logger.Error("migrate", zap.Error(err))
			os.Exit(1)
		}
	}

	rdb := redisclient.New(cfg)
	defer func() { _ = rdb.Close() }()

	producer, err := mq.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		logger.Error("create producer", zap.Error(err))
		os.Exit(1)
	}
	defer func() { _ = producer.Close() }()

	reg := metrics.NewRegistry()
	idGen := id.NewGenerator()

	userRepo := repository.NewUserRepository(router)
	postRepo := repository.NewPostRepository(router)
	followRepo := repository.NewFollowRepository(router)
	outboxRepo := repository.NewOutboxRepository(router)
	cache := repository.NewTimelineCache(rdb, cfg.Timeline.MaxSize)

	postSvc := service.NewPostService(router, postRepo, outboxRepo, idGen, reg)
	relSvc := service.NewRelationshipService(router, followRepo, userRepo, outboxRepo, idGen, reg)
	tlSvc := service.NewTimelineService(cache, postRepo, followRepo, cfg.Timeline.CelebrityFollowerThreshold, reg)
	adminSvc := service.NewAdminService(userRepo, postRepo, followRepo, outboxRepo, cache,
		mq.NewTopicAdmin(cfg.Kafka.Brokers), cfg.Kafka.Topic, reg)

	dispatcher := service.NewDispatcher(router, outboxRepo, producer, cfg.Kafka.Topic,
		cfg.Outbox.BatchSize,
		time.Duration(cfg.Outbox.PollIntervalMs)*time.Millisecond,
		time.Duration(cfg.Outbox.RetentionHours)*time.Hour,
		reg)
	stopDispatcher := dispatcher.Start()
	defer func() { _ = stopDispatcher(context.Background()) }()

	materializer := service.NewMaterializer(router, cache, postRepo, followRepo,
		cfg.Timeline.CelebrityFollowerThreshold, cfg.Timeline.MaxSize, reg)
	consumer := mq.NewConsumerGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID,
		[]string{cfg.Kafka.Topic}, materializer.Handle)
	go func() {
		if err := consumer.Run(ctx); err != nil {
			logger.Error("consumer stopped", zap.Error(err))
		}
	}()

	h := handler.New(postSvc, relSvc, tlSvc, adminSvc, cfg.Timeline)
	engine := api.NewRouter(cfg, h, userRepo, router)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: engine}
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}
