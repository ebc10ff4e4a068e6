package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/microfeed/config"
	"github.com/d60-Lab/microfeed/internal/domain"
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
)

func must[T any](v T, err error) T { if err != nil { panic(err) }; return v }

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 { return 0 }
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 { k = 0 }
	if k >= len(xs) { k = len(xs)-1 }
	return xs[k]
}

// loopbackProducer 旁路 broker：发布直接进物化器，量纯流水线开销
type loopbackProducer struct {
	handle mq.HandlerFunc
}

func (p *loopbackProducer) Send(ctx context.Context, topic string, msg mq.Message) error {
	return p.handle(ctx, mq.Record{Key: msg.Key, Value: msg.Value, Headers: msg.Headers})
}
func (p *loopbackProducer) Close() error { return nil }

func main() {
	_ = logger.Init("warn", "console")
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	if err := db.AutoMigrate(&model.User{}, &model.Post{}, &model.Follow{}, &model.Outbox{}); err != nil {
		panic(err)
	}
	router := sharding.NewRouter([]*gorm.DB{db})

	// params
	N := 5000    // 作者的粉丝数
	POSTS := 100 // 发帖数
	if s := os.Getenv("N"); s != "" { if v, e := strconv.Atoi(s); e == nil && v > 0 { N = v } }
	if s := os.Getenv("POSTS"); s != "" { if v, e := strconv.Atoi(s); e == nil && v > 0 { POSTS = v } }

	_ = db.Exec("TRUNCATE TABLE outbox, tweets, follows, users RESTART IDENTITY CASCADE").Error

	rdb := redisclient.New(cfg)
	defer rdb.Close()

	reg := metrics.NewRegistry()
	idGen := id.NewGenerator()
	postRepo := repository.NewPostRepository(router)
	followRepo := repository.NewFollowRepository(router)
	outboxRepo := repository.NewOutboxRepository(router)
	cache := repository.NewTimelineCache(rdb, cfg.Timeline.MaxSize)
	postSvc := service.NewPostService(router, postRepo, outboxRepo, idGen, reg)

	materializer := service.NewMaterializer(router, cache, postRepo, followRepo,
		cfg.Timeline.CelebrityFollowerThreshold, cfg.Timeline.MaxSize, reg)
	producer := &loopbackProducer{handle: materializer.Handle}
	dispatcher := service.NewDispatcher(router, outboxRepo, producer, cfg.Kafka.Topic,
		cfg.Outbox.BatchSize, 20*time.Millisecond, 24*time.Hour, reg)
	stop := dispatcher.Start()
	defer stop(context.Background())

	// seed：1 个作者 + N 个粉丝
	ctx := context.Background()
	author := domain.UserID{Value: idGen.Generate()}
	_ = db.Create(&model.User{ID: author.String(), CreatedAt: time.Now()}).Error
	followers := make([]model.User, N)
	follows := make([]model.Follow, N)
	now := time.Now()
	for i := 0; i < N; i++ {
		uid := idGen.Generate().String()
		followers[i] = model.User{ID: uid, CreatedAt: now}
		follows[i] = model.Follow{FollowerID: uid, FolloweeID: author.String(), CreatedAt: now}
	}
	_ = db.CreateInBatches(&followers, 1000).Error
	_ = db.CreateInBatches(&follows, 1000).Error

	// publish
	pubDurations := make([]time.Duration, 0, POSTS)
	for i := 0; i < POSTS; i++ {
		st := time.Now()
		_ = must(postSvc.CreatePost(ctx, author, fmt.Sprintf("hello %d", i)))
		pubDurations = append(pubDurations, time.Since(st))
	}

	// 等第一个粉丝时间线收满
	reader := followers[0].ID
	deadline := time.After(2 * time.Minute)
	st := time.Now()
	for {
		n, _ := cache.Size(ctx, reader)
		if int(n) >= POSTS || int(n) >= cfg.Timeline.MaxSize {
			break
		}
		select {
		case <-deadline:
			fmt.Printf("timeout: reader timeline has %d entries, want %d\n", n, POSTS)
			os.Exit(1)
		case <-time.After(50 * time.Millisecond):
		}
	}
	landing := time.Since(st)

	var pubSum time.Duration
	for _, d := range pubDurations { pubSum += d }
	fmt.Printf("N=%d POSTS=%d\n", N, POSTS)
	fmt.Printf("Publish tx latency: avg=%v p95=%v p99=%v\n",
		pubSum/time.Duration(len(pubDurations)), pct(pubDurations, 0.95), pct(pubDurations, 0.99))
	fmt.Printf("Pipeline drain (outbox -> materialized, %d posts x %d followers): %v\n", POSTS, N, landing)
	snap := reg.Snapshot()
	fmt.Printf("Fanouts=%d avg=%.2fms published=%d\n", snap.FanoutCount, snap.FanoutAvgDurationMs, snap.OutboxPublished)
}
