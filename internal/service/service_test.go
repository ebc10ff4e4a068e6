package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/microfeed/internal/domain"
	"github.com/d60-Lab/microfeed/internal/id"
	"github.com/d60-Lab/microfeed/internal/model"
	"github.com/d60-Lab/microfeed/internal/mq"
	"github.com/d60-Lab/microfeed/internal/repository"
	"github.com/d60-Lab/microfeed/internal/reqctx"
	"github.com/d60-Lab/microfeed/internal/sharding"
	"github.com/d60-Lab/microfeed/pkg/metrics"
)

func requestScoped(ctx context.Context, requestID string) context.Context {
	return reqctx.With(ctx, reqctx.RequestContext{RequestID: requestID})
}

// stack 一套完整的内存流水线：sqlite + miniredis + 旁路 broker
type stack struct {
	db         *gorm.DB
	router     *sharding.Router
	idGen      *id.Generator
	reg        *metrics.Registry
	userRepo   repository.UserRepository
	postRepo   repository.PostRepository
	followRepo repository.FollowRepository
	outboxRepo repository.OutboxRepository
	cache      repository.TimelineCache

	postSvc      *PostService
	relSvc       *RelationshipService
	tlSvc        *TimelineService
	materializer *Materializer
	dispatcher   *Dispatcher
}

// capturingProducer 记录发布并直通物化器
type capturingProducer struct {
	mu       sync.Mutex
	messages []mq.Message
	deliver  mq.HandlerFunc
}

func (p *capturingProducer) Send(ctx context.Context, topic string, msg mq.Message) error {
	p.mu.Lock()
	p.messages = append(p.messages, msg)
	p.mu.Unlock()
	if p.deliver != nil {
		return p.deliver(ctx, mq.Record{Key: msg.Key, Value: msg.Value, Headers: msg.Headers})
	}
	return nil
}

func (p *capturingProducer) Close() error { return nil }

func (p *capturingProducer) sent() []mq.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]mq.Message(nil), p.messages...)
}

func setupStack(t *testing.T, celebrityThreshold, maxTimeline int) (*stack, *capturingProducer) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Post{}, &model.Follow{}, &model.Outbox{}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	router := sharding.NewRouter([]*gorm.DB{db})
	reg := metrics.NewRegistry()
	idGen := id.NewGenerator()

	s := &stack{
		db:         db,
		router:     router,
		idGen:      idGen,
		reg:        reg,
		userRepo:   repository.NewUserRepository(router),
		postRepo:   repository.NewPostRepository(router),
		followRepo: repository.NewFollowRepository(router),
		outboxRepo: repository.NewOutboxRepository(router),
		cache:      repository.NewTimelineCache(rdb, maxTimeline),
	}
	s.postSvc = NewPostService(router, s.postRepo, s.outboxRepo, idGen, reg)
	s.relSvc = NewRelationshipService(router, s.followRepo, s.userRepo, s.outboxRepo, idGen, reg)
	s.tlSvc = NewTimelineService(s.cache, s.postRepo, s.followRepo, celebrityThreshold, reg)
	s.materializer = NewMaterializer(router, s.cache, s.postRepo, s.followRepo, celebrityThreshold, maxTimeline, reg)

	producer := &capturingProducer{deliver: s.materializer.Handle}
	s.dispatcher = NewDispatcher(router, s.outboxRepo, producer, "timeline-events", 100, 0, 0, reg)
	return s, producer
}

// drive 跑流水线直到外发盒排空
func (s *stack) drive(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, s.dispatcher.ProcessOnce(ctx))
		n, err := s.outboxRepo.CountUnprocessed(ctx)
		require.NoError(t, err)
		if n == 0 {
			return
		}
	}
	t.Fatal("outbox did not drain")
}

func (s *stack) newUser(t *testing.T) domain.UserID {
	t.Helper()
	uid := domain.UserID{Value: s.idGen.Generate()}
	require.NoError(t, s.userRepo.UpsertIfAbsent(context.Background(), uid.String()))
	return uid
}

func (s *stack) timelineIDs(t *testing.T, reader domain.UserID) []string {
	t.Helper()
	ids, err := s.cache.Range(context.Background(), reader.String(), nil, 1000)
	require.NoError(t, err)
	return ids
}
