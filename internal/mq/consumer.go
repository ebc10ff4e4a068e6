package mq

import (
	"context"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/d60-Lab/microfeed/pkg/logger"
)

// Record 消费侧看到的一条消息
type Record struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int32
	Offset    int64
}

// HandlerFunc 分区内串行调用；返回错误只记日志，不阻塞位点推进
type HandlerFunc func(ctx context.Context, rec Record) error

// ConsumerGroup 单逻辑消费组；分区并行、分区内有序
type ConsumerGroup struct {
	brokers []string
	groupID string
	topics  []string
	handler HandlerFunc
}

func NewConsumerGroup(brokers []string, groupID string, topics []string, handler HandlerFunc) *ConsumerGroup {
	return &ConsumerGroup{brokers: brokers, groupID: groupID, topics: topics, handler: handler}
}

// Run 阻塞消费直到 ctx 取消
func (c *ConsumerGroup) Run(ctx context.Context) error {
	cfg := sarama.NewConfig()
	cfg.Consumer.Return.Errors = true
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup(c.brokers, c.groupID, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := group.Close(); cerr != nil {
			logger.Error("close consumer group", zap.Error(cerr))
		}
	}()

	h := &groupHandler{handler: c.handler}
	for {
		if err := group.Consume(ctx, c.topics, h); err != nil {
			logger.Error("consumer loop", zap.Error(err))
		}
		if ctx.Err() != nil {
			logger.Info("consumer shutting down")
			return nil
		}
	}
}

type groupHandler struct {
	handler HandlerFunc
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		rec := Record{
			Key:       string(msg.Key),
			Value:     msg.Value,
			Headers:   make(map[string]string, len(msg.Headers)),
			Partition: msg.Partition,
			Offset:    msg.Offset,
		}
		for _, hd := range msg.Headers {
			rec.Headers[string(hd.Key)] = string(hd.Value)
		}

		ctx := extractTracing(session.Context(), rec.Headers)
		if err := h.handler(ctx, rec); err != nil {
			// 消费失败不重试：缓存可从关系表重建，先保分区推进
			logger.Error("handle record",
				zap.Int32("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

func extractTracing(ctx context.Context, headers map[string]string) context.Context {
	carrier := propagation.MapCarrier{}
	for k, v := range headers {
		carrier[k] = v
	}
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)
	ctx, span := otel.Tracer("mq/consumer").Start(ctx, "consume",
		trace.WithSpanKind(trace.SpanKindConsumer))
	span.End()
	return ctx
}
