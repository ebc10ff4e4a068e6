// Package mq wraps the Kafka client. Records are keyed by aggregate id so
// the default hash partitioner keeps one aggregate on one partition.
package mq

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Message 待发布消息：key 定分区，headers 携带事件元数据
type Message struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

type Producer interface {
	Send(ctx context.Context, topic string, msg Message) error
	Close() error
}

type producer struct {
	syncProducer sarama.SyncProducer
}

func NewProducer(brokers []string) (Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create producer: %w", err)
	}
	return &producer{syncProducer: p}, nil
}

// NewProducerFromSarama 测试注入用
func NewProducerFromSarama(sp sarama.SyncProducer) Producer {
	return &producer{syncProducer: sp}
}

func (p *producer) Send(ctx context.Context, topic string, msg Message) error {
	headers := make([]sarama.RecordHeader, 0, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	// 追踪上下文随消息头传播
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	_, _, err := p.syncProducer.SendMessage(&sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.StringEncoder(msg.Key),
		Value:   sarama.ByteEncoder(msg.Value),
		Headers: headers,
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (p *producer) Close() error {
	return p.syncProducer.Close()
}
