package mq

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducerSendsKeyedRecordWithHeaders(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	sp := mocks.NewSyncProducer(t, cfg)

	sp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "user-1", string(key))

		val, err := msg.Value.Encode()
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, string(val))

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[string(h.Key)] = string(h.Value)
		}
		assert.Equal(t, "POST_CREATED", headers["eventType"])
		assert.Equal(t, "req-1", headers["requestId"])
		return nil
	})

	p := NewProducerFromSarama(sp)
	err := p.Send(context.Background(), "timeline-events", Message{
		Key:     "user-1",
		Value:   []byte(`{"a":1}`),
		Headers: map[string]string{"eventType": "POST_CREATED", "requestId": "req-1"},
	})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestProducerSurfacesBrokerError(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	sp := mocks.NewSyncProducer(t, cfg)
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducerFromSarama(sp)
	err := p.Send(context.Background(), "timeline-events", Message{Key: "k", Value: []byte("{}")})
	assert.Error(t, err)
	require.NoError(t, p.Close())
}
