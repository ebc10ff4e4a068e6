package mq

import (
	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/d60-Lab/microfeed/pkg/logger"
)

// TopicAdmin 管理面：demo reset 时清空事件主题
type TopicAdmin interface {
	PurgeTopic(topic string) (int64, error)
}

type topicAdmin struct {
	brokers []string
}

func NewTopicAdmin(brokers []string) TopicAdmin {
	return &topicAdmin{brokers: brokers}
}

// PurgeTopic 把所有分区的起始位点推到末尾，等效删除全部存量消息；
// 返回清掉的消息条数估计值。
func (a *topicAdmin) PurgeTopic(topic string) (int64, error) {
	admin, err := sarama.NewClusterAdmin(a.brokers, sarama.NewConfig())
	if err != nil {
		return 0, err
	}
	defer func() { _ = admin.Close() }()

	client, err := sarama.NewClient(a.brokers, sarama.NewConfig())
	if err != nil {
		return 0, err
	}
	defer func() { _ = client.Close() }()

	partitions, err := client.Partitions(topic)
	if err != nil {
		return 0, err
	}

	var purged int64
	offsets := make(map[int32]int64, len(partitions))
	for _, p := range partitions {
		newest, err := client.GetOffset(topic, p, sarama.OffsetNewest)
		if err != nil {
			return purged, err
		}
		oldest, err := client.GetOffset(topic, p, sarama.OffsetOldest)
		if err != nil {
			return purged, err
		}
		offsets[p] = newest
		purged += newest - oldest
	}
	if err := admin.DeleteRecords(topic, offsets); err != nil {
		return purged, err
	}
	logger.Info("purged topic", zap.String("topic", topic), zap.Int64("records", purged))
	return purged, nil
}
