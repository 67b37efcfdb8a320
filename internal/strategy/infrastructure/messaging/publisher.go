// Package messaging 领域事件的 Kafka 发布实现
package messaging

import (
	"context"

	"github.com/wyfcoding/binancebot/internal/strategy/domain"
	"github.com/wyfcoding/binancebot/pkg/mq"
)

// KafkaEventPublisher 把领域事件发布到 Kafka，事件名作为消息键
type KafkaEventPublisher struct {
	producer *mq.KafkaProducer
	topic    string
}

// NewKafkaEventPublisher 创建发布器
func NewKafkaEventPublisher(producer *mq.KafkaProducer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

// Publish 发布单个领域事件
func (p *KafkaEventPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	return p.producer.SendMessage(ctx, p.topic, event.EventName(), event)
}
