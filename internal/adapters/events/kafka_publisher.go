package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fairwork/escrow-settlement-service/internal/contracts"
)

// KafkaPublisher delivers event envelopes to event-type topics with the
// escrow id as partition key, so all events for one escrow stay ordered.
type KafkaPublisher struct {
	writer         *kafka.Writer
	topicByEvent   map[string]string
	analyticsTopic string
	dlqTopic       string
}

func NewKafkaPublisher(brokers []string, topicByEvent map[string]string, analyticsTopic, dlqTopic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		topicByEvent:   topicByEvent,
		analyticsTopic: analyticsTopic,
		dlqTopic:       dlqTopic,
	}, nil
}

func (p *KafkaPublisher) PublishDomain(ctx context.Context, event contracts.EventEnvelope) error {
	topic := event.EventType
	if mapped, ok := p.topicByEvent[event.EventType]; ok && mapped != "" {
		topic = mapped
	}
	return p.write(ctx, topic, event.PartitionKey, event)
}

func (p *KafkaPublisher) PublishAnalytics(ctx context.Context, event contracts.EventEnvelope) error {
	topic := p.analyticsTopic
	if topic == "" {
		topic = event.EventType
	}
	return p.write(ctx, topic, event.PartitionKey, event)
}

func (p *KafkaPublisher) PublishDLQ(ctx context.Context, record contracts.DLQRecord) error {
	topic := p.dlqTopic
	if topic == "" {
		topic = "escrow-settlement-service.dlq"
	}
	return p.write(ctx, topic, record.OriginalEvent.PartitionKey, record)
}

func (p *KafkaPublisher) write(ctx context.Context, topic, key string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: b,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
