package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"

	kafka "github.com/denportal/wagate/internal/delivery/kafka"
	"github.com/denportal/wagate/pkg/logger"
)

type Producer interface {
	PublishSessionConnected(ctx context.Context, event kafka.SessionConnectedEvent) error
	PublishSessionTerminal(ctx context.Context, event kafka.SessionTerminalEvent) error
	PublishNotificationSent(ctx context.Context, event kafka.NotificationSentEvent) error
	Close() error
}

type implProducer struct {
	l    logger.Logger
	prod sarama.SyncProducer
}

func NewProducer(prod sarama.SyncProducer, l logger.Logger) Producer {
	return &implProducer{
		l:    l,
		prod: prod,
	}
}

func (p *implProducer) PublishSessionConnected(ctx context.Context, event kafka.SessionConnectedEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, kafka.TopicSessionConnected, event.TenantID, event)
}

func (p *implProducer) PublishSessionTerminal(ctx context.Context, event kafka.SessionTerminalEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, kafka.TopicSessionTerminal, event.TenantID, event)
}

func (p *implProducer) PublishNotificationSent(ctx context.Context, event kafka.NotificationSentEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, kafka.TopicNotificationSent, event.TenantID, event)
}

func (p *implProducer) publish(ctx context.Context, topic, key string, event any) error {
	val, err := json.Marshal(event)
	if err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.publish %s: %v", topic, err)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key), // partition by tenant for ordering
		Value: sarama.ByteEncoder(val),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("timestamp"),
				Value: []byte(time.Now().Format(time.RFC3339)),
			},
		},
	}

	_, _, err = p.prod.SendMessage(msg)
	return err
}

func (p *implProducer) Close() error {
	return p.prod.Close()
}
