package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-marketplace/internal/logger"

	"github.com/segmentio/kafka-go"
)

// Publisher sends one keyed message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
	Close() error
}

type Producer struct {
	Writer *kafka.Writer
	log    *logger.Logger
}

// NewProducer builds a writer that routes by message topic, so one producer
// serves every marketplace topic.
func NewProducer(brokers []string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, log: log}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	p.log.Debug("KAFKA", fmt.Sprintf("Publishing to %s [%s]: %s", topic, key, string(value)))
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// NopPublisher is used when KAFKA_ENABLED is false.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, []byte) error { return nil }
func (NopPublisher) Close() error                                          { return nil }

// PublishJSON marshals event and publishes it. Failures are logged and
// swallowed; domain events never fail the operation that produced them.
func PublishJSON(ctx context.Context, p Publisher, log *logger.Logger, topic, key string, event interface{}) {
	if p == nil {
		return
	}
	value, err := json.Marshal(event)
	if err != nil {
		log.Error("KAFKA", fmt.Sprintf("Failed to marshal %s event: %v", topic, err))
		return
	}
	if err := p.Publish(ctx, topic, key, value); err != nil {
		log.Error("KAFKA", fmt.Sprintf("Failed to publish %s event for %s: %v", topic, key, err))
		return
	}
	log.Info("KAFKA", fmt.Sprintf("Published %s event for %s", topic, key))
}
