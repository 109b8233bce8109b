package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/hamr-lab/backtest-service/internal/model"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher emits run lifecycle events to Kafka. A nil Publisher is a no-op
// so the service can run without a broker.
type Publisher struct {
	writers        map[string]*kafka.Writer
	brokers        []string
	completedTopic string
	failedTopic    string
	logger         *zap.Logger
}

// RunCompletedEvent is published when a run finishes successfully
type RunCompletedEvent struct {
	RunID        int                `json:"run_id"`
	Strategy     model.StrategyKind `json:"strategy"`
	FinalCapital float64            `json:"final_capital"`
	CompletedAt  time.Time          `json:"completed_at"`
}

// RunFailedEvent is published when a run fails
type RunFailedEvent struct {
	RunID    int                `json:"run_id"`
	Strategy model.StrategyKind `json:"strategy"`
	Reason   string             `json:"reason"`
	FailedAt time.Time          `json:"failed_at"`
}

// NewPublisher creates a new event publisher
func NewPublisher(brokers []string, completedTopic, failedTopic string, logger *zap.Logger) *Publisher {
	return &Publisher{
		writers:        make(map[string]*kafka.Writer),
		brokers:        brokers,
		completedTopic: completedTopic,
		failedTopic:    failedTopic,
		logger:         logger,
	}
}

// PublishRunCompleted emits a completion event
func (p *Publisher) PublishRunCompleted(ctx context.Context, event RunCompletedEvent) error {
	if p == nil {
		return nil
	}
	return p.publish(ctx, p.completedTopic, strconv.Itoa(event.RunID), event)
}

// PublishRunFailed emits a failure event
func (p *Publisher) PublishRunFailed(ctx context.Context, event RunFailedEvent) error {
	if p == nil {
		return nil
	}
	return p.publish(ctx, p.failedTopic, strconv.Itoa(event.RunID), event)
}

func (p *Publisher) getWriter(topic string) *kafka.Writer {
	if writer, exists := p.writers[topic]; exists {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	p.writers[topic] = writer
	return writer
}

func (p *Publisher) publish(ctx context.Context, topic, key string, value interface{}) error {
	writer := p.getWriter(topic)

	jsonValue, err := json.Marshal(value)
	if err != nil {
		p.logger.Error("Failed to marshal event",
			zap.String("topic", topic),
			zap.Error(err))
		return err
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
		Time:  time.Now(),
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("topic", topic),
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	p.logger.Debug("Event published",
		zap.String("topic", topic),
		zap.String("key", key))

	return nil
}

// Close closes all Kafka writers
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil {
			p.logger.Error("Failed to close writer", zap.String("topic", topic), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
