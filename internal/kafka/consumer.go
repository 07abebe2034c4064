package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/models"

	"github.com/IBM/sarama"
)

// OrderHandler reacts to a completed order. A returned error is treated as
// retryable.
type OrderHandler func(ctx context.Context, event *models.OrderCompletedEvent) error

type OrderConsumer struct {
	consumer sarama.ConsumerGroup
	topics   []string
	log      *logger.Logger
}

func NewOrderConsumer(brokers []string, groupID, topic string, log *logger.Logger) (*OrderConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	consumer, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.LogKafka("CONNECTED", topic, fmt.Sprintf("Consumer group %s joined", groupID))
	return &OrderConsumer{
		consumer: consumer,
		topics:   []string{topic},
		log:      log,
	}, nil
}

func (c *OrderConsumer) ConsumeOrders(ctx context.Context, handler OrderHandler) error {
	consumerHandler := &OrderConsumerHandler{Handler: handler, Log: c.log}

	for {
		if err := c.consumer.Consume(ctx, c.topics, consumerHandler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.log.Error("KAFKA", fmt.Sprintf("Error consuming messages: %v", err))
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *OrderConsumer) Close() error {
	return c.consumer.Close()
}

const (
	defaultHandleAttempts = 5
	defaultRetryBackoff   = 500 * time.Millisecond
)

// OrderConsumerHandler is the sarama.ConsumerGroupHandler for order events.
// Offsets are committed as a high-water mark, so a message that still fails
// after all attempts ends the claim instead of being skipped; the next
// session resumes from the last committed offset.
type OrderConsumerHandler struct {
	Handler  OrderHandler
	Log      *logger.Logger
	// Attempts and Backoff default to 5 and 500ms; backoff doubles per retry.
	Attempts int
	Backoff  time.Duration
}

func (h *OrderConsumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *OrderConsumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *OrderConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var event models.OrderCompletedEvent
		if err := json.Unmarshal(message.Value, &event); err != nil || event.OrderID == "" {
			// Poison message: skip it, otherwise the partition stalls forever.
			h.Log.Warn("KAFKA", fmt.Sprintf("Dropping undecodable message at %s/%d/%d", message.Topic, message.Partition, message.Offset))
			session.MarkMessage(message, "")
			continue
		}

		h.Log.LogKafka("ORDER_RECEIVED", message.Topic, fmt.Sprintf("Processing order %s", event.OrderID))
		if err := h.handle(session.Context(), &event); err != nil {
			h.Log.Error("KAFKA", fmt.Sprintf("Giving up on order %s at offset %d: %v", event.OrderID, message.Offset, err))
			return fmt.Errorf("failed to handle order %s: %w", event.OrderID, err)
		}

		session.MarkMessage(message, "")
	}
	return nil
}

func (h *OrderConsumerHandler) handle(ctx context.Context, event *models.OrderCompletedEvent) error {
	attempts := h.Attempts
	if attempts <= 0 {
		attempts = defaultHandleAttempts
	}
	backoff := h.Backoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = h.Handler(ctx, event); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		h.Log.Warn("KAFKA", fmt.Sprintf("Order %s attempt %d/%d failed: %v", event.OrderID, attempt, attempts, err))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
		backoff *= 2
	}
	return err
}
