package kafka

import (
	"encoding/json"
	"fmt"

	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/models"

	"github.com/IBM/sarama"
)

const (
	EventTicketIssued    = "ticket.issued"
	EventTicketCheckedIn = "ticket.checked_in"
	EventCheckInRejected = "checkin.rejected"
)

type Producer struct {
	producer sarama.SyncProducer
	mockMode bool
	log      *logger.Logger
}

func NewProducer(brokers []string, mockMode bool, log *logger.Logger) (*Producer, error) {
	if mockMode {
		log.LogKafka("MOCK_MODE", "producer", "Running in mock mode - no actual Kafka connection")
		return &Producer{mockMode: true, log: log}, nil
	}

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	config.Version = sarama.V2_1_0_0

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	log.LogKafka("CONNECTED", "producer", fmt.Sprintf("Connected to Kafka brokers: %v", brokers))
	return NewProducerFromClient(producer, log), nil
}

// NewProducerFromClient wraps an existing sarama producer.
func NewProducerFromClient(producer sarama.SyncProducer, log *logger.Logger) *Producer {
	return &Producer{producer: producer, log: log}
}

func (p *Producer) PublishTicketIssued(event *models.TicketIssuedEvent) error {
	return p.publish(event.Type, event.OrderID, event)
}

// PublishCheckIn keys by event id so one venue's door log stays ordered.
func (p *Producer) PublishCheckIn(event *models.CheckInEvent) error {
	return p.publish(event.Type, event.EventID, event)
}

func (p *Producer) publish(eventType, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := p.getTopicForEvent(eventType)

	if p.mockMode {
		p.log.LogKafka("MOCK_PUBLISH", topic, fmt.Sprintf("Mock publishing event: %s key: %s", eventType, key))
		p.log.Debug("KAFKA", string(data))
		return nil
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Error("KAFKA", fmt.Sprintf("Failed to send message to topic %s: %v", topic, err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.log.LogKafka("PUBLISHED", topic, fmt.Sprintf("Message sent to partition %d at offset %d key %s", partition, offset, key))
	return nil
}

func (p *Producer) getTopicForEvent(eventType string) string {
	switch eventType {
	case EventTicketIssued:
		return "ticket-issued"
	case EventTicketCheckedIn:
		return "ticket-checked-in"
	case EventCheckInRejected:
		return "checkin-rejected"
	default:
		return "ticketing-events"
	}
}

func (p *Producer) Close() error {
	if p.mockMode {
		p.log.LogKafka("MOCK_CLOSE", "producer", "Mock producer closed")
		return nil
	}

	if p.producer != nil {
		p.log.LogKafka("CLOSING", "producer", "Closing Kafka producer connection")
		return p.producer.Close()
	}
	return nil
}
