package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"queuedesk/internal/tickets"
	"queuedesk/pkg/logger"
)

// EventProducer publishes ticket events to the stream.
type EventProducer interface {
	PublishTicketEvent(ctx context.Context, event *TicketEvent) error
	Close() error
	HealthCheck(ctx context.Context) error
}

// KafkaProducerConfig contains configuration for the Kafka event producer
type KafkaProducerConfig struct {
	Brokers          []string
	EventsTopic      string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          []string{"localhost:9092"},
		EventsTopic:      "ticket-events",
		RetryMax:         3,
		TimeoutMs:        10000,
		RequiredAcks:     sarama.WaitForAll,
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000,
	}
}

// KafkaEventProducer publishes ticket events to Kafka.
type KafkaEventProducer struct {
	producer sarama.SyncProducer
	config   *KafkaProducerConfig
	logger   *logger.Logger
}

// NewKafkaEventProducer creates a new Kafka event producer
func NewKafkaEventProducer(config *KafkaProducerConfig) (EventProducer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = config.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = config.MaxMessageBytes

	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Hash partitioner keeps one office on one partition.
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaEventProducer{
		producer: producer,
		config:   config,
		logger:   logger.GetDefault(),
	}, nil
}

// PublishTicketEvent publishes a single ticket event to Kafka
func (kep *KafkaEventProducer) PublishTicketEvent(ctx context.Context, event *TicketEvent) error {
	messageBytes, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal ticket event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     kep.config.EventsTopic,
		Key:       sarama.StringEncoder(event.PartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   kep.createHeaders(event),
		Timestamp: event.OccurredAt,
	}

	partition, offset, err := kep.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send ticket event to Kafka: %w", err)
	}

	kep.logger.Info("ticket event published",
		"topic", kep.config.EventsTopic,
		"partition", partition,
		"offset", offset,
		"type", string(event.Type),
		"office", event.Office,
	)
	return nil
}

func (kep *KafkaEventProducer) createHeaders(event *TicketEvent) []sarama.RecordHeader {
	return []sarama.RecordHeader{
		{Key: []byte("event_id"), Value: []byte(event.ID.String())},
		{Key: []byte("event_type"), Value: []byte(event.Type)},
		{Key: []byte("office"), Value: []byte(event.Office)},
		{Key: []byte("producer"), Value: []byte("queuedesk")},
		{Key: []byte("occurred_at"), Value: []byte(event.OccurredAt.Format(time.RFC3339))},
	}
}

// Close closes the Kafka producer
func (kep *KafkaEventProducer) Close() error {
	if kep.producer != nil {
		if err := kep.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
	}
	return nil
}

// HealthCheck validates the producer configuration.
func (kep *KafkaEventProducer) HealthCheck(ctx context.Context) error {
	if kep.producer == nil {
		return fmt.Errorf("health check failed - producer is nil")
	}
	if kep.config.EventsTopic == "" {
		return fmt.Errorf("health check failed - events topic not configured")
	}
	return nil
}

// Announcer adapts the event producer to the ticketing engine's
// announcement hook. Publish failures are logged and swallowed; the
// queue must keep moving when the event stream is down.
type Announcer struct {
	producer EventProducer
	logger   *logger.Logger
}

func NewAnnouncer(producer EventProducer) *Announcer {
	return &Announcer{
		producer: producer,
		logger:   logger.GetDefault(),
	}
}

func (a *Announcer) AnnounceIssued(ctx context.Context, ticket *tickets.Ticket, position int) {
	event := NewTicketEvent(EventTicketIssued, ticket.Office.String(), ticket.DayKey)
	event.DisplayNumber = ticket.DisplayNumber
	event.Section = string(ticket.Section)
	event.Priority = ticket.Priority
	event.Position = position
	a.publish(ctx, event)
}

func (a *Announcer) AnnounceNowServing(ctx context.Context, ticket *tickets.Ticket, staff string) {
	event := NewTicketEvent(EventNowServing, ticket.Office.String(), ticket.DayKey)
	event.DisplayNumber = ticket.DisplayNumber
	event.Section = string(ticket.Section)
	event.Priority = ticket.Priority
	event.Staff = staff
	a.publish(ctx, event)
}

func (a *Announcer) AnnounceCancelled(ctx context.Context, office tickets.Office, count int64, reason string) {
	event := NewTicketEvent(EventCancelled, office.String(), "")
	event.Count = count
	event.Reason = reason
	a.publish(ctx, event)
}

func (a *Announcer) publish(ctx context.Context, event *TicketEvent) {
	if err := a.producer.PublishTicketEvent(ctx, event); err != nil {
		a.logger.ErrorWithContext(ctx, "failed to publish ticket event", err, map[string]interface{}{
			"type":   string(event.Type),
			"office": event.Office,
		})
	}
}
