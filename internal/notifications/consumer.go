package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"queuedesk/internal/shared/constants"
	"queuedesk/pkg/cache"
	"queuedesk/pkg/logger"
)

// BoardConsumer keeps the Redis display-board state in sync with the
// ticket event stream.
type BoardConsumer interface {
	StartConsumers(ctx context.Context, numWorkers int) error
	Stop() error
	HealthCheck(ctx context.Context) error
}

type ConsumerConfig struct {
	Brokers          []string
	GroupID          string
	Topics           []string
	SessionTimeoutMs int
	HeartbeatMs      int
	RetryBackoffMs   int
	AutoCommit       bool
	OffsetOldest     bool
	NowServingTTL    time.Duration
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:          []string{"localhost:9092"},
		GroupID:          "queuedesk-board-workers",
		Topics:           []string{"ticket-events"},
		SessionTimeoutMs: 30000,
		HeartbeatMs:      3000,
		RetryBackoffMs:   100,
		AutoCommit:       true,
		OffsetOldest:     false,
		NowServingTTL:    12 * time.Hour,
	}
}

type kafkaBoardConsumer struct {
	consumerGroup sarama.ConsumerGroup
	config        *ConsumerConfig
	cache         cache.Service
	logger        *logger.Logger
	ctx           context.Context
	cancel        context.CancelFunc
}

func NewBoardConsumer(config *ConsumerConfig, cacheService cache.Service) (BoardConsumer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMs) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatMs) * time.Millisecond
	saramaConfig.Consumer.Retry.Backoff = time.Duration(config.RetryBackoffMs) * time.Millisecond
	saramaConfig.Consumer.Return.Errors = true

	if config.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	if config.AutoCommit {
		saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
		saramaConfig.Consumer.Offsets.AutoCommit.Interval = 1 * time.Second
	}

	consumerGroup, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &kafkaBoardConsumer{
		consumerGroup: consumerGroup,
		config:        config,
		cache:         cacheService,
		logger:        logger.GetDefault(),
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func (kbc *kafkaBoardConsumer) StartConsumers(ctx context.Context, numWorkers int) error {
	go kbc.handleErrors()

	for i := 0; i < numWorkers; i++ {
		go kbc.runWorker(ctx, i)
	}

	kbc.logger.Info("board consumer workers started",
		"workers", numWorkers,
		"topics", kbc.config.Topics,
	)
	return nil
}

func (kbc *kafkaBoardConsumer) runWorker(ctx context.Context, workerID int) {
	handler := &boardEventHandler{
		consumer: kbc,
		workerID: workerID,
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-kbc.ctx.Done():
			return
		default:
			if err := kbc.consumerGroup.Consume(ctx, kbc.config.Topics, handler); err != nil {
				kbc.logger.ErrorWithContext(ctx, "board consumer error", err, map[string]interface{}{
					"worker": workerID,
				})
				time.Sleep(time.Second)
			}
		}
	}
}

func (kbc *kafkaBoardConsumer) handleErrors() {
	for err := range kbc.consumerGroup.Errors() {
		kbc.logger.Error("board consumer group error", "error", err.Error())
	}
}

func (kbc *kafkaBoardConsumer) Stop() error {
	kbc.cancel()

	if err := kbc.consumerGroup.Close(); err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}
	return nil
}

func (kbc *kafkaBoardConsumer) HealthCheck(ctx context.Context) error {
	select {
	case <-kbc.ctx.Done():
		return fmt.Errorf("consumer context is cancelled")
	default:
		if kbc.cache == nil {
			return fmt.Errorf("cache service not configured")
		}
		return nil
	}
}

type boardEventHandler struct {
	consumer *kafkaBoardConsumer
	workerID int
}

func (h *boardEventHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *boardEventHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *boardEventHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			if err := h.processMessage(session.Context(), message); err != nil {
				h.consumer.logger.ErrorWithContext(session.Context(), "failed to process ticket event", err, map[string]interface{}{
					"worker": h.workerID,
					"offset": message.Offset,
				})
			}
			// Malformed events are marked too; replaying them would
			// fail the same way.
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *boardEventHandler) processMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	var event TicketEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal ticket event: %w", err)
	}

	switch event.Type {
	case EventNowServing:
		return h.consumer.cache.Set(ctx, constants.BuildNowServingKey(event.Office), NowServing{
			DisplayNumber: event.DisplayNumber,
			Staff:         event.Staff,
			Since:         event.OccurredAt,
		}, h.consumer.config.NowServingTTL)

	case EventCancelled:
		if event.Reason == "cut-off" {
			return h.consumer.cache.Delete(ctx, constants.BuildNowServingKey(event.Office))
		}
		return nil

	default:
		// ticket.issued and future event types carry no board state.
		return nil
	}
}
