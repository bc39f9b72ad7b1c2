package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketplace-service/internal/config"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// Nudger is what the consumer pokes when a product event arrives. Live
// notification sessions then reconcile immediately instead of waiting for
// their next polling tick.
type Nudger interface {
	NudgeAll()
}

// Consumer listens on the product event topic and nudges notification
// sessions. Polling stays the source of truth; the consumer only shortens
// the latency between a new listing and its notification.
type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	nudger        Nudger
	logger        *zap.Logger
	config        *config.Config
	topics        []string
}

// NewConsumer creates a Kafka consumer over the product event topic
func NewConsumer(cfg *config.Config, nudger Nudger, logger *zap.Logger) (*Consumer, error) {
	logger.Info("🔌 Creating Kafka consumer",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("group_id", cfg.KafkaGroupID),
	)

	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Version = sarama.V2_8_0_0

	saramaConfig.Net.DialTimeout = 10 * time.Second
	saramaConfig.Net.ReadTimeout = 10 * time.Second
	saramaConfig.Net.WriteTimeout = 10 * time.Second

	saramaConfig.Metadata.RefreshFrequency = 10 * time.Minute
	saramaConfig.Metadata.Retry.Max = 3
	saramaConfig.Metadata.Retry.Backoff = 250 * time.Millisecond

	consumerGroup, err := sarama.NewConsumerGroup(cfg.KafkaBrokers, cfg.KafkaGroupID, saramaConfig)
	if err != nil {
		logger.Error("❌ Failed to create Kafka consumer group",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	logger.Info("✅ Kafka consumer group created successfully",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("group_id", cfg.KafkaGroupID),
	)

	return &Consumer{
		consumerGroup: consumerGroup,
		nudger:        nudger,
		logger:        logger,
		config:        cfg,
		topics:        []string{cfg.KafkaTopicProduct},
	}, nil
}

// Start starts consuming product events until the context is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	handler := &productEventHandler{
		nudger: c.nudger,
		logger: c.logger,
	}

	wg := &sync.WaitGroup{}
	wg.Add(1)

	go func() {
		defer wg.Done()
		for {
			if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
				c.logger.Error("Error from consumer", zap.Error(err))
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	go func() {
		for err := range c.consumerGroup.Errors() {
			c.logger.Error("Consumer error", zap.Error(err))
		}
	}()

	c.logger.Info("✅ Kafka consumer started for product events",
		zap.Strings("topics", c.topics),
		zap.String("group_id", c.config.KafkaGroupID),
	)

	wg.Wait()
	return nil
}

// Close closes the consumer
func (c *Consumer) Close() error {
	return c.consumerGroup.Close()
}

// productEventHandler nudges notification sessions on product events
type productEventHandler struct {
	nudger Nudger
	logger *zap.Logger
}

// Setup is run at the beginning of a new session
func (h *productEventHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is run at the end of a session
func (h *productEventHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim processes product event messages
func (h *productEventHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			eventType := h.extractEventType(message.Headers)

			h.logger.Debug("Product event received",
				zap.String("event_type", eventType),
				zap.String("topic", message.Topic),
				zap.Int("partition", int(message.Partition)),
				zap.Int64("offset", message.Offset),
			)

			// The message content does not matter here: sessions re-fetch the
			// collection themselves, so any product event is just a wake-up
			h.nudger.NudgeAll()

			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// extractEventType extracts event type from Kafka message headers
func (h *productEventHandler) extractEventType(headers []*sarama.RecordHeader) string {
	for _, header := range headers {
		if string(header.Key) == "event-type" {
			return string(header.Value)
		}
	}
	return ""
}
