// Package kafka consumes ingestion-trigger messages so schedulers can
// kick off fetch runs without going through the HTTP API.
package kafka

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"newswire/config"
)

// MessageHandler processes one consumed message. Returning
// shouldMark=false leaves the offset unmarked so the message is
// retried.
type MessageHandler interface {
	HandleMessage(ctx context.Context, message []byte) (shouldMark bool, err error)
}

// Consumer wraps a sarama consumer group with a pluggable handler.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	topic   string
	groupID string
	ready   chan bool
	logger  *zap.Logger
}

// NewConsumer creates a consumer for the configured topic.
func NewConsumer(cfg config.Kafka, handler MessageHandler, logger *zap.Logger) (*Consumer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		group:   group,
		handler: handler,
		topic:   cfg.Topic,
		groupID: cfg.GroupID,
		ready:   make(chan bool),
		logger:  logger,
	}, nil
}

// Start begins consuming. It returns once the group has joined; the
// consume loop keeps running until ctx is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	handler := &groupHandler{
		messageHandler: c.handler,
		ready:          c.ready,
		logger:         c.logger,
	}

	go func() {
		for {
			if err := c.group.Consume(ctx, []string{c.topic}, handler); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				c.logger.Error("kafka consume loop error", zap.Error(err))
			}
			if ctx.Err() != nil {
				return
			}
			handler.ready = make(chan bool)
		}
	}()

	<-c.ready
	c.logger.Info("kafka consumer started",
		zap.String("group", c.groupID), zap.String("topic", c.topic))

	go func() {
		for err := range c.group.Errors() {
			c.logger.Error("kafka consumer error", zap.Error(err))
		}
	}()

	return nil
}

// Close shuts down the consumer group.
func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupHandler struct {
	messageHandler MessageHandler
	ready          chan bool
	logger         *zap.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			h.logger.Debug("received kafka message",
				zap.Int32("partition", message.Partition),
				zap.Int64("offset", message.Offset))

			shouldMark, err := h.messageHandler.HandleMessage(session.Context(), message.Value)
			if err != nil {
				h.logger.Error("failed to handle kafka message", zap.Error(err))
			}
			if shouldMark {
				session.MarkMessage(message, "")
			}

		case <-session.Context().Done():
			return nil
		}
	}
}

// TypedMessageHandler decodes messages into T before dispatch.
// Undecodable messages are marked when AlwaysMark is set so one bad
// payload cannot wedge the partition.
type TypedMessageHandler[T any] struct {
	Validate   func(msg *T) bool
	Process    func(ctx context.Context, msg *T) error
	AlwaysMark bool
	Logger     *zap.Logger
}

// HandleMessage implements MessageHandler.
func (h *TypedMessageHandler[T]) HandleMessage(ctx context.Context, message []byte) (bool, error) {
	var msg T
	if err := json.Unmarshal(message, &msg); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("failed to unmarshal kafka message", zap.Error(err))
		}
		return h.AlwaysMark, nil
	}

	if h.Validate != nil && !h.Validate(&msg) {
		return h.AlwaysMark, nil
	}

	if err := h.Process(ctx, &msg); err != nil {
		return false, err
	}
	return true, nil
}
