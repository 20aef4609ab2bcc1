// Package kafka carries ledger events over a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"budget/internal/events"
	"budget/internal/log"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer messageWriter
	topic  string
	logger *log.Logger
}

func NewPublisher(brokers []string, topic string, logger *log.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		topic:  topic,
		logger: logger.WithComponent(log.ComponentKafka),
	}
}

// Publish writes e keyed by entry id, so all changes of one entry land on the
// same partition in order.
func (p *Publisher) Publish(ctx context.Context, e events.Event) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Entry.ID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(e.Kind)},
		},
	})
	if err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}

	p.logger.DebugContext(ctx, "Published ledger event",
		log.FieldEventID, e.ID,
		log.FieldEventKind, e.Kind,
		"topic", p.topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// maxHandleAttempts bounds retries of a failing message before it is
// committed and skipped.
const maxHandleAttempts = 5

type Consumer struct {
	reader  messageReader
	logger  *log.Logger
	backoff func(attempt int) time.Duration
}

func NewConsumer(brokers []string, topic, groupID string, logger *log.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		logger:  logger.WithComponent(log.ComponentKafka),
		backoff: func(attempt int) time.Duration { return time.Duration(attempt+1) * time.Second },
	}
}

// Consume fetches messages and commits each one after h succeeds. Undecodable
// messages are committed right away; a message h keeps rejecting is committed
// after maxHandleAttempts.
func (c *Consumer) Consume(ctx context.Context, h events.Handler) error {
	c.logger.InfoContext(ctx, "Started consuming ledger events")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
				return ctx.Err()
			}
			return fmt.Errorf("fetch kafka message: %w", err)
		}

		e, err := events.Decode(msg.Value)
		if err != nil {
			c.logger.ErrorContext(ctx, "Dropping undecodable message", log.FieldError, err, "offset", msg.Offset)
		} else if err := c.handle(ctx, h, e); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.ErrorContext(ctx, "Giving up on ledger event",
				log.FieldError, err,
				log.FieldEventID, e.ID,
				log.FieldEventKind, e.Kind)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit kafka message: %w", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, h events.Handler, e events.Event) error {
	var err error
	for attempt := 0; attempt < maxHandleAttempts; attempt++ {
		if err = h(ctx, e); err == nil {
			return nil
		}
		c.logger.WarnContext(ctx, "Failed to handle ledger event",
			log.FieldError, err,
			log.FieldEventID, e.ID,
			"attempt", attempt+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff(attempt)):
		}
	}
	return err
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
