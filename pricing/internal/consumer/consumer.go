package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// ProfileRecorder is satisfied by store.ProfileStore. RecordPurchase reports
// false when orderID was already counted.
type ProfileRecorder interface {
	RecordPurchase(ctx context.Context, orderID string, clientID int, amount float64) (bool, error)
}

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderEvent is the payload the ordering service publishes.
type OrderEvent struct {
	OrderID    string  `json:"order_id"`
	ClientID   int     `json:"client_id"`
	Status     string  `json:"status"`
	TotalPrice float64 `json:"total_price"`
}

// Consumer keeps customer spend/visit profiles current from order events.
type Consumer struct {
	reader   MessageReader
	profiles ProfileRecorder
	logger   zerolog.Logger

	// Backoff between attempts at the same message, doubling up to maxBackoff.
	backoff    time.Duration
	maxBackoff time.Duration
}

// NewKafkaReader builds a reader for the ordering service's order topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
}

func NewConsumer(reader MessageReader, profiles ProfileRecorder, logger zerolog.Logger) *Consumer {
	return &Consumer{
		reader:     reader,
		profiles:   profiles,
		logger:     logger,
		backoff:    500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

// Run consumes until ctx is cancelled. Messages are handled strictly in
// order: a message whose purchase cannot be recorded is retried until it
// succeeds, since committing a later offset would also commit it. Messages
// skipped as malformed are committed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error().Err(err).Msg("[consumer] fetch failed")
			continue
		}

		if !c.handleWithRetry(ctx, msg) {
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error().Err(err).Str("key", string(msg.Key)).Msg("[consumer] commit failed")
		}
	}
}

// handleWithRetry returns false only when ctx was cancelled before msg was
// handled.
func (c *Consumer) handleWithRetry(ctx context.Context, msg kafka.Message) bool {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		err := c.handle(ctx, msg)
		if err == nil {
			return true
		}
		c.logger.Error().Err(err).Str("key", string(msg.Key)).Int("attempt", attempt).
			Dur("retry_in", wait).Msg("[consumer] record purchase failed")

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		if wait *= 2; wait > c.maxBackoff {
			wait = c.maxBackoff
		}
	}
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// handle only returns an error when the event should be retried.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	// key -> "order.confirmed.<orderID>" or "order.cancelled.<orderID>"
	parts := strings.SplitN(string(msg.Key), ".", 3)
	if len(parts) < 2 || parts[0] != "order" {
		c.logger.Warn().Str("key", string(msg.Key)).Msg("[consumer] unexpected message key")
		return nil
	}
	if parts[1] != "confirmed" {
		return nil
	}

	var evt OrderEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		c.logger.Warn().Err(err).Str("key", string(msg.Key)).Msg("[consumer] malformed order event")
		return nil
	}
	if evt.OrderID == "" && len(parts) == 3 {
		evt.OrderID = parts[2]
	}
	if evt.OrderID == "" || evt.ClientID <= 0 || evt.TotalPrice < 0 {
		c.logger.Warn().Int("client_id", evt.ClientID).Float64("total_price", evt.TotalPrice).
			Msg("[consumer] order event missing order, client or total")
		return nil
	}

	recorded, err := c.profiles.RecordPurchase(ctx, evt.OrderID, evt.ClientID, evt.TotalPrice)
	if err != nil {
		return err
	}
	if !recorded {
		c.logger.Info().Str("order_id", evt.OrderID).Msg("[consumer] order already counted, skipping")
		return nil
	}
	c.logger.Info().Str("order_id", evt.OrderID).Int("client_id", evt.ClientID).
		Float64("total_price", evt.TotalPrice).Msg("[consumer] purchase recorded")
	return nil
}
