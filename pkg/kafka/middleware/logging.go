package kafkamiddleware

import (
	"context"
	"time"

	"nailbook/pkg/kafka"
	"nailbook/pkg/logger"
)

// Logging records every publish or handle with its outcome and duration.
func Logging(log *logger.Logger, direction string) kafka.Middleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)

		fields := []any{
			"direction", direction,
			"topic", msg.Topic,
			"key", msg.Key,
			"event_id", msg.EventID(),
			"event_type", msg.EventType(),
			"correlation_id", msg.CorrelationID(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if direction == "consume" {
			fields = append(fields, "partition", msg.Partition, "offset", msg.Offset, "retry", msg.RetryCount())
		}

		if err != nil {
			log.Warn("kafka message failed", append(fields, "error", err)...)
			return err
		}
		log.Debug("kafka message done", fields...)
		return nil
	}
}

// Recover turns a panicking handler into a permanent failure so the message
// is dead-lettered instead of crashing the consumer.
func Recover(log *logger.Logger) kafka.Middleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) (err error) {
		defer func() {
			if p := recover(); p != nil {
				log.Error("kafka handler panicked", "topic", msg.Topic, "event_id", msg.EventID(), "panic", p)
				err = kafka.NewPermanentError("handler panicked", nil)
			}
		}()
		return next(ctx, msg)
	}
}
