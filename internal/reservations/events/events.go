// Package events publishes booking lifecycle changes for downstream
// consumers such as invoicing and calendar sync.
package events

import (
	"context"
	"time"

	"nailbook/pkg/kafka"
	"nailbook/pkg/model"
)

const (
	BookingReserved  = "booking.reserved"
	BookingConfirmed = "booking.confirmed"
	BookingCancelled = "booking.cancelled"
	BookingReleased  = "booking.released"

	SchemaVersion = "1"
)

type BookingEvent struct {
	BookingID    string    `json:"booking_id"`
	Status       string    `json:"status"`
	ServiceType  string    `json:"service_type"`
	ResourceID   string    `json:"resource_id"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	SlotIDs      []string  `json:"slot_ids"`
	CancelReason string    `json:"cancel_reason,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func NewBookingEvent(b *model.Booking) BookingEvent {
	return BookingEvent{
		BookingID:    b.ID,
		Status:       b.Status,
		ServiceType:  b.ServiceType,
		ResourceID:   b.ResourceID,
		Date:         b.Date,
		Time:         b.Time,
		SlotIDs:      b.SlotIDs(),
		CancelReason: b.CancelReason,
		OccurredAt:   time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, eventType string, booking *model.Booking) error
	Close() error
}

// KafkaPublisher keys every event by booking id so one booking's events
// stay ordered on a single partition.
type KafkaPublisher struct {
	producer *kafka.Producer
	source   string
}

func NewKafkaPublisher(producer *kafka.Producer, source string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, source: source}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, booking *model.Booking) error {
	msg, err := kafka.NewMessage().
		WithKey(booking.ID).
		WithValue(NewBookingEvent(booking)).
		WithEventType(eventType).
		WithSource(p.source).
		WithSchemaVersion(SchemaVersion).
		WithCorrelationID(CorrelationID(ctx)).
		Build()
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, *model.Booking) error { return nil }

func (NoopPublisher) Close() error { return nil }

type correlationKey struct{}

// WithCorrelationID tags ctx so events published while handling it carry
// the id of the request or command that caused them.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
