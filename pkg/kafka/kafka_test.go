package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMessageBuilder(t *testing.T) {
	msg, err := NewMessage().
		WithKey("booking-1").
		WithEventType("booking.reserved").
		WithCorrelationID("req-1").
		WithValue(map[string]string{"id": "booking-1"}).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if msg.EventID() == "" {
		t.Errorf("expected generated event id")
	}
	if msg.EventType() != "booking.reserved" || msg.CorrelationID() != "req-1" {
		t.Errorf("unexpected headers %v", msg.Headers)
	}

	var decoded map[string]string
	if err := msg.DecodeValue(&decoded); err != nil || decoded["id"] != "booking-1" {
		t.Errorf("DecodeValue() = %v, %v", decoded, err)
	}
}

func TestMessageBuilder_EncodingFailure(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	if err == nil {
		t.Fatal("expected encoding error")
	}
}

func TestDecodeValue_IsPermanent(t *testing.T) {
	msg := Message{Value: []byte("{not json")}
	var v map[string]any
	if err := msg.DecodeValue(&v); ClassifyError(err) != ErrorTypePermanent {
		t.Errorf("expected permanent error, got %v", err)
	}
}

func TestRetryCount(t *testing.T) {
	msg := Message{}
	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	if msg.RetryCount() != 12 {
		t.Errorf("RetryCount() = %d, want 12", msg.RetryCount())
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeUnknown},
		{"transient wrapper", NewTransientError("store down", errors.New("x")), ErrorTypeTransient},
		{"permanent wrapper", fmt.Errorf("outer: %w", NewPermanentError("bad", nil)), ErrorTypePermanent},
		{"deadline", context.DeadlineExceeded, ErrorTypeTransient},
		{"connection refused text", errors.New("dial tcp: Connection Refused"), ErrorTypeTransient},
		{"unknown", errors.New("something odd"), ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	transient := NewTransientError("t", nil)
	if !ShouldRetry(transient, 0, 3) {
		t.Errorf("expected retry on first transient failure")
	}
	if ShouldRetry(transient, 3, 3) {
		t.Errorf("expected no retry after max attempts")
	}
	if ShouldRetry(NewPermanentError("p", nil), 0, 3) {
		t.Errorf("expected no retry on permanent failure")
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(ctx context.Context, msg Message, next MessageHandler) error {
			order = append(order, name)
			return next(ctx, msg)
		}
	}

	h := chain([]Middleware{mw("a"), mw("b")}, func(ctx context.Context, msg Message) error {
		order = append(order, "handler")
		return nil
	})
	_ = h(context.Background(), Message{})

	if fmt.Sprint(order) != "[a b handler]" {
		t.Errorf("order = %v", order)
	}
}
