package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"nailbook/internal/reservations/events"
	apperrors "nailbook/pkg/errors"
	"nailbook/pkg/kafka"
	"nailbook/pkg/logger"
	"nailbook/pkg/model"
)

type fakeService struct {
	status   string
	advances []string
	cancels  []model.CancelRequest
	fail     error
	corrID   string
}

func (f *fakeService) GetAvailability(ctx context.Context, resourceID *string, fromDate string) (*model.Availability, error) {
	return nil, nil
}

func (f *fakeService) ResolveChain(ctx context.Context, req *model.ResolveRequest) ([]*model.Slot, error) {
	return nil, nil
}

func (f *fakeService) Reserve(ctx context.Context, req *model.ReservationRequest) (*model.Booking, error) {
	return nil, nil
}

func (f *fakeService) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	if f.status == "" {
		return nil, apperrors.NotFoundWithID("Booking", id)
	}
	return &model.Booking{ID: id, Status: f.status}, nil
}

func (f *fakeService) Release(ctx context.Context, id string) (*model.Booking, error) {
	return nil, nil
}

func (f *fakeService) Cancel(ctx context.Context, id string, req *model.CancelRequest) (*model.Booking, error) {
	f.corrID = events.CorrelationID(ctx)
	if f.fail != nil {
		return nil, f.fail
	}
	if f.status == model.BookingStatusCancelled {
		return nil, apperrors.InvalidTransition("booking", f.status, model.BookingStatusCancelled)
	}
	f.cancels = append(f.cancels, *req)
	f.status = model.BookingStatusCancelled
	return &model.Booking{ID: id, Status: f.status}, nil
}

func (f *fakeService) Advance(ctx context.Context, id string, req *model.AdvanceRequest) (*model.Booking, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	if !model.CanTransitionBooking(f.status, req.Status) {
		return nil, apperrors.InvalidTransition("booking", f.status, req.Status)
	}
	f.advances = append(f.advances, req.Status)
	f.status = req.Status
	return &model.Booking{ID: id, Status: f.status}, nil
}

func (f *fakeService) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func newHandler(svc *fakeService) *Handler {
	return NewHandler(svc, logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test"}))
}

func command(t *testing.T, eventType string, value any) kafka.Message {
	t.Helper()
	msg, err := kafka.NewMessage().
		WithKey("b1").
		WithEventType(eventType).
		WithCorrelationID("corr-1").
		WithValue(value).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

func errorType(err error) kafka.ErrorType {
	return kafka.ClassifyError(err)
}

func TestPaymentConfirmed(t *testing.T) {
	tests := []struct {
		name         string
		status       string
		wantAdvances []string
		wantErrType  kafka.ErrorType
	}{
		{"from pending_form", model.BookingStatusPendingForm, []string{model.BookingStatusPendingPayment, model.BookingStatusConfirmed}, kafka.ErrorTypeUnknown},
		{"from pending_payment", model.BookingStatusPendingPayment, []string{model.BookingStatusConfirmed}, kafka.ErrorTypeUnknown},
		{"already confirmed", model.BookingStatusConfirmed, nil, kafka.ErrorTypeUnknown},
		{"cancelled booking", model.BookingStatusCancelled, nil, kafka.ErrorTypePermanent},
		{"unknown booking", "", nil, kafka.ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{status: tt.status}
			err := newHandler(svc).Handle(context.Background(), command(t, PaymentConfirmed, Command{BookingID: "b1"}))

			if got := errorType(err); got != tt.wantErrType {
				t.Fatalf("error type = %v (%v), want %v", got, err, tt.wantErrType)
			}
			if len(svc.advances) != len(tt.wantAdvances) {
				t.Fatalf("advances = %v, want %v", svc.advances, tt.wantAdvances)
			}
			for i := range tt.wantAdvances {
				if svc.advances[i] != tt.wantAdvances[i] {
					t.Errorf("advance %d = %s, want %s", i, svc.advances[i], tt.wantAdvances[i])
				}
			}
		})
	}
}

func TestCancelRequested(t *testing.T) {
	keep := false

	svc := &fakeService{status: model.BookingStatusConfirmed}
	h := newHandler(svc)
	if err := h.Handle(context.Background(), command(t, BookingCancelRequested, Command{BookingID: "b1", Reason: "no show", ReleaseSlots: &keep})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(svc.cancels) != 1 || svc.cancels[0].ReleaseSlots || svc.cancels[0].Reason != "no show" {
		t.Errorf("unexpected cancel %+v", svc.cancels)
	}
	if svc.corrID != "corr-1" {
		t.Errorf("correlation id = %q, want corr-1", svc.corrID)
	}

	// Replayed command is acknowledged.
	if err := h.Handle(context.Background(), command(t, BookingCancelRequested, Command{BookingID: "b1"})); err != nil {
		t.Fatalf("replay returned %v", err)
	}
	if len(svc.cancels) != 1 {
		t.Errorf("replay must not cancel again")
	}

	svc = &fakeService{status: model.BookingStatusPendingForm}
	if err := newHandler(svc).Handle(context.Background(), command(t, BookingCancelRequested, Command{BookingID: "b1"})); err != nil {
		t.Fatal(err)
	}
	if !svc.cancels[0].ReleaseSlots {
		t.Errorf("slots are released unless the command says otherwise")
	}
}

func TestStoreFaultsAreRetried(t *testing.T) {
	svc := &fakeService{status: model.BookingStatusPendingForm, fail: apperrors.Unavailable("reservation store", errors.New("dial tcp"))}
	err := newHandler(svc).Handle(context.Background(), command(t, BookingCancelRequested, Command{BookingID: "b1"}))
	if errorType(err) != kafka.ErrorTypeTransient {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestMalformedCommands(t *testing.T) {
	h := newHandler(&fakeService{status: model.BookingStatusPendingForm})

	err := h.Handle(context.Background(), command(t, PaymentConfirmed, Command{BookingID: "  "}))
	if errorType(err) != kafka.ErrorTypePermanent {
		t.Errorf("missing booking id: expected permanent, got %v", err)
	}

	msg := command(t, PaymentConfirmed, Command{BookingID: "b1"})
	msg.Value = []byte("{not json")
	if errorType(h.Handle(context.Background(), msg)) != kafka.ErrorTypePermanent {
		t.Errorf("undecodable value must be permanent")
	}

	if err := h.Handle(context.Background(), command(t, "loyalty.points_added", Command{BookingID: "b1"})); err != nil {
		t.Errorf("unknown command types are skipped, got %v", err)
	}
}
