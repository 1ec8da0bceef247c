// Package commands applies booking commands arriving on the commands topic,
// such as payment confirmations from the payment flow.
package commands

import (
	"context"
	"fmt"

	"nailbook/internal/reservations/events"
	"nailbook/internal/reservations/service"
	apperrors "nailbook/pkg/errors"
	"nailbook/pkg/kafka"
	"nailbook/pkg/logger"
	"nailbook/pkg/model"
	"nailbook/pkg/sanitizer"
)

const (
	PaymentConfirmed       = "payment.confirmed"
	BookingCancelRequested = "booking.cancel_requested"
)

type Command struct {
	BookingID    string `json:"booking_id"`
	Reason       string `json:"reason,omitempty"`
	ReleaseSlots *bool  `json:"release_slots,omitempty"`
}

type Handler struct {
	service service.ReservationService
	log     *logger.Logger
}

func NewHandler(service service.ReservationService, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Handle is a kafka.MessageHandler. Commands replayed after they already
// took effect are acknowledged without error.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	var cmd Command
	if err := msg.DecodeValue(&cmd); err != nil {
		return err
	}
	cmd.BookingID = sanitizer.TrimAndNormalize(cmd.BookingID)
	if cmd.BookingID == "" {
		return kafka.NewPermanentError("command has no booking_id", nil)
	}

	ctx = events.WithCorrelationID(ctx, msg.CorrelationID())

	switch msg.EventType() {
	case PaymentConfirmed:
		return classify(h.confirm(ctx, cmd.BookingID))
	case BookingCancelRequested:
		return classify(h.cancel(ctx, cmd))
	default:
		h.log.Debug("Ignoring unknown command", "event_type", msg.EventType(), "event_id", msg.EventID())
		return nil
	}
}

// confirm walks the booking to confirmed, passing through pending_payment
// when the form step was never reported.
func (h *Handler) confirm(ctx context.Context, id string) error {
	booking, err := h.service.GetBooking(ctx, id)
	if err != nil {
		return err
	}

	switch booking.Status {
	case model.BookingStatusConfirmed:
		return nil
	case model.BookingStatusPendingForm:
		if _, err := h.service.Advance(ctx, id, &model.AdvanceRequest{Status: model.BookingStatusPendingPayment}); err != nil {
			return err
		}
	}

	_, err = h.service.Advance(ctx, id, &model.AdvanceRequest{Status: model.BookingStatusConfirmed})
	return err
}

func (h *Handler) cancel(ctx context.Context, cmd Command) error {
	release := true
	if cmd.ReleaseSlots != nil {
		release = *cmd.ReleaseSlots
	}

	_, err := h.service.Cancel(ctx, cmd.BookingID, &model.CancelRequest{ReleaseSlots: release, Reason: cmd.Reason})
	if apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
		booking, getErr := h.service.GetBooking(ctx, cmd.BookingID)
		if getErr == nil && booking.Status == model.BookingStatusCancelled {
			return nil
		}
	}
	return err
}

// classify marks rejections of the command itself as permanent so they are
// dead-lettered, and leaves store faults to be retried.
func classify(err error) error {
	if err == nil {
		return nil
	}
	appErr := apperrors.AsAppError(err)
	if appErr.IsServerFault() {
		return kafka.NewTransientError(fmt.Sprintf("command failed: %s", appErr.Code), err)
	}
	return kafka.NewPermanentError(fmt.Sprintf("command rejected: %s", appErr.Code), err)
}
