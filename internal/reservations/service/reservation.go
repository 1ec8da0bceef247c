package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	blockedrepo "nailbook/internal/blockeddates/repository"
	reserrors "nailbook/internal/reservations/errors"
	"nailbook/internal/reservations/events"
	"nailbook/internal/reservations/repository"
	"nailbook/internal/scheduling/availability"
	"nailbook/internal/scheduling/chain"
	"nailbook/internal/scheduling/overlay"
	slotserrors "nailbook/internal/slots/errors"
	slotrepo "nailbook/internal/slots/repository"
	"nailbook/pkg/config"
	mongotx "nailbook/pkg/db/mongo"
	apperrors "nailbook/pkg/errors"
	"nailbook/pkg/model"
	"nailbook/pkg/sanitizer"
	"nailbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

const (
	expireBatchSize = 100

	ReasonExpired  = "expired"
	ReasonReleased = "released"
)

type ReservationService interface {
	GetAvailability(ctx context.Context, resourceID *string, fromDate string) (*model.Availability, error)
	ResolveChain(ctx context.Context, req *model.ResolveRequest) ([]*model.Slot, error)
	Reserve(ctx context.Context, req *model.ReservationRequest) (*model.Booking, error)
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	Release(ctx context.Context, id string) (*model.Booking, error)
	Cancel(ctx context.Context, id string, req *model.CancelRequest) (*model.Booking, error)
	Advance(ctx context.Context, id string, req *model.AdvanceRequest) (*model.Booking, error)
	// ExpireStale cancels unconfirmed bookings created before cutoff and
	// releases their slots. It returns how many bookings were expired.
	ExpireStale(ctx context.Context, cutoff time.Time) (int, error)
}

type reservationService struct {
	slots     slotrepo.SlotRepository
	bookings  repository.BookingRepository
	blocked   blockedrepo.BlockedDateRepository
	resolver  *chain.Resolver
	calc      *availability.Calculator
	validate  *validator.Validate
	publisher events.Publisher
	cfg       *config.Config
}

func NewReservationService(
	slots slotrepo.SlotRepository,
	bookings repository.BookingRepository,
	blocked blockedrepo.BlockedDateRepository,
	publisher events.Publisher,
	cfg *config.Config,
) ReservationService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &reservationService{
		slots:     slots,
		bookings:  bookings,
		blocked:   blocked,
		resolver:  chain.NewResolver(cfg.Sequence),
		calc:      availability.NewCalculator(cfg.Sequence),
		validate:  validation.New(cfg.Log),
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *reservationService) GetAvailability(ctx context.Context, resourceID *string, fromDate string) (*model.Availability, error) {
	if fromDate != "" && !model.ValidDate(fromDate) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid from_date: %q", fromDate))
	}
	today := model.Today(s.cfg.Location)
	if fromDate == "" || fromDate < today {
		fromDate = today
	}

	var slots []*model.Slot
	var records []*model.BlockedDate
	var errSlots, errBlocked error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		slots, errSlots = s.slots.FindAvailableFrom(ctx, resourceID, fromDate)
	}()

	go func() {
		defer wg.Done()
		records, errBlocked = s.blocked.FindOverlapping(ctx, fromDate, "")
	}()

	wg.Wait()
	if errSlots != nil {
		return nil, s.storeError("Failed to load available slots", errSlots)
	}
	if errBlocked != nil {
		return nil, s.storeError("Failed to load blocked dates", errBlocked)
	}

	q := availability.Query{ResourceID: resourceID, FromDate: fromDate}
	return &model.Availability{
		Slots:        s.calc.Filter(slots, q, overlay.New(records)),
		BlockedDates: records,
	}, nil
}

func (s *reservationService) ResolveChain(ctx context.Context, req *model.ResolveRequest) ([]*model.Slot, error) {
	req.ServiceType = sanitizer.NormalizeKey(req.ServiceType)
	if err := validation.Struct(s.validate, req); err != nil {
		return nil, s.reject("ResolveChain", validationError("Chain request validation failed", err))
	}

	required := req.RequiredCount
	if required == 0 {
		n, err := s.requiredSlots(req.ServiceType)
		if err != nil {
			return nil, s.reject("ResolveChain", err)
		}
		required = n
	}
	if required == 1 {
		return []*model.Slot{}, nil
	}

	anchor, err := s.loadSlot(ctx, req.AnchorSlotID)
	if err != nil {
		return nil, s.reject("ResolveChain", err)
	}

	resolved, err := s.resolve(ctx, anchor, required)
	if err != nil {
		return nil, s.reject("ResolveChain", err)
	}
	return resolved, nil
}

// Reserve re-validates the submitted chain against the store and then
// claims every slot and records the booking in one transaction. The
// transaction flips slots with a conditional update on status=available,
// so a concurrent winner leaves this attempt with ReservationRaceLost and
// nothing written.
func (s *reservationService) Reserve(ctx context.Context, req *model.ReservationRequest) (*model.Booking, error) {
	s.sanitizeReservation(req)
	if err := validation.Struct(s.validate, req); err != nil {
		return nil, s.reject("Reserve", validationError("Reservation validation failed", err))
	}

	required, err := s.requiredSlots(req.ServiceType)
	if err != nil {
		return nil, s.reject("Reserve", err)
	}
	if len(req.ChainSlotIDs) != required-1 {
		return nil, s.reject("Reserve", apperrors.Validation(
			fmt.Sprintf("Service %s requires %d slot(s), got %d", req.ServiceType, required, 1+len(req.ChainSlotIDs)),
			map[string]any{"service_type": req.ServiceType, "required_count": required},
		))
	}

	ids := append([]string{req.AnchorSlotID}, req.ChainSlotIDs...)
	if dup := firstDuplicate(ids); dup != "" {
		return nil, s.reject("Reserve", apperrors.Validation("Slot ids must be distinct", map[string]any{"slot_id": dup}))
	}

	anchor, err := s.loadSlot(ctx, req.AnchorSlotID)
	if err != nil {
		return nil, s.reject("Reserve", err)
	}
	if req.ResourceID != "" && req.ResourceID != anchor.ResourceID {
		return nil, s.reject("Reserve", apperrors.InvalidInput("resource_id does not match the anchor slot"))
	}

	if err := s.precheck(ctx, anchor, req.ChainSlotIDs, required); err != nil {
		return nil, s.reject("Reserve", err)
	}

	booking := &model.Booking{
		SlotID:        anchor.ID,
		LinkedSlotIDs: append([]string{}, req.ChainSlotIDs...),
		ServiceType:   req.ServiceType,
		ResourceID:    anchor.ResourceID,
		Date:          anchor.Date,
		Time:          anchor.Time,
		ClientType:    req.ClientType,
		Location:      req.Location,
		Status:        model.BookingStatusPendingForm,
	}

	// One attempt only: a conflicting writer means the slots are gone and the
	// caller has to resolve a new chain.
	err = s.bookings.ExecuteTransactionOnce(ctx, func(txCtx context.Context) error {
		matched, err := s.slots.TransitionStatus(txCtx, ids, []string{model.SlotStatusAvailable}, model.SlotStatusPending)
		if err != nil {
			return err
		}
		if matched != int64(len(ids)) {
			return reserrors.ErrReservationRaceLost
		}
		return s.bookings.Create(txCtx, booking)
	})
	if err != nil {
		if mongotx.IsUnavailable(err) {
			return nil, s.storeError("Failed to commit reservation", err)
		}
		if errors.Is(err, reserrors.ErrReservationRaceLost) || mongotx.IsWriteConflict(err) {
			return nil, s.reject("Reserve", apperrors.ReservationRaceLost().WithCause(err))
		}
		return nil, s.storeError("Failed to commit reservation", err)
	}

	s.cfg.Log.Info("Reservation committed",
		"booking_id", booking.ID,
		"service_type", booking.ServiceType,
		"resource_id", booking.ResourceID,
		"date", booking.Date,
		"time", booking.Time,
		"slots", len(ids),
	)
	s.publish(ctx, events.BookingReserved, booking)
	return booking, nil
}

// precheck reads the current state of the chain right before commit. Every
// slot must exist, share the anchor's resource and date, avoid blocked
// dates and still be available, and the chain must be exactly what the
// resolver produces from the anchor now.
func (s *reservationService) precheck(ctx context.Context, anchor *model.Slot, chainIDs []string, required int) error {
	linked, err := s.slots.FindByIDs(ctx, chainIDs)
	if err != nil {
		if errors.Is(err, slotserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid slot ID format")
		}
		return s.storeError("Failed to load chain slots", err)
	}
	byID := make(map[string]*model.Slot, len(linked))
	for _, sl := range linked {
		byID[sl.ID] = sl
	}

	ordered := []*model.Slot{anchor}
	for _, id := range chainIDs {
		sl, ok := byID[id]
		if !ok {
			return apperrors.SlotNotFound(id)
		}
		if sl.ResourceID != anchor.ResourceID || sl.Date != anchor.Date {
			return apperrors.Validation("Chain slots must share the anchor's resource and date",
				map[string]any{"slot_id": id})
		}
		ordered = append(ordered, sl)
	}

	blocked, err := s.overlayFor(ctx, anchor.Date)
	if err != nil {
		return err
	}
	if blocked.IsBlocked(anchor.Date) {
		return apperrors.BlockedDateConflict(anchor.Date)
	}

	for _, sl := range ordered {
		if sl.Status != model.SlotStatusAvailable {
			return apperrors.ReservationRaceLost().WithDetails(map[string]any{"slot_id": sl.ID, "status": sl.Status})
		}
	}

	if required == 1 {
		return nil
	}
	resolved, err := s.resolveWith(ctx, anchor, required, blocked)
	if err != nil {
		if errors.Is(err, chain.ErrChainGap) {
			return apperrors.ReservationRaceLost().WithCause(err)
		}
		return mapResolutionError(err)
	}
	if !chain.Matches(resolved, chainIDs) {
		expected := make([]string, len(resolved))
		for i, sl := range resolved {
			expected[i] = sl.ID
		}
		return apperrors.ReservationRaceLost().WithDetails(map[string]any{"expected_chain": expected})
	}
	return nil
}

func (s *reservationService) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, s.bookingLookupError(id, err)
	}
	return booking, nil
}

func (s *reservationService) Release(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.cancel(ctx, id, true, ReasonReleased)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.BookingReleased, booking)
	return booking, nil
}

func (s *reservationService) Cancel(ctx context.Context, id string, req *model.CancelRequest) (*model.Booking, error) {
	req.Reason = sanitizer.NormalizeText(req.Reason)
	if err := validation.Struct(s.validate, req); err != nil {
		return nil, s.reject("Cancel", validationError("Cancel request validation failed", err))
	}

	booking, err := s.cancel(ctx, id, req.ReleaseSlots, req.Reason)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.BookingCancelled, booking)
	return booking, nil
}

// cancel marks the booking cancelled and moves its held slots to available
// when release is set, or to blocked for manual review otherwise. Slots an
// administrator already blocked stay blocked.
func (s *reservationService) cancel(ctx context.Context, id string, release bool, reason string) (*model.Booking, error) {
	booking, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, s.reject("Cancel", err)
	}
	if booking.IsTerminal() {
		return nil, s.reject("Cancel", apperrors.InvalidTransition("booking", booking.Status, model.BookingStatusCancelled))
	}

	target := model.SlotStatusBlocked
	if release {
		target = model.SlotStatusAvailable
	}

	var released int64
	err = s.bookings.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.bookings.TransitionStatus(txCtx, id, model.BookingSourcesFor(model.BookingStatusCancelled), model.BookingStatusCancelled, reason); err != nil {
			return err
		}
		n, err := s.slots.TransitionStatus(txCtx, booking.SlotIDs(),
			[]string{model.SlotStatusPending, model.SlotStatusConfirmed}, target)
		released = n
		return err
	})
	if err != nil {
		return nil, s.transitionError("Cancel", booking, model.BookingStatusCancelled, err)
	}

	booking.Status = model.BookingStatusCancelled
	booking.CancelReason = reason
	booking.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	s.cfg.Log.Info("Booking cancelled",
		"booking_id", id,
		"reason", reason,
		"slot_status", target,
		"slots_updated", released,
	)
	return booking, nil
}

// Advance moves a booking forward. Confirming it also confirms its slots,
// which must all still be pending.
func (s *reservationService) Advance(ctx context.Context, id string, req *model.AdvanceRequest) (*model.Booking, error) {
	if err := validation.Struct(s.validate, req); err != nil {
		return nil, s.reject("Advance", validationError("Advance request validation failed", err))
	}

	booking, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, s.reject("Advance", err)
	}
	if !model.CanTransitionBooking(booking.Status, req.Status) {
		return nil, s.reject("Advance", apperrors.InvalidTransition("booking", booking.Status, req.Status))
	}

	err = s.bookings.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.bookings.TransitionStatus(txCtx, id, []string{booking.Status}, req.Status, ""); err != nil {
			return err
		}
		if req.Status != model.BookingStatusConfirmed {
			return nil
		}
		ids := booking.SlotIDs()
		matched, err := s.slots.TransitionStatus(txCtx, ids, []string{model.SlotStatusPending}, model.SlotStatusConfirmed)
		if err != nil {
			return err
		}
		if matched != int64(len(ids)) {
			return fmt.Errorf("%w: %d of %d slots still pending", reserrors.ErrInvalidTransition, matched, len(ids))
		}
		return nil
	})
	if err != nil {
		return nil, s.transitionError("Advance", booking, req.Status, err)
	}

	previous := booking.Status
	booking.Status = req.Status
	booking.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	s.cfg.Log.Info("Booking advanced", "booking_id", id, "from", previous, "to", booking.Status)
	if booking.Status == model.BookingStatusConfirmed {
		s.publish(ctx, events.BookingConfirmed, booking)
	}
	return booking, nil
}

func (s *reservationService) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	statuses := []string{model.BookingStatusPendingForm, model.BookingStatusPendingPayment}
	expired := 0

	for {
		stale, err := s.bookings.FindStale(ctx, statuses, cutoff, expireBatchSize)
		if err != nil {
			return expired, s.storeError("Failed to find stale bookings", err)
		}

		progressed := 0
		for _, b := range stale {
			if ctx.Err() != nil {
				return expired, ctx.Err()
			}
			booking, err := s.cancel(ctx, b.ID, true, ReasonExpired)
			if err != nil {
				s.cfg.Log.Warn("Failed to expire booking", "booking_id", b.ID, "error", err)
				continue
			}
			progressed++
			s.publish(ctx, events.BookingReleased, booking)
		}
		expired += progressed

		if len(stale) < expireBatchSize || progressed == 0 {
			break
		}
	}

	if expired > 0 {
		s.cfg.Log.Info("Expired stale bookings", "count", expired, "cutoff", cutoff)
	}
	return expired, nil
}

func (s *reservationService) requiredSlots(serviceType string) (int, error) {
	n, ok := s.cfg.Services.RequiredSlots(serviceType)
	if !ok {
		return 0, apperrors.Validation(fmt.Sprintf("Unknown service type: %q", serviceType),
			map[string]any{"service_type": serviceType, "known": s.cfg.Services.Names()})
	}
	return n, nil
}

func (s *reservationService) loadSlot(ctx context.Context, id string) (*model.Slot, error) {
	slot, err := s.slots.FindByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, slotserrors.ErrNotFound):
			return nil, apperrors.SlotNotFound(id)
		case errors.Is(err, slotserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid slot ID format")
		default:
			return nil, s.storeError("Failed to load slot", err)
		}
	}
	return slot, nil
}

func (s *reservationService) overlayFor(ctx context.Context, date string) (*overlay.Overlay, error) {
	records, err := s.blocked.FindOverlapping(ctx, date, date)
	if err != nil {
		return nil, s.storeError("Failed to load blocked dates", err)
	}
	return overlay.New(records), nil
}

func (s *reservationService) resolve(ctx context.Context, anchor *model.Slot, required int) ([]*model.Slot, error) {
	blocked, err := s.overlayFor(ctx, anchor.Date)
	if err != nil {
		return nil, err
	}
	resolved, err := s.resolveWith(ctx, anchor, required, blocked)
	if err != nil {
		return nil, mapResolutionError(err)
	}
	return resolved, nil
}

// resolveWith returns raw resolver errors so callers can tell reasons apart.
func (s *reservationService) resolveWith(ctx context.Context, anchor *model.Slot, required int, blocked *overlay.Overlay) ([]*model.Slot, error) {
	daySlots, err := s.slots.FindByResourceAndDate(ctx, anchor.ResourceID, anchor.Date)
	if err != nil {
		return nil, s.storeError("Failed to load slots for the day", err)
	}
	return s.resolver.Resolve(anchor, required, daySlots, blocked)
}

func mapResolutionError(err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	re, ok := chain.AsResolutionError(err)
	if !ok {
		if errors.Is(err, chain.ErrInvalidRequiredCount) {
			return apperrors.InvalidInput(err.Error())
		}
		return apperrors.Internal("Chain resolution failed", err)
	}

	switch re.Reason {
	case chain.ReasonEndOfSequence:
		return apperrors.EndOfSequence(re.Date).WithCause(err)
	case chain.ReasonBlockedDate:
		return apperrors.BlockedDateConflict(re.Date).WithCause(err)
	case chain.ReasonChainGap:
		return apperrors.ChainGap(re.Date, re.Time).WithCause(err)
	default:
		return apperrors.Validation("Anchor slot time is not part of the time sequence",
			map[string]any{"time": re.Time}).WithCause(err)
	}
}

func (s *reservationService) transitionError(op string, booking *model.Booking, to string, err error) error {
	switch {
	case errors.Is(err, reserrors.ErrBookingNotFound):
		return s.reject(op, apperrors.NotFoundWithID("Booking", booking.ID))
	case errors.Is(err, reserrors.ErrStatusMismatch), errors.Is(err, reserrors.ErrInvalidTransition):
		return s.reject(op, apperrors.InvalidTransition("booking", booking.Status, to).WithCause(err))
	case mongotx.IsUnavailable(err):
		return s.storeError(fmt.Sprintf("Failed to move booking to %s", to), err)
	case mongotx.IsWriteConflict(err):
		return s.reject(op, apperrors.Conflict("Booking was modified concurrently, retry the request").WithCause(err))
	default:
		return s.storeError(fmt.Sprintf("Failed to move booking to %s", to), err)
	}
}

func (s *reservationService) bookingLookupError(id string, err error) error {
	switch {
	case errors.Is(err, reserrors.ErrBookingNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, reserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	default:
		return s.storeError("Failed to retrieve booking", err)
	}
}

// reject logs an expected rejection. Domain outcomes are part of normal
// operation and stay below Error level.
func (s *reservationService) reject(op string, err error) error {
	appErr := apperrors.AsAppError(err)
	if appErr.IsServerFault() {
		return err
	}
	level := s.cfg.Log.Info
	if appErr.Code == apperrors.CodeReservationRaceLost {
		level = s.cfg.Log.Warn
	}
	level("Request rejected", "operation", op, "code", appErr.Code, "reason", appErr.Message, "details", appErr.Details)
	return err
}

func (s *reservationService) storeError(message string, err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	s.cfg.Log.Error(message, "error", err)
	if mongotx.IsUnavailable(err) {
		return apperrors.Unavailable("reservation store", err)
	}
	return apperrors.Internal(message, err)
}

func (s *reservationService) publish(ctx context.Context, eventType string, booking *model.Booking) {
	if err := s.publisher.Publish(ctx, eventType, booking); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event",
			"event_type", eventType, "booking_id", booking.ID, "error", err)
	}
}

func (s *reservationService) sanitizeReservation(req *model.ReservationRequest) {
	req.AnchorSlotID = sanitizer.TrimAndNormalize(req.AnchorSlotID)
	for i, id := range req.ChainSlotIDs {
		req.ChainSlotIDs[i] = sanitizer.TrimAndNormalize(id)
	}
	req.ServiceType = sanitizer.NormalizeKey(req.ServiceType)
	req.ResourceID = sanitizer.TrimAndNormalize(req.ResourceID)
	req.ClientType = sanitizer.NormalizeKey(req.ClientType)
	req.Location = sanitizer.TrimAndNormalize(req.Location)
}

func firstDuplicate(ids []string) string {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id
		}
		seen[id] = struct{}{}
	}
	return ""
}

func validationError(message string, err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Fields())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}
