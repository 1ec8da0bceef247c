package service

import (
	"context"
	"errors"
	"fmt"

	slotserrors "nailbook/internal/slots/errors"
	"nailbook/internal/slots/repository"
	"nailbook/internal/slots/validator"
	"nailbook/pkg/config"
	mongotx "nailbook/pkg/db/mongo"
	apperrors "nailbook/pkg/errors"
	"nailbook/pkg/model"
	"nailbook/pkg/sanitizer"
	"nailbook/pkg/validation"
)

type SlotService interface {
	Create(ctx context.Context, slot *model.Slot) error
	CreateBulk(ctx context.Context, req *model.BulkSlotRequest) (*model.BulkSlotResult, error)
	GetByID(ctx context.Context, id string) (*model.Slot, error)
	Search(ctx context.Context, resourceID *string, date string) ([]*model.Slot, error)
	Update(ctx context.Context, id string, updates *model.SlotUpdate) (*model.Slot, error)
	Delete(ctx context.Context, id string) error
}

// BookingReferences reports whether any booking, cancelled ones included,
// lists the slot as its anchor or in its chain.
type BookingReferences interface {
	ReferencesSlot(ctx context.Context, slotID string) (bool, error)
}

type slotService struct {
	repo      repository.SlotRepository
	bookings  BookingReferences
	validator *validator.SlotValidator
	cfg       *config.Config
}

func NewSlotService(repo repository.SlotRepository, bookings BookingReferences, validator *validator.SlotValidator, cfg *config.Config) SlotService {
	return &slotService{
		repo:      repo,
		bookings:  bookings,
		validator: validator,
		cfg:       cfg,
	}
}

// deletableStatuses are the only statuses a slot may be deleted in. A
// blocked slot can still belong to a booking cancelled without release,
// so Delete also checks booking references.
var deletableStatuses = []string{model.SlotStatusAvailable, model.SlotStatusBlocked}

func (s *slotService) Create(ctx context.Context, slot *model.Slot) error {
	slot.ID = ""
	s.applyDefaults(slot)
	s.sanitize(slot)

	if err := s.validator.Validate(slot); err != nil {
		s.cfg.Log.Warn("Slot validation failed", "error", err)
		return validationError("Slot validation failed", err)
	}

	if err := s.repo.Create(ctx, slot); err != nil {
		if errors.Is(err, slotserrors.ErrDuplicate) {
			s.cfg.Log.Info("Slot already exists",
				"resource_id", slot.ResourceID, "date", slot.Date, "time", slot.Time)
			return apperrors.Conflict(fmt.Sprintf("Slot already exists for %q on %s at %s", slot.ResourceID, slot.Date, slot.Time))
		}
		return s.storeError("Failed to create slot", err)
	}

	s.cfg.Log.Info("Slot created successfully",
		"id", slot.ID,
		"resource_id", slot.ResourceID,
		"date", slot.Date,
		"time", slot.Time,
	)
	return nil
}

func (s *slotService) CreateBulk(ctx context.Context, req *model.BulkSlotRequest) (*model.BulkSlotResult, error) {
	req.ResourceIDs = sanitizer.TrimSlice(req.ResourceIDs)
	if err := s.validator.ValidateBulk(req); err != nil {
		s.cfg.Log.Warn("Bulk slot validation failed", "error", err)
		return nil, validationError("Bulk slot validation failed", err)
	}

	slots, err := s.expand(req)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	created, err := s.repo.CreateMany(ctx, slots)
	if err != nil {
		return nil, s.storeError("Failed to create slots", err)
	}

	result := &model.BulkSlotResult{
		Requested: len(slots),
		Created:   created,
		Skipped:   len(slots) - created,
	}
	s.cfg.Log.Info("Slots generated",
		"start_date", req.StartDate,
		"end_date", req.EndDate,
		"resources", len(req.ResourceIDs),
		"requested", result.Requested,
		"created", result.Created,
		"skipped", result.Skipped,
	)
	return result, nil
}

// expand builds one available slot per resource, day and time. No resource
// ids means the shared, unassigned resource.
func (s *slotService) expand(req *model.BulkSlotRequest) ([]*model.Slot, error) {
	days, err := model.DatesBetween(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	times := req.Times
	if len(times) == 0 {
		times = s.cfg.Sequence.Times()
	}
	resources := req.ResourceIDs
	if len(resources) == 0 {
		resources = []string{""}
	}
	slotType := req.SlotType
	if slotType == "" {
		slotType = model.SlotTypeRegular
	}

	slots := make([]*model.Slot, 0, len(resources)*len(days)*len(times))
	for _, resourceID := range resources {
		for _, day := range days {
			for _, t := range times {
				slots = append(slots, &model.Slot{
					ResourceID: resourceID,
					Date:       day,
					Time:       t,
					Status:     model.SlotStatusAvailable,
					SlotType:   slotType,
					IsHidden:   req.IsHidden,
				})
			}
		}
	}
	return slots, nil
}

func (s *slotService) GetByID(ctx context.Context, id string) (*model.Slot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}

	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}
	return slot, nil
}

func (s *slotService) Search(ctx context.Context, resourceID *string, date string) ([]*model.Slot, error) {
	if !model.ValidDate(date) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid date parameter: %q", date))
	}

	slots, err := s.repo.Search(ctx, resourceID, date)
	if err != nil {
		return nil, s.storeError("Failed to search slots", err)
	}
	return slots, nil
}

// Update applies an administrative edit. Status may only move between
// available and blocked; slots held by a booking change status through the
// booking lifecycle.
func (s *slotService) Update(ctx context.Context, id string, updates *model.SlotUpdate) (*model.Slot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}
	if updates.Notes != nil {
		notes := sanitizer.NormalizeText(*updates.Notes)
		updates.Notes = &notes
	}
	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Slot update validation failed", "id", id, "error", err)
		return nil, validationError("Slot update validation failed", err)
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}

	if updates.Status != "" && updates.Status != current.Status {
		if current.Status == model.SlotStatusPending || current.Status == model.SlotStatusConfirmed ||
			!model.CanTransitionSlot(current.Status, updates.Status) {
			s.cfg.Log.Info("Rejected slot status change",
				"id", id, "from", current.Status, "to", updates.Status)
			return nil, apperrors.InvalidTransition("slot", current.Status, updates.Status)
		}
	}

	if err := s.repo.Update(ctx, id, current.Status, updates); err != nil {
		if errors.Is(err, slotserrors.ErrStatusMismatch) {
			s.cfg.Log.Info("Slot changed during update", "id", id, "expected_status", current.Status)
			return nil, apperrors.Conflict("Slot was modified concurrently, retry the update")
		}
		return nil, s.lookupError(id, err)
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}

	s.cfg.Log.Info("Slot updated successfully", "id", id, "status", updated.Status)
	return updated, nil
}

func (s *slotService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Slot ID cannot be empty")
	}

	referenced, err := s.bookings.ReferencesSlot(ctx, id)
	if err != nil {
		return s.storeError("Failed to check booking references", err)
	}
	if referenced {
		s.cfg.Log.Info("Rejected deletion of booked slot", "id", id)
		return apperrors.Conflict("Slot is referenced by a booking and cannot be deleted")
	}

	if err := s.repo.Delete(ctx, id, deletableStatuses); err != nil {
		if errors.Is(err, slotserrors.ErrStatusMismatch) {
			s.cfg.Log.Info("Rejected deletion of held slot", "id", id)
			return apperrors.Conflict("Slot is held by a booking and cannot be deleted")
		}
		return s.lookupError(id, err)
	}

	s.cfg.Log.Info("Slot deleted successfully", "id", id)
	return nil
}

func (s *slotService) applyDefaults(slot *model.Slot) {
	if slot.Status == "" {
		slot.Status = model.SlotStatusAvailable
	}
	if slot.SlotType == "" {
		slot.SlotType = model.SlotTypeRegular
	}
}

func (s *slotService) sanitize(slot *model.Slot) {
	slot.ResourceID = sanitizer.TrimAndNormalize(slot.ResourceID)
	slot.Notes = sanitizer.NormalizeText(slot.Notes)
}

func (s *slotService) lookupError(id string, err error) error {
	switch {
	case errors.Is(err, slotserrors.ErrNotFound):
		return apperrors.SlotNotFound(id)
	case errors.Is(err, slotserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid slot ID format")
	default:
		return s.storeError("Failed to retrieve slot", err)
	}
}

func (s *slotService) storeError(message string, err error) error {
	s.cfg.Log.Error(message, "error", err)
	if mongotx.IsUnavailable(err) {
		return apperrors.Unavailable("slot store", err)
	}
	return apperrors.Internal(message, err)
}

func validationError(message string, err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Fields())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}
