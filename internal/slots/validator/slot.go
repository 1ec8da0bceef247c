package validator

import (
	"fmt"

	"nailbook/internal/scheduling/timegrid"
	"nailbook/pkg/logger"
	"nailbook/pkg/model"
	"nailbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type SlotValidator struct {
	validate *validator.Validate
	sequence *timegrid.Sequence
	maxDays  int
	logger   *logger.Logger
}

func NewSlotValidator(log *logger.Logger, seq *timegrid.Sequence, maxDays int) *SlotValidator {
	v := validation.New(log)

	log.Info("Slot validator initialized successfully")

	return &SlotValidator{
		validate: v,
		sequence: seq,
		maxDays:  maxDays,
		logger:   log,
	}
}

// Validate checks a single slot. Its time must sit on the canonical grid,
// otherwise chain resolution could never reach it.
func (v *SlotValidator) Validate(slot *model.Slot) error {
	if err := validation.Struct(v.validate, slot); err != nil {
		return err
	}
	if !v.sequence.Contains(slot.Time) {
		return validation.Fail("Time", fmt.Sprintf("time %s is not part of the time sequence %s", slot.Time, v.sequence))
	}
	return nil
}

func (v *SlotValidator) ValidateUpdate(update *model.SlotUpdate) error {
	if err := validation.Struct(v.validate, update); err != nil {
		return err
	}
	if update.Status == "" && update.SlotType == "" && update.IsHidden == nil && update.Notes == nil {
		return validation.Fail("SlotUpdate", "at least one field must be provided")
	}
	return nil
}

func (v *SlotValidator) ValidateBulk(req *model.BulkSlotRequest) error {
	if err := validation.Struct(v.validate, req); err != nil {
		return err
	}
	if req.EndDate < req.StartDate {
		return validation.Fail("EndDate", "end_date must not be before start_date")
	}

	days, err := model.DatesBetween(req.StartDate, req.EndDate)
	if err != nil {
		return validation.Fail("StartDate", err.Error())
	}
	if len(days) > v.maxDays {
		return validation.Fail("EndDate", fmt.Sprintf("date range spans %d days, at most %d allowed", len(days), v.maxDays))
	}

	for _, t := range req.Times {
		if !v.sequence.Contains(t) {
			return validation.Fail("Times", fmt.Sprintf("time %s is not part of the time sequence %s", t, v.sequence))
		}
	}
	return nil
}
