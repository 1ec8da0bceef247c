package service

import (
	"context"
	"errors"
	"fmt"

	blockederrors "nailbook/internal/blockeddates/errors"
	"nailbook/internal/blockeddates/repository"
	"nailbook/internal/scheduling/overlay"
	"nailbook/pkg/config"
	mongotx "nailbook/pkg/db/mongo"
	apperrors "nailbook/pkg/errors"
	"nailbook/pkg/model"
	"nailbook/pkg/sanitizer"
	"nailbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type BlockedDateService interface {
	Create(ctx context.Context, req *model.BlockedDateRequest) (*model.BlockedDate, error)
	List(ctx context.Context, from, to string) ([]*model.BlockedDate, error)
	Delete(ctx context.Context, id string) error
	// Overlay loads the records intersecting [from, to] for membership checks.
	Overlay(ctx context.Context, from, to string) (*overlay.Overlay, error)
}

type blockedDateService struct {
	repo     repository.BlockedDateRepository
	validate *validator.Validate
	cfg      *config.Config
}

func NewBlockedDateService(repo repository.BlockedDateRepository, cfg *config.Config) BlockedDateService {
	return &blockedDateService{
		repo:     repo,
		validate: validation.New(cfg.Log),
		cfg:      cfg,
	}
}

func (s *blockedDateService) Create(ctx context.Context, req *model.BlockedDateRequest) (*model.BlockedDate, error) {
	bd, err := s.normalize(req)
	if err != nil {
		s.cfg.Log.Warn("Blocked date validation failed", "error", err)
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, apperrors.Validation("Blocked date validation failed", verrs.Fields())
		}
		return nil, apperrors.Validation("Blocked date validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.Create(ctx, bd); err != nil {
		return nil, s.storeError("Failed to create blocked date", err)
	}

	s.cfg.Log.Info("Blocked date created successfully",
		"id", bd.ID,
		"start_date", bd.StartDate,
		"end_date", bd.EndDate,
		"scope", bd.Scope,
	)
	return bd, nil
}

// normalize turns the request into a stored range. The scope only records
// how the range was expressed; membership is range containment either way.
func (s *blockedDateService) normalize(req *model.BlockedDateRequest) (*model.BlockedDate, error) {
	if err := validation.Struct(s.validate, req); err != nil {
		return nil, err
	}

	forms := 0
	for _, set := range []bool{req.Date != "", req.StartDate != "", req.Month != ""} {
		if set {
			forms++
		}
	}
	if forms != 1 {
		return nil, validation.Fail("BlockedDateRequest", "exactly one of date, start_date/end_date or month is required")
	}

	bd := &model.BlockedDate{Reason: sanitizer.NormalizeText(req.Reason)}
	switch {
	case req.Date != "":
		bd.StartDate, bd.EndDate, bd.Scope = req.Date, req.Date, model.BlockScopeSingle
	case req.Month != "":
		start, end, err := model.MonthRange(req.Month)
		if err != nil {
			return nil, validation.Fail("Month", "month must be in YYYY-MM format")
		}
		bd.StartDate, bd.EndDate, bd.Scope = start, end, model.BlockScopeMonth
	default:
		if req.EndDate < req.StartDate {
			return nil, validation.Fail("EndDate", "end_date must not be before start_date")
		}
		bd.StartDate, bd.EndDate, bd.Scope = req.StartDate, req.EndDate, model.BlockScopeRange
		if req.StartDate == req.EndDate {
			bd.Scope = model.BlockScopeSingle
		}
	}
	return bd, nil
}

func (s *blockedDateService) List(ctx context.Context, from, to string) ([]*model.BlockedDate, error) {
	if from != "" && to != "" && to < from {
		return nil, apperrors.InvalidInput(fmt.Sprintf("'to' (%s) must not be before 'from' (%s)", to, from))
	}

	records, err := s.repo.FindOverlapping(ctx, from, to)
	if err != nil {
		return nil, s.storeError("Failed to list blocked dates", err)
	}
	return records, nil
}

func (s *blockedDateService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Blocked date ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, blockederrors.ErrNotFound):
			return apperrors.NotFoundWithID("Blocked date", id)
		case errors.Is(err, blockederrors.ErrInvalidID):
			return apperrors.InvalidInput("Invalid blocked date ID format")
		default:
			return s.storeError("Failed to delete blocked date", err)
		}
	}

	s.cfg.Log.Info("Blocked date deleted successfully", "id", id)
	return nil
}

func (s *blockedDateService) Overlay(ctx context.Context, from, to string) (*overlay.Overlay, error) {
	records, err := s.repo.FindOverlapping(ctx, from, to)
	if err != nil {
		return nil, s.storeError("Failed to load blocked dates", err)
	}
	return overlay.New(records), nil
}

func (s *blockedDateService) storeError(message string, err error) error {
	s.cfg.Log.Error(message, "error", err)
	if mongotx.IsUnavailable(err) {
		return apperrors.Unavailable("blocked date store", err)
	}
	return apperrors.Internal(message, err)
}
