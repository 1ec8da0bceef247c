package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	blockederrors "nailbook/internal/blockeddates/errors"
	"nailbook/pkg/config"
	apperrors "nailbook/pkg/errors"
	"nailbook/pkg/logger"
	"nailbook/pkg/model"
)

type mockBlockedDateRepository struct {
	createFunc      func(ctx context.Context, bd *model.BlockedDate) error
	overlappingFunc func(ctx context.Context, from, to string) ([]*model.BlockedDate, error)
	deleteFunc      func(ctx context.Context, id string) error
}

func (m *mockBlockedDateRepository) Create(ctx context.Context, bd *model.BlockedDate) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, bd)
	}
	bd.ID = "bd-1"
	return nil
}

func (m *mockBlockedDateRepository) FindByID(ctx context.Context, id string) (*model.BlockedDate, error) {
	return nil, blockederrors.ErrNotFound
}

func (m *mockBlockedDateRepository) FindOverlapping(ctx context.Context, from, to string) ([]*model.BlockedDate, error) {
	if m.overlappingFunc != nil {
		return m.overlappingFunc(ctx, from, to)
	}
	return []*model.BlockedDate{}, nil
}

func (m *mockBlockedDateRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func newTestService(repo *mockBlockedDateRepository) BlockedDateService {
	log := logger.New(logger.Config{Level: "info", Format: logger.JSON, Service: "test"})
	return NewBlockedDateService(repo, &config.Config{Log: log})
}

func TestCreate_NormalizesForms(t *testing.T) {
	tests := []struct {
		name      string
		req       model.BlockedDateRequest
		wantStart string
		wantEnd   string
		wantScope string
	}{
		{
			name:      "single date",
			req:       model.BlockedDateRequest{Date: "2025-12-25", Reason: " holiday "},
			wantStart: "2025-12-25", wantEnd: "2025-12-25", wantScope: model.BlockScopeSingle,
		},
		{
			name:      "range",
			req:       model.BlockedDateRequest{StartDate: "2025-08-01", EndDate: "2025-08-14"},
			wantStart: "2025-08-01", wantEnd: "2025-08-14", wantScope: model.BlockScopeRange,
		},
		{
			name:      "one day range is single",
			req:       model.BlockedDateRequest{StartDate: "2025-08-01", EndDate: "2025-08-01"},
			wantStart: "2025-08-01", wantEnd: "2025-08-01", wantScope: model.BlockScopeSingle,
		},
		{
			name:      "month",
			req:       model.BlockedDateRequest{Month: "2024-02"},
			wantStart: "2024-02-01", wantEnd: "2024-02-29", wantScope: model.BlockScopeMonth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockBlockedDateRepository{})
			bd, err := svc.Create(context.Background(), &tt.req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if bd.StartDate != tt.wantStart || bd.EndDate != tt.wantEnd || bd.Scope != tt.wantScope {
				t.Errorf("got %s..%s (%s), want %s..%s (%s)",
					bd.StartDate, bd.EndDate, bd.Scope, tt.wantStart, tt.wantEnd, tt.wantScope)
			}
			if bd.ID != "bd-1" {
				t.Errorf("expected id from store, got %q", bd.ID)
			}
		})
	}
}

func TestCreate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		req  model.BlockedDateRequest
	}{
		{name: "nothing set", req: model.BlockedDateRequest{Reason: "why"}},
		{name: "two forms", req: model.BlockedDateRequest{Date: "2025-01-01", Month: "2025-01"}},
		{name: "reversed range", req: model.BlockedDateRequest{StartDate: "2025-01-10", EndDate: "2025-01-01"}},
		{name: "half range", req: model.BlockedDateRequest{StartDate: "2025-01-10"}},
		{name: "bad month", req: model.BlockedDateRequest{Month: "2025-13"}},
		{name: "bad date", req: model.BlockedDateRequest{Date: "2025-02-29"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockBlockedDateRepository{
				createFunc: func(ctx context.Context, bd *model.BlockedDate) error {
					t.Fatal("store must not be called")
					return nil
				},
			})
			_, err := svc.Create(context.Background(), &tt.req)
			if !apperrors.HasCode(err, apperrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestList(t *testing.T) {
	var gotFrom, gotTo string
	svc := newTestService(&mockBlockedDateRepository{
		overlappingFunc: func(ctx context.Context, from, to string) ([]*model.BlockedDate, error) {
			gotFrom, gotTo = from, to
			return []*model.BlockedDate{{ID: "a", StartDate: "2025-01-01", EndDate: "2025-01-31"}}, nil
		},
	})

	records, err := svc.List(context.Background(), "2025-01-15", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || gotFrom != "2025-01-15" || gotTo != "" {
		t.Errorf("unexpected call: from=%q to=%q records=%d", gotFrom, gotTo, len(records))
	}

	_, err = svc.List(context.Background(), "2025-02-01", "2025-01-01")
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected invalid input for reversed bounds, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc := newTestService(&mockBlockedDateRepository{
		deleteFunc: func(ctx context.Context, id string) error {
			return fmt.Errorf("%w: %s", blockederrors.ErrNotFound, id)
		},
	})
	if err := svc.Delete(context.Background(), "x"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	svc = newTestService(&mockBlockedDateRepository{
		deleteFunc: func(ctx context.Context, id string) error {
			return errors.New("socket closed")
		},
	})
	if err := svc.Delete(context.Background(), "x"); !apperrors.HasCode(err, apperrors.CodeInternal) {
		t.Errorf("expected internal error, got %v", err)
	}
}

func TestOverlay(t *testing.T) {
	svc := newTestService(&mockBlockedDateRepository{
		overlappingFunc: func(ctx context.Context, from, to string) ([]*model.BlockedDate, error) {
			return []*model.BlockedDate{{StartDate: "2025-03-08", EndDate: "2025-03-09"}}, nil
		},
	})

	ov, err := svc.Overlay(context.Background(), "2025-03-01", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ov.IsBlocked("2025-03-09") || ov.IsBlocked("2025-03-10") {
		t.Error("overlay does not reflect stored records")
	}
}
