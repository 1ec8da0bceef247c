package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"

	apperrors "nailbook/pkg/errors"
	"nailbook/pkg/logger"
	"nailbook/pkg/model"
)

type mockSlotService struct {
	createFunc     func(ctx context.Context, slot *model.Slot) error
	createBulkFunc func(ctx context.Context, req *model.BulkSlotRequest) (*model.BulkSlotResult, error)
	getFunc        func(ctx context.Context, id string) (*model.Slot, error)
	searchFunc     func(ctx context.Context, resourceID *string, date string) ([]*model.Slot, error)
	updateFunc     func(ctx context.Context, id string, updates *model.SlotUpdate) (*model.Slot, error)
	deleteFunc     func(ctx context.Context, id string) error
}

func (m *mockSlotService) Create(ctx context.Context, slot *model.Slot) error {
	return m.createFunc(ctx, slot)
}

func (m *mockSlotService) CreateBulk(ctx context.Context, req *model.BulkSlotRequest) (*model.BulkSlotResult, error) {
	return m.createBulkFunc(ctx, req)
}

func (m *mockSlotService) GetByID(ctx context.Context, id string) (*model.Slot, error) {
	return m.getFunc(ctx, id)
}

func (m *mockSlotService) Search(ctx context.Context, resourceID *string, date string) ([]*model.Slot, error) {
	return m.searchFunc(ctx, resourceID, date)
}

func (m *mockSlotService) Update(ctx context.Context, id string, updates *model.SlotUpdate) (*model.Slot, error) {
	return m.updateFunc(ctx, id, updates)
}

func (m *mockSlotService) Delete(ctx context.Context, id string) error {
	return m.deleteFunc(ctx, id)
}

func newRouter(svc *mockSlotService) *httprouter.Router {
	log := logger.New(logger.Config{Level: "info", Format: logger.JSON, Service: "test"})
	router := httprouter.New()
	NewSlotHandler(svc, log).RegisterRoutes(router)
	return router
}

func TestCreate_Returns201(t *testing.T) {
	router := newRouter(&mockSlotService{
		createFunc: func(ctx context.Context, slot *model.Slot) error {
			slot.ID = "s1"
			slot.Status = model.SlotStatusAvailable
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/slots", strings.NewReader(`{"date":"2025-03-10","time":"08:00"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data model.Slot `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Data.ID != "s1" || body.Data.Time != "08:00" {
		t.Errorf("unexpected body %+v", body.Data)
	}
}

func TestCreate_RejectsUnknownFields(t *testing.T) {
	router := newRouter(&mockSlotService{
		createFunc: func(ctx context.Context, slot *model.Slot) error {
			t.Fatal("service must not be called")
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/slots", strings.NewReader(`{"date":"2025-03-10","colour":"red"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSearch(t *testing.T) {
	var gotResource *string
	router := newRouter(&mockSlotService{
		searchFunc: func(ctx context.Context, resourceID *string, date string) ([]*model.Slot, error) {
			gotResource = resourceID
			return []*model.Slot{{ID: "a", Date: date}}, nil
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/slots/search?date=2025-03-10&resource_id=tech-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotResource == nil || *gotResource != "tech-1" {
		t.Errorf("expected resource filter tech-1, got %v", gotResource)
	}
	if !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Errorf("expected count in body, got %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/slots/search", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without date, got %d", rec.Code)
	}
}

func TestUpdate_MapsDomainErrors(t *testing.T) {
	router := newRouter(&mockSlotService{
		updateFunc: func(ctx context.Context, id string, updates *model.SlotUpdate) (*model.Slot, error) {
			return nil, apperrors.InvalidTransition("slot", model.SlotStatusPending, model.SlotStatusBlocked)
		},
	})

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/slots/id/s1", strings.NewReader(`{"status":"blocked"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var body apperrors.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Code != apperrors.CodeInvalidTransition {
		t.Errorf("code = %s, want %s", body.Code, apperrors.CodeInvalidTransition)
	}
}

func TestDelete_Returns204(t *testing.T) {
	var deleted string
	router := newRouter(&mockSlotService{
		deleteFunc: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/slots/id/s9", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if deleted != "s9" {
		t.Errorf("deleted %q, want s9", deleted)
	}
}
