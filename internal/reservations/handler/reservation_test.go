package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	"nailbook/internal/reservations/events"
	apperrors "nailbook/pkg/errors"
	"nailbook/pkg/logger"
	"nailbook/pkg/middleware"
	"nailbook/pkg/model"
)

type mockReservationService struct {
	availabilityFunc func(ctx context.Context, resourceID *string, fromDate string) (*model.Availability, error)
	resolveFunc      func(ctx context.Context, req *model.ResolveRequest) ([]*model.Slot, error)
	reserveFunc      func(ctx context.Context, req *model.ReservationRequest) (*model.Booking, error)
	getFunc          func(ctx context.Context, id string) (*model.Booking, error)
	releaseFunc      func(ctx context.Context, id string) (*model.Booking, error)
	cancelFunc       func(ctx context.Context, id string, req *model.CancelRequest) (*model.Booking, error)
	advanceFunc      func(ctx context.Context, id string, req *model.AdvanceRequest) (*model.Booking, error)
}

func (m *mockReservationService) GetAvailability(ctx context.Context, resourceID *string, fromDate string) (*model.Availability, error) {
	return m.availabilityFunc(ctx, resourceID, fromDate)
}

func (m *mockReservationService) ResolveChain(ctx context.Context, req *model.ResolveRequest) ([]*model.Slot, error) {
	return m.resolveFunc(ctx, req)
}

func (m *mockReservationService) Reserve(ctx context.Context, req *model.ReservationRequest) (*model.Booking, error) {
	return m.reserveFunc(ctx, req)
}

func (m *mockReservationService) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	return m.getFunc(ctx, id)
}

func (m *mockReservationService) Release(ctx context.Context, id string) (*model.Booking, error) {
	return m.releaseFunc(ctx, id)
}

func (m *mockReservationService) Cancel(ctx context.Context, id string, req *model.CancelRequest) (*model.Booking, error) {
	return m.cancelFunc(ctx, id, req)
}

func (m *mockReservationService) Advance(ctx context.Context, id string, req *model.AdvanceRequest) (*model.Booking, error) {
	return m.advanceFunc(ctx, id, req)
}

func (m *mockReservationService) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func newRouter(svc *mockReservationService) *httprouter.Router {
	log := logger.New(logger.Config{Level: "info", Format: logger.JSON, Service: "test"})
	router := httprouter.New()
	NewReservationHandler(svc, log).RegisterRoutes(router)
	return router
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var body apperrors.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	return body
}

func TestGetAvailability(t *testing.T) {
	var gotResource *string
	var gotFrom string
	router := newRouter(&mockReservationService{
		availabilityFunc: func(ctx context.Context, resourceID *string, fromDate string) (*model.Availability, error) {
			gotResource, gotFrom = resourceID, fromDate
			return &model.Availability{Slots: []*model.Slot{{ID: "s1"}}, BlockedDates: []*model.BlockedDate{}}, nil
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/availability?from_date=2031-01-02&resource_id=tech-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotFrom != "2031-01-02" || gotResource == nil || *gotResource != "tech-1" {
		t.Errorf("unexpected query passed through: %q %v", gotFrom, gotResource)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/availability?from_date=tomorrow", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed date, got %d", rec.Code)
	}
}

func TestResolveChain_WrapsChain(t *testing.T) {
	router := newRouter(&mockReservationService{
		resolveFunc: func(ctx context.Context, req *model.ResolveRequest) ([]*model.Slot, error) {
			if req.AnchorSlotID != "a" || req.ServiceType != "gel_extension" {
				t.Errorf("unexpected request %+v", req)
			}
			return []*model.Slot{{ID: "b", Time: "10:30"}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chains/resolve", strings.NewReader(`{"anchor_slot_id":"a","service_type":"gel_extension"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Data chainResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Data.Chain) != 1 || body.Data.Chain[0].ID != "b" {
		t.Errorf("unexpected chain %+v", body.Data.Chain)
	}
}

func TestResolveChain_DomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"slot not found", apperrors.SlotNotFound("a"), http.StatusNotFound, apperrors.CodeSlotNotFound},
		{"end of sequence", apperrors.EndOfSequence("2031-01-02"), http.StatusConflict, apperrors.CodeEndOfSequence},
		{"blocked date", apperrors.BlockedDateConflict("2031-01-02"), http.StatusConflict, apperrors.CodeBlockedDateConflict},
		{"chain gap", apperrors.ChainGap("2031-01-02", "10:30"), http.StatusConflict, apperrors.CodeChainGap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(&mockReservationService{
				resolveFunc: func(ctx context.Context, req *model.ResolveRequest) ([]*model.Slot, error) {
					return nil, tt.err
				},
			})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/chains/resolve", strings.NewReader(`{"anchor_slot_id":"a","required_count":2}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if body := decodeError(t, rec); body.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", body.Code, tt.wantCode)
			}
		})
	}
}

func TestReserve_CarriesCorrelationID(t *testing.T) {
	var gotCorrelation string
	router := newRouter(&mockReservationService{
		reserveFunc: func(ctx context.Context, req *model.ReservationRequest) (*model.Booking, error) {
			gotCorrelation = events.CorrelationID(ctx)
			return &model.Booking{ID: "bk1", SlotID: req.AnchorSlotID, LinkedSlotIDs: req.ChainSlotIDs, Status: model.BookingStatusPendingForm}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations",
		strings.NewReader(`{"anchor_slot_id":"a","chain_slot_ids":["b"],"service_type":"gel_extension"}`))
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-42"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotCorrelation != "req-42" {
		t.Errorf("correlation id = %q, want req-42", gotCorrelation)
	}
	var body struct {
		Data model.Booking `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Data.ID != "bk1" || len(body.Data.LinkedSlotIDs) != 1 {
		t.Errorf("unexpected booking %+v", body.Data)
	}
}

func TestReserve_RaceLostIs409(t *testing.T) {
	router := newRouter(&mockReservationService{
		reserveFunc: func(ctx context.Context, req *model.ReservationRequest) (*model.Booking, error) {
			return nil, apperrors.ReservationRaceLost()
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(`{"anchor_slot_id":"a","service_type":"manicure"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != apperrors.CodeReservationRaceLost {
		t.Errorf("code = %s", body.Code)
	}
}

func TestReserve_RejectsMalformedBody(t *testing.T) {
	router := newRouter(&mockReservationService{
		reserveFunc: func(ctx context.Context, req *model.ReservationRequest) (*model.Booking, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	})

	for _, body := range []string{"", `{"anchor_slot_id":`, `{"anchor_slot_id":"a","slots":3}`} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestBookingLifecycleRoutes(t *testing.T) {
	var calls []string
	booking := func(id, status string) *model.Booking {
		return &model.Booking{ID: id, Status: status}
	}
	router := newRouter(&mockReservationService{
		getFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			calls = append(calls, "get:"+id)
			return booking(id, model.BookingStatusPendingForm), nil
		},
		releaseFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			calls = append(calls, "release:"+id)
			return booking(id, model.BookingStatusCancelled), nil
		},
		cancelFunc: func(ctx context.Context, id string, req *model.CancelRequest) (*model.Booking, error) {
			calls = append(calls, "cancel:"+id)
			if !req.ReleaseSlots {
				t.Errorf("release_slots not decoded")
			}
			return booking(id, model.BookingStatusCancelled), nil
		},
		advanceFunc: func(ctx context.Context, id string, req *model.AdvanceRequest) (*model.Booking, error) {
			calls = append(calls, "advance:"+id+":"+req.Status)
			return booking(id, req.Status), nil
		},
	})

	requests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/v1/bookings/id/b1", ""},
		{http.MethodPost, "/api/v1/bookings/id/b1/release", ""},
		{http.MethodPost, "/api/v1/bookings/id/b1/cancel", `{"release_slots":true}`},
		{http.MethodPost, "/api/v1/bookings/id/b1/advance", `{"status":"pending_payment"}`},
	}
	for _, r := range requests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(r.method, r.path, strings.NewReader(r.body)))
		if rec.Code != http.StatusOK {
			t.Errorf("%s %s: expected 200, got %d: %s", r.method, r.path, rec.Code, rec.Body.String())
		}
	}

	want := "[get:b1 release:b1 cancel:b1 advance:b1:pending_payment]"
	if got := strings.Join(calls, " "); "["+got+"]" != want {
		t.Errorf("calls = [%s], want %s", got, want)
	}
}

func TestCancel_InvalidTransitionIs409(t *testing.T) {
	router := newRouter(&mockReservationService{
		cancelFunc: func(ctx context.Context, id string, req *model.CancelRequest) (*model.Booking, error) {
			return nil, apperrors.InvalidTransition("booking", model.BookingStatusCancelled, model.BookingStatusCancelled)
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bookings/id/b1/cancel", strings.NewReader(`{}`)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}
