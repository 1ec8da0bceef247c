package handler

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"nailbook/internal/reservations/events"
	"nailbook/internal/reservations/service"
	httputil "nailbook/pkg/http"
	"nailbook/pkg/logger"
	"nailbook/pkg/middleware"
	"nailbook/pkg/model"
)

type ReservationHandler struct {
	service service.ReservationService
	log     *logger.Logger
}

func NewReservationHandler(service service.ReservationService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log,
	}
}

type chainResponse struct {
	Chain []*model.Slot `json:"chain"`
}

func (h *ReservationHandler) GetAvailability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	from, err := httputil.QueryDate(r, "from_date")
	if err != nil {
		h.writeError(w, "GetAvailability", err)
		return
	}

	avail, err := h.service.GetAvailability(r.Context(), httputil.OptionalQuery(r, "resource_id"), from)
	if err != nil {
		h.writeError(w, "GetAvailability", err)
		return
	}

	if err := httputil.WriteSuccess(w, avail); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAvailability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) ResolveChain(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ResolveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "ResolveChain", err)
		return
	}

	chain, err := h.service.ResolveChain(r.Context(), &req)
	if err != nil {
		h.writeError(w, "ResolveChain", err)
		return
	}

	if err := httputil.WriteSuccess(w, chainResponse{Chain: chain}); err != nil {
		h.log.Error("failed to write success response", "handler", "ResolveChain", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) Reserve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ReservationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Reserve", err)
		return
	}

	booking, err := h.service.Reserve(correlated(r), &req)
	if err != nil {
		h.writeError(w, "Reserve", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Reserve", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) GetBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetBooking(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetBooking", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetBooking", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) Release(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Release(correlated(r), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Release", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Release", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.CancelRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	booking, err := h.service.Cancel(correlated(r), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) Advance(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.AdvanceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Advance", err)
		return
	}

	booking, err := h.service.Advance(correlated(r), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Advance", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Advance", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/availability", h.GetAvailability)
	router.POST("/api/v1/chains/resolve", h.ResolveChain)
	router.POST("/api/v1/reservations", h.Reserve)
	router.GET("/api/v1/bookings/id/:id", h.GetBooking)
	router.POST("/api/v1/bookings/id/:id/release", h.Release)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)
	router.POST("/api/v1/bookings/id/:id/advance", h.Advance)
}

// correlated tags booking events published for this request with its request id.
func correlated(r *http.Request) context.Context {
	return events.WithCorrelationID(r.Context(), middleware.RequestID(r.Context()))
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}
