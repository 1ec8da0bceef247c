package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"nailbook/internal/blockeddates/service"
	httputil "nailbook/pkg/http"
	"nailbook/pkg/logger"
	"nailbook/pkg/model"
)

type BlockedDateHandler struct {
	service service.BlockedDateService
	log     *logger.Logger
}

func NewBlockedDateHandler(service service.BlockedDateService, log *logger.Logger) *BlockedDateHandler {
	return &BlockedDateHandler{
		service: service,
		log:     log,
	}
}

func (h *BlockedDateHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BlockedDateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	bd, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, bd); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BlockedDateHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	from, err := httputil.QueryDate(r, "from")
	if err != nil {
		h.writeError(w, "List", err)
		return
	}
	to, err := httputil.QueryDate(r, "to")
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	records, err := h.service.List(r.Context(), from, to)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteList(w, records, len(records)); err != nil {
		h.log.Error("failed to write list response", "handler", "List", "operation", "WriteList", "error", err)
	}
}

func (h *BlockedDateHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BlockedDateHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BlockedDateHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/blocked-dates", h.Create)
	router.GET("/api/v1/blocked-dates", h.List)
	router.DELETE("/api/v1/blocked-dates/id/:id", h.Delete)
}
