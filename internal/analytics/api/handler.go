package analytics_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"ms-canteen/internal/analytics"
	"ms-canteen/internal/logger"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(service *analytics.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/stall/{stallId}", h.StallSummary)
		r.Get("/stall/{stallId}/top-items", h.TopItems)
	})
}

func (h *Handler) StallSummary(w http.ResponseWriter, r *http.Request) {
	stallID := chi.URLParam(r, "stallId")

	summary, err := h.Service.StallSummary(r.Context(), stallID)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("StallSummary: %v", err))
		http.Error(w, "Failed to compute stall summary", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func (h *Handler) TopItems(w http.ResponseWriter, r *http.Request) {
	stallID := chi.URLParam(r, "stallId")

	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	items, err := h.Service.TopItems(r.Context(), stallID, limit)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("TopItems: %v", err))
		http.Error(w, "Failed to compute top items", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}
