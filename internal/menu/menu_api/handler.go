package menu_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-canteen/internal/logger"
	"ms-canteen/internal/menu"
	"ms-canteen/internal/menu/db"
	"ms-canteen/internal/models"
	"ms-canteen/internal/order"
	"ms-canteen/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	MenuService *menu.MenuService
	Logger      *logger.Logger
}

// StallMenu is the customer-facing listing: available items only.
func (h *Handler) StallMenu(w http.ResponseWriter, r *http.Request) {
	stallID := r.URL.Query().Get("stallId")

	items, err := h.MenuService.StallMenu(r.Context(), stallID)
	if err != nil {
		h.respondError(w, err, "Failed to load menu")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// StallInventory is the admin listing including unavailable items.
func (h *Handler) StallInventory(w http.ResponseWriter, r *http.Request) {
	stallID := r.URL.Query().Get("stallId")

	items, err := h.MenuService.StallInventory(r.Context(), stallID)
	if err != nil {
		h.respondError(w, err, "Failed to load inventory")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req models.FoodItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	item, err := h.MenuService.AddItem(r.Context(), req)
	if err != nil {
		h.respondError(w, err, "Failed to add item")
		return
	}

	h.writeJSON(w, http.StatusCreated, utils.SuccessResponse("Item added", item))
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")

	var req models.FoodItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	item, err := h.MenuService.UpdateItem(r.Context(), itemID, req)
	if err != nil {
		h.respondError(w, err, "Failed to update item")
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Item updated", item))
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")

	if err := h.MenuService.RemoveItem(r.Context(), itemID); err != nil {
		h.respondError(w, err, "Failed to delete item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error, publicMsg string) {
	switch {
	case errors.Is(err, order.ErrValidation):
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse(publicMsg, err.Error()))
	case errors.Is(err, db.ErrItemNotFound):
		h.writeJSON(w, http.StatusNotFound, utils.ErrorResponse(publicMsg, "item not found"))
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", publicMsg, err))
		h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse(publicMsg, "internal error"))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
