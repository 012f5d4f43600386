package order_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-canteen/internal/logger"
	"ms-canteen/internal/models"
	"ms-canteen/internal/order"
	"ms-canteen/internal/order/db"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	OrderService *order.OrderService
	Logger       *logger.Logger
}

// Checkout accepts a cart and returns the hosted checkout session id the
// client redirects to.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req models.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Checkout: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	sessionID, err := h.OrderService.Checkout(r.Context(), req)
	if err != nil {
		if errors.Is(err, order.ErrValidation) {
			h.Logger.Warn("API", fmt.Sprintf("Checkout: rejected cart: %v", err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("Checkout: failed to create session: %v", err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(models.CheckoutResponse{ID: sessionID}); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Checkout: failed to encode response: %v", err))
	}
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	orderData, err := h.OrderService.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, db.ErrOrderNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("GetOrder: %v", err))
		http.Error(w, "Failed to retrieve order", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(orderData); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetOrder: failed to encode response: %v", err))
	}
}

// OrderQueue lists a stall's orders, optionally filtered by status. Backs the
// admin ongoing/completed queue views.
func (h *Handler) OrderQueue(w http.ResponseWriter, r *http.Request) {
	stallID := r.URL.Query().Get("stallId")
	status := r.URL.Query().Get("status")

	if stallID == "" {
		http.Error(w, "stallId is required", http.StatusBadRequest)
		return
	}

	orders, err := h.OrderService.OrderQueue(r.Context(), stallID, status)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("OrderQueue: %v", err))
		http.Error(w, "Failed to retrieve orders", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(orders); err != nil {
		h.Logger.Error("API", fmt.Sprintf("OrderQueue: failed to encode response: %v", err))
	}
}

// TransactionHistory lists a customer's past orders, newest first.
func (h *Handler) TransactionHistory(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	orders, err := h.OrderService.TransactionHistory(r.Context(), email)
	if err != nil {
		if errors.Is(err, order.ErrValidation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("TransactionHistory: %v", err))
		http.Error(w, "Failed to retrieve orders", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(orders); err != nil {
		h.Logger.Error("API", fmt.Sprintf("TransactionHistory: failed to encode response: %v", err))
	}
}
