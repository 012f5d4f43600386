package order_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-canteen/internal/models"
	"ms-canteen/internal/order"
	"ms-canteen/internal/order/db"

	"github.com/go-chi/chi/v5"
)

// Redeem validates a scanned QR credential and marks the order served.
// Exactly one scan per credential ever succeeds; a duplicate gets 409
// "already used" so the scanning UI can tell it apart from a bad code.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req models.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	ord, err := h.OrderService.Redeem(r.Context(), req.QRCode)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, db.ErrOrderNotFound):
			writeJSONError(w, "QR Code not found", http.StatusNotFound)
		case errors.Is(err, db.ErrAlreadyRedeemed):
			writeJSONError(w, "already used", http.StatusConflict)
		default:
			h.Logger.Error("API", fmt.Sprintf("Redeem: %v", err))
			http.Error(w, "Failed to redeem order", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := models.RedeemResponse{Success: true, OrderID: ord.OrderID, StallID: ord.StallID}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Redeem: failed to encode response: %v", err))
	}
}

// QRImage serves the stored QR PNG for a credential token. This is the
// public read URL for the customer's digital receipt.
func (h *Handler) QRImage(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	img, err := h.OrderService.QRImage(r.Context(), token)
	if err != nil {
		if errors.Is(err, db.ErrOrderNotFound) {
			http.Error(w, "QR Code not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("QRImage: %v", err))
		http.Error(w, "Failed to load QR image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(img); err != nil {
		h.Logger.Error("API", fmt.Sprintf("QRImage: failed to write image: %v", err))
	}
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
