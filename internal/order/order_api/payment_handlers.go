package order_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ms-canteen/internal/order"
)

// StripeWebhook receives asynchronous payment notifications from Stripe.
// Always answers {received:true} on success so the provider stops retrying.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if err := h.OrderService.HandleStripeWebhook(r); err != nil {
		h.Logger.Error("API", fmt.Sprintf("StripeWebhook: %v", err))

		if webhookErr, ok := err.(*order.WebhookError); ok {
			http.Error(w, webhookErr.PublicError, webhookErr.StatusCode)
			return
		}
		http.Error(w, "Webhook processing error", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]bool{"received": true}); err != nil {
		h.Logger.Error("API", fmt.Sprintf("StripeWebhook: failed to encode response: %v", err))
	}
}
