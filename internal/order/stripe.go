package order

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"ms-canteen/internal/config"
	"ms-canteen/internal/models"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// WebhookError carries both a safe public message and the logged detail.
type WebhookError struct {
	Category      string // "configuration", "validation", "processing"
	StatusCode    int
	PublicError   string
	InternalError string
	OriginalErr   error
}

func (e *WebhookError) Error() string {
	return e.InternalError
}

// StripeGateway implements PaymentGateway against Stripe hosted Checkout.
// Constructed once at startup and injected; no package-level client state
// beyond the API key the SDK requires.
type StripeGateway struct {
	cfg     config.StripeConfig
	baseURL string
}

func NewStripeGateway(cfg config.StripeConfig, baseURL string) *StripeGateway {
	stripe.Key = cfg.SecretKey
	return &StripeGateway{cfg: cfg, baseURL: baseURL}
}

// CreateCheckoutSession opens a hosted checkout session for the order.
// Metadata carries everything the webhook needs to recreate the record if
// the initiator's persist step never lands.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, order models.Order) (string, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(order.Items))
	for _, item := range order.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(g.cfg.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				// smallest currency unit (paise)
				UnitAmount: stripe.Int64(int64(item.Price * 100)),
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:         lineItems,
		SuccessURL:        stripe.String(g.baseURL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(g.baseURL + "/cancel"),
		ClientReferenceID: stripe.String(order.OrderID),
	}
	params.Context = ctx
	if order.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(order.CustomerEmail)
	}
	params.AddMetadata("order_id", order.OrderID)
	params.AddMetadata("stall_id", order.StallID)
	params.AddMetadata("qr_code", order.QRCode)
	params.AddMetadata("total_amount", strconv.FormatFloat(order.TotalAmount, 'f', 2, 64))

	sess, err := session.New(params)
	if err != nil {
		return "", err
	}
	return sess.ID, nil
}

// ParseEvent verifies the provider signature over the raw payload and
// extracts the confirmation fields. A nil event with nil error means the
// event type is not one this service acts on.
func (g *StripeGateway) ParseEvent(payload []byte, signature string) (*CheckoutCompletedEvent, error) {
	if g.cfg.WebhookSecret == "" {
		return nil, &WebhookError{
			Category:      "configuration",
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Webhook processing error",
			InternalError: "Stripe webhook secret is not configured",
		}
	}

	opts := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret, opts)
	if err != nil {
		return nil, &WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Webhook signature verification failed",
			InternalError: fmt.Sprintf("signature verification failed: %v", err),
			OriginalErr:   err,
		}
	}

	if event.Type != "checkout.session.completed" {
		return nil, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, &WebhookError{
			Category:      "processing",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid event data",
			InternalError: fmt.Sprintf("failed to unmarshal checkout session: %v", err),
			OriginalErr:   err,
		}
	}

	ev := &CheckoutCompletedEvent{
		EventID:       event.ID,
		SessionID:     cs.ID,
		OrderID:       cs.Metadata["order_id"],
		StallID:       cs.Metadata["stall_id"],
		QRCode:        cs.Metadata["qr_code"],
		CustomerEmail: cs.CustomerEmail,
		AmountTotal:   float64(cs.AmountTotal) / 100,
	}
	if raw, ok := cs.Metadata["total_amount"]; ok {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			ev.AmountTotal = parsed
		}
	}
	if ev.OrderID == "" && cs.ClientReferenceID != "" {
		ev.OrderID = cs.ClientReferenceID
	}
	return ev, nil
}

// HandleStripeWebhook processes one provider notification end to end.
func (s *OrderService) HandleStripeWebhook(r *http.Request) error {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return &WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid webhook payload",
			InternalError: fmt.Sprintf("failed to read webhook payload: %v", err),
			OriginalErr:   err,
		}
	}

	ev, err := s.Gateway.ParseEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if webhookErr, ok := err.(*WebhookError); ok && webhookErr.Category == "validation" {
			s.Logger.LogSecurity("WEBHOOK_SIGNATURE", webhookErr.InternalError)
		} else {
			s.Logger.Error("WEBHOOK", err.Error())
		}
		return err
	}
	if ev == nil {
		// Event type we don't act on; acknowledge so Stripe stops retrying.
		return nil
	}

	if err := s.ConfirmCheckoutCompleted(r.Context(), *ev); err != nil {
		if isValidation(err) {
			return &WebhookError{
				Category:      "processing",
				StatusCode:    http.StatusBadRequest,
				PublicError:   "Invalid notification payload",
				InternalError: err.Error(),
				OriginalErr:   err,
			}
		}
		return &WebhookError{
			Category:      "processing",
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Failed to process payment notification",
			InternalError: err.Error(),
			OriginalErr:   err,
		}
	}
	return nil
}
