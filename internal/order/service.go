package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"time"

	"ms-canteen/internal/kafka"
	"ms-canteen/internal/logger"
	"ms-canteen/internal/models"
	"ms-canteen/internal/order/db"
	"ms-canteen/internal/utils"
)

// ErrValidation marks bad cart input rejected before any external call.
var ErrValidation = errors.New("validation failed")

func isValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// totalTolerance absorbs float representation noise when comparing the
// client-declared total against the server-side recomputation.
const totalTolerance = 0.01

type DBLayer interface {
	CreateOrderIfAbsent(ctx context.Context, order models.Order) (bool, error)
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderBySession(ctx context.Context, sessionID string) (*models.Order, error)
	GetOrderByQRCode(ctx context.Context, qrCode string) (*models.Order, error)
	MarkPaidBySession(ctx context.Context, sessionID string) (bool, error)
	RedeemByQRCode(ctx context.Context, qrCode string) (*models.Order, error)
	ListByStallAndStatus(ctx context.Context, stallID, status string) ([]models.Order, error)
	ListByCustomer(ctx context.Context, email string) ([]models.Order, error)
}

// PaymentGateway fronts the hosted checkout provider. The concrete
// implementation lives in stripe.go; tests substitute a fake.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, order models.Order) (string, error)
	ParseEvent(payload []byte, signature string) (*CheckoutCompletedEvent, error)
}

// EventDedup filters repeated webhook deliveries.
type EventDedup interface {
	FirstDelivery(ctx context.Context, eventID string) (bool, error)
}

type KafkaPublisher interface {
	Publish(topic string, key string, value []byte) error
}

type QRGenerator interface {
	Encode(token string) ([]byte, error)
}

// CheckoutCompletedEvent is the provider notification reduced to what the
// confirmation path needs.
type CheckoutCompletedEvent struct {
	EventID       string
	SessionID     string
	OrderID       string
	StallID       string
	QRCode        string
	CustomerEmail string
	AmountTotal   float64
}

type OrderService struct {
	DB      DBLayer
	Gateway PaymentGateway
	Dedup   EventDedup
	Kafka   KafkaPublisher
	QR      QRGenerator
	Logger  *logger.Logger
}

func NewOrderService(dbLayer DBLayer, gateway PaymentGateway, dedup EventDedup, producer KafkaPublisher, qrGen QRGenerator, log *logger.Logger) *OrderService {
	return &OrderService{
		DB:      dbLayer,
		Gateway: gateway,
		Dedup:   dedup,
		Kafka:   producer,
		QR:      qrGen,
		Logger:  log,
	}
}

// ---------------- CHECKOUT INITIATION ----------------

// Checkout validates the cart, provisions the order record and its single-use
// QR credential, and opens a hosted checkout session. The returned id is the
// provider session id the client redirects to.
func (s *OrderService) Checkout(ctx context.Context, req models.CheckoutRequest) (string, error) {
	total, err := validateCart(req)
	if err != nil {
		return "", err
	}

	orderID := utils.GenerateOrderID()
	qrToken := utils.GenerateQRToken()

	qrImage, err := s.QR.Encode(qrToken)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR image: %w", err)
	}

	order := models.Order{
		OrderID:       orderID,
		CustomerEmail: req.CustomerEmail,
		StallID:       req.StallID,
		Items:         req.Items,
		TotalAmount:   total,
		OrderStatus:   models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusUnpaid,
		QRCode:        qrToken,
		QRImage:       qrImage,
		CreatedAt:     time.Now(),
	}

	sessionID, err := s.Gateway.CreateCheckoutSession(ctx, order)
	if err != nil {
		return "", fmt.Errorf("checkout session creation failed: %w", err)
	}
	order.SessionID = sessionID

	// Persist before returning control to the caller. If all attempts fail
	// the session is still returned: the webhook's create-if-absent path
	// reconciles the missing record once payment completes.
	if err := s.persistWithRetry(ctx, order); err != nil {
		s.Logger.Error("ORDER", fmt.Sprintf("Failed to persist order %s after retries: %v (webhook will reconcile)", orderID, err))
	} else {
		s.publish(kafka.TopicOrderCreated, order)
	}

	s.Logger.LogOrder("CREATE", orderID, fmt.Sprintf("stall=%s total=%.2f session=%s", order.StallID, total, sessionID))
	return sessionID, nil
}

func validateCart(req models.CheckoutRequest) (float64, error) {
	if len(req.Items) == 0 {
		return 0, fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	if req.StallID == "" {
		return 0, fmt.Errorf("%w: stall reference is required", ErrValidation)
	}
	if req.CustomerEmail != "" {
		if _, err := mail.ParseAddress(req.CustomerEmail); err != nil {
			return 0, fmt.Errorf("%w: invalid customer email", ErrValidation)
		}
	}

	var total float64
	for i, item := range req.Items {
		if item.Name == "" {
			return 0, fmt.Errorf("%w: item %d has no name", ErrValidation, i)
		}
		if item.Price < 0 {
			return 0, fmt.Errorf("%w: item %q has negative price", ErrValidation, item.Name)
		}
		if item.Quantity <= 0 {
			return 0, fmt.Errorf("%w: item %q has non-positive quantity", ErrValidation, item.Name)
		}
		total += item.Subtotal()
	}

	// The recomputed total is authoritative. A disagreeing client total is
	// rejected rather than silently replaced.
	if math.Abs(req.TotalAmount-total) > totalTolerance {
		return 0, fmt.Errorf("%w: declared total %.2f does not match item total %.2f", ErrValidation, req.TotalAmount, total)
	}

	return total, nil
}

func (s *OrderService) persistWithRetry(ctx context.Context, order models.Order) error {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		var created bool
		created, err = s.DB.CreateOrderIfAbsent(ctx, order)
		if err == nil {
			if !created {
				// The webhook beat us to it; nothing left to persist.
				s.Logger.LogOrder("CREATE", order.OrderID, "record already created by webhook")
			}
			return nil
		}
		s.Logger.Warn("ORDER", fmt.Sprintf("Persist attempt %d for order %s failed: %v", attempt, order.OrderID, err))
		time.Sleep(time.Duration(attempt) * 250 * time.Millisecond)
	}
	return err
}

// ---------------- PAYMENT CONFIRMATION ----------------

// ConfirmCheckoutCompleted applies one provider notification. Safe under
// at-least-once delivery: creation is insert-if-absent and the paid flip is
// conditional, so replays converge on the same final state.
func (s *OrderService) ConfirmCheckoutCompleted(ctx context.Context, ev CheckoutCompletedEvent) error {
	if ev.SessionID == "" {
		return fmt.Errorf("%w: notification has no session id", ErrValidation)
	}

	if s.Dedup != nil && ev.EventID != "" {
		first, err := s.Dedup.FirstDelivery(ctx, ev.EventID)
		if err != nil {
			s.Logger.Warn("WEBHOOK", fmt.Sprintf("Dedup unavailable for event %s: %v", ev.EventID, err))
		}
		if !first {
			s.Logger.LogPayment("DUPLICATE", ev.SessionID, "event already processed, no-op")
			return nil
		}
	}

	// Fallback creation point: if the initiator's persist step failed or has
	// not landed yet, the notification metadata is enough to materialise the
	// record. Items are not carried in metadata and stay empty on this path.
	if ev.OrderID != "" {
		order := models.Order{
			OrderID:       ev.OrderID,
			SessionID:     ev.SessionID,
			CustomerEmail: ev.CustomerEmail,
			StallID:       ev.StallID,
			Items:         []models.LineItem{},
			TotalAmount:   ev.AmountTotal,
			OrderStatus:   models.OrderStatusPending,
			PaymentStatus: models.PaymentStatusUnpaid,
			QRCode:        ev.QRCode,
			CreatedAt:     time.Now(),
		}
		if ev.QRCode != "" {
			if img, err := s.QR.Encode(ev.QRCode); err == nil {
				order.QRImage = img
			}
		}

		created, err := s.DB.CreateOrderIfAbsent(ctx, order)
		if err != nil {
			return fmt.Errorf("failed to reconcile order %s: %w", ev.OrderID, err)
		}
		if created {
			s.Logger.LogOrder("RECONCILE", ev.OrderID, "record created from webhook notification")
		}
	}

	transitioned, err := s.DB.MarkPaidBySession(ctx, ev.SessionID)
	if err != nil {
		return fmt.Errorf("failed to mark order paid for session %s: %w", ev.SessionID, err)
	}
	if !transitioned {
		s.Logger.LogPayment("CONFIRM", ev.SessionID, "already paid, no-op")
		return nil
	}

	s.Logger.LogPayment("CONFIRM", ev.SessionID, "payment confirmed")
	if ord, err := s.DB.GetOrderBySession(ctx, ev.SessionID); err == nil {
		s.publish(kafka.TopicOrderPaid, *ord)
	}
	return nil
}

// ---------------- REDEMPTION ----------------

// Redeem marks the order served for a scanned credential. At most one call
// per credential ever succeeds; losers of the race get db.ErrAlreadyRedeemed
// and unknown codes get db.ErrOrderNotFound.
func (s *OrderService) Redeem(ctx context.Context, qrCode string) (*models.Order, error) {
	if qrCode == "" {
		return nil, fmt.Errorf("%w: qr code is required", ErrValidation)
	}

	ord, err := s.DB.RedeemByQRCode(ctx, qrCode)
	if err != nil {
		return nil, err
	}

	s.Logger.LogRedemption(qrCode, fmt.Sprintf("order %s served", ord.OrderID))
	s.publish(kafka.TopicOrderServed, *ord)
	return ord, nil
}

// ---------------- QUERIES ----------------

func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.DB.GetOrderByID(ctx, id)
}

// QRImage returns the stored PNG for a credential token.
func (s *OrderService) QRImage(ctx context.Context, qrCode string) ([]byte, error) {
	ord, err := s.DB.GetOrderByQRCode(ctx, qrCode)
	if err != nil {
		return nil, err
	}
	if len(ord.QRImage) == 0 {
		return nil, db.ErrOrderNotFound
	}
	return ord.QRImage, nil
}

func (s *OrderService) OrderQueue(ctx context.Context, stallID, status string) ([]models.Order, error) {
	return s.DB.ListByStallAndStatus(ctx, stallID, status)
}

func (s *OrderService) TransactionHistory(ctx context.Context, email string) ([]models.Order, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: customer email is required", ErrValidation)
	}
	return s.DB.ListByCustomer(ctx, email)
}

func (s *OrderService) publish(topic string, ord models.Order) {
	if s.Kafka == nil {
		return
	}
	value, err := json.Marshal(ord)
	if err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to marshal order %s: %v", ord.OrderID, err))
		return
	}
	if err := s.Kafka.Publish(topic, ord.OrderID, value); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish %s for order %s: %v", topic, ord.OrderID, err))
	}
}
