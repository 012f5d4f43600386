package order_api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ms-canteen/internal/logger"
	"ms-canteen/internal/models"
	"ms-canteen/internal/order"
	"ms-canteen/internal/order/db"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDB implements order.DBLayer with overridable behavior per test.
type stubDB struct {
	createIfAbsent func(ctx context.Context, ord models.Order) (bool, error)
	getByID        func(ctx context.Context, id string) (*models.Order, error)
	getBySession   func(ctx context.Context, sessionID string) (*models.Order, error)
	getByQRCode    func(ctx context.Context, qrCode string) (*models.Order, error)
	markPaid       func(ctx context.Context, sessionID string) (bool, error)
	redeem         func(ctx context.Context, qrCode string) (*models.Order, error)
	listByStall    func(ctx context.Context, stallID, status string) ([]models.Order, error)
	listByCustomer func(ctx context.Context, email string) ([]models.Order, error)
}

func (s *stubDB) CreateOrderIfAbsent(ctx context.Context, ord models.Order) (bool, error) {
	if s.createIfAbsent == nil {
		return true, nil
	}
	return s.createIfAbsent(ctx, ord)
}

func (s *stubDB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	if s.getByID == nil {
		return nil, db.ErrOrderNotFound
	}
	return s.getByID(ctx, id)
}

func (s *stubDB) GetOrderBySession(ctx context.Context, sessionID string) (*models.Order, error) {
	if s.getBySession == nil {
		return nil, db.ErrOrderNotFound
	}
	return s.getBySession(ctx, sessionID)
}

func (s *stubDB) GetOrderByQRCode(ctx context.Context, qrCode string) (*models.Order, error) {
	if s.getByQRCode == nil {
		return nil, db.ErrOrderNotFound
	}
	return s.getByQRCode(ctx, qrCode)
}

func (s *stubDB) MarkPaidBySession(ctx context.Context, sessionID string) (bool, error) {
	if s.markPaid == nil {
		return true, nil
	}
	return s.markPaid(ctx, sessionID)
}

func (s *stubDB) RedeemByQRCode(ctx context.Context, qrCode string) (*models.Order, error) {
	if s.redeem == nil {
		return nil, db.ErrOrderNotFound
	}
	return s.redeem(ctx, qrCode)
}

func (s *stubDB) ListByStallAndStatus(ctx context.Context, stallID, status string) ([]models.Order, error) {
	if s.listByStall == nil {
		return []models.Order{}, nil
	}
	return s.listByStall(ctx, stallID, status)
}

func (s *stubDB) ListByCustomer(ctx context.Context, email string) ([]models.Order, error) {
	if s.listByCustomer == nil {
		return []models.Order{}, nil
	}
	return s.listByCustomer(ctx, email)
}

type stubGateway struct {
	createSession func(ctx context.Context, ord models.Order) (string, error)
	parseEvent    func(payload []byte, signature string) (*order.CheckoutCompletedEvent, error)
}

func (s *stubGateway) CreateCheckoutSession(ctx context.Context, ord models.Order) (string, error) {
	if s.createSession == nil {
		return "cs_test_123", nil
	}
	return s.createSession(ctx, ord)
}

func (s *stubGateway) ParseEvent(payload []byte, signature string) (*order.CheckoutCompletedEvent, error) {
	if s.parseEvent == nil {
		return nil, nil
	}
	return s.parseEvent(payload, signature)
}

type stubQR struct{}

func (stubQR) Encode(token string) ([]byte, error) {
	return []byte("png-bytes"), nil
}

func newTestHandler(dbLayer *stubDB, gateway *stubGateway) *Handler {
	if dbLayer == nil {
		dbLayer = &stubDB{}
	}
	if gateway == nil {
		gateway = &stubGateway{}
	}
	log := &logger.Logger{}
	svc := order.NewOrderService(dbLayer, gateway, nil, nil, stubQR{}, log)
	return &Handler{OrderService: svc, Logger: log}
}

// ---------------- Checkout ----------------

func TestCheckoutHandlerSuccess(t *testing.T) {
	h := newTestHandler(nil, nil)

	body := `{"items":[{"name":"Tea","price":20,"quantity":2},{"name":"Bun","price":15,"quantity":1}],"totalAmount":55,"stallId":"3","customerEmail":"alice@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Checkout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.CheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cs_test_123", resp.ID)
}

func TestCheckoutHandlerBadJSON(t *testing.T) {
	h := newTestHandler(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.Checkout(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutHandlerRejectsBadCart(t *testing.T) {
	h := newTestHandler(nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"empty cart", `{"items":[],"totalAmount":0,"stallId":"3"}`},
		{"total mismatch", `{"items":[{"name":"Tea","price":20,"quantity":2}],"totalAmount":999,"stallId":"3"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			h.Checkout(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

// ---------------- Redemption ----------------

func redeemVia(t *testing.T, h *Handler, qrCode string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(models.RedeemRequest{QRCode: qrCode})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/qrcode", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Redeem(rec, req)
	return rec
}

func TestRedeemHandlerSuccess(t *testing.T) {
	served := &models.Order{OrderID: "ord_abc", StallID: "3", OrderStatus: models.OrderStatusServed}
	h := newTestHandler(&stubDB{
		redeem: func(ctx context.Context, qrCode string) (*models.Order, error) {
			return served, nil
		},
	}, nil)

	rec := redeemVia(t, h, "qr_valid")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.RedeemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "ord_abc", resp.OrderID)
	assert.Equal(t, "3", resp.StallID)
}

func TestRedeemHandlerUnknownCode(t *testing.T) {
	h := newTestHandler(&stubDB{
		redeem: func(ctx context.Context, qrCode string) (*models.Order, error) {
			return nil, db.ErrOrderNotFound
		},
	}, nil)

	rec := redeemVia(t, h, "qr_unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "QR Code not found", resp["error"])
}

func TestRedeemHandlerAlreadyUsed(t *testing.T) {
	h := newTestHandler(&stubDB{
		redeem: func(ctx context.Context, qrCode string) (*models.Order, error) {
			return nil, db.ErrAlreadyRedeemed
		},
	}, nil)

	rec := redeemVia(t, h, "qr_spent")
	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "already used", resp["error"])
}

func TestRedeemHandlerEmptyCode(t *testing.T) {
	h := newTestHandler(nil, nil)

	rec := redeemVia(t, h, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---------------- QR image ----------------

func TestQRImageHandler(t *testing.T) {
	h := newTestHandler(&stubDB{
		getByQRCode: func(ctx context.Context, qrCode string) (*models.Order, error) {
			if qrCode == "qr_known" {
				return &models.Order{QRCode: qrCode, QRImage: []byte("png-bytes")}, nil
			}
			return nil, db.ErrOrderNotFound
		},
	}, nil)

	r := chi.NewRouter()
	r.Get("/api/qrcode/{token}", h.QRImage)

	req := httptest.NewRequest(http.MethodGet, "/api/qrcode/qr_known", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, []byte("png-bytes"), rec.Body.Bytes())

	req = httptest.NewRequest(http.MethodGet, "/api/qrcode/qr_other", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---------------- Order queries ----------------

func TestGetOrderHandler(t *testing.T) {
	stored := &models.Order{OrderID: "ord_abc", StallID: "3", TotalAmount: 55}
	h := newTestHandler(&stubDB{
		getByID: func(ctx context.Context, id string) (*models.Order, error) {
			if id == "ord_abc" {
				return stored, nil
			}
			return nil, db.ErrOrderNotFound
		},
	}, nil)

	r := chi.NewRouter()
	r.Get("/api/order/{orderId}", h.GetOrder)

	req := httptest.NewRequest(http.MethodGet, "/api/order/ord_abc", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ord_abc", got.OrderID)

	req = httptest.NewRequest(http.MethodGet, "/api/order/ord_missing", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderQueueHandlerRequiresStall(t *testing.T) {
	h := newTestHandler(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/order/queue", nil)
	rec := httptest.NewRecorder()
	h.OrderQueue(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderQueueHandler(t *testing.T) {
	h := newTestHandler(&stubDB{
		listByStall: func(ctx context.Context, stallID, status string) ([]models.Order, error) {
			assert.Equal(t, "3", stallID)
			assert.Equal(t, models.OrderStatusPending, status)
			return []models.Order{{OrderID: "ord_1"}, {OrderID: "ord_2"}}, nil
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/order/queue?stallId=3&status=pending", nil)
	rec := httptest.NewRecorder()
	h.OrderQueue(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var orders []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	assert.Len(t, orders, 2)
}

// ---------------- Webhook ----------------

func TestStripeWebhookHandlerSuccess(t *testing.T) {
	paid := &models.Order{OrderID: "ord_abc", SessionID: "cs_test_123"}
	h := newTestHandler(&stubDB{
		getBySession: func(ctx context.Context, sessionID string) (*models.Order, error) {
			return paid, nil
		},
	}, &stubGateway{
		parseEvent: func(payload []byte, signature string) (*order.CheckoutCompletedEvent, error) {
			return &order.CheckoutCompletedEvent{
				EventID:   "evt_1",
				SessionID: "cs_test_123",
				OrderID:   "ord_abc",
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.StripeWebhook(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp["received"])
}

func TestStripeWebhookHandlerIgnoredEventType(t *testing.T) {
	// nil event, nil error: acknowledged without touching the database.
	h := newTestHandler(nil, &stubGateway{
		parseEvent: func(payload []byte, signature string) (*order.CheckoutCompletedEvent, error) {
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.StripeWebhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStripeWebhookHandlerBadSignature(t *testing.T) {
	h := newTestHandler(nil, &stubGateway{
		parseEvent: func(payload []byte, signature string) (*order.CheckoutCompletedEvent, error) {
			return nil, &order.WebhookError{
				Category:      "validation",
				StatusCode:    http.StatusBadRequest,
				PublicError:   "Webhook signature verification failed",
				InternalError: "signature verification failed",
			}
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.StripeWebhook(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "signature verification failed")
}
