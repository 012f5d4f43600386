package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Order statuses. Transitions are one-way: pending -> served.
const (
	OrderStatusPending = "pending"
	OrderStatusServed  = "served"
)

// Payment statuses.
const (
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

// LineItem is one cart entry. Insertion order is display order.
type LineItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

func (li LineItem) Subtotal() float64 {
	return li.Price * float64(li.Quantity)
}

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID       string     `bun:"order_id,pk" json:"order_id"`
	SessionID     string     `bun:"session_id,unique" json:"session_id"`
	CustomerEmail string     `bun:"customer_email" json:"customer_email"`
	StallID       string     `bun:"stall_id,notnull" json:"stall_id"`
	Items         []LineItem `bun:"items,type:jsonb" json:"items"`
	TotalAmount   float64    `bun:"total_amount,notnull" json:"total_amount"`
	OrderStatus   string     `bun:"order_status,notnull" json:"order_status"`
	PaymentStatus string     `bun:"payment_status,notnull" json:"payment_status"`
	QRCode        string     `bun:"qr_code,unique" json:"qr_code"`
	QRImage       []byte     `bun:"qr_image" json:"-"`
	CreatedAt     time.Time  `bun:"created_at,notnull" json:"created_at"`
	RedeemedAt    time.Time  `bun:"redeemed_at,nullzero" json:"redeemed_at,omitempty"`
}

// CheckoutRequest mirrors the customer cart submission.
type CheckoutRequest struct {
	Items         []LineItem `json:"items"`
	TotalAmount   float64    `json:"totalAmount"`
	StallID       string     `json:"stallId"`
	CustomerEmail string     `json:"customerEmail"`
}

type CheckoutResponse struct {
	ID string `json:"id"`
}

type RedeemRequest struct {
	QRCode string `json:"qrCode"`
}

type RedeemResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id,omitempty"`
	StallID string `json:"stall_id,omitempty"`
}
