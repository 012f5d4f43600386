package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ms-canteen/internal/models"

	"github.com/uptrace/bun"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrAlreadyRedeemed = errors.New("qr code already used")
	ErrDuplicateOrder  = errors.New("order already exists")
)

type DB struct {
	Bun *bun.DB
}

// ---------------- ORDERS ----------------

func (d *DB) CreateOrder(ctx context.Context, order models.Order) error {
	_, err := d.Bun.NewInsert().Model(&order).Exec(ctx)
	return err
}

// CreateOrderIfAbsent inserts the order unless a row with the same order id
// already exists. Returns true when this call created the row. The checkout
// initiator and the payment webhook both go through here, so whichever side
// wins the race creates the record and the other is a no-op.
func (d *DB) CreateOrderIfAbsent(ctx context.Context, order models.Order) (bool, error) {
	res, err := d.Bun.NewInsert().
		Model(&order).
		On("CONFLICT (order_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("order_id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (d *DB) GetOrderBySession(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("session_id = ?", sessionID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (d *DB) GetOrderByQRCode(ctx context.Context, qrCode string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("qr_code = ?", qrCode).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ---------------- CONDITIONAL TRANSITIONS ----------------

// MarkPaidBySession flips payment_status to paid for the order correlated to
// the checkout session. The guard on the current status makes webhook
// re-deliveries no-ops: the first delivery transitions, the rest report
// transitioned=false. ErrOrderNotFound means there is no row to flip at all.
func (d *DB) MarkPaidBySession(ctx context.Context, sessionID string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("payment_status = ?", models.PaymentStatusPaid).
		Where("session_id = ?", sessionID).
		Where("payment_status = ?", models.PaymentStatusUnpaid).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 1 {
		return true, nil
	}

	// No row flipped: either already paid (fine) or the order is missing.
	if _, err := d.GetOrderBySession(ctx, sessionID); err != nil {
		return false, err
	}
	return false, nil
}

// RedeemByQRCode performs the one-time pending -> served transition as a
// single conditional update. Concurrent scans of the same credential race on
// the WHERE clause; exactly one sees RowsAffected == 1, the rest get
// ErrAlreadyRedeemed. A plain read-then-write is not equivalent and must not
// replace this.
func (d *DB) RedeemByQRCode(ctx context.Context, qrCode string) (*models.Order, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("order_status = ?", models.OrderStatusServed).
		Set("redeemed_at = ?", time.Now()).
		Where("qr_code = ?", qrCode).
		Where("order_status != ?", models.OrderStatusServed).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		if _, err := d.GetOrderByQRCode(ctx, qrCode); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyRedeemed
	}

	return d.GetOrderByQRCode(ctx, qrCode)
}

// ---------------- QUERIES ----------------

func (d *DB) ListByStallAndStatus(ctx context.Context, stallID, status string) ([]models.Order, error) {
	var orders []models.Order
	q := d.Bun.NewSelect().
		Model(&orders).
		Where("stall_id = ?", stallID).
		Order("created_at ASC")
	if status != "" {
		q = q.Where("order_status = ?", status)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (d *DB) ListByCustomer(ctx context.Context, email string) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("customer_email = ?", email).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}
