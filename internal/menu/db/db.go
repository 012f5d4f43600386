package db

import (
	"context"
	"database/sql"
	"errors"

	"ms-canteen/internal/models"

	"github.com/uptrace/bun"
)

var ErrItemNotFound = errors.New("food item not found")

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateItem(ctx context.Context, item models.FoodItem) error {
	_, err := d.Bun.NewInsert().Model(&item).Exec(ctx)
	return err
}

func (d *DB) GetItemByID(ctx context.Context, id string) (*models.FoodItem, error) {
	var item models.FoodItem
	err := d.Bun.NewSelect().
		Model(&item).
		Where("item_id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (d *DB) UpdateItem(ctx context.Context, item models.FoodItem) error {
	res, err := d.Bun.NewUpdate().
		Model(&item).
		Column("name", "price", "available", "updated_at").
		Where("item_id = ?", item.ItemID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (d *DB) DeleteItem(ctx context.Context, id string) error {
	res, err := d.Bun.NewDelete().
		Model((*models.FoodItem)(nil)).
		Where("item_id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrItemNotFound
	}
	return nil
}

// ListByStall returns a stall's items; availableOnly narrows to what
// customers can currently order.
func (d *DB) ListByStall(ctx context.Context, stallID string, availableOnly bool) ([]models.FoodItem, error) {
	var items []models.FoodItem
	q := d.Bun.NewSelect().
		Model(&items).
		Where("stall_id = ?", stallID).
		Order("name ASC")
	if availableOnly {
		q = q.Where("available = ?", true)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.FoodItem{}
	}
	return items, nil
}
