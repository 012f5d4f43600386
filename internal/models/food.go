package models

import (
	"time"

	"github.com/uptrace/bun"
)

type FoodItem struct {
	bun.BaseModel `bun:"table:food_items"`

	ItemID    string    `bun:"item_id,pk" json:"item_id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Price     float64   `bun:"price,notnull" json:"price"`
	StallID   string    `bun:"stall_id,notnull" json:"stall_id"`
	Available bool      `bun:"available" json:"available"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

type FoodItemRequest struct {
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	StallID   string  `json:"stall_id"`
	Available *bool   `json:"available,omitempty"`
}
