package db

import (
	"context"
	"log"

	"ms-canteen/internal/models"

	"github.com/uptrace/bun"
)

func Migrate(bunDB *bun.DB) {
	ctx := context.Background()

	tables := []interface{}{(*models.Order)(nil), (*models.FoodItem)(nil)}
	for _, m := range tables {
		_, err := bunDB.NewCreateTable().Model(m).IfNotExists().Exec(ctx)
		if err != nil {
			log.Fatalf("create table failed for %T: %v", m, err)
		}
	}

	log.Println("orders and food_items tables ready")
}
