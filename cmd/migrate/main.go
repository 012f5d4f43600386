package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-canteen/internal/config"
	"ms-canteen/internal/models"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, using environment variables")
	}
	cfg := config.Load()

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to open PostgreSQL: %v", err)
	}
	defer sqldb.Close()

	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	log.Println("Creating tables...")
	tables := []interface{}{(*models.Order)(nil), (*models.FoodItem)(nil)}
	for _, m := range tables {
		if _, err := bunDB.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			log.Fatalf("Failed to create table for %T: %v", m, err)
		}
	}

	log.Println("Seeding sample menu...")
	items := []models.FoodItem{
		{ItemID: "itm_sample_tea", Name: "Tea", Price: 20, StallID: "3", Available: true, CreatedAt: time.Now()},
		{ItemID: "itm_sample_bun", Name: "Bun", Price: 15, StallID: "3", Available: true, CreatedAt: time.Now()},
		{ItemID: "itm_sample_thali", Name: "Veg Thali", Price: 80, StallID: "1", Available: true, CreatedAt: time.Now()},
	}
	if _, err := bunDB.NewInsert().Model(&items).On("CONFLICT (item_id) DO NOTHING").Exec(ctx); err != nil {
		log.Fatalf("Seed insert failed: %v", err)
	}

	log.Println("Done.")
}
