package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"subscription-engine/internal/config"
	"subscription-engine/internal/domain/ports/repository"
	"subscription-engine/internal/infra/audit"
	pg "subscription-engine/internal/infra/db/postgres"
	"subscription-engine/internal/infra/logging"
	"subscription-engine/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS subscriptions (
    id                    UUID PRIMARY KEY,
    product_id            TEXT NOT NULL,
    user_id               TEXT NOT NULL,
    status                TEXT NOT NULL,
    frequency             TEXT NOT NULL,
    custom_interval_value INT,
    custom_interval_unit  TEXT,
    quantity              INT NOT NULL,
    unit_price            NUMERIC(12,2) NOT NULL,
    amount                NUMERIC(12,2) NOT NULL,
    start_date            DATE NOT NULL,
    anchor_date           DATE NOT NULL,
    next_delivery_date    DATE,
    version               BIGINT NOT NULL DEFAULT 1,
    created_at            TIMESTAMPTZ NOT NULL,
    updated_at            TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_subscriptions_user_id ON subscriptions (user_id);
CREATE INDEX IF NOT EXISTS idx_subscriptions_status  ON subscriptions (status);
`

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	fmt.Println("schema applied")

	repo := pg.NewPostgresSubscriptionRepo(pool)

	// If subscriptions already exist, do nothing.
	existing, err := repo.List(ctx, repository.ListFilter{Limit: 1})
	if err != nil {
		log.Fatalf("list subscriptions: %v", err)
	}
	if len(existing) > 0 {
		fmt.Println("subscriptions already present. No changes.")
		return
	}

	pricing, err := usecase.NewPricingCalculator(nil)
	if err != nil {
		log.Fatalf("pricing: %v", err)
	}
	logger := logging.New(cfg.Log, true)
	subUC := usecase.NewSubscriptionUseCase(repo, pricing, audit.NewLogRecorder(logger))

	today := time.Now().UTC()
	seed := []usecase.CreateParams{
		{ProductID: "coffee-beans-1kg", UserID: "demo-user-1", UnitPrice: decimal.NewFromInt(24), Quantity: 2, Frequency: "weekly", StartDate: today},
		{ProductID: "protein-box", UserID: "demo-user-1", UnitPrice: decimal.NewFromInt(55), Quantity: 1, Frequency: "monthly", StartDate: today},
		{ProductID: "dog-food-12kg", UserID: "demo-user-2", UnitPrice: decimal.NewFromInt(80), Quantity: 1, Frequency: "quarterly", StartDate: today},
	}
	for _, p := range seed {
		sub, err := subUC.Create(ctx, p)
		if err != nil {
			log.Fatalf("create subscription %q: %v", p.ProductID, err)
		}
		fmt.Printf("seeded: %s (id=%s, amount=%s, next=%s)\n",
			sub.ProductID, sub.ID, sub.Amount.StringFixed(2), sub.NextDeliveryDate.Format("2006-01-02"))
	}

	fmt.Println("✅ Seeding complete.")
}
