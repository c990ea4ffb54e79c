package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/queueline/queueline-backend/internal/config"
	"github.com/queueline/queueline-backend/internal/db"
	"github.com/queueline/queueline-backend/internal/model"
)

type seedQueue struct {
	Name   string
	Status string
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() (err error) {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := gdb.AutoMigrate(&model.Queue{}, &model.QueueEntry{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("sql db: %w", err)
	}

	queues := buildSeedQueues()

	canSeed, err := shouldSeed(ctx, sqlDB)
	if err != nil {
		return err
	}
	if !canSeed {
		log.Printf("queues already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM queue_entries`); err != nil {
		return fmt.Errorf("clear queue entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM queues`); err != nil {
		return fmt.Errorf("clear queues: %w", err)
	}

	for _, q := range queues {
		if err := insertQueue(ctx, tx, q); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	log.Printf("seeded %d queues", len(queues))
	return nil
}

func buildSeedQueues() []seedQueue {
	return []seedQueue{
		{Name: "窓口1（住民票・印鑑証明）", Status: model.QueueOpen},
		{Name: "窓口2（転入・転出届）", Status: model.QueueOpen},
		{Name: "窓口3（国民健康保険）", Status: model.QueueOpen},
		{Name: "窓口4（税務相談）", Status: model.QueueClosed},
		{Name: "相談カウンター", Status: model.QueueOpen},
	}
}

func insertQueue(ctx context.Context, tx *sql.Tx, q seedQueue) error {
	name := strings.TrimSpace(q.Name)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO queues (name, status) VALUES (?, ?)`,
		name, q.Status,
	); err != nil {
		return fmt.Errorf("insert queue %q: %w", name, err)
	}
	return nil
}

func shouldSeed(ctx context.Context, db *sql.DB) (bool, error) {
	var cnt int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queues`).Scan(&cnt); err != nil {
		return false, fmt.Errorf("count queues: %w", err)
	}
	if cnt == 0 {
		return true, nil
	}
	force := os.Getenv("FORCE_SEED")
	return strings.EqualFold(force, "true"), nil
}
