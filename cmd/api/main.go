package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/queueline/queueline-backend/internal/config"
	"github.com/queueline/queueline-backend/internal/db"
	"github.com/queueline/queueline-backend/internal/model"
	"github.com/queueline/queueline-backend/internal/server"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}

	conn, err := db.Connect(cfg)
	if err != nil {
		log.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	if err := conn.AutoMigrate(
		&model.Queue{},
		&model.QueueEntry{},
		&model.Message{},
		&model.HiddenChat{},
		&model.Notification{},
		&model.AuditRecord{},
	); err != nil {
		log.Error("auto migrate failed", "error", err)
		os.Exit(1)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warn("redis unreachable, realtime fan-out is process-local", "error", err)
			rdb = nil
		}
	}

	srv := server.New(conn, rdb, cfg, log)
	srv.RunRealtime(context.Background())

	addr := ":" + cfg.Port
	log.Info("starting server", "addr", addr)
	if err := srv.Start(addr); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
