package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"dotogether/handlers"
	"dotogether/session"
	"dotogether/store"
)

// Config collects everything main needs from the environment. The accounts
// and tasks databases are independent datasets; both DSNs fall back to
// DATABASE_URL when a single database serves both.
type Config struct {
	AccountsDatabaseURL string
	TasksDatabaseURL    string
	RedisURL            string
	AppSecret           string
	Addr                string
}

func loadConfig() Config {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			log.Info("no .env file found, continuing")
		}
	}

	cfg := Config{
		AccountsDatabaseURL: os.Getenv("ACCOUNTS_DATABASE_URL"),
		TasksDatabaseURL:    os.Getenv("TASKS_DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		AppSecret:           os.Getenv("APP_SECRET"),
		Addr:                os.Getenv("ADDR"),
	}

	if fallback := os.Getenv("DATABASE_URL"); fallback != "" {
		if cfg.AccountsDatabaseURL == "" {
			cfg.AccountsDatabaseURL = fallback
		}
		if cfg.TasksDatabaseURL == "" {
			cfg.TasksDatabaseURL = fallback
		}
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	switch {
	case cfg.AccountsDatabaseURL == "" || cfg.TasksDatabaseURL == "":
		log.Fatal("missing database config (ACCOUNTS_DATABASE_URL / TASKS_DATABASE_URL / DATABASE_URL)")
	case cfg.RedisURL == "":
		log.Fatal("missing REDIS_URL")
	case cfg.AppSecret == "":
		log.Fatal("missing APP_SECRET")
	}

	return cfg
}

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	cfg := loadConfig()
	log.WithField("environment", os.Getenv("APP_ENV")).Info("starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	accountsPool, err := store.OpenDB(ctx, cfg.AccountsDatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to accounts database: %v", err)
	}
	defer accountsPool.Close()

	tasksPool, err := store.OpenDB(ctx, cfg.TasksDatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to tasks database: %v", err)
	}
	defer tasksPool.Close()

	if err := store.MigrateAccounts(ctx, accountsPool); err != nil {
		log.Fatalf("accounts migration: %v", err)
	}
	if err := store.MigrateTasks(ctx, tasksPool); err != nil {
		log.Fatalf("tasks migration: %v", err)
	}

	redisClient, err := session.OpenRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	srv := handlers.New(
		store.NewAccountStore(accountsPool),
		store.NewTaskStore(tasksPool),
		session.NewManager(redisClient, cfg.AppSecret),
		log.StandardLogger(),
	)

	log.WithField("addr", cfg.Addr).Info("listening")
	log.Fatal(http.ListenAndServe(cfg.Addr, srv.Routes()))
}
