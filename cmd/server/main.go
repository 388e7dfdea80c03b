package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/payment-workflow/internal/config"
	"github.com/iliyamo/payment-workflow/internal/database"
	"github.com/iliyamo/payment-workflow/internal/handler"
	"github.com/iliyamo/payment-workflow/internal/middleware"
	"github.com/iliyamo/payment-workflow/internal/queue"
	"github.com/iliyamo/payment-workflow/internal/repository"
	"github.com/iliyamo/payment-workflow/internal/router"
)

func main() {
	// Load .env when present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	tokens := repository.NewTokenRepo(db)
	payments := repository.NewPaymentRepo(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := database.SeedDefaultRoles(ctx, roles); err != nil {
		cancel()
		log.Fatalf("seed roles: %v", err)
	}
	cancel()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable: rate limiting and response caching disabled")
	}

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	cacheCfg := config.LoadCacheConfig()
	router.RegisterRoutes(e, router.Deps{
		Cfg:      cfg,
		Users:    users,
		Roles:    roles,
		Auth:     handler.NewAuthHandler(cfg, users, roles, tokens),
		User:     handler.NewUserHandler(users, roles, tokens),
		Role:     handler.NewRoleHandler(roles, users, rdb, cacheCfg),
		Payment:  handler.NewPaymentHandler(payments, queue.NewPublisher()),
		Redis:    rdb,
		CacheCfg: cacheCfg,
	})

	// Consume settled-payment events in the background; the consumer
	// reconnects on its own and never brings the server down.
	go func() {
		if err := queue.StartPaymentConsumer(); err != nil {
			log.Printf("payment-consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
