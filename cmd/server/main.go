package main // Entry point package

import (
	"log"

	"github.com/labstack/echo/v4"

	"github.com/notehub/accounts/internal/cache"
	"github.com/notehub/accounts/internal/config"
	"github.com/notehub/accounts/internal/database"
	"github.com/notehub/accounts/internal/handler"
	"github.com/notehub/accounts/internal/lockout"
	"github.com/notehub/accounts/internal/queue"
	"github.com/notehub/accounts/internal/repository"
	"github.com/notehub/accounts/internal/router"
	audit "github.com/notehub/accounts/internal/service"
	"github.com/notehub/accounts/internal/view"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	userRepo := repository.NewUserRepo(db)
	sessionRepo := repository.NewSessionRepo(db)

	// Redis is optional: without it the failure counters and the detail
	// cache run in-process, which is fine for a single instance.
	rdb := config.NewRedisClient()

	lockCfg := config.LoadLockoutConfig()
	var tracker lockout.Tracker
	if rdb != nil {
		tracker = lockout.NewRedisTracker(lockCfg, rdb)
	} else {
		log.Printf("redis unavailable, using in-process lockout tracker")
		tracker = lockout.NewMemoryTracker(lockCfg)
	}

	cacheCfg := config.LoadDetailCacheConfig()
	var store cache.Store
	switch {
	case !cacheCfg.Enabled:
		store = nil // read through
	case rdb != nil:
		store = cache.NewRedisStore(cacheCfg, rdb)
	default:
		store = cache.NewMemoryStore(cacheCfg)
	}
	details := cache.NewUserDetails(userRepo, store)

	// Audit trail consumer runs for the life of the process and
	// reconnects on its own.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	userHandler := handler.NewUserHandler(cfg, userRepo, sessionRepo, tracker, details, audit.New())

	e := echo.New()
	renderer, err := view.NewRenderer()
	if err != nil {
		log.Fatalf("parse templates: %v", err)
	}
	e.Renderer = renderer

	router.RegisterRoutes(e)
	router.RegisterUser(e, userHandler, cfg.SessionSecret, sessionRepo)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
