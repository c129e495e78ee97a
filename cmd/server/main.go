package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/ordelia/floorplan-reservation/internal/config"
	"github.com/ordelia/floorplan-reservation/internal/database"
	"github.com/ordelia/floorplan-reservation/internal/floor"
	"github.com/ordelia/floorplan-reservation/internal/handler"
	"github.com/ordelia/floorplan-reservation/internal/middleware"
	"github.com/ordelia/floorplan-reservation/internal/queue"
	"github.com/ordelia/floorplan-reservation/internal/repository"
	"github.com/ordelia/floorplan-reservation/internal/router"
	"github.com/ordelia/floorplan-reservation/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	floorCfg := config.LoadFloorConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and response cache disabled")
	}

	// The activity consumer tails the furniture.activity queue into
	// logs/floor.log and reconnects on broker failure forever.
	go func() {
		if err := queue.StartActivityConsumer(); err != nil {
			log.Printf("activity-consumer: %v", err)
		}
	}()

	staffRepo := repository.NewStaffRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	furnitureRepo := repository.NewFurnitureRepo(db)

	backend := service.NewFloorBackend(db)
	hub := floor.NewSessionHub(context.Background(), floor.SessionConfig{
		Drag: floor.DragConfig{
			GridStep:    floorCfg.GridStep,
			ThresholdPx: floorCfg.DragThresholdPx,
			ResumeDelay: floorCfg.RefreshResumeDelay,
		},
		UndoDepth:       floorCfg.UndoDepth,
		CompletionGrace: floorCfg.CompletionGrace,
		RefreshInterval: floorCfg.RefreshInterval,
	}, backend)

	authHandler := handler.NewAuthHandler(cfg, staffRepo, tokenRepo)
	planHandler := handler.NewFloorPlanHandler(furnitureRepo)
	sessionHandler := handler.NewFloorSessionHandler(hub)

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	var cacheMW echo.MiddlewareFunc
	if rdb != nil {
		cacheMW = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterFloorPlan(e, planHandler, cfg.JWTSecret, cacheMW)
	router.RegisterFloorSession(e, sessionHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
