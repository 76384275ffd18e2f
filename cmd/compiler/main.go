package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"variant-compiler/internal/common/config"
	"variant-compiler/internal/common/middleware"
	"variant-compiler/internal/compiler/handlers"
	"variant-compiler/internal/compiler/repository"
	"variant-compiler/internal/compiler/service"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// Variant Compiler Service
// ============================================================

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(context.Background()); err != nil {
		log.Fatalf("init db: %v", err)
	}

	opts, err := service.NewOptions(cfg)
	if err != nil {
		log.Fatalf("compiler options: %v", err)
	}
	sessions := service.NewSessionManager(opts, repo)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		BodyLimit:    cfg.BodyLimit(),
		AppName:      "Variant Compiler Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger("COMPILER"))
	app.Use(middleware.CORS(cfg.CORSOrigins))

	handlers.Register(app,
		handlers.NewHealthHandler(db),
		handlers.NewCompilerHandler(opts),
		handlers.NewSessionHandler(sessions, repo),
	)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Variant Compiler Service on %s (env: %s)", addr, cfg.Environment)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
