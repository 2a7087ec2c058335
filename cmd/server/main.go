package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/gofiber/fiber/v2"

	"patient-records-service/internal/adapters"
	"patient-records-service/internal/api/handlers"
	"patient-records-service/internal/idgen"
	"patient-records-service/internal/platform/config"
	"patient-records-service/internal/platform/logger"
	"patient-records-service/internal/services"
)

// main wires the storage adapter, record store, notifier, and HTTP routes,
// then runs until interrupted. Business logic lives in internal/services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	storage, err := newStorage(cfg)
	if err != nil {
		log.Fatalf("initializing storage (%s): %v", cfg.StorageDriver, err)
	}

	store := services.NewRecordStore(storage, idgen.New(), log)
	if _, err := store.Load(context.Background()); err != nil {
		log.Fatalf("loading persisted records: %v", err)
	}

	notifier := adapters.NewInMemoryNotifier(log)
	notifier.StartConsuming(func(event adapters.RecordEvent) {
		log.Printf("record %s: %s (%s)", event.Action, event.PatientName, event.PatientID)
	})
	defer notifier.Stop()

	app := fiber.New(fiber.Config{AppName: "patient-records-service"})
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	handler := handlers.NewPatientHandler(store, notifier, log)
	handlers.RegisterPatientRoutes(app, handler)

	go func() {
		if err := app.Listen(cfg.Addr); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()
	log.Printf("patient-records-service listening on %s (storage: %s)", cfg.Addr, cfg.StorageDriver)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	if err := app.Shutdown(); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
}

// newStorage picks the persistence adapter from configuration.
func newStorage(cfg config.Config) (adapters.StorageAdapter, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return adapters.NewInMemoryStorage(), nil
	case config.DriverSQLite:
		return adapters.NewSQLiteStorage(cfg.SQLitePath)
	case config.DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		return adapters.NewPostgresStorage(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
