// LockerRoom Core - multi-tenant messaging backend
//
// This is the main entry point for the LockerRoom Core service. It wires
// configuration, logging, the SQLite store, the optional MQTT event
// publisher, and the HTTP/WebSocket API, then waits for a shutdown signal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lockerroom/lockerroom-core/migrations"

	"github.com/lockerroom/lockerroom-core/internal/api"
	"github.com/lockerroom/lockerroom-core/internal/auth"
	"github.com/lockerroom/lockerroom-core/internal/events"
	"github.com/lockerroom/lockerroom-core/internal/infrastructure/config"
	"github.com/lockerroom/lockerroom-core/internal/infrastructure/database"
	"github.com/lockerroom/lockerroom-core/internal/infrastructure/logging"
	"github.com/lockerroom/lockerroom-core/internal/lobby"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting LockerRoom Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database and apply migrations
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories and services
	users := auth.NewUserRepository(db.Conn())
	lobbyService := lobby.NewService(db.Conn(), users)

	// Event publisher (no-op unless MQTT is enabled)
	publisher, err := events.NewPublisher(cfg.MQTT, log)
	if err != nil {
		return fmt.Errorf("connecting event publisher: %w", err)
	}
	defer publisher.Close()
	if cfg.MQTT.Enabled {
		log.Info("MQTT event publisher connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT event publishing disabled")
	}

	// API server
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Users:    users,
		Lobby:    lobbyService,
		Events:   publisher,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("LockerRoom Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses LOCKERROOM_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LOCKERROOM_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
