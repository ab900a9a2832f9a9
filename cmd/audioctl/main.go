// audioctl - audio output control service
//
// audioctl exposes the host's audio outputs over an HTTP API: listing
// and selecting output devices, setting the volume, and walking
// Bluetooth audio devices through discovery, pairing, and connection.
// It shells out to pactl and bluetoothctl, so it runs anywhere those
// tools do.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/dwetherby/audioctl/migrations"

	"github.com/dwetherby/audioctl/internal/api"
	"github.com/dwetherby/audioctl/internal/audio"
	"github.com/dwetherby/audioctl/internal/bluetooth"
	"github.com/dwetherby/audioctl/internal/core"
	"github.com/dwetherby/audioctl/internal/device"
	"github.com/dwetherby/audioctl/internal/history"
	"github.com/dwetherby/audioctl/internal/infrastructure/config"
	"github.com/dwetherby/audioctl/internal/infrastructure/database"
	"github.com/dwetherby/audioctl/internal/infrastructure/logging"
	"github.com/dwetherby/audioctl/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
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
	log.Info("starting audioctl",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database for the pairing history log
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
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

	historyRepo := history.NewRepository(db.DB)

	// Backends: pactl for the sound server, bluetoothctl for BlueZ
	audioBackend := audio.NewPulseBackend(audio.PulseConfig{
		Binary:         cfg.Audio.Binary,
		CommandTimeout: cfg.Audio.CommandTimeoutDuration(),
	})
	audioBackend.SetLogger(log)

	btBackend := bluetooth.NewBluetoothctlBackend(bluetooth.BluetoothctlConfig{
		Binary:         cfg.Bluetooth.Binary,
		CommandTimeout: cfg.Bluetooth.CommandTimeoutDuration(),
	})
	btBackend.SetLogger(log)

	registry := device.NewRegistry(audioBackend, btBackend)
	registry.SetLogger(log)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// WebSocket hub is created before the server so events can fan out
	// to it and to MQTT through one sink.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	events := &eventFanout{hub: hub, mqtt: mqttClient, log: log}

	orchestrator := core.New(core.Config{
		ScanWindow:     cfg.Bluetooth.ScanWindowDuration(),
		PairTimeout:    cfg.Bluetooth.PairTimeoutDuration(),
		ConnectTimeout: cfg.Bluetooth.ConnectTimeoutDuration(),
		SettleDelay:    cfg.Bluetooth.SettleDelayDuration(),
	}, core.Deps{
		Registry:  registry,
		Bluetooth: btBackend,
		History:   historyRepo,
		Events:    events,
		Logger:    log,
	})

	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Core:        orchestrator,
		History:     historyRepo,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	if err := healthCheck(ctx, db, mqttClient, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. MQTT (if enabled)
	// 3. Database

	log.Info("audioctl stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses AUDIOCTL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("AUDIOCTL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig loads the configuration file. A missing file at the default
// path is not an error; the built-in defaults are used. An explicitly
// configured path must exist.
func loadConfig(log *logging.Logger) (*config.Config, error) {
	path := getConfigPath()
	cfg, err := config.Load(path)
	switch {
	case err == nil:
		log.Info("configuration loaded", "path", path)
		return cfg, nil
	case os.Getenv("AUDIOCTL_CONFIG") == "" && errors.Is(err, os.ErrNotExist):
		log.Info("no config file found, using built-in defaults", "path", path)
		cfg = config.Default()
		if verr := cfg.Validate(); verr != nil {
			return nil, fmt.Errorf("validating default config: %w", verr)
		}
		return cfg, nil
	default:
		return nil, fmt.Errorf("loading config: %w", err)
	}
}

// healthCheckTimeout bounds the startup health verification.
const healthCheckTimeout = 10 * time.Second

// healthCheck verifies the infrastructure components are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, server *api.Server) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}

// eventFanout delivers domain events to WebSocket clients and, when a
// broker is configured, to MQTT. Delivery is best-effort on both legs; a
// slow subscriber never blocks the operation that raised the event.
type eventFanout struct {
	hub  *api.Hub
	mqtt *mqtt.Client
	log  *logging.Logger
}

// Publish implements core.EventSink.
func (f *eventFanout) Publish(event string, payload any) {
	f.hub.Broadcast(event, payload)

	if f.mqtt != nil {
		if err := f.mqtt.PublishEvent(event, payload); err != nil {
			f.log.Warn("publishing event to MQTT failed", "event", event, "error", err)
		}
	}
}
