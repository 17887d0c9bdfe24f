// ParamCore - Runtime Configuration Registry
//
// This is the main entry point for the ParamCore gateway daemon.
// ParamCore keeps a fleet device's tunable configuration in sync:
//   - Typed parameters bound to host variables
//   - SQLite-backed persistence with first-boot defaults
//   - Remote set/get/list/save over MQTT
//   - Chunked full-set publishing that never blocks the main loop
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/esplan/paramcore/internal/infrastructure/config"
	"github.com/esplan/paramcore/internal/infrastructure/influxdb"
	"github.com/esplan/paramcore/internal/infrastructure/logging"
	"github.com/esplan/paramcore/internal/infrastructure/mqtt"
	"github.com/esplan/paramcore/internal/param"
	"github.com/esplan/paramcore/internal/storage"
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

// pumpInterval drives the command pump and the chunked publisher.
const pumpInterval = 100 * time.Millisecond

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting ParamCore",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the parameter store
	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		Namespace:   cfg.Registry.Namespace,
		WALMode:     cfg.Storage.WALMode,
		BusyTimeout: cfg.Storage.BusyTimeout,
		Capacity:    cfg.Storage.Capacity,
	})
	if err != nil {
		return fmt.Errorf("opening parameter store: %w", err)
	}
	defer func() {
		log.Info("closing parameter store")
		if closeErr := store.Close(); closeErr != nil {
			log.Error("error closing parameter store", "error", closeErr)
		}
	}()
	log.Info("parameter store opened",
		"path", cfg.Storage.Path,
		"namespace", cfg.Registry.Namespace,
	)

	// Build the registry and bind the gateway parameter set
	registry := param.New(store, param.Options{
		Prefix:    cfg.Registry.Prefix,
		QueueSize: cfg.Registry.QueueSize,
		ChunkSize: cfg.Registry.ChunkSize,
	})
	registry.SetLogger(log)

	gw, err := registerGatewayParameters(registry)
	if err != nil {
		return fmt.Errorf("registering parameters: %w", err)
	}
	log.Info("parameters registered", "count", registry.Count())

	// Load persisted values; on first boot persist the defaults
	if err := registry.LoadAll(cfg.Registry.AutoSaveDefaults); err != nil {
		return fmt.Errorf("loading parameters: %w", err)
	}

	if stats, statsErr := registry.StoreStats(); statsErr == nil {
		log.Info("store statistics",
			"used", stats.UsedEntries,
			"free", stats.FreeEntries,
			"total", stats.TotalEntries,
		)
	}

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
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

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected, announcing parameters")
		registry.PublishAll()
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	registry.SetTransport(mqttClient)

	// Route inbound command topics into the registry's bounded queue
	for _, filter := range (mqtt.Topics{}).CommandFilters(cfg.Registry.Prefix) {
		if subErr := mqttClient.Subscribe(filter, byte(cfg.MQTT.QoS), func(topic string, payload []byte) error {
			registry.HandleCommand(topic, payload)
			return nil
		}); subErr != nil {
			return fmt.Errorf("subscribing to %s: %w", filter, subErr)
		}
	}
	log.Info("command topics subscribed", "prefix", cfg.Registry.Prefix)

	// Connect to InfluxDB (optional change telemetry)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		registry.SetRecorder(influxClient.WriteParameterChange)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Announce the full parameter set on startup
	registry.PublishAll()

	log.Info("initialisation complete, entering pump loop")

	// Pump loop: drain queued commands and step any in-flight publish
	ticker := time.NewTicker(pumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received, cleaning up")

			// Persist current values before the deferred teardown runs
			if saveErr := registry.SaveAll(); saveErr != nil {
				log.Error("final save failed", "error", saveErr)
			}
			if influxClient != nil {
				influxClient.Flush()
			}

			log.Info("ParamCore stopped", "uptime_seconds", gw.uptimeSeconds())
			return nil

		case <-ticker.C:
			registry.ProcessQueue()
			registry.ContinuePublish()
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses PARAMCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PARAMCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
