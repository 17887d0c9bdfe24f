package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for ParamCore.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Registry RegistryConfig `yaml:"registry"`
	Storage  StorageConfig  `yaml:"storage"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// RegistryConfig contains parameter registry settings.
type RegistryConfig struct {
	// Namespace is the storage namespace for persisted parameters.
	// Kept to 15 characters for NVS-style key-value compatibility.
	Namespace string `yaml:"namespace"`

	// Prefix is the MQTT topic prefix for remote parameter access
	// (e.g., "esplan/params" yields "esplan/params/set/<name>").
	Prefix string `yaml:"prefix"`

	// QueueSize is the capacity of the inbound command queue.
	QueueSize int `yaml:"queue_size"`

	// ChunkSize is the number of parameters published per async publish step.
	ChunkSize int `yaml:"chunk_size"`

	// AutoSaveDefaults persists in-memory defaults on first boot when the
	// store returns no keys for a non-empty registry.
	AutoSaveDefaults bool `yaml:"auto_save_defaults"`
}

// StorageConfig contains SQLite parameter store settings.
type StorageConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// Capacity is the entry budget reported by store statistics,
	// mirroring the fixed entry count of an NVS partition.
	Capacity int `yaml:"capacity"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for change telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// maxNamespaceLen is the NVS-style limit on storage namespace length.
const maxNamespaceLen = 15

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: PARAMCORE_SECTION_KEY
// For example: PARAMCORE_STORAGE_PATH, PARAMCORE_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			Namespace:        "params",
			Prefix:           "esplan/params",
			QueueSize:        5,
			ChunkSize:        5,
			AutoSaveDefaults: true,
		},
		Storage: StorageConfig{
			Path:        "./data/paramcore.db",
			WALMode:     true,
			BusyTimeout: 5,
			Capacity:    1024,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "paramcore",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: PARAMCORE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Registry
	if v := os.Getenv("PARAMCORE_REGISTRY_PREFIX"); v != "" {
		cfg.Registry.Prefix = v
	}

	// Storage
	if v := os.Getenv("PARAMCORE_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}

	// MQTT
	if v := os.Getenv("PARAMCORE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("PARAMCORE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("PARAMCORE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("PARAMCORE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Registry validation
	if c.Registry.Namespace == "" {
		errs = append(errs, "registry.namespace is required")
	} else if len(c.Registry.Namespace) > maxNamespaceLen {
		errs = append(errs, fmt.Sprintf("registry.namespace must be at most %d characters", maxNamespaceLen))
	}
	if c.Registry.Prefix == "" {
		errs = append(errs, "registry.prefix is required")
	}
	if strings.HasSuffix(c.Registry.Prefix, "/") {
		errs = append(errs, "registry.prefix must not end with '/'")
	}
	if c.Registry.QueueSize < 1 {
		errs = append(errs, "registry.queue_size must be at least 1")
	}
	if c.Registry.ChunkSize < 1 {
		errs = append(errs, "registry.chunk_size must be at least 1")
	}

	// Storage validation
	if c.Storage.Path == "" {
		errs = append(errs, "storage.path is required")
	}
	if c.Storage.Capacity < 1 {
		errs = append(errs, "storage.capacity must be at least 1")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set PARAMCORE_INFLUXDB_TOKEN)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetBusyTimeout returns the storage busy timeout as a Duration.
func (c *Config) GetBusyTimeout() time.Duration {
	return time.Duration(c.Storage.BusyTimeout) * time.Second
}
