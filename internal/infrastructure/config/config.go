package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for audioctl.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
	Audio     AudioConfig     `yaml:"audio"`
	Bluetooth BluetoothConfig `yaml:"bluetooth"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// AudioConfig contains sound-server backend settings.
type AudioConfig struct {
	// Binary is the path to the pactl executable.
	Binary string `yaml:"binary"`

	// CommandTimeout is the per-invocation timeout in seconds.
	CommandTimeout int `yaml:"command_timeout"`
}

// BluetoothConfig contains Bluetooth backend and pairing settings.
type BluetoothConfig struct {
	// Binary is the path to the bluetoothctl executable.
	Binary string `yaml:"binary"`

	// ScanWindow is the discovery window in seconds.
	ScanWindow int `yaml:"scan_window"`

	// PairTimeout is the deadline for a pair request in seconds.
	PairTimeout int `yaml:"pair_timeout"`

	// ConnectTimeout is the deadline for a connect request in seconds.
	ConnectTimeout int `yaml:"connect_timeout"`

	// SettleDelay is how long to wait after a successful connect for the
	// sound server to register the new sink, in seconds.
	SettleDelay int `yaml:"settle_delay"`

	// CommandTimeout is the timeout for short queries (device listing, info)
	// in seconds.
	CommandTimeout int `yaml:"command_timeout"`
}

// DatabaseConfig contains SQLite database settings for the pairing history log.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT event publishing settings.
type MQTTConfig struct {
	Enabled bool             `yaml:"enabled"`
	Broker  MQTTBrokerConfig `yaml:"broker"`
	Auth    MQTTAuthConfig   `yaml:"auth"`
	QoS     int              `yaml:"qos"`
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

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: AUDIOCTL_SECTION_KEY
// For example: AUDIOCTL_API_PORT, AUDIOCTL_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading any file,
// with environment overrides applied. Used when no config file exists;
// the defaults suit a single-seat Linux box running PulseAudio/PipeWire
// and BlueZ.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read: 15,
				// Write timeout must exceed the longest blocking operation:
				// a pair or connect request blocks for up to its 30s deadline.
				Write: 60,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Audio: AudioConfig{
			Binary:         "pactl",
			CommandTimeout: 5,
		},
		Bluetooth: BluetoothConfig{
			Binary:         "bluetoothctl",
			ScanWindow:     10,
			PairTimeout:    30,
			ConnectTimeout: 30,
			SettleDelay:    3,
			CommandTimeout: 5,
		},
		Database: DatabaseConfig{
			Path:        "./data/audioctl.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "audioctl",
			},
			QoS: 1,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: AUDIOCTL_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// API
	if v := os.Getenv("AUDIOCTL_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("AUDIOCTL_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Database
	if v := os.Getenv("AUDIOCTL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("AUDIOCTL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("AUDIOCTL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("AUDIOCTL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Audio.Binary == "" {
		errs = append(errs, "audio.binary is required")
	}
	if c.Bluetooth.Binary == "" {
		errs = append(errs, "bluetooth.binary is required")
	}
	if c.Bluetooth.ScanWindow < 1 {
		errs = append(errs, "bluetooth.scan_window must be at least 1 second")
	}
	if c.Bluetooth.PairTimeout < 1 {
		errs = append(errs, "bluetooth.pair_timeout must be at least 1 second")
	}
	if c.Bluetooth.ConnectTimeout < 1 {
		errs = append(errs, "bluetooth.connect_timeout must be at least 1 second")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ScanWindowDuration returns the Bluetooth discovery window as a Duration.
func (c *BluetoothConfig) ScanWindowDuration() time.Duration {
	return time.Duration(c.ScanWindow) * time.Second
}

// PairTimeoutDuration returns the pair deadline as a Duration.
func (c *BluetoothConfig) PairTimeoutDuration() time.Duration {
	return time.Duration(c.PairTimeout) * time.Second
}

// ConnectTimeoutDuration returns the connect deadline as a Duration.
func (c *BluetoothConfig) ConnectTimeoutDuration() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}

// SettleDelayDuration returns the post-connect settle delay as a Duration.
func (c *BluetoothConfig) SettleDelayDuration() time.Duration {
	return time.Duration(c.SettleDelay) * time.Second
}

// CommandTimeoutDuration returns the short-query timeout as a Duration.
func (c *BluetoothConfig) CommandTimeoutDuration() time.Duration {
	return time.Duration(c.CommandTimeout) * time.Second
}

// CommandTimeoutDuration returns the pactl invocation timeout as a Duration.
func (c *AudioConfig) CommandTimeoutDuration() time.Duration {
	return time.Duration(c.CommandTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
