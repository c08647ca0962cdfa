package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Config is the root configuration structure for the solar poller.
// Configuration is loaded from YAML or TOML and can be overridden by environment variables.
type Config struct {
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Inverter InverterConfig `yaml:"inverter" toml:"inverter"`
	Polling  PollingConfig  `yaml:"polling" toml:"polling"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	InfluxDB InfluxDBConfig `yaml:"influxdb" toml:"influxdb"`
	MQTT     MQTTConfig     `yaml:"mqtt" toml:"mqtt"`
}

// DatabaseConfig contains the relational database the readings are written to.
type DatabaseConfig struct {
	// Driver selects the SQL driver: "mysql", "postgres" or "sqlite3".
	Driver   string `yaml:"driver" toml:"driver"`
	User     string `yaml:"user" toml:"user"`
	Password string `yaml:"password" toml:"password"`
	Host     string `yaml:"host" toml:"host"`
	// Port is optional; 0 means the driver default (3306 / 5432).
	Port     int    `yaml:"port" toml:"port"`
	Database string `yaml:"database" toml:"database"`

	// Path is the database file, only used by the sqlite3 driver.
	Path string `yaml:"path" toml:"path"`

	// SSLMode is passed to postgres as sslmode. Default: "disable".
	SSLMode string `yaml:"ssl_mode" toml:"ssl_mode"`

	// Migrate creates the readings table on connect when it does not exist.
	Migrate bool `yaml:"migrate" toml:"migrate"`

	// ConnectTimeout bounds dial and ping on connect (seconds).
	ConnectTimeout int `yaml:"connect_timeout" toml:"connect_timeout"`
}

// InverterConfig contains the inverter web interface endpoints and credentials.
//
// Two independent credential pairs are used: one for the status page that
// carries the power reading and one for the login page that re-establishes
// a session after an auth failure.
type InverterConfig struct {
	StatusURL      string `yaml:"status_website_url" toml:"status_website_url"`
	StatusUser     string `yaml:"status_user_name" toml:"status_user_name"`
	StatusPassword string `yaml:"status_password" toml:"status_password"`
	LoginURL       string `yaml:"login_website_url" toml:"login_website_url"`
	LoginUser      string `yaml:"login_user_name" toml:"login_user_name"`
	LoginPassword  string `yaml:"login_password" toml:"login_password"`

	// RequestTimeout is the per-request HTTP timeout (seconds). Default: 15
	RequestTimeout int `yaml:"request_timeout" toml:"request_timeout"`

	// MaxAttempts bounds the status fetch attempts per poll cycle. Default: 10
	MaxAttempts int `yaml:"max_attempts" toml:"max_attempts"`
}

// PollingConfig contains the sampling cadence.
type PollingConfig struct {
	// Interval is the sampling period (seconds). Default: 180
	Interval int `yaml:"interval" toml:"interval"`

	// OfflineRetryInterval is the back-off period while the inverter is
	// unreachable (seconds). Default: 900
	OfflineRetryInterval int `yaml:"offline_retry_interval" toml:"offline_retry_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level" toml:"level"`
	Format string            `yaml:"format" toml:"format"`
	Output string            `yaml:"output" toml:"output"`
	File   FileLoggingConfig `yaml:"file" toml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path" toml:"path"`
	MaxSize    int    `yaml:"max_size" toml:"max_size"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAge     int    `yaml:"max_age" toml:"max_age"`
	Compress   bool   `yaml:"compress" toml:"compress"`
}

// InfluxDBConfig contains the optional InfluxDB mirror settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled" toml:"enabled"`
	URL           string `yaml:"url" toml:"url"`
	Token         string `yaml:"token" toml:"token"`
	Org           string `yaml:"org" toml:"org"`
	Bucket        string `yaml:"bucket" toml:"bucket"`
	BatchSize     int    `yaml:"batch_size" toml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval" toml:"flush_interval"`
	DeviceID      string `yaml:"device_id" toml:"device_id"`
}

// MQTTConfig contains the optional MQTT mirror settings.
type MQTTConfig struct {
	Enabled     bool             `yaml:"enabled" toml:"enabled"`
	Broker      MQTTBrokerConfig `yaml:"broker" toml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth" toml:"auth"`
	QoS         int              `yaml:"qos" toml:"qos"`
	TopicPrefix string           `yaml:"topic_prefix" toml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	TLS      bool   `yaml:"tls" toml:"tls"`
	ClientID string `yaml:"client_id" toml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
}

// Load reads configuration from a YAML or TOML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. File values (override defaults)
//  3. Environment variables (override file values)
//
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables follow the pattern: SOLARPOLLER_SECTION_KEY
// For example: SOLARPOLLER_DATABASE_PASSWORD, SOLARPOLLER_INVERTER_LOGIN_PASSWORD
//
// Parameters:
//   - path: Path to the configuration file
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

	if err := decode(path, data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// decode unmarshals data into cfg using the format implied by the file extension.
func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	default:
		return yaml.Unmarshal(data, cfg)
	}
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:         DriverMySQL,
			SSLMode:        "disable",
			Migrate:        true,
			ConnectTimeout: 10,
		},
		Inverter: InverterConfig{
			RequestTimeout: 15,
			MaxAttempts:    10,
		},
		Polling: PollingConfig{
			Interval:             180,
			OfflineRetryInterval: 900,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/solar.log",
				MaxSize:    50,
				MaxBackups: 5,
				MaxAge:     30,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
			DeviceID:      "inverter",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "solar-poller",
			},
			QoS:         1,
			TopicPrefix: "solarpoller",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Secrets belong here rather than in the config file.
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("SOLARPOLLER_DATABASE_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("SOLARPOLLER_DATABASE_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("SOLARPOLLER_DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}

	// Inverter
	if v := os.Getenv("SOLARPOLLER_INVERTER_STATUS_PASSWORD"); v != "" {
		cfg.Inverter.StatusPassword = v
	}
	if v := os.Getenv("SOLARPOLLER_INVERTER_LOGIN_PASSWORD"); v != "" {
		cfg.Inverter.LoginPassword = v
	}

	// Mirrors
	if v := os.Getenv("SOLARPOLLER_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("SOLARPOLLER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
}

// Validate checks the configuration for missing keys and out-of-range values.
// Every problem is reported, not just the first.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required for sqlite3")
		}
	case DriverMySQL, DriverPostgres:
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Database == "" {
			errs = append(errs, "database.database is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (mysql, postgres, sqlite3)", c.Database.Driver))
	}
	if c.Database.Port < 0 || c.Database.Port > 65535 {
		errs = append(errs, "database.port must be between 0 and 65535")
	}

	// Inverter validation
	errs = append(errs, validateURL("inverter.status_website_url", c.Inverter.StatusURL)...)
	errs = append(errs, validateURL("inverter.login_website_url", c.Inverter.LoginURL)...)
	if c.Inverter.StatusUser == "" {
		errs = append(errs, "inverter.status_user_name is required")
	}
	if c.Inverter.LoginUser == "" {
		errs = append(errs, "inverter.login_user_name is required")
	}
	if c.Inverter.RequestTimeout <= 0 {
		errs = append(errs, "inverter.request_timeout must be positive")
	}
	if c.Inverter.MaxAttempts <= 0 {
		errs = append(errs, "inverter.max_attempts must be positive")
	}

	// Polling validation
	if c.Polling.Interval <= 0 {
		errs = append(errs, "polling.interval must be positive")
	}
	if c.Polling.OfflineRetryInterval <= 0 {
		errs = append(errs, "polling.offline_retry_interval must be positive")
	}

	// Logging validation
	if strings.EqualFold(c.Logging.Output, "file") && c.Logging.File.Path == "" {
		errs = append(errs, "logging.file.path is required when logging.output is file")
	}

	// Mirrors
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}
	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
			errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateURL checks that value is an absolute http(s) URL.
func validateURL(key, value string) []string {
	if value == "" {
		return []string{key + " is required"}
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return []string{key + " must be an absolute http(s) URL"}
	}
	return nil
}

// GetRequestTimeout returns the inverter HTTP timeout as a Duration.
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.Inverter.RequestTimeout) * time.Second
}

// GetPollInterval returns the sampling period as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Polling.Interval) * time.Second
}

// GetOfflineRetryInterval returns the offline back-off period as a Duration.
func (c *Config) GetOfflineRetryInterval() time.Duration {
	return time.Duration(c.Polling.OfflineRetryInterval) * time.Second
}

// GetConnectTimeout returns the database connect timeout as a Duration.
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.Database.ConnectTimeout) * time.Second
}
