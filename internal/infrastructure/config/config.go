package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Gray Logic HMI service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Machine    MachineConfig    `yaml:"machine"`
	PLC        PLCConfig        `yaml:"plc"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	EventLog   EventLogConfig   `yaml:"eventlog"`
	Production ProductionConfig `yaml:"production"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
	Security   SecurityConfig   `yaml:"security"`
}

// MachineConfig identifies the machine this HMI serves.
type MachineConfig struct {
	// ID is used in MQTT topics and metric labels. Lowercase, no spaces.
	ID string `yaml:"id"`

	// Name is the display name; it also names the event log directory.
	Name string `yaml:"name"`

	// PointsFile is the YAML file holding alarm, IO, axis, cylinder and
	// parameter tables.
	PointsFile string `yaml:"points_file"`
}

// PLCConfig contains controller connection settings.
type PLCConfig struct {
	// Driver selects the link implementation: "opcua" or "simulated".
	Driver string `yaml:"driver"`

	Endpoint        string `yaml:"endpoint"`
	SecurityMode    string `yaml:"security_mode"`
	SecurityPolicy  string `yaml:"security_policy"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	ApplicationName string `yaml:"application_name"`

	// NodePrefix is prepended to every configured address that is not
	// already a full node ID (e.g. "ns=4;s=|var|Inovance-PLC.Application.").
	NodePrefix string `yaml:"node_prefix"`

	// ConnectTimeout bounds the initial connection (seconds).
	ConnectTimeout int `yaml:"connect_timeout"`

	// SimulateAlarms makes the simulated driver toggle alarm points at random.
	SimulateAlarms bool `yaml:"simulate_alarms"`
}

// MonitorConfig contains polling cadence settings (milliseconds unless noted).
type MonitorConfig struct {
	ActiveInterval     int `yaml:"active_interval"`
	IdleInterval       int `yaml:"idle_interval"`
	StatisticsInterval int `yaml:"statistics_interval"` // seconds
}

// EventLogConfig contains the daily CSV log settings.
type EventLogConfig struct {
	Root        string `yaml:"root"`
	ReadRetries int    `yaml:"read_retries"`
	RetryDelay  int    `yaml:"retry_delay"` // milliseconds, multiplied by attempt number
}

// ProductionConfig locates the production data CSV files other machine
// software writes. The HMI only reads them.
type ProductionConfig struct {
	// Root holds one "{yyyy_MM}月" directory per month with
	// ProductData_{yyyy_MM_dd}.csv daily and ProductData_{yyyy_MM}.csv
	// monthly files.
	Root string `yaml:"root"`

	// RecordFiles are CSV files offered as raw data tables.
	RecordFiles []string `yaml:"record_files"`

	// Encoding of the files: "auto", "utf-8" or "gbk". "auto" decodes GBK
	// whenever a file is not valid UTF-8.
	Encoding string `yaml:"encoding"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// HistoryRetentionDays prunes alarm_events older than this. 0 keeps everything.
	HistoryRetentionDays int `yaml:"history_retention_days"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
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
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`

	// PanelDir holds an operator panel build served at /. Empty serves
	// the built-in placeholder page.
	PanelDir string `yaml:"panel_dir"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
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

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT       JWTConfig        `yaml:"jwt"`
	Operators []OperatorConfig `yaml:"operators"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"` // minutes
}

// OperatorConfig is a login account for the HMI.
type OperatorConfig struct {
	Username string `yaml:"username"`

	// PasswordHash is an argon2id PHC string. Plaintext passwords are not accepted.
	PasswordHash string `yaml:"password_hash"`

	// Role is one of operator, engineer, admin.
	Role string `yaml:"role"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern GRAYLOGIC_SECTION_KEY, for example
// GRAYLOGIC_PLC_ENDPOINT or GRAYLOGIC_JWT_SECRET.
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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Machine: MachineConfig{
			ID:         "machine-001",
			Name:       "machine",
			PointsFile: "configs/points.yaml",
		},
		PLC: PLCConfig{
			Driver:          "opcua",
			SecurityMode:    "None",
			SecurityPolicy:  "None",
			ApplicationName: "Gray Logic HMI",
			ConnectTimeout:  10,
		},
		Monitor: MonitorConfig{
			ActiveInterval:     200,
			IdleInterval:       500,
			StatisticsInterval: 60,
		},
		EventLog: EventLogConfig{
			Root:        "./AlarmLog",
			ReadRetries: 3,
			RetryDelay:  100,
		},
		Production: ProductionConfig{
			Root:     "./ProductData",
			Encoding: "auto",
		},
		Database: DatabaseConfig{
			Path:                 "./data/graylogic-hmi.db",
			WALMode:              true,
			BusyTimeout:          5,
			HistoryRetentionDays: 365,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-hmi",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 480,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// PLC
	if v := os.Getenv("GRAYLOGIC_PLC_DRIVER"); v != "" {
		cfg.PLC.Driver = v
	}
	if v := os.Getenv("GRAYLOGIC_PLC_ENDPOINT"); v != "" {
		cfg.PLC.Endpoint = v
	}
	if v := os.Getenv("GRAYLOGIC_PLC_USERNAME"); v != "" {
		cfg.PLC.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_PLC_PASSWORD"); v != "" {
		cfg.PLC.Password = v
	}

	// Event log
	if v := os.Getenv("GRAYLOGIC_EVENTLOG_ROOT"); v != "" {
		cfg.EventLog.Root = v
	}

	// Production data
	if v := os.Getenv("GRAYLOGIC_PRODUCTION_ROOT"); v != "" {
		cfg.Production.Root = v
	}

	// Database
	if v := os.Getenv("GRAYLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("GRAYLOGIC_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("GRAYLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security - JWT secret (always override in production)
	if v := os.Getenv("GRAYLOGIC_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	// Machine
	if c.Machine.ID == "" {
		errs = append(errs, "machine.id is required")
	} else if strings.ContainsAny(c.Machine.ID, " /+#") {
		errs = append(errs, "machine.id must not contain spaces or MQTT wildcards")
	}
	if c.Machine.Name == "" {
		errs = append(errs, "machine.name is required")
	} else if strings.ContainsAny(c.Machine.Name, `/\`) {
		errs = append(errs, "machine.name must not contain path separators")
	}
	if c.Machine.PointsFile == "" {
		errs = append(errs, "machine.points_file is required")
	}

	// PLC
	switch c.PLC.Driver {
	case "opcua":
		if c.PLC.Endpoint == "" {
			errs = append(errs, "plc.endpoint is required for the opcua driver")
		}
	case "simulated":
	default:
		errs = append(errs, fmt.Sprintf("plc.driver %q is not supported (opcua, simulated)", c.PLC.Driver))
	}

	// Monitor
	if c.Monitor.ActiveInterval <= 0 {
		errs = append(errs, "monitor.active_interval must be positive")
	}
	if c.Monitor.IdleInterval <= 0 {
		errs = append(errs, "monitor.idle_interval must be positive")
	}
	if c.Monitor.StatisticsInterval <= 0 {
		errs = append(errs, "monitor.statistics_interval must be positive")
	}

	// Event log
	if c.EventLog.Root == "" {
		errs = append(errs, "eventlog.root is required")
	}
	if c.EventLog.ReadRetries < 1 {
		errs = append(errs, "eventlog.read_retries must be at least 1")
	}

	// Production data
	if c.Production.Root == "" {
		errs = append(errs, "production.root is required")
	}
	switch c.Production.Encoding {
	case "auto", "utf-8", "gbk":
	default:
		errs = append(errs, fmt.Sprintf("production.encoding must be auto, utf-8 or gbk, got %q", c.Production.Encoding))
	}

	// Database
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Security - the JWT secret guards PLC write access.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set GRAYLOGIC_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	seen := make(map[string]bool, len(c.Security.Operators))
	for i, op := range c.Security.Operators {
		if op.Username == "" {
			errs = append(errs, fmt.Sprintf("security.operators[%d].username is required", i))
			continue
		}
		if seen[op.Username] {
			errs = append(errs, fmt.Sprintf("security.operators[%d]: duplicate username %q", i, op.Username))
		}
		seen[op.Username] = true
		if !strings.HasPrefix(op.PasswordHash, "$argon2id$") {
			errs = append(errs, fmt.Sprintf("security.operators[%d].password_hash must be an argon2id PHC string", i))
		}
		switch op.Role {
		case "operator", "engineer", "admin":
		default:
			errs = append(errs, fmt.Sprintf("security.operators[%d].role %q is not valid", i, op.Role))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ActiveDuration returns the fast polling period.
func (m MonitorConfig) ActiveDuration() time.Duration {
	return time.Duration(m.ActiveInterval) * time.Millisecond
}

// IdleDuration returns the slow re-check period used while a view is hidden.
func (m MonitorConfig) IdleDuration() time.Duration {
	return time.Duration(m.IdleInterval) * time.Millisecond
}

// StatisticsDuration returns the production statistics polling period.
func (m MonitorConfig) StatisticsDuration() time.Duration {
	return time.Duration(m.StatisticsInterval) * time.Second
}

// RetryDelayDuration returns the base delay between event log read attempts.
func (e EventLogConfig) RetryDelayDuration() time.Duration {
	return time.Duration(e.RetryDelay) * time.Millisecond
}

// GetReadTimeout returns the API read timeout as a Duration.
func (t APITimeoutConfig) GetReadTimeout() time.Duration {
	return time.Duration(t.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (t APITimeoutConfig) GetWriteTimeout() time.Duration {
	return time.Duration(t.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (t APITimeoutConfig) GetIdleTimeout() time.Duration {
	return time.Duration(t.Idle) * time.Second
}
