package config

import "time"

// Config is the root configuration for a portfoliosync instance.
type Config struct {
	Instance   InstanceConfig   `yaml:"instance"`
	API        APIConfig        `yaml:"api"`
	Connection ConnectionConfig `yaml:"connection"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Resources  ResourcesConfig  `yaml:"resources"`
	Recorder   RecorderConfig   `yaml:"recorder"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

// InstanceConfig identifies this client.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds portfolio backend settings.
type APIConfig struct {
	Origin  string        `yaml:"origin"` // Page origin, e.g. http://localhost:8000
	Token   string        `yaml:"token"`  // Optional bearer token
	Timeout time.Duration `yaml:"timeout"`
}

// ConnectionConfig holds WebSocket channel settings.
type ConnectionConfig struct {
	Path             string        `yaml:"path"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	PingTimeout      time.Duration `yaml:"ping_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	BufferSize       int           `yaml:"buffer_size"`
}

// RefreshConfig holds refresh scheduler settings.
type RefreshConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ResourcesConfig controls the list resources' query parameters.
type ResourcesConfig struct {
	TransactionsLimit     int  `yaml:"transactions_limit"`
	AlertsLimit           int  `yaml:"alerts_limit"`
	IncludeResolvedAlerts bool `yaml:"include_resolved_alerts"`
}

// RecorderConfig holds the optional snapshot recorder settings.
type RecorderConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	Database      DBConfig      `yaml:"database"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds Prometheus metrics and health server settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
