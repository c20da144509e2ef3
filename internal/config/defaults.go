package config

import (
	"os"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultOrigin            = "http://localhost:8000"
	DefaultAPITimeout        = 30 * time.Second
	DefaultWSPath            = "/ws"
	DefaultRetryDelay        = 3 * time.Second
	DefaultPingInterval      = 30 * time.Second
	DefaultPingTimeout       = 90 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultConnBufferSize    = 256
	DefaultRefreshInterval   = 5 * time.Second
	DefaultRefreshTimeout    = 10 * time.Second
	DefaultTransactionsLimit = 10
	DefaultAlertsLimit       = 10
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 1
	DefaultBatchSize         = 100
	DefaultFlushInterval     = 1 * time.Second
	DefaultBufferSize        = 1000
	DefaultMetricsPort       = 9090
	DefaultMetricsPath       = "/metrics"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// DefaultRefreshConcurrency fetches every resource of a round at once.
const DefaultRefreshConcurrency = 5

func (c *Config) applyDefaults() {
	if c.Instance.ID == "" {
		if host, err := os.Hostname(); err == nil {
			c.Instance.ID = host
		} else {
			c.Instance.ID = "portfoliosync"
		}
	}

	// API defaults
	if c.API.Origin == "" {
		c.API.Origin = DefaultOrigin
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}

	// Connection defaults
	if c.Connection.Path == "" {
		c.Connection.Path = DefaultWSPath
	}
	if c.Connection.RetryDelay == 0 {
		c.Connection.RetryDelay = DefaultRetryDelay
	}
	if c.Connection.PingInterval == 0 {
		c.Connection.PingInterval = DefaultPingInterval
	}
	if c.Connection.PingTimeout == 0 {
		c.Connection.PingTimeout = DefaultPingTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.HandshakeTimeout == 0 {
		c.Connection.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Connection.BufferSize == 0 {
		c.Connection.BufferSize = DefaultConnBufferSize
	}

	// Refresh defaults
	if c.Refresh.Interval == 0 {
		c.Refresh.Interval = DefaultRefreshInterval
	}
	if c.Refresh.Concurrency == 0 {
		c.Refresh.Concurrency = DefaultRefreshConcurrency
	}
	if c.Refresh.Timeout == 0 {
		c.Refresh.Timeout = DefaultRefreshTimeout
	}

	// Resource defaults
	if c.Resources.TransactionsLimit == 0 {
		c.Resources.TransactionsLimit = DefaultTransactionsLimit
	}
	if c.Resources.AlertsLimit == 0 {
		c.Resources.AlertsLimit = DefaultAlertsLimit
	}

	// Recorder defaults
	if c.Recorder.BatchSize == 0 {
		c.Recorder.BatchSize = DefaultBatchSize
	}
	if c.Recorder.FlushInterval == 0 {
		c.Recorder.FlushInterval = DefaultFlushInterval
	}
	if c.Recorder.BufferSize == 0 {
		c.Recorder.BufferSize = DefaultBufferSize
	}
	applyDBDefaults(&c.Recorder.Database)

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
