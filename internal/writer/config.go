package writer

import (
	"time"

	"github.com/rickgao/portfolio-sync/internal/config"
)

// Config holds batching settings for the recorder.
type Config struct {
	InstanceID    string
	BatchSize     int
	FlushInterval time.Duration
	BufferSize    int // Maximum queued changes before the oldest is dropped
}

// DefaultConfig returns the default recorder settings.
func DefaultConfig() Config {
	return Config{
		InstanceID:    "portfoliosync",
		BatchSize:     config.DefaultBatchSize,
		FlushInterval: config.DefaultFlushInterval,
		BufferSize:    config.DefaultBufferSize,
	}
}

// ConfigFromRecorder converts the file configuration.
func ConfigFromRecorder(instanceID string, rc config.RecorderConfig) Config {
	return Config{
		InstanceID:    instanceID,
		BatchSize:     rc.BatchSize,
		FlushInterval: rc.FlushInterval,
		BufferSize:    rc.BufferSize,
	}
}

// Stats tracks recorder activity.
type Stats struct {
	Received int64 `json:"received"` // Changes observed
	Dropped  int64 `json:"dropped"`  // Changes lost to a full or closed queue
	Inserts  int64 `json:"inserts"`  // Rows written
	Flushes  int64 `json:"flushes"`
	Errors   int64 `json:"errors"` // Failed flushes and unencodable values
}
