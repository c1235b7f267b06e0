package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	Workers           int           `env:"WORKERS" envDefault:"1"`
	RulesPath         string        `env:"RULES_PATH"`                               // empty selects the built-in rule table
	MaxLineSize       int           `env:"MAX_LINE_SIZE_BYTES" envDefault:"1048576"` // 1MB
	OutputDir         string        `env:"OUTPUT_DIR" envDefault:"."`
	MetricsTextfile   string        `env:"METRICS_TEXTFILE"`
	RedactQueryParams []string      `env:"REDACT_QUERY_PARAMS" envSeparator:"," envDefault:"password,token,session,api_key"`
	PostgresURL       string        `env:"POSTGRES_URL"`
	RedisURL          string        `env:"REDIS_URL"`
	RedisStream       string        `env:"REDIS_STREAM" envDefault:"labeled_requests"`
	RedisStreamMaxLen int64         `env:"REDIS_STREAM_MAX_LEN" envDefault:"1000000"`
	RedisPublishRPS   float64       `env:"REDIS_PUBLISH_RPS" envDefault:"0"` // 0 disables throttling
	WALPath           string        `env:"WAL_PATH" envDefault:"./wal"`
	WALSegmentSize    int64         `env:"WAL_SEGMENT_SIZE_BYTES" envDefault:"104857600"`   // 100MB
	WALMaxDiskSize    int64         `env:"WAL_MAX_DISK_SIZE_BYTES" envDefault:"1073741824"` // 1GB
	SinkBatchSize     int           `env:"SINK_BATCH_SIZE" envDefault:"1000"`
	SinkRetryCount    int           `env:"SINK_RETRY_COUNT" envDefault:"3"`
	SinkRetryBackoff  time.Duration `env:"SINK_RETRY_BACKOFF" envDefault:"1s"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
