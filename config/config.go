package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppName                       string   `mapstructure:"APP_NAME"`
	Version                       string   `mapstructure:"APP_VERSION"`
	Port                          int      `mapstructure:"PORT"`
	LogLevel                      string   `mapstructure:"LOG_LEVEL"`
	PrettyLogs                    bool     `mapstructure:"PRETTY_LOGS"`
	HttpServerWriteTimeoutSeconds int      `mapstructure:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS"`
	HttpServerReadTimeoutSeconds  int      `mapstructure:"HTTP_SERVER_READ_TIMEOUT_SECONDS"`
	HttpServerIdleTimeoutSeconds  int      `mapstructure:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS"`
	ReadHeaderTimeoutSeconds      int      `mapstructure:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS"`
	MaxHeaderBytes                int      `mapstructure:"HTTP_SERVER_MAX_HEADER_BYTES"`
	AllowOrigins                  []string `mapstructure:"HTTP_SERVER_ALLOW_ORIGINS"`
	AllowMethods                  []string `mapstructure:"HTTP_SERVER_ALLOW_METHODS"`
	StartupMaxAttempts            int      `mapstructure:"STARTUP_MAX_ATTEMPTS"`

	// PostgreSQL
	DatabaseHost                  string        `mapstructure:"DB_HOST"`
	DatabasePort                  string        `mapstructure:"DB_PORT"`
	DatabaseUserName              string        `mapstructure:"DB_USER_NAME"`
	DatabasePassword              string        `mapstructure:"DB_PASSWORD"`
	DatabaseName                  string        `mapstructure:"DB_NAME"`
	DatabaseSSLMode               string        `mapstructure:"DB_SSL_MODE"`
	DatabaseMaxOpenConns          int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DatabaseMaxIdleConns          int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DatabaseConnMaxLifetime       time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	DatabaseMigrationFolderPath   string        `mapstructure:"DB_MIGRATION_FOLDER_PATH"`
	DatabaseMigrationVersion      int           `mapstructure:"DB_MIGRATION_VERSION"`
	DatabaseMigrationForce        int           `mapstructure:"DB_MIGRATION_FORCE"`
	DatabaseMigrationAutoRollback bool          `mapstructure:"DB_MIGRATION_AUTO_ROLLBACK"`
	DatabaseMigrateOnStartup      bool          `mapstructure:"DB_MIGRATE_ON_STARTUP"`

	// Auth
	AuthEnabled          bool     `mapstructure:"AUTH_ENABLED"`
	AuthIssuerURL        string   `mapstructure:"AUTH_ISSUER_URL"`
	AuthClientID         string   `mapstructure:"AUTH_CLIENT_ID"`
	BootstrapAdminEmails []string `mapstructure:"BOOTSTRAP_ADMIN_EMAILS"`

	// Redis
	RedisEnabled  bool   `mapstructure:"REDIS_ENABLED"`
	RedisHost     string `mapstructure:"REDIS_HOST"`
	RedisPort     int    `mapstructure:"REDIS_PORT"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Kafka producer (notification events)
	KafkaEnabled        bool          `mapstructure:"KAFKA_ENABLED"`
	KafkaBrokers        []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaOutputTopic    string        `mapstructure:"KAFKA_OUTPUT_TOPIC"`
	KafkaBatchSize      int           `mapstructure:"KAFKA_BATCH_SIZE"`
	KafkaBatchTimeout   int           `mapstructure:"KAFKA_BATCH_TIMEOUT_MS"`
	KafkaRequiredAcks   int           `mapstructure:"KAFKA_REQUIRED_ACKS"`
	KafkaCompression    string        `mapstructure:"KAFKA_COMPRESSION"`
	EventPublishTimeout time.Duration `mapstructure:"EVENT_PUBLISH_TIMEOUT"`

	// Tracing
	TracingEnabled bool   `mapstructure:"TRACING_ENABLED"`
	OTLPEndpoint   string `mapstructure:"OTLP_ENDPOINT"`
	OTLPProtocol   string `mapstructure:"OTLP_PROTOCOL"`
	OTLPInsecure   bool   `mapstructure:"OTLP_INSECURE"`
	MetricsEnabled bool   `mapstructure:"METRICS_ENABLED"`

	// Matching
	HistoryScoreThreshold    float64       `mapstructure:"HISTORY_SCORE_THRESHOLD"`
	HistoryAgeWindow         float64       `mapstructure:"HISTORY_AGE_WINDOW"`
	HistoryPoolMinSimilarity float64       `mapstructure:"HISTORY_POOL_MIN_SIMILARITY"`
	HistoryIncludeSelf       bool          `mapstructure:"HISTORY_INCLUDE_SELF"`
	BulkDefaultThreshold     float64       `mapstructure:"BULK_DEFAULT_THRESHOLD"`
	BulkDefaultSampleLimit   int           `mapstructure:"BULK_DEFAULT_SAMPLE_LIMIT"`
	BulkMaxSampleLimit       int           `mapstructure:"BULK_MAX_SAMPLE_LIMIT"`
	BulkMaxNames             int           `mapstructure:"BULK_MAX_NAMES"`
	BulkPoolCacheTTL         time.Duration `mapstructure:"BULK_POOL_CACHE_TTL"`
	AliasCacheTTL            time.Duration `mapstructure:"ALIAS_CACHE_TTL"`
	RecomputeBatchSize       int           `mapstructure:"RECOMPUTE_BATCH_SIZE"`
	RecomputeLockTTL         time.Duration `mapstructure:"RECOMPUTE_LOCK_TTL"`
	BulkRateLimit            int           `mapstructure:"BULK_RATE_LIMIT"`
	BulkRateWindow           time.Duration `mapstructure:"BULK_RATE_WINDOW"`
}

var defaults = map[string]any{
	"APP_NAME":                          "fern-api",
	"APP_VERSION":                       "dev",
	"PORT":                              3005,
	"LOG_LEVEL":                         "info",
	"PRETTY_LOGS":                       false,
	"HTTP_SERVER_WRITE_TIMEOUT_SECONDS": 30,
	"HTTP_SERVER_READ_TIMEOUT_SECONDS":  10,
	"HTTP_SERVER_IDLE_TIMEOUT_SECONDS":  10,
	"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS": 10,
	"HTTP_SERVER_MAX_HEADER_BYTES":            64000,
	"HTTP_SERVER_ALLOW_ORIGINS":               []string{"*"},
	"HTTP_SERVER_ALLOW_METHODS":               []string{"GET", "POST", "PUT", "DELETE"},
	"STARTUP_MAX_ATTEMPTS":                    5,

	"DB_HOST":                    "localhost",
	"DB_PORT":                    "5432",
	"DB_USER_NAME":               "",
	"DB_PASSWORD":                "",
	"DB_NAME":                    "fern",
	"DB_SSL_MODE":                "disable",
	"DB_MAX_OPEN_CONNS":          25,
	"DB_MAX_IDLE_CONNS":          10,
	"DB_CONN_MAX_LIFETIME":       "5m",
	"DB_MIGRATION_FOLDER_PATH":   "db/pg",
	"DB_MIGRATION_VERSION":       0,
	"DB_MIGRATION_FORCE":         0,
	"DB_MIGRATION_AUTO_ROLLBACK": true,
	"DB_MIGRATE_ON_STARTUP":      true,

	"AUTH_ENABLED":           false,
	"AUTH_ISSUER_URL":        "",
	"AUTH_CLIENT_ID":         "",
	"BOOTSTRAP_ADMIN_EMAILS": []string{},

	"REDIS_ENABLED":  false,
	"REDIS_HOST":     "localhost",
	"REDIS_PORT":     6379,
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"KAFKA_ENABLED":          false,
	"KAFKA_BROKERS":          []string{"localhost:9092"},
	"KAFKA_OUTPUT_TOPIC":     "fern-events",
	"KAFKA_BATCH_SIZE":       100,
	"KAFKA_BATCH_TIMEOUT_MS": 100,
	"KAFKA_REQUIRED_ACKS":    1,
	"KAFKA_COMPRESSION":      "snappy",
	"EVENT_PUBLISH_TIMEOUT":  "5s",

	"TRACING_ENABLED": false,
	"OTLP_ENDPOINT":   "localhost:4317",
	"OTLP_PROTOCOL":   "grpc",
	"OTLP_INSECURE":   true,
	"METRICS_ENABLED": true,

	"HISTORY_SCORE_THRESHOLD":     80.0,
	"HISTORY_AGE_WINDOW":          5.0,
	"HISTORY_POOL_MIN_SIMILARITY": 0.4,
	"HISTORY_INCLUDE_SELF":        true,
	"BULK_DEFAULT_THRESHOLD":      75.0,
	"BULK_DEFAULT_SAMPLE_LIMIT":   2000,
	"BULK_MAX_SAMPLE_LIMIT":       20000,
	"BULK_MAX_NAMES":              500,
	"BULK_POOL_CACHE_TTL":         "60s",
	"ALIAS_CACHE_TTL":             "5m",
	"RECOMPUTE_BATCH_SIZE":        500,
	"RECOMPUTE_LOCK_TTL":          "30m",
	"BULK_RATE_LIMIT":             30,
	"BULK_RATE_WINDOW":            "1m",
}

// Load reads an optional .env file, then environment variables, over the defaults.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.AllowOrigins = splitList(cfg.AllowOrigins)
	cfg.AllowMethods = splitList(cfg.AllowMethods)
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers)
	cfg.BootstrapAdminEmails = splitList(cfg.BootstrapAdminEmails)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.AuthEnabled && (c.AuthIssuerURL == "" || c.AuthClientID == "") {
		return fmt.Errorf("AUTH_ISSUER_URL and AUTH_CLIENT_ID are required when AUTH_ENABLED is set")
	}
	if c.HistoryScoreThreshold < 0 || c.HistoryScoreThreshold > 100 {
		return fmt.Errorf("HISTORY_SCORE_THRESHOLD must be within [0, 100], got %v", c.HistoryScoreThreshold)
	}
	if c.HistoryPoolMinSimilarity < 0 || c.HistoryPoolMinSimilarity >= 1 {
		return fmt.Errorf("HISTORY_POOL_MIN_SIMILARITY must be within [0, 1), got %v", c.HistoryPoolMinSimilarity)
	}
	if c.HistoryAgeWindow < 0 {
		return fmt.Errorf("HISTORY_AGE_WINDOW must not be negative, got %v", c.HistoryAgeWindow)
	}
	if c.BulkMaxSampleLimit < 1 || c.BulkDefaultSampleLimit < 1 {
		return fmt.Errorf("bulk sample limits must be positive")
	}
	if c.BulkRateLimit < 0 {
		return fmt.Errorf("BULK_RATE_LIMIT must not be negative, got %d", c.BulkRateLimit)
	}
	if c.RecomputeBatchSize < 1 {
		return fmt.Errorf("RECOMPUTE_BATCH_SIZE must be positive, got %d", c.RecomputeBatchSize)
	}
	return nil
}

// DatabaseDSN returns the lib/pq connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost, c.DatabasePort, c.DatabaseUserName, c.DatabasePassword, c.DatabaseName, c.DatabaseSSLMode)
}

// env values arrive as a single comma separated element
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
