package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Store backends accepted by STORE_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMinIO  = "minio"
)

const defaultFeedURL = "https://uvdata.arpansa.gov.au/xml/uvvalues.xml"

var validate = validator.New()

// Config holds all service settings, populated from environment variables.
type Config struct {
	FeedURL            string        `validate:"required,url"`
	FeedTimeout        time.Duration `validate:"gt=0"`
	FeedMaxBytes       int64         `validate:"gte=0"`
	BreakerMaxFailures uint32        `validate:"gt=0"`
	BreakerOpenTimeout time.Duration `validate:"gt=0"`

	RefreshInterval time.Duration `validate:"gt=0"`
	IngestTimeout   time.Duration `validate:"gt=0"`
	TimelineRefresh time.Duration `validate:"gt=0"`

	StoreBackend string `validate:"oneof=memory sqlite minio"`
	SQLitePath   string `validate:"required_if=StoreBackend sqlite"`

	MinIOEndpoint  string `validate:"required_if=StoreBackend minio"`
	MinIOAccessKey string `validate:"required_if=StoreBackend minio"`
	MinIOSecretKey string `validate:"required_if=StoreBackend minio"`
	MinIOBucket    string `validate:"required_if=StoreBackend minio"`
	MinIOUseSSL    bool

	// Kafka change feed; disabled when no brokers are configured.
	KafkaBrokers []string
	KafkaTopic   string `validate:"required_with=KafkaBrokers"`

	HTTPAddr        string        `validate:"required"`
	LogLevel        string        `validate:"oneof=debug info warn warning error"`
	LogFormat       string        `validate:"oneof=json text tint"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// KafkaEnabled reports whether snapshots should be published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	var errs []error
	duration := func(key, def string) time.Duration {
		d, err := parseDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}
	integer := func(key string, def int64) int64 {
		n, err := parseInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return n
	}
	count := func(key string, def uint32) uint32 {
		n, err := parseUint32(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return n
	}
	boolean := func(key string, def bool) bool {
		b, err := parseBool(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return b
	}

	cfg := &Config{
		FeedURL:            envOrDefault("FEED_URL", defaultFeedURL),
		FeedTimeout:        duration("FEED_TIMEOUT", "10s"),
		FeedMaxBytes:       integer("FEED_MAX_BYTES", 4<<20),
		BreakerMaxFailures: count("BREAKER_MAX_FAILURES", 5),
		BreakerOpenTimeout: duration("BREAKER_OPEN_TIMEOUT", "30s"),

		RefreshInterval: duration("REFRESH_INTERVAL", "1s"),
		IngestTimeout:   duration("INGEST_TIMEOUT", "15s"),
		TimelineRefresh: duration("TIMELINE_REFRESH", "5m"),

		StoreBackend: strings.ToLower(envOrDefault("STORE_BACKEND", BackendMemory)),
		SQLitePath:   envOrDefault("SQLITE_PATH", "data/uvfeed.db"),

		MinIOEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:    envOrDefault("MINIO_BUCKET", "uv-feed"),
		MinIOUseSSL:    boolean("MINIO_USE_SSL", false),

		KafkaBrokers: parseList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "uv-readings"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(envOrDefault("LOG_FORMAT", "json")),
		ShutdownTimeout: duration("SHUTDOWN_TIMEOUT", "10s"),
	}

	if len(errs) > 0 {
		return nil, errs[0]
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func parseInt(key string, def int64) (int64, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", key, s)
	}
	return n, nil
}

func parseUint32(key string, def uint32) (uint32, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an integer between 0 and %d", key, s, uint32(math.MaxUint32))
	}
	return uint32(n), nil
}

func parseBool(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

// parseList splits a comma-separated value, dropping empty items.
func parseList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
