package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Push transports.
const (
	PushTransportStomp = "stomp"
	PushTransportRedis = "redis"
	PushTransportNone  = "none"
)

// Snapshot sources.
const (
	SnapshotSourceHTTP     = "http"
	SnapshotSourcePostgres = "postgres"
)

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	ServerPort      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Worker API configuration
	WorkerAPIURL      string
	WorkerAPIToken    string
	WorkerAPITimeout  time.Duration
	WorkerAPIRetryMax int

	// Polling configuration
	PollInterval       time.Duration
	PollTimeout        time.Duration
	OnDemandFetchRate  float64
	OnDemandFetchBurst int

	// Push configuration
	PushTransport    string
	PushURL          string
	PushHeartBeat    time.Duration
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration

	// Snapshot source configuration
	SnapshotSource string

	// Database configuration, used when SnapshotSource is postgres
	DBHost              string
	DBPort              int
	DBUser              string
	DBPassword          string
	DBName              string
	DBSSLMode           string
	DBMaxConns          int32
	DBMinConns          int32
	DBMaxConnLifetime   time.Duration
	DBMaxConnIdleTime   time.Duration
	DBHealthCheckPeriod time.Duration

	// Store configuration
	SubscriberBuffer int
	MergeQueueSize   int

	// Logging configuration
	LogLevel string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first; variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		// Event streams stay open; a write timeout would cut them off.
		ReadTimeout:         getEnvDuration("HTTP_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:        getEnvDuration("HTTP_WRITE_TIMEOUT", 0),
		IdleTimeout:         getEnvDuration("HTTP_IDLE_TIMEOUT", 120*time.Second),
		ShutdownTimeout:     getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		WorkerAPIURL:        getEnv("WORKER_API_URL", "http://localhost:8081/api"),
		WorkerAPIToken:      getEnv("WORKER_API_TOKEN", ""),
		WorkerAPITimeout:    getEnvDuration("WORKER_API_TIMEOUT", 10*time.Second),
		WorkerAPIRetryMax:   getEnvInt("WORKER_API_RETRY_MAX", 3),
		PollInterval:        getEnvDuration("POLL_INTERVAL", 3*time.Second),
		PollTimeout:         getEnvDuration("POLL_TIMEOUT", 10*time.Second),
		OnDemandFetchRate:   getEnvFloat("ON_DEMAND_FETCH_RATE", 1),
		OnDemandFetchBurst:  getEnvInt("ON_DEMAND_FETCH_BURST", 1),
		PushTransport:       getEnv("PUSH_TRANSPORT", PushTransportStomp),
		PushURL:             getEnv("PUSH_URL", "ws://localhost:8081/ws/websocket"),
		PushHeartBeat:       getEnvDuration("PUSH_HEARTBEAT", 10*time.Second),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		ReconnectInitial:    getEnvDuration("RECONNECT_INITIAL", 500*time.Millisecond),
		ReconnectMax:        getEnvDuration("RECONNECT_MAX", 30*time.Second),
		SnapshotSource:      getEnv("SNAPSHOT_SOURCE", SnapshotSourceHTTP),
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              getEnvInt("DB_PORT", 5432),
		DBUser:              getEnv("DB_USER", "postgres"),
		DBPassword:          getEnv("DB_PASSWORD", "postgres"),
		DBName:              getEnv("DB_NAME", "migratehero"),
		DBSSLMode:           getEnv("DB_SSL_MODE", "disable"),
		DBMaxConns:          int32(getEnvInt("DB_MAX_CONNS", 10)),
		DBMinConns:          int32(getEnvInt("DB_MIN_CONNS", 1)),
		DBMaxConnLifetime:   getEnvDuration("DB_MAX_CONN_LIFETIME", time.Hour),
		DBMaxConnIdleTime:   getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		DBHealthCheckPeriod: getEnvDuration("DB_HEALTH_CHECK_PERIOD", time.Minute),
		SubscriberBuffer:    getEnvInt("SUBSCRIBER_BUFFER", 16),
		MergeQueueSize:      getEnvInt("MERGE_QUEUE_SIZE", 256),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate validates the configuration.
func (c *Config) validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}
	if u, err := url.Parse(c.WorkerAPIURL); err != nil || u.Host == "" {
		return fmt.Errorf("WORKER_API_URL must be an absolute URL")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("POLL_TIMEOUT must be positive")
	}
	if c.OnDemandFetchRate <= 0 || c.OnDemandFetchBurst < 1 {
		return fmt.Errorf("ON_DEMAND_FETCH_RATE must be positive and ON_DEMAND_FETCH_BURST at least 1")
	}
	if c.WorkerAPIRetryMax < 0 {
		return fmt.Errorf("WORKER_API_RETRY_MAX must not be negative")
	}
	if c.ReconnectInitial <= 0 || c.ReconnectMax < c.ReconnectInitial {
		return fmt.Errorf("RECONNECT_INITIAL must be positive and not exceed RECONNECT_MAX")
	}

	switch c.PushTransport {
	case PushTransportStomp:
		if u, err := url.Parse(c.PushURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return fmt.Errorf("PUSH_URL must be a ws:// or wss:// URL")
		}
	case PushTransportRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis push transport")
		}
	case PushTransportNone:
	default:
		return fmt.Errorf("PUSH_TRANSPORT must be one of stomp, redis, none")
	}

	switch c.SnapshotSource {
	case SnapshotSourceHTTP:
	case SnapshotSourcePostgres:
		if c.DBHost == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.DBUser == "" {
			return fmt.Errorf("DB_USER is required")
		}
		if c.DBName == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	default:
		return fmt.Errorf("SNAPSHOT_SOURCE must be one of http, postgres")
	}

	if c.SubscriberBuffer < 1 {
		return fmt.Errorf("SUBSCRIBER_BUFFER must be at least 1")
	}
	if c.MergeQueueSize < 1 {
		return fmt.Errorf("MERGE_QUEUE_SIZE must be at least 1")
	}
	return nil
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as int with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as duration with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
