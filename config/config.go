package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	Server     ServerConfig
	Redis      RedisConfig
	Transport  TransportConfig
	Attendance AttendanceConfig
	Bulk       BulkConfig
	Portal     PortalConfig
	Log        LogConfig
	Kafka      KafkaConfig
}

type ServerConfig struct {
	HTTPPort     int
	APIKey       string // shared secret for the bulk attendance endpoint
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
}

type TransportConfig struct {
	AuthDir        string // parent dir; one credential folder per tenant
	TenantsFile    string // newline-delimited tenant id registry
	RulesFile      string
	ReconnectDelay time.Duration
	LogoutTimeout  time.Duration
	MaxInboundAge  time.Duration // inbound messages older than this are dropped
}

type AttendanceConfig struct {
	TickInterval time.Duration
	Timezone     string // fixed reference zone for window classification
}

type BulkConfig struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

type PortalConfig struct {
	BaseURL            string
	JWTSecret          string
	TokenTTL           time.Duration
	RequestTimeout     time.Duration
	AdminAlertInterval time.Duration
	CacheSyncInterval  time.Duration
}

type KafkaConfig struct {
	Brokers              []string
	ProducerRetryMax     int
	ProducerRequiredAcks int
	Enabled              bool
}

type LogConfig struct {
	Level    string
	Mode     string
	Encoding string
}

func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("ENV", "development"),
		Server: ServerConfig{
			HTTPPort:     getEnvAsInt("SERVER_HTTP_PORT", 3200),
			APIKey:       getEnv("DEN_API_KEY", ""),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			MaxRetries:   getEnvAsInt("REDIS_MAX_RETRIES", 3),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		Transport: TransportConfig{
			AuthDir:        getEnv("TRANSPORT_AUTH_DIR", "auth_state"),
			TenantsFile:    getEnv("TENANTS_FILE", "tenants.txt"),
			RulesFile:      getEnv("RULES_FILE", "rules.json"),
			ReconnectDelay: getEnvAsDuration("TRANSPORT_RECONNECT_DELAY", 2*time.Second),
			LogoutTimeout:  getEnvAsDuration("TRANSPORT_LOGOUT_TIMEOUT", 3*time.Second),
			MaxInboundAge:  getEnvAsDuration("TRANSPORT_MAX_INBOUND_AGE", time.Minute),
		},
		Attendance: AttendanceConfig{
			TickInterval: getEnvAsDuration("ATTENDANCE_TICK_INTERVAL", time.Minute),
			Timezone:     getEnv("ATTENDANCE_TIMEZONE", "UTC"),
		},
		Bulk: BulkConfig{
			MinDelay: getEnvAsDuration("BULK_MIN_DELAY", 20*time.Second),
			MaxDelay: getEnvAsDuration("BULK_MAX_DELAY", 50*time.Second),
		},
		Portal: PortalConfig{
			BaseURL:            getEnv("PORTAL_BASE_URL", "http://localhost:8080"),
			JWTSecret:          getEnv("PORTAL_JWT_SECRET", ""),
			TokenTTL:           getEnvAsDuration("PORTAL_TOKEN_TTL", 5*time.Minute),
			RequestTimeout:     getEnvAsDuration("PORTAL_REQUEST_TIMEOUT", 15*time.Second),
			AdminAlertInterval: getEnvAsDuration("PORTAL_ADMIN_ALERT_INTERVAL", 30*time.Minute),
			CacheSyncInterval:  getEnvAsDuration("PORTAL_CACHE_SYNC_INTERVAL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers:              getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			ProducerRetryMax:     getEnvAsInt("KAFKA_PRODUCER_RETRY_MAX", 3),
			ProducerRequiredAcks: getEnvAsInt("KAFKA_PRODUCER_REQUIRED_ACKS", 1),
			Enabled:              getEnvAsBool("KAFKA_ENABLED", false),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Mode:     getEnv("LOG_MODE", "development"),
			Encoding: getEnv("LOG_ENCODING", "console"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.HTTPPort)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if _, err := timeLoadLocation(c.Attendance.Timezone); err != nil {
		return fmt.Errorf("invalid attendance timezone %q: %w", c.Attendance.Timezone, err)
	}

	if c.Bulk.MinDelay > c.Bulk.MaxDelay {
		return fmt.Errorf("bulk min delay %v exceeds max delay %v", c.Bulk.MinDelay, c.Bulk.MaxDelay)
	}

	if c.Env == "production" {
		if c.Server.APIKey == "" {
			return fmt.Errorf("DEN_API_KEY must be set in production")
		}
		if c.Portal.JWTSecret == "" {
			return fmt.Errorf("PORTAL_JWT_SECRET must be set in production")
		}
	}

	return nil
}

// indirection for Validate; time.LoadLocation hits the zone database.
var timeLoadLocation = time.LoadLocation

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
