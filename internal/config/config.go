package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Match        MatchConfig
	Dynamo       DynamoConfig
	Logging      LoggingConfig
	Telemetry    TelemetryConfig
	GeminiAPIKey string
}

type ServerConfig struct {
	Host           string
	Port           int `validate:"min=1,max=65535"`
	Env            string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver     string `validate:"required,oneof=postgres sqlite dynamodb"`
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string

	MaxOpenConns    int `validate:"min=0"`
	MaxIdleConns    int `validate:"min=0"`
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int

	PoolSize     int `validate:"min=0"`
	MinIdleConns int `validate:"min=0"`
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PingTimeout  time.Duration
}

type JWTConfig struct {
	AccessSecret string
}

type MatchConfig struct {
	ReswipePolicy   string `validate:"oneof=forbid allow cooldown"`
	ReswipeCooldown time.Duration
	LockBackend     string `validate:"oneof=local redis"`
	LockTimeout     time.Duration
	LockTTL         time.Duration
	MaxAttempts     uint `validate:"min=1"`
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	DedupTTL        time.Duration
	EventQueueSize  int `validate:"min=1"`
	EventWorkers    int `validate:"min=1"`
	// EventHandlerTimeout bounds each subscriber call for one match event.
	EventHandlerTimeout time.Duration
}

type DynamoConfig struct {
	Region   string
	Table    string
	Endpoint string
}

type LoggingConfig struct {
	Level  string `validate:"omitempty,oneof=debug info warn error"`
	Format string `validate:"omitempty,oneof=text json"`
}

type TelemetryConfig struct {
	Endpoint    string
	ServiceName string
}

// Load loads configuration from environment variables or .env file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()
	setDefaults(v)

	// Try to read from .env file, but don't fail if it doesn't exist
	_ = v.ReadInConfig()

	config := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			Env:            v.GetString("ENV"),
			ReadTimeout:    v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetDuration("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(v.GetString("DB_DRIVER")),
			Host:       v.GetString("DB_HOST"),
			Port:       v.GetInt("DB_PORT"),
			User:       v.GetString("DB_USER"),
			Password:   v.GetString("DB_PASSWORD"),
			DBName:     v.GetString("DB_NAME"),
			SSLMode:    v.GetString("DB_SSL_MODE"),
			SQLitePath: v.GetString("SQLITE_PATH"),

			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			PingTimeout:     v.GetDuration("DB_PING_TIMEOUT"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),

			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
			PingTimeout:  v.GetDuration("REDIS_PING_TIMEOUT"),
		},
		JWT: JWTConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Match: MatchConfig{
			ReswipePolicy:   strings.ToLower(v.GetString("MATCH_RESWIPE_POLICY")),
			ReswipeCooldown: v.GetDuration("MATCH_RESWIPE_COOLDOWN"),
			LockBackend:     strings.ToLower(v.GetString("MATCH_LOCK_BACKEND")),
			LockTimeout:     v.GetDuration("MATCH_LOCK_TIMEOUT"),
			LockTTL:         v.GetDuration("MATCH_LOCK_TTL"),
			MaxAttempts:     v.GetUint("MATCH_MAX_ATTEMPTS"),
			InitialBackoff:  v.GetDuration("MATCH_INITIAL_BACKOFF"),
			MaxBackoff:      v.GetDuration("MATCH_MAX_BACKOFF"),
			DedupTTL:        v.GetDuration("MATCH_DEDUP_TTL"),
			EventQueueSize:  v.GetInt("MATCH_EVENT_QUEUE_SIZE"),
			EventWorkers:    v.GetInt("MATCH_EVENT_WORKERS"),

			EventHandlerTimeout: v.GetDuration("MATCH_EVENT_HANDLER_TIMEOUT"),
		},
		Dynamo: DynamoConfig{
			Region:   v.GetString("AWS_REGION"),
			Table:    v.GetString("DYNAMO_TABLE"),
			Endpoint: v.GetString("DYNAMO_ENDPOINT"),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
		},
		Telemetry: TelemetryConfig{
			Endpoint:    v.GetString("OTEL_ENDPOINT"),
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
		},
		GeminiAPIKey: v.GetString("GEMINI_API_KEY"),
	}

	// Validate critical configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", 15*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("SQLITE_PATH", "swipematch.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME", time.Hour)
	v.SetDefault("DB_PING_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 5)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_PING_TIMEOUT", 5*time.Second)
	v.SetDefault("MATCH_RESWIPE_POLICY", "forbid")
	v.SetDefault("MATCH_RESWIPE_COOLDOWN", 720*time.Hour)
	v.SetDefault("MATCH_LOCK_BACKEND", "local")
	v.SetDefault("MATCH_LOCK_TIMEOUT", 2*time.Second)
	v.SetDefault("MATCH_LOCK_TTL", 10*time.Second)
	v.SetDefault("MATCH_MAX_ATTEMPTS", 5)
	v.SetDefault("MATCH_INITIAL_BACKOFF", 10*time.Millisecond)
	v.SetDefault("MATCH_MAX_BACKOFF", 200*time.Millisecond)
	v.SetDefault("MATCH_DEDUP_TTL", 24*time.Hour)
	v.SetDefault("MATCH_EVENT_QUEUE_SIZE", 256)
	v.SetDefault("MATCH_EVENT_WORKERS", 2)
	v.SetDefault("MATCH_EVENT_HANDLER_TIMEOUT", 30*time.Second)
	v.SetDefault("DYNAMO_TABLE", "swipematch")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("OTEL_SERVICE_NAME", "swipematch")
}

// Validate validates critical configuration values
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name is required")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case "dynamodb":
		if c.Dynamo.Table == "" {
			return fmt.Errorf("dynamodb table is required")
		}
		if c.Dynamo.Region == "" {
			return fmt.Errorf("AWS region is required for dynamodb")
		}
	}

	if c.Match.LockBackend == "redis" && !c.Redis.Enabled() {
		return fmt.Errorf("redis host is required for the redis lock backend")
	}
	if c.Match.LockBackend == "redis" && c.Match.LockTTL <= c.Match.LockTimeout {
		return fmt.Errorf("lock TTL must be longer than the lock timeout")
	}
	if c.Match.ReswipePolicy == "cooldown" && c.Match.ReswipeCooldown <= 0 {
		return fmt.Errorf("reswipe cooldown must be positive")
	}
	return nil
}

// Validate checks the settings the HTTP API needs on top of Config.Validate.
func (c *JWTConfig) Validate() error {
	if c.AccessSecret == "" {
		return fmt.Errorf("JWT access secret is required")
	}
	if len(c.AccessSecret) < 32 {
		return fmt.Errorf("JWT access secret must be at least 32 characters")
	}
	return nil
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// GetAddr returns Redis address
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Enabled reports whether a Redis server is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
