package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// DBConfig holds database configuration
type DBConfig struct {
	URL             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	TimeZone        string
	LogLevel        string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns DATABASE_URL when set, otherwise a key/value Postgres DSN.
func (c DBConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone,
	)
}

type ServerConfig struct {
	Port        string
	MetricsPort string
	Env         string
}

type LogConfig struct {
	Level string
}

// QueueConfig selects where invoice notifications are queued.
// Driver is "redis" or "memory".
type QueueConfig struct {
	Driver        string
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	Key           string
	Workers       int
	Buffer        int
	MaxAttempts   int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type ReportConfig struct {
	LowStockThreshold int
}

// Config holds all configuration
type Config struct {
	ServiceName string
	Server      ServerConfig
	DB          DBConfig
	Log         LogConfig
	Queue       QueueConfig
	SMTP        SMTPConfig
	Report      ReportConfig
}

// Load reads .env (if present) and the process environment.
func Load(serviceName string) *Config {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	return &Config{
		ServiceName: serviceName,
		Server: ServerConfig{
			Port:        getEnv("PORT", "3000"),
			MetricsPort: getEnv("METRICS_PORT", "9091"),
			Env:         getEnv("APP_ENV", "development"),
		},
		DB: DBConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "billing"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			TimeZone:        getEnv("DB_TIMEZONE", "UTC"),
			LogLevel:        getEnv("DB_LOG_LEVEL", "warn"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Queue: QueueConfig{
			Driver:        getEnv("QUEUE_DRIVER", "memory"),
			RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			Key:           getEnv("INVOICE_QUEUE_KEY", "invoice:queue"),
			Workers:       getEnvAsInt("NOTIFY_WORKERS", 2),
			Buffer:        getEnvAsInt("NOTIFY_BUFFER", 256),
			MaxAttempts:   getEnvAsInt("NOTIFY_MAX_ATTEMPTS", 3),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "yourshop@example.com"),
		},
		Report: ReportConfig{
			LowStockThreshold: getEnvAsInt("LOW_STOCK_THRESHOLD", 10),
		},
	}
}

// Fields returns the non-secret configuration as zap fields for startup logging.
func (c *Config) Fields() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("port", c.Server.Port),
		zap.String("db_host", c.DB.Host),
		zap.String("db_name", c.DB.Name),
		zap.String("queue_driver", c.Queue.Driver),
		zap.Bool("smtp_enabled", c.SMTP.Host != ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
