package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Kafka       KafkaConfig
	Redis       RedisConfig
	Stripe      StripeConfig
	Auth        AuthConfig
	Ticketing   TicketingConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	RateLimit    int
	CORSOrigins  []string
}

type DatabaseConfig struct {
	// Driver is one of mysql, sqlite or memory.
	Driver       string
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type KafkaConfig struct {
	Brokers  []string
	GroupID  string
	MockMode bool
	// OrderTopic carries order.completed events from checkout.
	OrderTopic string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

type StripeConfig struct {
	SecretKey string
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

type TicketingConfig struct {
	SigningSecret string
}

// LoadEnv loads .env.<env>, falling back to .env. Missing files are not an error.
func LoadEnv(env, envFile string) string {
	if envFile != "" {
		if err := godotenv.Load(envFile); err == nil {
			return envFile
		}
	}
	specific := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(specific); err == nil {
		return specific
	}
	if err := godotenv.Load(); err == nil {
		return ".env"
	}
	return ""
}

func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8086"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
			RateLimit:    getEnvAsInt("RATE_LIMIT_RPS", 100),
			CORSOrigins:  getEnvAsSlice("CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "mysql"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "3306"),
			Username:     getEnv("DB_USER", "root"),
			Password:     getEnv("DB_PASS", "password"),
			Database:     getEnv("DB_NAME", "eventhub"),
			SQLitePath:   getEnv("SQLITE_PATH", "eventhub.db"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Kafka: KafkaConfig{
			Brokers:    getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:29092"}),
			GroupID:    getEnv("KAFKA_GROUP_ID", "ticketing-service"),
			MockMode:   getEnvAsBool("KAFKA_MOCK_MODE", true),
			OrderTopic: getEnv("KAFKA_ORDER_TOPIC", "order.completed"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			LockTTL:  getEnvAsDuration("TICKET_ISSUE_LOCK_TTL", "2m"),
		},
		Stripe: StripeConfig{
			SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", "eventhub"),
		},
		Ticketing: TicketingConfig{
			SigningSecret: getEnv("TICKET_SIGNING_SECRET", ""),
		},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate rejects configurations the service cannot safely run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "mysql", "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver))
	}

	if c.Ticketing.SigningSecret == "" {
		if !c.IsDevelopment() {
			errs = append(errs, errors.New("TICKET_SIGNING_SECRET is required"))
		}
	} else if len(c.Ticketing.SigningSecret) < 32 {
		errs = append(errs, errors.New("TICKET_SIGNING_SECRET must be at least 32 bytes"))
	}

	if c.Auth.JWTSecret == "" && !c.IsDevelopment() {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	if !c.Kafka.MockMode && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required unless KAFKA_MOCK_MODE is set"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, defaultValue)); err == nil {
		return d
	}
	d, _ := time.ParseDuration(defaultValue)
	return d
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
