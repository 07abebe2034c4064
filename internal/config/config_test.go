package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := Load()

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, []string{"localhost:29092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Minute, cfg.Redis.LockTTL)
	assert.True(t, cfg.Kafka.MockMode)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("KAFKA_MOCK_MODE", "false")
	t.Setenv("SERVER_READ_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_RPS", "notanumber")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Kafka.MockMode)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 100, cfg.Server.RateLimit)
	assert.False(t, cfg.IsDevelopment())
}

func TestValidate(t *testing.T) {
	secret := strings.Repeat("s", 32)

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "development without secrets",
			mutate: func(c *Config) {},
		},
		{
			name:    "production requires signing secret",
			mutate:  func(c *Config) { c.Environment = "production"; c.Auth.JWTSecret = "jwt" },
			wantErr: "TICKET_SIGNING_SECRET is required",
		},
		{
			name:    "short signing secret",
			mutate:  func(c *Config) { c.Ticketing.SigningSecret = "short" },
			wantErr: "at least 32 bytes",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "postgres" },
			wantErr: "unsupported DB_DRIVER",
		},
		{
			name: "production fully configured",
			mutate: func(c *Config) {
				c.Environment = "production"
				c.Ticketing.SigningSecret = secret
				c.Auth.JWTSecret = "jwt"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Environment: "development",
				Database:    DatabaseConfig{Driver: "memory"},
				Kafka:       KafkaConfig{MockMode: true},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
