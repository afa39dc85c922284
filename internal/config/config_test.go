package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.StorageDriver)
	assert.Equal(t, "offline", cfg.PaymentProvider)
	assert.Equal(t, 24*time.Hour, cfg.TradeTimerWindow)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.NotEmpty(t, cfg.AllowedOrigins)
	assert.NotEmpty(t, cfg.DatabaseURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("TRADE_TIMER_WINDOW", "2h")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.StorageDriver)
	assert.Equal(t, 2*time.Hour, cfg.TradeTimerWindow)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_DatabaseURLFromParts(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRESQL_HOST", "db")
	t.Setenv("POSTGRESQL_USER", "market")
	t.Setenv("POSTGRESQL_PASSWORD", "p@ss")
	t.Setenv("POSTGRESQL_DBNAME", "ledger")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://market:p%40ss@db:5432/ledger?sslmode=disable", cfg.DatabaseURL)
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://swap.example")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_RejectsUnknownDrivers(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	t.Setenv("STORAGE_DRIVER", "mongo")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("PAYMENT_PROVIDER", "stripe")
	t.Setenv("STRIPE_SECRET_KEY", "")
	_, err = Load()
	assert.Error(t, err)
}
