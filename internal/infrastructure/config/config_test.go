package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "vibekit", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10*time.Second, cfg.Stripe.RequestTimeout)
		assert.Equal(t, 300*time.Second, cfg.Stripe.WebhookTolerance)
		assert.Equal(t, "usd", cfg.Stripe.DefaultCurrency)
		assert.True(t, cfg.Stripe.IsTestMode)
		assert.Equal(t, 72*time.Hour, cfg.Webhook.IdempotencyTTL)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, time.Minute, cfg.Telemetry.MetricsInterval)
		assert.False(t, cfg.Profiling.Enabled)
		assert.Equal(t, "http://localhost:4040", cfg.Profiling.ServerAddress)
	})

	t.Run("loads values from environment", func(t *testing.T) {
		t.Setenv("VIBEKIT_APP_PORT", "9090")
		t.Setenv("VIBEKIT_DATABASE_DRIVER", "sqlite")
		t.Setenv("VIBEKIT_STRIPE_SECRET_KEY", "sk_test_abc")
		t.Setenv("VIBEKIT_STRIPE_REQUEST_TIMEOUT", "3s")
		t.Setenv("VIBEKIT_HTTP_CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.App.Port)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, "sk_test_abc", cfg.Stripe.SecretKey)
		assert.Equal(t, 3*time.Second, cfg.Stripe.RequestTimeout)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSAllowOrigins)
	})

	t.Run("rejects live key in test mode", func(t *testing.T) {
		t.Setenv("VIBEKIT_STRIPE_SECRET_KEY", "sk_live_abc")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a test key")
	})

	t.Run("production requires webhook secret", func(t *testing.T) {
		t.Setenv("VIBEKIT_APP_ENV", "production")
		t.Setenv("VIBEKIT_JWT_SECRET", "0123456789abcdef0123456789abcdef")
		t.Setenv("VIBEKIT_STRIPE_SECRET_KEY", "sk_live_abc")
		t.Setenv("VIBEKIT_STRIPE_TEST_MODE", "false")
		t.Setenv("VIBEKIT_DATABASE_SSLMODE", "require")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "webhook_secret")
	})
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, base().validate())
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := base()
		cfg.Database.Driver = "mysql"
		assert.Error(t, cfg.validate())
	})

	t.Run("idle above open conns", func(t *testing.T) {
		cfg := base()
		cfg.Database.MaxIdleConns = 100
		assert.Error(t, cfg.validate())
	})

	t.Run("test key with live mode", func(t *testing.T) {
		cfg := base()
		cfg.Stripe.SecretKey = "sk_test_abc"
		cfg.Stripe.IsTestMode = false
		assert.Error(t, cfg.validate())
	})

	t.Run("wildcard cors in production", func(t *testing.T) {
		cfg := base()
		cfg.App.Env = "production"
		cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
		cfg.Stripe.SecretKey = "sk_live_abc"
		cfg.Stripe.WebhookSecret = "whsec_abc"
		cfg.Database.SSLMode = "require"
		cfg.HTTP.CORSAllowOrigins = []string{"*"}
		assert.Error(t, cfg.validate())

		cfg.HTTP.CORSAllowOrigins = []string{"https://app.example"}
		assert.NoError(t, cfg.validate())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss word", DBName: "vibekit", SSLMode: "disable"}

	assert.Equal(t, "postgres://app:p%40ss%20word@db:5432/vibekit?sslmode=disable", d.DSN())
}
