package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"BILLHUB_APP_NAME",
	"BILLHUB_APP_ENV",
	"BILLHUB_APP_PORT",
	"BILLHUB_DATABASE_DRIVER",
	"BILLHUB_DATABASE_HOST",
	"BILLHUB_DATABASE_PORT",
	"BILLHUB_DATABASE_PASSWORD",
	"BILLHUB_DATABASE_SSLMODE",
	"BILLHUB_DATABASE_AUTO_MIGRATE",
	"BILLHUB_DATABASE_MAX_OPEN_CONNS",
	"BILLHUB_DATABASE_MAX_IDLE_CONNS",
	"BILLHUB_BILLING_CROSS_BILL_POLICY",
	"BILLHUB_BILLING_LOCK_TIMEOUT",
	"BILLHUB_STORAGE_ENABLED",
	"BILLHUB_STORAGE_BUCKET",
	"BILLHUB_EXPORT_TIMEZONE",
	"BILLHUB_SWAGGER_ENABLED",
	"BILLHUB_SWAGGER_ALLOWED_IPS",
	"BILLHUB_TELEMETRY_SAMPLING_RATIO",
	"BILLHUB_TELEMETRY_DB_LOG_FULL_SQL",
}

// isolateEnv clears every config variable for the duration of the test
func isolateEnv(t *testing.T) {
	t.Helper()
	saved := make(map[string]string, len(configEnvKeys))
	for _, k := range configEnvKeys {
		saved[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for k, v := range saved {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		isolateEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "billhub", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "billhub", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, "ignore", cfg.Billing.CrossBillPolicy)
		assert.Equal(t, 5*time.Second, cfg.Billing.LockTimeout)
		assert.Equal(t, 24*time.Hour, cfg.Billing.IdempotencyTTL)
		assert.Equal(t, 15*time.Minute, cfg.Storage.PresignExpiration)
		assert.Equal(t, "bills", cfg.Export.KeyPrefix)
		assert.Equal(t, "en", cfg.Export.Locale)
		assert.Equal(t, "UTC", cfg.Export.Timezone)
		assert.Equal(t, "billhub", cfg.Telemetry.ServiceName)
	})

	t.Run("loads values from environment variables with BILLHUB prefix", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("BILLHUB_APP_NAME", "ledger")
		os.Setenv("BILLHUB_APP_PORT", "9000")
		os.Setenv("BILLHUB_DATABASE_DRIVER", "sqlite")
		os.Setenv("BILLHUB_DATABASE_MAX_OPEN_CONNS", "1")
		os.Setenv("BILLHUB_DATABASE_MAX_IDLE_CONNS", "1")
		os.Setenv("BILLHUB_BILLING_CROSS_BILL_POLICY", "reject")
		os.Setenv("BILLHUB_BILLING_LOCK_TIMEOUT", "750ms")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "ledger", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, 1, cfg.Database.MaxOpenConns)
		assert.Equal(t, "reject", cfg.Billing.CrossBillPolicy)
		assert.Equal(t, 750*time.Millisecond, cfg.Billing.LockTimeout)
		assert.Equal(t, "ledger", cfg.Telemetry.ServiceName)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("BILLHUB_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("BILLHUB_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("BILLHUB_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("rejects unknown cross bill policy", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("BILLHUB_BILLING_CROSS_BILL_POLICY", "warn")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cross_bill_policy")
	})

	t.Run("rejects unknown export timezone", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("BILLHUB_EXPORT_TIMEZONE", "Mars/Olympus")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "export.timezone")
	})

	t.Run("rejects sampling ratio out of range", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("BILLHUB_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func() {
		os.Setenv("BILLHUB_APP_ENV", "production")
		os.Setenv("BILLHUB_DATABASE_PASSWORD", "secure-password")
		os.Setenv("BILLHUB_DATABASE_SSLMODE", "require")
		os.Setenv("BILLHUB_SWAGGER_ENABLED", "false")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()
		os.Unsetenv("BILLHUB_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()
		os.Setenv("BILLHUB_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("rejects sqlite in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()
		os.Setenv("BILLHUB_DATABASE_DRIVER", "sqlite")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be 'postgres' in production")
	})

	t.Run("fails if swagger enabled without IP restriction in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()
		os.Setenv("BILLHUB_SWAGGER_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "swagger endpoint must be disabled or have IP restriction")
	})

	t.Run("passes with swagger restricted by IP in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()
		os.Setenv("BILLHUB_SWAGGER_ENABLED", "true")
		os.Setenv("BILLHUB_SWAGGER_ALLOWED_IPS", "10.0.0.1")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, []string{"10.0.0.1"}, cfg.Swagger.AllowedIPs)
	})

	t.Run("rejects full SQL tracing in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()
		os.Setenv("BILLHUB_TELEMETRY_DB_LOG_FULL_SQL", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db_log_full_sql")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "/testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.Addr())
}
