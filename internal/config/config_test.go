package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "https://api.trxps.com", cfg.TrxpsEndpoint)
	assert.Equal(t, 10*time.Second, cfg.TrxpsTimeout)
	assert.Equal(t, 2*time.Second, cfg.TrxpsConnectTimeout)
	assert.True(t, cfg.TrxpsTestMode)
	assert.False(t, cfg.TrxpsDebugMode)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("TRXPS_TEST_MODE", "false")
	t.Setenv("TRXPS_LIVE_API_KEY", "live_1")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)

	st := cfg.DefaultSettings()
	assert.False(t, st.TestMode)
	assert.Equal(t, "live_1", st.ActiveAPIKey())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing jwt secret", map[string]string{"JWT_SECRET": ""}},
		{"bad port", map[string]string{"HTTP_PORT": "70000"}},
		{"bad driver", map[string]string{"STORE_DRIVER": "mysql"}},
		{"relative base url", map[string]string{"BASE_URL": "/shop"}},
		{"bad failure ratio", map[string]string{"CB_FAILURE_RATIO": "2"}},
		{"zero burst", map[string]string{"WEBHOOK_RATE_LIMIT_BURST": "0"}},
		{"unparsable timeout", map[string]string{"TRXPS_TIMEOUT": "ten"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "secret")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost: "db", PostgresPort: 5433, PostgresUser: "u", PostgresPass: "p",
		PostgresDB: "shop", PostgresSSL: "require",
	}
	assert.Equal(t, "postgres://u:p@db:5433/shop?sslmode=require", cfg.Postgres().DSN())
	assert.Equal(t, "db:5433", (&Config{RedisHost: "db", RedisPort: 5433}).Redis().Addr())
}
