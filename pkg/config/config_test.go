package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatewayConfig struct {
	Endpoint string `env:"ENDPOINT" envDefault:"https://api.trxps.com"`
	TestMode bool   `env:"TEST_MODE" envDefault:"true"`
	Timeout  int    `env:"TIMEOUT_SECONDS" envDefault:"10"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg gatewayConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, "https://api.trxps.com", cfg.Endpoint)
	assert.True(t, cfg.TestMode)
	assert.Equal(t, 10, cfg.Timeout)
}

func TestLoadWithPrefix(t *testing.T) {
	t.Setenv("TRXPS_ENDPOINT", "http://localhost:9999")
	t.Setenv("TRXPS_TEST_MODE", "false")

	var cfg gatewayConfig
	require.NoError(t, LoadWithPrefix(&cfg, "TRXPS_"))

	assert.Equal(t, "http://localhost:9999", cfg.Endpoint)
	assert.False(t, cfg.TestMode)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("TIMEOUT_SECONDS", "ten")

	var cfg gatewayConfig
	err := Load(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
