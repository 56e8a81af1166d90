package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "local", cfg.Wallet.Mode)
	assert.Equal(t, int64(545), cfg.Network.ChainID)
	assert.Equal(t, "Flow EVM Testnet", cfg.Network.Name)
	assert.Equal(t, "FLOW", cfg.Network.Currency.Symbol)
	assert.Equal(t, 18, cfg.Network.Currency.Decimals)
	assert.False(t, cfg.Managed.Enabled())

	require.NoError(t, validateConfig(cfg))
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), testLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Network, cfg.Network)
}

func TestLoadConfig_MissingFileStillValidates(t *testing.T) {
	t.Setenv("WALLET_MODE", "hardware")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), testLogger())
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadConfig_FileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
http:
  port: 9090
wallet:
  mode: browser
  wallet_rpc_url: http://localhost:8545
llm:
  model: gpt-4o
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "browser", cfg.Wallet.Mode)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	// Untouched sections keep their defaults.
	assert.Equal(t, int64(545), cfg.Network.ChainID)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("WALLET_MODE", "local")
	t.Setenv("WALLET_PRIVATE_KEY", "deadbeef")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LLM_MODEL", "gpt-4o")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), testLogger())
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.HTTP.Port)
	assert.Equal(t, "deadbeef", cfg.Wallet.PrivateKey)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		valid  bool
	}{
		{"defaults", func(c *AppConfig) {}, true},
		{"bad wallet mode", func(c *AppConfig) { c.Wallet.Mode = "auto" }, false},
		{"browser without rpc url", func(c *AppConfig) { c.Wallet.Mode = "browser" }, false},
		{"browser with rpc url", func(c *AppConfig) {
			c.Wallet.Mode = "browser"
			c.Wallet.WalletRPCURL = "http://localhost:8545"
		}, true},
		{"zero chain id", func(c *AppConfig) { c.Network.ChainID = 0 }, false},
		{"empty rpc url", func(c *AppConfig) { c.Network.RPCURL = "" }, false},
		{"empty model", func(c *AppConfig) { c.LLM.Model = "" }, false},
		{"zero timeout", func(c *AppConfig) { c.LLM.RequestTimeoutSec = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestManagedEnabled(t *testing.T) {
	assert.False(t, ManagedConfig{APIKeyName: "name"}.Enabled())
	assert.False(t, ManagedConfig{APIKeySecret: "secret"}.Enabled())
	assert.True(t, ManagedConfig{APIKeyName: "name", APIKeySecret: "secret"}.Enabled())
}
