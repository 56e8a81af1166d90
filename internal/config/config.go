package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultConfig returns the configuration used when no file is present.
// The network block pins Flow EVM Testnet; the clear-text key file is a
// deliberate convenience that is only acceptable against a testnet.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		HTTP: HTTPConfig{
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
		Wallet: WalletConfig{
			Mode:    "local",
			KeyFile: "wallet_data.json",
		},
		Network: NetworkConfig{
			ChainID: 545,
			Name:    "Flow EVM Testnet",
			RPCURL:  "https://testnet.evm.nodes.onflow.org",
			Currency: CurrencyConfig{
				Name:     "Flow",
				Symbol:   "FLOW",
				Decimals: 18,
			},
			ExplorerURL: "https://evm-testnet.flowscan.io",
		},
		LLM: LLMConfig{
			Model:             "gpt-4o-mini",
			MaxTokens:         2048,
			Temperature:       0.2,
			RequestTimeoutSec: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:         true,
			PushIntervalSec: 30,
		},
	}
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
// Environment variables override file values in both cases.
func LoadConfig(path string, logger *logrus.Logger) (*AppConfig, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Warnf("Configuration file %s not found, using defaults", path)
		applyEnvironmentOverrides(config)
		if err := validateConfig(config); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvironmentOverrides(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validateConfig checks if the configuration is valid.
func validateConfig(config *AppConfig) error {
	switch config.Wallet.Mode {
	case "local", "browser":
	default:
		return fmt.Errorf("wallet mode must be 'local' or 'browser', got '%s'", config.Wallet.Mode)
	}

	if config.Wallet.Mode == "browser" && config.Wallet.WalletRPCURL == "" {
		return fmt.Errorf("wallet_rpc_url must be set when wallet mode is 'browser'")
	}

	if config.Network.ChainID <= 0 {
		return fmt.Errorf("network chain_id must be positive")
	}
	if config.Network.RPCURL == "" {
		return fmt.Errorf("network rpc_url cannot be empty")
	}
	if config.Network.Currency.Decimals <= 0 {
		return fmt.Errorf("network currency decimals must be positive")
	}

	if config.LLM.Model == "" {
		return fmt.Errorf("llm model cannot be empty")
	}
	if config.LLM.RequestTimeoutSec <= 0 {
		return fmt.Errorf("llm request_timeout_sec must be positive")
	}

	return nil
}

// applyEnvironmentOverrides applies environment variable overrides to the configuration.
func applyEnvironmentOverrides(config *AppConfig) {
	if portStr := os.Getenv("PORT"); portStr != "" {
		if v, err := strconv.Atoi(portStr); err != nil {
			logrus.Warnf("Invalid PORT: %s", portStr)
		} else {
			config.HTTP.Port = v
		}
	}

	if mode := os.Getenv("WALLET_MODE"); mode != "" {
		config.Wallet.Mode = mode
	}
	if key := os.Getenv("WALLET_PRIVATE_KEY"); key != "" {
		config.Wallet.PrivateKey = key
	}
	if file := os.Getenv("WALLET_KEY_FILE"); file != "" {
		config.Wallet.KeyFile = file
	}
	if url := os.Getenv("WALLET_RPC_URL"); url != "" {
		config.Wallet.WalletRPCURL = url
	}

	if url := os.Getenv("FLOW_RPC_URL"); url != "" {
		config.Network.RPCURL = url
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}

	if name := os.Getenv("CDP_API_KEY_NAME"); name != "" {
		config.Managed.APIKeyName = name
	}
	if secret := os.Getenv("CDP_API_KEY_PRIVATE_KEY"); secret != "" {
		config.Managed.APIKeySecret = secret
	}
	if url := os.Getenv("CDP_API_BASE_URL"); url != "" {
		config.Managed.BaseURL = url
	}

	if url := os.Getenv("PROMETHEUS_REMOTE_WRITE_URL"); url != "" {
		config.Metrics.RemoteWriteURL = url
	}
	if user := os.Getenv("PROMETHEUS_REMOTE_WRITE_USER"); user != "" {
		config.Metrics.RemoteWriteUser = user
	}
	if pass := os.Getenv("PROMETHEUS_REMOTE_WRITE_PASS"); pass != "" {
		config.Metrics.RemoteWritePass = pass
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}
