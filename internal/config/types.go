package config

import "time"

// AppConfig is the root configuration for the agent server and the chat client.
type AppConfig struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Wallet  WalletConfig  `yaml:"wallet"`
	Network NetworkConfig `yaml:"network"`
	LLM     LLMConfig     `yaml:"llm"`
	Managed ManagedConfig `yaml:"managed"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// HTTPConfig configures the REST bridge server.
type HTTPConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WalletConfig selects and configures the wallet provider.
// Mode is an explicit strategy ("local" or "browser") rather than runtime
// detection so the selection is testable and deterministic.
type WalletConfig struct {
	Mode       string `yaml:"mode"`
	PrivateKey string `yaml:"private_key"`
	KeyFile    string `yaml:"key_file"`
	// WalletRPCURL is the JSON-RPC endpoint of the external (browser-injected)
	// wallet used in browser mode. Read-only chain calls still go through the
	// network RPC endpoint.
	WalletRPCURL string `yaml:"wallet_rpc_url"`
}

// NetworkConfig is the single source of truth for the target network identity.
// Both the server-side wallet providers and the client-side network
// registration flow consume this value.
type NetworkConfig struct {
	ChainID     int64          `yaml:"chain_id"`
	Name        string         `yaml:"name"`
	RPCURL      string         `yaml:"rpc_url"`
	Currency    CurrencyConfig `yaml:"currency"`
	ExplorerURL string         `yaml:"explorer_url"`
}

// CurrencyConfig describes the native currency of the target network.
type CurrencyConfig struct {
	Name     string `yaml:"name"`
	Symbol   string `yaml:"symbol"`
	Decimals int    `yaml:"decimals"`
}

// LLMConfig configures the reasoning loop. BaseURL overrides the OpenAI API
// endpoint, for proxies and compatible providers.
type LLMConfig struct {
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	MaxTokens         int     `yaml:"max_tokens"`
	Temperature       float32 `yaml:"temperature"`
	RequestTimeoutSec int     `yaml:"request_timeout_sec"`
}

// ManagedConfig gates the optional managed-API action provider. The provider
// is only assembled when both credentials are present.
type ManagedConfig struct {
	APIKeyName   string `yaml:"api_key_name"`
	APIKeySecret string `yaml:"api_key_secret"`
	BaseURL      string `yaml:"base_url"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint and the optional
// remote-write push loop.
type MetricsConfig struct {
	Enabled         bool   `yaml:"enabled"`
	RemoteWriteURL  string `yaml:"remote_write_url"`
	PushIntervalSec int    `yaml:"push_interval_sec"`
	RemoteWriteUser string `yaml:"remote_write_user"`
	RemoteWritePass string `yaml:"remote_write_pass"`
}

// PushInterval returns the remote-write cadence as a duration.
func (m MetricsConfig) PushInterval() time.Duration {
	return time.Duration(m.PushIntervalSec) * time.Second
}

// Enabled reports whether the managed provider has the credentials it needs.
func (m ManagedConfig) Enabled() bool {
	return m.APIKeyName != "" && m.APIKeySecret != ""
}

// RequestTimeout returns the reasoning-loop timeout as a duration.
func (l LLMConfig) RequestTimeout() time.Duration {
	return time.Duration(l.RequestTimeoutSec) * time.Second
}
