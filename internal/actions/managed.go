package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/Aliserag/flow-agentkit-starter/internal/config"
)

const defaultManagedBaseURL = "https://api.cdp.coinbase.com/platform"

// managedActions wraps the optional managed-API capability. It is only
// assembled when both credentials are configured; callers check
// cfg.Managed.Enabled() before constructing it.
type managedActions struct {
	cfg        config.ManagedConfig
	address    common.Address
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewManagedActions builds the managed-API provider. The HTTP client may be
// nil, in which case http.DefaultClient is used.
func NewManagedActions(cfg config.ManagedConfig, address common.Address, httpClient *http.Client, logger *logrus.Logger) Provider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultManagedBaseURL
	}
	return &managedActions{cfg: cfg, address: address, httpClient: httpClient, logger: logger}
}

func (m *managedActions) Name() string {
	return "managed"
}

func (m *managedActions) Actions() []Action {
	return []Action{
		{
			Name:        "request_faucet_funds",
			Description: "Requests testnet funds for the agent's wallet from the managed faucet service.",
			Schema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
			Execute: m.requestFaucetFunds,
		},
	}
}

func (m *managedActions) requestFaucetFunds(ctx context.Context, params map[string]interface{}) (string, error) {
	payload, err := json.Marshal(map[string]string{"address": m.address.Hex()})
	if err != nil {
		return "", fmt.Errorf("encode faucet request: %w", err)
	}

	url := strings.TrimRight(m.cfg.BaseURL, "/") + "/v1/faucet"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build faucet request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key-Name", m.cfg.APIKeyName)
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKeySecret)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("faucet request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("faucet request rejected (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	m.logger.Infof("Faucet funds requested for %s", m.address.Hex())
	return fmt.Sprintf("Faucet request accepted for %s: %s", m.address.Hex(), strings.TrimSpace(string(body))), nil
}
