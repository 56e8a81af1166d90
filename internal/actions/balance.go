package actions

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/Aliserag/flow-agentkit-starter/internal/config"
	"github.com/Aliserag/flow-agentkit-starter/internal/wallet"
)

// balanceActions answers native-balance queries for arbitrary addresses with a
// real on-chain lookup through the wallet provider's backend.
type balanceActions struct {
	provider wallet.Provider
	network  config.NetworkConfig
	logger   *logrus.Logger
}

// NewBalanceActions builds the chain-balance query provider.
func NewBalanceActions(provider wallet.Provider, network config.NetworkConfig, logger *logrus.Logger) Provider {
	return &balanceActions{provider: provider, network: network, logger: logger}
}

func (b *balanceActions) Name() string {
	return "balance"
}

func (b *balanceActions) Actions() []Action {
	return []Action{
		{
			Name: "get_flow_balance",
			Description: fmt.Sprintf("Queries the native %s balance of any address on %s.",
				b.network.Currency.Symbol, b.network.Name),
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"address": map[string]interface{}{
						"type":        "string",
						"description": "Address to query (0x-prefixed hex)",
					},
				},
				"required": []interface{}{"address"},
			},
			Execute: b.getBalance,
		},
	}
}

func (b *balanceActions) getBalance(ctx context.Context, params map[string]interface{}) (string, error) {
	address, _ := params["address"].(string)
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid address %q", address)
	}

	balance, err := b.provider.NativeBalance(ctx, common.HexToAddress(address))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s holds %s %s", address,
		formatUnits(balance, b.network.Currency.Decimals), b.network.Currency.Symbol), nil
}
