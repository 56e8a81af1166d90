package actions

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/Aliserag/flow-agentkit-starter/internal/config"
	"github.com/Aliserag/flow-agentkit-starter/internal/wallet"
)

// walletActions exposes the generic wallet capabilities: reporting the agent's
// own address and balance, and sending native currency.
type walletActions struct {
	provider wallet.Provider
	network  config.NetworkConfig
	logger   *logrus.Logger
}

// NewWalletActions builds the generic wallet action provider.
func NewWalletActions(provider wallet.Provider, network config.NetworkConfig, logger *logrus.Logger) Provider {
	return &walletActions{provider: provider, network: network, logger: logger}
}

func (w *walletActions) Name() string {
	return "wallet"
}

func (w *walletActions) Actions() []Action {
	return []Action{
		{
			Name:        "get_wallet_address",
			Description: "Returns the agent's own wallet address on " + w.network.Name + ".",
			Schema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
			Execute: w.getAddress,
		},
		{
			Name:        "get_wallet_balance",
			Description: fmt.Sprintf("Returns the agent's own native %s balance.", w.network.Currency.Symbol),
			Schema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
			Execute: w.getBalance,
		},
		{
			Name: "native_transfer",
			Description: fmt.Sprintf(
				"Transfers native %s from the agent's wallet to another address. Amount is a decimal string in %s, not wei.",
				w.network.Currency.Symbol, w.network.Currency.Symbol),
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"to": map[string]interface{}{
						"type":        "string",
						"description": "Recipient address (0x-prefixed hex)",
					},
					"amount": map[string]interface{}{
						"type":        "string",
						"description": "Amount to send as a decimal string, e.g. \"1.5\"",
					},
				},
				"required": []interface{}{"to", "amount"},
			},
			Execute: w.transfer,
		},
	}
}

func (w *walletActions) getAddress(ctx context.Context, params map[string]interface{}) (string, error) {
	return w.provider.Address().Hex(), nil
}

func (w *walletActions) getBalance(ctx context.Context, params map[string]interface{}) (string, error) {
	balance, err := w.provider.NativeBalance(ctx, w.provider.Address())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s", formatUnits(balance, w.network.Currency.Decimals), w.network.Currency.Symbol), nil
}

func (w *walletActions) transfer(ctx context.Context, params map[string]interface{}) (string, error) {
	to, _ := params["to"].(string)
	amount, _ := params["amount"].(string)

	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("invalid recipient address %q", to)
	}

	amountWei, err := parseUnits(amount, w.network.Currency.Decimals)
	if err != nil {
		return "", err
	}

	txHash, err := w.provider.SendNative(ctx, common.HexToAddress(to), amountWei)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Sent %s %s to %s. Transaction: %s/tx/%s",
		amount, w.network.Currency.Symbol, to, w.network.ExplorerURL, txHash.Hex()), nil
}
