package actions

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/Aliserag/flow-agentkit-starter/internal/config"
	"github.com/Aliserag/flow-agentkit-starter/internal/wallet"
)

// Minimal ERC-20 surface used by the token actions.
const erc20ABI = `[
  {"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"symbol","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

// erc20Actions exposes token balance and transfer capabilities through a
// bound contract on the provider's backend.
type erc20Actions struct {
	provider wallet.Provider
	network  config.NetworkConfig
	abi      abi.ABI
	logger   *logrus.Logger
}

// NewERC20Actions builds the token action provider.
func NewERC20Actions(provider wallet.Provider, network config.NetworkConfig, logger *logrus.Logger) (Provider, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("actions: parse erc20 abi: %w", err)
	}
	return &erc20Actions{provider: provider, network: network, abi: parsed, logger: logger}, nil
}

func (e *erc20Actions) Name() string {
	return "erc20"
}

func (e *erc20Actions) Actions() []Action {
	tokenParam := map[string]interface{}{
		"type":        "string",
		"description": "ERC-20 token contract address (0x-prefixed hex)",
	}

	return []Action{
		{
			Name:        "erc20_balance_of",
			Description: "Queries the ERC-20 token balance of an address on " + e.network.Name + ".",
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"token": tokenParam,
					"address": map[string]interface{}{
						"type":        "string",
						"description": "Holder address to query",
					},
				},
				"required": []interface{}{"token", "address"},
			},
			Execute: e.balanceOf,
		},
		{
			Name:        "erc20_transfer",
			Description: "Transfers ERC-20 tokens from the agent's wallet. Amount is in the token's base units.",
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"token": tokenParam,
					"to": map[string]interface{}{
						"type":        "string",
						"description": "Recipient address",
					},
					"amount": map[string]interface{}{
						"type":        "string",
						"description": "Amount in base units as a decimal integer string",
					},
				},
				"required": []interface{}{"token", "to", "amount"},
			},
			Execute: e.transfer,
		},
	}
}

func (e *erc20Actions) contract(token string) (*bind.BoundContract, common.Address, error) {
	if !common.IsHexAddress(token) {
		return nil, common.Address{}, fmt.Errorf("invalid token address %q", token)
	}
	addr := common.HexToAddress(token)
	backend := e.provider.Backend()
	return bind.NewBoundContract(addr, e.abi, backend, backend, backend), addr, nil
}

func (e *erc20Actions) balanceOf(ctx context.Context, params map[string]interface{}) (string, error) {
	token, _ := params["token"].(string)
	address, _ := params["address"].(string)

	contract, tokenAddr, err := e.contract(token)
	if err != nil {
		return "", err
	}
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid holder address %q", address)
	}

	var out []interface{}
	call := &bind.CallOpts{Context: ctx}
	if err := contract.Call(call, &out, "balanceOf", common.HexToAddress(address)); err != nil {
		return "", fmt.Errorf("balanceOf call on %s: %w", tokenAddr.Hex(), err)
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return "", fmt.Errorf("unexpected balanceOf result type %T", out[0])
	}

	symbol := e.tokenSymbol(ctx, contract)
	return fmt.Sprintf("%s holds %s %s (base units)", address, balance.String(), symbol), nil
}

func (e *erc20Actions) transfer(ctx context.Context, params map[string]interface{}) (string, error) {
	token, _ := params["token"].(string)
	to, _ := params["to"].(string)
	amount, _ := params["amount"].(string)

	contract, tokenAddr, err := e.contract(token)
	if err != nil {
		return "", err
	}
	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("invalid recipient address %q", to)
	}

	value, ok := new(big.Int).SetString(strings.TrimSpace(amount), 10)
	if !ok || value.Sign() < 0 {
		return "", fmt.Errorf("invalid amount %q", amount)
	}

	opts, err := e.provider.TransactOpts(ctx)
	if err != nil {
		return "", fmt.Errorf("token transfer requires a local signer: %w", err)
	}

	tx, err := contract.Transact(opts, "transfer", common.HexToAddress(to), value)
	if err != nil {
		return "", fmt.Errorf("transfer call on %s: %w", tokenAddr.Hex(), err)
	}

	e.logger.Infof("ERC-20 transfer of %s base units to %s (tx %s)", value.String(), to, tx.Hash().Hex())
	return fmt.Sprintf("Transferred %s base units of %s to %s. Transaction: %s/tx/%s",
		value.String(), tokenAddr.Hex(), to, e.network.ExplorerURL, tx.Hash().Hex()), nil
}

func (e *erc20Actions) tokenSymbol(ctx context.Context, contract *bind.BoundContract) string {
	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "symbol"); err != nil || len(out) == 0 {
		return "tokens"
	}
	if symbol, ok := out[0].(string); ok && symbol != "" {
		return symbol
	}
	return "tokens"
}
