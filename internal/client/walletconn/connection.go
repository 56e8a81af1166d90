// Package walletconn tracks the client-side connection to an external
// (browser-injected) wallet: detection, authorization, and registration of
// the target network. The connection state is display-only; it does not feed
// the server-side agent.
package walletconn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"

	"github.com/Aliserag/flow-agentkit-starter/internal/config"
)

// State is the wallet connection lifecycle.
type State string

const (
	StateNotDetected  State = "not_detected"
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

// walletRPC is the JSON-RPC surface of the injected wallet.
type walletRPC interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// addChainParams mirrors the wallet_addEthereumChain parameter object. Field
// shapes must match the injected-wallet convention exactly.
type addChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    nativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls"`
}

type nativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

type switchChainParams struct {
	ChainID string `json:"chainId"`
}

// Connection drives the wallet connection state machine.
type Connection struct {
	rpc     walletRPC
	network config.NetworkConfig
	logger  *logrus.Logger

	mu      sync.Mutex
	state   State
	account string
	errMsg  string
}

// Dial connects to the wallet endpoint and probes for an already-authorized
// account. A failed dial leaves the connection in NotDetected.
func Dial(ctx context.Context, walletURL string, network config.NetworkConfig, logger *logrus.Logger) *Connection {
	c := &Connection{
		network: network,
		logger:  logger,
		state:   StateNotDetected,
	}

	client, err := rpc.DialContext(ctx, walletURL)
	if err != nil {
		logger.Debugf("No wallet detected at %s: %v", walletURL, err)
		return c
	}

	c.rpc = client
	c.Probe(ctx)
	return c
}

// NewWithClient is used by tests to inject a fake wallet RPC.
func NewWithClient(client walletRPC, network config.NetworkConfig, logger *logrus.Logger) *Connection {
	return &Connection{
		rpc:     client,
		network: network,
		logger:  logger,
		state:   StateDisconnected,
	}
}

// Probe checks for an already-authorized account without prompting.
func (c *Connection) Probe(ctx context.Context) {
	if c.rpc == nil {
		return
	}

	var accounts []string
	if err := c.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		c.logger.Debugf("Wallet probe failed: %v", err)
		c.setState(StateNotDetected, "", "")
		return
	}

	if len(accounts) > 0 {
		c.setState(StateConnected, accounts[0], "")
	} else {
		c.setState(StateDisconnected, "", "")
	}
}

// Connect requests authorization, registers the target network with the
// wallet, and switches the active network to it. Registering a network that
// already exists is treated as success. A failed switch still yields the
// Connected state for account display but surfaces an error message.
func (c *Connection) Connect(ctx context.Context) error {
	if c.rpc == nil {
		return fmt.Errorf("walletconn: no wallet detected")
	}

	c.setState(StateConnecting, "", "")

	var accounts []string
	if err := c.rpc.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		c.setState(StateError, "", fmt.Sprintf("authorization failed: %v", err))
		return fmt.Errorf("walletconn: eth_requestAccounts: %w", err)
	}
	if len(accounts) == 0 {
		c.setState(StateError, "", "wallet returned no accounts")
		return fmt.Errorf("walletconn: wallet returned no accounts")
	}
	account := accounts[0]

	// Idempotent: the wallet rejects re-adding a known chain, which is fine.
	if err := c.rpc.CallContext(ctx, nil, "wallet_addEthereumChain", c.addChainParams()); err != nil {
		c.logger.Debugf("wallet_addEthereumChain: %v (already registered?)", err)
	}

	if err := c.rpc.CallContext(ctx, nil, "wallet_switchEthereumChain", switchChainParams{ChainID: c.chainIDHex()}); err != nil {
		// Account display still works, but the wallet is on the wrong network.
		c.setState(StateConnected, account, fmt.Sprintf("failed to switch to %s: %v", c.network.Name, err))
		return fmt.Errorf("walletconn: wallet_switchEthereumChain: %w", err)
	}

	c.setState(StateConnected, account, "")
	c.logger.Infof("Wallet connected: %s on %s", account, c.network.Name)
	return nil
}

// HandleAccountsChanged applies a browser-originated account-change event. An
// empty account list means the wallet disconnected, regardless of prior state.
func (c *Connection) HandleAccountsChanged(accounts []string) {
	if len(accounts) == 0 {
		c.setState(StateDisconnected, "", "")
		return
	}
	c.setState(StateConnected, accounts[0], "")
}

// defaultWatchInterval paces the account poll when the caller passes no
// usable interval.
const defaultWatchInterval = 2 * time.Second

// Watch polls the wallet's account list and feeds changes through
// HandleAccountsChanged until the context is cancelled. It stands in for the
// browser's accountsChanged subscription.
func (c *Connection) Watch(ctx context.Context, interval time.Duration) {
	if c.rpc == nil {
		return
	}
	if interval <= 0 {
		interval = defaultWatchInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var accounts []string
			if err := c.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
				continue
			}
			c.HandleAccountsChanged(accounts)
		}
	}
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Account returns the connected account, if any.
func (c *Connection) Account() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.account
}

// Err returns the surfaced error message, if any.
func (c *Connection) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

func (c *Connection) setState(state State, account, errMsg string) {
	c.mu.Lock()
	c.state = state
	c.account = account
	c.errMsg = errMsg
	c.mu.Unlock()
}

func (c *Connection) chainIDHex() string {
	return fmt.Sprintf("0x%x", c.network.ChainID)
}

func (c *Connection) addChainParams() addChainParams {
	return addChainParams{
		ChainID:   c.chainIDHex(),
		ChainName: c.network.Name,
		NativeCurrency: nativeCurrency{
			Name:     c.network.Currency.Name,
			Symbol:   c.network.Currency.Symbol,
			Decimals: c.network.Currency.Decimals,
		},
		RPCURLs:           []string{c.network.RPCURL},
		BlockExplorerURLs: []string{c.network.ExplorerURL},
	}
}
