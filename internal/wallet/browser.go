package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"

	"github.com/Aliserag/flow-agentkit-starter/internal/config"
)

// BrowserProvider delegates signing to an external wallet reachable over
// JSON-RPC, while read-only chain access goes through the network RPC
// endpoint. If the wallet is locked or exposes no accounts the provider is
// still constructed; signing calls fail upstream.
type BrowserProvider struct {
	walletRPC *rpc.Client
	eth       *ethclient.Client
	account   common.Address
	chainID   *big.Int
	logger    *logrus.Logger
}

// sendTxArgs mirrors the parameter object of eth_sendTransaction as the
// injected-wallet convention expects it.
type sendTxArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
}

// NewBrowserProvider dials the wallet endpoint and enumerates accounts.
func NewBrowserProvider(ctx context.Context, network config.NetworkConfig, walletRPCURL string, logger *logrus.Logger) (*BrowserProvider, error) {
	walletRPC, err := rpc.DialContext(ctx, walletRPCURL)
	if err != nil {
		return nil, fmt.Errorf("wallet: dial wallet endpoint %s: %w", walletRPCURL, err)
	}

	eth, err := ethclient.DialContext(ctx, network.RPCURL)
	if err != nil {
		walletRPC.Close()
		return nil, fmt.Errorf("wallet: dial %s: %w", network.RPCURL, err)
	}

	p := &BrowserProvider{
		walletRPC: walletRPC,
		eth:       eth,
		chainID:   big.NewInt(network.ChainID),
		logger:    logger,
	}

	var accounts []common.Address
	if err := walletRPC.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		logger.Warnf("Browser wallet account enumeration failed: %v", err)
	}
	if len(accounts) > 0 {
		p.account = accounts[0]
		logger.Infof("Browser wallet provider bound to account %s on %s", p.account.Hex(), network.Name)
	} else {
		logger.Warn("Browser wallet exposed no accounts; signing calls will fail until it is unlocked")
	}

	return p, nil
}

func (p *BrowserProvider) Address() common.Address {
	return p.account
}

func (p *BrowserProvider) ChainID() *big.Int {
	return new(big.Int).Set(p.chainID)
}

func (p *BrowserProvider) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	balance, err := p.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("wallet: balance query for %s: %w", addr.Hex(), err)
	}
	return balance, nil
}

func (p *BrowserProvider) SendNative(ctx context.Context, to common.Address, amountWei *big.Int) (common.Hash, error) {
	if (p.account == common.Address{}) {
		return common.Hash{}, fmt.Errorf("wallet: browser wallet has no authorized account")
	}

	args := sendTxArgs{
		From:  p.account,
		To:    &to,
		Value: (*hexutil.Big)(amountWei),
	}

	var txHash common.Hash
	if err := p.walletRPC.CallContext(ctx, &txHash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, fmt.Errorf("wallet: eth_sendTransaction: %w", err)
	}

	p.logger.Infof("Browser wallet sent %s wei to %s (tx %s)", amountWei.String(), to.Hex(), txHash.Hex())
	return txHash, nil
}

func (p *BrowserProvider) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	return nil, ErrNoLocalSigner
}

func (p *BrowserProvider) Backend() bind.ContractBackend {
	return p.eth
}

func (p *BrowserProvider) Close() {
	if p.walletRPC != nil {
		p.walletRPC.Close()
	}
	if p.eth != nil {
		p.eth.Close()
	}
}
