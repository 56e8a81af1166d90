package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/Aliserag/flow-agentkit-starter/internal/config"
)

// LocalProvider holds the signing key directly and talks to the target
// network over a standard RPC transport.
type LocalProvider struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
	eth     *ethclient.Client
	logger  *logrus.Logger
}

// NewLocalProvider dials the configured RPC endpoint and binds the key to the
// target network.
func NewLocalProvider(ctx context.Context, key *ecdsa.PrivateKey, network config.NetworkConfig, logger *logrus.Logger) (*LocalProvider, error) {
	eth, err := ethclient.DialContext(ctx, network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("wallet: dial %s: %w", network.RPCURL, err)
	}

	p := &LocalProvider{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: big.NewInt(network.ChainID),
		eth:     eth,
		logger:  logger,
	}

	logger.Infof("Local wallet provider ready: account %s on %s (chain %d)", p.address.Hex(), network.Name, network.ChainID)
	return p, nil
}

func (p *LocalProvider) Address() common.Address {
	return p.address
}

func (p *LocalProvider) ChainID() *big.Int {
	return new(big.Int).Set(p.chainID)
}

func (p *LocalProvider) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	balance, err := p.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("wallet: balance query for %s: %w", addr.Hex(), err)
	}
	return balance, nil
}

func (p *LocalProvider) SendNative(ctx context.Context, to common.Address, amountWei *big.Int) (common.Hash, error) {
	nonce, err := p.eth.PendingNonceAt(ctx, p.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("wallet: fetch nonce: %w", err)
	}

	gasPrice, err := p.eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("wallet: suggest gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    amountWei,
		Gas:      21000,
		GasPrice: gasPrice,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(p.chainID), p.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("wallet: sign transaction: %w", err)
	}

	if err := p.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("wallet: send transaction: %w", err)
	}

	p.logger.Infof("Sent %s wei to %s (tx %s)", amountWei.String(), to.Hex(), signed.Hash().Hex())
	return signed.Hash(), nil
}

func (p *LocalProvider) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(p.key, p.chainID)
	if err != nil {
		return nil, fmt.Errorf("wallet: build transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

func (p *LocalProvider) Backend() bind.ContractBackend {
	return p.eth
}

func (p *LocalProvider) Close() {
	if p.eth != nil {
		p.eth.Close()
	}
}
