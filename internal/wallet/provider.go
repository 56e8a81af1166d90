// Package wallet abstracts "can sign and send transactions on behalf of an
// account" over the target network. Exactly one Provider exists per process.
package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// ErrNoLocalSigner is returned by providers that delegate signing to an
// external wallet and therefore cannot hand out a local transactor.
var ErrNoLocalSigner = errors.New("wallet: provider has no local signer")

// Provider is the signing and chain-access abstraction handed to the agent.
type Provider interface {
	// Address returns the account the provider signs for.
	Address() common.Address

	// ChainID returns the target network's chain id.
	ChainID() *big.Int

	// NativeBalance returns the native-currency balance of addr in wei.
	NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error)

	// SendNative transfers amountWei of native currency to the given address
	// and returns the transaction hash.
	SendNative(ctx context.Context, to common.Address, amountWei *big.Int) (common.Hash, error)

	// TransactOpts returns signing options for contract writes. Providers
	// without a local key return ErrNoLocalSigner.
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)

	// Backend exposes the chain backend for bound-contract calls.
	Backend() bind.ContractBackend

	// Close releases network connections held by the provider.
	Close()
}
