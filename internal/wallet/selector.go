package wallet

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Aliserag/flow-agentkit-starter/internal/config"
	"github.com/Aliserag/flow-agentkit-starter/internal/keystore"
)

// Select constructs the single wallet provider for this process. The branch is
// driven by explicit configuration, not ambient environment detection. Browser
// mode is taken even when the wallet turns out to be locked; that failure
// surfaces on the first signing call.
func Select(ctx context.Context, cfg *config.AppConfig, logger *logrus.Logger) (Provider, error) {
	switch cfg.Wallet.Mode {
	case "browser":
		return NewBrowserProvider(ctx, cfg.Network, cfg.Wallet.WalletRPCURL, logger)
	case "local":
		key, err := keystore.LoadOrCreate(cfg.Wallet, logger)
		if err != nil {
			return nil, fmt.Errorf("wallet: resolve signing key: %w", err)
		}
		return NewLocalProvider(ctx, key, cfg.Network, logger)
	default:
		return nil, fmt.Errorf("wallet: unknown mode %q", cfg.Wallet.Mode)
	}
}
