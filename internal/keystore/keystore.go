// Package keystore resolves the agent's signing key when no external wallet
// handles signing. Keys are persisted in clear text, which is only acceptable
// for testnet use.
package keystore

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/Aliserag/flow-agentkit-starter/internal/config"
)

// keyFile is the on-disk shape of the persisted signing key.
type keyFile struct {
	PrivateKey string `json:"privateKey"`
}

// LoadOrCreate resolves the signing key. Resolution order: an explicitly
// configured key wins; otherwise the persisted key file is read; otherwise a
// fresh key is generated and immediately persisted to that file.
func LoadOrCreate(cfg config.WalletConfig, logger *logrus.Logger) (*ecdsa.PrivateKey, error) {
	if cfg.PrivateKey != "" {
		key, err := parseKey(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("keystore: parse configured key: %w", err)
		}
		return key, nil
	}

	path := cfg.KeyFile
	if path == "" {
		return nil, errors.New("keystore: key file path required when no key is configured")
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return generateAndPersist(path, logger)
	} else if err != nil {
		return nil, fmt.Errorf("keystore: read key file: %w", err)
	}

	var stored keyFile
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("keystore: parse key file %s: %w", path, err)
	}
	key, err := parseKey(stored.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("keystore: parse key file %s: %w", path, err)
	}

	logger.Infof("Loaded wallet key from %s (address %s)", path, crypto.PubkeyToAddress(key.PublicKey).Hex())
	return key, nil
}

func generateAndPersist(path string, logger *logrus.Logger) (*ecdsa.PrivateKey, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("keystore: generate key: %w", err)
	}

	if err := writeKeyFile(path, key); err != nil {
		return nil, err
	}

	logger.Warnf("Generated new wallet key and persisted it in clear text to %s (testnet use only)", path)
	logger.Infof("Wallet address: %s", crypto.PubkeyToAddress(key.PublicKey).Hex())
	return key, nil
}

func parseKey(value string) (*ecdsa.PrivateKey, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	return crypto.HexToECDSA(trimmed)
}

func writeKeyFile(path string, key *ecdsa.PrivateKey) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("keystore: create key dir: %w", err)
		}
	}

	encoded, err := json.Marshal(keyFile{
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
	})
	if err != nil {
		return fmt.Errorf("keystore: encode key file: %w", err)
	}

	temp := path + ".tmp"
	if err := os.WriteFile(temp, append(encoded, '\n'), 0o600); err != nil {
		return fmt.Errorf("keystore: write key temp: %w", err)
	}
	if err := os.Rename(temp, path); err != nil {
		return fmt.Errorf("keystore: move key file: %w", err)
	}
	return nil
}
