package walletloader

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"balance_aggregator/internal/app/port"
	"balance_aggregator/internal/domain/entity"
)

const defaultWalletFilePath = "data/wallets.yaml"

// WalletFileLoader implements port.WalletRepository by loading wallets from a
// YAML file. Entries without an id or any chain account are skipped with a
// log line rather than failing the whole load.
type WalletFileLoader struct {
	filePath string
	logger   port.Logger
}

type walletFile struct {
	Wallets []entity.MetaAccount `yaml:"wallets"`
}

// NewWalletFileLoader creates a loader for the given path; empty path uses
// the default location.
func NewWalletFileLoader(filePath string, logger port.Logger) port.WalletRepository {
	if filePath == "" {
		filePath = defaultWalletFilePath
	}
	return &WalletFileLoader{filePath: filePath, logger: logger}
}

// FetchAllWallets reads and validates the wallet list.
func (l *WalletFileLoader) FetchAllWallets(_ context.Context) ([]entity.MetaAccount, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet file %s: %w", l.filePath, err)
	}

	var parsed walletFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet file %s: %w", l.filePath, err)
	}

	wallets := make([]entity.MetaAccount, 0, len(parsed.Wallets))
	for i, wallet := range parsed.Wallets {
		if wallet.ID == "" {
			l.logger.Warn("Skipping wallet without id", "file", l.filePath, "index", i)
			continue
		}
		if len(wallet.ChainAccounts) == 0 {
			l.logger.Warn("Skipping wallet without chain accounts", "file", l.filePath, "wallet_id", wallet.ID)
			continue
		}
		wallets = append(wallets, wallet)
	}

	l.logger.Info("Wallets loaded successfully from file", "count", len(wallets), "path", l.filePath)
	return wallets, nil
}
