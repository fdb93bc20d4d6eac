package port

import (
	"context"

	"balance_aggregator/internal/domain/entity"
)

// WalletRepository defines the interface for fetching the wallet list.
type WalletRepository interface {
	FetchAllWallets(ctx context.Context) ([]entity.MetaAccount, error)
}
