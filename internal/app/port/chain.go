package port

import (
	"context"

	"balance_aggregator/internal/domain/entity"
)

// ChainAssetFetcher defines the interface for fetching chain-asset metadata.
type ChainAssetFetcher interface {
	// FetchAllChainAssets returns every known chain-asset. With useCache set,
	// implementations may serve a previously fetched snapshot.
	FetchAllChainAssets(ctx context.Context, useCache bool) ([]entity.ChainAsset, error)
}
