package chainloader

import (
	"context"
	"fmt"
	"os"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"

	"balance_aggregator/internal/app/port"
	"balance_aggregator/internal/domain/entity"
)

const (
	defaultChainAssetsFilePath = "data/chain_assets.yaml"
	cacheKeyChainAssets        = "chain_assets"
)

// ChainAssetFileLoader implements port.ChainAssetFetcher over a YAML metadata
// file, with a TTL cache behind the useCache flag.
type ChainAssetFileLoader struct {
	filePath string
	cache    *gocache.Cache
	logger   port.Logger
}

type chainAssetFile struct {
	ChainAssets []entity.ChainAsset `yaml:"chainAssets"`
}

// NewChainAssetFileLoader creates a loader. ttl bounds how long a cached
// snapshot may be served when callers ask for cached data.
func NewChainAssetFileLoader(filePath string, ttl, cleanupInterval time.Duration, logger port.Logger) *ChainAssetFileLoader {
	if filePath == "" {
		filePath = defaultChainAssetsFilePath
	}
	return &ChainAssetFileLoader{
		filePath: filePath,
		cache:    gocache.New(ttl, cleanupInterval),
		logger:   logger,
	}
}

// FetchAllChainAssets returns every known chain-asset. With useCache set, a
// previously loaded snapshot is served until its TTL lapses; a fresh load
// always refreshes the cache.
func (l *ChainAssetFileLoader) FetchAllChainAssets(_ context.Context, useCache bool) ([]entity.ChainAsset, error) {
	if useCache {
		if cached, found := l.cache.Get(cacheKeyChainAssets); found {
			chainAssets := cached.([]entity.ChainAsset)
			l.logger.Debug("Serving chain assets from cache", "count", len(chainAssets))
			return chainAssets, nil
		}
	}

	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain asset file %s: %w", l.filePath, err)
	}

	var parsed chainAssetFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chain asset file %s: %w", l.filePath, err)
	}

	chainAssets := make([]entity.ChainAsset, 0, len(parsed.ChainAssets))
	for i, chainAsset := range parsed.ChainAssets {
		if chainAsset.ChainID == "" || chainAsset.AssetID == "" {
			l.logger.Warn("Skipping chain asset without identifiers", "file", l.filePath, "index", i)
			continue
		}
		chainAssets = append(chainAssets, chainAsset)
	}

	l.cache.Set(cacheKeyChainAssets, chainAssets, gocache.DefaultExpiration)
	l.logger.Info("Chain assets loaded successfully from file", "count", len(chainAssets), "path", l.filePath)
	return chainAssets, nil
}
