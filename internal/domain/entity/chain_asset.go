package entity

import (
	"fmt"
	"strings"
)

// ChainID uniquely identifies a blockchain network (e.g., "ethereum-mainnet").
type ChainID string

// AssetID uniquely identifies an asset within one chain.
type AssetID string

// ChainAssetID uniquely identifies an asset across all chains.
type ChainAssetID string

// AccountID is a wallet's derived account identifier on one chain.
type AccountID string

// ChainAssetKey identifies one (chain-asset, account) pair. It is the lookup
// key for the account-info cache.
type ChainAssetKey string

// ChainType distinguishes how account balances are delivered for a chain.
type ChainType string

const (
	ChainTypeSubstrate ChainType = "substrate"
	ChainTypeEthereum  ChainType = "ethereum"
	// ChainTypeEquilibrium marks chains that carry every asset balance in a
	// single subscription, so one account-info arrival covers the whole chain.
	ChainTypeEquilibrium ChainType = "equilibrium"
)

// ChainAsset identifies one fungible asset as it exists on one specific chain.
// Instances are immutable once fetched; chain-metadata updates replace them
// wholesale.
type ChainAsset struct {
	ChainID   ChainID   `json:"chainId" yaml:"chainId"`
	AssetID   AssetID   `json:"assetId" yaml:"assetId"`
	Symbol    string    `json:"symbol" yaml:"symbol"`
	Precision int32     `json:"precision" yaml:"precision"`
	ChainType ChainType `json:"chainType" yaml:"chainType"`
	// PriceID links the asset to its price feed. Empty means the asset is
	// unpriced and always values to zero.
	PriceID string `json:"priceId,omitempty" yaml:"priceId,omitempty"`
	// ContractAddress is the token contract for non-native assets. Empty for
	// the chain's native asset.
	ContractAddress string `json:"contractAddress,omitempty" yaml:"contractAddress,omitempty"`
	RPCURL          string `json:"rpcUrl,omitempty" yaml:"rpcUrl,omitempty"`
}

// ID returns the chain-scoped asset identifier.
func (c ChainAsset) ID() ChainAssetID {
	return ChainAssetID(fmt.Sprintf("%s:%s", c.ChainID, c.AssetID))
}

// Key builds the account-info cache key for this asset and the given account.
func (c ChainAsset) Key(accountID AccountID) ChainAssetKey {
	return ChainAssetKey(fmt.Sprintf("%s-%s-%s", c.AssetID, c.ChainID, strings.ToLower(string(accountID))))
}

// VisibilityID is the identifier wallets use in per-asset visibility overrides.
func (c ChainAsset) VisibilityID() string {
	return string(c.ID())
}

// IsNative reports whether the asset is the chain's native currency.
func (c ChainAsset) IsNative() bool {
	return c.ContractAddress == ""
}

// SingleAssetChain reports whether one account-info update satisfies the whole
// chain, regardless of how many assets it declares.
func (c ChainAsset) SingleAssetChain() bool {
	return c.ChainType == ChainTypeEquilibrium
}
