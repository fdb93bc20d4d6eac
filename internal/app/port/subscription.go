package port

import "balance_aggregator/internal/domain/entity"

// AccountInfoHandler receives account-info updates for one (account,
// chain-asset) pair. A nil info with nil err means the chain answered and the
// account has no info on this asset. Handlers may be invoked from arbitrary
// goroutines.
type AccountInfoHandler func(info *entity.AccountInfo, err error, accountID entity.AccountID, chainAsset entity.ChainAsset)

// AccountInfoAdapter delivers account-info updates for one wallet across its
// chain-assets, indefinitely until closed.
type AccountInfoAdapter interface {
	Subscribe(handler AccountInfoHandler) error
	Close() error
}

// AccountInfoAdapterFactory builds one adapter per wallet, fanning out across
// the chain-assets applicable to it.
type AccountInfoAdapterFactory interface {
	AdapterFor(wallet entity.MetaAccount, chainAssets []entity.ChainAsset) (AccountInfoAdapter, error)
}

// PriceHandler receives a full price snapshot, or the upstream error verbatim.
type PriceHandler func(prices []entity.PriceData, err error)

// PriceSource delivers fiat quotes for a set of price-feed ids across a set of
// currencies on every upstream refresh. Calling Subscribe again replaces the
// previous key set and triggers an immediate refresh.
type PriceSource interface {
	Subscribe(priceIDs []string, currencies []entity.Currency, handler PriceHandler) error
	Close() error
}
