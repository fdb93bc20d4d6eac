package entity

import "github.com/shopspring/decimal"

// WalletBalanceInfo is the computed fiat valuation snapshot for one wallet.
// It is derived and disposable: recomputed in full on every relevant change,
// never patched incrementally.
type WalletBalanceInfo struct {
	TotalFiatValue          decimal.Decimal                `json:"totalFiatValue"`
	EnabledAssetFiatBalance decimal.Decimal                `json:"enabledAssetFiatBalance"`
	DayChangePercent        decimal.Decimal                `json:"dayChangePercent"`
	DayChangeValue          decimal.Decimal                `json:"dayChangeValue"`
	Currency                Currency                       `json:"currency"`
	Prices                  []PriceData                    `json:"prices"`
	AccountInfos            map[ChainAssetKey]*AccountInfo `json:"-"`
}
