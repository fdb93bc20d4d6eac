package service

import (
	"github.com/shopspring/decimal"

	"balance_aggregator/internal/app/port"
	"balance_aggregator/internal/domain/entity"
)

// BuildWalletBalances computes one balance snapshot per wallet from the given
// caches. A wallet appears in the result only when every chain-asset relevant
// to it has a resolved (possibly nil) account-info entry; partial data yields
// omission, never a partial number. Stateless transform, safe to call from any
// goroutine with a consistent snapshot of its inputs.
func BuildWalletBalances(
	accountInfos map[entity.ChainAssetKey]*entity.AccountInfo,
	wallets []entity.MetaAccount,
	chainAssets []entity.ChainAsset,
	prices []entity.PriceData,
) port.WalletBalancesResult {
	result := make(port.WalletBalancesResult, len(wallets))
	for _, wallet := range wallets {
		if info, loaded := buildSingleWalletBalance(wallet, chainAssets, accountInfos, prices); loaded {
			result[wallet.ID] = info
		}
	}
	return result
}

func buildSingleWalletBalance(
	wallet entity.MetaAccount,
	chainAssets []entity.ChainAsset,
	accountInfos map[entity.ChainAssetKey]*entity.AccountInfo,
	prices []entity.PriceData,
) (entity.WalletBalanceInfo, bool) {
	var enabled, disabled []entity.ChainAsset
	for _, chainAsset := range chainAssets {
		if wallet.AssetHidden(chainAsset.VisibilityID()) {
			disabled = append(disabled, chainAsset)
		} else {
			enabled = append(enabled, chainAsset)
		}
	}

	enabledTotals := accumulateSubset(wallet, enabled, accountInfos, prices)
	disabledTotals := accumulateSubset(wallet, disabled, accountInfos, prices)
	if !enabledTotals.loaded || !disabledTotals.loaded {
		return entity.WalletBalanceInfo{}, false
	}

	totalFiatValue := enabledTotals.fiat.Add(disabledTotals.fiat)
	dayChangeValue := enabledTotals.dayChange.Add(disabledTotals.dayChange)

	dayChangePercent := decimal.Zero
	if !totalFiatValue.IsZero() {
		dayChangePercent = dayChangeValue.Div(totalFiatValue)
	}

	return entity.WalletBalanceInfo{
		TotalFiatValue:          totalFiatValue,
		EnabledAssetFiatBalance: enabledTotals.fiat,
		DayChangePercent:        dayChangePercent,
		DayChangeValue:          dayChangeValue,
		Currency:                wallet.SelectedCurrency,
		Prices:                  filterPricesByCurrency(prices, wallet.SelectedCurrency),
		AccountInfos:            accountInfos,
	}, true
}

type subsetTotals struct {
	fiat      decimal.Decimal
	dayChange decimal.Decimal
	loaded    bool
}

// accumulateSubset sums calculator outputs for one visibility partition.
// Assets on chains where the wallet has no derived account are skipped and do
// not count against load-completeness; the partition is loaded once every
// remaining asset has an answered cache entry.
func accumulateSubset(
	wallet entity.MetaAccount,
	subset []entity.ChainAsset,
	accountInfos map[entity.ChainAssetKey]*entity.AccountInfo,
	prices []entity.PriceData,
) subsetTotals {
	totals := subsetTotals{fiat: decimal.Zero, dayChange: decimal.Zero}

	applicable, resolved := 0, 0
	for _, chainAsset := range subset {
		accountID, hasAccount := wallet.AccountID(chainAsset.ChainID)
		if !hasAccount {
			continue
		}
		applicable++

		accountInfo, answered := accountInfos[chainAsset.Key(accountID)]
		if !answered {
			continue
		}
		resolved++

		assetFiat, assetDayChange := ComputeAssetFiatBalance(chainAsset, accountInfo, prices, wallet.SelectedCurrency)
		totals.fiat = totals.fiat.Add(assetFiat)
		totals.dayChange = totals.dayChange.Add(assetDayChange)
	}

	totals.loaded = resolved == applicable
	return totals
}

func filterPricesByCurrency(prices []entity.PriceData, currency entity.Currency) []entity.PriceData {
	filtered := make([]entity.PriceData, 0, len(prices))
	for _, p := range prices {
		if p.CurrencyID == currency.ID {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
