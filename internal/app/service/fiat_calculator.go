package service

import (
	"github.com/shopspring/decimal"

	"balance_aggregator/internal/domain/entity"
	"balance_aggregator/internal/pkg/utils"
)

var hundred = decimal.NewFromInt(100)

// ComputeAssetFiatBalance values one chain-asset in the given currency.
// Returns the fiat total and the absolute day-change contribution.
//
// Missing account info, an unpriced asset or an unparsable quote all value to
// exactly (0, 0); these are valid states, not failures. Pure function of its
// inputs.
func ComputeAssetFiatBalance(
	chainAsset entity.ChainAsset,
	accountInfo *entity.AccountInfo,
	prices []entity.PriceData,
	currency entity.Currency,
) (total, dayChange decimal.Decimal) {
	if accountInfo == nil || chainAsset.PriceID == "" {
		return decimal.Zero, decimal.Zero
	}

	priceData, found := findPrice(prices, chainAsset.PriceID, currency.ID)
	if !found {
		return decimal.Zero, decimal.Zero
	}

	price, err := decimal.NewFromString(priceData.Price)
	if err != nil {
		return decimal.Zero, decimal.Zero
	}

	balance := utils.DecimalFromRaw(accountInfo.Total(), chainAsset.Precision)
	total = price.Mul(balance)

	dayChange = decimal.Zero
	if priceData.DayChange != nil {
		dayChange = total.Mul(priceData.DayChange.Div(hundred))
	}
	return total, dayChange
}

func findPrice(prices []entity.PriceData, priceID, currencyID string) (entity.PriceData, bool) {
	for _, p := range prices {
		if p.PriceID == priceID && p.CurrencyID == currencyID {
			return p, true
		}
	}
	return entity.PriceData{}, false
}
