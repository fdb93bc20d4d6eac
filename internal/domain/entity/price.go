package entity

import "github.com/shopspring/decimal"

// Currency is a fiat currency a wallet values its assets in.
type Currency struct {
	ID     string `json:"id" yaml:"id"`
	Symbol string `json:"symbol" yaml:"symbol"`
}

// PriceData is a fiat quote for one price-feed id in one currency. The price
// arrives as a decimal string from the feed and is parsed at computation time.
// DayChange is a day-over-day percentage; nil means unknown and is treated as
// zero.
type PriceData struct {
	PriceID    string           `json:"priceId"`
	CurrencyID string           `json:"currencyId"`
	Price      string           `json:"price"`
	DayChange  *decimal.Decimal `json:"dayChange,omitempty"`
}
