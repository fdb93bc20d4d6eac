package utils

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// DecimalFromRaw converts a raw on-chain integer amount to a decimal at the
// asset's declared precision.
// Example: raw=1234500000000000000, precision=18 => 1.2345
// A nil amount converts to zero.
func DecimalFromRaw(raw *big.Int, precision int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -precision)
}

// BatchStrings splits a slice of strings into batches of at most batchSize.
func BatchStrings(items []string, batchSize int) [][]string {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = len(items)
	}

	var batches [][]string
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}
