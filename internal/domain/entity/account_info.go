package entity

import "math/big"

// AccountInfo is the on-chain balance record for one (wallet, chain-asset)
// pair. A nil *AccountInfo stored in the cache means "account has no info on
// this asset"; a missing cache entry means "not yet answered". The two states
// are distinguished on purpose.
type AccountInfo struct {
	Free     *big.Int `json:"free"`
	Reserved *big.Int `json:"reserved,omitempty"`
	Frozen   *big.Int `json:"frozen,omitempty"`
}

// Total returns the raw total balance (free + reserved). Nil fields count as
// zero.
func (a *AccountInfo) Total() *big.Int {
	total := new(big.Int)
	if a == nil {
		return total
	}
	if a.Free != nil {
		total.Add(total, a.Free)
	}
	if a.Reserved != nil {
		total.Add(total, a.Reserved)
	}
	return total
}
