package entity

// MetaAccountID uniquely identifies one wallet.
type MetaAccountID string

// AssetVisibility is a per-asset visibility override. Assets without an
// override are visible.
type AssetVisibility struct {
	VisibilityID string `json:"visibilityId" yaml:"visibilityId"`
	Hidden       bool   `json:"hidden" yaml:"hidden"`
}

// MetaAccount is a user wallet: per-chain account bindings, the selected fiat
// currency and asset visibility preferences. It is mutated externally by
// account-management flows; the coordinator keeps its own cached copy keyed by
// wallet id.
type MetaAccount struct {
	ID                MetaAccountID         `json:"id" yaml:"id"`
	Name              string                `json:"name" yaml:"name"`
	ChainAccounts     map[ChainID]AccountID `json:"chainAccounts" yaml:"chainAccounts"`
	SelectedCurrency  Currency              `json:"selectedCurrency" yaml:"currency"`
	AssetVisibilities []AssetVisibility     `json:"assetVisibilities,omitempty" yaml:"assetVisibilities,omitempty"`
	HideZeroBalances  bool                  `json:"hideZeroBalances" yaml:"hideZeroBalances"`
}

// AccountID resolves the wallet's derived account on the given chain. The
// second result is false when the wallet has no account there.
func (m MetaAccount) AccountID(chainID ChainID) (AccountID, bool) {
	accountID, ok := m.ChainAccounts[chainID]
	if !ok || accountID == "" {
		return "", false
	}
	return accountID, true
}

// AssetHidden reports whether the asset is explicitly marked hidden for this
// wallet. Default is visible.
func (m MetaAccount) AssetHidden(visibilityID string) bool {
	for _, v := range m.AssetVisibilities {
		if v.VisibilityID == visibilityID {
			return v.Hidden
		}
	}
	return false
}

// ReplacingName returns a copy of the wallet with a new display name.
func (m MetaAccount) ReplacingName(name string) MetaAccount {
	out := m.clone()
	out.Name = name
	return out
}

// ReplacingCurrency returns a copy of the wallet with a new selected currency.
func (m MetaAccount) ReplacingCurrency(currency Currency) MetaAccount {
	out := m.clone()
	out.SelectedCurrency = currency
	return out
}

// ReplacingAssetVisibility returns a copy of the wallet with the given
// visibility override applied, replacing any existing override for the same
// asset.
func (m MetaAccount) ReplacingAssetVisibility(visibility AssetVisibility) MetaAccount {
	out := m.clone()
	for i, v := range out.AssetVisibilities {
		if v.VisibilityID == visibility.VisibilityID {
			out.AssetVisibilities[i] = visibility
			return out
		}
	}
	out.AssetVisibilities = append(out.AssetVisibilities, visibility)
	return out
}

func (m MetaAccount) clone() MetaAccount {
	out := m
	out.ChainAccounts = make(map[ChainID]AccountID, len(m.ChainAccounts))
	for chainID, accountID := range m.ChainAccounts {
		out.ChainAccounts[chainID] = accountID
	}
	out.AssetVisibilities = make([]AssetVisibility, len(m.AssetVisibilities))
	copy(out.AssetVisibilities, m.AssetVisibilities)
	return out
}
