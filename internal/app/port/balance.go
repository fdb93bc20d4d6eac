package port

import "balance_aggregator/internal/domain/entity"

// WalletBalancesResult maps wallet ids to their computed balance snapshots.
// Wallets whose data is not yet complete are absent, not zero.
type WalletBalancesResult map[entity.MetaAccountID]entity.WalletBalanceInfo

// WalletBalanceListener receives balance results. Invoked zero or more times,
// asynchronously, on the subscription's delivery queue (or the notifying
// goroutine when no queue is configured). Exactly one of balances/err is
// meaningful per call.
type WalletBalanceListener interface {
	HandleWalletBalances(balances WalletBalancesResult, err error)
}

// WalletBalanceListenerFunc adapts a function to WalletBalanceListener.
type WalletBalanceListenerFunc func(balances WalletBalancesResult, err error)

func (f WalletBalanceListenerFunc) HandleWalletBalances(balances WalletBalancesResult, err error) {
	f(balances, err)
}
