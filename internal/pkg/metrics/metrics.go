package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// BalanceRecomputes counts full aggregator runs triggered by live updates.
	BalanceRecomputes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "balance_recomputes_total",
		Help: "Number of wallet balance aggregations performed.",
	})

	// ListenerNotifications counts successful deliveries to listeners.
	ListenerNotifications = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "balance_listener_notifications_total",
		Help: "Number of balance results dispatched to listeners.",
	})

	// AccountInfoUpdates counts inbound account-info cache writes.
	AccountInfoUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "balance_account_info_updates_total",
		Help: "Number of account-info updates applied to the cache.",
	})

	// PriceRefreshes counts wholesale price cache replacements.
	PriceRefreshes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "balance_price_refreshes_total",
		Help: "Number of price subscription refreshes applied.",
	})

	// CachedWallets tracks the number of wallets known to the coordinator.
	CachedWallets = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "balance_cached_wallets",
		Help: "Number of wallets currently cached by the coordinator.",
	})
)

// MustRegisterMetrics registers all pipeline collectors with the default
// registry. Call once at startup.
func MustRegisterMetrics() {
	prometheus.MustRegister(
		BalanceRecomputes,
		ListenerNotifications,
		AccountInfoUpdates,
		PriceRefreshes,
		CachedWallets,
	)
}
