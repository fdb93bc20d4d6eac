package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"balance_aggregator/internal/app/port"
	"balance_aggregator/internal/domain/entity"
	"balance_aggregator/internal/pkg/dispatch"
	"balance_aggregator/internal/pkg/metrics"
)

// BalanceSubscriptionKind is the granularity a listener cares about.
type BalanceSubscriptionKind int

const (
	// SubscriptionKindWallets: all wallets; re-fires on any change.
	SubscriptionKindWallets BalanceSubscriptionKind = iota
	// SubscriptionKindWallet: one wallet; fires when that wallet is touched.
	SubscriptionKindWallet
	// SubscriptionKindChainAsset: one wallet and one asset.
	SubscriptionKindChainAsset
)

// BalanceSubscription is the handle returned by the subscribe methods. Cancel
// stops future notifications; the registry entry is pruned lazily on the next
// notification pass. A notification already scheduled on the delivery queue
// may still arrive after Cancel (best-effort delivery, not guaranteed-once).
type BalanceSubscription struct {
	kind         BalanceSubscriptionKind
	walletID     entity.MetaAccountID
	chainAssetID entity.ChainAssetID
	listener     port.WalletBalanceListener
	queue        *dispatch.Queue
	cancelled    atomic.Bool
}

// Cancel drops the subscription from future notification passes.
func (s *BalanceSubscription) Cancel() {
	s.cancelled.Store(true)
}

// BalanceCoordinatorDeps are the collaborators the coordinator consumes.
type BalanceCoordinatorDeps struct {
	Wallets        port.WalletRepository
	Chains         port.ChainAssetFetcher
	AdapterFactory port.AccountInfoAdapterFactory
	Prices         port.PriceSource
	Events         port.EventCenter
	Logger         port.Logger
}

// BalanceCoordinator owns the live state of the balance pipeline: chain-asset
// index, wallet index, account-info cache and price cache. It registers
// listener subscriptions, re-aggregates on every inbound update and delivers
// results off the lock scope.
//
// Construct one coordinator per process and pass it explicitly to consumers;
// duplicate coordinators mean duplicate upstream subscriptions.
type BalanceCoordinator struct {
	walletRepo     port.WalletRepository
	chainFetcher   port.ChainAssetFetcher
	adapterFactory port.AccountInfoAdapterFactory
	priceSource    port.PriceSource
	events         port.EventCenter
	logger         port.Logger

	// mu guards the live caches. Writes are exclusive; aggregation reads take
	// a consistent snapshot. Notifications always happen after release.
	mu            sync.RWMutex
	chainAssets   map[entity.ChainAssetID]entity.ChainAsset
	wallets       map[entity.MetaAccountID]entity.MetaAccount
	accountInfos  map[entity.ChainAssetKey]*entity.AccountInfo
	prices        []entity.PriceData
	expectedCount int
	chainsLoaded  bool

	subMu sync.Mutex
	subs  []*BalanceSubscription

	adapterMu sync.Mutex
	adapters  map[entity.MetaAccountID]port.AccountInfoAdapter

	closed atomic.Bool
}

// NewBalanceCoordinator creates a coordinator. Call Start to run the startup
// sequence; listeners may subscribe before or after.
func NewBalanceCoordinator(deps BalanceCoordinatorDeps) *BalanceCoordinator {
	return &BalanceCoordinator{
		walletRepo:     deps.Wallets,
		chainFetcher:   deps.Chains,
		adapterFactory: deps.AdapterFactory,
		priceSource:    deps.Prices,
		events:         deps.Events,
		logger:         deps.Logger,
		chainAssets:    make(map[entity.ChainAssetID]entity.ChainAsset),
		wallets:        make(map[entity.MetaAccountID]entity.MetaAccount),
		accountInfos:   make(map[entity.ChainAssetKey]*entity.AccountInfo),
		adapters:       make(map[entity.MetaAccountID]port.AccountInfoAdapter),
	}
}

// Start runs the startup sequence: chain metadata first, then the wallet list
// (attaching account subscriptions needs asset precision and keys), then one
// account-info adapter per wallet and a single deduplicated price
// subscription. A failed fetch is broadcast to all currently-registered
// listeners and returned; there is no automatic retry.
func (c *BalanceCoordinator) Start(ctx context.Context) error {
	chainAssets, err := c.chainFetcher.FetchAllChainAssets(ctx, true)
	if err != nil {
		c.logger.Error("Failed to fetch chain assets", "error", err)
		failure := fmt.Errorf("%w: %v", entity.ErrChainsMissing, err)
		c.broadcastFailure(failure)
		return failure
	}

	wallets, err := c.walletRepo.FetchAllWallets(ctx)
	if err != nil {
		c.logger.Error("Failed to fetch wallets", "error", err)
		failure := fmt.Errorf("%w: %v", entity.ErrAccountMissing, err)
		c.broadcastFailure(failure)
		return failure
	}

	c.mu.Lock()
	for _, chainAsset := range chainAssets {
		c.chainAssets[chainAsset.ID()] = chainAsset
	}
	for _, wallet := range wallets {
		c.wallets[wallet.ID] = wallet
	}
	c.chainsLoaded = true
	c.expectedCount = c.computeExpectedCountLocked()
	walletCount := len(c.wallets)
	c.mu.Unlock()

	metrics.CachedWallets.Set(float64(walletCount))
	c.logger.Info("Balance coordinator started",
		"wallets", walletCount,
		"chain_assets", len(chainAssets),
		"expected_account_subscriptions", c.expectedCount)

	if c.events != nil {
		c.events.Subscribe(port.EventWalletChanged, c.handleWalletChangedEvent)
		c.events.Subscribe(port.EventSelectedAccountChanged, c.handleSelectedAccountEvent)
		c.events.Subscribe(port.EventChainsUpdated, c.handleChainsUpdatedEvent)
	}

	for _, wallet := range wallets {
		c.openAccountSubscription(wallet, chainAssets)
	}
	c.refreshPriceSubscription()

	return nil
}

// Close tears down the upstream adapters and price subscription. Listener
// handles need no explicit teardown beyond Cancel.
func (c *BalanceCoordinator) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	c.adapterMu.Lock()
	for walletID, adapter := range c.adapters {
		if err := adapter.Close(); err != nil {
			c.logger.Warn("Failed to close account adapter", "wallet_id", walletID, "error", err)
		}
	}
	c.adapters = make(map[entity.MetaAccountID]port.AccountInfoAdapter)
	c.adapterMu.Unlock()

	if c.priceSource != nil {
		if err := c.priceSource.Close(); err != nil {
			c.logger.Warn("Failed to close price source", "error", err)
		}
	}
}

// SubscribeWalletsBalances registers a listener for every wallet. The
// listener re-fires on any change. A best-effort result is delivered
// immediately when the cache already supports a complete computation.
func (c *BalanceCoordinator) SubscribeWalletsBalances(queue *dispatch.Queue, listener port.WalletBalanceListener) *BalanceSubscription {
	sub := &BalanceSubscription{kind: SubscriptionKindWallets, listener: listener, queue: queue}
	c.register(sub)
	return sub
}

// SubscribeWalletBalance registers a listener scoped to one wallet.
func (c *BalanceCoordinator) SubscribeWalletBalance(wallet entity.MetaAccount, queue *dispatch.Queue, listener port.WalletBalanceListener) *BalanceSubscription {
	sub := &BalanceSubscription{kind: SubscriptionKindWallet, walletID: wallet.ID, listener: listener, queue: queue}
	c.register(sub)
	return sub
}

// SubscribeChainAssetBalance registers a listener scoped to one wallet and one
// chain-asset.
func (c *BalanceCoordinator) SubscribeChainAssetBalance(wallet entity.MetaAccount, chainAsset entity.ChainAsset, queue *dispatch.Queue, listener port.WalletBalanceListener) *BalanceSubscription {
	sub := &BalanceSubscription{
		kind:         SubscriptionKindChainAsset,
		walletID:     wallet.ID,
		chainAssetID: chainAsset.ID(),
		listener:     listener,
		queue:        queue,
	}
	c.register(sub)
	return sub
}

func (c *BalanceCoordinator) register(sub *BalanceSubscription) {
	c.subMu.Lock()
	c.subs = append(c.subs, sub)
	c.subMu.Unlock()

	// Immediate best-effort delivery from resident state. A no-op when the
	// cache cannot complete the computation yet.
	snap := c.snapshot()
	if balances := buildForSubscription(sub, snap); len(balances) > 0 {
		c.deliver(sub, balances, nil)
	}
}

// HandleAccountInfo is the inbound callback for account-info adapters.
// Per-asset failures are logged and never fail the pipeline: the affected
// wallet simply never reaches completeness and stays absent from results.
func (c *BalanceCoordinator) HandleAccountInfo(info *entity.AccountInfo, err error, accountID entity.AccountID, chainAsset entity.ChainAsset) {
	if c.closed.Load() {
		return
	}
	if err != nil {
		c.logger.Error("Account info update failed",
			"chain_asset", chainAsset.ID(), "account_id", accountID, "error", err)
		return
	}

	key := chainAsset.Key(accountID)

	c.mu.Lock()
	c.accountInfos[key] = info
	countMet := len(c.accountInfos) >= c.expectedCount
	c.mu.Unlock()

	metrics.AccountInfoUpdates.Inc()

	if !countMet && !chainAsset.SingleAssetChain() {
		return
	}

	touchedWallets := c.walletsWithAccount(chainAsset.ChainID, accountID)
	if len(touchedWallets) == 0 {
		return
	}
	touchedAssets := map[entity.ChainAssetID]bool{chainAsset.ID(): true}
	c.notify(touchedWallets, touchedAssets)
}

// HandlePrices is the inbound callback for the price subscription. The price
// cache is replaced wholesale; upstream errors are broadcast verbatim.
func (c *BalanceCoordinator) HandlePrices(prices []entity.PriceData, err error) {
	if c.closed.Load() {
		return
	}
	if err != nil {
		c.logger.Error("Price subscription failed", "error", err)
		c.broadcastFailure(err)
		return
	}

	c.mu.Lock()
	c.prices = prices
	c.mu.Unlock()

	metrics.PriceRefreshes.Inc()
	c.notify(nil, nil)
}

func (c *BalanceCoordinator) handleWalletChangedEvent(event port.Event) {
	if event.Wallet == nil {
		return
	}

	c.mu.Lock()
	c.wallets[event.Wallet.ID] = *event.Wallet
	c.expectedCount = c.computeExpectedCountLocked()
	c.mu.Unlock()

	c.logger.Debug("Wallet model updated", "wallet_id", event.Wallet.ID)

	// Visibility or currency may have changed; a price refresh recomputes and
	// notifies through HandlePrices.
	c.refreshPriceSubscription()
}

func (c *BalanceCoordinator) handleSelectedAccountEvent(event port.Event) {
	if event.Wallet == nil {
		return
	}
	wallet := *event.Wallet

	c.mu.RLock()
	chainsLoaded := c.chainsLoaded
	c.mu.RUnlock()

	if !chainsLoaded {
		chainAssets, err := c.chainFetcher.FetchAllChainAssets(context.Background(), false)
		if err != nil {
			c.logger.Error("Failed to fetch chain assets for new account", "wallet_id", wallet.ID, "error", err)
			c.broadcastFailure(fmt.Errorf("%w: %v", entity.ErrChainsMissing, err))
			return
		}
		c.mu.Lock()
		for _, chainAsset := range chainAssets {
			c.chainAssets[chainAsset.ID()] = chainAsset
		}
		c.chainsLoaded = true
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.wallets[wallet.ID] = wallet
	c.expectedCount = c.computeExpectedCountLocked()
	chainAssets := chainAssetsLocked(c.chainAssets)
	walletCount := len(c.wallets)
	c.mu.Unlock()

	metrics.CachedWallets.Set(float64(walletCount))
	c.openAccountSubscription(wallet, chainAssets)
	c.refreshPriceSubscription()
	c.notify(map[entity.MetaAccountID]bool{wallet.ID: true}, nil)
}

func (c *BalanceCoordinator) handleChainsUpdatedEvent(event port.Event) {
	if len(event.ChainAssets) == 0 {
		return
	}

	touchedAssets := make(map[entity.ChainAssetID]bool, len(event.ChainAssets))
	touchedChains := make(map[entity.ChainID]bool)

	c.mu.Lock()
	for _, chainAsset := range event.ChainAssets {
		c.chainAssets[chainAsset.ID()] = chainAsset
		touchedAssets[chainAsset.ID()] = true
		touchedChains[chainAsset.ChainID] = true
	}
	c.expectedCount = c.computeExpectedCountLocked()
	touchedWallets := make(map[entity.MetaAccountID]bool)
	for walletID, wallet := range c.wallets {
		for chainID := range touchedChains {
			if _, ok := wallet.AccountID(chainID); ok {
				touchedWallets[walletID] = true
				break
			}
		}
	}
	c.mu.Unlock()

	c.logger.Debug("Chain assets merged", "updated", len(event.ChainAssets))
	c.notify(touchedWallets, touchedAssets)
}

func (c *BalanceCoordinator) openAccountSubscription(wallet entity.MetaAccount, chainAssets []entity.ChainAsset) {
	c.adapterMu.Lock()
	defer c.adapterMu.Unlock()
	if _, exists := c.adapters[wallet.ID]; exists {
		return
	}

	adapter, err := c.adapterFactory.AdapterFor(wallet, chainAssets)
	if err != nil {
		c.logger.Error("Failed to build account adapter", "wallet_id", wallet.ID, "error", err)
		return
	}
	if err := adapter.Subscribe(c.HandleAccountInfo); err != nil {
		c.logger.Error("Failed to open account subscription", "wallet_id", wallet.ID, "error", err)
		return
	}
	c.adapters[wallet.ID] = adapter
}

// refreshPriceSubscription re-keys the single price subscription by the
// deduplicated (price ids, currencies) across all cached state. The source
// fires an immediate refresh on resubscribe.
func (c *BalanceCoordinator) refreshPriceSubscription() {
	if c.priceSource == nil {
		return
	}

	c.mu.RLock()
	priceIDSet := make(map[string]bool)
	for _, chainAsset := range c.chainAssets {
		if chainAsset.PriceID != "" {
			priceIDSet[chainAsset.PriceID] = true
		}
	}
	currencySet := make(map[string]entity.Currency)
	for _, wallet := range c.wallets {
		currencySet[wallet.SelectedCurrency.ID] = wallet.SelectedCurrency
	}
	c.mu.RUnlock()

	priceIDs := make([]string, 0, len(priceIDSet))
	for id := range priceIDSet {
		priceIDs = append(priceIDs, id)
	}
	currencies := make([]entity.Currency, 0, len(currencySet))
	for _, currency := range currencySet {
		currencies = append(currencies, currency)
	}

	if err := c.priceSource.Subscribe(priceIDs, currencies, c.HandlePrices); err != nil {
		c.logger.Error("Failed to open price subscription", "error", err)
	}
}

// snapshot copies the live caches under the read lock so aggregation and
// delivery run entirely off the lock scope.
type coordinatorSnapshot struct {
	accountInfos map[entity.ChainAssetKey]*entity.AccountInfo
	wallets      map[entity.MetaAccountID]entity.MetaAccount
	chainAssets  []entity.ChainAsset
	prices       []entity.PriceData
}

func (c *BalanceCoordinator) snapshot() coordinatorSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	accountInfos := make(map[entity.ChainAssetKey]*entity.AccountInfo, len(c.accountInfos))
	for key, info := range c.accountInfos {
		accountInfos[key] = info
	}
	wallets := make(map[entity.MetaAccountID]entity.MetaAccount, len(c.wallets))
	for id, wallet := range c.wallets {
		wallets[id] = wallet
	}
	return coordinatorSnapshot{
		accountInfos: accountInfos,
		wallets:      wallets,
		chainAssets:  chainAssetsLocked(c.chainAssets),
		prices:       c.prices,
	}
}

func chainAssetsLocked(index map[entity.ChainAssetID]entity.ChainAsset) []entity.ChainAsset {
	chainAssets := make([]entity.ChainAsset, 0, len(index))
	for _, chainAsset := range index {
		chainAssets = append(chainAssets, chainAsset)
	}
	return chainAssets
}

// notify re-runs the aggregator scoped to each live listener and dispatches
// non-empty results. Nil touched sets mean "all wallets touched". Cancelled
// subscriptions are pruned here.
func (c *BalanceCoordinator) notify(touchedWallets map[entity.MetaAccountID]bool, touchedAssets map[entity.ChainAssetID]bool) {
	if c.closed.Load() {
		return
	}

	snap := c.snapshot()
	metrics.BalanceRecomputes.Inc()

	for _, sub := range c.liveSubscriptions() {
		switch sub.kind {
		case SubscriptionKindWallets:
			// Always re-fires on any change.
		case SubscriptionKindWallet:
			if touchedWallets != nil && !touchedWallets[sub.walletID] {
				continue
			}
		case SubscriptionKindChainAsset:
			if touchedWallets != nil && !touchedWallets[sub.walletID] {
				continue
			}
			if touchedAssets != nil && !touchedAssets[sub.chainAssetID] {
				continue
			}
		}

		if balances := buildForSubscription(sub, snap); len(balances) > 0 {
			c.deliver(sub, balances, nil)
		}
	}
}

func buildForSubscription(sub *BalanceSubscription, snap coordinatorSnapshot) port.WalletBalancesResult {
	switch sub.kind {
	case SubscriptionKindWallets:
		wallets := make([]entity.MetaAccount, 0, len(snap.wallets))
		for _, wallet := range snap.wallets {
			wallets = append(wallets, wallet)
		}
		return BuildWalletBalances(snap.accountInfos, wallets, snap.chainAssets, snap.prices)

	case SubscriptionKindWallet:
		wallet, ok := snap.wallets[sub.walletID]
		if !ok {
			return nil
		}
		return BuildWalletBalances(snap.accountInfos, []entity.MetaAccount{wallet}, snap.chainAssets, snap.prices)

	case SubscriptionKindChainAsset:
		wallet, ok := snap.wallets[sub.walletID]
		if !ok {
			return nil
		}
		var scoped []entity.ChainAsset
		for _, chainAsset := range snap.chainAssets {
			if chainAsset.ID() == sub.chainAssetID {
				scoped = append(scoped, chainAsset)
				break
			}
		}
		if len(scoped) == 0 {
			return nil
		}
		return BuildWalletBalances(snap.accountInfos, []entity.MetaAccount{wallet}, scoped, snap.prices)
	}
	return nil
}

// broadcastFailure delivers a failure result to every live listener. Failed
// subscriptions are not unregistered; they may still receive a later success.
func (c *BalanceCoordinator) broadcastFailure(err error) {
	for _, sub := range c.liveSubscriptions() {
		c.deliver(sub, nil, err)
	}
}

func (c *BalanceCoordinator) deliver(sub *BalanceSubscription, balances port.WalletBalancesResult, err error) {
	metrics.ListenerNotifications.Inc()
	if sub.queue != nil {
		sub.queue.Async(func() {
			sub.listener.HandleWalletBalances(balances, err)
		})
		return
	}
	sub.listener.HandleWalletBalances(balances, err)
}

// liveSubscriptions prunes cancelled entries and returns the survivors.
func (c *BalanceCoordinator) liveSubscriptions() []*BalanceSubscription {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	live := c.subs[:0]
	for _, sub := range c.subs {
		if !sub.cancelled.Load() {
			live = append(live, sub)
		}
	}
	c.subs = live

	out := make([]*BalanceSubscription, len(live))
	copy(out, live)
	return out
}

// computeExpectedCountLocked is the completeness oracle: the number of
// account-info entries expected once every (wallet, applicable chain-asset)
// subscription has answered. Wallets without a derivable account on a chain
// are skipped. Caller holds mu.
func (c *BalanceCoordinator) computeExpectedCountLocked() int {
	count := 0
	for _, wallet := range c.wallets {
		for _, chainAsset := range c.chainAssets {
			if _, ok := wallet.AccountID(chainAsset.ChainID); ok {
				count++
			}
		}
	}
	return count
}

// walletsWithAccount returns the wallet ids bound to accountID on chainID.
func (c *BalanceCoordinator) walletsWithAccount(chainID entity.ChainID, accountID entity.AccountID) map[entity.MetaAccountID]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	touched := make(map[entity.MetaAccountID]bool)
	for walletID, wallet := range c.wallets {
		if id, ok := wallet.AccountID(chainID); ok && id == accountID {
			touched[walletID] = true
		}
	}
	return touched
}
