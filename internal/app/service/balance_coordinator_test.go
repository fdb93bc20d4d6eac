package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"balance_aggregator/internal/app/port"
	"balance_aggregator/internal/domain/entity"
	"balance_aggregator/internal/infrastructure/eventbus"
	"balance_aggregator/internal/pkg/dispatch"
)

type fakeWalletRepo struct {
	wallets []entity.MetaAccount
	err     error
}

func (f *fakeWalletRepo) FetchAllWallets(context.Context) ([]entity.MetaAccount, error) {
	return f.wallets, f.err
}

type fakeChainFetcher struct {
	assets []entity.ChainAsset
	err    error
}

func (f *fakeChainFetcher) FetchAllChainAssets(context.Context, bool) ([]entity.ChainAsset, error) {
	return f.assets, f.err
}

type fakeAdapter struct {
	mu      sync.Mutex
	handler port.AccountInfoHandler
	closed  bool
}

func (a *fakeAdapter) Subscribe(handler port.AccountInfoHandler) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler = handler
	return nil
}

func (a *fakeAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

type fakeAdapterFactory struct {
	mu       sync.Mutex
	adapters map[entity.MetaAccountID]*fakeAdapter
}

func newFakeAdapterFactory() *fakeAdapterFactory {
	return &fakeAdapterFactory{adapters: make(map[entity.MetaAccountID]*fakeAdapter)}
}

func (f *fakeAdapterFactory) AdapterFor(wallet entity.MetaAccount, _ []entity.ChainAsset) (port.AccountInfoAdapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	adapter := &fakeAdapter{}
	f.adapters[wallet.ID] = adapter
	return adapter, nil
}

type fakePriceSource struct {
	mu             sync.Mutex
	handler        port.PriceHandler
	priceIDs       []string
	currencies     []entity.Currency
	subscribeCount int
	closed         bool
}

func (f *fakePriceSource) Subscribe(priceIDs []string, currencies []entity.Currency, handler port.PriceHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceIDs = priceIDs
	f.currencies = currencies
	f.handler = handler
	f.subscribeCount++
	return nil
}

func (f *fakePriceSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePriceSource) subscribes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribeCount
}

type recordingListener struct {
	mu      sync.Mutex
	results []port.WalletBalancesResult
	errs    []error
}

func (l *recordingListener) HandleWalletBalances(balances port.WalletBalancesResult, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.errs = append(l.errs, err)
		return
	}
	l.results = append(l.results, balances)
}

func (l *recordingListener) resultCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.results)
}

func (l *recordingListener) lastResult() port.WalletBalancesResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.results) == 0 {
		return nil
	}
	return l.results[len(l.results)-1]
}

func (l *recordingListener) lastErr() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.errs) == 0 {
		return nil
	}
	return l.errs[len(l.errs)-1]
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type coordinatorFixture struct {
	coordinator *BalanceCoordinator
	factory     *fakeAdapterFactory
	prices      *fakePriceSource
	events      *eventbus.Bus
}

func newCoordinatorFixture(t *testing.T, wallets []entity.MetaAccount, chainAssets []entity.ChainAsset) *coordinatorFixture {
	t.Helper()
	factory := newFakeAdapterFactory()
	priceSource := &fakePriceSource{}
	events := eventbus.New()

	coordinator := NewBalanceCoordinator(BalanceCoordinatorDeps{
		Wallets:        &fakeWalletRepo{wallets: wallets},
		Chains:         &fakeChainFetcher{assets: chainAssets},
		AdapterFactory: factory,
		Prices:         priceSource,
		Events:         events,
		Logger:         noopLogger{},
	})
	return &coordinatorFixture{coordinator: coordinator, factory: factory, prices: priceSource, events: events}
}

// pushAccountInfo feeds an update through the wallet's registered adapter
// handler, the same path production updates take.
func (f *coordinatorFixture) pushAccountInfo(t *testing.T, walletID entity.MetaAccountID, chainAsset entity.ChainAsset, accountID entity.AccountID, info *entity.AccountInfo) {
	t.Helper()
	f.factory.mu.Lock()
	adapter, ok := f.factory.adapters[walletID]
	f.factory.mu.Unlock()
	require.True(t, ok, "no adapter opened for wallet %s", walletID)

	adapter.mu.Lock()
	handler := adapter.handler
	adapter.mu.Unlock()
	require.NotNil(t, handler)
	handler(info, nil, accountID, chainAsset)
}

func TestCoordinatorStartupFailures(t *testing.T) {
	t.Run("chain fetch failure broadcasts chainsMissing", func(t *testing.T) {
		coordinator := NewBalanceCoordinator(BalanceCoordinatorDeps{
			Wallets:        &fakeWalletRepo{},
			Chains:         &fakeChainFetcher{err: errors.New("boom")},
			AdapterFactory: newFakeAdapterFactory(),
			Prices:         &fakePriceSource{},
			Logger:         noopLogger{},
		})

		listener := &recordingListener{}
		coordinator.SubscribeWalletsBalances(nil, listener)

		err := coordinator.Start(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, entity.ErrChainsMissing)
		assert.ErrorIs(t, listener.lastErr(), entity.ErrChainsMissing)
	})

	t.Run("wallet fetch failure broadcasts accountMissing", func(t *testing.T) {
		coordinator := NewBalanceCoordinator(BalanceCoordinatorDeps{
			Wallets:        &fakeWalletRepo{err: errors.New("no wallets")},
			Chains:         &fakeChainFetcher{},
			AdapterFactory: newFakeAdapterFactory(),
			Prices:         &fakePriceSource{},
			Logger:         noopLogger{},
		})

		listener := &recordingListener{}
		coordinator.SubscribeWalletsBalances(nil, listener)

		err := coordinator.Start(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, entity.ErrAccountMissing)
		assert.ErrorIs(t, listener.lastErr(), entity.ErrAccountMissing)
	})

	t.Run("failed listener still receives later success", func(t *testing.T) {
		chainA := testChainAsset("chain-a", "aaa", "asset-a", 6)
		wallet := testWallet("w1", map[entity.ChainID]entity.AccountID{"chain-a": "0xw1"})

		fetcher := &fakeChainFetcher{err: errors.New("down")}
		factory := newFakeAdapterFactory()
		coordinator := NewBalanceCoordinator(BalanceCoordinatorDeps{
			Wallets:        &fakeWalletRepo{wallets: []entity.MetaAccount{wallet}},
			Chains:         fetcher,
			AdapterFactory: factory,
			Prices:         &fakePriceSource{},
			Logger:         noopLogger{},
		})

		listener := &recordingListener{}
		coordinator.SubscribeWalletsBalances(nil, listener)
		require.Error(t, coordinator.Start(context.Background()))

		// The caller re-subscribes by restarting; the earlier listener stays
		// registered and sees the recovery.
		fetcher.err = nil
		fetcher.assets = []entity.ChainAsset{chainA}
		require.NoError(t, coordinator.Start(context.Background()))

		fixture := &coordinatorFixture{coordinator: coordinator, factory: factory}
		fixture.pushAccountInfo(t, wallet.ID, chainA, "0xw1", accountInfoWithFree(1_000_000))
		require.Equal(t, 1, listener.resultCount())
	})
}

func TestCoordinatorCompletenessGate(t *testing.T) {
	chainA := testChainAsset("chain-a", "aaa", "asset-a", 6)
	chainB := testChainAsset("chain-a", "bbb", "asset-b", 6)
	wallet := testWallet("w1", map[entity.ChainID]entity.AccountID{"chain-a": "0xw1"})

	fixture := newCoordinatorFixture(t, []entity.MetaAccount{wallet}, []entity.ChainAsset{chainA, chainB})
	require.NoError(t, fixture.coordinator.Start(context.Background()))

	listener := &recordingListener{}
	fixture.coordinator.SubscribeWalletsBalances(nil, listener)
	require.Equal(t, 0, listener.resultCount(), "nothing to deliver before any account info")

	fixture.pushAccountInfo(t, wallet.ID, chainA, "0xw1", accountInfoWithFree(1_000_000))
	assert.Equal(t, 0, listener.resultCount(), "partial data must not be delivered")

	fixture.pushAccountInfo(t, wallet.ID, chainB, "0xw1", nil)
	require.Equal(t, 1, listener.resultCount(), "explicit nil completes the wallet")
	assert.Contains(t, listener.lastResult(), wallet.ID)
}

func TestCoordinatorListenerScoping(t *testing.T) {
	// Wallets-scope and wallet-one-scope listeners both fire on a wallet-one
	// update; a listener scoped to wallet two does not.
	chainA := testChainAsset("chain-a", "aaa", "asset-a", 6)
	chainB := testChainAsset("chain-b", "bbb", "asset-b", 6)
	walletOne := testWallet("w1", map[entity.ChainID]entity.AccountID{"chain-a": "0xw1"})
	walletTwo := testWallet("w2", map[entity.ChainID]entity.AccountID{"chain-b": "0xw2"})

	fixture := newCoordinatorFixture(t, []entity.MetaAccount{walletOne, walletTwo}, []entity.ChainAsset{chainA, chainB})
	require.NoError(t, fixture.coordinator.Start(context.Background()))

	allListener := &recordingListener{}
	oneListener := &recordingListener{}
	twoListener := &recordingListener{}
	fixture.coordinator.SubscribeWalletsBalances(nil, allListener)
	fixture.coordinator.SubscribeWalletBalance(walletOne, nil, oneListener)
	fixture.coordinator.SubscribeWalletBalance(walletTwo, nil, twoListener)

	fixture.pushAccountInfo(t, walletOne.ID, chainA, "0xw1", accountInfoWithFree(1_000_000))
	fixture.pushAccountInfo(t, walletTwo.ID, chainB, "0xw2", accountInfoWithFree(2_000_000))

	allBefore := allListener.resultCount()
	oneBefore := oneListener.resultCount()
	twoBefore := twoListener.resultCount()
	require.Greater(t, allBefore, 0)

	fixture.pushAccountInfo(t, walletOne.ID, chainA, "0xw1", accountInfoWithFree(3_000_000))

	assert.Equal(t, allBefore+1, allListener.resultCount(), "wallets listener always re-fires")
	assert.Equal(t, oneBefore+1, oneListener.resultCount(), "W1 listener fires, W1 touched")
	assert.Equal(t, twoBefore, twoListener.resultCount(), "W2 listener untouched")
}

func TestCoordinatorChainAssetScope(t *testing.T) {
	chainA := testChainAsset("chain-a", "aaa", "asset-a", 6)
	chainB := testChainAsset("chain-a", "bbb", "asset-b", 6)
	wallet := testWallet("w1", map[entity.ChainID]entity.AccountID{"chain-a": "0xw1"})

	fixture := newCoordinatorFixture(t, []entity.MetaAccount{wallet}, []entity.ChainAsset{chainA, chainB})
	require.NoError(t, fixture.coordinator.Start(context.Background()))

	assetListener := &recordingListener{}
	fixture.coordinator.SubscribeChainAssetBalance(wallet, chainA, nil, assetListener)

	// Completion is triggered by the other asset, so the scoped listener has
	// not been touched yet.
	fixture.pushAccountInfo(t, wallet.ID, chainA, "0xw1", accountInfoWithFree(1_000_000))
	fixture.pushAccountInfo(t, wallet.ID, chainB, "0xw1", accountInfoWithFree(2_000_000))
	require.Equal(t, 0, assetListener.resultCount())

	fixture.pushAccountInfo(t, wallet.ID, chainA, "0xw1", accountInfoWithFree(3_000_000))
	require.Equal(t, 1, assetListener.resultCount())

	// An update to the other asset stays out of this listener's scope.
	fixture.pushAccountInfo(t, wallet.ID, chainB, "0xw1", accountInfoWithFree(4_000_000))
	assert.Equal(t, 1, assetListener.resultCount())

	fixture.pushAccountInfo(t, wallet.ID, chainA, "0xw1", accountInfoWithFree(5_000_000))
	assert.Equal(t, 2, assetListener.resultCount())
}

func TestCoordinatorSingleAssetChainEdgeCase(t *testing.T) {
	eqAsset := testChainAsset("eq-chain", "eqd", "asset-eq", 9)
	eqAsset.ChainType = entity.ChainTypeEquilibrium
	slowAsset := testChainAsset("chain-a", "aaa", "asset-a", 6)

	wallet := testWallet("w1", map[entity.ChainID]entity.AccountID{
		"eq-chain": "0xeq",
		"chain-a":  "0xw1",
	})

	fixture := newCoordinatorFixture(t, []entity.MetaAccount{wallet}, []entity.ChainAsset{eqAsset, slowAsset})
	require.NoError(t, fixture.coordinator.Start(context.Background()))

	assetListener := &recordingListener{}
	fixture.coordinator.SubscribeChainAssetBalance(wallet, eqAsset, nil, assetListener)

	// The global expected count (2) is not met, but the equilibrium-type
	// chain satisfies its own scope with a single arrival.
	fixture.pushAccountInfo(t, wallet.ID, eqAsset, "0xeq", accountInfoWithFree(1_000_000_000))
	require.Equal(t, 1, assetListener.resultCount())
}

func TestCoordinatorPriceUpdates(t *testing.T) {
	chainA := testChainAsset("chain-a", "aaa", "asset-a", 6)
	wallet := testWallet("w1", map[entity.ChainID]entity.AccountID{"chain-a": "0xw1"})

	fixture := newCoordinatorFixture(t, []entity.MetaAccount{wallet}, []entity.ChainAsset{chainA})
	require.NoError(t, fixture.coordinator.Start(context.Background()))
	require.Equal(t, 1, fixture.prices.subscribes())
	assert.ElementsMatch(t, []string{"asset-a"}, fixture.prices.priceIDs)

	listener := &recordingListener{}
	fixture.coordinator.SubscribeWalletsBalances(nil, listener)
	fixture.pushAccountInfo(t, wallet.ID, chainA, "0xw1", accountInfoWithFree(10_000_000))
	require.Equal(t, 1, listener.resultCount())
	assert.True(t, listener.lastResult()[wallet.ID].TotalFiatValue.IsZero())

	t.Run("price refresh recomputes all listeners", func(t *testing.T) {
		fixture.prices.handler([]entity.PriceData{priceOf("asset-a", "usd", "2", nil)}, nil)
		require.Equal(t, 2, listener.resultCount())
		assert.True(t, listener.lastResult()[wallet.ID].TotalFiatValue.Equal(decimal.NewFromInt(20)))
	})

	t.Run("empty refresh values to zero, not error", func(t *testing.T) {
		fixture.prices.handler([]entity.PriceData{}, nil)
		require.Equal(t, 3, listener.resultCount())
		assert.True(t, listener.lastResult()[wallet.ID].TotalFiatValue.IsZero())
		assert.NoError(t, listener.lastErr())
	})

	t.Run("price failure broadcast verbatim", func(t *testing.T) {
		upstreamErr := errors.New("price feed down")
		fixture.prices.handler(nil, upstreamErr)
		assert.Equal(t, upstreamErr, listener.lastErr())
	})
}

func TestCoordinatorImmediateDeliveryOnSubscribe(t *testing.T) {
	chainA := testChainAsset("chain-a", "aaa", "asset-a", 6)
	wallet := testWallet("w1", map[entity.ChainID]entity.AccountID{"chain-a": "0xw1"})

	fixture := newCoordinatorFixture(t, []entity.MetaAccount{wallet}, []entity.ChainAsset{chainA})
	require.NoError(t, fixture.coordinator.Start(context.Background()))
	fixture.pushAccountInfo(t, wallet.ID, chainA, "0xw1", accountInfoWithFree(1_000_000))

	delivered := 0
	listener := port.WalletBalanceListenerFunc(func(balances port.WalletBalancesResult, err error) {
		require.NoError(t, err)
		require.Contains(t, balances, wallet.ID)
		delivered++
	})
	fixture.coordinator.SubscribeWalletBalance(wallet, nil, listener)
	require.Equal(t, 1, delivered, "resident cache delivered synchronously")
}

func TestCoordinatorCancelStopsNotifications(t *testing.T) {
	chainA := testChainAsset("chain-a", "aaa", "asset-a", 6)
	wallet := testWallet("w1", map[entity.ChainID]entity.AccountID{"chain-a": "0xw1"})

	fixture := newCoordinatorFixture(t, []entity.MetaAccount{wallet}, []entity.ChainAsset{chainA})
	require.NoError(t, fixture.coordinator.Start(context.Background()))

	listener := &recordingListener{}
	sub := fixture.coordinator.SubscribeWalletsBalances(nil, listener)

	fixture.pushAccountInfo(t, wallet.ID, chainA, "0xw1", accountInfoWithFree(1_000_000))
	require.Equal(t, 1, listener.resultCount())

	sub.Cancel()
	fixture.pushAccountInfo(t, wallet.ID, chainA, "0xw1", accountInfoWithFree(2_000_000))
	assert.Equal(t, 1, listener.resultCount())
}

func TestCoordinatorDeliveryQueue(t *testing.T) {
	chainA := testChainAsset("chain-a", "aaa", "asset-a", 6)
	wallet := testWallet("w1", map[entity.ChainID]entity.AccountID{"chain-a": "0xw1"})

	fixture := newCoordinatorFixture(t, []entity.MetaAccount{wallet}, []entity.ChainAsset{chainA})
	require.NoError(t, fixture.coordinator.Start(context.Background()))

	queue := dispatch.NewQueue()
	defer queue.Close()

	listener := &recordingListener{}
	fixture.coordinator.SubscribeWalletsBalances(queue, listener)
	fixture.pushAccountInfo(t, wallet.ID, chainA, "0xw1", accountInfoWithFree(1_000_000))

	require.Eventually(t, func() bool {
		return listener.resultCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestCoordinatorWalletChangedEvent(t *testing.T) {
	chainA := testChainAsset("chain-a", "aaa", "asset-a", 6)
	wallet := testWallet("w1", map[entity.ChainID]entity.AccountID{"chain-a": "0xw1"})

	fixture := newCoordinatorFixture(t, []entity.MetaAccount{wallet}, []entity.ChainAsset{chainA})
	require.NoError(t, fixture.coordinator.Start(context.Background()))
	require.Equal(t, 1, fixture.prices.subscribes())

	eur := entity.Currency{ID: "eur", Symbol: "€"}
	changed := wallet.ReplacingCurrency(eur)
	fixture.events.Publish(port.Event{Topic: port.EventWalletChanged, Wallet: &changed})

	// Currency change forces a price-provider refresh with the new key set.
	require.Equal(t, 2, fixture.prices.subscribes())
	assert.ElementsMatch(t, []entity.Currency{eur}, fixture.prices.currencies)
}

func TestCoordinatorSelectedAccountEvent(t *testing.T) {
	chainA := testChainAsset("chain-a", "aaa", "asset-a", 6)
	wallet := testWallet("w1", map[entity.ChainID]entity.AccountID{"chain-a": "0xw1"})

	fixture := newCoordinatorFixture(t, []entity.MetaAccount{wallet}, []entity.ChainAsset{chainA})
	require.NoError(t, fixture.coordinator.Start(context.Background()))

	newWallet := testWallet("w2", map[entity.ChainID]entity.AccountID{"chain-a": "0xw2"})
	fixture.events.Publish(port.Event{Topic: port.EventSelectedAccountChanged, Wallet: &newWallet})

	// An account adapter is opened for the merged wallet.
	fixture.factory.mu.Lock()
	_, opened := fixture.factory.adapters[newWallet.ID]
	fixture.factory.mu.Unlock()
	require.True(t, opened)

	// The new wallet raises the expected subscription count to two entries.
	// Answer the original wallet first so the new wallet's own update is the
	// one that crosses the completeness threshold.
	listener := &recordingListener{}
	fixture.coordinator.SubscribeWalletBalance(newWallet, nil, listener)
	fixture.pushAccountInfo(t, wallet.ID, chainA, "0xw1", accountInfoWithFree(1_000_000))
	fixture.pushAccountInfo(t, newWallet.ID, chainA, "0xw2", accountInfoWithFree(1_000_000))
	require.Equal(t, 1, listener.resultCount())
	assert.Contains(t, listener.lastResult(), newWallet.ID)
}

func TestCoordinatorChainsUpdatedEvent(t *testing.T) {
	chainA := testChainAsset("chain-a", "aaa", "asset-a", 6)
	wallet := testWallet("w1", map[entity.ChainID]entity.AccountID{"chain-a": "0xw1"})

	fixture := newCoordinatorFixture(t, []entity.MetaAccount{wallet}, []entity.ChainAsset{chainA})
	require.NoError(t, fixture.coordinator.Start(context.Background()))

	listener := &recordingListener{}
	fixture.coordinator.SubscribeWalletsBalances(nil, listener)
	fixture.pushAccountInfo(t, wallet.ID, chainA, "0xw1", accountInfoWithFree(10_000_000))
	require.Equal(t, 1, listener.resultCount())

	// Metadata update for an already-answered asset recomputes immediately.
	refreshed := chainA
	refreshed.Precision = 7
	fixture.events.Publish(port.Event{Topic: port.EventChainsUpdated, ChainAssets: []entity.ChainAsset{refreshed}})
	require.Equal(t, 2, listener.resultCount())

	// A brand-new asset reopens the completeness gate until it answers.
	chainB := testChainAsset("chain-a", "bbb", "asset-b", 6)
	fixture.events.Publish(port.Event{Topic: port.EventChainsUpdated, ChainAssets: []entity.ChainAsset{chainB}})
	assert.Equal(t, 2, listener.resultCount())

	fixture.pushAccountInfo(t, wallet.ID, chainB, "0xw1", accountInfoWithFree(1_000_000))
	assert.Equal(t, 3, listener.resultCount())
}

func TestCoordinatorConcurrentAccountInfoUpdates(t *testing.T) {
	chainA := testChainAsset("chain-a", "aaa", "asset-a", 6)
	chainB := testChainAsset("chain-a", "bbb", "asset-b", 6)
	wallet := testWallet("w1", map[entity.ChainID]entity.AccountID{"chain-a": "0xw1"})

	fixture := newCoordinatorFixture(t, []entity.MetaAccount{wallet}, []entity.ChainAsset{chainA, chainB})
	require.NoError(t, fixture.coordinator.Start(context.Background()))

	listener := &recordingListener{}
	fixture.coordinator.SubscribeWalletsBalances(nil, listener)

	fixture.factory.mu.Lock()
	adapter := fixture.factory.adapters[wallet.ID]
	fixture.factory.mu.Unlock()
	adapter.mu.Lock()
	handler := adapter.handler
	adapter.mu.Unlock()
	require.NotNil(t, handler)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			asset := chainA
			if n%2 == 0 {
				asset = chainB
			}
			handler(accountInfoWithFree(int64(n)*1_000_000), nil, "0xw1", asset)
		}(i)
	}
	wg.Wait()

	// Both assets have answered by now regardless of interleaving; the next
	// update must produce a complete result.
	fixture.pushAccountInfo(t, wallet.ID, chainA, "0xw1", accountInfoWithFree(5_000_000))
	require.Greater(t, listener.resultCount(), 0)
	assert.Contains(t, listener.lastResult(), wallet.ID)
}

func TestCoordinatorClose(t *testing.T) {
	chainA := testChainAsset("chain-a", "aaa", "asset-a", 6)
	wallet := testWallet("w1", map[entity.ChainID]entity.AccountID{"chain-a": "0xw1"})

	fixture := newCoordinatorFixture(t, []entity.MetaAccount{wallet}, []entity.ChainAsset{chainA})
	require.NoError(t, fixture.coordinator.Start(context.Background()))

	fixture.factory.mu.Lock()
	adapter := fixture.factory.adapters[wallet.ID]
	fixture.factory.mu.Unlock()

	fixture.coordinator.Close()

	adapter.mu.Lock()
	closed := adapter.closed
	handler := adapter.handler
	adapter.mu.Unlock()
	assert.True(t, closed)
	assert.True(t, fixture.prices.closed)

	// Late updates after Close are ignored.
	listener := &recordingListener{}
	fixture.coordinator.SubscribeWalletsBalances(nil, listener)
	handler(accountInfoWithFree(1_000_000), nil, "0xw1", chainA)
	assert.Equal(t, 0, listener.resultCount())
}
