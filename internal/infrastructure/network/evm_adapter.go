package network

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"

	"balance_aggregator/internal/app/port"
	"balance_aggregator/internal/domain/entity"
)

// ERC20 ABI minimal part for balanceOf
const erc20ABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}]`

var (
	parsedERC20Once sync.Once
	erc20MethodID   []byte
)

func initParsedERC20ABI() {
	parsedERC20Once.Do(func() {
		parsed, err := abi.JSON(strings.NewReader(erc20ABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
		}
		balanceOfMethod, ok := parsed.Methods["balanceOf"]
		if !ok {
			panic("balanceOf method not found in parsed ERC20 ABI")
		}
		erc20MethodID = balanceOfMethod.ID
	})
}

// EVMAdapterConfig bounds the adapter's RPC behavior.
type EVMAdapterConfig struct {
	ConnectTimeout time.Duration
	CallTimeout    time.Duration
	PollInterval   time.Duration
	RateLimit      rate.Limit
	RateBurst      int
}

// EVMAdapterFactory builds one account-info adapter per wallet. RPC clients
// are shared across adapters by endpoint URL.
type EVMAdapterFactory struct {
	cfg    EVMAdapterConfig
	logger port.Logger

	mu      sync.Mutex
	clients map[string]*rpc.Client
}

// NewEVMAdapterFactory creates the factory.
func NewEVMAdapterFactory(cfg EVMAdapterConfig, logger port.Logger) *EVMAdapterFactory {
	initParsedERC20ABI()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = rate.Limit(10)
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 5
	}
	return &EVMAdapterFactory{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[string]*rpc.Client),
	}
}

// AdapterFor fans the wallet out across all its applicable chain-assets.
// Ethereum-type assets are polled over batched JSON-RPC; other chain types
// are answered once with a nil account info so completeness can still be
// reached in mixed configurations.
func (f *EVMAdapterFactory) AdapterFor(wallet entity.MetaAccount, chainAssets []entity.ChainAsset) (port.AccountInfoAdapter, error) {
	var targets []adapterTarget
	for _, chainAsset := range chainAssets {
		accountID, ok := wallet.AccountID(chainAsset.ChainID)
		if !ok {
			continue
		}
		targets = append(targets, adapterTarget{chainAsset: chainAsset, accountID: accountID})
	}

	return &evmAdapter{
		factory: f,
		wallet:  wallet,
		targets: targets,
		limiter: rate.NewLimiter(f.cfg.RateLimit, f.cfg.RateBurst),
		quit:    make(chan struct{}),
	}, nil
}

func (f *EVMAdapterFactory) clientFor(rpcURL string) (*rpc.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if client, ok := f.clients[rpcURL]; ok {
		return client, nil
	}

	ctx := context.Background()
	if f.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.ConnectTimeout)
		defer cancel()
	}
	client, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
	}
	f.clients[rpcURL] = client
	return client, nil
}

type adapterTarget struct {
	chainAsset entity.ChainAsset
	accountID  entity.AccountID
}

// evmAdapter polls balances for one wallet until closed.
type evmAdapter struct {
	factory *EVMAdapterFactory
	wallet  entity.MetaAccount
	targets []adapterTarget
	limiter *rate.Limiter

	quit      chan struct{}
	closeOnce sync.Once
}

// Subscribe starts the polling loop. Non-EVM targets are answered immediately.
func (a *evmAdapter) Subscribe(handler port.AccountInfoHandler) error {
	var evmTargets []adapterTarget
	for _, target := range a.targets {
		if target.chainAsset.ChainType == entity.ChainTypeEthereum {
			evmTargets = append(evmTargets, target)
			continue
		}
		// No transport for this chain type here; report answered-empty so the
		// wallet can still reach completeness.
		handler(nil, nil, target.accountID, target.chainAsset)
	}

	if len(evmTargets) == 0 {
		return nil
	}

	go a.loop(evmTargets, handler)
	return nil
}

// Close stops polling. Shared RPC clients stay open for other adapters.
func (a *evmAdapter) Close() error {
	a.closeOnce.Do(func() {
		close(a.quit)
	})
	return nil
}

func (a *evmAdapter) loop(targets []adapterTarget, handler port.AccountInfoHandler) {
	a.pollOnce(targets, handler)

	ticker := time.NewTicker(a.factory.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.quit:
			return
		case <-ticker.C:
			a.pollOnce(targets, handler)
		}
	}
}

func (a *evmAdapter) pollOnce(targets []adapterTarget, handler port.AccountInfoHandler) {
	byEndpoint := make(map[string][]adapterTarget)
	for _, target := range targets {
		byEndpoint[target.chainAsset.RPCURL] = append(byEndpoint[target.chainAsset.RPCURL], target)
	}

	for rpcURL, endpointTargets := range byEndpoint {
		select {
		case <-a.quit:
			return
		default:
		}
		a.pollEndpoint(rpcURL, endpointTargets, handler)
	}
}

func (a *evmAdapter) pollEndpoint(rpcURL string, targets []adapterTarget, handler port.AccountInfoHandler) {
	fail := func(err error) {
		for _, target := range targets {
			handler(nil, err, target.accountID, target.chainAsset)
		}
	}

	client, err := a.factory.clientFor(rpcURL)
	if err != nil {
		fail(err)
		return
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if a.factory.cfg.CallTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, a.factory.cfg.CallTimeout)
		defer cancel()
	}

	if err := a.limiter.Wait(ctx); err != nil {
		fail(err)
		return
	}

	batch := make([]rpc.BatchElem, len(targets))
	for i, target := range targets {
		walletAddress := common.HexToAddress(string(target.accountID))
		if target.chainAsset.IsNative() {
			batch[i] = rpc.BatchElem{
				Method: "eth_getBalance",
				Args:   []interface{}{walletAddress, "latest"},
				Result: new(*hexutil.Big),
			}
			continue
		}

		paddedWalletAddress := common.LeftPadBytes(walletAddress.Bytes(), 32)
		callData := append(append([]byte(nil), erc20MethodID...), paddedWalletAddress...)
		callArgs := map[string]interface{}{
			"to":   common.HexToAddress(target.chainAsset.ContractAddress),
			"data": hexutil.Bytes(callData),
		}
		batch[i] = rpc.BatchElem{
			Method: "eth_call",
			Args:   []interface{}{callArgs, "latest"},
			Result: new(hexutil.Bytes),
		}
	}

	if err := client.BatchCallContext(ctx, batch); err != nil {
		a.factory.logger.Error("Batch balance call failed",
			"wallet_id", a.wallet.ID, "rpc_url", rpcURL, "error", err)
		fail(err)
		return
	}

	for i, target := range targets {
		if batch[i].Error != nil {
			handler(nil, batch[i].Error, target.accountID, target.chainAsset)
			continue
		}

		balance, err := decodeBatchResult(batch[i].Result)
		if err != nil {
			handler(nil, err, target.accountID, target.chainAsset)
			continue
		}
		handler(&entity.AccountInfo{Free: balance}, nil, target.accountID, target.chainAsset)
	}
}

func decodeBatchResult(result interface{}) (*big.Int, error) {
	switch v := result.(type) {
	case **hexutil.Big:
		if *v == nil {
			return new(big.Int), nil
		}
		return (*v).ToInt(), nil
	case *hexutil.Bytes:
		return new(big.Int).SetBytes(*v), nil
	default:
		return nil, fmt.Errorf("unexpected batch result type %T", result)
	}
}
