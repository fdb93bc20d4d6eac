package pricefeed

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"balance_aggregator/internal/app/port"
	"balance_aggregator/internal/domain/entity"
	"balance_aggregator/internal/pkg/utils"
)

// Poller implements port.PriceSource by polling a QuoteClient on a fixed
// interval. Each poll delivers one full price snapshot across all subscribed
// (price id, currency) combinations, or the fetch error verbatim.
type Poller struct {
	client       QuoteClient
	interval     time.Duration
	fetchTimeout time.Duration
	batchSize    int
	logger       port.Logger

	mu         sync.Mutex
	priceIDs   []string
	currencies []entity.Currency
	handler    port.PriceHandler
	cancel     context.CancelFunc
	closed     bool
}

// NewPoller creates a price poller. The subscription starts on the first
// Subscribe call.
func NewPoller(client QuoteClient, interval, fetchTimeout time.Duration, batchSize int, logger port.Logger) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 30
	}
	return &Poller{
		client:       client,
		interval:     interval,
		fetchTimeout: fetchTimeout,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Subscribe replaces the subscription key set and handler, stops any previous
// polling loop and starts a new one with an immediate first fetch.
func (p *Poller) Subscribe(priceIDs []string, currencies []entity.Currency, handler port.PriceHandler) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.priceIDs = append([]string(nil), priceIDs...)
	p.currencies = append([]entity.Currency(nil), currencies...)
	p.handler = handler
	p.cancel = cancel
	p.mu.Unlock()

	go p.loop(ctx)
	return nil
}

// Close stops polling permanently.
func (p *Poller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	return nil
}

func (p *Poller) loop(ctx context.Context) {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	p.mu.Lock()
	priceIDs := p.priceIDs
	currencies := p.currencies
	handler := p.handler
	p.mu.Unlock()

	if handler == nil || len(priceIDs) == 0 || len(currencies) == 0 {
		return
	}

	fetchCtx := ctx
	var cancel context.CancelFunc
	if p.fetchTimeout > 0 {
		fetchCtx, cancel = context.WithTimeout(ctx, p.fetchTimeout)
		defer cancel()
	}

	batches := utils.BatchStrings(priceIDs, p.batchSize)

	var resultMu sync.Mutex
	var prices []entity.PriceData

	group, groupCtx := errgroup.WithContext(fetchCtx)
	for _, currency := range currencies {
		for _, batch := range batches {
			currency, batch := currency, batch
			group.Go(func() error {
				quotes, err := p.client.GetQuotes(groupCtx, batch, currency)
				if err != nil {
					return err
				}
				resultMu.Lock()
				prices = append(prices, quotes...)
				resultMu.Unlock()
				return nil
			})
		}
	}

	if err := group.Wait(); err != nil {
		p.logger.Error("Price poll failed", "error", err)
		handler(nil, err)
		return
	}

	p.logger.Debug("Price poll completed", "quotes", len(prices))
	handler(prices, nil)
}
