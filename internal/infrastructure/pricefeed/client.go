package pricefeed

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"balance_aggregator/internal/domain/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// QuoteClient fetches fiat quotes for a batch of price-feed ids in one
// currency.
type QuoteClient interface {
	GetQuotes(ctx context.Context, priceIDs []string, currency entity.Currency) ([]entity.PriceData, error)
}

// quoteClientImpl talks to a DEXScreener-style quotes API over fasthttp.
type quoteClientImpl struct {
	client        *fasthttp.Client
	baseURL       string
	timeout       time.Duration
	logger        *zap.Logger
	maxIDsPerCall int
}

// quoteWire is the upstream response item.
type quoteWire struct {
	PriceID   string   `json:"priceId"`
	Price     string   `json:"price"`
	DayChange *float64 `json:"dayChange"`
}

// NewQuoteClient creates a quote client against the given base URL.
func NewQuoteClient(baseURL string, timeout time.Duration, logger *zap.Logger, maxIDsPerCall int) QuoteClient {
	if maxIDsPerCall <= 0 {
		maxIDsPerCall = 30
	}
	return &quoteClientImpl{
		client:        &fasthttp.Client{},
		baseURL:       strings.TrimRight(baseURL, "/"),
		timeout:       timeout,
		logger:        logger.Named("QuoteClient"),
		maxIDsPerCall: maxIDsPerCall,
	}
}

// GetQuotes implements QuoteClient.
func (c *quoteClientImpl) GetQuotes(ctx context.Context, priceIDs []string, currency entity.Currency) ([]entity.PriceData, error) {
	if len(priceIDs) == 0 {
		return nil, fmt.Errorf("priceIDs cannot be empty")
	}
	if len(priceIDs) > c.maxIDsPerCall {
		return nil, fmt.Errorf("number of price ids (%d) exceeds max ids per call (%d)", len(priceIDs), c.maxIDsPerCall)
	}

	requestURL := fmt.Sprintf("%s/v1/quotes/%s?ids=%s", c.baseURL, currency.ID, strings.Join(priceIDs, ","))
	c.logger.Debug("Requesting quotes", zap.String("url", requestURL))

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetContentTypeBytes([]byte("application/json"))

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
		}
	} else {
		if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
			return nil, fmt.Errorf("failed to execute request to %s with default timeout: %w", requestURL, err)
		}
	}

	rawBody := resp.Body()
	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Error("Quote API request failed",
			zap.String("url", requestURL),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", rawBody))
		return nil, fmt.Errorf("quote API request to %s failed with status %d", requestURL, resp.StatusCode())
	}

	var quotes []quoteWire
	if err := json.Unmarshal(rawBody, &quotes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote response from %s: %w", requestURL, err)
	}

	prices := make([]entity.PriceData, 0, len(quotes))
	for _, quote := range quotes {
		if quote.PriceID == "" || quote.Price == "" {
			c.logger.Warn("Skipping malformed quote", zap.String("priceId", quote.PriceID))
			continue
		}
		price := entity.PriceData{
			PriceID:    quote.PriceID,
			CurrencyID: currency.ID,
			Price:      quote.Price,
		}
		if quote.DayChange != nil {
			dayChange := decimal.NewFromFloat(*quote.DayChange)
			price.DayChange = &dayChange
		}
		prices = append(prices, price)
	}
	return prices, nil
}
