package quotefeed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"paperTrader/internal/domain"
	"paperTrader/internal/ports"
)

// Client implements the ports.QuoteProvider interface against an HTTP
// market-data service exposing GET /quotes/{symbol}.
type Client struct {
	http   *resty.Client
	logger ports.Logger
}

// Config holds configuration specific to the quote feed client adapter.
type Config struct {
	BaseURL    string
	Timeout    time.Duration // Per-request timeout (e.g., 5 * time.Second)
	RetryCount int
	Logger     ports.Logger
}

// New creates a new quote feed client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for quote feed client")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required for quote feed client: %w", ports.ErrConfigurationError)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Accept", "application/json")

	cfg.Logger.Info(context.Background(), "Quote feed client configured", map[string]interface{}{
		"baseURL": cfg.BaseURL,
		"timeout": timeout.String(),
	})

	return &Client{http: httpClient, logger: cfg.Logger}, nil
}

// quoteResponse is the wire format of the market-data service.
type quoteResponse struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp int64           `json:"timestamp"`
	Stale     bool            `json:"stale"`
}

// GetQuote retrieves the current price for a symbol. All transport and
// service failures are mapped to ports.ErrPriceUnavailable so the caller can
// treat the feed as a single fallible collaborator.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required: %w", ports.ErrInvalidRequest)
	}

	var out quoteResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetPathParam("symbol", symbol).
		Get("/quotes/{symbol}")
	if err != nil {
		c.logger.Warn(ctx, "Quote request failed", map[string]interface{}{"symbol": symbol, "error": err.Error()})
		return nil, fmt.Errorf("quote request for %s failed: %w", symbol, ports.ErrPriceUnavailable)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("symbol %s: %w", symbol, ports.ErrInstrumentNotFound)
	}
	if resp.IsError() {
		c.logger.Warn(ctx, "Quote service returned an error status", map[string]interface{}{
			"symbol": symbol,
			"status": resp.StatusCode(),
		})
		return nil, fmt.Errorf("quote service returned status %d for %s: %w", resp.StatusCode(), symbol, ports.ErrPriceUnavailable)
	}
	if !out.Price.IsPositive() {
		return nil, fmt.Errorf("quote service returned non-positive price for %s: %w", symbol, ports.ErrPriceUnavailable)
	}

	quote := &domain.Quote{
		Symbol:    symbol,
		Price:     out.Price,
		Timestamp: time.Unix(out.Timestamp, 0).UTC(),
		Stale:     out.Stale,
	}
	if quote.Timestamp.IsZero() || out.Timestamp == 0 {
		quote.Timestamp = time.Now().UTC()
	}

	c.logger.Debug(ctx, "Quote received", map[string]interface{}{
		"symbol": symbol,
		"price":  quote.Price.String(),
		"stale":  quote.Stale,
	})
	return quote, nil
}
