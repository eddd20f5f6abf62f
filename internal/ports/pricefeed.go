package ports

import (
	"context"

	"paperTrader/internal/domain"
)

// QuoteProvider supplies market prices for instrument symbols. Implementations
// are expected to apply their own caching/TTL; a returned quote is treated as
// authoritative at call time. Calls must honour the caller's context deadline.
type QuoteProvider interface {
	// GetQuote retrieves the current price for a symbol.
	// Failures should wrap ErrPriceUnavailable.
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)
}
