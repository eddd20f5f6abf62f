package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"paperTrader/internal/domain"
)

// Config holds the concentration-limit policy parameters.
type Config struct {
	// MaxPositionFraction caps a single order's gross value as a fraction of
	// the portfolio value evaluated before the trade (e.g., 0.2 for 20%).
	MaxPositionFraction decimal.Decimal
}

// Limiter enforces the position-size policy for new orders.
type Limiter struct {
	cfg Config
}

// NewLimiter creates a limiter, validating the configured fraction.
func NewLimiter(cfg Config) (*Limiter, error) {
	if !cfg.MaxPositionFraction.IsPositive() || cfg.MaxPositionFraction.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("MaxPositionFraction must be in (0, 1], got %s", cfg.MaxPositionFraction)
	}
	return &Limiter{cfg: cfg}, nil
}

// PortfolioValue is cash plus the market value of every open position.
// Positions without a known market price fall back to their cost basis.
func PortfolioValue(cash decimal.Decimal, positions []*domain.Position) decimal.Decimal {
	total := cash
	for _, pos := range positions {
		if pos.Quantity <= 0 {
			continue
		}
		price := pos.LastPrice
		if !price.IsPositive() {
			price = pos.AverageCost
		}
		total = total.Add(price.Mul(decimal.NewFromInt(pos.Quantity)))
	}
	return total
}

// CheckOrderSize rejects an order whose gross value exceeds the configured
// fraction of the portfolio value. The check bounds concentration at order
// time; it does not prevent concentration increases from price movement.
// A non-positive portfolio value skips the check.
func (l *Limiter) CheckOrderSize(gross, portfolioValue decimal.Decimal) error {
	if !portfolioValue.IsPositive() {
		return nil
	}
	fraction := gross.Div(portfolioValue)
	if fraction.GreaterThan(l.cfg.MaxPositionFraction) {
		return &domain.PositionLimitError{Fraction: fraction, Limit: l.cfg.MaxPositionFraction}
	}
	return nil
}
