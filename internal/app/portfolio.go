package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"paperTrader/internal/domain"
	"paperTrader/internal/ports"
)

// Holding is the valuation of one open position inside a portfolio snapshot.
type Holding struct {
	Symbol               string
	Quantity             int64
	AverageCost          decimal.Decimal
	CurrentPrice         decimal.Decimal
	InvestedValue        decimal.Decimal
	CurrentValue         decimal.Decimal
	UnrealizedPnL        decimal.Decimal
	UnrealizedPnLPercent decimal.Decimal
	PriceStale           bool // Set when the feed could not supply a fresh price
}

// PortfolioSummary is a read-only valuation snapshot of one account.
type PortfolioSummary struct {
	AccountID       int64
	CashBalance     decimal.Decimal
	InvestedValue   decimal.Decimal
	CurrentValue    decimal.Decimal
	TotalValue      decimal.Decimal // Cash + current value of holdings
	UnrealizedPnL   decimal.Decimal
	TotalPnL        decimal.Decimal // Versus the account's initial balance
	TotalPnLPercent decimal.Decimal
	Holdings        []*Holding
}

// GetPortfolioSummary builds a valuation snapshot for an account. A feed
// failure for one symbol degrades that holding to its last known price and
// flags it stale; it never aborts the whole summary.
func (s *TradingService) GetPortfolioSummary(ctx context.Context, accountID int64) (*PortfolioSummary, error) {
	acct, err := s.accounts.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %d: %w", accountID, err)
	}
	if acct == nil {
		return nil, fmt.Errorf("account %d: %w", accountID, ports.ErrAccountNotFound)
	}

	positions, err := s.positions.FindPositionsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions for account %d: %w", accountID, err)
	}

	summary := &PortfolioSummary{
		AccountID:   accountID,
		CashBalance: acct.Balance,
		Holdings:    make([]*Holding, 0, len(positions)),
	}

	for _, pos := range positions {
		if pos.Quantity <= 0 {
			continue // Liquidated positions are kept for history, not valued
		}
		stale := s.refreshHolding(ctx, pos)

		holding := &Holding{
			Symbol:               pos.Symbol,
			Quantity:             pos.Quantity,
			AverageCost:          pos.AverageCost,
			CurrentPrice:         pos.LastPrice,
			InvestedValue:        pos.InvestedValue(),
			CurrentValue:         pos.CurrentValue(),
			UnrealizedPnL:        pos.UnrealizedPnL,
			UnrealizedPnLPercent: pos.UnrealizedPnLPercent,
			PriceStale:           stale,
		}
		summary.Holdings = append(summary.Holdings, holding)
		summary.InvestedValue = summary.InvestedValue.Add(holding.InvestedValue)
		summary.CurrentValue = summary.CurrentValue.Add(holding.CurrentValue)
	}

	summary.TotalValue = summary.CashBalance.Add(summary.CurrentValue)
	summary.UnrealizedPnL = summary.CurrentValue.Sub(summary.InvestedValue)
	summary.TotalPnL, summary.TotalPnLPercent = acct.LifetimePnL(summary.CurrentValue)

	return summary, nil
}

// refreshHolding refreshes one position's market price from the feed and
// persists the denormalized value. Reports whether the price is stale.
func (s *TradingService) refreshHolding(ctx context.Context, pos *domain.Position) bool {
	qctx, cancel := context.WithTimeout(ctx, s.cfg.QuoteTimeout)
	defer cancel()

	quote, err := s.feed.GetQuote(qctx, pos.Symbol)
	if err != nil {
		s.logger.Warn(ctx, "Quote unavailable, valuing holding at last known price", map[string]interface{}{
			"symbol":    pos.Symbol,
			"lastPrice": pos.LastPrice.String(),
			"error":     err.Error(),
		})
		return true
	}

	pos.RefreshMarketPrice(quote.Price)
	// Best-effort persistence of the denormalized price; the snapshot itself
	// is already correct in memory.
	if err := s.positions.UpdateMarketPrice(ctx, pos); err != nil {
		s.logger.Warn(ctx, "Failed to persist refreshed market price", map[string]interface{}{
			"symbol": pos.Symbol,
			"error":  err.Error(),
		})
	}
	return quote.Stale
}
