package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position tracks one account's holding of a single instrument with
// weighted-average cost accounting. A fully liquidated position is kept at
// quantity 0 for history; its cost basis is reset so no stale average survives.
type Position struct {
	ID          int64
	AccountID   int64
	Symbol      string
	Quantity    int64
	AverageCost decimal.Decimal // Meaningful only while Quantity > 0
	LastPrice   decimal.Decimal // Denormalized market price, refreshed on read

	// Derived valuation fields, recomputed whenever quantity, cost basis or
	// market price change. Never persisted as source of truth.
	UnrealizedPnL        decimal.Decimal
	UnrealizedPnLPercent decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApplyBuy adds shares to the position and recalculates the weighted-average
// cost: (oldQty*oldAvg + qty*price) / (oldQty+qty).
func (p *Position) ApplyBuy(quantity int64, price decimal.Decimal) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !price.IsPositive() {
		return ErrPriceInvalid
	}
	oldCost := p.AverageCost.Mul(decimal.NewFromInt(p.Quantity))
	addedCost := price.Mul(decimal.NewFromInt(quantity))
	p.Quantity += quantity
	p.AverageCost = oldCost.Add(addedCost).Div(decimal.NewFromInt(p.Quantity))
	p.recalculate()
	return nil
}

// ApplySell removes shares from the position and returns the average cost in
// effect before the reduction, which the caller needs for realized P&L.
// A failed sell leaves the position untouched.
func (p *Position) ApplySell(quantity int64) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Zero, ErrInvalidQuantity
	}
	if quantity > p.Quantity {
		return decimal.Zero, &InsufficientSharesError{Symbol: p.Symbol, Requested: quantity, Available: p.Quantity}
	}
	costBefore := p.AverageCost
	p.Quantity -= quantity
	if p.Quantity == 0 {
		p.AverageCost = decimal.Zero
	}
	p.recalculate()
	return costBefore, nil
}

// RefreshMarketPrice updates the denormalized last price and the unrealized
// P&L fields. It never affects quantity or cost basis. Non-positive prices
// are ignored.
func (p *Position) RefreshMarketPrice(price decimal.Decimal) {
	if !price.IsPositive() {
		return
	}
	p.LastPrice = price
	p.recalculate()
}

// InvestedValue returns quantity times average cost.
func (p *Position) InvestedValue() decimal.Decimal {
	return p.AverageCost.Mul(decimal.NewFromInt(p.Quantity))
}

// CurrentValue returns quantity times the last known market price.
func (p *Position) CurrentValue() decimal.Decimal {
	return p.LastPrice.Mul(decimal.NewFromInt(p.Quantity))
}

func (p *Position) recalculate() {
	if p.Quantity <= 0 || !p.LastPrice.IsPositive() {
		p.UnrealizedPnL = decimal.Zero
		p.UnrealizedPnLPercent = decimal.Zero
		return
	}
	invested := p.InvestedValue()
	p.UnrealizedPnL = p.CurrentValue().Sub(invested)
	if invested.IsPositive() {
		p.UnrealizedPnLPercent = p.UnrealizedPnL.Div(invested).Mul(decimal.NewFromInt(100))
	} else {
		p.UnrealizedPnLPercent = decimal.Zero
	}
}
