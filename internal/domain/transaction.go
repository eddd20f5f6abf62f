package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an immutable ledger entry recording one executed order.
// Entries are only ever appended; the ledger is the audit trail from which
// an account's balance can be reconstructed.
type Transaction struct {
	ID            int64
	Ref           string // Client-facing reference code (UUID)
	AccountID     int64
	Symbol        string
	Side          Side
	Quantity      int64
	Price         decimal.Decimal     // Execution price per share
	GrossValue    decimal.Decimal     // quantity * price
	Fee           decimal.Decimal     // gross * fee rate
	NetAmount     decimal.Decimal     // gross+fee for BUY, gross-fee for SELL
	RealizedPnL   decimal.NullDecimal // Set only for SELL
	AvgCostAtSale decimal.NullDecimal // Average cost at time of sale, set only for SELL
	BalanceAfter  decimal.Decimal
	ExecutedAt    time.Time
	Note          string
}

// TradeValue computes the gross value, fee and net amount of an order.
// Buys pay gross plus fee, sells receive gross minus fee.
func TradeValue(side Side, quantity int64, price, feeRate decimal.Decimal) (gross, fee, net decimal.Decimal) {
	gross = price.Mul(decimal.NewFromInt(quantity))
	fee = gross.Mul(feeRate)
	if side == Buy {
		net = gross.Add(fee)
	} else {
		net = gross.Sub(fee)
	}
	return gross, fee, net
}

// RealizedPnL computes the profit locked in by a sell relative to the
// average cost of the shares sold, net of the fee.
func RealizedPnL(quantity int64, sellPrice, avgCost, fee decimal.Decimal) decimal.Decimal {
	qty := decimal.NewFromInt(quantity)
	return sellPrice.Mul(qty).Sub(avgCost.Mul(qty)).Sub(fee)
}
