package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds the virtual cash for one paper-trading account.
type Account struct {
	ID             int64
	Name           string
	Balance        decimal.Decimal // Current cash balance, never negative
	InitialBalance decimal.Decimal // Immutable reference value for lifetime P&L
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Debit removes amount from the cash balance. The balance is pre-checked;
// a failed debit leaves it untouched.
func (a *Account) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(a.Balance) {
		return &InsufficientFundsError{Required: amount, Available: a.Balance}
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// Credit adds amount to the cash balance.
func (a *Account) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}

// LifetimePnL returns the account's total profit and its percentage versus the
// initial balance, given the current market value of all holdings.
func (a *Account) LifetimePnL(holdingsValue decimal.Decimal) (pnl, pct decimal.Decimal) {
	total := a.Balance.Add(holdingsValue)
	pnl = total.Sub(a.InitialBalance)
	if a.InitialBalance.IsPositive() {
		pct = pnl.Div(a.InitialBalance).Mul(decimal.NewFromInt(100))
	}
	return pnl, pct
}
