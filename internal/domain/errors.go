package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Business-rule errors raised by the trading core. Structured variants below
// carry the figures needed to render an actionable message; they match their
// sentinel via errors.Is.
var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrPriceInvalid       = errors.New("price must be positive")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrPositionLimit      = errors.New("position size limit exceeded")
	ErrInstrumentInactive = errors.New("instrument is not active for trading")
)

// InsufficientFundsError reports an order whose net cost exceeds the cash balance.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %s, available %s", e.Required, e.Available)
}

func (e *InsufficientFundsError) Is(target error) bool { return target == ErrInsufficientFunds }

// InsufficientSharesError reports a sell of more shares than the account holds.
type InsufficientSharesError struct {
	Symbol    string
	Requested int64
	Available int64
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares of %s: requested %d, available %d", e.Symbol, e.Requested, e.Available)
}

func (e *InsufficientSharesError) Is(target error) bool { return target == ErrInsufficientShares }

// PositionLimitError reports an order whose gross value would exceed the
// configured fraction of the account's portfolio value.
type PositionLimitError struct {
	Fraction decimal.Decimal
	Limit    decimal.Decimal
}

func (e *PositionLimitError) Error() string {
	return fmt.Sprintf("position size %s of portfolio exceeds limit %s", e.Fraction, e.Limit)
}

func (e *PositionLimitError) Is(target error) bool { return target == ErrPositionLimit }
