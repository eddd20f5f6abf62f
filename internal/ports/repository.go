package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"paperTrader/internal/domain"
)

// AccountRepository defines the interface for storing and retrieving accounts.
type AccountRepository interface {
	// CreateAccount provisions a new account with the given starting balance
	// and returns it with its assigned ID.
	CreateAccount(ctx context.Context, name string, initialBalance decimal.Decimal) (*domain.Account, error)
	// FindAccountByID retrieves an account by its unique ID.
	// Returns nil, nil if not found.
	FindAccountByID(ctx context.Context, id int64) (*domain.Account, error)
}

// InstrumentRepository defines the interface for the instrument registry.
type InstrumentRepository interface {
	// UpsertInstrument inserts or updates an instrument keyed by symbol.
	UpsertInstrument(ctx context.Context, ins *domain.Instrument) error
	// FindInstrument retrieves an instrument by symbol.
	// Returns nil, nil if not found.
	FindInstrument(ctx context.Context, symbol string) (*domain.Instrument, error)
}

// PositionRepository defines the interface for retrieving holdings.
// Position mutations from trades go through TradeStore.CommitTrade only.
type PositionRepository interface {
	// FindPosition retrieves the holding for (account, symbol), if any.
	// Returns nil, nil if no position record exists.
	FindPosition(ctx context.Context, accountID int64, symbol string) (*domain.Position, error)
	// FindPositionsByAccount retrieves all position records for an account,
	// including fully liquidated ones kept at quantity 0.
	FindPositionsByAccount(ctx context.Context, accountID int64) ([]*domain.Position, error)
	// UpdateMarketPrice persists the denormalized last price of a position.
	// It is a read-side refresh and never touches quantity or cost basis.
	UpdateMarketPrice(ctx context.Context, pos *domain.Position) error
}

// LedgerRepository defines read access to the append-only trade ledger.
// There is no update or delete operation; appends happen only inside
// TradeStore.CommitTrade.
type LedgerRepository interface {
	// QueryLedger returns an account's transactions ordered newest-first.
	QueryLedger(ctx context.Context, accountID int64, limit, offset int) ([]*domain.Transaction, error)
	// CountLedger returns the total number of ledger entries for an account.
	CountLedger(ctx context.Context, accountID int64) (int, error)
}

// TradeStore commits trading state transitions as single transactional units.
type TradeStore interface {
	// CommitTrade persists the new balance, the updated position and the
	// ledger entry of one executed order atomically. Either all three take
	// effect or none do; failures wrap ErrPersistenceFailure.
	CommitTrade(ctx context.Context, acct *domain.Account, pos *domain.Position, entry *domain.Transaction) error
	// ResetAccount clears the account's positions and ledger and restores the
	// balance to initialBalance, all in one transaction. Administrative
	// operation, not part of the normal trading flow.
	ResetAccount(ctx context.Context, accountID int64, initialBalance decimal.Decimal) error
}
