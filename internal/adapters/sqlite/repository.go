package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"paperTrader/internal/domain"
	"paperTrader/internal/ports"
)

// Repository implements the ports.AccountRepository, ports.InstrumentRepository,
// ports.PositionRepository, ports.LedgerRepository and ports.TradeStore
// interfaces using SQLite. Monetary values are stored as decimal strings to
// avoid binary floating-point drift.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/paper_trader.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally, but the Go driver benefits from limiting connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		balance TEXT NOT NULL,
		initial_balance TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS instruments (
		symbol TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		exchange TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		average_cost TEXT NOT NULL,
		last_price TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (account_id, symbol)
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ref TEXT NOT NULL,
		account_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price TEXT NOT NULL,
		gross_value TEXT NOT NULL,
		fee TEXT NOT NULL,
		net_amount TEXT NOT NULL,
		realized_pnl TEXT DEFAULT NULL,
		avg_cost_at_sale TEXT DEFAULT NULL,
		balance_after TEXT NOT NULL,
		executed_at TIMESTAMP NOT NULL,
		note TEXT NOT NULL DEFAULT ''
	);
	-- Add indexes for common lookups
	CREATE INDEX IF NOT EXISTS idx_positions_account ON positions (account_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_account_time ON transactions (account_id, executed_at);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- AccountRepository Implementation ---

// CreateAccount provisions a new account with the given starting balance.
func (r *Repository) CreateAccount(ctx context.Context, name string, initialBalance decimal.Decimal) (*domain.Account, error) {
	const query = `
	INSERT INTO accounts (name, balance, initial_balance, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)`

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query, name, initialBalance.String(), initialBalance.String(), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert account '%s': %w", name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID for account '%s': %w", name, err)
	}

	acct := &domain.Account{
		ID:             id,
		Name:           name,
		Balance:        initialBalance,
		InitialBalance: initialBalance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.logger.Debug(ctx, "Account created", map[string]interface{}{"accountID": id, "name": name})
	return acct, nil
}

// FindAccountByID retrieves an account by its unique ID.
func (r *Repository) FindAccountByID(ctx context.Context, id int64) (*domain.Account, error) {
	const query = `
	SELECT id, name, balance, initial_balance, created_at, updated_at
	FROM accounts
	WHERE id = ?`

	acct := &domain.Account{}
	var balance, initialBalance string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&acct.ID, &acct.Name, &balance, &initialBalance, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query account by ID %d: %w", id, err)
	}
	if acct.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("corrupt balance for account %d: %w", id, err)
	}
	if acct.InitialBalance, err = decimal.NewFromString(initialBalance); err != nil {
		return nil, fmt.Errorf("corrupt initial balance for account %d: %w", id, err)
	}
	return acct, nil
}

// --- InstrumentRepository Implementation ---

// UpsertInstrument inserts or updates an instrument keyed by symbol.
func (r *Repository) UpsertInstrument(ctx context.Context, ins *domain.Instrument) error {
	const query = `
	INSERT INTO instruments (symbol, name, exchange, active, created_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(symbol) DO UPDATE SET name = excluded.name, exchange = excluded.exchange, active = excluded.active`

	createdAt := ins.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query, ins.Symbol, ins.Name, ins.Exchange, boolToInt(ins.Active), createdAt)
	if err != nil {
		return fmt.Errorf("failed to upsert instrument %s: %w", ins.Symbol, err)
	}
	r.logger.Debug(ctx, "Instrument upserted", map[string]interface{}{"symbol": ins.Symbol, "active": ins.Active})
	return nil
}

// FindInstrument retrieves an instrument by symbol.
func (r *Repository) FindInstrument(ctx context.Context, symbol string) (*domain.Instrument, error) {
	const query = `
	SELECT symbol, name, exchange, active, created_at
	FROM instruments
	WHERE symbol = ?`

	ins := &domain.Instrument{}
	var active int
	err := r.db.QueryRowContext(ctx, query, symbol).Scan(&ins.Symbol, &ins.Name, &ins.Exchange, &active, &ins.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query instrument %s: %w", symbol, err)
	}
	ins.Active = active != 0
	return ins, nil
}

// --- PositionRepository Implementation ---

// FindPosition retrieves the holding for (account, symbol), if any.
func (r *Repository) FindPosition(ctx context.Context, accountID int64, symbol string) (*domain.Position, error) {
	const query = `
	SELECT id, account_id, symbol, quantity, average_cost, last_price, created_at, updated_at
	FROM positions
	WHERE account_id = ? AND symbol = ?`

	row := r.db.QueryRowContext(ctx, query, accountID, symbol)
	pos, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query position for account %d symbol %s: %w", accountID, symbol, err)
	}
	return pos, nil
}

// FindPositionsByAccount retrieves all position records for an account.
func (r *Repository) FindPositionsByAccount(ctx context.Context, accountID int64) ([]*domain.Position, error) {
	const query = `
	SELECT id, account_id, symbol, quantity, average_cost, last_price, created_at, updated_at
	FROM positions
	WHERE account_id = ?
	ORDER BY symbol`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions for account %d: %w", accountID, err)
	}
	defer rows.Close()

	positions := make([]*domain.Position, 0)
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position during FindPositionsByAccount: %w", err)
		}
		positions = append(positions, pos)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position rows: %w", err)
	}
	return positions, nil
}

// UpdateMarketPrice persists the denormalized last price of a position.
func (r *Repository) UpdateMarketPrice(ctx context.Context, pos *domain.Position) error {
	const query = `UPDATE positions SET last_price = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, pos.LastPrice.String(), time.Now().UTC(), pos.ID)
	if err != nil {
		return fmt.Errorf("failed to update market price for position %d: %w", pos.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for position %d: %w", pos.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("position %d not found for price update: %w", pos.ID, ports.ErrNotFound)
	}
	return nil
}

// --- LedgerRepository Implementation ---

// QueryLedger returns an account's transactions ordered newest-first.
func (r *Repository) QueryLedger(ctx context.Context, accountID int64, limit, offset int) ([]*domain.Transaction, error) {
	const query = `
	SELECT id, ref, account_id, symbol, side, quantity, price, gross_value, fee, net_amount,
	       realized_pnl, avg_cost_at_sale, balance_after, executed_at, note
	FROM transactions
	WHERE account_id = ?
	ORDER BY executed_at DESC, id DESC
	LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger for account %d: %w", accountID, err)
	}
	defer rows.Close()

	entries := make([]*domain.Transaction, 0)
	for rows.Next() {
		entry, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction during QueryLedger: %w", err)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return entries, nil
}

// CountLedger returns the total number of ledger entries for an account.
func (r *Repository) CountLedger(ctx context.Context, accountID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM transactions WHERE account_id = ?`
	var count int
	err := r.db.QueryRowContext(ctx, query, accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ledger entries for account %d: %w", accountID, err)
	}
	return count, nil
}

// --- TradeStore Implementation ---

// CommitTrade persists the new balance, the updated position and the ledger
// entry of one executed order in a single database transaction.
func (r *Repository) CommitTrade(ctx context.Context, acct *domain.Account, pos *domain.Position, entry *domain.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin trade transaction: %w", ports.ErrPersistenceFailure)
	}
	defer tx.Rollback() // No-op after a successful commit

	now := time.Now().UTC()

	// 1. Balance
	result, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		acct.Balance.String(), now, acct.ID)
	if err != nil {
		return fmt.Errorf("failed to update balance for account %d: %w", acct.ID, ports.ErrPersistenceFailure)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return fmt.Errorf("account %d missing during trade commit: %w", acct.ID, ports.ErrPersistenceFailure)
	}

	// 2. Position (insert on first buy of an instrument, update afterwards)
	if pos.ID == 0 {
		result, err = tx.ExecContext(ctx,
			`INSERT INTO positions (account_id, symbol, quantity, average_cost, last_price, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			pos.AccountID, pos.Symbol, pos.Quantity, pos.AverageCost.String(), pos.LastPrice.String(), now, now)
		if err != nil {
			return fmt.Errorf("failed to insert position %s for account %d: %w", pos.Symbol, acct.ID, ports.ErrPersistenceFailure)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get position ID for %s: %w", pos.Symbol, ports.ErrPersistenceFailure)
		}
		pos.ID = id
	} else {
		result, err = tx.ExecContext(ctx,
			`UPDATE positions SET quantity = ?, average_cost = ?, last_price = ?, updated_at = ? WHERE id = ?`,
			pos.Quantity, pos.AverageCost.String(), pos.LastPrice.String(), now, pos.ID)
		if err != nil {
			return fmt.Errorf("failed to update position %d: %w", pos.ID, ports.ErrPersistenceFailure)
		}
		if n, err := result.RowsAffected(); err != nil || n == 0 {
			return fmt.Errorf("position %d missing during trade commit: %w", pos.ID, ports.ErrPersistenceFailure)
		}
	}

	// 3. Ledger entry
	var realizedPnL, avgCostAtSale sql.NullString
	if entry.RealizedPnL.Valid {
		realizedPnL = sql.NullString{String: entry.RealizedPnL.Decimal.String(), Valid: true}
	}
	if entry.AvgCostAtSale.Valid {
		avgCostAtSale = sql.NullString{String: entry.AvgCostAtSale.Decimal.String(), Valid: true}
	}
	result, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (ref, account_id, symbol, side, quantity, price, gross_value, fee, net_amount,
		                           realized_pnl, avg_cost_at_sale, balance_after, executed_at, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Ref, entry.AccountID, entry.Symbol, string(entry.Side), entry.Quantity,
		entry.Price.String(), entry.GrossValue.String(), entry.Fee.String(), entry.NetAmount.String(),
		realizedPnL, avgCostAtSale, entry.BalanceAfter.String(), entry.ExecutedAt, entry.Note)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry for account %d: %w", acct.ID, ports.ErrPersistenceFailure)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get ledger entry ID: %w", ports.ErrPersistenceFailure)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trade for account %d: %w", acct.ID, ports.ErrPersistenceFailure)
	}
	entry.ID = id
	acct.UpdatedAt = now
	pos.UpdatedAt = now

	r.logger.Debug(ctx, "Trade committed", map[string]interface{}{
		"accountID": acct.ID,
		"symbol":    pos.Symbol,
		"side":      entry.Side,
		"entryID":   id,
	})
	return nil
}

// ResetAccount clears the account's positions and ledger and restores the
// balance in a single transaction.
func (r *Repository) ResetAccount(ctx context.Context, accountID int64, initialBalance decimal.Decimal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", ports.ErrPersistenceFailure)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, initial_balance = ?, updated_at = ? WHERE id = ?`,
		initialBalance.String(), initialBalance.String(), now, accountID)
	if err != nil {
		return fmt.Errorf("failed to reset balance for account %d: %w", accountID, ports.ErrPersistenceFailure)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return fmt.Errorf("account %d not found for reset: %w", accountID, ports.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("failed to clear positions for account %d: %w", accountID, ports.ErrPersistenceFailure)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("failed to clear ledger for account %d: %w", accountID, ports.ErrPersistenceFailure)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset for account %d: %w", accountID, ports.ErrPersistenceFailure)
	}

	r.logger.Info(ctx, "Account reset", map[string]interface{}{"accountID": accountID, "balance": initialBalance.String()})
	return nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanPosition scans a row into a domain.Position struct.
func scanPosition(s scanner) (*domain.Position, error) {
	p := &domain.Position{}
	var averageCost, lastPrice string
	err := s.Scan(&p.ID, &p.AccountID, &p.Symbol, &p.Quantity, &averageCost, &lastPrice, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	if p.AverageCost, err = decimal.NewFromString(averageCost); err != nil {
		return nil, fmt.Errorf("corrupt average cost for position %d: %w", p.ID, err)
	}
	lp, err := decimal.NewFromString(lastPrice)
	if err != nil {
		return nil, fmt.Errorf("corrupt last price for position %d: %w", p.ID, err)
	}
	// Recompute the derived valuation fields from the stored price
	p.RefreshMarketPrice(lp)
	return p, nil
}

// scanTransaction scans a row into a domain.Transaction struct.
func scanTransaction(s scanner) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	var side, price, grossValue, fee, netAmount, balanceAfter string
	var realizedPnL, avgCostAtSale sql.NullString
	err := s.Scan(&t.ID, &t.Ref, &t.AccountID, &t.Symbol, &side, &t.Quantity, &price, &grossValue, &fee,
		&netAmount, &realizedPnL, &avgCostAtSale, &balanceAfter, &t.ExecutedAt, &t.Note)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	t.Side = domain.Side(side)
	if t.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("corrupt price for transaction %d: %w", t.ID, err)
	}
	if t.GrossValue, err = decimal.NewFromString(grossValue); err != nil {
		return nil, fmt.Errorf("corrupt gross value for transaction %d: %w", t.ID, err)
	}
	if t.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("corrupt fee for transaction %d: %w", t.ID, err)
	}
	if t.NetAmount, err = decimal.NewFromString(netAmount); err != nil {
		return nil, fmt.Errorf("corrupt net amount for transaction %d: %w", t.ID, err)
	}
	if t.BalanceAfter, err = decimal.NewFromString(balanceAfter); err != nil {
		return nil, fmt.Errorf("corrupt balance for transaction %d: %w", t.ID, err)
	}
	if realizedPnL.Valid {
		d, err := decimal.NewFromString(realizedPnL.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt realized P&L for transaction %d: %w", t.ID, err)
		}
		t.RealizedPnL = decimal.NullDecimal{Decimal: d, Valid: true}
	}
	if avgCostAtSale.Valid {
		d, err := decimal.NewFromString(avgCostAtSale.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt average cost for transaction %d: %w", t.ID, err)
		}
		t.AvgCostAtSale = decimal.NullDecimal{Decimal: d, Valid: true}
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
