package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"paperTrader/internal/domain"
)

// --- Mock Logger ---

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// --- Mock Quote Feed ---

type mockFeed struct {
	mu     sync.Mutex
	quotes map[string]*domain.Quote
	errs   map[string]error
	calls  int
}

func newMockFeed() *mockFeed {
	return &mockFeed{
		quotes: make(map[string]*domain.Quote),
		errs:   make(map[string]error),
	}
}

func (m *mockFeed) setQuote(symbol, price string, stale bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[symbol] = &domain.Quote{
		Symbol:    symbol,
		Price:     decimal.RequireFromString(price),
		Timestamp: time.Now().UTC(),
		Stale:     stale,
	}
}

func (m *mockFeed) setError(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[symbol] = err
}

func (m *mockFeed) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err, ok := m.errs[symbol]; ok {
		return nil, err
	}
	if q, ok := m.quotes[symbol]; ok {
		qc := *q
		return &qc, nil
	}
	return nil, fmt.Errorf("no quote configured for %s", symbol)
}

func (m *mockFeed) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- In-Memory Store ---

// mockStore implements every persistence port in memory. Reads and writes go
// through deep copies so a failed commit cannot leak partial state into the
// store, mirroring the transactional contract of the real repository.
type mockStore struct {
	mu          sync.Mutex
	accounts    map[int64]*domain.Account
	instruments map[string]*domain.Instrument
	positions   map[string]*domain.Position // keyed by accountID/symbol
	ledger      []*domain.Transaction

	nextAccountID int64
	nextPosID     int64
	nextTxID      int64

	commitErr error // When set, CommitTrade fails without mutating anything
}

func newMockStore() *mockStore {
	return &mockStore{
		accounts:    make(map[int64]*domain.Account),
		instruments: make(map[string]*domain.Instrument),
		positions:   make(map[string]*domain.Position),
	}
}

func posKey(accountID int64, symbol string) string {
	return fmt.Sprintf("%d/%s", accountID, symbol)
}

func copyAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

func copyPosition(p *domain.Position) *domain.Position {
	c := *p
	return &c
}

func copyTransaction(tx *domain.Transaction) *domain.Transaction {
	c := *tx
	return &c
}

func (m *mockStore) seedAccount(balance string) *domain.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextAccountID++
	acct := &domain.Account{
		ID:             m.nextAccountID,
		Name:           fmt.Sprintf("account-%d", m.nextAccountID),
		Balance:        decimal.RequireFromString(balance),
		InitialBalance: decimal.RequireFromString(balance),
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	m.accounts[acct.ID] = acct
	return copyAccount(acct)
}

func (m *mockStore) seedInstrument(symbol string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instruments[symbol] = &domain.Instrument{
		Symbol:    symbol,
		Name:      symbol,
		Exchange:  "NSE",
		Active:    active,
		CreatedAt: time.Now().UTC(),
	}
}

func (m *mockStore) seedPosition(accountID int64, symbol string, quantity int64, avgCost string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextPosID++
	pos := &domain.Position{
		ID:          m.nextPosID,
		AccountID:   accountID,
		Symbol:      symbol,
		Quantity:    quantity,
		AverageCost: decimal.RequireFromString(avgCost),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	pos.RefreshMarketPrice(pos.AverageCost)
	m.positions[posKey(accountID, symbol)] = pos
}

func (m *mockStore) accountBalance(accountID int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[accountID].Balance
}

func (m *mockStore) ledgerSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ledger)
}

// --- AccountRepository ---

func (m *mockStore) CreateAccount(ctx context.Context, name string, initialBalance decimal.Decimal) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextAccountID++
	acct := &domain.Account{
		ID:             m.nextAccountID,
		Name:           name,
		Balance:        initialBalance,
		InitialBalance: initialBalance,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	m.accounts[acct.ID] = acct
	return copyAccount(acct), nil
}

func (m *mockStore) FindAccountByID(ctx context.Context, id int64) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	return copyAccount(acct), nil
}

// --- InstrumentRepository ---

func (m *mockStore) UpsertInstrument(ctx context.Context, ins *domain.Instrument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *ins
	m.instruments[ins.Symbol] = &c
	return nil
}

func (m *mockStore) FindInstrument(ctx context.Context, symbol string) (*domain.Instrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ins, ok := m.instruments[symbol]
	if !ok {
		return nil, nil
	}
	c := *ins
	return &c, nil
}

// --- PositionRepository ---

func (m *mockStore) FindPosition(ctx context.Context, accountID int64, symbol string) (*domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[posKey(accountID, symbol)]
	if !ok {
		return nil, nil
	}
	return copyPosition(pos), nil
}

func (m *mockStore) FindPositionsByAccount(ctx context.Context, accountID int64) ([]*domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Position
	for _, pos := range m.positions {
		if pos.AccountID == accountID {
			out = append(out, copyPosition(pos))
		}
	}
	return out, nil
}

func (m *mockStore) UpdateMarketPrice(ctx context.Context, pos *domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.positions[posKey(pos.AccountID, pos.Symbol)]
	if !ok {
		return fmt.Errorf("position %d/%s not found", pos.AccountID, pos.Symbol)
	}
	stored.RefreshMarketPrice(pos.LastPrice)
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

// --- LedgerRepository ---

func (m *mockStore) QueryLedger(ctx context.Context, accountID int64, limit, offset int) ([]*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Append order is chronological; walk backwards for newest-first.
	var out []*domain.Transaction
	skipped := 0
	for i := len(m.ledger) - 1; i >= 0 && len(out) < limit; i-- {
		if m.ledger[i].AccountID != accountID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, copyTransaction(m.ledger[i]))
	}
	return out, nil
}

func (m *mockStore) CountLedger(ctx context.Context, accountID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, tx := range m.ledger {
		if tx.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

// --- TradeStore ---

func (m *mockStore) CommitTrade(ctx context.Context, acct *domain.Account, pos *domain.Position, entry *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr != nil {
		return m.commitErr
	}
	if _, ok := m.accounts[acct.ID]; !ok {
		return fmt.Errorf("account %d not found", acct.ID)
	}

	m.accounts[acct.ID] = copyAccount(acct)
	if pos.ID == 0 {
		m.nextPosID++
		pos.ID = m.nextPosID
	}
	m.positions[posKey(pos.AccountID, pos.Symbol)] = copyPosition(pos)

	m.nextTxID++
	entry.ID = m.nextTxID
	m.ledger = append(m.ledger, copyTransaction(entry))
	return nil
}

func (m *mockStore) ResetAccount(ctx context.Context, accountID int64, initialBalance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[accountID]
	if !ok {
		return fmt.Errorf("account %d not found", accountID)
	}
	acct.Balance = initialBalance
	acct.InitialBalance = initialBalance
	acct.UpdatedAt = time.Now().UTC()

	for key, pos := range m.positions {
		if pos.AccountID == accountID {
			delete(m.positions, key)
		}
	}
	kept := m.ledger[:0]
	for _, tx := range m.ledger {
		if tx.AccountID != accountID {
			kept = append(kept, tx)
		}
	}
	m.ledger = kept
	return nil
}
