package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"paperTrader/config"
	"paperTrader/internal/domain"
	"paperTrader/internal/ports"
	"paperTrader/internal/risk"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// TradingService orchestrates paper-trade execution. It is the only mutator
// of (balance, position, ledger) and applies each trade as one atomic unit
// through the trade store. State is always re-loaded from the store under the
// account's lock, never cached across calls.
type TradingService struct {
	cfg         *config.Config
	logger      ports.Logger
	feed        ports.QuoteProvider
	accounts    ports.AccountRepository
	instruments ports.InstrumentRepository
	positions   ports.PositionRepository
	ledger      ports.LedgerRepository
	store       ports.TradeStore
	limiter     *risk.Limiter

	// Per-account serialization: two concurrent trades on the same account
	// would otherwise race on the weighted-average-cost update.
	mu    sync.Mutex // Protects locks
	locks map[int64]*sync.Mutex
}

// NewTradingService creates a new application service instance.
func NewTradingService(
	cfg *config.Config,
	logger ports.Logger,
	feed ports.QuoteProvider,
	limiter *risk.Limiter,
	accounts ports.AccountRepository,
	instruments ports.InstrumentRepository,
	positions ports.PositionRepository,
	ledger ports.LedgerRepository,
	store ports.TradeStore,
) (*TradingService, error) {

	// Validate dependencies
	if cfg == nil || logger == nil || feed == nil || limiter == nil ||
		accounts == nil || instruments == nil || positions == nil || ledger == nil || store == nil {
		return nil, fmt.Errorf("missing required dependencies for TradingService")
	}

	// Validate config values needed by the service
	if !cfg.InitialBalance.IsPositive() {
		return nil, fmt.Errorf("configuration InitialBalance must be positive")
	}
	if cfg.FeeRate.IsNegative() || cfg.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("configuration FeeRate must be in [0, 1)")
	}
	if cfg.QuoteTimeout <= 0 {
		return nil, fmt.Errorf("configuration QuoteTimeout must be positive")
	}

	return &TradingService{
		cfg:         cfg,
		logger:      logger,
		feed:        feed,
		limiter:     limiter,
		accounts:    accounts,
		instruments: instruments,
		positions:   positions,
		ledger:      ledger,
		store:       store,
		locks:       make(map[int64]*sync.Mutex),
	}, nil
}

// lockAccount returns the mutex serializing all mutations of one account.
func (s *TradingService) lockAccount(accountID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[accountID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[accountID] = m
	}
	return m
}

// CreateAccount provisions a new account with the configured initial balance.
func (s *TradingService) CreateAccount(ctx context.Context, name string) (*domain.Account, error) {
	if name == "" {
		return nil, fmt.Errorf("account name is required: %w", ports.ErrInvalidRequest)
	}
	acct, err := s.accounts.CreateAccount(ctx, name, s.cfg.InitialBalance)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to create account", map[string]interface{}{"name": name})
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	s.logger.Info(ctx, "Account created", map[string]interface{}{
		"accountID": acct.ID,
		"name":      acct.Name,
		"balance":   acct.Balance.String(),
	})
	return acct, nil
}

// resolvePrice returns the execution price for an order. A positive caller
// price is used as-is; zero means "price at market" via the feed. Stale
// quotes are never acceptable for pricing a committed trade.
func (s *TradingService) resolvePrice(ctx context.Context, symbol string, price decimal.Decimal) (decimal.Decimal, error) {
	if price.IsPositive() {
		return price, nil
	}
	if !price.IsZero() {
		return decimal.Zero, domain.ErrPriceInvalid
	}

	qctx, cancel := context.WithTimeout(ctx, s.cfg.QuoteTimeout)
	defer cancel()
	quote, err := s.feed.GetQuote(qctx, symbol)
	if err != nil {
		s.logger.Warn(ctx, "Market pricing failed", map[string]interface{}{"symbol": symbol, "error": err.Error()})
		if errors.Is(err, ports.ErrPriceUnavailable) || errors.Is(err, ports.ErrInstrumentNotFound) {
			return decimal.Zero, err
		}
		return decimal.Zero, fmt.Errorf("pricing %s at market: %w", symbol, ports.ErrPriceUnavailable)
	}
	if quote.Stale {
		return decimal.Zero, fmt.Errorf("stale quote for %s: %w", symbol, ports.ErrPriceUnavailable)
	}
	return quote.Price, nil
}

// ExecuteBuy executes a buy order for an account. A zero price means the
// order is priced at market via the feed. All validations happen before any
// mutation; the state transition is committed atomically.
func (s *TradingService) ExecuteBuy(ctx context.Context, accountID int64, symbol string, quantity int64, price decimal.Decimal, note string) (*domain.Transaction, error) {
	op := "ExecuteBuy"
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if symbol == "" {
		return nil, fmt.Errorf("instrument symbol is required: %w", ports.ErrInvalidRequest)
	}

	price, err := s.resolvePrice(ctx, symbol, price)
	if err != nil {
		return nil, err
	}

	lock := s.lockAccount(accountID)
	lock.Lock()
	defer lock.Unlock()

	acct, err := s.accounts.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %d: %w", accountID, err)
	}
	if acct == nil {
		return nil, fmt.Errorf("account %d: %w", accountID, ports.ErrAccountNotFound)
	}
	if acct.Balance.IsNegative() {
		// Invariant violation: a negative stored balance is a defect, not a
		// recoverable business error. Refuse to trade on this account.
		err := fmt.Errorf("account %d has negative stored balance %s", accountID, acct.Balance)
		s.logger.Error(ctx, err, op+": invariant violation")
		return nil, err
	}

	ins, err := s.instruments.FindInstrument(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load instrument %s: %w", symbol, err)
	}
	if ins == nil {
		return nil, fmt.Errorf("instrument %s: %w", symbol, ports.ErrInstrumentNotFound)
	}
	if !ins.Active {
		return nil, fmt.Errorf("instrument %s: %w", symbol, domain.ErrInstrumentInactive)
	}

	gross, fee, net := domain.TradeValue(domain.Buy, quantity, price, s.cfg.FeeRate)

	// Affordability before policy, both before any mutation
	if net.GreaterThan(acct.Balance) {
		return nil, &domain.InsufficientFundsError{Required: net, Available: acct.Balance}
	}

	allPositions, err := s.positions.FindPositionsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions for account %d: %w", accountID, err)
	}
	portfolioValue := risk.PortfolioValue(acct.Balance, allPositions)
	if err := s.limiter.CheckOrderSize(gross, portfolioValue); err != nil {
		s.logger.Debug(ctx, op+": rejected by position-size policy", map[string]interface{}{
			"accountID": accountID,
			"symbol":    symbol,
			"gross":     gross.String(),
		})
		return nil, err
	}

	var pos *domain.Position
	for _, p := range allPositions {
		if p.Symbol == symbol {
			pos = p
			break
		}
	}
	if pos == nil {
		pos = &domain.Position{AccountID: accountID, Symbol: symbol, CreatedAt: time.Now().UTC()}
	}

	if err := acct.Debit(net); err != nil {
		return nil, err
	}
	if err := pos.ApplyBuy(quantity, price); err != nil {
		return nil, err
	}
	pos.RefreshMarketPrice(price)

	entry := &domain.Transaction{
		Ref:          uuid.NewString(),
		AccountID:    accountID,
		Symbol:       symbol,
		Side:         domain.Buy,
		Quantity:     quantity,
		Price:        price,
		GrossValue:   gross,
		Fee:          fee,
		NetAmount:    net,
		BalanceAfter: acct.Balance,
		ExecutedAt:   time.Now().UTC(),
		Note:         note,
	}

	if err := s.store.CommitTrade(ctx, acct, pos, entry); err != nil {
		s.logger.Error(ctx, err, op+": failed to commit trade", map[string]interface{}{
			"accountID": accountID,
			"symbol":    symbol,
		})
		return nil, fmt.Errorf("buy of %d %s: %w", quantity, symbol, err)
	}

	s.logger.Info(ctx, op+": executed", map[string]interface{}{
		"accountID": accountID,
		"symbol":    symbol,
		"quantity":  quantity,
		"price":     price.String(),
		"net":       net.String(),
		"balance":   acct.Balance.String(),
	})
	return entry, nil
}

// ExecuteSell executes a sell order for an account. Returns the ledger entry
// including realized P&L against the average cost before the sale.
func (s *TradingService) ExecuteSell(ctx context.Context, accountID int64, symbol string, quantity int64, price decimal.Decimal, note string) (*domain.Transaction, error) {
	op := "ExecuteSell"
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if symbol == "" {
		return nil, fmt.Errorf("instrument symbol is required: %w", ports.ErrInvalidRequest)
	}

	price, err := s.resolvePrice(ctx, symbol, price)
	if err != nil {
		return nil, err
	}

	lock := s.lockAccount(accountID)
	lock.Lock()
	defer lock.Unlock()

	acct, err := s.accounts.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %d: %w", accountID, err)
	}
	if acct == nil {
		return nil, fmt.Errorf("account %d: %w", accountID, ports.ErrAccountNotFound)
	}

	pos, err := s.positions.FindPosition(ctx, accountID, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load position for account %d symbol %s: %w", accountID, symbol, err)
	}
	if pos == nil || pos.Quantity < quantity {
		available := int64(0)
		if pos != nil {
			available = pos.Quantity
		}
		return nil, &domain.InsufficientSharesError{Symbol: symbol, Requested: quantity, Available: available}
	}

	gross, fee, net := domain.TradeValue(domain.Sell, quantity, price, s.cfg.FeeRate)

	avgCostBefore, err := pos.ApplySell(quantity)
	if err != nil {
		return nil, err
	}
	realized := domain.RealizedPnL(quantity, price, avgCostBefore, fee)
	if err := acct.Credit(net); err != nil {
		return nil, err
	}
	pos.RefreshMarketPrice(price)

	entry := &domain.Transaction{
		Ref:           uuid.NewString(),
		AccountID:     accountID,
		Symbol:        symbol,
		Side:          domain.Sell,
		Quantity:      quantity,
		Price:         price,
		GrossValue:    gross,
		Fee:           fee,
		NetAmount:     net,
		RealizedPnL:   decimal.NullDecimal{Decimal: realized, Valid: true},
		AvgCostAtSale: decimal.NullDecimal{Decimal: avgCostBefore, Valid: true},
		BalanceAfter:  acct.Balance,
		ExecutedAt:    time.Now().UTC(),
		Note:          note,
	}

	if err := s.store.CommitTrade(ctx, acct, pos, entry); err != nil {
		s.logger.Error(ctx, err, op+": failed to commit trade", map[string]interface{}{
			"accountID": accountID,
			"symbol":    symbol,
		})
		return nil, fmt.Errorf("sell of %d %s: %w", quantity, symbol, err)
	}

	s.logger.Info(ctx, op+": executed", map[string]interface{}{
		"accountID":   accountID,
		"symbol":      symbol,
		"quantity":    quantity,
		"price":       price.String(),
		"realizedPnL": realized.String(),
		"balance":     acct.Balance.String(),
	})
	return entry, nil
}

// TransactionHistory is one page of an account's ledger, newest-first.
type TransactionHistory struct {
	Transactions []*domain.Transaction
	TotalCount   int
	Limit        int
	Offset       int
}

// GetTransactionHistory returns a page of the account's ledger.
func (s *TradingService) GetTransactionHistory(ctx context.Context, accountID int64, limit, offset int) (*TransactionHistory, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	acct, err := s.accounts.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %d: %w", accountID, err)
	}
	if acct == nil {
		return nil, fmt.Errorf("account %d: %w", accountID, ports.ErrAccountNotFound)
	}

	entries, err := s.ledger.QueryLedger(ctx, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger for account %d: %w", accountID, err)
	}
	total, err := s.ledger.CountLedger(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to count ledger for account %d: %w", accountID, err)
	}

	return &TransactionHistory{
		Transactions: entries,
		TotalCount:   total,
		Limit:        limit,
		Offset:       offset,
	}, nil
}

// ResetAccount clears the account's positions and ledger and restores the
// balance to the configured initial value. Administrative operation.
func (s *TradingService) ResetAccount(ctx context.Context, accountID int64) error {
	lock := s.lockAccount(accountID)
	lock.Lock()
	defer lock.Unlock()

	acct, err := s.accounts.FindAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account %d: %w", accountID, err)
	}
	if acct == nil {
		return fmt.Errorf("account %d: %w", accountID, ports.ErrAccountNotFound)
	}

	if err := s.store.ResetAccount(ctx, accountID, s.cfg.InitialBalance); err != nil {
		s.logger.Error(ctx, err, "Failed to reset account", map[string]interface{}{"accountID": accountID})
		return fmt.Errorf("reset of account %d: %w", accountID, err)
	}
	s.logger.Info(ctx, "Account reset", map[string]interface{}{
		"accountID": accountID,
		"balance":   s.cfg.InitialBalance.String(),
	})
	return nil
}
