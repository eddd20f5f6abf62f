package main

import (
	"context"
	"fmt"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"paperTrader/config"
	"paperTrader/internal/adapters/logger"
	"paperTrader/internal/adapters/quotefeed"
	"paperTrader/internal/adapters/sqlite"
	"paperTrader/internal/app"
	"paperTrader/internal/risk"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	// 4. Initialize Quote Feed Client
	feed, err := quotefeed.New(quotefeed.Config{
		BaseURL:    cfg.QuoteBaseURL,
		Timeout:    cfg.QuoteTimeout,
		RetryCount: cfg.QuoteRetryCount,
		Logger:     appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize quote feed client: %v", err)
	}

	// 5. Initialize Position-Size Limiter
	limiter, err := risk.NewLimiter(risk.Config{MaxPositionFraction: cfg.MaxPositionFraction})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize position limiter: %v", err)
	}

	// 6. Initialize Application Service
	// The SQLite repository implements every persistence port.
	svc, err := app.NewTradingService(cfg, appLogger, feed, limiter, repo, repo, repo, repo, repo)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize trading service: %v", err)
	}

	if err := run(context.Background(), svc, feed, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() error {
	return fmt.Errorf(`usage:
  paperTrader create-account <name>
  paperTrader buy <accountID> <symbol> <quantity> [price]
  paperTrader sell <accountID> <symbol> <quantity> [price]
  paperTrader portfolio <accountID>
  paperTrader history <accountID> [limit [offset]]
  paperTrader reset <accountID>
  paperTrader quote <symbol>

omitting [price] executes the order at the current market quote`)
}

func run(ctx context.Context, svc *app.TradingService, feed *quotefeed.Client, args []string) error {
	if len(args) == 0 {
		return usage()
	}

	switch args[0] {
	case "create-account":
		if len(args) != 2 {
			return usage()
		}
		acct, err := svc.CreateAccount(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("account %d (%s) created with balance %s\n", acct.ID, acct.Name, acct.Balance)
		return nil

	case "buy", "sell":
		if len(args) < 4 || len(args) > 5 {
			return usage()
		}
		accountID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid account ID %q", args[1])
		}
		symbol := args[2]
		quantity, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[3])
		}
		price := decimal.Zero // Zero means price at market
		if len(args) == 5 {
			if price, err = decimal.NewFromString(args[4]); err != nil {
				return fmt.Errorf("invalid price %q", args[4])
			}
		}

		if args[0] == "buy" {
			tx, err := svc.ExecuteBuy(ctx, accountID, symbol, quantity, price, "")
			if err != nil {
				return err
			}
			fmt.Printf("bought %d %s @ %s (fee %s, net %s), balance %s [ref %s]\n",
				tx.Quantity, tx.Symbol, tx.Price, tx.Fee, tx.NetAmount, tx.BalanceAfter, tx.Ref)
		} else {
			tx, err := svc.ExecuteSell(ctx, accountID, symbol, quantity, price, "")
			if err != nil {
				return err
			}
			fmt.Printf("sold %d %s @ %s (fee %s, net %s), realized P&L %s, balance %s [ref %s]\n",
				tx.Quantity, tx.Symbol, tx.Price, tx.Fee, tx.NetAmount, tx.RealizedPnL.Decimal, tx.BalanceAfter, tx.Ref)
		}
		return nil

	case "portfolio":
		if len(args) != 2 {
			return usage()
		}
		accountID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid account ID %q", args[1])
		}
		summary, err := svc.GetPortfolioSummary(ctx, accountID)
		if err != nil {
			return err
		}
		fmt.Printf("account %d: cash %s, invested %s, current %s, total %s, P&L %s (%s%%)\n",
			summary.AccountID, summary.CashBalance, summary.InvestedValue, summary.CurrentValue,
			summary.TotalValue, summary.TotalPnL, summary.TotalPnLPercent.StringFixed(2))
		for _, h := range summary.Holdings {
			staleMark := ""
			if h.PriceStale {
				staleMark = " (stale price)"
			}
			fmt.Printf("  %-12s qty %-6d avg %-10s last %-10s unrealized %s (%s%%)%s\n",
				h.Symbol, h.Quantity, h.AverageCost, h.CurrentPrice,
				h.UnrealizedPnL, h.UnrealizedPnLPercent.StringFixed(2), staleMark)
		}
		return nil

	case "history":
		if len(args) < 2 || len(args) > 4 {
			return usage()
		}
		accountID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid account ID %q", args[1])
		}
		limit, offset := 0, 0
		if len(args) >= 3 {
			if limit, err = strconv.Atoi(args[2]); err != nil {
				return fmt.Errorf("invalid limit %q", args[2])
			}
		}
		if len(args) == 4 {
			if offset, err = strconv.Atoi(args[3]); err != nil {
				return fmt.Errorf("invalid offset %q", args[3])
			}
		}
		history, err := svc.GetTransactionHistory(ctx, accountID, limit, offset)
		if err != nil {
			return err
		}
		fmt.Printf("account %d: %d transactions (showing %d from offset %d)\n",
			accountID, history.TotalCount, len(history.Transactions), history.Offset)
		for _, tx := range history.Transactions {
			line := fmt.Sprintf("  %s %-4s %-12s qty %-6d @ %-10s net %s balance %s",
				tx.ExecutedAt.Format("2006-01-02 15:04:05"), tx.Side, tx.Symbol, tx.Quantity, tx.Price, tx.NetAmount, tx.BalanceAfter)
			if tx.RealizedPnL.Valid {
				line += fmt.Sprintf(" P&L %s", tx.RealizedPnL.Decimal)
			}
			fmt.Println(line)
		}
		return nil

	case "reset":
		if len(args) != 2 {
			return usage()
		}
		accountID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid account ID %q", args[1])
		}
		if err := svc.ResetAccount(ctx, accountID); err != nil {
			return err
		}
		fmt.Printf("account %d reset\n", accountID)
		return nil

	case "quote":
		if len(args) != 2 {
			return usage()
		}
		quote, err := feed.GetQuote(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s at %s\n", quote.Symbol, quote.Price, quote.Timestamp.Format("2006-01-02 15:04:05"))
		return nil

	default:
		return usage()
	}
}
