package main

import (
	"context"
	"flag"
	"log"

	"paperTrader/config"
	"paperTrader/internal/adapters/logger"
	"paperTrader/internal/adapters/sqlite"
	"paperTrader/internal/utils"
)

func main() {
	filePath := flag.String("file", "instruments.csv", "Path to the instrument CSV file (symbol,name,exchange,active)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer repo.Close()

	instruments, err := utils.ReadInstrumentsFromCSV(*filePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to read instrument file: %v", err)
	}

	imported := 0
	for _, ins := range instruments {
		if err := repo.UpsertInstrument(ctx, ins); err != nil {
			appLogger.Error(ctx, err, "Failed to import instrument", map[string]interface{}{"symbol": ins.Symbol})
			continue
		}
		imported++
	}
	appLogger.Info(ctx, "Instrument import finished", map[string]interface{}{
		"file":     *filePath,
		"imported": imported,
		"total":    len(instruments),
	})
}
