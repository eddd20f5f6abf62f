package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"paperTrader/internal/domain"
)

// ReadInstrumentsFromCSV loads instrument definitions from a CSV file with a
// "symbol,name,exchange,active" header row. Blank symbols are skipped.
func ReadInstrumentsFromCSV(filename string) ([]*domain.Instrument, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("instrument file %s is empty", filename)
	}

	instruments := make([]*domain.Instrument, 0, len(records)-1)
	for i, rec := range records[1:] { // Skip header
		if len(rec) < 4 {
			return nil, fmt.Errorf("instrument file %s row %d: expected 4 columns, got %d", filename, i+2, len(rec))
		}
		symbol := strings.TrimSpace(rec[0])
		if symbol == "" {
			continue
		}
		active, err := strconv.ParseBool(strings.TrimSpace(rec[3]))
		if err != nil {
			return nil, fmt.Errorf("instrument file %s row %d: invalid active flag %q", filename, i+2, rec[3])
		}
		instruments = append(instruments, &domain.Instrument{
			Symbol:    strings.ToUpper(symbol),
			Name:      strings.TrimSpace(rec[1]),
			Exchange:  strings.TrimSpace(rec[2]),
			Active:    active,
			CreatedAt: time.Now().UTC(),
		})
	}
	return instruments, nil
}

// WriteInstrumentsToCSV writes instrument definitions in the same format
// ReadInstrumentsFromCSV accepts.
func WriteInstrumentsToCSV(instruments []*domain.Instrument, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"symbol", "name", "exchange", "active"})

	for _, ins := range instruments {
		writer.Write([]string{
			ins.Symbol,
			ins.Name,
			ins.Exchange,
			strconv.FormatBool(ins.Active),
		})
	}
	return writer.Error()
}
