package domain

import "time"

// Instrument is a tradable symbol known to the platform.
type Instrument struct {
	Symbol    string // Unique identifier (e.g., "RELIANCE")
	Name      string // Company or product name
	Exchange  string // Listing exchange (e.g., "NSE")
	Active    bool   // Inactive instruments cannot be bought
	CreatedAt time.Time
}
