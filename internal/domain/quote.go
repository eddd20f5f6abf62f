package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a point-in-time price supplied by the external pricing feed.
// Quotes are borrowed per call and never persisted beyond the values copied
// at execution time.
type Quote struct {
	Symbol    string
	Price     decimal.Decimal
	Timestamp time.Time
	Stale     bool // Set by the feed when the price may be outdated
}
