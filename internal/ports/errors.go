package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
// Business-rule errors (insufficient funds/shares, position limits) live in the
// domain package next to the operations that raise them.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Trading Lookups
	ErrAccountNotFound    = errors.New("account not found")
	ErrInstrumentNotFound = errors.New("instrument not found")

	// Pricing Feed Errors
	ErrPriceUnavailable = errors.New("price quote unavailable")
	ErrFeedUnavailable  = errors.New("pricing feed is unavailable")

	// Persistence Errors
	ErrPersistenceFailure = errors.New("persistence failure")
	ErrDuplicateEntry     = errors.New("database record already exists")
	ErrDBConnection       = errors.New("database connection error")
	ErrQueryFailed        = errors.New("database query failed")
)
