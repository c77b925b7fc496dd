package marketdata

import "errors"

var (
	// ErrNotFound: the API answered but the symbol is not an exact match.
	ErrNotFound = errors.New("ticker not found")
	// ErrNoData: the API answered but carried no previous-close bar. Kept
	// distinct from a genuine zero close.
	ErrNoData = errors.New("no previous-close data")
	// ErrMissingAPIKey: client constructed without an API key.
	ErrMissingAPIKey = errors.New("market data API key is not configured")
)
