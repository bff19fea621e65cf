package exchange

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable marks transient network or rate-limit failures.
	// Callers may retry these with backoff; nothing else is retryable.
	ErrUnavailable = errors.New("exchange unavailable")

	// ErrUnknownSymbol is returned when the exchange rejects the pair.
	ErrUnknownSymbol = errors.New("unknown symbol")
)

// RejectionError is an order the exchange refused outright (lot size,
// notional, balance). It signals a sizing or validation bug upstream and
// must never be retried automatically.
type RejectionError struct {
	Symbol string
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("order rejected for %s: %s", e.Symbol, e.Reason)
}

// IsRejection reports whether err is an exchange-side order rejection.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}
