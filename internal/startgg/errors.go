package startgg

import "errors"

var (
	// ErrUnauthorized means the API token was rejected. Retrying only burns
	// quota, so callers must stop.
	ErrUnauthorized = errors.New("startgg: unauthorized")

	// ErrTransient covers network failures, rate limiting, 5xx responses and
	// an open circuit breaker. These are safe to retry with backoff.
	ErrTransient = errors.New("startgg: transient failure")

	// ErrNotFound is returned when the requested tournament or event is absent.
	ErrNotFound = errors.New("startgg: not found")

	// ErrInvalidResponse is returned when a payload fails to decode or validate.
	ErrInvalidResponse = errors.New("startgg: invalid response")
)

// IsAuthError reports whether err is an authorization failure.
func IsAuthError(err error) bool { return errors.Is(err, ErrUnauthorized) }

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }
