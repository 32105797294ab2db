package errors

import "errors"

// Storage errors.
var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
	ErrStaleStatus   = errors.New("stale status")
)

// Purchase flow errors.
var (
	ErrInvalidProduct  = errors.New("invalid product type")
	ErrUnknownPurchase = errors.New("unknown purchase")
	ErrOrderMismatch   = errors.New("order token does not match purchase")
)

// Processor errors.
var (
	ErrAuth            = errors.New("processor authentication failed")
	ErrRemoteQuery     = errors.New("processor order query failed")
	ErrRemoteCapture   = errors.New("processor capture failed")
	ErrGatewayResponse = errors.New("unexpected processor response")
)

// IsClientError reports whether err is caused by caller input rather than upstream failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidProduct) ||
		errors.Is(err, ErrUnknownPurchase) ||
		errors.Is(err, ErrOrderMismatch)
}
