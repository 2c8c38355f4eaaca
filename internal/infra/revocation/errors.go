package revocation

import "errors"

var (
	ErrInvalidTTL       = errors.New("revocation ttl must be positive")
	ErrUnexpectedStatus = errors.New("revocation service returned unexpected status")
	ErrUnknownBackend   = errors.New("unknown revocation backend")
	ErrBreakerOpen      = errors.New("revocation backend unavailable")
)
