package gateway

import (
	domain "kudi/internal/errors"
)

// Adapter error kinds. Unavailable means the call itself may be retried;
// Rejected is a definitive provider verdict and must not be retried.
var (
	ErrUnavailable  = domain.ErrGatewayUnavailable
	ErrRejected     = domain.ErrGatewayRejected
	ErrNotSupported = &domain.DomainError{
		Code:    "NOT_SUPPORTED",
		Message: "operation not supported by this gateway",
	}
)
