package payment

import (
	domain "kudi/internal/errors"
)

var (
	ErrValidation         = domain.ErrValidation
	ErrUnknownGateway     = domain.ErrUnknownGateway
	ErrSignatureInvalid   = domain.ErrSignatureInvalid
	ErrGatewayUnavailable = domain.ErrGatewayUnavailable
	ErrGatewayRejected    = domain.ErrGatewayRejected
	ErrAmountMismatch     = domain.ErrAmountMismatch
	ErrInsufficientFunds  = domain.ErrInsufficientFunds
)
