package wallet

import (
	domain "kudi/internal/errors"
)

// Service errors, aliased from the shared taxonomy so callers can compare
// with errors.Is against either package.
var (
	ErrValidation         = domain.ErrValidation
	ErrInsufficientFunds  = domain.ErrInsufficientFunds
	ErrWalletNotActive    = domain.ErrWalletNotActive
	ErrWalletNotFound     = domain.ErrWalletNotFound
	ErrDuplicateReference = domain.ErrDuplicateReference
	ErrAmountMismatch     = domain.ErrAmountMismatch
)
