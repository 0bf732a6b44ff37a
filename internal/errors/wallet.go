package errors

var (
	ErrValidation = &DomainError{
		Code:    "VALIDATION_ERROR",
		Message: "invalid input",
	}
	ErrInsufficientFunds = &DomainError{
		Code:    "INSUFFICIENT_FUNDS",
		Message: "insufficient wallet balance",
	}
	ErrWalletNotActive = &DomainError{
		Code:    "WALLET_NOT_ACTIVE",
		Message: "wallet is not active",
	}
	ErrWalletNotFound = &DomainError{
		Code:    "WALLET_NOT_FOUND",
		Message: "wallet not found",
	}
	ErrDuplicateReference = &DomainError{
		Code:    "DUPLICATE_REFERENCE",
		Message: "a transaction with this reference already exists",
	}
	ErrAlreadyProcessed = &DomainError{
		Code:    "ALREADY_PROCESSED",
		Message: "notification already processed",
	}
	ErrAmountMismatch = &DomainError{
		Code:    "AMOUNT_MISMATCH",
		Message: "verified amount does not match the staged amount",
	}
)
