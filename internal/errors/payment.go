package errors

var (
	ErrSignatureInvalid = &DomainError{
		Code:    "SIGNATURE_INVALID",
		Message: "webhook signature verification failed",
	}
	ErrGatewayUnavailable = &DomainError{
		Code:    "GATEWAY_UNAVAILABLE",
		Message: "payment gateway unreachable",
	}
	ErrGatewayRejected = &DomainError{
		Code:    "GATEWAY_REJECTED",
		Message: "payment gateway rejected the request",
	}
	ErrAccountNotFound = &DomainError{
		Code:    "ACCOUNT_NOT_FOUND",
		Message: "virtual account not found",
	}
	ErrUnknownGateway = &DomainError{
		Code:    "UNKNOWN_GATEWAY",
		Message: "no adapter registered for gateway",
	}
)
