package payment

const (
	// DefaultVerifyRetries bounds retries of the read-only verify call.
	DefaultVerifyRetries = 2

	depositReferencePrefix = "dep-"
	billReferencePrefix    = "bill-"
	refundReferencePrefix  = "refund-"
	accountReferencePrefix = "va-"
)
