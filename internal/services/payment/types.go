package payment

// DepositRequest starts a hosted-checkout deposit.
type DepositRequest struct {
	UserID      uint   `json:"-"`
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	Gateway     string `json:"gateway"`
	CallbackURL string `json:"callback_url"`
}

// DepositSession is the staged deposit plus the URL the user completes
// payment at.
type DepositSession struct {
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkout_url"`
	Gateway     string `json:"gateway"`
	Amount      int64  `json:"amount"`
}

// DepositOutcome is the result of verifying a staged deposit against the
// gateway's record.
type DepositOutcome struct {
	Reference        string `json:"reference"`
	Status           string `json:"status"`
	Credited         bool   `json:"credited"`
	AlreadyProcessed bool   `json:"already_processed"`
	Balance          int64  `json:"balance,omitempty"`
}

// WebhookOutcome summarizes what a webhook delivery did. Accepted means
// the delivery should be acknowledged to the gateway; an accepted event
// may still have changed nothing (duplicate, ignored, or mismatched
// kinds). AmountMismatch flags a charge whose verified amount differs
// from the staged deposit; the deposit stays pending for audit.
type WebhookOutcome struct {
	Accepted         bool   `json:"accepted"`
	Event            string `json:"event"`
	Reference        string `json:"reference,omitempty"`
	Credited         bool   `json:"credited"`
	AlreadyProcessed bool   `json:"already_processed"`
	AmountMismatch   bool   `json:"amount_mismatch,omitempty"`
}

// BillPaymentRequest pays a biller from the wallet balance.
type BillPaymentRequest struct {
	UserID     uint   `json:"-"`
	Biller     string `json:"biller"`
	CustomerID string `json:"customer_id"`
	Amount     int64  `json:"amount"`
}

// BillPaymentResult reports a completed bill payment.
type BillPaymentResult struct {
	Reference  string `json:"reference"`
	ProviderID string `json:"provider_id"`
	Balance    int64  `json:"balance"`
}

// VirtualAccountRequest asks a gateway to issue dedicated account numbers
// for a user.
type VirtualAccountRequest struct {
	UserID    uint   `json:"-"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Gateway   string `json:"gateway"`
}

// Config holds orchestrator tunables.
type Config struct {
	// VerifyRetries bounds re-attempts of the read-only verify call when
	// the gateway is unreachable. Initialize calls are never retried.
	VerifyRetries int
}
