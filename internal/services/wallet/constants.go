package wallet

// Default configuration values
const (
	DefaultCurrency        = "NGN"
	DefaultHistoryPageSize = 20
	MaxHistoryPageSize     = 100
)
