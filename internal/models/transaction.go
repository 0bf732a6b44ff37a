package models

import (
	"time"
)

// Transaction types
const (
	TransactionTypeDeposit              = "deposit"
	TransactionTypeWithdrawal           = "withdrawal"
	TransactionTypeBillPayment          = "bill_payment"
	TransactionTypeRefund               = "refund"
	TransactionTypeVirtualAccountCredit = "virtual_account_credit"
)

// Transaction statuses
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusReversed  = "reversed"
)

// Transaction is an append-only record of one ledger mutation. Amount is
// signed and in canonical minor units; credits are positive, debits negative.
// The reference is globally unique and serves as the idempotency key. Rows
// never change after reaching a terminal status; pending rows change only
// to move to a terminal status.
type Transaction struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	UserID        uint      `gorm:"index;not null" json:"user_id"`
	Type          string    `gorm:"not null" json:"type"`
	Amount        int64     `gorm:"not null" json:"amount"`
	Currency      string    `gorm:"not null;default:'NGN'" json:"currency"`
	Status        string    `gorm:"not null;default:'pending';index" json:"status"`
	Reference     string    `gorm:"uniqueIndex;not null" json:"reference"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	Metadata      Metadata  `gorm:"type:jsonb" json:"metadata"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
