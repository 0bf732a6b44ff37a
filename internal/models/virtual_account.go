package models

import (
	"time"
)

// Virtual account statuses
const (
	VirtualAccountStatusActive   = "active"
	VirtualAccountStatusDisabled = "disabled"
)

// VirtualAccount is a provider-issued bank account number dedicated to one
// user. The account number is the join key used to resolve inbound transfer
// webhooks to a wallet, so it carries a unique index for the reconciler's
// hot path. Rows are never mutated after issuance except for status.
type VirtualAccount struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	UserID        uint      `gorm:"index;not null" json:"user_id"`
	Gateway       string    `gorm:"not null" json:"gateway"`
	BankName      string    `gorm:"not null" json:"bank_name"`
	AccountNumber string    `gorm:"uniqueIndex;not null" json:"account_number"`
	AccountName   string    `gorm:"not null" json:"account_name"`
	Reference     string    `gorm:"index" json:"reference"`
	Status        string    `gorm:"not null;default:'active'" json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
