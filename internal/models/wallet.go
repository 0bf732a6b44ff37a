package models

import (
	"time"
)

// Wallet statuses. Transitions happen only through administrative action;
// ledger operations read the status but never change it.
const (
	WalletStatusActive    = "active"
	WalletStatusSuspended = "suspended"
	WalletStatusClosed    = "closed"
)

// Wallet holds one user's balance in canonical minor units (kobo).
// The balance is only ever changed together with a Transaction insert,
// inside a single database transaction.
type Wallet struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	UserID       uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance      int64     `gorm:"not null;default:0" json:"balance"`
	Currency     string    `gorm:"not null;default:'NGN'" json:"currency"`
	Status       string    `gorm:"not null;default:'active'" json:"status"`
	StatusReason string    `gorm:"default:''" json:"status_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
