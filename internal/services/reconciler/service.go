// Package reconciler resolves inbound bank-transfer notifications to a
// user's wallet and applies the credit exactly once.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "kudi/internal/errors"
	"kudi/internal/models"
	"kudi/internal/repositories"
	"kudi/internal/services/wallet"

	"github.com/sirupsen/logrus"
)

// RetryPolicy bounds the virtual-account lookup. The account record and
// the bank's webhook are not ordered relative to each other, so a short
// window of retries covers a notification arriving before the issuing call
// has committed.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy retries for roughly three seconds.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 4, Delay: time.Second}

// TransferNotification is one inbound transfer, amounts in canonical units.
type TransferNotification struct {
	AccountNumber string
	Amount        int64
	Reference     string
	SenderName    string
	SenderBank    string
}

// Outcome reports what the reconciler did with a notification.
// AlreadyProcessed outcomes are successes: the upstream gateway must see a
// 2xx so it stops redelivering.
type Outcome struct {
	UserID           uint  `json:"user_id"`
	Credited         bool  `json:"credited"`
	AlreadyProcessed bool  `json:"already_processed"`
	Balance          int64 `json:"balance,omitempty"`
}

// Service drives virtual-account credits through the wallet ledger.
type Service struct {
	accounts repositories.VirtualAccountRepository
	ledger   wallet.Service
	policy   RetryPolicy
	sleep    func(context.Context, time.Duration) error
	log      *logrus.Entry
}

func NewService(accounts repositories.VirtualAccountRepository, ledger wallet.Service, policy RetryPolicy) *Service {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy
	}
	return &Service{
		accounts: accounts,
		ledger:   ledger,
		policy:   policy,
		sleep:    sleepCtx,
		log:      logrus.WithField("component", "reconciler"),
	}
}

// CreditFromTransfer looks up the owning user by account number and
// credits the wallet, using the notification reference as the idempotency
// key. A reference seen before yields an AlreadyProcessed outcome, not an
// error.
func (s *Service) CreditFromTransfer(ctx context.Context, n TransferNotification) (*Outcome, error) {
	if n.AccountNumber == "" || n.Reference == "" {
		return nil, fmt.Errorf("%w: account number and reference are required", domain.ErrValidation)
	}
	if n.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}

	account, err := s.resolveAccount(ctx, n.AccountNumber)
	if err != nil {
		return nil, err
	}

	metadata := models.Metadata{
		Version: models.MetadataVersion,
		VirtualTransfer: &models.VirtualTransferDetails{
			AccountNumber: n.AccountNumber,
			SenderName:    n.SenderName,
			SenderBank:    n.SenderBank,
		},
	}

	res, err := s.ledger.Credit(ctx, account.UserID, n.Amount, models.TransactionTypeVirtualAccountCredit, n.Reference, metadata)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			s.log.WithFields(logrus.Fields{
				"reference": n.Reference,
				"user_id":   account.UserID,
			}).Info("duplicate transfer notification ignored")
			return &Outcome{UserID: account.UserID, AlreadyProcessed: true}, nil
		}
		return nil, err
	}

	return &Outcome{UserID: account.UserID, Credited: true, Balance: res.Balance}, nil
}

// resolveAccount retries the lookup per the configured policy before
// concluding the account is unknown.
func (s *Service) resolveAccount(ctx context.Context, accountNumber string) (*models.VirtualAccount, error) {
	var lastErr error
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		account, err := s.accounts.GetByAccountNumber(accountNumber)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, repositories.ErrVirtualAccountNotFound) {
			return nil, err
		}
		lastErr = err

		if attempt < s.policy.MaxAttempts {
			s.log.WithFields(logrus.Fields{
				"account_number": accountNumber,
				"attempt":        attempt,
			}).Warn("virtual account not found yet, retrying")
			if err := s.sleep(ctx, s.policy.Delay); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrAccountNotFound, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
