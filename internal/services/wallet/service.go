package wallet

import (
	"context"
	"errors"
	"fmt"

	"kudi/internal/models"
	"kudi/internal/repositories"

	"github.com/sirupsen/logrus"
)

type service struct {
	repo   repositories.WalletRepository
	cache  CacheOperator
	config Config
	log    *logrus.Entry
}

// NewService creates the wallet ledger service.
func NewService(repo repositories.WalletRepository, cache CacheOperator, config Config) Service {
	if repo == nil {
		panic("repo is required")
	}
	if cache == nil {
		cache = NoopCache{}
	}
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = DefaultCurrency
	}
	if config.HistoryPageSize == 0 {
		config.HistoryPageSize = DefaultHistoryPageSize
	}
	return &service{
		repo:   repo,
		cache:  cache,
		config: config,
		log:    logrus.WithField("component", "wallet"),
	}
}

func (s *service) GetOrCreateWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	if cached, ok := s.cache.GetWallet(ctx, userID); ok {
		return cached, nil
	}

	wallet, err := s.repo.GetByUserID(userID)
	if errors.Is(err, repositories.ErrWalletNotFound) {
		wallet = &models.Wallet{
			UserID:   userID,
			Balance:  0,
			Currency: s.config.DefaultCurrency,
			Status:   models.WalletStatusActive,
		}
		if createErr := s.repo.Create(wallet); createErr != nil {
			// A concurrent first access may have created it already.
			wallet, err = s.repo.GetByUserID(userID)
			if err != nil {
				return nil, createErr
			}
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	s.cache.CacheWallet(ctx, wallet)
	return wallet, nil
}

func (s *service) Credit(ctx context.Context, userID uint, amount int64, txType, reference string, metadata models.Metadata) (*OperationResult, error) {
	if err := validateMutation(amount, txType, reference); err != nil {
		return nil, err
	}

	var result *OperationResult
	err := s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
		if err := checkReferenceUnused(tx, reference); err != nil {
			return err
		}

		wallet, err := lockOrCreateWallet(tx, userID, s.config.DefaultCurrency)
		if err != nil {
			return err
		}
		if wallet.Status != models.WalletStatusActive {
			return ErrWalletNotActive
		}

		before := wallet.Balance
		after := before + amount
		txn := &models.Transaction{
			UserID:        userID,
			Type:          txType,
			Amount:        amount,
			Currency:      wallet.Currency,
			Status:        models.TransactionStatusCompleted,
			Reference:     reference,
			BalanceBefore: before,
			BalanceAfter:  after,
			Metadata:      metadata,
		}
		if err := tx.CreateTransaction(txn); err != nil {
			if errors.Is(err, repositories.ErrDuplicateReference) {
				return ErrDuplicateReference
			}
			return err
		}
		if err := tx.UpdateBalance(wallet.ID, after); err != nil {
			return err
		}

		result = &OperationResult{Balance: after, Transaction: txn}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateWallet(ctx, userID)
	s.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"type":      txType,
		"amount":    amount,
		"reference": reference,
		"balance":   result.Balance,
	}).Info("wallet credited")

	return result, nil
}

func (s *service) Debit(ctx context.Context, userID uint, amount int64, txType, reference string, metadata models.Metadata) (*OperationResult, error) {
	if err := validateMutation(amount, txType, reference); err != nil {
		return nil, err
	}

	var result *OperationResult
	err := s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
		if err := checkReferenceUnused(tx, reference); err != nil {
			return err
		}

		// The balance check and the decrement share the lock taken here;
		// two debits racing past a read-then-write cannot both succeed.
		wallet, err := tx.GetByUserIDForUpdate(userID)
		if err != nil {
			if errors.Is(err, repositories.ErrWalletNotFound) {
				return ErrInsufficientFunds
			}
			return err
		}
		if wallet.Status != models.WalletStatusActive {
			return ErrWalletNotActive
		}
		if wallet.Balance < amount {
			return ErrInsufficientFunds
		}

		before := wallet.Balance
		after := before - amount
		txn := &models.Transaction{
			UserID:        userID,
			Type:          txType,
			Amount:        -amount,
			Currency:      wallet.Currency,
			Status:        models.TransactionStatusCompleted,
			Reference:     reference,
			BalanceBefore: before,
			BalanceAfter:  after,
			Metadata:      metadata,
		}
		if err := tx.CreateTransaction(txn); err != nil {
			if errors.Is(err, repositories.ErrDuplicateReference) {
				return ErrDuplicateReference
			}
			return err
		}
		if err := tx.UpdateBalance(wallet.ID, after); err != nil {
			return err
		}

		result = &OperationResult{Balance: after, Transaction: txn}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateWallet(ctx, userID)
	s.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"type":      txType,
		"amount":    amount,
		"reference": reference,
		"balance":   result.Balance,
	}).Info("wallet debited")

	return result, nil
}

func (s *service) StagePending(ctx context.Context, userID uint, amount int64, txType, reference string, metadata models.Metadata) (*models.Transaction, error) {
	if err := validateMutation(amount, txType, reference); err != nil {
		return nil, err
	}

	var txn *models.Transaction
	err := s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
		if err := checkReferenceUnused(tx, reference); err != nil {
			return err
		}

		wallet, err := lockOrCreateWallet(tx, userID, s.config.DefaultCurrency)
		if err != nil {
			return err
		}
		if wallet.Status != models.WalletStatusActive {
			return ErrWalletNotActive
		}

		txn = &models.Transaction{
			UserID:    userID,
			Type:      txType,
			Amount:    amount,
			Currency:  wallet.Currency,
			Status:    models.TransactionStatusPending,
			Reference: reference,
			Metadata:  metadata,
		}
		if err := tx.CreateTransaction(txn); err != nil {
			if errors.Is(err, repositories.ErrDuplicateReference) {
				return ErrDuplicateReference
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) CompletePending(ctx context.Context, reference string, verifiedAmount int64) (*OperationResult, error) {
	var result *OperationResult
	var userID uint

	err := s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
		txn, err := tx.GetTransactionByReferenceForUpdate(reference)
		if err != nil {
			return err
		}

		switch txn.Status {
		case models.TransactionStatusCompleted:
			return ErrDuplicateReference
		case models.TransactionStatusFailed, models.TransactionStatusReversed:
			return fmt.Errorf("%w: transaction %s already %s", ErrValidation, reference, txn.Status)
		}

		if verifiedAmount != txn.Amount {
			return fmt.Errorf("%w: staged %d, verified %d", ErrAmountMismatch, txn.Amount, verifiedAmount)
		}

		wallet, err := tx.GetByUserIDForUpdate(txn.UserID)
		if err != nil {
			return err
		}
		if wallet.Status != models.WalletStatusActive {
			return ErrWalletNotActive
		}

		before := wallet.Balance
		after := before + txn.Amount
		txn.Status = models.TransactionStatusCompleted
		txn.BalanceBefore = before
		txn.BalanceAfter = after
		if err := tx.SaveTransaction(txn); err != nil {
			return err
		}
		if err := tx.UpdateBalance(wallet.ID, after); err != nil {
			return err
		}

		userID = txn.UserID
		result = &OperationResult{Balance: after, Transaction: txn}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateWallet(ctx, userID)
	s.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"reference": reference,
		"amount":    verifiedAmount,
		"balance":   result.Balance,
	}).Info("pending transaction completed")

	return result, nil
}

func (s *service) FailPending(ctx context.Context, reference string) error {
	return s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
		txn, err := tx.GetTransactionByReferenceForUpdate(reference)
		if err != nil {
			return err
		}
		if txn.Status != models.TransactionStatusPending {
			// Terminal already; nothing to do.
			return nil
		}
		txn.Status = models.TransactionStatusFailed
		return tx.SaveTransaction(txn)
	})
}

func (s *service) GetBalance(ctx context.Context, userID uint) (*Balance, error) {
	wallet, err := s.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Balance{
		Balance:  wallet.Balance,
		Currency: wallet.Currency,
		Status:   wallet.Status,
	}, nil
}

func (s *service) GetTransactionHistory(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = s.config.HistoryPageSize
	}
	if limit > MaxHistoryPageSize {
		limit = MaxHistoryPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.GetTransactionHistory(ctx, userID, limit, offset)
}

func (s *service) VerifyIntegrity(ctx context.Context, userID uint) (*IntegrityReport, error) {
	wallet, err := s.repo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}

	computed, err := s.repo.SumCompletedAmounts(userID)
	if err != nil {
		return nil, err
	}

	report := &IntegrityReport{
		UserID:          userID,
		WalletBalance:   wallet.Balance,
		ComputedBalance: computed,
		Valid:           wallet.Balance == computed,
	}
	if !report.Valid {
		s.log.WithFields(logrus.Fields{
			"user_id":  userID,
			"stored":   report.WalletBalance,
			"computed": report.ComputedBalance,
		}).Error("wallet balance does not match transaction log")
	}
	return report, nil
}

func (s *service) SetStatus(ctx context.Context, userID uint, status, reason string) error {
	switch status {
	case models.WalletStatusActive, models.WalletStatusSuspended, models.WalletStatusClosed:
	default:
		return fmt.Errorf("%w: unknown wallet status %q", ErrValidation, status)
	}

	wallet, err := s.repo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return ErrWalletNotFound
		}
		return err
	}

	if err := s.repo.UpdateStatus(wallet.ID, status, reason); err != nil {
		return err
	}
	s.cache.InvalidateWallet(ctx, userID)

	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"status":  status,
		"reason":  reason,
	}).Warn("wallet status changed")
	return nil
}

// validateMutation rejects bad input before any I/O.
func validateMutation(amount int64, txType, reference string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if txType == "" {
		return fmt.Errorf("%w: transaction type is required", ErrValidation)
	}
	if reference == "" {
		return fmt.Errorf("%w: reference is required", ErrValidation)
	}
	return nil
}

// checkReferenceUnused aborts the mutation early when the idempotency key
// was already used. The unique index on reference closes the remaining
// race window at insert time.
func checkReferenceUnused(tx repositories.WalletRepository, reference string) error {
	_, err := tx.GetTransactionByReference(reference)
	if err == nil {
		return ErrDuplicateReference
	}
	if !errors.Is(err, repositories.ErrTransactionNotFound) {
		return err
	}
	return nil
}

// lockOrCreateWallet locks the user's wallet row, creating the wallet on
// first ledger access.
func lockOrCreateWallet(tx repositories.WalletRepository, userID uint, currency string) (*models.Wallet, error) {
	wallet, err := tx.GetByUserIDForUpdate(userID)
	if errors.Is(err, repositories.ErrWalletNotFound) {
		wallet = &models.Wallet{
			UserID:   userID,
			Balance:  0,
			Currency: currency,
			Status:   models.WalletStatusActive,
		}
		if err := tx.Create(wallet); err != nil {
			return nil, err
		}
		return wallet, nil
	}
	if err != nil {
		return nil, err
	}
	return wallet, nil
}
