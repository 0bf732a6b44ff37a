package payment

import (
	"context"
	"errors"
	"fmt"

	domain "kudi/internal/errors"
	"kudi/internal/gateway"
	"kudi/internal/models"
	"kudi/internal/repositories"
	"kudi/internal/services/reconciler"
	"kudi/internal/services/wallet"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// service wires gateways, the signature verifier, the ledger and the
// reconciler together. Every balance change goes through the ledger; the
// orchestrator only decides which ledger operation to call.
type service struct {
	adapters  map[string]gateway.Adapter
	verifier  WebhookAuthenticator
	ledger    wallet.Service
	transfers TransferProcessor
	accounts  repositories.VirtualAccountRepository
	bills     BillProvider
	config    Config
	log       *logrus.Entry
}

func NewService(
	adapters map[string]gateway.Adapter,
	verifier WebhookAuthenticator,
	ledger wallet.Service,
	transfers TransferProcessor,
	accounts repositories.VirtualAccountRepository,
	bills BillProvider,
	config Config,
) Service {
	if len(adapters) == 0 {
		panic("payment service requires at least one gateway adapter")
	}
	if verifier == nil {
		panic("payment service requires a webhook authenticator")
	}
	if ledger == nil {
		panic("payment service requires the wallet ledger")
	}
	if transfers == nil {
		panic("payment service requires a transfer processor")
	}
	if accounts == nil {
		panic("payment service requires a virtual account repository")
	}
	if config.VerifyRetries <= 0 {
		config.VerifyRetries = DefaultVerifyRetries
	}

	return &service{
		adapters:  adapters,
		verifier:  verifier,
		ledger:    ledger,
		transfers: transfers,
		accounts:  accounts,
		bills:     bills,
		config:    config,
		log:       logrus.WithField("component", "payment"),
	}
}

func (s *service) adapter(gatewayID string) (gateway.Adapter, error) {
	a, ok := s.adapters[gatewayID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownGateway, gatewayID)
	}
	return a, nil
}

func (s *service) InitializeDeposit(ctx context.Context, req DepositRequest) (*DepositSession, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if req.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	adapter, err := s.adapter(req.Gateway)
	if err != nil {
		return nil, err
	}

	reference := depositReferencePrefix + uuid.NewString()
	metadata := models.Metadata{
		Version: models.MetadataVersion,
		Gateway: req.Gateway,
		Deposit: &models.DepositDetails{PayerEmail: req.Email},
	}

	// Stage before calling out so the expected amount is on record the
	// moment the gateway could start delivering webhooks for it.
	if _, err := s.ledger.StagePending(ctx, req.UserID, req.Amount, models.TransactionTypeDeposit, reference, metadata); err != nil {
		return nil, err
	}

	session, err := adapter.InitializeTransaction(ctx, gateway.InitializeRequest{
		Email:       req.Email,
		Amount:      req.Amount,
		Reference:   reference,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		if failErr := s.ledger.FailPending(ctx, reference); failErr != nil {
			s.log.WithError(failErr).WithField("reference", reference).
				Error("could not fail staged deposit after initialize error")
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":   req.UserID,
		"gateway":   req.Gateway,
		"reference": reference,
		"amount":    req.Amount,
	}).Info("deposit initialized")

	return &DepositSession{
		Reference:   reference,
		CheckoutURL: session.CheckoutURL,
		Gateway:     req.Gateway,
		Amount:      req.Amount,
	}, nil
}

func (s *service) VerifyDeposit(ctx context.Context, gatewayID, reference string) (*DepositOutcome, error) {
	if reference == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrValidation)
	}
	adapter, err := s.adapter(gatewayID)
	if err != nil {
		return nil, err
	}

	result, err := s.verifyWithRetry(ctx, adapter, reference)
	if err != nil {
		return nil, err
	}

	switch result.Status {
	case gateway.StatusSuccess:
		return s.settleDeposit(ctx, reference, result.Amount)
	case gateway.StatusFailed:
		if err := s.ledger.FailPending(ctx, reference); err != nil {
			return nil, err
		}
		return &DepositOutcome{Reference: reference, Status: string(gateway.StatusFailed)}, nil
	default:
		return &DepositOutcome{Reference: reference, Status: string(gateway.StatusPending)}, nil
	}
}

// verifyWithRetry re-attempts the verify call while the gateway is
// unreachable. Verify is read-only, so repeating it is safe; a definitive
// rejection is returned immediately.
func (s *service) verifyWithRetry(ctx context.Context, adapter gateway.Adapter, reference string) (*gateway.TransactionResult, error) {
	var lastErr error
	for attempt := 0; attempt <= s.config.VerifyRetries; attempt++ {
		result, err := adapter.VerifyTransaction(ctx, reference)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, gateway.ErrUnavailable) {
			return nil, err
		}
		lastErr = err
		s.log.WithFields(logrus.Fields{
			"gateway":   adapter.Name(),
			"reference": reference,
			"attempt":   attempt + 1,
		}).Warn("gateway unreachable during verify, retrying")
	}
	return nil, lastErr
}

// settleDeposit promotes the staged transaction using the gateway-verified
// amount. A redelivery of an already-settled deposit is a success, not an
// error.
func (s *service) settleDeposit(ctx context.Context, reference string, verifiedAmount int64) (*DepositOutcome, error) {
	res, err := s.ledger.CompletePending(ctx, reference, verifiedAmount)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			return &DepositOutcome{
				Reference:        reference,
				Status:           string(gateway.StatusSuccess),
				AlreadyProcessed: true,
			}, nil
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"reference": reference,
		"amount":    verifiedAmount,
	}).Info("deposit settled")

	return &DepositOutcome{
		Reference: reference,
		Status:    string(gateway.StatusSuccess),
		Credited:  true,
		Balance:   res.Balance,
	}, nil
}

func (s *service) HandleWebhook(ctx context.Context, gatewayID, signature string, rawBody []byte) (*WebhookOutcome, error) {
	adapter, err := s.adapter(gatewayID)
	if err != nil {
		return nil, err
	}

	// Authenticate before parsing: nothing in an unsigned body is trusted,
	// not even enough to log its contents.
	if !s.verifier.Verify(gatewayID, signature, rawBody) {
		s.log.WithField("gateway", gatewayID).Warn("webhook signature rejected")
		return nil, ErrSignatureInvalid
	}

	event, err := adapter.ParseWebhook(rawBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	switch event.Kind {
	case gateway.EventCharge:
		return s.handleChargeEvent(ctx, event)
	case gateway.EventTransfer:
		return s.handleTransferEvent(ctx, gatewayID, event)
	default:
		return &WebhookOutcome{Accepted: true, Event: string(gateway.EventIgnored)}, nil
	}
}

func (s *service) handleChargeEvent(ctx context.Context, event *gateway.WebhookEvent) (*WebhookOutcome, error) {
	outcome, err := s.settleDeposit(ctx, event.Reference, event.Amount)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			// A charge this instance never staged. Acknowledge so the
			// gateway stops redelivering, but credit nothing.
			s.log.WithField("reference", event.Reference).
				Warn("charge webhook for unknown reference")
			return &WebhookOutcome{Accepted: true, Event: string(gateway.EventCharge), Reference: event.Reference}, nil
		}
		if errors.Is(err, domain.ErrAmountMismatch) {
			// Deterministic failure: no redelivery of this event can ever
			// succeed, so acknowledge it. The deposit stays pending and
			// the mismatch goes to the audit log.
			s.log.WithError(err).WithFields(logrus.Fields{
				"reference": event.Reference,
				"amount":    event.Amount,
			}).Error("charge webhook amount does not match staged deposit")
			return &WebhookOutcome{
				Accepted:       true,
				Event:          string(gateway.EventCharge),
				Reference:      event.Reference,
				AmountMismatch: true,
			}, nil
		}
		return nil, err
	}
	return &WebhookOutcome{
		Accepted:         true,
		Event:            string(gateway.EventCharge),
		Reference:        event.Reference,
		Credited:         outcome.Credited,
		AlreadyProcessed: outcome.AlreadyProcessed,
	}, nil
}

func (s *service) handleTransferEvent(ctx context.Context, gatewayID string, event *gateway.WebhookEvent) (*WebhookOutcome, error) {
	outcome, err := s.transfers.CreditFromTransfer(ctx, reconciler.TransferNotification{
		AccountNumber: event.AccountNumber,
		Amount:        event.Amount,
		Reference:     event.Reference,
		SenderName:    event.SenderName,
		SenderBank:    event.SenderBank,
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"gateway":   gatewayID,
		"reference": event.Reference,
		"user_id":   outcome.UserID,
		"credited":  outcome.Credited,
	}).Info("transfer webhook processed")

	return &WebhookOutcome{
		Accepted:         true,
		Event:            string(gateway.EventTransfer),
		Reference:        event.Reference,
		Credited:         outcome.Credited,
		AlreadyProcessed: outcome.AlreadyProcessed,
	}, nil
}

func (s *service) CreateVirtualAccount(ctx context.Context, req VirtualAccountRequest) ([]models.VirtualAccount, error) {
	if req.Email == "" || req.FirstName == "" || req.LastName == "" {
		return nil, fmt.Errorf("%w: email and full name are required", ErrValidation)
	}
	adapter, err := s.adapter(req.Gateway)
	if err != nil {
		return nil, err
	}

	reference := accountReferencePrefix + uuid.NewString()
	reserved, err := adapter.ReserveAccount(ctx, gateway.ReserveAccountRequest{
		UserID:    req.UserID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Reference: reference,
	})
	if err != nil {
		return nil, err
	}

	accounts := make([]models.VirtualAccount, 0, len(reserved))
	for _, r := range reserved {
		account := models.VirtualAccount{
			UserID:        req.UserID,
			Gateway:       req.Gateway,
			BankName:      r.BankName,
			AccountNumber: r.AccountNumber,
			AccountName:   r.AccountName,
			Reference:     reference,
			Status:        models.VirtualAccountStatusActive,
		}
		if err := s.accounts.Create(&account); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	s.log.WithFields(logrus.Fields{
		"user_id": req.UserID,
		"gateway": req.Gateway,
		"count":   len(accounts),
	}).Info("virtual accounts reserved")

	return accounts, nil
}

func (s *service) ListVirtualAccounts(ctx context.Context, userID uint) ([]models.VirtualAccount, error) {
	return s.accounts.GetByUserID(userID)
}

func (s *service) ListBanks(ctx context.Context, gatewayID string) ([]BankInfo, error) {
	adapter, err := s.adapter(gatewayID)
	if err != nil {
		return nil, err
	}
	banks, err := adapter.ListBanks(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]BankInfo, len(banks))
	for i, b := range banks {
		out[i] = BankInfo{Name: b.Name, Code: b.Code}
	}
	return out, nil
}

func (s *service) PayBill(ctx context.Context, req BillPaymentRequest) (*BillPaymentResult, error) {
	if s.bills == nil {
		return nil, fmt.Errorf("%w: no bill provider configured", ErrValidation)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if req.Biller == "" {
		return nil, fmt.Errorf("%w: biller is required", ErrValidation)
	}

	reference := billReferencePrefix + uuid.NewString()
	debitMeta := models.Metadata{
		Version: models.MetadataVersion,
		BillPayment: &models.BillPaymentDetails{
			Biller:     req.Biller,
			CustomerID: req.CustomerID,
		},
	}

	res, err := s.ledger.Debit(ctx, req.UserID, req.Amount, models.TransactionTypeBillPayment, reference, debitMeta)
	if err != nil {
		return nil, err
	}

	providerID, err := s.bills.Pay(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrGatewayUnavailable) {
			// Timeout or transport failure: the biller may still have
			// settled the payment, so the outcome is unknown. The debit
			// stands until the outcome is established; compensating now
			// could pay the bill and refund it.
			s.log.WithError(err).WithFields(logrus.Fields{
				"user_id":   req.UserID,
				"reference": reference,
				"biller":    req.Biller,
			}).Error("bill provider unreachable, outcome unknown, debit retained")
			return nil, err
		}
		return nil, s.refundBill(ctx, req, reference, err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":     req.UserID,
		"reference":   reference,
		"biller":      req.Biller,
		"provider_id": providerID,
	}).Info("bill payment settled")

	return &BillPaymentResult{
		Reference:  reference,
		ProviderID: providerID,
		Balance:    res.Balance,
	}, nil
}

// refundBill compensates a debit whose downstream settlement failed. The
// refund reference is derived from the debit reference, so a retried
// compensation cannot double-credit.
func (s *service) refundBill(ctx context.Context, req BillPaymentRequest, reference string, cause error) error {
	refundMeta := models.Metadata{
		Version: models.MetadataVersion,
		Refund: &models.RefundDetails{
			OriginalReference: reference,
			Reason:            "bill provider rejected payment",
		},
	}

	refundRef := refundReferencePrefix + reference
	if _, err := s.ledger.Credit(ctx, req.UserID, req.Amount, models.TransactionTypeRefund, refundRef, refundMeta); err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			return cause
		}
		// The debit stands with no matching settlement. Loud log so the
		// integrity audit picks it up.
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id":   req.UserID,
			"reference": reference,
		}).Error("bill refund failed after provider rejection")
		return fmt.Errorf("bill payment failed and refund could not be applied: %w", cause)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":   req.UserID,
		"reference": reference,
	}).Info("bill payment refunded")
	return cause
}
