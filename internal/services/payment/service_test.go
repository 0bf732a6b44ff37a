package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"testing"

	domain "kudi/internal/errors"
	"kudi/internal/gateway"
	"kudi/internal/models"
	"kudi/internal/repositories"
	"kudi/internal/services/reconciler"
	"kudi/internal/services/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "sk_test_whsec"

// fakeAdapter lets each test script the gateway's behavior per call.
type fakeAdapter struct {
	name       string
	initialize func(gateway.InitializeRequest) (*gateway.CheckoutSession, error)
	verify     func(string) (*gateway.TransactionResult, error)
	reserve    func(gateway.ReserveAccountRequest) ([]gateway.ReservedAccount, error)
	parse      func([]byte) (*gateway.WebhookEvent, error)
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) InitializeTransaction(ctx context.Context, req gateway.InitializeRequest) (*gateway.CheckoutSession, error) {
	if f.initialize == nil {
		return &gateway.CheckoutSession{CheckoutURL: "https://pay.example/" + req.Reference, Reference: req.Reference}, nil
	}
	return f.initialize(req)
}

func (f *fakeAdapter) VerifyTransaction(ctx context.Context, reference string) (*gateway.TransactionResult, error) {
	return f.verify(reference)
}

func (f *fakeAdapter) ReserveAccount(ctx context.Context, req gateway.ReserveAccountRequest) ([]gateway.ReservedAccount, error) {
	if f.reserve == nil {
		return nil, gateway.ErrNotSupported
	}
	return f.reserve(req)
}

func (f *fakeAdapter) ListBanks(ctx context.Context) ([]gateway.Bank, error) {
	return []gateway.Bank{{Name: "Zenith Bank", Code: "057"}}, nil
}

func (f *fakeAdapter) ParseWebhook(body []byte) (*gateway.WebhookEvent, error) {
	return f.parse(body)
}

type stagedTxn struct {
	userID uint
	amount int64
	status string
}

// fakeLedger mimics the ledger's reference semantics in memory.
type fakeLedger struct {
	wallet.Service
	staged   map[string]*stagedTxn
	used     map[string]bool
	balances map[uint]int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		staged:   make(map[string]*stagedTxn),
		used:     make(map[string]bool),
		balances: make(map[uint]int64),
	}
}

func (f *fakeLedger) mutations() int { return len(f.used) }

func (f *fakeLedger) StagePending(ctx context.Context, userID uint, amount int64, txType, reference string, metadata models.Metadata) (*models.Transaction, error) {
	if f.used[reference] || f.staged[reference] != nil {
		return nil, domain.ErrDuplicateReference
	}
	f.staged[reference] = &stagedTxn{userID: userID, amount: amount, status: models.TransactionStatusPending}
	return &models.Transaction{Reference: reference, Amount: amount, Status: models.TransactionStatusPending}, nil
}

func (f *fakeLedger) CompletePending(ctx context.Context, reference string, verifiedAmount int64) (*wallet.OperationResult, error) {
	txn, ok := f.staged[reference]
	if !ok {
		return nil, repositories.ErrTransactionNotFound
	}
	if txn.status == models.TransactionStatusCompleted {
		return nil, domain.ErrDuplicateReference
	}
	if txn.amount != verifiedAmount {
		return nil, fmt.Errorf("%w: staged %d, verified %d", domain.ErrAmountMismatch, txn.amount, verifiedAmount)
	}
	txn.status = models.TransactionStatusCompleted
	f.used[reference] = true
	f.balances[txn.userID] += txn.amount
	return &wallet.OperationResult{Balance: f.balances[txn.userID]}, nil
}

func (f *fakeLedger) FailPending(ctx context.Context, reference string) error {
	txn, ok := f.staged[reference]
	if !ok {
		return repositories.ErrTransactionNotFound
	}
	if txn.status == models.TransactionStatusPending {
		txn.status = models.TransactionStatusFailed
	}
	return nil
}

func (f *fakeLedger) Credit(ctx context.Context, userID uint, amount int64, txType, reference string, metadata models.Metadata) (*wallet.OperationResult, error) {
	if f.used[reference] {
		return nil, domain.ErrDuplicateReference
	}
	f.used[reference] = true
	f.balances[userID] += amount
	return &wallet.OperationResult{Balance: f.balances[userID]}, nil
}

func (f *fakeLedger) Debit(ctx context.Context, userID uint, amount int64, txType, reference string, metadata models.Metadata) (*wallet.OperationResult, error) {
	if f.used[reference] {
		return nil, domain.ErrDuplicateReference
	}
	if f.balances[userID] < amount {
		return nil, domain.ErrInsufficientFunds
	}
	f.used[reference] = true
	f.balances[userID] -= amount
	return &wallet.OperationResult{Balance: f.balances[userID]}, nil
}

type fakeTransfers struct {
	outcome *reconciler.Outcome
	err     error
	calls   []reconciler.TransferNotification
}

func (f *fakeTransfers) CreditFromTransfer(ctx context.Context, n reconciler.TransferNotification) (*reconciler.Outcome, error) {
	f.calls = append(f.calls, n)
	return f.outcome, f.err
}

type fakeAccounts struct {
	created []models.VirtualAccount
}

func (f *fakeAccounts) Create(a *models.VirtualAccount) error {
	f.created = append(f.created, *a)
	return nil
}
func (f *fakeAccounts) GetByAccountNumber(string) (*models.VirtualAccount, error) {
	return nil, repositories.ErrVirtualAccountNotFound
}
func (f *fakeAccounts) GetByUserID(userID uint) ([]models.VirtualAccount, error) {
	return f.created, nil
}
func (f *fakeAccounts) UpdateStatus(uint, string) error { return nil }

type fakeBills struct {
	err   error
	calls int
}

func (f *fakeBills) Pay(ctx context.Context, req BillPaymentRequest) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "prov-001", nil
}

type fixture struct {
	svc      Service
	adapter  *fakeAdapter
	ledger   *fakeLedger
	transfer *fakeTransfers
	accounts *fakeAccounts
	bills    *fakeBills
}

func newFixture() *fixture {
	adapter := &fakeAdapter{name: "paystack"}
	ledger := newFakeLedger()
	transfers := &fakeTransfers{outcome: &reconciler.Outcome{UserID: 1, Credited: true, Balance: 2000}}
	accounts := &fakeAccounts{}
	bills := &fakeBills{}

	verifier := gateway.NewSignatureVerifier()
	verifier.Register("paystack", testSecret, "x-paystack-signature")

	svc := NewService(
		map[string]gateway.Adapter{"paystack": adapter},
		verifier,
		ledger,
		transfers,
		accounts,
		bills,
		Config{VerifyRetries: 2},
	)
	return &fixture{svc: svc, adapter: adapter, ledger: ledger, transfer: transfers, accounts: accounts, bills: bills}
}

func sign(body []byte) string {
	mac := hmac.New(sha512.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestInitializeDeposit(t *testing.T) {
	f := newFixture()

	session, err := f.svc.InitializeDeposit(context.Background(), DepositRequest{
		UserID: 1, Email: "ada@example.com", Amount: 250000, Gateway: "paystack",
	})
	require.NoError(t, err)
	assert.Contains(t, session.Reference, "dep-")
	assert.Equal(t, "https://pay.example/"+session.Reference, session.CheckoutURL)

	staged := f.ledger.staged[session.Reference]
	require.NotNil(t, staged, "deposit must be staged before checkout")
	assert.Equal(t, int64(250000), staged.amount)
	assert.Equal(t, models.TransactionStatusPending, staged.status)
}

func TestInitializeDepositGatewayFailure(t *testing.T) {
	f := newFixture()
	f.adapter.initialize = func(gateway.InitializeRequest) (*gateway.CheckoutSession, error) {
		return nil, gateway.ErrUnavailable
	}

	_, err := f.svc.InitializeDeposit(context.Background(), DepositRequest{
		UserID: 1, Email: "ada@example.com", Amount: 1000, Gateway: "paystack",
	})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)

	for _, txn := range f.ledger.staged {
		assert.Equal(t, models.TransactionStatusFailed, txn.status, "staged deposit must not stay pending")
	}
}

func TestInitializeDepositUnknownGateway(t *testing.T) {
	f := newFixture()
	_, err := f.svc.InitializeDeposit(context.Background(), DepositRequest{
		UserID: 1, Email: "ada@example.com", Amount: 1000, Gateway: "flutterwave",
	})
	assert.ErrorIs(t, err, domain.ErrUnknownGateway)
}

func TestVerifyDeposit(t *testing.T) {
	f := newFixture()
	f.ledger.StagePending(context.Background(), 1, 5000, models.TransactionTypeDeposit, "dep-1", models.Metadata{})
	f.adapter.verify = func(string) (*gateway.TransactionResult, error) {
		return &gateway.TransactionResult{Success: true, Status: gateway.StatusSuccess, Reference: "dep-1", Amount: 5000}, nil
	}

	outcome, err := f.svc.VerifyDeposit(context.Background(), "paystack", "dep-1")
	require.NoError(t, err)
	assert.True(t, outcome.Credited)
	assert.Equal(t, int64(5000), outcome.Balance)

	// The same verification again settles nothing further.
	outcome, err = f.svc.VerifyDeposit(context.Background(), "paystack", "dep-1")
	require.NoError(t, err)
	assert.True(t, outcome.AlreadyProcessed)
	assert.False(t, outcome.Credited)
	assert.Equal(t, int64(5000), f.ledger.balances[1])
}

func TestVerifyDepositAmountMismatch(t *testing.T) {
	f := newFixture()
	f.ledger.StagePending(context.Background(), 1, 5000, models.TransactionTypeDeposit, "dep-1", models.Metadata{})
	f.adapter.verify = func(string) (*gateway.TransactionResult, error) {
		return &gateway.TransactionResult{Success: true, Status: gateway.StatusSuccess, Reference: "dep-1", Amount: 4000}, nil
	}

	_, err := f.svc.VerifyDeposit(context.Background(), "paystack", "dep-1")
	assert.ErrorIs(t, err, ErrAmountMismatch)
	assert.Zero(t, f.ledger.balances[1], "mismatched deposit must not credit")
}

func TestVerifyDepositRetriesWhileUnavailable(t *testing.T) {
	f := newFixture()
	f.ledger.StagePending(context.Background(), 1, 5000, models.TransactionTypeDeposit, "dep-1", models.Metadata{})
	calls := 0
	f.adapter.verify = func(string) (*gateway.TransactionResult, error) {
		calls++
		if calls < 3 {
			return nil, gateway.ErrUnavailable
		}
		return &gateway.TransactionResult{Success: true, Status: gateway.StatusSuccess, Reference: "dep-1", Amount: 5000}, nil
	}

	outcome, err := f.svc.VerifyDeposit(context.Background(), "paystack", "dep-1")
	require.NoError(t, err)
	assert.True(t, outcome.Credited)
	assert.Equal(t, 3, calls)
}

func TestVerifyDepositFailed(t *testing.T) {
	f := newFixture()
	f.ledger.StagePending(context.Background(), 1, 5000, models.TransactionTypeDeposit, "dep-1", models.Metadata{})
	f.adapter.verify = func(string) (*gateway.TransactionResult, error) {
		return &gateway.TransactionResult{Status: gateway.StatusFailed, Reference: "dep-1"}, nil
	}

	outcome, err := f.svc.VerifyDeposit(context.Background(), "paystack", "dep-1")
	require.NoError(t, err)
	assert.Equal(t, string(gateway.StatusFailed), outcome.Status)
	assert.Equal(t, models.TransactionStatusFailed, f.ledger.staged["dep-1"].status)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture()
	f.adapter.parse = func([]byte) (*gateway.WebhookEvent, error) {
		t.Fatal("an unauthenticated body must never be parsed")
		return nil, nil
	}

	body := []byte(`{"event":"charge.success"}`)
	_, err := f.svc.HandleWebhook(context.Background(), "paystack", "deadbeef", body)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
	assert.Zero(t, f.ledger.mutations(), "rejected webhook must leave no trace")
}

func TestWebhookChargeSettlesDeposit(t *testing.T) {
	f := newFixture()
	f.ledger.StagePending(context.Background(), 1, 5000, models.TransactionTypeDeposit, "dep-1", models.Metadata{})
	f.adapter.parse = func([]byte) (*gateway.WebhookEvent, error) {
		return &gateway.WebhookEvent{Kind: gateway.EventCharge, Reference: "dep-1", Amount: 5000}, nil
	}

	body := []byte(`{"event":"charge.success","data":{"reference":"dep-1"}}`)
	outcome, err := f.svc.HandleWebhook(context.Background(), "paystack", sign(body), body)
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	assert.True(t, outcome.Credited)
	assert.Equal(t, int64(5000), f.ledger.balances[1])

	// Redelivery is acknowledged without a second credit.
	outcome, err = f.svc.HandleWebhook(context.Background(), "paystack", sign(body), body)
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	assert.True(t, outcome.AlreadyProcessed)
	assert.Equal(t, int64(5000), f.ledger.balances[1])
}

func TestWebhookChargeAmountMismatchAcknowledged(t *testing.T) {
	f := newFixture()
	f.ledger.StagePending(context.Background(), 1, 5000, models.TransactionTypeDeposit, "dep-1", models.Metadata{})
	f.adapter.parse = func([]byte) (*gateway.WebhookEvent, error) {
		return &gateway.WebhookEvent{Kind: gateway.EventCharge, Reference: "dep-1", Amount: 4000}, nil
	}

	body := []byte(`{"event":"charge.success","data":{"reference":"dep-1"}}`)
	outcome, err := f.svc.HandleWebhook(context.Background(), "paystack", sign(body), body)
	require.NoError(t, err, "a deterministic mismatch must be acknowledged, not redelivered")
	assert.True(t, outcome.Accepted)
	assert.True(t, outcome.AmountMismatch)
	assert.False(t, outcome.Credited)

	assert.Zero(t, f.ledger.balances[1], "mismatched charge must not credit")
	assert.Equal(t, models.TransactionStatusPending, f.ledger.staged["dep-1"].status, "deposit stays pending for audit")
}

func TestWebhookChargeUnknownReference(t *testing.T) {
	f := newFixture()
	f.adapter.parse = func([]byte) (*gateway.WebhookEvent, error) {
		return &gateway.WebhookEvent{Kind: gateway.EventCharge, Reference: "dep-unknown", Amount: 5000}, nil
	}

	body := []byte(`{}`)
	outcome, err := f.svc.HandleWebhook(context.Background(), "paystack", sign(body), body)
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	assert.False(t, outcome.Credited)
	assert.Zero(t, f.ledger.mutations())
}

func TestWebhookTransferRoutesToReconciler(t *testing.T) {
	f := newFixture()
	f.adapter.parse = func([]byte) (*gateway.WebhookEvent, error) {
		return &gateway.WebhookEvent{
			Kind:          gateway.EventTransfer,
			Reference:     "vt-100",
			Amount:        2000,
			AccountNumber: "9901234567",
			SenderName:    "ADA OBI",
		}, nil
	}

	body := []byte(`{}`)
	outcome, err := f.svc.HandleWebhook(context.Background(), "paystack", sign(body), body)
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	assert.True(t, outcome.Credited)

	require.Len(t, f.transfer.calls, 1)
	assert.Equal(t, "9901234567", f.transfer.calls[0].AccountNumber)
	assert.Equal(t, int64(2000), f.transfer.calls[0].Amount)
	assert.Equal(t, "vt-100", f.transfer.calls[0].Reference)
}

func TestWebhookIgnoredEvent(t *testing.T) {
	f := newFixture()
	f.adapter.parse = func([]byte) (*gateway.WebhookEvent, error) {
		return &gateway.WebhookEvent{Kind: gateway.EventIgnored}, nil
	}

	body := []byte(`{"event":"subscription.create"}`)
	outcome, err := f.svc.HandleWebhook(context.Background(), "paystack", sign(body), body)
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	assert.Zero(t, f.ledger.mutations())
}

func TestCreateVirtualAccount(t *testing.T) {
	f := newFixture()
	f.adapter.reserve = func(req gateway.ReserveAccountRequest) ([]gateway.ReservedAccount, error) {
		return []gateway.ReservedAccount{
			{BankName: "Wema Bank", AccountNumber: "9901234567", AccountName: "ADA OBI"},
			{BankName: "Sterling Bank", AccountNumber: "8801234567", AccountName: "ADA OBI"},
		}, nil
	}

	accounts, err := f.svc.CreateVirtualAccount(context.Background(), VirtualAccountRequest{
		UserID: 1, Email: "ada@example.com", FirstName: "Ada", LastName: "Obi", Gateway: "paystack",
	})
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "Wema Bank", accounts[0].BankName)
	assert.Equal(t, models.VirtualAccountStatusActive, accounts[0].Status)
	assert.Len(t, f.accounts.created, 2)
}

func TestPayBill(t *testing.T) {
	f := newFixture()
	f.ledger.balances[1] = 10000

	result, err := f.svc.PayBill(context.Background(), BillPaymentRequest{
		UserID: 1, Biller: "ikedc", CustomerID: "04123456789", Amount: 6000,
	})
	require.NoError(t, err)
	assert.Equal(t, "prov-001", result.ProviderID)
	assert.Equal(t, int64(4000), result.Balance)
}

func TestPayBillProviderRejectionRefunds(t *testing.T) {
	f := newFixture()
	f.ledger.balances[1] = 10000
	f.bills.err = fmt.Errorf("%w: invalid meter number", gateway.ErrRejected)

	_, err := f.svc.PayBill(context.Background(), BillPaymentRequest{
		UserID: 1, Biller: "ikedc", CustomerID: "04123456789", Amount: 6000,
	})
	assert.ErrorIs(t, err, gateway.ErrRejected)
	assert.Equal(t, int64(10000), f.ledger.balances[1], "rejected bill must be refunded in full")
}

func TestPayBillProviderUnavailableKeepsDebit(t *testing.T) {
	f := newFixture()
	f.ledger.balances[1] = 10000
	f.bills.err = fmt.Errorf("%w: request timed out", gateway.ErrUnavailable)

	_, err := f.svc.PayBill(context.Background(), BillPaymentRequest{
		UserID: 1, Biller: "ikedc", CustomerID: "04123456789", Amount: 6000,
	})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	// The biller may have settled the payment; refunding now could pay
	// the bill twice over. The debit stands until the outcome is known.
	assert.Equal(t, int64(4000), f.ledger.balances[1], "unknown outcome must not be compensated")
}

func TestPayBillInsufficientFunds(t *testing.T) {
	f := newFixture()
	f.ledger.balances[1] = 100

	_, err := f.svc.PayBill(context.Background(), BillPaymentRequest{
		UserID: 1, Biller: "ikedc", Amount: 6000,
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Zero(t, f.bills.calls, "provider must not be called without a debit")
}
