package monnify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"kudi/internal/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginResponse(w http.ResponseWriter, expiresIn int64) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"requestSuccessful": true,
		"responseMessage":   "success",
		"responseBody": map[string]interface{}{
			"accessToken": "tok-1",
			"expiresIn":   expiresIn,
		},
	})
}

func TestAccessTokenCaching(t *testing.T) {
	var logins int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			atomic.AddInt32(&logins, 1)
			loginResponse(w, 3600)
		case "/api/v1/banks":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"requestSuccessful": true,
				"responseBody":      []map[string]string{{"name": "GTBank", "code": "058"}},
			})
		}
	}))
	defer srv.Close()

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	client := New(Config{APIKey: "MK_KEY", SecretKey: "MK_SECRET", BaseURL: srv.URL, Now: clock})

	_, err := client.ListBanks(context.Background())
	require.NoError(t, err)
	_, err = client.ListBanks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins), "token should be reused while fresh")

	// Advance past expiry minus skew; next call must log in again.
	now = now.Add(3590 * time.Second)
	_, err = client.ListBanks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&logins))
}

func TestTokenRefreshDoesNotBlockCachedReads(t *testing.T) {
	inLogin := make(chan struct{})
	release := make(chan struct{})
	var entered int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&entered, 1) == 1 {
			close(inLogin)
			<-release
		}
		loginResponse(w, 3600)
	}))
	defer srv.Close()

	client := New(Config{APIKey: "MK_KEY", SecretKey: "MK_SECRET", BaseURL: srv.URL})

	errc := make(chan error, 1)
	go func() {
		_, err := client.accessToken(context.Background())
		errc <- err
	}()
	<-inLogin

	// With the login round trip still in flight, the cached-token path
	// must stay responsive.
	done := make(chan struct{})
	go func() {
		client.cachedToken()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cached-token path blocked during a login round trip")
	}

	close(release)
	require.NoError(t, <-errc)
}

func TestVerifyTransaction(t *testing.T) {
	tests := []struct {
		name         string
		nativeStatus string
		amountPaid   string
		wantStatus   gateway.Status
		wantAmount   int64
	}{
		{name: "paid", nativeStatus: "PAID", amountPaid: "50.00", wantStatus: gateway.StatusSuccess, wantAmount: 5000},
		{name: "overpaid is success", nativeStatus: "OVERPAID", amountPaid: "60", wantStatus: gateway.StatusSuccess, wantAmount: 6000},
		{name: "pending", nativeStatus: "PENDING", amountPaid: "0", wantStatus: gateway.StatusPending, wantAmount: 0},
		{name: "expired is failed", nativeStatus: "EXPIRED", amountPaid: "0", wantStatus: gateway.StatusFailed, wantAmount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/api/v1/auth/login" {
					loginResponse(w, 3600)
					return
				}
				assert.Equal(t, "dep-2", r.URL.Query().Get("paymentReference"))
				json.NewEncoder(w).Encode(map[string]interface{}{
					"requestSuccessful": true,
					"responseBody": map[string]interface{}{
						"paymentStatus":    tt.nativeStatus,
						"paymentReference": "dep-2",
						"amountPaid":       json.Number(tt.amountPaid),
						"paidOn":           "01/03/2024 10:00:00 AM",
					},
				})
			}))
			defer srv.Close()

			client := New(Config{APIKey: "k", SecretKey: "s", BaseURL: srv.URL})
			res, err := client.VerifyTransaction(context.Background(), "dep-2")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantAmount, res.Amount, "major naira must convert to kobo exactly once")
		})
	}
}

func TestReserveAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/login" {
			loginResponse(w, 3600)
			return
		}
		assert.Equal(t, "/api/v2/bank-transfer/reserved-accounts", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"requestSuccessful": true,
			"responseBody": map[string]interface{}{
				"accounts": []map[string]string{
					{"bankName": "Wema Bank", "accountNumber": "9901234567", "accountName": "KUDI-ADA OBI"},
					{"bankName": "Moniepoint", "accountNumber": "8801234567", "accountName": "KUDI-ADA OBI"},
				},
			},
		})
	}))
	defer srv.Close()

	client := New(Config{APIKey: "k", SecretKey: "s", ContractCode: "100", BaseURL: srv.URL})
	accounts, err := client.ReserveAccount(context.Background(), gateway.ReserveAccountRequest{
		UserID: 7, Email: "ada@example.com", FirstName: "Ada", LastName: "Obi", Reference: "va-7",
	})
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "9901234567", accounts[0].AccountNumber)
	assert.Equal(t, "Wema Bank", accounts[0].BankName)
}

func TestRequestFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	srv.Close() // closed server: connection refused

	client := New(Config{APIKey: "k", SecretKey: "s", BaseURL: srv.URL})
	_, err := client.ListBanks(context.Background())
	assert.True(t, errors.Is(err, gateway.ErrUnavailable))
}

func TestParseWebhook(t *testing.T) {
	client := New(Config{APIKey: "k", SecretKey: "s"})

	t.Run("reserved account transfer", func(t *testing.T) {
		body := []byte(`{
			"eventType": "SUCCESSFUL_TRANSACTION",
			"eventData": {
				"paymentReference": "vt-100",
				"amountPaid": "20.00",
				"product": {"type": "RESERVED_ACCOUNT"},
				"destinationAccountInformation": {"accountNumber": "9901234567", "bankName": "Wema Bank"},
				"customer": {"name": "ADA OBI"}
			}
		}`)
		event, err := client.ParseWebhook(body)
		require.NoError(t, err)
		assert.Equal(t, gateway.EventTransfer, event.Kind)
		assert.Equal(t, "vt-100", event.Reference)
		assert.Equal(t, int64(2000), event.Amount)
		assert.Equal(t, "9901234567", event.AccountNumber)
	})

	t.Run("checkout charge", func(t *testing.T) {
		body := []byte(`{
			"eventType": "SUCCESSFUL_TRANSACTION",
			"eventData": {
				"paymentReference": "dep-3",
				"amountPaid": "150.50",
				"product": {"type": "WEB_SDK"}
			}
		}`)
		event, err := client.ParseWebhook(body)
		require.NoError(t, err)
		assert.Equal(t, gateway.EventCharge, event.Kind)
		assert.Equal(t, int64(15050), event.Amount)
	})

	t.Run("other event ignored", func(t *testing.T) {
		event, err := client.ParseWebhook([]byte(`{"eventType":"SETTLEMENT_COMPLETION","eventData":{}}`))
		require.NoError(t, err)
		assert.Equal(t, gateway.EventIgnored, event.Kind)
	})
}
