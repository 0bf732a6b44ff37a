// Package routes wires repositories, services and gateway adapters
// together and registers every HTTP route.
package routes

import (
	"time"

	"kudi/internal/billing"
	"kudi/internal/config"
	"kudi/internal/gateway"
	"kudi/internal/gateway/monnify"
	"kudi/internal/gateway/paystack"
	"kudi/internal/handlers"
	"kudi/internal/middleware"
	"kudi/internal/repositories"
	"kudi/internal/services/payment"
	"kudi/internal/services/reconciler"
	"kudi/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Gateway ids used in routes, adapter registry and signature registry.
const (
	GatewayPaystack = "paystack"
	GatewayMonnify  = "monnify"
)

// SetupRoutes builds the full dependency graph and registers all routes.
func SetupRoutes(app *fiber.App) {
	walletRepo := repositories.NewWalletRepository(repositories.DB)
	accountRepo := repositories.NewVirtualAccountRepository(repositories.DB)

	walletService := wallet.NewService(walletRepo, repositories.CacheService, wallet.Config{})
	reconcilerService := reconciler.NewService(accountRepo, walletService, reconciler.RetryPolicy{
		MaxAttempts: config.GetIntEnv("RECONCILER_MAX_ATTEMPTS", 4),
		Delay:       config.GetDurationEnv("RECONCILER_RETRY_DELAY", time.Second),
	})

	adapters, verifier := buildGateways()

	billProvider := billing.NewClient(billing.Config{
		APIKey:  config.GetEnv("BILLS_API_KEY", ""),
		BaseURL: config.GetEnv("BILLS_BASE_URL", "https://api.bills.example"),
	})

	paymentService := payment.NewService(
		adapters,
		verifier,
		walletService,
		reconcilerService,
		accountRepo,
		billProvider,
		payment.Config{VerifyRetries: config.GetIntEnv("VERIFY_RETRIES", payment.DefaultVerifyRetries)},
	)

	walletHandler := handlers.NewWalletHandler(walletService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	webhookHandler := handlers.NewWebhookHandler(paymentService, verifier)

	app.Get("/health", handlers.HealthCheck)

	// Webhooks are public; authenticity is the HMAC over the raw body.
	// The limiter absorbs floods without dropping legitimate redeliveries
	// outright.
	app.Post("/webhooks/:gateway", limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}), webhookHandler.Handle)

	api := app.Group("/api")
	authMiddleware := middleware.NewAuthMiddleware()
	protected := api.Use(authMiddleware.Handler)

	walletGroup := protected.Group("/wallet")
	walletGroup.Get("/", walletHandler.GetWallet)
	walletGroup.Get("/balance", walletHandler.GetBalance)
	walletGroup.Get("/transactions", walletHandler.GetTransactionHistory)

	payments := protected.Group("/payments")
	payments.Post("/initialize", paymentHandler.InitializeDeposit)
	payments.Get("/verify/:gateway/:reference", paymentHandler.VerifyDeposit)
	payments.Post("/virtual-account", paymentHandler.CreateVirtualAccount)
	payments.Get("/virtual-account", paymentHandler.ListVirtualAccounts)
	payments.Get("/banks/:gateway", paymentHandler.ListBanks)
	payments.Post("/bills", paymentHandler.PayBill)

	admin := protected.Group("/admin", middleware.RequireAdmin)
	admin.Get("/wallets/:userID/integrity", walletHandler.VerifyIntegrity)
	admin.Put("/wallets/:userID/status", walletHandler.SetWalletStatus)
}

// buildGateways constructs the adapter registry and the matching webhook
// signature registry from the environment.
func buildGateways() (map[string]gateway.Adapter, *gateway.SignatureVerifier) {
	paystackSecret := config.GetEnv("PAYSTACK_SECRET_KEY", "")
	monnifySecret := config.GetEnv("MONNIFY_SECRET_KEY", "")

	adapters := map[string]gateway.Adapter{
		GatewayPaystack: paystack.New(paystack.Config{
			SecretKey: paystackSecret,
			BaseURL:   config.GetEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		}),
		GatewayMonnify: monnify.New(monnify.Config{
			APIKey:       config.GetEnv("MONNIFY_API_KEY", ""),
			SecretKey:    monnifySecret,
			ContractCode: config.GetEnv("MONNIFY_CONTRACT_CODE", ""),
			BaseURL:      config.GetEnv("MONNIFY_BASE_URL", "https://api.monnify.com"),
		}),
	}

	verifier := gateway.NewSignatureVerifier()
	verifier.Register(GatewayPaystack, paystackSecret, paystack.SignatureHeader)
	verifier.Register(GatewayMonnify, monnifySecret, monnify.SignatureHeader)

	return adapters, verifier
}
