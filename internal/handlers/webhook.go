package handlers

import (
	"errors"

	domain "kudi/internal/errors"
	"kudi/internal/gateway"
	"kudi/internal/services/payment"
	"kudi/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// WebhookHandler receives gateway webhook deliveries. It is unauthenticated
// at the HTTP layer; authenticity comes from the HMAC signature the payment
// service checks against the raw body.
type WebhookHandler struct {
	paymentService payment.Service
	verifier       *gateway.SignatureVerifier
}

func NewWebhookHandler(paymentService payment.Service, verifier *gateway.SignatureVerifier) *WebhookHandler {
	return &WebhookHandler{
		paymentService: paymentService,
		verifier:       verifier,
	}
}

// Handle processes POST /webhooks/:gateway. The body bytes are passed
// through untouched; parsing happens only after the signature checks out.
// Accepted outcomes return 200 even when nothing changed, so the gateway
// stops redelivering.
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	gatewayID := c.Params("gateway")
	signature := c.Get(h.verifier.Header(gatewayID))

	outcome, err := h.paymentService.HandleWebhook(c.Context(), gatewayID, signature, c.Body())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSignatureInvalid):
			return utils.Unauthorized(c, "invalid signature")
		case errors.Is(err, domain.ErrUnknownGateway), errors.Is(err, domain.ErrValidation):
			return utils.BadRequest(c, err.Error())
		default:
			// Includes unresolved virtual accounts. A 5xx tells the
			// gateway to redeliver later, which buys another retry window.
			return utils.InternalError(c, "webhook processing failed")
		}
	}

	return utils.Success(c, outcome)
}
