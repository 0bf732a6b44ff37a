package handlers

import (
	"kudi/internal/services/payment"
	"kudi/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type PaymentHandler struct {
	paymentService payment.Service
}

func NewPaymentHandler(paymentService payment.Service) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

func (h *PaymentHandler) InitializeDeposit(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var req payment.DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	req.UserID = claims.UserID
	if req.Email == "" {
		req.Email = claims.Email
	}

	session, err := h.paymentService.InitializeDeposit(c.Context(), req)
	if err != nil {
		return utils.DomainError(c, err)
	}

	return utils.Success(c, session)
}

func (h *PaymentHandler) VerifyDeposit(c *fiber.Ctx) error {
	if _, err := extractUserClaims(c); err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	gatewayID := c.Params("gateway")
	reference := c.Params("reference")

	outcome, err := h.paymentService.VerifyDeposit(c.Context(), gatewayID, reference)
	if err != nil {
		return utils.DomainError(c, err)
	}

	return utils.Success(c, outcome)
}

func (h *PaymentHandler) CreateVirtualAccount(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var req payment.VirtualAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	req.UserID = claims.UserID
	if req.Email == "" {
		req.Email = claims.Email
	}

	accounts, err := h.paymentService.CreateVirtualAccount(c.Context(), req)
	if err != nil {
		return utils.DomainError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"accounts": accounts,
	})
}

func (h *PaymentHandler) ListVirtualAccounts(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	accounts, err := h.paymentService.ListVirtualAccounts(c.Context(), claims.UserID)
	if err != nil {
		return utils.DomainError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"accounts": accounts,
	})
}

func (h *PaymentHandler) ListBanks(c *fiber.Ctx) error {
	banks, err := h.paymentService.ListBanks(c.Context(), c.Params("gateway"))
	if err != nil {
		return utils.DomainError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"banks": banks,
	})
}

func (h *PaymentHandler) PayBill(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var req payment.BillPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	req.UserID = claims.UserID

	result, err := h.paymentService.PayBill(c.Context(), req)
	if err != nil {
		return utils.DomainError(c, err)
	}

	return utils.Success(c, result)
}
