package handlers

import (
	"strconv"

	"kudi/internal/models"
	"kudi/internal/services/wallet"
	"kudi/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// extractUserClaims is a helper function to reduce duplication
func extractUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	w, err := h.walletService.GetOrCreateWallet(c.Context(), claims.UserID)
	if err != nil {
		return utils.DomainError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"wallet": w,
	})
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	balance, err := h.walletService.GetBalance(c.Context(), claims.UserID)
	if err != nil {
		return utils.DomainError(c, err)
	}

	return utils.Success(c, balance)
}

func (h *WalletHandler) GetTransactionHistory(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	limit := c.QueryInt("limit", wallet.DefaultHistoryPageSize)
	offset := c.QueryInt("offset", 0)

	transactions, err := h.walletService.GetTransactionHistory(c.Context(), claims.UserID, limit, offset)
	if err != nil {
		return utils.DomainError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"transactions": transactions,
		"limit":        limit,
		"offset":       offset,
	})
}

// VerifyIntegrity is the admin audit endpoint: it recomputes a user's
// balance from the transaction log and reports any divergence.
func (h *WalletHandler) VerifyIntegrity(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Params("userID"), 10, 32)
	if err != nil {
		return utils.BadRequest(c, "invalid user id")
	}

	report, err := h.walletService.VerifyIntegrity(c.Context(), uint(userID))
	if err != nil {
		return utils.DomainError(c, err)
	}

	return utils.Success(c, report)
}

// SetWalletStatus suspends or reactivates a wallet. Admin only.
func (h *WalletHandler) SetWalletStatus(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Params("userID"), 10, 32)
	if err != nil {
		return utils.BadRequest(c, "invalid user id")
	}

	var input struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	if err := h.walletService.SetStatus(c.Context(), uint(userID), input.Status, input.Reason); err != nil {
		return utils.DomainError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"message": "wallet status updated",
		"status":  input.Status,
	})
}
