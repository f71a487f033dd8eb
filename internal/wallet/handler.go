package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/lancepay/lance_pay/internal/ledger"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type walletResponse struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Balance     string `json:"balance"`
	HeldBalance string `json:"held_balance"`
	Currency    string `json:"currency"`
}

type entryResponse struct {
	ID            string `json:"id"`
	Amount        string `json:"amount"`
	Kind          string `json:"kind"`
	Description   string `json:"description"`
	ReferenceType string `json:"reference_type"`
	ReferenceID   string `json:"reference_id"`
	CreatedAt     string `json:"created_at"`
}

// Me returns the authenticated user's wallet, creating it on first access.
func (h *Handler) Me(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	w, err := h.service.Get(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toWalletResponse(w))
}

// Recharge tops up the authenticated user's spendable balance.
func (h *Handler) Recharge(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	amount, err := parseAmount(c)
	if err != nil {
		return err
	}
	res, err := h.service.Recharge(c.UserContext(), uid, amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"wallet":              toWalletResponse(res.Wallet),
		"processor_reference": res.ProcessorReference,
		"completed_at":        res.CompletedAt,
	})
}

// Withdraw moves spendable funds off the platform.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	amount, err := parseAmount(c)
	if err != nil {
		return err
	}
	res, err := h.service.Withdraw(c.UserContext(), uid, amount)
	if err != nil {
		var insufficient *ledger.InsufficientFundsError
		if errors.As(err, &insufficient) {
			return fiber.NewError(http.StatusBadRequest, insufficient.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"wallet":              toWalletResponse(res.Wallet),
		"processor_reference": res.ProcessorReference,
		"completed_at":        res.CompletedAt,
	})
}

// Statement lists the authenticated user's ledger entries.
func (h *Handler) Statement(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	w, entries, err := h.service.Statement(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:            e.ID,
			Amount:        e.Amount.String(),
			Kind:          string(e.Kind),
			Description:   e.Description,
			ReferenceType: e.Reference.Type,
			ReferenceID:   e.Reference.ID,
			CreatedAt:     e.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet":  toWalletResponse(w),
		"entries": out,
	})
}

func parseAmount(c *fiber.Ctx) (decimal.Decimal, error) {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return decimal.Zero, fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return decimal.Zero, fiber.NewError(http.StatusBadRequest, "invalid amount")
	}
	return amount, nil
}

func toWalletResponse(w ledger.Wallet) walletResponse {
	return walletResponse{
		ID:          w.ID,
		OwnerID:     w.OwnerID,
		Balance:     w.Balance.String(),
		HeldBalance: w.HeldBalance.String(),
		Currency:    w.Currency,
	}
}
