package escrow

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/lancepay/lance_pay/internal/ledger"
	"github.com/lancepay/lance_pay/internal/project"
)

// Handler exposes escrow endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an escrow handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type payoutResponse struct {
	WorkerID   string `json:"worker_id"`
	Net        string `json:"net"`
	Commission string `json:"commission"`
}

type releaseResponse struct {
	Balance     string           `json:"balance"`
	HeldBalance string           `json:"held_balance"`
	Payouts     []payoutResponse `json:"payouts"`
	Commission  string           `json:"commission"`
	CompletedAt time.Time        `json:"completed_at"`
}

// Deposit funds the project's escrow from the authenticated client's wallet.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	input, err := parseAmountInput(c)
	if err != nil {
		return err
	}
	w, err := h.service.Deposit(c.UserContext(), input)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"balance":      w.Balance.String(),
		"held_balance": w.HeldBalance.String(),
	})
}

// Release settles escrowed funds across the project's accepted workers.
func (h *Handler) Release(c *fiber.Ctx) error {
	input, err := parseAmountInput(c)
	if err != nil {
		return err
	}
	outcome, err := h.service.Release(c.UserContext(), ReleaseInput{
		ClientID:  input.ClientID,
		ProjectID: input.ProjectID,
		Amount:    input.Amount,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toReleaseResponse(outcome))
}

// Pay chains a deposit and a release of the same amount.
func (h *Handler) Pay(c *fiber.Ctx) error {
	input, err := parseAmountInput(c)
	if err != nil {
		return err
	}
	outcome, err := h.service.ProcessProjectPayment(c.UserContext(), input)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toReleaseResponse(outcome.Release))
}

func parseAmountInput(c *fiber.Ctx) (DepositInput, error) {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return DepositInput{}, fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return DepositInput{}, fiber.NewError(http.StatusBadRequest, "invalid amount")
	}
	uid, _ := c.Locals("user_id").(string)
	return DepositInput{
		ClientID:  uid,
		ProjectID: c.Params("projectId"),
		Amount:    amount,
	}, nil
}

func toReleaseResponse(outcome ReleaseOutcome) releaseResponse {
	payouts := make([]payoutResponse, 0, len(outcome.Payouts))
	for _, p := range outcome.Payouts {
		payouts = append(payouts, payoutResponse{
			WorkerID:   p.WorkerID,
			Net:        p.Net.String(),
			Commission: p.Commission.String(),
		})
	}
	return releaseResponse{
		Balance:     outcome.Payer.Balance.String(),
		HeldBalance: outcome.Payer.HeldBalance.String(),
		Payouts:     payouts,
		Commission:  outcome.Commission.String(),
		CompletedAt: outcome.CompletedAt,
	}
}

func mapError(err error) error {
	var insufficientFunds *ledger.InsufficientFundsError
	var insufficientEscrow *ledger.InsufficientEscrowError
	var noRecipients *NoEligibleRecipientsError
	switch {
	case errors.As(err, &insufficientFunds):
		return fiber.NewError(http.StatusBadRequest, insufficientFunds.Error())
	case errors.As(err, &insufficientEscrow):
		return fiber.NewError(http.StatusBadRequest, insufficientEscrow.Error())
	case errors.As(err, &noRecipients):
		return fiber.NewError(http.StatusConflict, noRecipients.Error())
	case errors.Is(err, project.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "project not found")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
