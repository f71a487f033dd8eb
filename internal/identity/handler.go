package identity

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// ProvisionWalletFunc creates the new account's wallet and returns its id.
type ProvisionWalletFunc func(ctx context.Context, ownerID string) (string, error)

// Handler exposes identity endpoints.
type Handler struct {
	service   *Service
	provision ProvisionWalletFunc
	logger    *slog.Logger
}

// NewHandler constructs an identity HTTP handler. provision may be nil, in
// which case registration skips wallet provisioning.
func NewHandler(service *Service, provision ProvisionWalletFunc, logger *slog.Logger) *Handler {
	return &Handler{service: service, provision: provision, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register handles account onboarding and auto-provisions a wallet.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Register(c.UserContext(), Credentials{Email: req.Email, Password: req.Password, Role: req.Role})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	var walletID string
	if h.provision != nil {
		if id, err := h.provision(c.UserContext(), user.ID); err == nil {
			walletID = id
		}
	}
	if h.logger != nil {
		h.logger.Info("identity.register completed",
			slog.String("user_id", user.ID),
			slog.String("email", user.Email),
			slog.String("role", user.Role),
			slog.String("wallet_id", walletID),
			slog.Int("status", http.StatusCreated),
		)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"user_id":   user.ID,
		"email":     user.Email,
		"role":      user.Role,
		"wallet_id": walletID,
	})
}
