package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lancepay/lance_pay/internal/identity"
)

// RegisterIdentityRoutes wires identity endpoints.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	r.Post("/identity/register", h.Register)
}
