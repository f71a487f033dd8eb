package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lancepay/lance_pay/internal/escrow"
	"github.com/lancepay/lance_pay/internal/identity"
	"github.com/lancepay/lance_pay/internal/middleware"
)

// RegisterEscrowRoutes wires escrow funding and settlement endpoints.
func RegisterEscrowRoutes(r fiber.Router, h *escrow.Handler) {
	clientOnly := middleware.RequireRole(identity.RoleClient)

	r.Post("/projects/:projectId/escrow/deposit", clientOnly, h.Deposit)
	r.Post("/projects/:projectId/escrow/release", clientOnly, h.Release)
	r.Post("/projects/:projectId/escrow/pay", clientOnly, h.Pay)
}
