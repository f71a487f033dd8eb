package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lancepay/lance_pay/internal/wallet"
)

// RegisterWalletRoutes wires wallet endpoints for the current user.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallet", h.Me)
	r.Get("/wallet/statement", h.Statement)
	r.Post("/wallet/recharge", h.Recharge)
	r.Post("/wallet/withdraw", h.Withdraw)
}
