package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lancepay/lance_pay/internal/identity"
	"github.com/lancepay/lance_pay/internal/middleware"
	"github.com/lancepay/lance_pay/internal/project"
)

// RegisterProjectRoutes wires project lifecycle endpoints.
func RegisterProjectRoutes(r fiber.Router, h *project.Handler) {
	clientOnly := middleware.RequireRole(identity.RoleClient)
	workerOnly := middleware.RequireRole(identity.RoleWorker)

	r.Post("/projects", clientOnly, h.Create)
	r.Post("/projects/:projectId/applications", workerOnly, h.Apply)
	r.Post("/projects/:projectId/workers/:workerId/accept", clientOnly, h.Accept)
}
