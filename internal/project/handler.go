package project

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes project HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a project HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Title string `json:"title"`
}

// Create opens a project owned by the authenticated client.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	p, err := h.service.Create(c.UserContext(), CreateInput{ClientID: uid, Title: req.Title})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"id":        p.ID,
		"client_id": p.ClientID,
		"title":     p.Title,
		"status":    p.Status,
	})
}

// Apply records the authenticated worker's application.
func (h *Handler) Apply(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	uid, _ := c.Locals("user_id").(string)

	if err := h.service.Apply(c.UserContext(), projectID, uid); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "project not found")
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"status": "applied"})
}

// Accept moves a worker to accepted status on the client's project.
func (h *Handler) Accept(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	workerID := c.Params("workerId")
	uid, _ := c.Locals("user_id").(string)

	if err := h.service.Accept(c.UserContext(), projectID, workerID, uid); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "application not found")
		case errors.Is(err, ErrNotClient):
			return fiber.NewError(http.StatusForbidden, "not the project's client")
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "accepted"})
}
