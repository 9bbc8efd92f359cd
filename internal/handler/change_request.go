package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mscandco/distribution-api/internal/model"
	"github.com/mscandco/distribution-api/internal/service"
	"github.com/mscandco/distribution-api/pkg/response"
)

type ChangeRequestHandler struct {
	service   *service.ChangeRequestService
	validator *validator.Validate
}

func NewChangeRequestHandler(svc *service.ChangeRequestService, v *validator.Validate) *ChangeRequestHandler {
	return &ChangeRequestHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/releases/:id/change-requests
func (h *ChangeRequestHandler) Create(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var req model.CreateChangeRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	cr, err := h.service.Create(c.UserContext(), a, c.Params("id"), &req)
	if err != nil {
		return respondError(c, err)
	}
	return response.Created(c, cr)
}

// List handles GET /api/releases/:id/change-requests?status=
func (h *ChangeRequestHandler) List(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}

	requests, err := h.service.List(c.UserContext(), a, c.Params("id"), c.Query("status"))
	if err != nil {
		return respondError(c, err)
	}
	return response.OK(c, model.ChangeRequestListResponse{ChangeRequests: requests})
}

// Get handles GET /api/releases/:id/change-requests/:requestId
func (h *ChangeRequestHandler) Get(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}

	cr, err := h.service.Get(c.UserContext(), a, c.Params("id"), c.Params("requestId"))
	if err != nil {
		return respondError(c, err)
	}
	return response.OK(c, cr)
}

// Approve handles POST /api/releases/:id/change-requests/:requestId/approve.
// The body is optional.
func (h *ChangeRequestHandler) Approve(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var req model.ReviewChangeRequest
	if len(c.Body()) > 0 {
		if ok, err := parseBody(c, h.validator, &req); !ok {
			return err
		}
	}

	cr, err := h.service.Approve(c.UserContext(), a, c.Params("id"), c.Params("requestId"), req.Notes, req.ExpectedVersion)
	if err != nil {
		return respondError(c, err)
	}
	return response.OK(c, cr)
}

// Reject handles POST /api/releases/:id/change-requests/:requestId/reject
func (h *ChangeRequestHandler) Reject(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var req model.ReviewChangeRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	cr, err := h.service.Reject(c.UserContext(), a, c.Params("id"), c.Params("requestId"), req.Notes, req.ExpectedVersion)
	if err != nil {
		return respondError(c, err)
	}
	return response.OK(c, cr)
}
