package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mscandco/distribution-api/internal/model"
	"github.com/mscandco/distribution-api/internal/service"
	"github.com/mscandco/distribution-api/pkg/response"
)

type ReportHandler struct {
	service   *service.ReportService
	validator *validator.Validate
}

func NewReportHandler(svc *service.ReportService, v *validator.Validate) *ReportHandler {
	return &ReportHandler{
		service:   svc,
		validator: v,
	}
}

// Submit handles POST /api/reports
func (h *ReportHandler) Submit(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var req model.SubmitReportRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	report, err := h.service.Submit(c.UserContext(), a, &req)
	if err != nil {
		return respondError(c, err)
	}
	return response.Created(c, report)
}

// List handles GET /api/reports?status=
func (h *ReportHandler) List(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}

	reports, err := h.service.List(c.UserContext(), a, c.Query("status"))
	if err != nil {
		return respondError(c, err)
	}
	return response.OK(c, model.ReportListResponse{Reports: reports})
}

// Get handles GET /api/reports/:id
func (h *ReportHandler) Get(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}

	report, err := h.service.Get(c.UserContext(), a, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return response.OK(c, report)
}

// Approve handles POST /api/reports/:id/approve. The body is optional.
func (h *ReportHandler) Approve(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var req model.ApproveReportRequest
	if len(c.Body()) > 0 {
		if ok, err := parseBody(c, h.validator, &req); !ok {
			return err
		}
	}

	report, err := h.service.Approve(c.UserContext(), a, c.Params("id"), req.ExpectedVersion)
	if err != nil {
		return respondError(c, err)
	}
	return response.OK(c, report)
}

// Reject handles POST /api/reports/:id/reject
func (h *ReportHandler) Reject(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var req model.RejectReportRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	report, err := h.service.Reject(c.UserContext(), a, c.Params("id"), req.Reason, req.ExpectedVersion)
	if err != nil {
		return respondError(c, err)
	}
	return response.OK(c, report)
}
