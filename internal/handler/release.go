package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mscandco/distribution-api/internal/model"
	"github.com/mscandco/distribution-api/internal/service"
	"github.com/mscandco/distribution-api/pkg/response"
)

type ReleaseHandler struct {
	service   *service.ReleaseService
	validator *validator.Validate
}

func NewReleaseHandler(svc *service.ReleaseService, v *validator.Validate) *ReleaseHandler {
	return &ReleaseHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/releases
func (h *ReleaseHandler) Create(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var req model.CreateReleaseRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	release, err := h.service.Create(c.UserContext(), a, &req)
	if err != nil {
		return respondError(c, err)
	}
	return response.Created(c, release)
}

// List handles GET /api/releases?status=
func (h *ReleaseHandler) List(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}

	releases, err := h.service.List(c.UserContext(), a, c.Query("status"))
	if err != nil {
		return respondError(c, err)
	}
	return response.OK(c, model.ReleaseListResponse{Releases: releases})
}

// Get handles GET /api/releases/:id
func (h *ReleaseHandler) Get(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}

	detail, err := h.service.Detail(c.UserContext(), a, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return response.OK(c, detail)
}

// Update handles PATCH /api/releases/:id
func (h *ReleaseHandler) Update(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var req model.UpdateReleaseRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	release, err := h.service.Update(c.UserContext(), a, c.Params("id"), &req)
	if err != nil {
		return respondError(c, err)
	}
	return response.OK(c, release)
}

// Transition handles POST /api/releases/:id/transition
func (h *ReleaseHandler) Transition(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var req model.TransitionRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	release, err := h.service.Transition(c.UserContext(), a, c.Params("id"), &req)
	if err != nil {
		return respondError(c, err)
	}
	return response.OK(c, release)
}

// ProposeAmendment handles POST /api/releases/:id/amendment
func (h *ReleaseHandler) ProposeAmendment(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var req model.ProposeAmendmentRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	release, err := h.service.ProposeAmendment(c.UserContext(), a, c.Params("id"), &req)
	if err != nil {
		return respondError(c, err)
	}
	return response.OK(c, release)
}

// GetAmendment handles GET /api/releases/:id/amendment
func (h *ReleaseHandler) GetAmendment(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}

	view, err := h.service.GetAmendment(c.UserContext(), a, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return response.OK(c, view)
}

// ResolveAmendment handles POST /api/releases/:id/amendment/resolve
func (h *ReleaseHandler) ResolveAmendment(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var req model.ResolveAmendmentRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	release, err := h.service.ResolveAmendment(c.UserContext(), a, c.Params("id"), &req)
	if err != nil {
		return respondError(c, err)
	}
	return response.OK(c, release)
}

// Manifest handles GET /api/releases/:id/manifest
func (h *ReleaseHandler) Manifest(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}

	url, err := h.service.ManifestURL(c.UserContext(), a, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return response.OK(c, fiber.Map{
		"url":       url,
		"expiresIn": int(service.ManifestURLExpiry.Seconds()),
	})
}
