package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/mscandco/distribution-api/internal/apperr"
	"github.com/mscandco/distribution-api/pkg/response"
)

// respondError maps a service error onto the HTTP error envelope.
func respondError(c *fiber.Ctx, err error) error {
	e, ok := apperr.As(err)
	if !ok {
		log.Printf("Error: %s %s: %v", c.Method(), c.Path(), err)
		return response.ServiceError(c, "Internal error")
	}

	switch {
	case errors.Is(err, apperr.ErrInvalidRequest):
		return response.ValidationError(c, e.Message, nil)
	case errors.Is(err, apperr.ErrIncompleteSubmission):
		return response.Unprocessable(c, response.CodeIncompleteSubmission, e.Message, fiber.Map{
			"violations": e.Violations,
		})
	case errors.Is(err, apperr.ErrForbidden):
		return response.Forbidden(c, e.Message)
	case errors.Is(err, apperr.ErrNotFound):
		return response.NotFound(c, e.Message)
	case errors.Is(err, apperr.ErrInvalidTransition):
		return response.Conflict(c, response.CodeInvalidTransition, e.Message, fiber.Map{
			"from": e.From,
			"to":   e.To,
		})
	case errors.Is(err, apperr.ErrAmendmentInProgress):
		return response.Conflict(c, response.CodeAmendmentInProgress, e.Message, nil)
	case errors.Is(err, apperr.ErrNoAmendmentPending):
		return response.Conflict(c, response.CodeNoAmendmentPending, e.Message, nil)
	case errors.Is(err, apperr.ErrConcurrentModification):
		return response.Conflict(c, response.CodeConcurrentModification, e.Message, nil)
	}

	log.Printf("Error: %s %s: %v", c.Method(), c.Path(), err)
	return response.ServiceError(c, "Internal error")
}
