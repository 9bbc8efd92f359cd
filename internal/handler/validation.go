package handler

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mscandco/distribution-api/internal/middleware"
	"github.com/mscandco/distribution-api/internal/model"
	"github.com/mscandco/distribution-api/pkg/response"
)

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}

// parseBody decodes and validates the request body into req. It writes the
// 400 response itself and reports false when the body is unusable.
func parseBody(c *fiber.Ctx, v *validator.Validate, req interface{}) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		return false, response.ValidationError(c, "Invalid request body", nil)
	}
	if err := v.Struct(req); err != nil {
		return false, response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}
	return true, nil
}

// actor returns the authenticated caller or writes a 401.
func actor(c *fiber.Ctx) (model.Actor, bool, error) {
	a, ok := middleware.ActorFromContext(c)
	if !ok {
		return model.Actor{}, false, response.Unauthorized(c, "User not authenticated")
	}
	return a, true, nil
}
