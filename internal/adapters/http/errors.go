package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/tapmap/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // schema_violation, invalid_bounds, not_found, storage_unavailable, ...
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errorCode maps a service error onto an HTTP status and error code.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrSchemaViolation):
		return fiber.StatusBadRequest, "schema_violation"
	case errors.Is(err, domain.ErrInvalidBounds):
		return fiber.StatusBadRequest, "invalid_bounds"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrStorageUnavailable):
		return fiber.StatusServiceUnavailable, "storage_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "timeout"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}

// respondError is the single place where service errors become responses.
// Storage and internal failures are logged; their details are not exposed.
func respondError(c *fiber.Ctx, err error) error {
	status, code := errorCode(err)
	msg := err.Error()
	if status >= fiber.StatusInternalServerError {
		LoggerFromCtx(c.UserContext()).Error("request failed",
			"path", c.Path(), "code", code, "error", err)
		msg = code
	}
	return newError(c, status, code, msg)
}
