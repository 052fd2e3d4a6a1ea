package response

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

const genericMessage = "Internal Server Error"

// Logger is the logger used by the error handler
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config configures ErrorHandler and NotFound
type Config struct {
	Logger Logger
	// Production hides internal details from error bodies
	Production bool
	// UserID returns the id of the request user, "anonymous" when unset
	UserID func(c *fiber.Ctx) string
}

func (cfg Config) userID(c *fiber.Ctx) string {
	if cfg.UserID == nil {
		return "anonymous"
	}
	if id := cfg.UserID(c); id != "" {
		return id
	}
	return "anonymous"
}

// ErrorHandler logs err with the request context and renders it in the
// error envelope.
func ErrorHandler(cfg Config) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, body, richErr := Resolve(err, cfg.Production)

		args := []any{
			"message", err.Error(),
			"status", status,
			"code", body.Code,
			"user_id", cfg.userID(c),
			"ip", c.IP(),
			"method", c.Method(),
			"path", c.OriginalURL(),
			"user_agent", c.Get(fiber.HeaderUserAgent),
		}
		if richErr != nil && len(richErr.Metadata) > 0 {
			args = append(args, "details", print.MaybePrettyJSON(richErr.Metadata))
		}

		if cfg.Logger != nil {
			if status >= fiber.StatusInternalServerError {
				cfg.Logger.Error("request failed", args...)
			} else {
				cfg.Logger.Warn("request rejected", args...)
			}
		}

		return c.Status(status).JSON(Envelope{
			Success: false,
			Error:   &body,
		})
	}
}

// NotFound answers unmatched routes
func NotFound(cfg Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.Logger != nil {
			cfg.Logger.Warn("404 Not Found", "method", c.Method(), "path", c.OriginalURL())
		}
		return c.Status(fiber.StatusNotFound).JSON(Envelope{
			Success: false,
			Error: &ErrorBody{
				Message: "Not Found",
				Code:    "NOT_FOUND",
				Status:  fiber.StatusNotFound,
			},
		})
	}
}

// Resolve maps err to a status and error body. Server errors without an
// explicit text code get a generic message, details are only attached
// outside production.
func Resolve(err error, production bool) (int, ErrorBody, *goerrors.Error) {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		status := richErr.Code
		if status == 0 {
			status = statusFromCategory(richErr)
		}

		body := ErrorBody{
			Message: richErr.Message,
			Code:    richErr.TextCode,
			Status:  status,
		}
		if body.Code == "" {
			body.Code = codeFromCategory(richErr)
		}

		if status >= fiber.StatusInternalServerError && richErr.TextCode == "" {
			body.Message = genericMessage
		}

		if status < fiber.StatusInternalServerError {
			if fields, ok := richErr.Metadata["fields"]; ok {
				body.Details = map[string]any{"fields": fields}
			}
		}

		if !production {
			body.Details = mergeDetails(body.Details, debugDetails(err, richErr))
		}

		return status, body, richErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		body := ErrorBody{
			Message: fiberErr.Message,
			Code:    codeFromStatus(fiberErr.Code),
			Status:  fiberErr.Code,
		}
		return fiberErr.Code, body, nil
	}

	body := ErrorBody{
		Message: genericMessage,
		Code:    "INTERNAL_ERROR",
		Status:  fiber.StatusInternalServerError,
	}
	if !production {
		body.Details = map[string]any{"original_error": err.Error()}
	}

	return fiber.StatusInternalServerError, body, nil
}

func debugDetails(err error, richErr *goerrors.Error) map[string]any {
	details := map[string]any{
		"original_error": err.Error(),
	}
	if richErr.Source != nil {
		details["source"] = richErr.Source.Error()
	}
	if len(richErr.Metadata) > 0 {
		details["metadata"] = richErr.Metadata
	}
	return details
}

func mergeDetails(current any, extra map[string]any) any {
	base, ok := current.(map[string]any)
	if !ok || base == nil {
		return extra
	}
	for k, v := range extra {
		base[k] = v
	}
	return base
}

func statusFromCategory(richErr *goerrors.Error) int {
	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return fiber.StatusBadRequest
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	case goerrors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

func codeFromCategory(richErr *goerrors.Error) string {
	code := strings.ToUpper(fmt.Sprint(richErr.Category))
	if code == "" {
		return "INTERNAL_ERROR"
	}
	return strings.ReplaceAll(code, " ", "_")
}

func codeFromStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusConflict:
		return "CONFLICT"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusUnprocessableEntity:
		return "UNPROCESSABLE_ENTITY"
	case fiber.StatusTooManyRequests:
		return "RATE_LIMITED"
	}
	if status >= fiber.StatusInternalServerError {
		return "INTERNAL_ERROR"
	}
	return "ERROR"
}
