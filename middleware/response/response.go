// Package response renders every API reply in the same envelope.
//
// Successful replies look like {"success":true,"data":...}. Errors are
// converted by ErrorHandler into
// {"success":false,"error":{"message","code","status","details"}}.
package response

import (
	"github.com/gofiber/fiber/v2"
)

// Envelope wraps all JSON bodies
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Status  int    `json:"status,omitempty"`
	Details any    `json:"details,omitempty"`
}

// JSON writes data with status wrapped in a success envelope
func JSON(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(Envelope{
		Success: true,
		Data:    data,
	})
}

// OK writes a 200 success envelope
func OK(c *fiber.Ctx, data any) error {
	return JSON(c, fiber.StatusOK, data)
}

// Created writes a 201 success envelope
func Created(c *fiber.Ctx, data any) error {
	return JSON(c, fiber.StatusCreated, data)
}

// Message is the body used by endpoints that only confirm an action
type Message struct {
	Message string `json:"message"`
}
