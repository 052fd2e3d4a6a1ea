package mailer

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-auth-boilerplate"
	"github.com/goliatone/go-auth-boilerplate/middleware/response"
)

const (
	TextCodeMissingFields = "MISSING_FIELDS"
	TextCodeSendFailed    = "EMAIL_SEND_FAILED"
)

// ErrMissingFields is returned when to, subject or html is empty
var ErrMissingFields = goerrors.New("Missing fields", goerrors.CategoryValidation).
	WithTextCode(TextCodeMissingFields).
	WithCode(goerrors.CodeBadRequest)

// ErrSendFailed is returned when the provider rejects a message
var ErrSendFailed = goerrors.New("Failed to send email", goerrors.CategoryOperation).
	WithTextCode(TextCodeSendFailed).
	WithCode(goerrors.CodeInternal)

// SendEmailPayload is the POST /email body
type SendEmailPayload struct {
	To      string `json:"to" form:"to"`
	Subject string `json:"subject" form:"subject"`
	HTML    string `json:"html" form:"html"`
}

// Validate requires every field and a valid recipient address
func (p SendEmailPayload) Validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.To, validation.Required, is.Email),
		validation.Field(&p.Subject, validation.Required),
		validation.Field(&p.HTML, validation.Required),
	)
	if err == nil {
		return nil
	}

	fields := map[string]string{}
	if errs, ok := err.(validation.Errors); ok {
		for k, v := range errs {
			fields[k] = v.Error()
		}
	}

	return ErrMissingFields.Clone().WithMetadata(map[string]any{"fields": fields})
}

// HTTPController serves POST /email
type HTTPController struct {
	sender Sender
}

// NewHTTPController creates the controller
func NewHTTPController(sender Sender) *HTTPController {
	return &HTTPController{sender: sender}
}

// RegisterRoutes mounts POST /email behind an authenticated session
func (h *HTTPController) RegisterRoutes(router fiber.Router) {
	router.Post("/email", auth.RequireUser(), h.Create).Name("email.create")
}

// Create sends the message in the request body
func (h *HTTPController) Create(c *fiber.Ctx) error {
	var payload SendEmailPayload
	if err := c.BodyParser(&payload); err != nil {
		return ErrMissingFields
	}

	payload.To = strings.TrimSpace(payload.To)
	payload.Subject = strings.TrimSpace(payload.Subject)

	if err := payload.Validate(); err != nil {
		return err
	}

	err := h.sender.Send(c.UserContext(), Message{
		To:      payload.To,
		Subject: payload.Subject,
		HTML:    payload.HTML,
	})
	if err != nil {
		clone := ErrSendFailed.Clone()
		clone.Source = err
		return clone
	}

	return response.OK(c, response.Message{Message: "Email sent"})
}
