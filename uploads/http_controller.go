package uploads

import (
	"context"

	"github.com/gofiber/fiber/v2"

	auth "github.com/goliatone/go-auth-boilerplate"
	"github.com/goliatone/go-auth-boilerplate/middleware/response"
)

// Uploader stores a file for a user
type Uploader interface {
	Upload(ctx context.Context, in Upload) (*Result, error)
}

// HTTPController serves POST /file
type HTTPController struct {
	uploader  Uploader
	fieldName string
}

// NewHTTPController creates the controller
func NewHTTPController(uploader Uploader) *HTTPController {
	return &HTTPController{uploader: uploader, fieldName: "file"}
}

// RegisterRoutes mounts POST /file behind an authenticated session
func (h *HTTPController) RegisterRoutes(router fiber.Router) {
	router.Post("/file", auth.RequireUser(), h.Create).Name("file.create")
}

// Create uploads the multipart "file" part
func (h *HTTPController) Create(c *fiber.Ctx) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return auth.ErrUnauthorized
	}

	header, err := c.FormFile(h.fieldName)
	if err != nil || header == nil {
		return ErrNoFile
	}

	file, err := header.Open()
	if err != nil {
		return ErrNoFile
	}
	defer file.Close()

	result, err := h.uploader.Upload(c.UserContext(), Upload{
		UserID:      user.ID.String(),
		Body:        file,
		Size:        header.Size,
		ContentType: header.Header.Get(fiber.HeaderContentType),
	})
	if err != nil {
		return err
	}

	return response.OK(c, result)
}
