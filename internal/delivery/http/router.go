package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/urbansound/noisemap/internal/domain"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, handler *Handler) {
	// Health check
	app.Get("/health", handler.HealthCheck)

	// Upload + classification (proxies to the Python classifier)
	app.Post("/upload", handler.Upload)
	app.Get("/static/uploads/:filename", handler.GetUpload)

	api := app.Group("/api")
	{
		api.Get("/noise-data", handler.GetNoiseData)
		api.Post("/noise-data", handler.PostNoiseData)
		api.Post("/classify", handler.Upload)
		api.Get("/stats", handler.GetStats)
	}
}

// ErrorHandler renders fiber errors as {"error": true, "message": ...}.
// Oversized uploads keep the upload response shape.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if code == fiber.StatusRequestEntityTooLarge && isUploadPath(c.Path()) {
		return c.Status(code).JSON(domain.ClassificationResult{
			Success: false,
			Error:   "File too large",
		})
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

func isUploadPath(path string) bool {
	return path == "/upload" || path == "/api/classify"
}
