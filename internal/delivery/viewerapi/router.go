package viewerapi

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures the viewer routes
func SetupRoutes(app *fiber.App, handler *Handler) {
	app.Post("/upload", handler.Upload)

	api := app.Group("/api")
	{
		api.Get("/scene", handler.GetScene)
		api.Post("/reload", handler.Reload)

		api.Post("/map/click", handler.Click)
		api.Post("/map/viewport", handler.SetViewport)
		api.Post("/map/recenter", handler.Recenter)
		api.Post("/heat/toggle", handler.ToggleHeat)

		api.Post("/markers/:index/select", handler.SelectMarker)
		api.Get("/panel", handler.GetPanel)

		api.Get("/alerts", handler.GetAlerts)
		api.Get("/player", handler.GetPlayer)
	}
}
