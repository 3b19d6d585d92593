// Package viewerapi exposes the presentation session over HTTP for the map shell
package viewerapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/urbansound/noisemap/internal/domain"
	"github.com/urbansound/noisemap/internal/mapview"
	"github.com/urbansound/noisemap/internal/viewer"
)

// Handler serves the scene and routes user interactions into the session
type Handler struct {
	session *viewer.Session
	alerts  *viewer.AlertLog
}

// NewHandler creates a new viewer handler
func NewHandler(session *viewer.Session, alerts *viewer.AlertLog) *Handler {
	return &Handler{session: session, alerts: alerts}
}

// GetScene returns the viewport and both layers
func (h *Handler) GetScene(c *fiber.Ctx) error {
	return c.JSON(h.session.Renderer.Scene())
}

// Click handles a map click at {lat, lng}
func (h *Handler) Click(c *fiber.Ctx) error {
	var p domain.LatLng
	if err := c.BodyParser(&p); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	selected, event := h.session.Click(p.Lat, p.Lng)
	resp := fiber.Map{
		"selected": selected,
		"event":    event,
	}
	if selected {
		if panel, ok := h.session.Panel.Last(); ok {
			resp["panel"] = panel
		}
	}
	return c.JSON(resp)
}

// SetViewport records a pan or zoom
func (h *Handler) SetViewport(c *fiber.Ctx) error {
	var v mapview.Viewport
	if err := c.BodyParser(&v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	h.session.Renderer.SetViewport(v)
	return c.JSON(h.session.Renderer.Viewport())
}

// Recenter resets the viewport to the default center
func (h *Handler) Recenter(c *fiber.Ctx) error {
	h.session.Renderer.Recenter()
	return c.JSON(h.session.Renderer.Viewport())
}

// ToggleHeat flips heat layer visibility
func (h *Handler) ToggleHeat(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"heat_visible": h.session.Renderer.ToggleHeat()})
}

// SelectMarker shows the event behind a marker in the info panel
func (h *Handler) SelectMarker(c *fiber.Ctx) error {
	idx, err := c.ParamsInt("index")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid marker index")
	}
	if _, ok := h.session.Renderer.SelectMarker(idx); !ok {
		return fiber.NewError(fiber.StatusNotFound, "Marker not found")
	}
	panel, _ := h.session.Panel.Last()
	return c.JSON(panel)
}

// GetPanel returns the last info panel content
func (h *Handler) GetPanel(c *fiber.Ctx) error {
	panel, ok := h.session.Panel.Last()
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(panel)
}

// Reload refetches events from the backend
func (h *Handler) Reload(c *fiber.Ctx) error {
	if err := h.session.Load(c.Context()); err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "Failed to load noise data")
	}
	return c.JSON(fiber.Map{"count": h.session.Store.Len()})
}

// Upload runs the upload flow for a multipart "file" field
func (h *Handler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		h.alerts.Alert("Please select an audio file")
		return c.Status(fiber.StatusBadRequest).JSON(viewer.UploadOutcome{Error: "Please select an audio file"})
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Could not read uploaded file")
	}
	defer f.Close()

	outcome := h.session.HandleUpload(c.Context(), fh.Filename, f)
	return c.JSON(outcome)
}

// GetAlerts drains pending alerts
func (h *Handler) GetAlerts(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"alerts": h.alerts.Drain()})
}

// GetPlayer returns the audio player source
func (h *Handler) GetPlayer(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"src": h.session.AudioSource()})
}
