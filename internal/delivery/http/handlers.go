package http

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/urbansound/noisemap/internal/domain"
	"github.com/urbansound/noisemap/internal/service"
	"github.com/urbansound/noisemap/internal/storage"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler contains all HTTP handlers
type Handler struct {
	noiseSvc   *service.NoiseService
	uploadSvc  *service.UploadService
	uploads    service.UploadStore
	classifier HealthChecker
}

// NewHandler creates a new handler
func NewHandler(noiseSvc *service.NoiseService, uploadSvc *service.UploadService, uploads service.UploadStore, classifier HealthChecker) *Handler {
	return &Handler{
		noiseSvc:   noiseSvc,
		uploadSvc:  uploadSvc,
		uploads:    uploads,
		classifier: classifier,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	database := "ok"
	if err := h.noiseSvc.Health(ctx); err != nil {
		log.Printf("Health: %v", err)
		database = "error"
	}
	classifier := "ok"
	if h.classifier != nil {
		if err := h.classifier.Health(ctx); err != nil {
			classifier = "unavailable"
		}
	}

	return c.JSON(fiber.Map{
		"status":     "ok",
		"service":    "noisemap-backend",
		"version":    "1.0.0",
		"database":   database,
		"classifier": classifier,
	})
}

// GetNoiseData returns stored noise events as a bare JSON array
func (h *Handler) GetNoiseData(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		limit = 0
	}

	events, err := h.noiseSvc.ListEvents(c.Context(), limit)
	if err != nil {
		log.Printf("GetNoiseData: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch noise data")
	}

	return c.JSON(events)
}

// GetStats returns repository counters
func (h *Handler) GetStats(c *fiber.Ctx) error {
	stats, err := h.noiseSvc.Stats(c.Context())
	if err != nil {
		log.Printf("GetStats: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch stats")
	}
	return c.JSON(stats)
}

// PostNoiseData ingests one noise event from a sensor or client
func (h *Handler) PostNoiseData(c *fiber.Ctx) error {
	var event domain.NoiseEvent
	if err := c.BodyParser(&event); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON request")
	}

	saved, err := h.noiseSvc.IngestEvent(c.Context(), event)
	if errors.Is(err, service.ErrInvalidEvent) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err != nil {
		log.Printf("PostNoiseData: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to save noise data")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    saved,
	})
}

// Upload stores and classifies an audio file sent as multipart field "file"
func (h *Handler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return uploadError(c, fiber.StatusBadRequest, "No file part")
	}
	if fh.Filename == "" {
		return uploadError(c, fiber.StatusBadRequest, "No selected file")
	}

	f, err := fh.Open()
	if err != nil {
		return uploadError(c, fiber.StatusBadRequest, "Could not read uploaded file")
	}
	defer f.Close()

	audio, err := io.ReadAll(f)
	if err != nil {
		return uploadError(c, fiber.StatusBadRequest, "Could not read uploaded file")
	}

	result, err := h.uploadSvc.Process(c.Context(), fh.Filename, audio)
	switch {
	case errors.Is(err, service.ErrNoFile):
		return uploadError(c, fiber.StatusBadRequest, "No selected file")
	case errors.Is(err, service.ErrInvalidFileType):
		return uploadError(c, fiber.StatusBadRequest, "Invalid file type")
	case err != nil:
		log.Printf("Upload: %v", err)
		return uploadError(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(result)
}

// GetUpload serves a previously uploaded audio file
func (h *Handler) GetUpload(c *fiber.Ctx) error {
	name := c.Params("filename")
	if name != service.SecureFilename(name) {
		return fiber.ErrNotFound
	}

	rc, err := h.uploads.Open(c.Context(), name)
	if errors.Is(err, storage.ErrNotFound) {
		return fiber.ErrNotFound
	}
	if err != nil {
		log.Printf("GetUpload: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to read upload")
	}

	c.Type(filepath.Ext(name))
	return c.SendStream(rc)
}

func uploadError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(domain.ClassificationResult{
		Success: false,
		Error:   message,
	})
}
