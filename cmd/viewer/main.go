package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/urbansound/noisemap/internal/client"
	"github.com/urbansound/noisemap/internal/delivery/http"
	"github.com/urbansound/noisemap/internal/delivery/viewerapi"
	"github.com/urbansound/noisemap/internal/mapview"
	"github.com/urbansound/noisemap/internal/viewer"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := loadConfig()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("Warning: unknown timezone %q, using UTC: %v", cfg.Timezone, err)
		loc = time.UTC
	}

	alerts := &viewer.AlertLog{}
	session := viewer.NewSession(
		mapview.DefaultConfig(),
		mapview.NewInfoPanel(cfg.Locale, loc),
		client.NewLoader(cfg.NoiseAPIURL),
		client.NewUploader(cfg.NoiseAPIURL),
		alerts,
	)

	// Initial load; an unreachable backend leaves an empty map
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := session.Load(ctx); err != nil {
		log.Printf("Starting with an empty map, backend at %s unavailable", cfg.NoiseAPIURL)
	}
	cancel()

	app := fiber.New(fiber.Config{
		AppName:      "NoiseMap Viewer v1.0",
		BodyLimit:    16 * 1024 * 1024,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		ErrorHandler: http.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	viewerapi.SetupRoutes(app, viewerapi.NewHandler(session, alerts))

	go func() {
		log.Printf("Viewer starting on :%s (backend %s)", cfg.Port, cfg.NoiseAPIURL)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Viewer error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down viewer...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("Viewer forced to shutdown: %v", err)
	}
	log.Println("Viewer exited gracefully")
}

type Config struct {
	NoiseAPIURL string
	Port        string
	Timezone    string
	Locale      string
}

func loadConfig() *Config {
	return &Config{
		NoiseAPIURL: getEnv("NOISE_API_URL", "http://localhost:8080"),
		Port:        getEnv("VIEWER_PORT", "8081"),
		Timezone:    getEnv("VIEWER_TIMEZONE", "Local"),
		Locale:      getEnv("VIEWER_LOCALE", "en-US"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
