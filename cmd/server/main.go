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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/urbansound/noisemap/internal/delivery/http"
	"github.com/urbansound/noisemap/internal/publisher"
	"github.com/urbansound/noisemap/internal/repository/dynamo"
	"github.com/urbansound/noisemap/internal/repository/postgres"
	"github.com/urbansound/noisemap/internal/repository/sqlite"
	"github.com/urbansound/noisemap/internal/service"
	"github.com/urbansound/noisemap/internal/storage"
)

// maxUploadSize caps request bodies, uploads included
const maxUploadSize = 16 * 1024 * 1024

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Dependency Injection: Repository
	repo, closeRepo := openRepository(ctx, cfg)
	defer closeRepo()

	// Dependency Injection: Upload storage
	var uploads service.UploadStore
	if cfg.UploadBucket != "" {
		s3Store, err := storage.NewS3Store(ctx, cfg.AWSRegion, cfg.UploadBucket, "uploads/")
		if err != nil {
			log.Fatalf("Could not configure S3 uploads: %v", err)
		}
		uploads = s3Store
		log.Printf("Storing uploads in s3://%s", cfg.UploadBucket)
	} else {
		local, err := storage.NewLocalStore(cfg.UploadFolder)
		if err != nil {
			log.Fatalf("Could not prepare upload folder: %v", err)
		}
		uploads = local
		log.Printf("Storing uploads in %s", local.Dir())
	}

	// Optional event stream
	var events service.EventPublisher
	if cfg.KafkaBrokers != "" {
		kp, err := publisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Printf("Warning: Kafka unavailable, events will not be published: %v", err)
		} else {
			events = kp
		}
	}

	// Dependency Injection: Services
	classifier := service.NewClassifierBridge(cfg.MLServiceURL)
	noiseSvc := service.NewNoiseService(repo, events)
	uploadSvc := service.NewUploadService(uploads, classifier, repo, events, nil)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "NoiseMap API v1.0",
		BodyLimit:    maxUploadSize,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		ErrorHandler: http.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Routes
	http.SetupRoutes(app, http.NewHandler(noiseSvc, uploadSvc, uploads, classifier))

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s (%s)", cfg.Port, cfg.Env)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	noiseSvc.WaitBackground()
	uploadSvc.WaitBackground()
	if events != nil {
		if err := events.Close(); err != nil {
			log.Printf("Publisher close: %v", err)
		}
	}
	log.Println("Server exited gracefully")
}

// openRepository picks the backing store from REPOSITORY, falling back to
// the in-memory sample data when the chosen one is unreachable.
func openRepository(ctx context.Context, cfg *Config) (service.NoiseRepository, func()) {
	noop := func() {}

	switch cfg.Repository {
	case "sqlite":
		repo, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			log.Printf("Warning: Could not open SQLite database: %v", err)
			break
		}
		log.Printf("Using SQLite database at %s", cfg.SQLitePath)
		return repo, func() { repo.Close() }

	case "dynamodb":
		repo, err := dynamo.New(ctx, cfg.AWSRegion, cfg.DynamoTable)
		if err != nil {
			log.Printf("Warning: Could not configure DynamoDB: %v", err)
			break
		}
		log.Printf("Using DynamoDB table %s", cfg.DynamoTable)
		return repo, noop

	case "mock":

	default:
		if cfg.DatabaseURL == "" {
			break
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: Could not connect to database: %v", err)
			break
		}
		repo := postgres.NewPostgresRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			log.Printf("Warning: Could not migrate database: %v", err)
			pool.Close()
			break
		}
		log.Println("Connected to PostgreSQL")
		return repo, pool.Close
	}

	log.Println("Running with mock data only")
	return postgres.NewMockRepository(), noop
}

type Config struct {
	DatabaseURL  string
	Repository   string
	SQLitePath   string
	DynamoTable  string
	MLServiceURL string
	UploadFolder string
	UploadBucket string
	AWSRegion    string
	KafkaBrokers string
	KafkaTopic   string
	Port         string
	Env          string
}

func loadConfig() *Config {
	return &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		Repository:   getEnv("REPOSITORY", "postgres"),
		SQLitePath:   getEnv("SQLITE_PATH", "noisemap.db"),
		DynamoTable:  getEnv("DYNAMODB_TABLE", "NoiseEvents"),
		MLServiceURL: getEnv("ML_SERVICE_URL", "http://localhost:8000"),
		UploadFolder: getEnv("UPLOAD_FOLDER", "static/uploads"),
		UploadBucket: getEnv("UPLOAD_BUCKET", ""),
		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		KafkaBrokers: getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "noise-events"),
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("GO_ENV", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
