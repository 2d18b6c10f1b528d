package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/smartcity/trafficlens/internal/delivery/http"
	"github.com/smartcity/trafficlens/internal/ingest"
	"github.com/smartcity/trafficlens/internal/repository/postgres"
	"github.com/smartcity/trafficlens/internal/service"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Configuration
	cfg := loadConfig()

	loc, err := time.LoadLocation(cfg.DataTimezone)
	if err != nil {
		log.Printf("Warning: unknown DATA_TIMEZONE %q, using UTC: %v", cfg.DataTimezone, err)
		loc = time.UTC
	}

	// Database connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo service.Repository = postgres.NewMockRepository()
	if cfg.DatabaseURL != "" {
		if pool, err := connectDatabase(ctx, cfg.DatabaseURL); err != nil {
			log.Printf("Warning: Could not connect to database: %v", err)
			log.Println("Running with in-memory audit log only")
		} else {
			defer pool.Close()
			log.Println("Connected to PostgreSQL")
			repo = postgres.NewPostgresRepository(pool)
		}
	}

	// Dependency Injection: Services
	datasetSvc := service.NewDatasetService(ingest.NewNormalizer(loc), repo)
	trainingSvc := service.NewTrainingService(service.NewSimulatedTrainer(cfg.TrainingTick, nil), datasetSvc, repo)

	var predictor service.Predictor = service.NewSimulatedPredictor(cfg.PredictionDelay, nil)
	var mlHealth http.HealthChecker
	if cfg.MLServiceURL != "" {
		remote := service.NewRemotePredictor(cfg.MLServiceURL, predictor)
		predictor, mlHealth = remote, remote
	}
	predictionSvc := service.NewPredictionService(predictor, repo)

	if cfg.SeedSampleData {
		info, err := datasetSvc.LoadSample(cfg.SampleSize, time.Now().In(loc), nil)
		if err != nil {
			log.Printf("Failed to seed sample data: %v", err)
		} else {
			log.Printf("Seeded sample dataset with %d records", info.Count)
		}
	}

	// Background ingestion
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	if cfg.WatchDir != "" {
		startWatcher(bgCtx, cfg.WatchDir, datasetSvc)
	}

	var mailbox service.AttachmentSource
	if cfg.IMAPServer != "" {
		mailbox = ingest.NewMailbox(cfg.IMAPServer, cfg.IMAPUsername, cfg.IMAPPassword, cfg.IMAPSubject)
	}
	scheduler := service.NewScheduler(datasetSvc, mailbox)
	if err := scheduler.Schedule(cfg.MailboxSchedule, cfg.SnapshotSchedule); err != nil {
		log.Fatalf("Scheduler error: %v", err)
	}
	scheduler.Start()

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "TrafficLens API v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    32 * 1024 * 1024,
		ErrorHandler: http.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	handler := http.NewHandler(datasetSvc, trainingSvc, predictionSvc, repo, mlHealth)
	http.SetupRoutes(app, handler)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
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
	stopBackground()
	scheduler.Stop()
	trainingSvc.Close()
	predictionSvc.WaitBackground()
	datasetSvc.WaitBackground()
	log.Println("Server exited gracefully")
}

func connectDatabase(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	pg := postgres.NewPostgresRepository(pool)
	if err := pg.Health(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// startWatcher reloads the dataset whenever a file lands in dir
func startWatcher(ctx context.Context, dir string, datasets *service.DatasetService) {
	watcher, err := ingest.NewWatcher(dir)
	if err != nil {
		log.Printf("Warning: drop folder disabled: %v", err)
		return
	}

	go func() {
		defer watcher.Close()
		err := watcher.Run(ctx, func(path string) {
			if _, err := datasets.LoadFile(ctx, path); err != nil {
				log.Printf("Failed to load %s: %v", path, err)
			}
		})
		if err != nil {
			log.Printf("Watcher stopped: %v", err)
		}
	}()
	log.Printf("Watching %s for dataset files", dir)
}

type Config struct {
	DatabaseURL      string
	MLServiceURL     string
	Port             string
	Env              string
	DataTimezone     string
	SeedSampleData   bool
	SampleSize       int
	WatchDir         string
	IMAPServer       string
	IMAPUsername     string
	IMAPPassword     string
	IMAPSubject      string
	MailboxSchedule  string
	SnapshotSchedule string
	PredictionDelay  time.Duration
	TrainingTick     time.Duration
}

func loadConfig() *Config {
	return &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		MLServiceURL:     getEnv("ML_SERVICE_URL", ""),
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("GO_ENV", "development"),
		DataTimezone:     getEnv("DATA_TIMEZONE", "UTC"),
		SeedSampleData:   getEnvBool("SEED_SAMPLE_DATA", true),
		SampleSize:       getEnvInt("SAMPLE_SIZE", 1000),
		WatchDir:         getEnv("WATCH_DIR", ""),
		IMAPServer:       getEnv("IMAP_SERVER", ""),
		IMAPUsername:     getEnv("IMAP_USERNAME", ""),
		IMAPPassword:     getEnv("IMAP_PASSWORD", ""),
		IMAPSubject:      getEnv("IMAP_SUBJECT", "traffic"),
		MailboxSchedule:  getEnv("MAILBOX_SCHEDULE", "@every 5m"),
		SnapshotSchedule: getEnv("SNAPSHOT_SCHEDULE", "@every 15m"),
		PredictionDelay:  getEnvDuration("PREDICTION_DELAY", 2*time.Second),
		TrainingTick:     getEnvDuration("TRAINING_TICK", 100*time.Millisecond),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("Invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using %t", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("Invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
