package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"alfredoptarigan/pitch-evaluator/internal/config"
	"alfredoptarigan/pitch-evaluator/internal/ephemeral"
	"alfredoptarigan/pitch-evaluator/internal/handlers"
	"alfredoptarigan/pitch-evaluator/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	if cfg.Gemini.APIKey == "" {
		log.Fatal("❌ GEMINI_API_KEY environment variable is required")
	}

	// Initialize Gemini AI
	geminiService, err := services.NewGeminiService(
		context.Background(),
		cfg.Gemini.APIKey,
		cfg.Gemini.Model,
		cfg.Gemini.Temperature,
	)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini AI: %v", err)
	}
	log.Printf("✅ Gemini AI initialized with model %s", cfg.Gemini.Model)

	promptBuilder, err := services.NewPromptBuilder()
	if err != nil {
		log.Fatalf("❌ Failed to load evaluation rubric: %v", err)
	}

	// Initialize services
	tracker := ephemeral.NewTracker()
	gate := services.NewModelGate(
		cfg.Model.MaxConcurrency,
		cfg.Model.RequestsPerSecond,
		cfg.Model.Burst,
		cfg.Model.QueueTimeout,
	)
	intakeService := services.NewIntakeService(tracker, cfg.Upload.MaxBytes)
	evaluatorService := services.NewEvaluatorService(
		geminiService,
		gate,
		tracker,
		promptBuilder.BuildRubric(),
		cfg.Model.CallTimeout,
		cfg.Model.RetryBackoff,
	)
	log.Printf("✅ Evaluator initialized (max %d concurrent model calls)", cfg.Model.MaxConcurrency)

	// Initialize Handlers
	evaluateHandler := handlers.NewEvaluationHandler(
		intakeService,
		evaluatorService,
		cfg.RequestTimeout(),
	)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:               "Pitch Evaluator API",
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		BodyLimit:             cfg.BodyLimit(),
		ErrorHandler:          handlers.NewErrorHandler(cfg.Server.AllowOrigins),
		DisableStartupMessage: cfg.IsProduction(),
	})

	// Middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if cfg.IsProduction() {
		logFormat = "${time} ${status} ${latency} ${method} ${path} ${respHeader:X-Request-ID}\n"
	}
	app.Use(logger.New(logger.Config{
		Format:     logFormat,
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.Server.AllowOrigins,
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept",
		ExposeHeaders: "X-Request-ID",
	}))

	handlers.RegisterRoutes(app, evaluateHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		if err := app.ShutdownWithTimeout(cfg.RequestTimeout()); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
		if live := tracker.Live(); live != 0 {
			log.Printf("⚠️  %d media buffer(s) still live at shutdown", live)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
