package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"alfredoptarigan/pitch-evaluator/internal/config"
	"alfredoptarigan/pitch-evaluator/internal/ephemeral"
	"alfredoptarigan/pitch-evaluator/internal/models"
	"alfredoptarigan/pitch-evaluator/internal/services"
)

// Runs one local recording through the same gateway and evaluator as the API
// and prints the response body. Used to tune the rubric.
//
//	go run ./scripts -file pitch.webm -duration 28.4
func main() {
	path := flag.String("file", "", "path to a recorded pitch (webm, mp4 or mov)")
	duration := flag.String("duration", "", "declared duration in seconds")
	showPrompt := flag.Bool("prompt", false, "print the rendered rubric and exit")
	flag.Parse()

	log.Println("🚀 Starting pitch evaluation...")

	promptBuilder, err := services.NewPromptBuilder()
	if err != nil {
		log.Fatalf("❌ Failed to load rubric: %v", err)
	}
	rubric := promptBuilder.BuildRubric()

	if *showPrompt {
		fmt.Println(rubric.Prompt)
		return
	}

	if *path == "" || *duration == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	ctx := context.Background()

	geminiService, err := services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.Temperature)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini: %v", err)
	}

	file, err := os.Open(*path)
	if err != nil {
		log.Fatalf("❌ Failed to open %s: %v", *path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		log.Fatalf("❌ Failed to stat %s: %v", *path, err)
	}

	tracker := ephemeral.NewTracker()
	intake := services.NewIntakeService(tracker, cfg.Upload.MaxBytes)
	evaluator := services.NewEvaluatorService(
		geminiService,
		services.NewModelGate(1, 0, 1, cfg.Model.QueueTimeout),
		tracker,
		rubric,
		cfg.Model.CallTimeout,
		cfg.Model.RetryBackoff,
	)

	submission, err := intake.Accept(services.Upload{
		Body:     file,
		Size:     info.Size(),
		Duration: *duration,
	})
	if err != nil {
		log.Fatalf("❌ Upload rejected: %v", err)
	}

	log.Printf("   📼 %s, %.1fs", submission.MIMEType, submission.Duration)
	log.Println("   🤖 Evaluating with LLM...")

	score, err := evaluator.Evaluate(ctx, submission)
	submission.Release()
	if err != nil {
		var malformedErr *services.MalformedResponseError
		if errors.As(err, &malformedErr) {
			log.Fatalf("❌ Model response rejected: %s", malformedErr.Reason)
		}
		log.Fatalf("❌ Evaluation failed: %v", err)
	}

	body, err := json.MarshalIndent(models.NewEvaluateResponse(score), "", "  ")
	if err != nil {
		log.Fatalf("❌ Failed to encode result: %v", err)
	}

	log.Println(strings.Repeat("=", 60))
	fmt.Println(string(body))
	log.Printf("✅ Done (%d buffer(s) live)", tracker.Live())
}
