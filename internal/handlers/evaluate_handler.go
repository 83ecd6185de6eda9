package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/pitch-evaluator/internal/models"
	"alfredoptarigan/pitch-evaluator/internal/services"
)

// Multipart field names sent by the capture client.
const (
	MediaField    = "video"
	DurationField = "duration"
)

type EvaluationHandler struct {
	intake         services.IntakeService
	evaluator      services.EvaluatorService
	requestTimeout time.Duration
}

func NewEvaluationHandler(
	intake services.IntakeService,
	evaluator services.EvaluatorService,
	requestTimeout time.Duration,
) *EvaluationHandler {
	return &EvaluationHandler{
		intake:         intake,
		evaluator:      evaluator,
		requestTimeout: requestTimeout,
	}
}

// HandleEvaluate handles POST /evaluate. The submission is released by the
// deferred call on every return path, before fasthttp flushes the response.
func (h *EvaluationHandler) HandleEvaluate(c *fiber.Ctx) error {
	requestID := uuid.NewString()
	c.Set("X-Request-ID", requestID)
	defer c.Request().RemoveMultipartFormFiles()

	started := time.Now()

	submission, err := h.receive(c)
	if err != nil {
		return respondError(c, requestID, err)
	}
	defer submission.Release()

	ctx, cancel := context.WithTimeout(services.WithRequestID(c.UserContext(), requestID), h.requestTimeout)
	defer cancel()

	score, err := h.evaluator.Evaluate(ctx, submission)
	if err != nil {
		return respondError(c, requestID, err)
	}

	log.Printf("✅ [%s] Evaluation returned in %v\n", requestID, time.Since(started).Round(time.Millisecond))
	return c.Status(fiber.StatusOK).JSON(models.NewEvaluateResponse(score))
}

// receive runs the upload gateway on the single media part of the form.
func (h *EvaluationHandler) receive(c *fiber.Ctx) (*models.PitchSubmission, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, &services.ValidationError{
			Reason:  services.ReasonInvalidForm,
			Message: "failed to parse multipart form",
		}
	}

	fileCount := 0
	for _, files := range form.File {
		fileCount += len(files)
	}

	files := form.File[MediaField]
	if len(files) == 0 {
		return nil, &services.ValidationError{
			Reason:  services.ReasonMissingMedia,
			Message: "missing 'video' file field",
		}
	}
	if fileCount > 1 {
		return nil, &services.ValidationError{
			Reason:  services.ReasonInvalidForm,
			Message: "exactly one media file is accepted",
		}
	}

	file := files[0]
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var duration string
	if values := form.Value[DurationField]; len(values) > 0 {
		duration = values[0]
	}

	return h.intake.Accept(services.Upload{
		Body:         src,
		Size:         file.Size,
		DeclaredMIME: file.Header.Get(fiber.HeaderContentType),
		Duration:     duration,
	})
}

// HandleHealth handles GET /
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(models.HealthResponse{Status: "pitch-evaluator-ready"})
}

// RegisterRoutes mounts the public endpoints.
func RegisterRoutes(app *fiber.App, evaluateHandler *EvaluationHandler) {
	app.Get("/", HandleHealth)
	app.Post("/evaluate", evaluateHandler.HandleEvaluate)
}
