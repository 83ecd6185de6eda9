package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"alfredoptarigan/pitch-evaluator/internal/ephemeral"
	"alfredoptarigan/pitch-evaluator/internal/models"
)

// maxModelAttempts caps model invocations per request: the first call plus one
// retry, shared by transport failures, timeouts and malformed responses.
const maxModelAttempts = 2

type EvaluatorService interface {
	Evaluate(ctx context.Context, submission *models.PitchSubmission) (*models.AggregateScore, error)
}

type evaluatorService struct {
	model        ModelClient
	gate         ModelGate
	tracker      *ephemeral.Tracker
	rubric       models.Rubric
	callTimeout  time.Duration
	retryBackoff time.Duration
}

func NewEvaluatorService(
	model ModelClient,
	gate ModelGate,
	tracker *ephemeral.Tracker,
	rubric models.Rubric,
	callTimeout time.Duration,
	retryBackoff time.Duration,
) EvaluatorService {
	return &evaluatorService{
		model:        model,
		gate:         gate,
		tracker:      tracker,
		rubric:       rubric,
		callTimeout:  callTimeout,
		retryBackoff: retryBackoff,
	}
}

// Evaluate runs the model against one submission and returns the aggregate
// score. The submission stays owned by the caller, who must release it.
func (e *evaluatorService) Evaluate(ctx context.Context, submission *models.PitchSubmission) (*models.AggregateScore, error) {
	req := models.NewEvaluationRequest(submission, e.rubric)
	requestID := RequestIDFromContext(ctx)

	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= maxModelAttempts; attempt++ {
		if attempt > 1 {
			delay := e.backoff(attempt - 1)
			log.Printf("⚠️  [%s] Attempt %d failed: %v. Retrying in %v...\n", requestID, attempt-1, errorKind(lastErr), delay)
			if err := sleepContext(ctx, delay); err != nil {
				break
			}
		}

		attempts = attempt
		feedback, err := e.attempt(ctx, req)
		if err == nil {
			log.Printf("✅ [%s] Evaluation validated on attempt %d\n", requestID, attempt)
			return Aggregate(feedback), nil
		}

		var upstreamErr *UpstreamError
		if errors.As(err, &upstreamErr) && upstreamErr.Busy {
			return nil, err
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	log.Printf("❌ [%s] Evaluation failed after %d attempt(s): %s\n", requestID, attempts, errorKind(lastErr))
	return nil, finalError(ctx, lastErr, attempts)
}

// attempt makes one model call and validates its output. The raw response is
// released before returning, whatever the outcome.
func (e *evaluatorService) attempt(ctx context.Context, req models.EvaluationRequest) (*models.StructuredFeedback, error) {
	resp, err := e.callModel(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Release()

	return ParseFeedback(resp.Raw.Bytes())
}

func (e *evaluatorService) callModel(ctx context.Context, req models.EvaluationRequest) (*models.ModelResponse, error) {
	release, err := e.gate.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	text, err := e.model.Evaluate(callCtx, req.Media(), req.MIMEType(), req.RubricPrompt())
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("model call exceeded %v: %w", e.callTimeout, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	return &models.ModelResponse{Raw: e.tracker.Wrap([]byte(text))}, nil
}

// backoff doubles per retry: retryBackoff, 2*retryBackoff, ...
func (e *evaluatorService) backoff(retry int) time.Duration {
	return e.retryBackoff << (retry - 1)
}

func finalError(ctx context.Context, lastErr error, attempts int) error {
	if lastErr == nil {
		lastErr = ctx.Err()
	}

	var malformedErr *MalformedResponseError
	if errors.As(lastErr, &malformedErr) {
		return malformedErr
	}

	var upstreamErr *UpstreamError
	if errors.As(lastErr, &upstreamErr) {
		return upstreamErr
	}

	return &UpstreamError{
		Timeout:  errors.Is(lastErr, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded),
		Attempts: attempts,
		Err:      lastErr,
	}
}

// errorKind names an error without echoing model output into the log.
func errorKind(err error) string {
	var malformedErr *MalformedResponseError
	var upstreamErr *UpstreamError
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &malformedErr):
		return "malformed_response"
	case errors.As(err, &upstreamErr) && upstreamErr.Busy:
		return "busy"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "transport_error"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
