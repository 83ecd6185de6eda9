package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"alfredoptarigan/pitch-evaluator/internal/ephemeral"
	"alfredoptarigan/pitch-evaluator/internal/models"
)

const malformedReply = `{"structure_score": 80, "presentation_score": 70, "comments": ["too short"]}`

func newTestEvaluator(model ModelClient, tracker *ephemeral.Tracker, callTimeout, backoff time.Duration) EvaluatorService {
	gate := NewModelGate(2, 0, 1, time.Second)
	return NewEvaluatorService(model, gate, tracker, models.Rubric{Prompt: "rubric"}, callTimeout, backoff)
}

func newSubmission(tracker *ephemeral.Tracker) *models.PitchSubmission {
	return &models.PitchSubmission{
		Media:    tracker.Wrap(mp4Fixture(256)),
		MIMEType: "video/mp4",
		Duration: 25,
	}
}

func TestEvaluateSuccess(t *testing.T) {
	tracker := ephemeral.NewTracker()
	model := newFakeModel(fakeReply{text: validReply})
	evaluator := newTestEvaluator(model, tracker, time.Second, 10*time.Millisecond)

	submission := newSubmission(tracker)
	score, err := evaluator.Evaluate(context.Background(), submission)
	submission.Release()
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}

	if score.Overall != 79 {
		t.Errorf("Expected overall 79, got %d", score.Overall)
	}
	if len(score.Comments) != CommentCount {
		t.Errorf("Expected %d comments, got %d", CommentCount, len(score.Comments))
	}
	if model.Calls() != 1 {
		t.Errorf("Expected 1 model call, got %d", model.Calls())
	}
	if model.lastMIME != "video/mp4" || model.rubric != "rubric" {
		t.Errorf("Expected model to receive mime and rubric, got %q / %q", model.lastMIME, model.rubric)
	}
	if tracker.Live() != 0 {
		t.Errorf("Expected no live buffers, got %d", tracker.Live())
	}
	if tracker.Total() != 2 {
		t.Errorf("Expected media and one raw response buffer, got %d", tracker.Total())
	}
}

func TestEvaluateRetriesOnceAfterTransportError(t *testing.T) {
	tracker := ephemeral.NewTracker()
	model := newFakeModel(
		fakeReply{err: errors.New("connection reset")},
		fakeReply{text: validReply},
	)
	evaluator := newTestEvaluator(model, tracker, time.Second, 5*time.Millisecond)

	submission := newSubmission(tracker)
	defer submission.Release()

	score, err := evaluator.Evaluate(context.Background(), submission)
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if score.Overall != 79 {
		t.Errorf("Expected overall 79, got %d", score.Overall)
	}
	if model.Calls() != 2 {
		t.Errorf("Expected 2 model calls, got %d", model.Calls())
	}
}

func TestEvaluateRetriesOnceAfterMalformedResponse(t *testing.T) {
	tracker := ephemeral.NewTracker()
	model := newFakeModel(fakeReply{text: malformedReply}, fakeReply{text: validReply})
	evaluator := newTestEvaluator(model, tracker, time.Second, 5*time.Millisecond)

	submission := newSubmission(tracker)
	defer submission.Release()

	if _, err := evaluator.Evaluate(context.Background(), submission); err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if model.Calls() != 2 {
		t.Errorf("Expected 2 model calls, got %d", model.Calls())
	}
	if tracker.Live() != 1 {
		t.Errorf("Expected only the submission to be live, got %d", tracker.Live())
	}
}

func TestEvaluateMalformedTwice(t *testing.T) {
	tracker := ephemeral.NewTracker()
	model := newFakeModel(fakeReply{text: malformedReply})
	evaluator := newTestEvaluator(model, tracker, time.Second, 5*time.Millisecond)

	submission := newSubmission(tracker)
	score, err := evaluator.Evaluate(context.Background(), submission)
	submission.Release()

	if score != nil {
		t.Fatalf("Expected no score, got %+v", score)
	}
	var malformedErr *MalformedResponseError
	if !errors.As(err, &malformedErr) {
		t.Fatalf("Expected MalformedResponseError, got %v", err)
	}
	if model.Calls() != maxModelAttempts {
		t.Errorf("Expected %d model calls, got %d", maxModelAttempts, model.Calls())
	}
	if tracker.Live() != 0 {
		t.Errorf("Expected no live buffers, got %d", tracker.Live())
	}
	if tracker.Total() != 3 {
		t.Errorf("Expected media and two raw response buffers, got %d", tracker.Total())
	}
}

func TestEvaluateTimesOutTwice(t *testing.T) {
	tracker := ephemeral.NewTracker()
	model := newFakeModel(fakeReply{block: true})
	callTimeout := 50 * time.Millisecond
	backoff := 20 * time.Millisecond
	evaluator := newTestEvaluator(model, tracker, callTimeout, backoff)

	submission := newSubmission(tracker)
	defer submission.Release()

	started := time.Now()
	_, err := evaluator.Evaluate(context.Background(), submission)
	elapsed := time.Since(started)

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("Expected UpstreamError, got %v", err)
	}
	if !upstreamErr.Timeout {
		t.Error("Expected the upstream error to be a timeout")
	}
	if upstreamErr.Attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", upstreamErr.Attempts)
	}
	if model.Calls() != 2 {
		t.Errorf("Expected 2 model calls, got %d", model.Calls())
	}

	bound := 2*callTimeout + backoff + 100*time.Millisecond
	if elapsed > bound {
		t.Errorf("Expected evaluation to give up within %v, took %v", bound, elapsed)
	}
	if elapsed < 2*callTimeout {
		t.Errorf("Expected both calls to run to their timeout, took only %v", elapsed)
	}
}

func TestEvaluateTransportFailureTwice(t *testing.T) {
	tracker := ephemeral.NewTracker()
	model := newFakeModel(fakeReply{err: errors.New("503 service unavailable")})
	evaluator := newTestEvaluator(model, tracker, time.Second, time.Millisecond)

	submission := newSubmission(tracker)
	defer submission.Release()

	_, err := evaluator.Evaluate(context.Background(), submission)

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("Expected UpstreamError, got %v", err)
	}
	if upstreamErr.Timeout || upstreamErr.Busy {
		t.Errorf("Expected a plain transport failure, got %+v", upstreamErr)
	}
	if !strings.Contains(err.Error(), "2 attempt(s)") {
		t.Errorf("Expected attempt count in error, got %q", err.Error())
	}
}

func TestEvaluateStopsWhenRequestCancelled(t *testing.T) {
	tracker := ephemeral.NewTracker()
	model := newFakeModel(fakeReply{block: true})
	evaluator := newTestEvaluator(model, tracker, 10*time.Second, time.Millisecond)

	submission := newSubmission(tracker)
	defer submission.Release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	started := time.Now()
	_, err := evaluator.Evaluate(ctx, submission)
	if err == nil {
		t.Fatal("Expected an error after cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected the error to wrap context.Canceled, got %v", err)
	}
	if model.Calls() != 1 {
		t.Errorf("Expected no retry after cancellation, got %d calls", model.Calls())
	}
	if time.Since(started) > time.Second {
		t.Errorf("Expected cancellation to return promptly, took %v", time.Since(started))
	}
}

func TestEvaluateBusyGateIsNotRetried(t *testing.T) {
	tracker := ephemeral.NewTracker()
	model := newFakeModel(fakeReply{text: validReply})
	gate := NewModelGate(1, 0, 1, 20*time.Millisecond)
	evaluator := NewEvaluatorService(model, gate, tracker, models.Rubric{Prompt: "rubric"}, time.Second, time.Millisecond)

	release, err := gate.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	defer release()

	submission := newSubmission(tracker)
	defer submission.Release()

	_, err = evaluator.Evaluate(context.Background(), submission)

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) || !upstreamErr.Busy {
		t.Fatalf("Expected busy UpstreamError, got %v", err)
	}
	if model.Calls() != 0 {
		t.Errorf("Expected the model not to be called, got %d calls", model.Calls())
	}
}

func TestBackoffDoubles(t *testing.T) {
	e := &evaluatorService{retryBackoff: 100 * time.Millisecond}

	if got := e.backoff(1); got != 100*time.Millisecond {
		t.Errorf("Expected first backoff 100ms, got %v", got)
	}
	if got := e.backoff(2); got != 200*time.Millisecond {
		t.Errorf("Expected second backoff 200ms, got %v", got)
	}
}
