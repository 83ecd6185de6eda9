package models

import (
	"alfredoptarigan/pitch-evaluator/internal/ephemeral"
)

// These types live only for one request and are never persisted.

// PitchSubmission is a validated upload. The upload gateway creates it and the
// request handler releases it on every exit path.
type PitchSubmission struct {
	Media    *ephemeral.Buffer
	MIMEType string
	Duration float64 // declared, in seconds
}

// Release zeroes and drops the media bytes.
func (s *PitchSubmission) Release() {
	if s == nil {
		return
	}
	s.Media.Release()
}

// Rubric is the fixed set of instructions sent with every submission.
type Rubric struct {
	Prompt string
}

// EvaluationRequest pairs one submission with the rubric. Built once per
// request and never modified.
type EvaluationRequest struct {
	submission *PitchSubmission
	rubric     Rubric
}

func NewEvaluationRequest(submission *PitchSubmission, rubric Rubric) EvaluationRequest {
	return EvaluationRequest{submission: submission, rubric: rubric}
}

func (r EvaluationRequest) Media() []byte {
	return r.submission.Media.Bytes()
}

func (r EvaluationRequest) MIMEType() string {
	return r.submission.MIMEType
}

func (r EvaluationRequest) RubricPrompt() string {
	return r.rubric.Prompt
}

// ModelResponse is the raw, untrusted model output. Raw is a copy of the
// provider's reply string; releasing it zeroes the copy, and the string itself
// is dropped with the response.
type ModelResponse struct {
	Raw *ephemeral.Buffer
}

func (m *ModelResponse) Release() {
	if m == nil {
		return
	}
	m.Raw.Release()
}
