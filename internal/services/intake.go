package services

import (
	"fmt"
	"io"
	"math"
	"mime"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"alfredoptarigan/pitch-evaluator/internal/ephemeral"
	"alfredoptarigan/pitch-evaluator/internal/models"
)

// MaxDurationSeconds is the longest pitch accepted. The bound is inclusive and
// compared without rounding.
const MaxDurationSeconds = 30.0

// AllowedMIMETypes are the containers browsers produce when recording video.
var AllowedMIMETypes = map[string]bool{
	"video/webm":      true,
	"video/mp4":       true,
	"video/quicktime": true,
}

// Upload describes one received media part before validation.
type Upload struct {
	Body         io.Reader
	Size         int64 // -1 when unknown
	DeclaredMIME string
	Duration     string
}

type IntakeService interface {
	Accept(upload Upload) (*models.PitchSubmission, error)
}

type intakeService struct {
	tracker  *ephemeral.Tracker
	maxBytes int64
}

func NewIntakeService(tracker *ephemeral.Tracker, maxBytes int64) IntakeService {
	return &intakeService{
		tracker:  tracker,
		maxBytes: maxBytes,
	}
}

// Accept validates size, duration and format, in that order, and copies the
// media into an ephemeral buffer. On error nothing is left allocated.
func (s *intakeService) Accept(upload Upload) (*models.PitchSubmission, error) {
	if upload.Body == nil {
		return nil, newValidationError(ReasonMissingMedia, "missing 'video' file field")
	}

	if upload.Size > s.maxBytes {
		return nil, newValidationError(ReasonTooLarge, "video is %d bytes, max is %d", upload.Size, s.maxBytes)
	}

	duration, err := parseDuration(upload.Duration)
	if err != nil {
		return nil, err
	}

	declared, err := normalizeMIME(upload.DeclaredMIME)
	if err != nil {
		return nil, err
	}

	data, err := readLimited(upload.Body, s.maxBytes)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, newValidationError(ReasonMissingMedia, "empty video payload")
	}

	detected := detectVideoType(data)
	if detected == "" {
		clear(data)
		return nil, newValidationError(ReasonUnsupportedFormat, "content is not a supported video container")
	}
	if declared != "" && declared != detected {
		clear(data)
		return nil, newValidationError(ReasonUnsupportedFormat, "declared %s but content is %s", declared, detected)
	}

	return &models.PitchSubmission{
		Media:    s.tracker.Wrap(data),
		MIMEType: detected,
		Duration: duration,
	}, nil
}

func parseDuration(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, newValidationError(ReasonInvalidDuration, "missing 'duration' field")
	}

	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return 0, newValidationError(ReasonInvalidDuration, "duration must be a positive number of seconds")
	}

	if duration > MaxDurationSeconds {
		return 0, newValidationError(ReasonTooLong, "video is %gs, max is %gs", duration, MaxDurationSeconds)
	}

	return duration, nil
}

// normalizeMIME drops parameters such as codecs. An empty or generic declared
// type defers to content sniffing.
func normalizeMIME(declared string) (string, error) {
	declared = strings.TrimSpace(declared)
	if declared == "" {
		return "", nil
	}

	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return "", newValidationError(ReasonUnsupportedFormat, "unreadable content type %q", declared)
	}
	mediaType = strings.ToLower(mediaType)

	if mediaType == "application/octet-stream" {
		return "", nil
	}
	if !AllowedMIMETypes[mediaType] {
		return "", newValidationError(ReasonUnsupportedFormat, "content type %s is not accepted", mediaType)
	}

	return mediaType, nil
}

// readLimited reads at most maxBytes+1 bytes so a lying Size still cannot
// push more than the ceiling into memory.
func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		clear(data)
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	if int64(len(data)) > maxBytes {
		clear(data)
		return nil, newValidationError(ReasonTooLarge, "video exceeds %d bytes", maxBytes)
	}

	return data, nil
}

// detectVideoType returns the allowed MIME type matching the content, walking
// up the detected type's parents, or "" when none match.
func detectVideoType(data []byte) string {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		for allowed := range AllowedMIMETypes {
			if m.Is(allowed) {
				return allowed
			}
		}
	}
	return ""
}
