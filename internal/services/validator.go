package services

import (
	"encoding/json"
	"strings"

	"alfredoptarigan/pitch-evaluator/internal/models"
)

// rawFeedback mirrors the JSON shape the rubric asks for. Pointers tell a
// missing score apart from a zero one. weighted_total is ignored; the overall
// score is always recomputed.
type rawFeedback struct {
	StructureScore    *float64          `json:"structure_score"`
	PresentationScore *float64          `json:"presentation_score"`
	ClarityScore      *float64          `json:"clarity_score"`
	Comments          []json.RawMessage `json:"comments"`
}

// ParseFeedback turns raw model output into StructuredFeedback. Any failed
// check rejects the whole response; nothing is clamped, truncated or filled in.
func ParseFeedback(raw []byte) (*models.StructuredFeedback, error) {
	jsonStr := extractJSON(string(raw))
	if jsonStr == "" {
		return nil, malformed("no JSON object in response")
	}

	var parsed rawFeedback
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, malformed("invalid JSON: %v", err)
	}

	structure, err := checkScore("structure_score", parsed.StructureScore)
	if err != nil {
		return nil, err
	}
	presentation, err := checkScore("presentation_score", parsed.PresentationScore)
	if err != nil {
		return nil, err
	}
	clarity, err := checkScore("clarity_score", parsed.ClarityScore)
	if err != nil {
		return nil, err
	}

	comments, err := checkComments(parsed.Comments)
	if err != nil {
		return nil, err
	}

	return &models.StructuredFeedback{
		Structure:    structure,
		Presentation: presentation,
		Clarity:      clarity,
		Comments:     comments,
	}, nil
}

func checkScore(field string, value *float64) (float64, error) {
	if value == nil {
		return 0, malformed("missing %s", field)
	}
	if *value < MinScore || *value > MaxScore {
		return 0, malformed("%s %g outside [%d,%d]", field, *value, MinScore, MaxScore)
	}
	return *value, nil
}

func checkComments(raw []json.RawMessage) ([]string, error) {
	if len(raw) < CommentCount {
		return nil, malformed("expected at least %d comments, got %d", CommentCount, len(raw))
	}

	comments := make([]string, 0, len(raw))
	for i, item := range raw {
		var comment string
		if err := json.Unmarshal(item, &comment); err != nil {
			return nil, malformed("comment %d is not text", i+1)
		}

		words := len(strings.Fields(comment))
		if words < MinCommentWords || words > MaxCommentWords {
			return nil, malformed("comment %d has %d words, want %d-%d", i+1, words, MinCommentWords, MaxCommentWords)
		}

		comments = append(comments, strings.Join(strings.Fields(comment), " "))
	}

	return comments, nil
}

// extractJSON pulls the outermost JSON object out of text the model may have
// wrapped in markdown fences or prose. A root array, even one holding an
// object, yields "".
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```JSON", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.IndexAny(text, "{[")
	if start == -1 || text[start] != '{' {
		return ""
	}

	end := strings.LastIndex(text, "}")
	if end <= start {
		return ""
	}

	return text[start : end+1]
}
