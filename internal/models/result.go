package models

// EvaluateResponse is the body of a successful POST /evaluate.
type EvaluateResponse struct {
	Overall      int      `json:"overall"`
	Structure    int      `json:"structure"`
	Presentation int      `json:"presentation"`
	Clarity      int      `json:"clarity"`
	Comments     []string `json:"comments"`
}

func NewEvaluateResponse(score *AggregateScore) EvaluateResponse {
	comments := make([]string, len(score.Comments))
	copy(comments, score.Comments)

	return EvaluateResponse{
		Overall:      score.Overall,
		Structure:    score.Structure,
		Presentation: score.Presentation,
		Clarity:      score.Clarity,
		Comments:     comments,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
