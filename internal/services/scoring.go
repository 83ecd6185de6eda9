package services

import (
	"math"

	"alfredoptarigan/pitch-evaluator/internal/models"
)

// Rubric weights, in percent. These and the comment limits below are the only
// business rules of the evaluation; the prompt and the aggregator both read them.
const (
	StructureWeight    = 35
	PresentationWeight = 40
	ClarityWeight      = 25
	weightScale        = 100

	CommentCount    = 3
	MinCommentWords = 5
	MaxCommentWords = 8

	MinScore = 0
	MaxScore = 100
)

// Aggregate computes the weighted overall score and picks the first
// CommentCount comments in the model's order. It is pure.
//
// The weighted sum is taken on integer percentages so that a half point such
// as 78.5 is exact before rounding.
func Aggregate(feedback *models.StructuredFeedback) *models.AggregateScore {
	weighted := StructureWeight*feedback.Structure +
		PresentationWeight*feedback.Presentation +
		ClarityWeight*feedback.Clarity

	comments := make([]string, 0, CommentCount)
	for _, comment := range feedback.Comments {
		if len(comments) == CommentCount {
			break
		}
		comments = append(comments, comment)
	}

	return &models.AggregateScore{
		Overall:      roundHalfUp(weighted / weightScale),
		Structure:    roundHalfUp(feedback.Structure),
		Presentation: roundHalfUp(feedback.Presentation),
		Clarity:      roundHalfUp(feedback.Clarity),
		Comments:     comments,
	}
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
