package models

// StructuredFeedback is a model response that passed validation. Scores are
// in [0,100]; Comments keeps the model's order, which is its priority order.
type StructuredFeedback struct {
	Structure    float64
	Presentation float64
	Clarity      float64
	Comments     []string
}

// AggregateScore is the final result of one evaluation.
type AggregateScore struct {
	Overall      int
	Structure    int
	Presentation int
	Clarity      int
	Comments     []string
}
