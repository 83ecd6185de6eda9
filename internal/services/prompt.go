package services

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"alfredoptarigan/pitch-evaluator/internal/models"
)

//go:embed rubric/pitch_rubric.yaml
var pitchRubricYAML []byte

// RubricDocument is the criteria checklist shipped with the binary.
type RubricDocument struct {
	Role     string          `yaml:"role"`
	Scope    []string        `yaml:"scope"`
	Sections []RubricSection `yaml:"sections"`
	Scoring  []string        `yaml:"scoring"`
	Comments []string        `yaml:"comments"`
}

type RubricSection struct {
	Key      string   `yaml:"key"`
	Title    string   `yaml:"title"`
	Criteria []string `yaml:"criteria"`
}

type PromptBuilder struct {
	doc RubricDocument
}

// NewPromptBuilder parses the embedded rubric and checks it names exactly the
// three weighted criteria.
func NewPromptBuilder() (*PromptBuilder, error) {
	return newPromptBuilder(pitchRubricYAML)
}

func newPromptBuilder(data []byte) (*PromptBuilder, error) {
	var doc RubricDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rubric: %w", err)
	}

	want := []string{"structure", "presentation", "clarity"}
	if len(doc.Sections) != len(want) {
		return nil, fmt.Errorf("rubric must have %d sections, got %d", len(want), len(doc.Sections))
	}
	for i, section := range doc.Sections {
		if section.Key != want[i] {
			return nil, fmt.Errorf("rubric section %d must be %q, got %q", i+1, want[i], section.Key)
		}
		if len(section.Criteria) == 0 {
			return nil, fmt.Errorf("rubric section %q has no criteria", section.Key)
		}
	}

	return &PromptBuilder{doc: doc}, nil
}

// BuildRubric renders the evaluation prompt. Weights and comment limits come
// from the scoring constants so the model is told the same rules the
// aggregator applies.
func (pb *PromptBuilder) BuildRubric() models.Rubric {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(pb.doc.Role))
	b.WriteString("\n\n")
	writeBullets(&b, pb.doc.Scope)

	b.WriteString("\nEvaluate the video using all criteria below.\n")
	for _, section := range pb.doc.Sections {
		fmt.Fprintf(&b, "\nSECTION: %s\nLook for:\n", section.Title)
		writeBullets(&b, section.Criteria)
	}

	b.WriteString("\nScoring rules:\n")
	writeBullets(&b, pb.doc.Scoring)

	fmt.Fprintf(&b, `
Weights:
- Structure: %d percent
- Presentation: %d percent
- Clarity: %d percent
`, StructureWeight, PresentationWeight, ClarityWeight)

	b.WriteString("\nComment rules:\n")
	writeBullets(&b, pb.doc.Comments)
	fmt.Fprintf(&b, "- Return exactly %d comments.\n", CommentCount)
	fmt.Fprintf(&b, "- Each comment must be between %d and %d words.\n", MinCommentWords, MaxCommentWords)

	fmt.Fprintf(&b, `
Return JSON in this format only:
{
  "structure_score": 0,
  "presentation_score": 0,
  "clarity_score": 0,
  "weighted_total": 0,
  "comments": [%s]
}
`, strings.TrimSuffix(strings.Repeat(fmt.Sprintf(`"%d to %d word improvement comment", `, MinCommentWords, MaxCommentWords), CommentCount), ", "))

	return models.Rubric{Prompt: b.String()}
}

func writeBullets(b *strings.Builder, items []string) {
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(item))
		b.WriteString("\n")
	}
}
