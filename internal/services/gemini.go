package services

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// ModelClient is the boundary to the generative model: media plus rubric in,
// raw text out. The text is untrusted.
type ModelClient interface {
	Evaluate(ctx context.Context, media []byte, mimeType string, rubric string) (string, error)
}

// maxOutputTokens leaves room for the model's thinking tokens, which count
// against the same cap, ahead of the short JSON reply.
const maxOutputTokens = 4096

type geminiService struct {
	client      *genai.Client
	modelName   string
	temperature float32
}

func NewGeminiService(ctx context.Context, apiKey, modelName string, temperature float32) (ModelClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiService{
		client:      client,
		modelName:   modelName,
		temperature: temperature,
	}, nil
}

// Evaluate sends the rubric and the video inline. Nothing is uploaded through
// the Files API, so the provider keeps no file handle after the call.
func (g *geminiService) Evaluate(ctx context.Context, media []byte, mimeType string, rubric string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(rubric),
			genai.NewPartFromBytes(media, mimeType),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, generateConfig(g.temperature))
	if err != nil {
		return "", fmt.Errorf("failed to generate evaluation: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("no response generated (nil response)")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no text content in response")
	}

	return text, nil
}

func generateConfig(temperature float32) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  maxOutputTokens,
		ResponseMIMEType: "application/json",
		ResponseSchema:   feedbackSchema(),
	}
}

// feedbackSchema describes the JSON object ParseFeedback accepts.
func feedbackSchema() *genai.Schema {
	minScore, maxScore := float64(MinScore), float64(MaxScore)
	score := func(description string) *genai.Schema {
		return &genai.Schema{
			Type:        genai.TypeNumber,
			Description: description,
			Minimum:     &minScore,
			Maximum:     &maxScore,
		}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"structure_score":    score("Structure score out of 100"),
			"presentation_score": score("Presentation score out of 100"),
			"clarity_score":      score("Clarity score out of 100"),
			"weighted_total":     score("Weighted total out of 100"),
			"comments": {
				Type:        genai.TypeArray,
				Description: fmt.Sprintf("Exactly %d improvement comments of %d to %d words, most important first", CommentCount, MinCommentWords, MaxCommentWords),
				Items:       &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"structure_score", "presentation_score", "clarity_score", "comments"},
	}
}
