package services

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"
)

const geminiImageModel = "gemini-2.5-flash-image"

// GeminiService refines composed frames with a Gemini image model.
type GeminiService struct {
	apiKey  string
	model   string
	baseURL string
}

func NewGeminiService(apiKey string) *GeminiService {
	return &GeminiService{apiKey: apiKey, model: geminiImageModel}
}

// NewGeminiServiceWithOptions overrides the model and API endpoint. Empty values keep the defaults.
func NewGeminiServiceWithOptions(apiKey, model, baseURL string) *GeminiService {
	s := NewGeminiService(apiKey)
	if model != "" {
		s.model = model
	}
	s.baseURL = baseURL
	return s
}

// RefineFrame sends the PNG frame with an edit instruction and returns the
// first image the model answers with.
func (s *GeminiService) RefineFrame(ctx context.Context, png []byte, prompt string) ([]byte, error) {
	cfg := &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if s.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: s.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(png, "image/png"),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	log.Printf("[Gemini] Refining frame (model=%s, imageSize=%d bytes)", s.model, len(png))

	resp, err := client.Models.GenerateContent(ctx, s.model, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini refine failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no candidates in response")
	}

	var textParts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
		if part.Text != "" {
			textParts = append(textParts, part.Text)
		}
	}

	if len(textParts) > 0 {
		return nil, fmt.Errorf("gemini returned text instead of image: %s", truncateString(textParts[0], 200))
	}
	return nil, fmt.Errorf("no image data found in response (got %d parts, none with inlineData)", len(resp.Candidates[0].Content.Parts))
}
