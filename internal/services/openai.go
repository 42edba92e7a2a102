package services

import (
	"bytes"
	"context"
	"fmt"
	"log"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIService struct {
	client *openai.Client
}

func NewOpenAIService(apiKey string) *OpenAIService {
	return &OpenAIService{
		client: openai.NewClient(apiKey),
	}
}

// NewOpenAIServiceWithBaseURL points the client at an OpenAI-compatible endpoint.
func NewOpenAIServiceWithBaseURL(apiKey, baseURL string) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIService{client: openai.NewClientWithConfig(cfg)}
}

func (s *OpenAIService) Name() string {
	return "whisper"
}

// ---------------------------------------------------------------------------
// Whisper Transcription: measured speech length
// ---------------------------------------------------------------------------

// ProbeDuration transcribes the audio with Whisper and returns the duration,
// in seconds, that Whisper measured.
func (s *OpenAIService) ProbeDuration(ctx context.Context, audio []byte, format string) (float64, error) {
	if format == "" {
		format = "mp3"
	}

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   bytes.NewReader(audio),
		FilePath: "audio." + format, // Filename hint for the API (required by the library)
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return 0, fmt.Errorf("whisper transcription failed: %w", err)
	}

	if resp.Duration <= 0 {
		return 0, fmt.Errorf("whisper returned no duration (text: %q)", truncateString(resp.Text, 80))
	}

	log.Printf("[Whisper] Measured %.1fs of speech (language: %s)", resp.Duration, resp.Language)

	return resp.Duration, nil
}

// truncateString truncates a string to maxLen and appends "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
