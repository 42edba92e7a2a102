package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ---------------------------------------------------------------------------
// ElevenLabs Text-to-Speech Service
// Uses ElevenLabs REST API to convert text into speech audio.
// Model: eleven_multilingual_v2 (covers every project language)
// ---------------------------------------------------------------------------

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io"
	elevenLabsDefaultModel = "eleven_multilingual_v2"
	elevenLabsDefaultVoice = "21m00Tcm4TlvDq8ikWAM" // Rachel
)

// ElevenLabsService handles text-to-speech via ElevenLabs API.
type ElevenLabsService struct {
	apiKey  string
	voiceID string
	modelID string
	baseURL string
	client  *http.Client
}

// Ensure ElevenLabsService implements TTSService at compile time.
var _ TTSService = (*ElevenLabsService)(nil)

// NewElevenLabsServiceWithVoice creates an ElevenLabs service with a custom voice ID.
func NewElevenLabsServiceWithVoice(apiKey, voiceID string) *ElevenLabsService {
	if voiceID == "" {
		voiceID = elevenLabsDefaultVoice
	}
	return &ElevenLabsService{
		apiKey:  apiKey,
		voiceID: voiceID,
		modelID: elevenLabsDefaultModel,
		baseURL: elevenLabsBaseURL,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (s *ElevenLabsService) Name() string {
	return SpeechProviderElevenLabs
}

// ---------------------------------------------------------------------------
// Request types
// ---------------------------------------------------------------------------

type elevenLabsRequest struct {
	ModelID       string                  `json:"model_id"`
	Text          string                  `json:"text"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
	LanguageCode  string                  `json:"language_code,omitempty"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// GenerateSpeech converts text to speech using ElevenLabs.
// Longer pauses map to a steadier delivery; breathiness maps to style exaggeration.
func (s *ElevenLabsService) GenerateSpeech(ctx context.Context, req SpeechRequest) (*TTSResponse, error) {
	reqBody := elevenLabsRequest{
		ModelID: s.modelID,
		Text:    req.Text,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       clamp01(0.35 + float64(req.Voice.PauseMs)/2000),
			SimilarityBoost: 0.8,
			Style:           clamp01(req.Voice.Breathiness / 100),
			UseSpeakerBoost: true,
		},
		LanguageCode: string(req.Language),
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ElevenLabs request: %w", err)
	}

	// POST /v1/text-to-speech/{voice_id}
	url := fmt.Sprintf("%s/v1/text-to-speech/%s", s.baseURL, s.voiceID)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create ElevenLabs request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("xi-api-key", s.apiKey)

	log.Printf("[ElevenLabs] Generating speech (voiceID=%s, model=%s, lang=%s, textLen=%d)",
		s.voiceID, s.modelID, req.Language, len(req.Text))

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ElevenLabs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Provider: "ElevenLabs", StatusCode: resp.StatusCode, Body: string(body)}
	}

	// Read audio data; the response body IS the audio file
	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ElevenLabs audio response: %w", err)
	}

	if len(audioData) == 0 {
		return nil, fmt.Errorf("ElevenLabs returned empty audio")
	}

	// ElevenLabs doesn't return a duration for this endpoint
	durationMs := estimateAudioDuration(req)

	log.Printf("[ElevenLabs] Speech generated (%d bytes, estimated %dms)", len(audioData), durationMs)

	return &TTSResponse{
		AudioData:  audioData,
		DurationMs: durationMs,
		Format:     "mp3",
	}, nil
}
