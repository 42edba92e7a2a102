package services

import (
	"context"
	"math"

	"github.com/bobarin/ugcstudio/internal/models"
	"github.com/bobarin/ugcstudio/internal/project"
)

// ---------------------------------------------------------------------------
// TTSService: common interface for text-to-speech providers
// ElevenLabs, the local espeak binary and the silent mock all implement it so
// the orchestrator can use whichever is configured.
// ---------------------------------------------------------------------------

const (
	SpeechProviderElevenLabs = "elevenlabs"
	SpeechProviderLocal      = "local-espeak"
	SpeechProviderMock       = "mock-speech"
)

// TTSResponse is the common response type from any TTS provider.
type TTSResponse struct {
	AudioData  []byte
	DurationMs int
	Format     string // "mp3", "wav"
}

// MimeType returns the content type of the audio payload.
func (r *TTSResponse) MimeType() string {
	if r.Format == "wav" {
		return "audio/wav"
	}
	return "audio/mpeg"
}

type SpeechRequest struct {
	Text     string
	Language models.Language
	Voice    models.VoiceOptions
}

// TTSService is the interface that any TTS provider must implement.
type TTSService interface {
	Name() string
	GenerateSpeech(ctx context.Context, req SpeechRequest) (*TTSResponse, error)
}

// SpeechConfig carries everything SelectSpeech needs to choose a provider.
type SpeechConfig struct {
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string
	ElevenLabsModelID string
	ElevenLabsBaseURL string
	EspeakPath        string
}

// SelectSpeech picks the cloud provider when a key is set, then the local
// speech binary, then the silent mock.
func SelectSpeech(cfg SpeechConfig) TTSService {
	switch {
	case cfg.ElevenLabsAPIKey != "":
		svc := NewElevenLabsServiceWithVoice(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID)
		if cfg.ElevenLabsModelID != "" {
			svc.modelID = cfg.ElevenLabsModelID
		}
		if cfg.ElevenLabsBaseURL != "" {
			svc.baseURL = cfg.ElevenLabsBaseURL
		}
		return svc
	case cfg.EspeakPath != "":
		return NewLocalSpeech(cfg.EspeakPath)
	}
	return NewMockSpeech()
}

// estimateAudioDuration scales the script-length estimate by the prosody rate.
func estimateAudioDuration(req SpeechRequest) int {
	sec := project.EstimateDurationSec(req.Text, req.Language, req.Voice.PauseMs)
	rate := req.Voice.ProsodyRate
	if rate <= 0 {
		rate = 1
	}
	return int(math.Round(sec / rate * 1000))
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
