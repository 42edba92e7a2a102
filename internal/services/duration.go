package services

import "context"

// DurationProber measures how long an audio payload actually plays.
type DurationProber interface {
	ProbeDuration(ctx context.Context, audio []byte, format string) (float64, error)
}

var (
	_ DurationProber = (*OpenAIService)(nil)
	_ DurationProber = (*FFmpegService)(nil)
)

// SelectProber prefers Whisper when an OpenAI key is configured, else ffprobe.
func SelectProber(openAIKey, openAIBaseURL string, ff *FFmpegService) DurationProber {
	if openAIKey != "" {
		return NewOpenAIServiceWithBaseURL(openAIKey, openAIBaseURL)
	}
	return ff
}
