package services

import "context"

// MockSpeech returns silence of the estimated spoken length.
type MockSpeech struct{}

var _ TTSService = (*MockSpeech)(nil)

func NewMockSpeech() *MockSpeech {
	return &MockSpeech{}
}

func (s *MockSpeech) Name() string {
	return SpeechProviderMock
}

func (s *MockSpeech) GenerateSpeech(ctx context.Context, req SpeechRequest) (*TTSResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ms := estimateAudioDuration(req)
	return &TTSResponse{AudioData: silentWAV(ms), DurationMs: ms, Format: "wav"}, nil
}
