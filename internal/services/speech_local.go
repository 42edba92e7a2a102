package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math"
	"os/exec"
	"strings"

	"github.com/bobarin/ugcstudio/internal/models"
)

// espeakVoices maps project languages to espeak-ng voice names.
var espeakVoices = map[models.Language]string{
	models.LanguageJA: "ja",
	models.LanguageEN: "en-us",
	models.LanguageKO: "ko",
	models.LanguageZH: "cmn",
	models.LanguageFR: "fr",
	models.LanguageIT: "it",
}

// LocalSpeech renders speech with a local espeak-ng binary. No network.
type LocalSpeech struct {
	binPath string
}

var _ TTSService = (*LocalSpeech)(nil)

func NewLocalSpeech(binPath string) *LocalSpeech {
	return &LocalSpeech{binPath: binPath}
}

// FindEspeak returns the path of the first speech binary on PATH, or "".
func FindEspeak() string {
	for _, name := range []string{"espeak-ng", "espeak"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

func (s *LocalSpeech) Name() string {
	return SpeechProviderLocal
}

func (s *LocalSpeech) GenerateSpeech(ctx context.Context, req SpeechRequest) (*TTSResponse, error) {
	voice, ok := espeakVoices[req.Language]
	if !ok {
		voice = "en-us"
	}
	rate := req.Voice.ProsodyRate
	if rate <= 0 {
		rate = 1
	}
	pitch := req.Voice.Pitch
	if pitch <= 0 {
		pitch = 1
	}

	args := []string{
		"-v", voice,
		"-s", fmt.Sprintf("%d", int(math.Round(175*rate))),
		"-p", fmt.Sprintf("%d", int(math.Min(99, math.Round(50*pitch)))),
		"--stdout",
		strings.ReplaceAll(req.Text, "\n", ". "),
	}

	cmd := exec.CommandContext(ctx, s.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("espeak failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	audio := stdout.Bytes()
	durationMs, err := wavDurationMs(audio)
	if err != nil {
		log.Printf("[Speech] Could not read espeak WAV length, estimating: %v", err)
		durationMs = estimateAudioDuration(req)
	}

	return &TTSResponse{AudioData: audio, DurationMs: durationMs, Format: "wav"}, nil
}
