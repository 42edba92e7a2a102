package project

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/bobarin/ugcstudio/internal/models"
)

const (
	cjkCharsPerSec   = 7.0
	latinWordsPerSec = 2.6
	minEstimatedSec  = 5.0
	timelineStepSec  = 2
)

var phonemes = []string{"a", "i", "u", "e", "o"}

// EstimateDurationSec estimates the spoken length of a script in seconds,
// counting a pause after every non-empty line but the last.
func EstimateDurationSec(script string, lang models.Language, pauseMs int) float64 {
	var speech float64
	lines := 0
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines++
		if IsCJK(lang) {
			speech += float64(utf8.RuneCountInString(strings.Join(strings.Fields(line), ""))) / cjkCharsPerSec
		} else {
			speech += float64(len(strings.Fields(line))) / latinWordsPerSec
		}
	}
	if lines > 1 {
		speech += float64(lines-1) * float64(pauseMs) / 1000
	}

	sec := math.Round(speech*10) / 10
	if sec < minEstimatedSec {
		return minEstimatedSec
	}
	return ClampClipLength(sec)
}

// LipSyncTimeline returns one mouth cue every two seconds over the clip.
func LipSyncTimeline(lengthSec float64) []models.LipSyncCue {
	length := math.Min(lengthSec, MaxClipLengthSec)
	if length <= 0 {
		return []models.LipSyncCue{}
	}
	n := int(math.Ceil(length / timelineStepSec))
	cues := make([]models.LipSyncCue, n)
	for i := range cues {
		cues[i] = models.LipSyncCue{
			T:         float64(i * timelineStepSec),
			MouthOpen: round2(math.Sin(float64(i))*0.4 + 0.5),
			Phoneme:   phonemes[i%len(phonemes)],
		}
	}
	return cues
}
