package orchestrator

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/bobarin/ugcstudio/internal/compositor"
	"github.com/bobarin/ugcstudio/internal/models"
	"github.com/bobarin/ugcstudio/internal/project"
	"github.com/bobarin/ugcstudio/internal/services"
)

const (
	cloudStartProgress   = 8
	cloudOverlayProgress = 28
	cloudSpeechProgress  = 56
)

// runCloud renders queued items one after another. The first error fails the
// active item and stops the run; later items stay queued.
func (o *Orchestrator) runCloud(ctx context.Context, cloud models.CloudSettings) {
	for {
		// A render that finished before the cancel stays done.
		if ctx.Err() != nil {
			log.Printf("[Orchestrator] Cloud run cancelled")
			return
		}
		item, state, ok := o.startNextQueued()
		if !ok {
			log.Printf("[Orchestrator] Cloud queue drained")
			return
		}
		state.Cloud = cloud

		out, err := o.renderCloud(ctx, item, state)
		if err != nil {
			o.failActive(err)
			return
		}
		o.complete(item.ID, out)
	}
}

func (o *Orchestrator) startNextQueued() (models.QueueItem, models.ProjectState, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		if e.item.Status != models.QueueStatusQueued {
			continue
		}
		if err := e.item.Transition(models.QueueStatusRendering); err != nil {
			log.Printf("[Orchestrator] %v", err)
			return models.QueueItem{}, models.ProjectState{}, false
		}
		e.item.Progress = cloudStartProgress
		return e.item, e.state, true
	}
	return models.QueueItem{}, models.ProjectState{}, false
}

func (o *Orchestrator) renderCloud(ctx context.Context, item models.QueueItem, state models.ProjectState) (*artifacts, error) {
	provider := compositor.Select(state, o.opts.Overlay)
	frame, scores, err := composeWithQuality(ctx, provider, state, item.Seed)
	if err != nil {
		return nil, err
	}
	pngData, err := encodePNG(frame.Image)
	if err != nil {
		return nil, err
	}
	o.setProgress(item.ID, cloudOverlayProgress)

	speech := o.opts.NewSpeech(state.Cloud)
	audio, err := speech.GenerateSpeech(ctx, speechRequest(state))
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	target := item.TargetDurationSec
	if state.AutoDurationFromAudio {
		target = o.measuredDuration(ctx, audio)
	}

	urls, err := o.putBlobs(ctx, []blob{
		{name: fmt.Sprintf("composed_%d.png", item.Index), data: pngData, contentType: "image/png"},
		{name: fmt.Sprintf("voice_%d.%s", item.Index, audio.Format), data: audio.AudioData, contentType: audio.MimeType()},
	})
	if err != nil {
		return nil, err
	}
	o.mutate(item.ID, func(it *models.QueueItem) error {
		it.Progress = cloudSpeechProgress
		it.ComposedImageURL = urls[0]
		it.AudioURL = urls[1]
		it.TargetDurationSec = target
		it.QualityGate = &scores
		it.OverlayProvider = frame.Provider
		it.SpeechProvider = speech.Name()
		return nil
	})

	videoURL, err := o.opts.NewLipSync(state.Cloud).GenerateLipSync(ctx, services.LipSyncRequest{
		Image:       pngData,
		Audio:       audio,
		Language:    state.Language,
		AspectRatio: state.AspectRatio,
		ModelID:     state.Cloud.SyncModelID,
	})
	if err != nil {
		return nil, err
	}

	return &artifacts{
		composedURL:     urls[0],
		audioURL:        urls[1],
		videoURL:        videoURL,
		artifactURL:     videoURL,
		artifactMime:    "video/mp4",
		downloadName:    withExt(item.DownloadName, ".mp4"),
		targetSec:       target,
		scores:          scores,
		overlayProvider: frame.Provider,
		speechProvider:  speech.Name(),
	}, nil
}

// measuredDuration probes the real audio length, rounded to 0.1s. Probe
// failures fall back to the length the speech provider reported.
func (o *Orchestrator) measuredDuration(ctx context.Context, audio *services.TTSResponse) float64 {
	sec := float64(audio.DurationMs) / 1000
	if o.opts.Prober != nil {
		probed, err := o.opts.Prober.ProbeDuration(ctx, audio.AudioData, audio.Format)
		if err != nil {
			log.Printf("[Orchestrator] Duration probe failed, using estimate: %v", err)
		} else {
			sec = probed
		}
	}
	return project.ClampClipLength(math.Round(sec*10) / 10)
}
