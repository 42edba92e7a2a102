package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"path"
	"strings"
	"sync"

	"github.com/bobarin/ugcstudio/internal/models"
	"github.com/bobarin/ugcstudio/internal/services"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentPuts = 2

// artifacts are the outputs of one finished render.
type artifacts struct {
	composedURL     string
	audioURL        string
	videoURL        string
	artifactURL     string
	artifactMime    string
	downloadName    string
	targetSec       float64
	scores          models.QualityGateScores
	overlayProvider string
	speechProvider  string
}

// renderLocal composes, scores, speaks and encodes one item without touching the network.
func (o *Orchestrator) renderLocal(ctx context.Context, item models.QueueItem, state models.ProjectState) (*artifacts, error) {
	frame, scores, err := composeWithQuality(ctx, o.opts.Overlay.Local, state, item.Seed)
	if err != nil {
		return nil, err
	}

	speech := o.opts.LocalSpeech
	audio, err := speech.GenerateSpeech(ctx, speechRequest(state))
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}

	clip, mimeType, err := o.opts.Encoder.EncodePlaceholder(ctx, frame.Image, item.TargetDurationSec)
	if err != nil {
		return nil, fmt.Errorf("placeholder encode failed: %w", err)
	}

	pngData, err := encodePNG(frame.Image)
	if err != nil {
		return nil, err
	}

	out := &artifacts{
		artifactMime:    mimeType,
		downloadName:    withExt(item.DownloadName, extFor(mimeType)),
		targetSec:       item.TargetDurationSec,
		scores:          scores,
		overlayProvider: frame.Provider,
		speechProvider:  speech.Name(),
	}
	urls, err := o.putBlobs(ctx, []blob{
		{name: fmt.Sprintf("composed_%d.png", item.Index), data: pngData, contentType: "image/png"},
		{name: fmt.Sprintf("voice_%d.%s", item.Index, audio.Format), data: audio.AudioData, contentType: audio.MimeType()},
		{name: out.downloadName, data: clip, contentType: mimeType},
	})
	if err != nil {
		return nil, err
	}
	out.composedURL, out.audioURL, out.artifactURL = urls[0], urls[1], urls[2]
	return out, nil
}

// complete stores the artifacts on the item and marks it done.
func (o *Orchestrator) complete(id string, out *artifacts) {
	item, err := o.mutate(id, func(item *models.QueueItem) error {
		if err := item.Transition(models.QueueStatusDone); err != nil {
			return err
		}
		scores := out.scores
		item.Progress = 100
		item.QualityGate = &scores
		item.OverlayProvider = out.overlayProvider
		item.SpeechProvider = out.speechProvider
		item.TargetDurationSec = out.targetSec
		item.DownloadName = out.downloadName
		item.ArtifactMime = out.artifactMime
		if out.composedURL != "" {
			item.ComposedImageURL = out.composedURL
		}
		if out.audioURL != "" {
			item.AudioURL = out.audioURL
		}
		if out.videoURL != "" {
			item.VideoURL = out.videoURL
		}
		item.ArtifactURL = out.artifactURL
		return nil
	})
	if err != nil {
		log.Printf("[Orchestrator] Could not complete item %s: %v", id, err)
		o.revoke(context.Background(), []string{out.composedURL, out.audioURL})
		return
	}
	log.Printf("[Orchestrator] Item #%d done (%s, overall=%.3f)", item.Index, item.ArtifactMime, out.scores.Overall)
	o.record(item)
}

type blob struct {
	name        string
	data        []byte
	contentType string
}

// putBlobs stores the blobs concurrently and returns their URLs in order.
// On failure every blob already stored is revoked.
func (o *Orchestrator) putBlobs(ctx context.Context, blobs []blob) ([]string, error) {
	urls := make([]string, len(blobs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPuts)
	for i, b := range blobs {
		g.Go(func() error {
			u, err := o.opts.Blobs.Put(gctx, b.name, b.data, b.contentType)
			if err != nil {
				return fmt.Errorf("failed to store %s: %w", b.name, err)
			}
			mu.Lock()
			urls[i] = u
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var stored []string
		for _, u := range urls {
			if u != "" {
				stored = append(stored, u)
			}
		}
		o.revoke(context.Background(), stored)
		return nil, err
	}
	return urls, nil
}

func speechRequest(state models.ProjectState) services.SpeechRequest {
	return services.SpeechRequest{Text: state.Script, Language: state.Language, Voice: state.Voice}
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode composed frame: %w", err)
	}
	return buf.Bytes(), nil
}

func extFor(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/gif"):
		return ".gif"
	case strings.HasPrefix(mimeType, "video/mp4"):
		return ".mp4"
	}
	return ".webm"
}

func withExt(name, ext string) string {
	return strings.TrimSuffix(name, path.Ext(name)) + ext
}
