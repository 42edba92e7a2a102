// Package orchestrator turns a project into a queue of render jobs and drives
// each job through compositing, the quality gate, speech and encoding.
package orchestrator

import (
	"context"
	"image"
	"log"
	"os"
	"sync"
	"time"

	"github.com/bobarin/ugcstudio/internal/compositor"
	"github.com/bobarin/ugcstudio/internal/models"
	"github.com/bobarin/ugcstudio/internal/services"
	"github.com/bobarin/ugcstudio/internal/storage"
)

const (
	MaxQueueItems       = 60
	defaultTickInterval = 500 * time.Millisecond
	recordTimeout       = 5 * time.Second
)

// Encoder turns a composed frame into a placeholder clip.
type Encoder interface {
	EncodePlaceholder(ctx context.Context, src image.Image, lengthSec float64) ([]byte, string, error)
}

// LipSyncer animates a still frame with an audio track and returns the video URL.
type LipSyncer interface {
	GenerateLipSync(ctx context.Context, req services.LipSyncRequest) (string, error)
}

// Recorder persists items that reached a terminal status.
type Recorder interface {
	RecordItem(ctx context.Context, projectName string, item models.QueueItem) error
}

type Options struct {
	Blobs   storage.BlobStore
	Encoder Encoder
	Prober  services.DurationProber
	Overlay compositor.Deps

	// LocalSpeech is used in demo mode and in cloud mode without an ElevenLabs key.
	LocalSpeech services.TTSService
	NewSpeech   func(cloud models.CloudSettings) services.TTSService
	NewLipSync  func(cloud models.CloudSettings) LipSyncer

	Recorder     Recorder
	TickInterval time.Duration
}

type entry struct {
	item  models.QueueItem
	state models.ProjectState
}

// Orchestrator owns the render queue. At most one driver runs at a time.
type Orchestrator struct {
	opts Options

	mu          sync.Mutex
	entries     []*entry
	projectName string
	running     bool
	cancel      context.CancelFunc
	done        chan struct{}
}

func New(opts Options) *Orchestrator {
	if opts.Blobs == nil {
		opts.Blobs = storage.NewMemoryStore()
	}
	if opts.Encoder == nil {
		opts.Encoder = services.NewFFmpegService(os.TempDir(), "")
	}
	if opts.Overlay.Local == nil {
		opts.Overlay.Local = compositor.NewLocal()
	}
	if opts.LocalSpeech == nil {
		opts.LocalSpeech = services.NewMockSpeech()
	}
	if opts.NewSpeech == nil {
		local := opts.LocalSpeech
		opts.NewSpeech = func(cloud models.CloudSettings) services.TTSService {
			if cloud.ElevenLabsAPIKey == "" {
				return local
			}
			return services.SelectSpeech(services.SpeechConfig{
				ElevenLabsAPIKey:  cloud.ElevenLabsAPIKey,
				ElevenLabsVoiceID: cloud.ElevenLabsVoiceID,
			})
		}
	}
	if opts.NewLipSync == nil {
		opts.NewLipSync = func(cloud models.CloudSettings) LipSyncer {
			return services.NewSyncService(cloud.SyncAPIToken)
		}
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	return &Orchestrator{opts: opts}
}

// Start launches the driver for the current queue. The project's cloud
// settings pick the driver; each item still renders from its own snapshot.
func (o *Orchestrator) Start(state models.ProjectState) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return ErrRunning
	}
	if o.firstPending() == nil {
		return ErrEmptyQueue
	}
	cloud := state.Cloud
	if cloud.Mode == models.CloudModeCloud {
		if cloud.SyncAPIToken == "" {
			return &ConfigError{Field: "syncApiToken", Reason: "is required in cloud mode"}
		}
		if state.Avatar == nil || state.Avatar.DataURL == "" {
			return &ConfigError{Field: "avatar", Reason: "is required in cloud mode"}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	o.running = true
	o.cancel = cancel
	o.done = done

	go func() {
		defer close(done)
		defer cancel()
		if cloud.Mode == models.CloudModeCloud {
			log.Printf("[Orchestrator] Cloud driver started")
			o.runCloud(ctx, cloud)
		} else {
			log.Printf("[Orchestrator] Demo driver started (tick=%v)", o.opts.TickInterval)
			o.runDemo(ctx)
		}

		o.mu.Lock()
		o.running = false
		o.cancel = nil
		o.mu.Unlock()
		log.Printf("[Orchestrator] Driver stopped")
	}()
	return nil
}

// Cancel stops the active driver, if any.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the most recently started driver has exited.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Close cancels the driver, waits for it and revokes every blob the queue owns.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.Cancel()

	waited := make(chan struct{})
	go func() {
		o.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		return ctx.Err()
	}

	o.mu.Lock()
	urls := ownedURLs(o.entries)
	o.mu.Unlock()
	o.revoke(ctx, urls)
	return nil
}

// Items returns a copy of the queue in order.
func (o *Orchestrator) Items() []models.QueueItem {
	o.mu.Lock()
	defer o.mu.Unlock()
	items := make([]models.QueueItem, len(o.entries))
	for i, e := range o.entries {
		items[i] = e.item
	}
	return items
}

func (o *Orchestrator) Item(id string) (models.QueueItem, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e := o.find(id); e != nil {
		return e.item, nil
	}
	return models.QueueItem{}, ErrItemNotFound
}

func (o *Orchestrator) find(id string) *entry {
	for _, e := range o.entries {
		if e.item.ID == id {
			return e
		}
	}
	return nil
}

// firstPending returns the oldest item that is not done or failed.
func (o *Orchestrator) firstPending() *entry {
	for _, e := range o.entries {
		if !e.item.Status.IsTerminal() {
			return e
		}
	}
	return nil
}

// mutate applies fn to the item with the given id under the lock and returns
// a copy of the result.
func (o *Orchestrator) mutate(id string, fn func(item *models.QueueItem) error) (models.QueueItem, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e := o.find(id)
	if e == nil {
		return models.QueueItem{}, ErrItemNotFound
	}
	if err := fn(&e.item); err != nil {
		return e.item, err
	}
	return e.item, nil
}

func (o *Orchestrator) setProgress(id string, progress float64) {
	o.mutate(id, func(item *models.QueueItem) error {
		item.Progress = progress
		return nil
	})
}

// fail marks the item failed with the error message and records it.
func (o *Orchestrator) fail(id string, cause error) {
	item, err := o.mutate(id, func(item *models.QueueItem) error {
		if err := item.Transition(models.QueueStatusFailed); err != nil {
			return err
		}
		item.Error = cause.Error()
		return nil
	})
	if err != nil {
		log.Printf("[Orchestrator] Could not fail item %s: %v", id, err)
		return
	}
	log.Printf("[Orchestrator] Item #%d failed: %v", item.Index, cause)
	o.record(item)
}

func (o *Orchestrator) record(item models.QueueItem) {
	if o.opts.Recorder == nil {
		return
	}
	o.mu.Lock()
	projectName := o.projectName
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := o.opts.Recorder.RecordItem(ctx, projectName, item); err != nil {
		log.Printf("[Orchestrator] Failed to record item #%d: %v", item.Index, err)
	}
}

func (o *Orchestrator) revoke(ctx context.Context, urls []string) {
	for _, u := range urls {
		if err := o.opts.Blobs.Revoke(ctx, u); err != nil {
			log.Printf("[Orchestrator] Failed to revoke %s: %v", u, err)
		}
	}
}

// ownedURLs lists the blob URLs produced for the given entries. Lip-sync
// video URLs belong to the provider and are not included.
func ownedURLs(entries []*entry) []string {
	var urls []string
	for _, e := range entries {
		for _, u := range []string{e.item.ComposedImageURL, e.item.AudioURL, e.item.ArtifactURL} {
			if u != "" && u != e.item.VideoURL {
				urls = append(urls, u)
			}
		}
	}
	return urls
}
