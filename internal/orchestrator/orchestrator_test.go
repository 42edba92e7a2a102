package orchestrator

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobarin/ugcstudio/internal/compositor"
	"github.com/bobarin/ugcstudio/internal/models"
	"github.com/bobarin/ugcstudio/internal/project"
	"github.com/bobarin/ugcstudio/internal/services"
	"github.com/bobarin/ugcstudio/internal/storage"
)

// fakeProvider returns a fixed frame and records the seeds it was asked for.
type fakeProvider struct {
	mu    sync.Mutex
	img   *image.RGBA
	seeds []int
}

func checkerFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 320, 569))
	for y := 0; y < 569; y++ {
		for x := 0; x < 320; x++ {
			if (x/8+y/8)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func uniformFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 72, 128))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 128, 128, 128, 255
	}
	return img
}

func (p *fakeProvider) Name() string { return compositor.ProviderLocal }

func (p *fakeProvider) Synthesize(ctx context.Context, in compositor.Input) (*compositor.Result, error) {
	p.mu.Lock()
	p.seeds = append(p.seeds, in.Seed)
	p.mu.Unlock()
	return &compositor.Result{Image: p.img, Provider: compositor.ProviderLocal}, nil
}

type fakeEncoder struct {
	mu     sync.Mutex
	calls  int
	failOn int
}

func (e *fakeEncoder) EncodePlaceholder(ctx context.Context, src image.Image, lengthSec float64) ([]byte, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.calls == e.failOn {
		return nil, "", errors.New("encoder exploded")
	}
	return []byte("webm"), "video/webm;codecs=vp9", nil
}

type fakeSpeech struct {
	mu     sync.Mutex
	calls  int
	failOn int
}

func (*fakeSpeech) Name() string { return "fake-speech" }

func (s *fakeSpeech) GenerateSpeech(ctx context.Context, req services.SpeechRequest) (*services.TTSResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls == s.failOn {
		return nil, errors.New("boom")
	}
	return &services.TTSResponse{AudioData: []byte("RIFF"), DurationMs: 6300, Format: "wav"}, nil
}

type fakeLipSync struct {
	mu      sync.Mutex
	calls   int
	failOn  int
	block   bool
	entered chan struct{}
	// succeeded runs after call n returns a video.
	succeeded func(n int)
}

func (l *fakeLipSync) GenerateLipSync(ctx context.Context, req services.LipSyncRequest) (string, error) {
	l.mu.Lock()
	l.calls++
	n := l.calls
	l.mu.Unlock()

	if l.block {
		if l.entered != nil {
			close(l.entered)
		}
		<-ctx.Done()
		return "", ctx.Err()
	}
	if n == l.failOn {
		return "", &services.GenerationFailedError{Provider: "Sync", Payload: `{"status":"FAILED"}`}
	}
	if l.succeeded != nil {
		l.succeeded(n)
	}
	return "https://cdn.sync.so/video.mp4", nil
}

type fakeProber struct{ sec float64 }

func (p fakeProber) ProbeDuration(ctx context.Context, audio []byte, format string) (float64, error) {
	return p.sec, nil
}

type fakeRecorder struct {
	mu    sync.Mutex
	items []models.QueueItem
}

func (r *fakeRecorder) RecordItem(ctx context.Context, projectName string, item models.QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, item)
	return nil
}

type fixture struct {
	orch     *Orchestrator
	blobs    *storage.MemoryStore
	provider *fakeProvider
	encoder  *fakeEncoder
	speech   *fakeSpeech
	lipsync  *fakeLipSync
	recorder *fakeRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		blobs:    storage.NewMemoryStore(),
		provider: &fakeProvider{img: checkerFrame()},
		encoder:  &fakeEncoder{},
		speech:   &fakeSpeech{},
		lipsync:  &fakeLipSync{},
		recorder: &fakeRecorder{},
	}
	f.orch = New(Options{
		Blobs:        f.blobs,
		Encoder:      f.encoder,
		Prober:       fakeProber{sec: 7.46},
		Overlay:      compositor.Deps{Local: f.provider},
		LocalSpeech:  f.speech,
		NewSpeech:    func(models.CloudSettings) services.TTSService { return f.speech },
		NewLipSync:   func(models.CloudSettings) LipSyncer { return f.lipsync },
		Recorder:     f.recorder,
		TickInterval: time.Millisecond,
	})
	return f
}

func testAsset(name string) *models.UploadedAsset {
	return &models.UploadedAsset{Name: name, DataURL: project.EncodeDataURL([]byte("x"), "image/png"), MimeType: "image/png"}
}

func testState(count int) models.ProjectState {
	s := project.Defaults()
	s.ProjectName = "Spring launch"
	s.ScenarioCount = count
	s.BatchCount = count
	s.Avatar = testAsset("avatar.png")
	s.ProductImage = testAsset("product.png")
	return s
}

func cloudState(count int) models.ProjectState {
	s := testState(count)
	s.Cloud.Mode = models.CloudModeCloud
	s.Cloud.SyncAPIToken = "sync-token"
	return s
}

func waitDriver(t *testing.T, o *Orchestrator) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		o.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("driver did not stop")
	}
}

func statuses(items []models.QueueItem) []models.QueueStatus {
	out := make([]models.QueueStatus, len(items))
	for i, it := range items {
		out[i] = it.Status
	}
	return out
}

func TestBuildQueueAndAppend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	state := testState(5)

	items, err := f.orch.BuildQueue(ctx, state, false)
	if err != nil {
		t.Fatalf("BuildQueue: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(items))
	}
	for i, it := range items {
		index := i + 1
		if it.Index != index || it.Status != models.QueueStatusQueued || it.Progress != 0 {
			t.Errorf("item %d: %+v", i, it)
		}
		if want := state.Variation.Seed + index*17; it.Seed != want || it.Recipe.Seed != want {
			t.Errorf("item %d seed = %d, want %d", index, it.Seed, want)
		}
		if it.Recipe.Resolution != (models.Resolution{Width: 720, Height: 1280}) {
			t.Errorf("resolution = %v", it.Recipe.Resolution)
		}
		if it.Recipe.ProductImageName != "product.png" {
			t.Errorf("product = %q", it.Recipe.ProductImageName)
		}
		if !strings.Contains(it.FFmpegCommand, "output_") || it.DownloadName == "" {
			t.Errorf("item %d missing command or download name", index)
		}
	}

	if _, err := f.orch.BuildQueue(ctx, state, true); err != nil {
		t.Fatalf("append: %v", err)
	}
	all := f.orch.Items()
	if len(all) != 10 {
		t.Fatalf("expected 10 items after append, got %d", len(all))
	}
	if all[9].Index != 10 {
		t.Errorf("last index = %d", all[9].Index)
	}

	// A rebuild replaces the queue.
	items, err = f.orch.BuildQueue(ctx, state, false)
	if err != nil || len(items) != 5 || len(f.orch.Items()) != 5 {
		t.Fatalf("rebuild: %d items, %v", len(f.orch.Items()), err)
	}
}

func TestBuildQueueCountRules(t *testing.T) {
	f := newFixture(t)
	state := testState(0)
	state.ScenarioCount = 4
	state.BatchCount = 50

	items, _ := f.orch.BuildQueue(context.Background(), state, false)
	if len(items) != 4 {
		t.Errorf("same person/product uses scenarioCount: got %d", len(items))
	}

	state.GenerationMode = models.ModeSamePersonProductSwap
	items, _ = f.orch.BuildQueue(context.Background(), state, false)
	if len(items) != 20 {
		t.Errorf("batchCount is clamped to 20: got %d", len(items))
	}
}

func TestBuildQueueCapsAtSixty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	state := testState(20)
	state.GenerationMode = models.ModeSamePersonProductSwap
	state.BatchCount = 20

	f.orch.BuildQueue(ctx, state, false)
	f.orch.BuildQueue(ctx, state, true)
	state.BatchCount = 15
	f.orch.BuildQueue(ctx, state, true)
	state.BatchCount = 10
	added, err := f.orch.BuildQueue(ctx, state, true)
	if err != nil {
		t.Fatalf("BuildQueue: %v", err)
	}
	if len(added) != 5 || len(f.orch.Items()) != MaxQueueItems {
		t.Errorf("added %d, total %d", len(added), len(f.orch.Items()))
	}
	if _, err := f.orch.BuildQueue(ctx, state, true); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
}

func TestBuildQueueProductAndAvatarSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state := testState(4)
	state.ProductImages = []models.UploadedAsset{*testAsset("a.png"), *testAsset("b.png")}
	state.GenerationMode = models.ModeSamePersonProductSwap
	items, _ := f.orch.BuildQueue(ctx, state, false)
	want := []string{"a.png", "b.png", "a.png", "b.png"}
	for i, it := range items {
		if it.Recipe.ProductImageName != want[i] {
			t.Errorf("product swap item %d = %q, want %q", i+1, it.Recipe.ProductImageName, want[i])
		}
	}

	state.GenerationMode = models.ModePersonSwapOptional
	state.AvatarSwapImages = []models.UploadedAsset{*testAsset("p1.png"), *testAsset("p2.png")}
	state.KeepIdentityLocked = false
	items, _ = f.orch.BuildQueue(ctx, state, false)
	if items[0].Recipe.AvatarName != "p1.png" || items[1].Recipe.AvatarName != "p2.png" {
		t.Errorf("person swap avatars = %q, %q", items[0].Recipe.AvatarName, items[1].Recipe.AvatarName)
	}
	if items[0].Recipe.ProductImageName != "product.png" {
		t.Errorf("product outside swap mode = %q", items[0].Recipe.ProductImageName)
	}

	state.KeepIdentityLocked = true
	items, _ = f.orch.BuildQueue(ctx, state, false)
	for _, it := range items {
		if it.Recipe.AvatarName != "avatar.png" {
			t.Errorf("identity lock should keep the primary avatar, got %q", it.Recipe.AvatarName)
		}
	}
}

func TestBuildQueueParaphraseAndDuration(t *testing.T) {
	f := newFixture(t)
	state := testState(3)
	state.Script = "This is 100% effective\nGuaranteed results"
	state.Language = models.LanguageEN
	state.ScriptVariationMode = models.ScriptParaphrase
	state.AutoDurationFromAudio = true

	items, _ := f.orch.BuildQueue(context.Background(), state, false)
	if items[0].Recipe.Script == items[1].Recipe.Script {
		t.Error("paraphrased scripts should differ between items")
	}
	for _, it := range items {
		if strings.Contains(it.Recipe.Script, "100%") {
			t.Errorf("absolute claim survived: %q", it.Recipe.Script)
		}
		want := project.EstimateDurationSec(it.Recipe.Script, models.LanguageEN, state.Voice.PauseMs)
		if it.TargetDurationSec != want || it.Recipe.TargetDurationSec != want {
			t.Errorf("target = %v, want %v", it.TargetDurationSec, want)
		}
	}
}

func TestDemoDriverCompletesQueue(t *testing.T) {
	f := newFixture(t)
	state := testState(3)
	if _, err := f.orch.BuildQueue(context.Background(), state, false); err != nil {
		t.Fatal(err)
	}
	if err := f.orch.Start(state); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDriver(t, f.orch)

	if f.orch.Running() {
		t.Error("driver should report stopped")
	}
	for _, it := range f.orch.Items() {
		if it.Status != models.QueueStatusDone || it.Progress != 100 {
			t.Fatalf("item %d: status=%s progress=%v err=%q", it.Index, it.Status, it.Progress, it.Error)
		}
		if it.ArtifactURL == "" || it.ComposedImageURL == "" || it.AudioURL == "" {
			t.Errorf("item %d missing artifacts: %+v", it.Index, it)
		}
		if it.ArtifactMime != "video/webm;codecs=vp9" || !strings.HasSuffix(it.DownloadName, ".webm") {
			t.Errorf("item %d artifact %s %s", it.Index, it.ArtifactMime, it.DownloadName)
		}
		if it.QualityGate == nil || !it.QualityGate.Passed || it.OverlayProvider != compositor.ProviderLocal {
			t.Errorf("item %d quality=%+v overlay=%s", it.Index, it.QualityGate, it.OverlayProvider)
		}
	}
	if f.blobs.Len() != 9 {
		t.Errorf("expected 9 blobs, got %d", f.blobs.Len())
	}
	if len(f.recorder.items) != 3 {
		t.Errorf("recorded %d items", len(f.recorder.items))
	}

	// A rebuild revokes every blob the old queue owned.
	if _, err := f.orch.BuildQueue(context.Background(), state, false); err != nil {
		t.Fatal(err)
	}
	if f.blobs.Len() != 0 {
		t.Errorf("expected blobs revoked, %d left", f.blobs.Len())
	}
}

func TestDemoDriverContinuesAfterItemFailure(t *testing.T) {
	f := newFixture(t)
	f.encoder.failOn = 2
	state := testState(3)
	f.orch.BuildQueue(context.Background(), state, false)
	if err := f.orch.Start(state); err != nil {
		t.Fatal(err)
	}
	waitDriver(t, f.orch)

	got := statuses(f.orch.Items())
	want := []models.QueueStatus{models.QueueStatusDone, models.QueueStatusFailed, models.QueueStatusDone}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", got, want)
		}
	}
	if msg := f.orch.Items()[1].Error; !strings.Contains(msg, "encoder exploded") {
		t.Errorf("error = %q", msg)
	}
}

func TestCloudDriverFailFast(t *testing.T) {
	tests := []struct {
		name          string
		speechFailOn  int
		lipsyncFailOn int
		wantProgress  float64
		wantErr       string
		wantLipSync   int
	}{
		{
			name:          "lip-sync failure",
			lipsyncFailOn: 3,
			wantProgress:  cloudSpeechProgress,
			wantErr:       "generation failed",
			wantLipSync:   3,
		},
		{
			name:         "speech failure",
			speechFailOn: 3,
			wantProgress: cloudOverlayProgress,
			wantErr:      "speech synthesis failed: boom",
			wantLipSync:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.speech.failOn = tt.speechFailOn
			f.lipsync.failOn = tt.lipsyncFailOn
			state := cloudState(5)
			f.orch.BuildQueue(context.Background(), state, false)
			if err := f.orch.Start(state); err != nil {
				t.Fatalf("Start: %v", err)
			}
			waitDriver(t, f.orch)

			items := f.orch.Items()
			want := []models.QueueStatus{
				models.QueueStatusDone, models.QueueStatusDone, models.QueueStatusFailed,
				models.QueueStatusQueued, models.QueueStatusQueued,
			}
			for i, it := range items {
				if it.Status != want[i] {
					t.Fatalf("statuses = %v, want %v", statuses(items), want)
				}
			}
			if !strings.Contains(items[2].Error, tt.wantErr) {
				t.Errorf("failed item error = %q, want %q", items[2].Error, tt.wantErr)
			}
			if items[2].Progress != tt.wantProgress {
				t.Errorf("failed item progress = %v, want %v", items[2].Progress, tt.wantProgress)
			}
			if items[0].VideoURL != "https://cdn.sync.so/video.mp4" || items[0].ArtifactMime != "video/mp4" {
				t.Errorf("done item = %+v", items[0])
			}
			if !strings.HasSuffix(items[0].DownloadName, ".mp4") {
				t.Errorf("download name = %q", items[0].DownloadName)
			}
			for _, it := range items[3:] {
				if it.Progress != 0 || it.Error != "" {
					t.Errorf("later items must stay untouched: %+v", it)
				}
			}
			if f.lipsync.calls != tt.wantLipSync {
				t.Errorf("lip-sync calls = %d, want %d", f.lipsync.calls, tt.wantLipSync)
			}
		})
	}
}

func TestCancelAfterRenderKeepsItemDone(t *testing.T) {
	f := newFixture(t)
	f.lipsync.succeeded = func(n int) {
		if n == 1 {
			f.orch.Cancel()
		}
	}
	state := cloudState(3)
	f.orch.BuildQueue(context.Background(), state, false)
	if err := f.orch.Start(state); err != nil {
		t.Fatal(err)
	}
	waitDriver(t, f.orch)

	items := f.orch.Items()
	if items[0].Status != models.QueueStatusDone || items[0].Error != "" {
		t.Errorf("finished item = %s %q, want done", items[0].Status, items[0].Error)
	}
	if items[0].VideoURL == "" {
		t.Error("finished item lost its video")
	}
	for _, it := range items[1:] {
		if it.Status != models.QueueStatusQueued {
			t.Errorf("item #%d = %s, want queued", it.Index, it.Status)
		}
	}
	if f.lipsync.calls != 1 {
		t.Errorf("lip-sync calls = %d, want 1", f.lipsync.calls)
	}
}

func TestCloudDriverReconcilesMeasuredDuration(t *testing.T) {
	f := newFixture(t)
	state := cloudState(1)
	state.AutoDurationFromAudio = true
	f.orch.BuildQueue(context.Background(), state, false)
	f.orch.Start(state)
	waitDriver(t, f.orch)

	it := f.orch.Items()[0]
	if it.Status != models.QueueStatusDone {
		t.Fatalf("status = %s (%s)", it.Status, it.Error)
	}
	if it.TargetDurationSec != 7.5 {
		t.Errorf("target = %v, want 7.5", it.TargetDurationSec)
	}
}

func TestStartPreconditions(t *testing.T) {
	f := newFixture(t)

	if err := f.orch.Start(testState(1)); !errors.Is(err, ErrEmptyQueue) {
		t.Errorf("empty queue: %v", err)
	}

	state := cloudState(2)
	f.orch.BuildQueue(context.Background(), state, false)

	noToken := state
	noToken.Cloud.SyncAPIToken = ""
	var cerr *ConfigError
	if err := f.orch.Start(noToken); !errors.As(err, &cerr) || cerr.Field != "syncApiToken" {
		t.Errorf("missing token: %v", err)
	}
	noAvatar := state
	noAvatar.Avatar = nil
	if err := f.orch.Start(noAvatar); !errors.As(err, &cerr) || cerr.Field != "avatar" {
		t.Errorf("missing avatar: %v", err)
	}
	for _, it := range f.orch.Items() {
		if it.Status != models.QueueStatusQueued {
			t.Errorf("config errors must not touch the queue: %s", it.Status)
		}
	}
}

func TestCancelFailsActiveItem(t *testing.T) {
	f := newFixture(t)
	f.lipsync.block = true
	f.lipsync.entered = make(chan struct{})
	state := cloudState(3)
	f.orch.BuildQueue(context.Background(), state, false)

	if err := f.orch.Start(state); err != nil {
		t.Fatal(err)
	}
	if err := f.orch.Start(state); !errors.Is(err, ErrRunning) {
		t.Errorf("second Start: %v", err)
	}
	if _, err := f.orch.BuildQueue(context.Background(), state, false); !errors.Is(err, ErrRunning) {
		t.Errorf("BuildQueue while running: %v", err)
	}

	select {
	case <-f.lipsync.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("lip-sync never called")
	}
	f.orch.Cancel()
	waitDriver(t, f.orch)

	items := f.orch.Items()
	if items[0].Status != models.QueueStatusFailed || items[0].Error != "render cancelled" {
		t.Errorf("active item = %s %q", items[0].Status, items[0].Error)
	}
	if items[1].Status != models.QueueStatusQueued {
		t.Errorf("next item = %s", items[1].Status)
	}
}

func TestQualityLoopRetriesWithPerturbedSeeds(t *testing.T) {
	provider := &fakeProvider{img: uniformFrame()}
	state := testState(1)
	state.AutoFixQuality = true
	state.MaxQualityRetries = 2

	_, scores, err := composeWithQuality(context.Background(), provider, state, 100)
	if err != nil {
		t.Fatal(err)
	}
	if scores.Passed || scores.Attempts != 3 {
		t.Errorf("scores = %+v", scores)
	}
	want := []int{100, 100 + 7919, 100 + 2*7919}
	for i, s := range want {
		if provider.seeds[i] != s {
			t.Errorf("seeds = %v, want %v", provider.seeds, want)
			break
		}
	}

	provider = &fakeProvider{img: uniformFrame()}
	state.AutoFixQuality = false
	_, scores, _ = composeWithQuality(context.Background(), provider, state, 100)
	if scores.Attempts != 1 || len(provider.seeds) != 1 {
		t.Errorf("without auto-fix: attempts=%d calls=%d", scores.Attempts, len(provider.seeds))
	}
}

func TestManifestAndRecipe(t *testing.T) {
	f := newFixture(t)
	f.lipsync.failOn = 2
	state := cloudState(3)
	f.orch.BuildQueue(context.Background(), state, false)
	f.orch.Start(state)
	waitDriver(t, f.orch)

	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	m := f.orch.Manifest(state.ProjectName, now)
	if m.Count != 2 || len(m.Items) != 2 {
		t.Fatalf("manifest count = %d", m.Count)
	}
	if m.GeneratedAt != "2026-03-01T09:30:00Z" || m.ProjectName != "Spring launch" {
		t.Errorf("manifest header = %+v", m)
	}
	if m.Items[1].Status != models.QueueStatusFailed {
		t.Errorf("second entry = %+v", m.Items[1])
	}

	first := f.orch.Items()[0]
	data, name, err := f.orch.RecipeJSON(first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if name != "recipe_1.json" || !strings.Contains(string(data), `"seed": `) {
		t.Errorf("recipe %s: %s", name, data)
	}
	if _, _, err := f.orch.RecipeJSON("missing"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("missing item: %v", err)
	}
}

func TestCloseRevokesBlobs(t *testing.T) {
	f := newFixture(t)
	state := testState(2)
	f.orch.BuildQueue(context.Background(), state, false)
	f.orch.Start(state)
	waitDriver(t, f.orch)

	if f.blobs.Len() == 0 {
		t.Fatal("expected blobs before close")
	}
	if err := f.orch.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f.blobs.Len() != 0 {
		t.Errorf("%d blobs left after close", f.blobs.Len())
	}
}
