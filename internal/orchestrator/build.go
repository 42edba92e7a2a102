package orchestrator

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/bobarin/ugcstudio/internal/models"
	"github.com/bobarin/ugcstudio/internal/project"
	"github.com/bobarin/ugcstudio/internal/services"
	"github.com/google/uuid"
)

const seedStride = 17

// BuildQueue creates render items from the project. Without appendItems the
// previous queue is discarded and its blobs revoked.
func (o *Orchestrator) BuildQueue(ctx context.Context, state models.ProjectState, appendItems bool) ([]models.QueueItem, error) {
	state = project.Normalize(state)

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrRunning
	}

	count := JobCount(state)
	var stale []string
	if appendItems {
		room := MaxQueueItems - len(o.entries)
		if room <= 0 {
			o.mu.Unlock()
			return nil, ErrQueueFull
		}
		count = min(count, room)
	} else {
		stale = ownedURLs(o.entries)
		o.entries = nil
	}

	start := len(o.entries)
	built := make([]models.QueueItem, 0, count)
	for i := 0; i < count; i++ {
		e := buildEntry(state, start+i+1)
		o.entries = append(o.entries, e)
		built = append(built, e.item)
	}
	o.projectName = state.ProjectName
	total := len(o.entries)
	o.mu.Unlock()

	o.revoke(ctx, stale)
	log.Printf("[Orchestrator] Queued %d items (append=%v, total=%d)", count, appendItems, total)
	return built, nil
}

// JobCount is the number of items one build produces.
func JobCount(state models.ProjectState) int {
	n := state.BatchCount
	if state.GenerationMode == models.ModeSamePersonSameProduct {
		n = state.ScenarioCount
	}
	return max(1, min(n, project.MaxBatchCount))
}

// buildEntry derives the item at the 1-based index and the project snapshot it renders from.
func buildEntry(state models.ProjectState, index int) *entry {
	pos := index - 1
	seed := state.Variation.Seed + index*seedStride

	snap := state
	snap.ProductImages = append([]models.UploadedAsset(nil), state.ProductImages...)
	snap.AvatarSwapImages = append([]models.UploadedAsset(nil), state.AvatarSwapImages...)

	if state.GenerationMode == models.ModeSamePersonProductSwap && len(state.ProductImages) > 0 {
		product := state.ProductImages[pos%len(state.ProductImages)]
		snap.ProductImage = &product
		handheld := product
		snap.HandheldProductImage = &handheld
	}
	if state.GenerationMode == models.ModePersonSwapOptional && !state.KeepIdentityLocked && len(state.AvatarSwapImages) > 0 {
		avatar := state.AvatarSwapImages[pos%len(state.AvatarSwapImages)]
		snap.Avatar = &avatar
	}
	if state.ScriptVariationMode == models.ScriptParaphrase {
		snap.Script = project.Paraphrase(state.Script, pos, state.Language)
	}

	target := state.ClipLengthSec
	if state.AutoDurationFromAudio {
		target = project.EstimateDurationSec(snap.Script, state.Language, state.Voice.PauseMs)
	}
	target = math.Min(target, project.MaxClipLengthSec)

	recipe := models.Recipe{
		Index:               index,
		Seed:                seed,
		Language:            state.Language,
		AspectRatio:         state.AspectRatio,
		SceneID:             state.SelectedSceneID,
		TemplateID:          state.SelectedTemplateID,
		GenerationMode:      state.GenerationMode,
		ScriptVariationMode: state.ScriptVariationMode,
		Voice:               state.Voice,
		Script:              snap.Script,
		Composition:         state.Composition,
		Variation:           state.Variation,
		Resolution:          ResolutionFor(state.AspectRatio),
		RenderQuality:       state.RenderQuality,
		LipSyncTimeline:     project.LipSyncTimeline(target),
		TargetDurationSec:   target,
	}
	if snap.ProductImage != nil {
		recipe.ProductImageName = snap.ProductImage.Name
	}
	if snap.Avatar != nil {
		recipe.AvatarName = snap.Avatar.Name
	}
	if state.IdentityLock != nil {
		recipe.IdentityLockID = state.IdentityLock.IdentityID
	}

	return &entry{
		state: snap,
		item: models.QueueItem{
			ID:                uuid.New().String(),
			Index:             index,
			Status:            models.QueueStatusQueued,
			Seed:              seed,
			Recipe:            recipe,
			DownloadName:      fmt.Sprintf("render_%d.webm", index),
			FFmpegCommand:     services.PreviewCommand(state.ProjectName, index, target),
			TargetDurationSec: target,
		},
	}
}

// ResolutionFor returns the frame size for an aspect ratio.
func ResolutionFor(aspect models.AspectRatio) models.Resolution {
	if aspect == models.AspectLandscape {
		return models.Resolution{Width: 1280, Height: 720}
	}
	return models.Resolution{Width: 720, Height: 1280}
}
