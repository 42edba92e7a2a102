package orchestrator

import (
	"context"
	"fmt"

	"github.com/bobarin/ugcstudio/internal/compositor"
	"github.com/bobarin/ugcstudio/internal/models"
	"github.com/bobarin/ugcstudio/internal/quality"
)

const retrySeedStride = 7919

// composeWithQuality synthesizes the frame, retrying with perturbed seeds while
// autoFixQuality allows. The best-scoring frame is returned even if none passed.
func composeWithQuality(ctx context.Context, provider compositor.Provider, state models.ProjectState, seed int) (*compositor.Result, models.QualityGateScores, error) {
	attempts := 1
	if state.AutoFixQuality {
		attempts = max(0, state.MaxQualityRetries) + 1
	}
	res := ResolutionFor(state.AspectRatio)

	var best *compositor.Result
	var bestScores models.QualityGateScores
	tried := 0
	for k := 0; k < attempts; k++ {
		out, err := provider.Synthesize(ctx, compositor.Input{
			State:  state,
			Seed:   seed + k*retrySeedStride,
			Width:  res.Width,
			Height: res.Height,
		})
		if err != nil {
			return nil, models.QualityGateScores{}, fmt.Errorf("overlay synthesis failed: %w", err)
		}
		tried++

		scores := quality.Measure(out.Image, state.RenderQuality, tried)
		if best == nil || scores.Overall > bestScores.Overall {
			best, bestScores = out, scores
		}
		if scores.Passed {
			break
		}
	}
	bestScores.Attempts = tried
	return best, bestScores, nil
}
