package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"time"

	"github.com/bobarin/ugcstudio/internal/models"
	xdraw "golang.org/x/image/draw"
)

const mockCloudDelay = 350 * time.Millisecond

// MockCloud stands in for a hosted overlay service: it waits, then composes locally.
type MockCloud struct {
	fallback Provider
	delay    time.Duration
}

func NewMockCloud(fallback Provider, delay time.Duration) *MockCloud {
	return &MockCloud{fallback: fallback, delay: delay}
}

func (m *MockCloud) Name() string {
	return ProviderMockCloud
}

func (m *MockCloud) Synthesize(ctx context.Context, in Input) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(m.delay):
	}
	res, err := m.fallback.Synthesize(ctx, in)
	if err != nil {
		return nil, err
	}
	return &Result{Image: res.Image, Provider: ProviderMockCloud}, nil
}

// RefinerFactory builds a Refiner for a user-supplied API key.
type RefinerFactory func(ctx context.Context, apiKey string) (Refiner, error)

// GeminiRefine composes locally and asks an image model to blend the layers
// into a photographic frame. Any refine failure returns the local frame.
type GeminiRefine struct {
	local      Provider
	apiKey     string
	newRefiner RefinerFactory
}

func NewGeminiRefine(local Provider, apiKey string, factory RefinerFactory) *GeminiRefine {
	return &GeminiRefine{local: local, apiKey: apiKey, newRefiner: factory}
}

func (g *GeminiRefine) Name() string {
	return ProviderGemini
}

func (g *GeminiRefine) Synthesize(ctx context.Context, in Input) (*Result, error) {
	base, err := g.local.Synthesize(ctx, in)
	if err != nil {
		return nil, err
	}

	refined, err := g.refine(ctx, base.Image, in.State)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[Compositor] Gemini refine failed, using local frame: %v", err)
		return &Result{Image: base.Image, Provider: ProviderLocal}, nil
	}
	return &Result{Image: refined, Provider: ProviderGemini}, nil
}

func (g *GeminiRefine) refine(ctx context.Context, frame *image.RGBA, state models.ProjectState) (*image.RGBA, error) {
	refiner, err := g.newRefiner(ctx, g.apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create refiner: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	out, err := refiner.RefineFrame(ctx, buf.Bytes(), RefinePrompt(state))
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("failed to decode refined frame: %w", err)
	}

	// Keep the requested canvas size whatever the model returned.
	dst := image.NewRGBA(frame.Bounds())
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// RefinePrompt describes the edit asked of the image model.
func RefinePrompt(state models.ProjectState) string {
	return fmt.Sprintf(
		"This is a rough layered composite for a vertical UGC product video (%s). "+
			"Blend the person, the held product and the background into one natural smartphone photo. "+
			"Keep the person's face and identity unchanged, keep the product label legible, "+
			"match lighting and shadows across layers, and keep the caption bar at the bottom as is. "+
			"Scene blend strength: %.2f.",
		state.AspectRatio, state.Composition.SceneBlendStrength,
	)
}
