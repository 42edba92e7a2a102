package compositor

import (
	"context"
	"image"

	"github.com/bobarin/ugcstudio/internal/models"
)

const (
	ProviderLocal     = "browser-canvas-fallback"
	ProviderMockCloud = "mock-cloud-overlay"
	ProviderGemini    = "gemini-overlay-refine"
)

type Input struct {
	State  models.ProjectState
	Seed   int
	Width  int
	Height int
}

type Result struct {
	Image    *image.RGBA
	Provider string
}

// Provider turns a project snapshot into one composed frame.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, in Input) (*Result, error)
}

// Refiner edits a composed PNG frame according to a text prompt.
type Refiner interface {
	RefineFrame(ctx context.Context, png []byte, prompt string) ([]byte, error)
}
