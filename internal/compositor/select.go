package compositor

import (
	"time"

	"github.com/bobarin/ugcstudio/internal/models"
)

type Deps struct {
	Local      Provider
	NewRefiner RefinerFactory
	MockDelay  time.Duration
}

// WantsCloud reports whether the project asks for a hosted overlay provider.
func WantsCloud(cloud models.CloudSettings) bool {
	if cloud.Mode != models.CloudModeCloud {
		return false
	}
	switch cloud.OverlayProvider {
	case models.OverlayCloud:
		return true
	case models.OverlayAuto:
		return cloud.OverlayAPIKey != ""
	}
	return false
}

// Select picks the overlay provider for a project snapshot.
func Select(state models.ProjectState, deps Deps) Provider {
	local := deps.Local
	if local == nil {
		local = NewLocal()
	}
	if !WantsCloud(state.Cloud) {
		return local
	}
	if state.Cloud.OverlayAPIKey != "" && deps.NewRefiner != nil {
		return NewGeminiRefine(local, state.Cloud.OverlayAPIKey, deps.NewRefiner)
	}
	delay := deps.MockDelay
	if delay == 0 {
		delay = mockCloudDelay
	}
	return NewMockCloud(local, delay)
}
