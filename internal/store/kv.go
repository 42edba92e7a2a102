package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/bobarin/ugcstudio/internal/models"
	"github.com/bobarin/ugcstudio/internal/project"
)

const (
	ProjectKey       = "ugc-video-studio-project-v3"
	LegacyProjectKey = "ugc-video-studio-project-v2"
)

// ErrNotFound is returned by Get when a key has never been set or was deleted.
var ErrNotFound = errors.New("key not found")

// KV is the persistence surface for the editable project.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// SaveProject writes the current-schema key and drops the legacy one.
func SaveProject(ctx context.Context, kv KV, state models.ProjectState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}
	if err := kv.Set(ctx, ProjectKey, data); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	if err := kv.Delete(ctx, LegacyProjectKey); err != nil && !errors.Is(err, ErrNotFound) {
		log.Printf("[Store] Failed to remove legacy project key: %v", err)
	}
	return nil
}

// LoadProject reads the saved project, falling back to the legacy key.
// found is false when neither key exists.
func LoadProject(ctx context.Context, kv KV) (models.ProjectState, bool, error) {
	for _, key := range []string{ProjectKey, LegacyProjectKey} {
		data, err := kv.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return models.ProjectState{}, false, fmt.Errorf("failed to read %s: %w", key, err)
		}

		state, err := project.Decode(data)
		if err != nil {
			return models.ProjectState{}, false, err
		}
		if key == LegacyProjectKey {
			log.Printf("[Store] Loaded project from legacy key %s", key)
		}
		return state, true, nil
	}
	return models.ProjectState{}, false, nil
}
