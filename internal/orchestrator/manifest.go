package orchestrator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bobarin/ugcstudio/internal/models"
)

// Manifest summarizes every finished or failed item.
func (o *Orchestrator) Manifest(projectName string, now time.Time) models.Manifest {
	o.mu.Lock()
	defer o.mu.Unlock()

	items := make([]models.ManifestItem, 0, len(o.entries))
	for _, e := range o.entries {
		if !e.item.Status.IsTerminal() {
			continue
		}
		items = append(items, models.ManifestItem{
			Index:        e.item.Index,
			Status:       e.item.Status,
			DownloadName: e.item.DownloadName,
			Seed:         e.item.Seed,
			Recipe:       e.item.Recipe,
		})
	}
	return models.Manifest{
		ProjectName: projectName,
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Count:       len(items),
		Items:       items,
	}
}

// RecipeJSON returns the item's recipe as indented JSON and its download name.
func (o *Orchestrator) RecipeJSON(id string) ([]byte, string, error) {
	item, err := o.Item(id)
	if err != nil {
		return nil, "", err
	}
	data, err := json.MarshalIndent(item.Recipe, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal recipe: %w", err)
	}
	return data, fmt.Sprintf("recipe_%d.json", item.Index), nil
}
