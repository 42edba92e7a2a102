package presets

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WriteCatalog writes a catalog to a YAML file.
func WriteCatalog(c *Catalog, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadCatalog reads a YAML catalog. A file that leaves scenes or templates
// empty keeps the built-in entries for that half.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	def := Default()
	if len(c.Scenes) == 0 {
		c.Scenes = def.Scenes
	}
	if len(c.Templates) == 0 {
		c.Templates = def.Templates
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool, len(c.Scenes)+len(c.Templates))
	for _, s := range c.Scenes {
		if s.ID == "" {
			return errors.New("scene without id")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate id %q", s.ID)
		}
		seen[s.ID] = true
	}
	for _, t := range c.Templates {
		if t.ID == "" {
			return errors.New("template without id")
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate id %q", t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}
