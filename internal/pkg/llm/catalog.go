package llm

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/makkara/makkara/app/models"
)

//go:embed catalog.yml
var embeddedCatalog []byte

// Descriptor is one catalog entry.
type Descriptor struct {
	Name                      string       `yaml:"name"`
	Provider                  ProviderKind `yaml:"provider"`
	Version                   string       `yaml:"version"`
	Description               string       `yaml:"description"`
	MaxTokens                 int          `yaml:"max_tokens"`
	CostInputCentsPerMillion  int          `yaml:"cost_input_cents_per_million"`
	CostOutputCentsPerMillion int          `yaml:"cost_output_cents_per_million"`
	Active                    bool         `yaml:"active"`
}

// Catalog is the parsed model list.
type Catalog struct {
	Default string       `yaml:"default"`
	Models  []Descriptor `yaml:"models"`
}

// DefaultCatalog parses the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(embeddedCatalog)
}

// ParseCatalog decodes and validates a catalog document.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse model catalog: %w", err)
	}
	seen := make(map[string]bool, len(c.Models))
	for _, d := range c.Models {
		if d.Name == "" || d.Version == "" {
			return nil, fmt.Errorf("model catalog: entry without name or version")
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("model catalog: duplicate model %q", d.Name)
		}
		seen[d.Name] = true
		if _, err := ParseProviderKind(string(d.Provider)); err != nil {
			return nil, fmt.Errorf("model catalog: %s: %w", d.Name, err)
		}
	}
	if c.Default != "" && !seen[c.Default] {
		return nil, fmt.Errorf("model catalog: default %q is not listed", c.Default)
	}
	return &c, nil
}

// Lookup returns the descriptor named name.
func (c *Catalog) Lookup(name string) (Descriptor, bool) {
	for _, d := range c.Models {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Row converts a descriptor into its ai_models row.
func (d Descriptor) Row() models.AIModel {
	return models.AIModel{
		Name:                      d.Name,
		Provider:                  string(d.Provider),
		Version:                   d.Version,
		Description:               d.Description,
		MaxTokens:                 d.MaxTokens,
		IsActive:                  d.Active,
		CostInputCentsPerMillion:  d.CostInputCentsPerMillion,
		CostOutputCentsPerMillion: d.CostOutputCentsPerMillion,
	}
}
