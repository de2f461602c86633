// Package catalog holds the fixed genre, mood and streaming-service sets.
//
// Values outside these sets are dropped at the boundary, never passed through
// or replaced with a guess.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/schema"
	"gopkg.in/yaml.v3"
)

var (
	//go:embed catalog.yaml
	defaultYAML []byte

	//go:embed catalog.schema.json
	catalogSchema []byte
)

// Catalog is a set of allowed enrichment values.
type Catalog struct {
	Genres    []string `yaml:"genres" json:"genres"`
	Moods     []string `yaml:"moods" json:"moods"`
	Streaming []string `yaml:"streaming" json:"streaming"`
}

// Fields are the AI-derived movie fields after normalization.
type Fields struct {
	Genre     string   `json:"genre"`
	Mood      string   `json:"mood"`
	Streaming []string `json:"streaming"`
}

// Empty reports whether no field carries a value.
func (f Fields) Empty() bool {
	return f.Genre == "" && f.Mood == "" && len(f.Streaming) == 0
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded catalog. It panics if the embedded file is
// malformed, which can only happen at build time.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(defaultYAML)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("embedded catalog: %v", defaultErr))
	}
	return defaultCatalog
}

// Parse decodes a catalog document and validates it against the embedded
// JSON schema: three non-empty sets of unique, non-empty strings.
func Parse(data []byte) (*Catalog, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := validate(doc); err != nil {
		return nil, err
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &c, nil
}

func validate(doc map[string]any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	validator, err := schema.NewValidator(catalogSchema)
	if err != nil {
		return fmt.Errorf("compile catalog schema: %w", err)
	}
	diagnostics, err := validator.ValidateJSON(payload)
	if err != nil {
		return fmt.Errorf("validate catalog: %w", err)
	}
	if len(diagnostics) > 0 {
		return fmt.Errorf("catalog schema validation failed: %s", diagnostics[0].Message)
	}
	return nil
}

// ValidGenre reports exact membership in the genre set.
func (c *Catalog) ValidGenre(genre string) bool {
	return slices.Contains(c.Genres, genre)
}

// ValidMood reports exact membership in the mood set.
func (c *Catalog) ValidMood(mood string) bool {
	return slices.Contains(c.Moods, mood)
}

// FilterStreaming keeps known services in input order, without duplicates.
func (c *Catalog) FilterStreaming(services []string) []string {
	out := make([]string, 0, len(services))
	for _, s := range services {
		if slices.Contains(c.Streaming, s) && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// Normalize validates raw model output against the catalog.
func (c *Catalog) Normalize(genre, mood string, streaming []string) Fields {
	f := Fields{Streaming: c.FilterStreaming(streaming)}
	if c.ValidGenre(genre) {
		f.Genre = genre
	}
	if c.ValidMood(mood) {
		f.Mood = mood
	}
	return f
}

// PromptList renders a set as a comma separated list for prompts.
func PromptList(values []string) string {
	return strings.Join(values, ", ")
}
