// Package prompt owns the wording sent to the text-generation service: the
// per-kind persona, the JSON reply contracts and the canned continuation
// questions used when generation fails. A default catalog is embedded and can
// be replaced by a YAML file.
package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/tansive/mockinterview/internal/interviewsrv/models"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type KindPrompts struct {
	Persona       string   `yaml:"persona"`
	Skills        []string `yaml:"skills"`
	Continuations []string `yaml:"continuations"`
}

type Catalog struct {
	TurnContract    string                      `yaml:"turn_contract"`
	ResultsContract string                      `yaml:"results_contract"`
	Closing         string                      `yaml:"closing"`
	ClosingFallback string                      `yaml:"closing_fallback"`
	DefaultTips     []string                    `yaml:"default_tips"`
	Kinds           map[models.Kind]KindPrompts `yaml:"kinds"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded prompt catalog: %v", err))
	}
	return c
}

// Load reads a catalog from path, or returns the embedded one when path is
// empty. Kinds missing from the file are taken from the embedded catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	def := Default()
	for kind, p := range def.Kinds {
		if _, ok := c.Kinds[kind]; !ok {
			c.Kinds[kind] = p
		}
	}
	if c.TurnContract == "" {
		c.TurnContract = def.TurnContract
	}
	if c.ResultsContract == "" {
		c.ResultsContract = def.ResultsContract
	}
	if c.Closing == "" {
		c.Closing = def.Closing
	}
	if c.ClosingFallback == "" {
		c.ClosingFallback = def.ClosingFallback
	}
	if len(c.DefaultTips) == 0 {
		c.DefaultTips = def.DefaultTips
	}
	return c, nil
}

func Parse(data []byte) (*Catalog, error) {
	c := &Catalog{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing prompt catalog: %w", err)
	}
	if c.Kinds == nil {
		c.Kinds = make(map[models.Kind]KindPrompts)
	}
	for kind := range c.Kinds {
		if !kind.Valid() {
			return nil, fmt.Errorf("prompt catalog: unknown interview kind %q", kind)
		}
	}
	return c, nil
}

func (c *Catalog) kind(k models.Kind) KindPrompts {
	if p, ok := c.Kinds[k]; ok {
		return p
	}
	return c.Kinds[models.KindTechnical]
}

func (c *Catalog) Continuations(k models.Kind) []string {
	return c.kind(k).Continuations
}

// Skills is the skill list scored for an interview: the kind's fixed skills
// followed by any focus areas not already covered, title-cased.
func (c *Catalog) Skills(k models.Kind, focusAreas []string) []string {
	caser := cases.Title(language.English)
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		label := caser.String(strings.TrimSpace(s))
		if label == "" || seen[label] {
			return
		}
		seen[label] = true
		out = append(out, label)
	}
	for _, s := range c.kind(k).Skills {
		add(s)
	}
	for _, s := range focusAreas {
		add(s)
	}
	return out
}
