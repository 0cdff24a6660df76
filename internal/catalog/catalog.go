// Package catalog holds the read-only reference data: dimensions and the
// predefined challenge templates. Ids are derived from names so that every
// deployment seeds the same rows.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"nafsAPI/internal/store"
	"nafsAPI/internal/types/challenge"
	"nafsAPI/internal/types/dimension"
)

//go:embed predefined.yaml
var predefined []byte

var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://nafs.app/catalog"))

type DimensionDef struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Color       string `yaml:"color"`
	Icon        string `yaml:"icon"`
}

type TaskDef struct {
	Name      string `yaml:"name"`
	Dimension string `yaml:"dimension"`
	Points    int    `yaml:"points"`
}

type ChallengeDef struct {
	Slug        string    `yaml:"slug"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Duration    int       `yaml:"duration"`
	Difficulty  string    `yaml:"difficulty"`
	Icon        string    `yaml:"icon"`
	Tasks       []TaskDef `yaml:"tasks"`
}

type Definition struct {
	Dimensions []DimensionDef `yaml:"dimensions"`
	Challenges []ChallengeDef `yaml:"challenges"`
}

// Catalog is a validated Definition resolved into domain rows.
type Catalog struct {
	dimensions []dimension.Dimension
	challenges []challenge.Challenge
	byName     map[string]uuid.UUID
}

func DimensionID(name string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte("dimension:"+strings.ToLower(name)))
}

func ChallengeID(slug string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte("challenge:"+slug))
}

func TaskID(slug, name string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte("task:"+slug+":"+strings.ToLower(name)))
}

// Parse decodes and validates a catalog definition.
func Parse(data []byte) (*Catalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("catalog: definition is empty")
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("catalog: decode definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def.resolve(), nil
}

// Load reads the catalog from path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(predefined)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	c, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return c, nil
}

func Default() *Catalog {
	c, err := Parse(predefined)
	if err != nil {
		panic(err)
	}
	return c
}

func (d Definition) Validate() error {
	if len(d.Dimensions) == 0 {
		return fmt.Errorf("catalog: at least one dimension is required")
	}
	dims := make(map[string]bool, len(d.Dimensions))
	for i, dim := range d.Dimensions {
		key := strings.ToLower(strings.TrimSpace(dim.Name))
		if key == "" {
			return fmt.Errorf("catalog: dimension %d has no name", i)
		}
		if dims[key] {
			return fmt.Errorf("catalog: duplicate dimension %q", dim.Name)
		}
		dims[key] = true
	}

	slugs := make(map[string]bool, len(d.Challenges))
	for _, c := range d.Challenges {
		if c.Slug == "" {
			return fmt.Errorf("catalog: challenge %q has no slug", c.Name)
		}
		if slugs[c.Slug] {
			return fmt.Errorf("catalog: duplicate challenge slug %q", c.Slug)
		}
		slugs[c.Slug] = true

		if c.Duration < 1 {
			return fmt.Errorf("catalog: challenge %s: duration must be positive", c.Slug)
		}
		if len(c.Tasks) == 0 {
			return fmt.Errorf("catalog: challenge %s: no tasks", c.Slug)
		}

		names := make(map[string]bool, len(c.Tasks))
		for _, t := range c.Tasks {
			key := strings.ToLower(strings.TrimSpace(t.Name))
			if key == "" {
				return fmt.Errorf("catalog: challenge %s: task without a name", c.Slug)
			}
			if names[key] {
				return fmt.Errorf("catalog: challenge %s: duplicate task %q", c.Slug, t.Name)
			}
			names[key] = true
			if !dims[strings.ToLower(t.Dimension)] {
				return fmt.Errorf("catalog: challenge %s: task %q references unknown dimension %q", c.Slug, t.Name, t.Dimension)
			}
		}
	}
	return nil
}

func (d Definition) resolve() *Catalog {
	cat := &Catalog{byName: make(map[string]uuid.UUID, len(d.Dimensions))}

	for _, def := range d.Dimensions {
		dim := dimension.Dimension{
			ID:          DimensionID(def.Name),
			Name:        strings.TrimSpace(def.Name),
			Description: def.Description,
			Color:       def.Color,
			Icon:        def.Icon,
		}
		cat.dimensions = append(cat.dimensions, dim)
		cat.byName[strings.ToLower(dim.Name)] = dim.ID
	}

	for _, def := range d.Challenges {
		slug := def.Slug
		c := challenge.Challenge{
			ID:          ChallengeID(slug),
			Slug:        &slug,
			Name:        def.Name,
			Description: def.Description,
			Duration:    def.Duration,
			Icon:        def.Icon,
			Difficulty:  challenge.Difficulty(def.Difficulty),
		}
		for _, t := range def.Tasks {
			points := t.Points
			if points == 0 {
				points = 1
			}
			c.Tasks = append(c.Tasks, challenge.Task{
				ID:          TaskID(slug, t.Name),
				Name:        strings.TrimSpace(t.Name),
				DimensionID: cat.byName[strings.ToLower(t.Dimension)],
				Points:      points,
			})
		}
		cat.challenges = append(cat.challenges, c)
	}
	return cat
}

func (c *Catalog) Dimensions() []dimension.Dimension {
	return append([]dimension.Dimension(nil), c.dimensions...)
}

func (c *Catalog) DimensionIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.dimensions))
	for _, d := range c.dimensions {
		ids = append(ids, d.ID)
	}
	return ids
}

// Challenges returns deep copies of the predefined templates.
func (c *Catalog) Challenges() []challenge.Challenge {
	out := make([]challenge.Challenge, 0, len(c.challenges))
	for _, ch := range c.challenges {
		ch.Tasks = append([]challenge.Task(nil), ch.Tasks...)
		out = append(out, ch)
	}
	return out
}

// Seed upserts every dimension and template in one transaction. Running it
// again converges to the same rows.
func (c *Catalog) Seed(ctx context.Context, s store.Store) error {
	return s.WithTx(ctx, func(tx store.Tx) error {
		for i := range c.dimensions {
			d := c.dimensions[i]
			if err := tx.UpsertDimension(ctx, &d); err != nil {
				return fmt.Errorf("failed to seed dimension %s: %w", d.Name, err)
			}
		}
		for _, ch := range c.Challenges() {
			if err := tx.UpsertChallenge(ctx, &ch); err != nil {
				return fmt.Errorf("failed to seed challenge %s: %w", ch.Name, err)
			}
		}
		return nil
	})
}
