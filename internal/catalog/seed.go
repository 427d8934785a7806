package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/findaly/findaly/internal/validate"
)

// Seed loading errors.
var (
	ErrUnknownCategory = errors.New("unknown category slug")
	ErrUnknownUseCase  = errors.New("unknown use-case slug")
	ErrUnknownTool     = errors.New("unknown tool slug")
	ErrDuplicateSlug   = errors.New("duplicate slug")
)

// SeedFile is the YAML layout of a development catalog fixture.
type SeedFile struct {
	Categories []Category `yaml:"categories"`
	UseCases   []UseCase  `yaml:"use_cases"`
	Tools      []SeedTool `yaml:"tools"`
	Curated    []SeedEdge `yaml:"curated"`
}

// SeedTool references its category and use-cases by slug.
type SeedTool struct {
	Slug           string   `yaml:"slug"`
	Name           string   `yaml:"name"`
	Status         string   `yaml:"status"`
	Featured       bool     `yaml:"featured"`
	Category       string   `yaml:"category"`
	TargetAudience []string `yaml:"target_audience"`
	KeyFeatures    []string `yaml:"key_features"`
	Integrations   []string `yaml:"integrations"`
	UseCases       []string `yaml:"use_cases"`
}

// SeedEdge is a curated alternative between two tool slugs.
type SeedEdge struct {
	Tool        string  `yaml:"tool"`
	Alternative string  `yaml:"alternative"`
	Score       float64 `yaml:"score"`
	Note        string  `yaml:"note"`
}

// LoadSeed reads a YAML catalog fixture into a new InMemoryStore.
func LoadSeed(path string) (*InMemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	return ParseSeed(data)
}

// ParseSeed builds an InMemoryStore from YAML fixture bytes.
// Malformed slugs and references to unknown slugs are reported as errors
// rather than skipped.
func ParseSeed(data []byte) (*InMemoryStore, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}

	store := NewInMemoryStore()

	categories := make(map[string]Category, len(seed.Categories))
	for _, c := range seed.Categories {
		if _, err := validate.Slug(c.Slug); err != nil {
			return nil, fmt.Errorf("category %q: %w", c.Slug, err)
		}
		if _, dup := categories[c.Slug]; dup {
			return nil, fmt.Errorf("category %q: %w", c.Slug, ErrDuplicateSlug)
		}
		categories[c.Slug] = store.AddCategory(c)
	}

	useCases := make(map[string]UseCase, len(seed.UseCases))
	for _, uc := range seed.UseCases {
		if _, err := validate.Slug(uc.Slug); err != nil {
			return nil, fmt.Errorf("use-case %q: %w", uc.Slug, err)
		}
		if _, dup := useCases[uc.Slug]; dup {
			return nil, fmt.Errorf("use-case %q: %w", uc.Slug, ErrDuplicateSlug)
		}
		useCases[uc.Slug] = store.AddUseCase(uc)
	}

	tools := make(map[string]Item, len(seed.Tools))
	for _, t := range seed.Tools {
		if _, err := validate.Slug(t.Slug); err != nil {
			return nil, fmt.Errorf("tool %q: %w", t.Slug, err)
		}
		if _, dup := tools[t.Slug]; dup {
			return nil, fmt.Errorf("tool %q: %w", t.Slug, ErrDuplicateSlug)
		}
		cat, ok := categories[t.Category]
		if !ok {
			return nil, fmt.Errorf("tool %q category %q: %w", t.Slug, t.Category, ErrUnknownCategory)
		}
		item := Item{
			Slug:           t.Slug,
			Name:           t.Name,
			Status:         Status(strings.ToUpper(t.Status)),
			Featured:       t.Featured,
			CategoryID:     cat.ID,
			TargetAudience: t.TargetAudience,
			KeyFeatures:    t.KeyFeatures,
			Integrations:   t.Integrations,
		}
		for _, slug := range t.UseCases {
			uc, ok := useCases[slug]
			if !ok {
				return nil, fmt.Errorf("tool %q use-case %q: %w", t.Slug, slug, ErrUnknownUseCase)
			}
			item.UseCases = append(item.UseCases, uc)
		}
		tools[t.Slug] = store.AddItem(item)
	}

	for _, e := range seed.Curated {
		from, ok := tools[e.Tool]
		if !ok {
			return nil, fmt.Errorf("curated edge from %q: %w", e.Tool, ErrUnknownTool)
		}
		to, ok := tools[e.Alternative]
		if !ok {
			return nil, fmt.Errorf("curated edge to %q: %w", e.Alternative, ErrUnknownTool)
		}
		store.AddCuratedAlternative(CuratedAlternative{
			ItemID:        from.ID,
			AlternativeID: to.ID,
			ManualScore:   e.Score,
			Note:          e.Note,
		})
	}

	return store, nil
}
