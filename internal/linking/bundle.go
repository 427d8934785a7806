// Package linking assembles internal cross-link menus for directory pages.
package linking

import (
	"github.com/findaly/findaly/internal/catalog"
)

// LinkKind classifies the destination of a link.
type LinkKind string

// Link kinds.
const (
	KindTool         LinkKind = "tool"
	KindAlternatives LinkKind = "alternatives"
	KindComparison   LinkKind = "comparison"
	KindCategory     LinkKind = "category"
	KindUseCase      LinkKind = "use_case"
	KindBest         LinkKind = "best"
)

// LinkItem is a transient link rendered on a page.
type LinkItem struct {
	Path  string   `json:"path"`
	Label string   `json:"label"`
	Kind  LinkKind `json:"kind"`
	Score *float64 `json:"score,omitempty"`
}

// Bundle is the fixed-shape set of link groups for one page.
// Every group is non-nil and de-duplicated by path.
type Bundle struct {
	Primary      []LinkItem `json:"primary"`
	Tools        []LinkItem `json:"tools"`
	Alternatives []LinkItem `json:"alternatives"`
	Comparisons  []LinkItem `json:"comparisons"`
	Best         []LinkItem `json:"best"`
	UseCases     []LinkItem `json:"use_cases"`
}

// EmptyBundle returns a bundle with every group empty.
func EmptyBundle() *Bundle {
	return &Bundle{
		Primary:      []LinkItem{},
		Tools:        []LinkItem{},
		Alternatives: []LinkItem{},
		Comparisons:  []LinkItem{},
		Best:         []LinkItem{},
		UseCases:     []LinkItem{},
	}
}

// IsEmpty reports whether the bundle carries no links at all.
func (b *Bundle) IsEmpty() bool {
	return len(b.Primary)+len(b.Tools)+len(b.Alternatives)+
		len(b.Comparisons)+len(b.Best)+len(b.UseCases) == 0
}

// group collects links up to a limit, skipping duplicate and excluded paths.
type group struct {
	items []LinkItem
	seen  map[string]bool
	limit int
}

func newGroup(limit int, exclude ...string) *group {
	g := &group{
		items: []LinkItem{},
		seen:  make(map[string]bool, limit+len(exclude)),
		limit: limit,
	}
	for _, p := range exclude {
		g.seen[p] = true
	}
	return g
}

// add appends link unless the group is full or already has its path.
func (g *group) add(link LinkItem) {
	if g.full() || link.Path == "" || g.seen[link.Path] {
		return
	}
	g.seen[link.Path] = true
	g.items = append(g.items, link)
}

func (g *group) full() bool {
	return g.limit >= 0 && len(g.items) >= g.limit
}

func toolLink(item catalog.Item, score *float64) LinkItem {
	return LinkItem{
		Path:  ToolPath(item.Slug),
		Label: item.Name,
		Kind:  KindTool,
		Score: score,
	}
}

func alternativesLink(item catalog.Item) LinkItem {
	return LinkItem{
		Path:  AlternativesPath(item.Slug),
		Label: item.Name + " alternatives",
		Kind:  KindAlternatives,
	}
}

// comparisonLink links the canonical comparison page of a and b, labelled
// in the same order as the path. A slug that itself contains the "-vs-"
// separator would produce a token that parses to a different pair, so
// such pairs get no link.
func comparisonLink(a, b catalog.Item) LinkItem {
	if b.Slug < a.Slug {
		a, b = b, a
	}
	pair, ok := ParseComparison(ComparisonToken(a.Slug, b.Slug))
	if !ok || pair != (Pair{Left: a.Slug, Right: b.Slug}) {
		return LinkItem{}
	}
	return LinkItem{
		Path:  ComparisonPath(a.Slug, b.Slug),
		Label: a.Name + " vs " + b.Name,
		Kind:  KindComparison,
	}
}

func categoryLink(c *catalog.Category) LinkItem {
	if c == nil {
		return LinkItem{}
	}
	return LinkItem{
		Path:  CategoryPath(c.Slug),
		Label: c.Name + " tools",
		Kind:  KindCategory,
	}
}

func useCaseLink(uc catalog.UseCase) LinkItem {
	return LinkItem{
		Path:  UseCasePath(uc.Slug),
		Label: uc.Name,
		Kind:  KindUseCase,
	}
}

// bestLink links the best-for page of c and uc. Like comparisonLink it
// skips slugs whose token would not parse back to the same page.
func bestLink(c *catalog.Category, uc catalog.UseCase) LinkItem {
	if c == nil {
		return LinkItem{}
	}
	key, ok := ParseBest(BestToken(c.Slug, uc.Slug))
	if !ok || key != (BestKey{Category: c.Slug, UseCase: uc.Slug}) {
		return LinkItem{}
	}
	return LinkItem{
		Path:  BestPath(c.Slug, uc.Slug),
		Label: "Best " + c.Name + " tools for " + uc.Name,
		Kind:  KindBest,
	}
}
