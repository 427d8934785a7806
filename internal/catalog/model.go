// Package catalog provides the read-only catalog model and stores used by
// the alternatives ranker and the cross-link assembler.
package catalog

import (
	"time"
)

// Status is the lifecycle status of a catalog item.
type Status string

// Item lifecycle statuses. Only StatusActive items are ever ranked or linked.
const (
	StatusActive   Status = "ACTIVE"
	StatusDraft    Status = "DRAFT"
	StatusArchived Status = "ARCHIVED"
)

// Category is a named grouping of items. Every item has exactly one primary category.
type Category struct {
	ID   string `json:"id" yaml:"id"`
	Slug string `json:"slug" yaml:"slug"`
	Name string `json:"name" yaml:"name"`
}

// UseCase is a named buyer intent tag, many-to-many with items.
type UseCase struct {
	ID   string `json:"id" yaml:"id"`
	Slug string `json:"slug" yaml:"slug"`
	Name string `json:"name" yaml:"name"`
}

// Item is a directory entry (a listed tool).
type Item struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Name       string    `json:"name"`
	Status     Status    `json:"status"`
	Featured   bool      `json:"featured"`
	CategoryID string    `json:"category_id"`
	Category   *Category `json:"category,omitempty"`

	TargetAudience []string  `json:"target_audience,omitempty"`
	KeyFeatures    []string  `json:"key_features,omitempty"`
	Integrations   []string  `json:"integrations,omitempty"`
	UseCases       []UseCase `json:"use_cases,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the item may appear in rankings and links.
func (i *Item) IsActive() bool {
	return i != nil && i.Status == StatusActive
}

// UseCaseSlugs returns the slugs of the item's use-cases in stored order.
func (i *Item) UseCaseSlugs() []string {
	slugs := make([]string, 0, len(i.UseCases))
	for _, uc := range i.UseCases {
		slugs = append(slugs, uc.Slug)
	}
	return slugs
}

// UseCaseIDs returns the IDs of the item's use-cases in stored order.
func (i *Item) UseCaseIDs() []string {
	ids := make([]string, 0, len(i.UseCases))
	for _, uc := range i.UseCases {
		ids = append(ids, uc.ID)
	}
	return ids
}

// HasUseCase reports whether the item is tagged with the given use-case ID.
func (i *Item) HasUseCase(useCaseID string) bool {
	for _, uc := range i.UseCases {
		if uc.ID == useCaseID {
			return true
		}
	}
	return false
}

// CuratedAlternative is an administrator-asserted edge from ItemID to AlternativeID.
// Edges are directed; the reverse edge is not implied.
type CuratedAlternative struct {
	ID            string  `json:"id"`
	ItemID        string  `json:"item_id"`
	AlternativeID string  `json:"alternative_id"`
	Alternative   *Item   `json:"alternative,omitempty"`
	ManualScore   float64 `json:"manual_score"`
	Note          string  `json:"note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// clone returns a deep copy so callers cannot mutate stored state.
func (i *Item) clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	if i.Category != nil {
		cat := *i.Category
		c.Category = &cat
	}
	c.TargetAudience = append([]string(nil), i.TargetAudience...)
	c.KeyFeatures = append([]string(nil), i.KeyFeatures...)
	c.Integrations = append([]string(nil), i.Integrations...)
	c.UseCases = append([]UseCase(nil), i.UseCases...)
	return &c
}
