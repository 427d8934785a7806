package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the read-only catalog interface consumed by ranking and linking.
// Lookups that find nothing return nil with a nil error; a non-nil error always
// means the store itself failed.
type Store interface {
	// FindItemBySlug returns the item with the given slug regardless of status.
	FindItemBySlug(ctx context.Context, slug string) (*Item, error)

	// FindItemsByCategory returns active items of a category, excluding excludeID,
	// ordered featured first then by name, at most limit items.
	FindItemsByCategory(ctx context.Context, categoryID, excludeID string, limit int) ([]Item, error)

	// FindItemsByCategoryOrUseCases returns active items that are in the category
	// or share at least one of the use-cases, with the same ordering and bounds
	// as FindItemsByCategory.
	FindItemsByCategoryOrUseCases(ctx context.Context, categoryID string, useCaseIDs []string, excludeID string, limit int) ([]Item, error)

	// FindCuratedEdges returns curated edges from itemID ordered by manual score
	// descending then newest first, at most limit edges, with Alternative populated.
	FindCuratedEdges(ctx context.Context, itemID string, limit int) ([]CuratedAlternative, error)

	// FindCategoryBySlug returns the category with the given slug.
	FindCategoryBySlug(ctx context.Context, slug string) (*Category, error)

	// FindUseCaseBySlug returns the use-case with the given slug.
	FindUseCaseBySlug(ctx context.Context, slug string) (*UseCase, error)
}

// InMemoryStore is an in-memory implementation of Store.
// Used for tests and for development when no database is configured.
// Thread-safe via RWMutex.
type InMemoryStore struct {
	mu         sync.RWMutex
	categories map[string]*Category // ID -> category
	useCases   map[string]*UseCase  // ID -> use-case
	items      map[string]*Item     // ID -> item
	slugs      map[string]string    // item slug -> ID
	edges      map[string][]CuratedAlternative
}

// NewInMemoryStore creates an empty in-memory catalog.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		categories: make(map[string]*Category),
		useCases:   make(map[string]*UseCase),
		items:      make(map[string]*Item),
		slugs:      make(map[string]string),
		edges:      make(map[string][]CuratedAlternative),
	}
}

// AddCategory stores a category, assigning an ID if missing.
func (s *InMemoryStore) AddCategory(c Category) Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	s.categories[c.ID] = &c
	return c
}

// AddUseCase stores a use-case, assigning an ID if missing.
func (s *InMemoryStore) AddUseCase(uc UseCase) UseCase {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uc.ID == "" {
		uc.ID = uuid.New().String()
	}
	s.useCases[uc.ID] = &uc
	return uc
}

// AddItem stores an item, assigning an ID and timestamps if missing.
// An item re-added with an existing slug replaces the previous one.
func (s *InMemoryStore) AddItem(item Item) Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Status == "" {
		item.Status = StatusActive
	}
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}
	if prev, ok := s.slugs[item.Slug]; ok && prev != item.ID {
		delete(s.items, prev)
	}
	stored := item.clone()
	s.items[item.ID] = stored
	s.slugs[item.Slug] = item.ID
	return *stored.clone()
}

// AddCuratedAlternative stores a curated edge, assigning an ID and timestamp if missing.
func (s *InMemoryStore) AddCuratedAlternative(edge CuratedAlternative) CuratedAlternative {
	s.mu.Lock()
	defer s.mu.Unlock()
	if edge.ID == "" {
		edge.ID = uuid.New().String()
	}
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now()
	}
	edge.Alternative = nil
	s.edges[edge.ItemID] = append(s.edges[edge.ItemID], edge)
	return edge
}

// FindItemBySlug returns the item with the given slug regardless of status.
func (s *InMemoryStore) FindItemBySlug(ctx context.Context, slug string) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.slugs[slug]
	if !ok {
		return nil, nil
	}
	return s.hydrate(s.items[id]), nil
}

// FindItemsByCategory returns active items of a category.
func (s *InMemoryStore) FindItemsByCategory(ctx context.Context, categoryID, excludeID string, limit int) ([]Item, error) {
	return s.filterItems(excludeID, limit, func(item *Item) bool {
		return item.CategoryID == categoryID
	}), nil
}

// FindItemsByCategoryOrUseCases returns active items in the category or sharing a use-case.
func (s *InMemoryStore) FindItemsByCategoryOrUseCases(ctx context.Context, categoryID string, useCaseIDs []string, excludeID string, limit int) ([]Item, error) {
	wanted := make(map[string]bool, len(useCaseIDs))
	for _, id := range useCaseIDs {
		wanted[id] = true
	}
	return s.filterItems(excludeID, limit, func(item *Item) bool {
		if item.CategoryID == categoryID {
			return true
		}
		for _, uc := range item.UseCases {
			if wanted[uc.ID] {
				return true
			}
		}
		return false
	}), nil
}

// FindCuratedEdges returns curated edges from itemID, best manual score first.
func (s *InMemoryStore) FindCuratedEdges(ctx context.Context, itemID string, limit int) ([]CuratedAlternative, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edges := make([]CuratedAlternative, len(s.edges[itemID]))
	copy(edges, s.edges[itemID])

	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].ManualScore != edges[j].ManualScore {
			return edges[i].ManualScore > edges[j].ManualScore
		}
		return edges[i].CreatedAt.After(edges[j].CreatedAt)
	})
	if limit > 0 && len(edges) > limit {
		edges = edges[:limit]
	}

	for i := range edges {
		if target, ok := s.items[edges[i].AlternativeID]; ok {
			edges[i].Alternative = s.hydrate(target)
		}
	}
	return edges, nil
}

// FindCategoryBySlug returns the category with the given slug.
func (s *InMemoryStore) FindCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.Slug == slug {
			cat := *c
			return &cat, nil
		}
	}
	return nil, nil
}

// FindUseCaseBySlug returns the use-case with the given slug.
func (s *InMemoryStore) FindUseCaseBySlug(ctx context.Context, slug string) (*UseCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, uc := range s.useCases {
		if uc.Slug == slug {
			u := *uc
			return &u, nil
		}
	}
	return nil, nil
}

// filterItems applies match to active items and returns them in catalog order.
func (s *InMemoryStore) filterItems(excludeID string, limit int, match func(*Item) bool) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Item
	for _, item := range s.items {
		if item.ID == excludeID || !item.IsActive() || !match(item) {
			continue
		}
		result = append(result, *s.hydrate(item))
	}
	SortByFeaturedThenName(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// hydrate returns a copy of item with its category and use-cases resolved.
// Must be called with the read lock held.
func (s *InMemoryStore) hydrate(item *Item) *Item {
	c := item.clone()
	if cat, ok := s.categories[c.CategoryID]; ok {
		copyCat := *cat
		c.Category = &copyCat
	}
	for i, uc := range c.UseCases {
		if stored, ok := s.useCases[uc.ID]; ok {
			c.UseCases[i] = *stored
		}
	}
	return c
}

// SortByFeaturedThenName orders items featured first, then by name
// (case-insensitive), then by slug so the order is total.
func SortByFeaturedThenName(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Featured != items[j].Featured {
			return items[i].Featured
		}
		ni, nj := strings.ToLower(items[i].Name), strings.ToLower(items[j].Name)
		if ni != nj {
			return ni < nj
		}
		return items[i].Slug < items[j].Slug
	})
}
