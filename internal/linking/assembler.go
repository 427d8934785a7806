package linking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/findaly/findaly/internal/alternatives"
	"github.com/findaly/findaly/internal/cache"
	"github.com/findaly/findaly/internal/catalog"
	"github.com/findaly/findaly/internal/tracing"
)

// PageKind identifies which page a bundle is assembled for.
type PageKind string

// Page kinds, also used in cache keys and metric labels.
const (
	PageItem         PageKind = "tool"
	PageAlternatives PageKind = "alternatives"
	PageComparison   PageKind = "compare"
	PageCategory     PageKind = "category"
	PageBest         PageKind = "best"
)

// DefaultCacheTTL is how long an assembled bundle is reused.
const DefaultCacheTTL = 5 * time.Minute

// comparisonPairs is the fixed pairing over the top four category items.
var comparisonPairs = [][2]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}

// Limits caps each group per page kind.
type Limits struct {
	ToolAlternatives int
	ToolComparisons  int
	ToolBest         int

	AlternativesTop         int
	AlternativesComparisons int

	ComparisonBest int

	CategoryScan         int
	CategoryTools        int
	CategoryUseCases     int
	CategoryBest         int
	CategoryComparisons  int
	CategoryAlternatives int

	BestTools        int
	BestComparisons  int
	BestAlternatives int
}

// DefaultLimits returns the default group caps.
func DefaultLimits() Limits {
	return Limits{
		ToolAlternatives: 5,
		ToolComparisons:  3,
		ToolBest:         4,

		AlternativesTop:         8,
		AlternativesComparisons: 4,

		ComparisonBest: 4,

		CategoryScan:         120,
		CategoryTools:        8,
		CategoryUseCases:     8,
		CategoryBest:         6,
		CategoryComparisons:  6,
		CategoryAlternatives: 4,

		BestTools:        10,
		BestComparisons:  6,
		BestAlternatives: 4,
	}
}

// Config holds the assembler limits and cache lifetime.
type Config struct {
	Limits   Limits
	CacheTTL time.Duration
}

// DefaultConfig returns DefaultLimits with DefaultCacheTTL.
func DefaultConfig() Config {
	return Config{
		Limits:   DefaultLimits(),
		CacheTTL: DefaultCacheTTL,
	}
}

// Ranker supplies ranked alternatives for an item.
type Ranker interface {
	Rank(ctx context.Context, slug string) (*alternatives.Result, error)
}

// Assembler builds link bundles from the catalog and the ranker.
type Assembler struct {
	store   catalog.Store
	ranker  Ranker
	cache   cache.Cache
	config  Config
	metrics *Metrics
	logger  *slog.Logger
}

// NewAssembler creates an Assembler. A nil cache disables memoization and a
// nil metrics argument disables metrics.
func NewAssembler(store catalog.Store, ranker Ranker, c cache.Cache, config Config, metrics *Metrics, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		store:   store,
		ranker:  ranker,
		cache:   c,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

// ForItem returns the bundle for an item page.
func (a *Assembler) ForItem(ctx context.Context, slug string) (*Bundle, error) {
	return a.memoize(ctx, PageItem, slug, a.buildItem)
}

// ForAlternatives returns the bundle for an item's alternatives page.
func (a *Assembler) ForAlternatives(ctx context.Context, slug string) (*Bundle, error) {
	return a.memoize(ctx, PageAlternatives, slug, a.buildAlternatives)
}

// ForComparison returns the bundle for a comparison page identified by an
// "a-vs-b" token.
func (a *Assembler) ForComparison(ctx context.Context, token string) (*Bundle, error) {
	return a.memoize(ctx, PageComparison, token, a.buildComparison)
}

// ForCategory returns the bundle for a category hub.
func (a *Assembler) ForCategory(ctx context.Context, slug string) (*Bundle, error) {
	return a.memoize(ctx, PageCategory, slug, a.buildCategory)
}

// ForBest returns the bundle for a best-for page identified by a
// "{category}-tools-for-{use-case}" token.
func (a *Assembler) ForBest(ctx context.Context, token string) (*Bundle, error) {
	return a.memoize(ctx, PageBest, token, a.buildBest)
}

// CacheKey returns the cache key of a page bundle.
func CacheKey(kind PageKind, token string) string {
	return "links:" + string(kind) + ":" + token
}

func (a *Assembler) memoize(ctx context.Context, kind PageKind, token string, build func(context.Context, string) (*Bundle, error)) (bundle *Bundle, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "linking.assemble",
		attribute.String("links.kind", string(kind)),
		attribute.String("links.token", token))
	defer func() { endSpan(err) }()

	bundle, hit, err := cache.Memoize(ctx, a.cache, CacheKey(kind, token), a.config.CacheTTL,
		func(ctx context.Context) (*Bundle, error) {
			return build(ctx, token)
		})
	a.observe(kind, hit, err)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to assemble links",
			slog.String("kind", string(kind)),
			slog.String("token", token),
			slog.String("error", err.Error()))
		return nil, err
	}
	if bundle == nil {
		bundle = EmptyBundle()
	}
	tracing.SetAttributes(ctx, attribute.Bool("links.cache_hit", hit))
	return bundle, nil
}

func (a *Assembler) observe(kind PageKind, hit bool, err error) {
	if a.metrics == nil {
		return
	}
	switch {
	case err != nil:
		a.metrics.IncErrors(string(kind))
	case hit:
		a.metrics.IncCacheResult(string(kind), CacheHit)
	default:
		a.metrics.IncCacheResult(string(kind), CacheMiss)
	}
}

func (a *Assembler) buildItem(ctx context.Context, slug string) (*Bundle, error) {
	result, err := a.ranker.Rank(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to rank alternatives: %w", err)
	}
	if result == nil {
		return EmptyBundle(), nil
	}
	source := result.Source
	limits := a.config.Limits
	self := ToolPath(source.Slug)

	primary := newGroup(-1)
	primary.add(categoryLink(source.Category))
	primary.add(alternativesLink(source))

	alts := newGroup(limits.ToolAlternatives, self)
	comparisons := newGroup(limits.ToolComparisons)
	for _, alt := range result.Alternatives {
		score := alt.Score
		alts.add(toolLink(alt.Item, &score))
		comparisons.add(comparisonLink(source, alt.Item))
	}

	best := newGroup(limits.ToolBest)
	for _, uc := range sortedUseCases(source.UseCases) {
		best.add(bestLink(source.Category, uc))
	}

	bundle := EmptyBundle()
	bundle.Primary = primary.items
	bundle.Alternatives = alts.items
	bundle.Comparisons = comparisons.items
	bundle.Best = best.items
	return bundle, nil
}

func (a *Assembler) buildAlternatives(ctx context.Context, slug string) (*Bundle, error) {
	result, err := a.ranker.Rank(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to rank alternatives: %w", err)
	}
	if result == nil {
		return EmptyBundle(), nil
	}
	source := result.Source
	limits := a.config.Limits
	self := ToolPath(source.Slug)

	primary := newGroup(-1)
	primary.add(toolLink(source, nil))
	primary.add(categoryLink(source.Category))

	alts := newGroup(limits.AlternativesTop, self)
	comparisons := newGroup(limits.AlternativesComparisons)
	for _, alt := range result.Alternatives {
		score := alt.Score
		alts.add(toolLink(alt.Item, &score))
		comparisons.add(comparisonLink(source, alt.Item))
	}

	bundle := EmptyBundle()
	bundle.Primary = primary.items
	bundle.Alternatives = alts.items
	bundle.Comparisons = comparisons.items
	return bundle, nil
}

func (a *Assembler) buildComparison(ctx context.Context, token string) (*Bundle, error) {
	pair, ok := ParseComparison(token)
	if !ok {
		return EmptyBundle(), nil
	}
	left, err := a.store.FindItemBySlug(ctx, pair.Left)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool: %w", err)
	}
	right, err := a.store.FindItemBySlug(ctx, pair.Right)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool: %w", err)
	}
	if !left.IsActive() || !right.IsActive() {
		return EmptyBundle(), nil
	}

	tools := newGroup(-1)
	tools.add(toolLink(*left, nil))
	tools.add(toolLink(*right, nil))

	alts := newGroup(-1)
	alts.add(alternativesLink(*left))
	alts.add(alternativesLink(*right))

	primary := newGroup(-1)
	primary.add(categoryLink(left.Category))
	primary.add(categoryLink(right.Category))

	best := newGroup(a.config.Limits.ComparisonBest)
	for _, uc := range sortedUseCases(left.UseCases) {
		if right.HasUseCase(uc.ID) {
			best.add(bestLink(left.Category, uc))
		}
	}

	bundle := EmptyBundle()
	bundle.Primary = primary.items
	bundle.Tools = tools.items
	bundle.Alternatives = alts.items
	bundle.Best = best.items
	return bundle, nil
}

func (a *Assembler) buildCategory(ctx context.Context, slug string) (*Bundle, error) {
	category, err := a.store.FindCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load category: %w", err)
	}
	if category == nil {
		return EmptyBundle(), nil
	}
	limits := a.config.Limits

	items, err := a.store.FindItemsByCategory(ctx, category.ID, "", limits.CategoryScan)
	if err != nil {
		return nil, fmt.Errorf("failed to load category tools: %w", err)
	}

	useCases := newGroup(limits.CategoryUseCases)
	best := newGroup(limits.CategoryBest)
	for _, uc := range useCasesByFrequency(items) {
		useCases.add(useCaseLink(uc))
		best.add(bestLink(category, uc))
	}

	tools := newGroup(limits.CategoryTools)
	alts := newGroup(limits.CategoryAlternatives)
	for _, item := range items {
		tools.add(toolLink(item, nil))
		alts.add(alternativesLink(item))
	}

	comparisons := newGroup(limits.CategoryComparisons)
	for _, p := range comparisonPairs {
		if p[1] >= len(items) {
			continue
		}
		comparisons.add(comparisonLink(items[p[0]], items[p[1]]))
	}

	bundle := EmptyBundle()
	bundle.Tools = tools.items
	bundle.Alternatives = alts.items
	bundle.Comparisons = comparisons.items
	bundle.Best = best.items
	bundle.UseCases = useCases.items
	return bundle, nil
}

func (a *Assembler) buildBest(ctx context.Context, token string) (*Bundle, error) {
	key, ok := ParseBest(token)
	if !ok {
		return EmptyBundle(), nil
	}
	category, err := a.store.FindCategoryBySlug(ctx, key.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to load category: %w", err)
	}
	useCase, err := a.store.FindUseCaseBySlug(ctx, key.UseCase)
	if err != nil {
		return nil, fmt.Errorf("failed to load use case: %w", err)
	}
	if category == nil || useCase == nil {
		return EmptyBundle(), nil
	}
	limits := a.config.Limits

	items, err := a.store.FindItemsByCategory(ctx, category.ID, "", limits.CategoryScan)
	if err != nil {
		return nil, fmt.Errorf("failed to load category tools: %w", err)
	}
	members := items[:0]
	for _, item := range items {
		if item.HasUseCase(useCase.ID) {
			members = append(members, item)
		}
	}
	if limits.BestTools >= 0 && len(members) > limits.BestTools {
		members = members[:limits.BestTools]
	}

	primary := newGroup(-1)
	primary.add(categoryLink(category))
	primary.add(useCaseLink(*useCase))

	tools := newGroup(limits.BestTools)
	alts := newGroup(limits.BestAlternatives)
	for _, item := range members {
		tools.add(toolLink(item, nil))
		alts.add(alternativesLink(item))
	}

	comparisons := newGroup(limits.BestComparisons)
	for i := 0; i+1 < len(members); i++ {
		comparisons.add(comparisonLink(members[i], members[i+1]))
	}

	bundle := EmptyBundle()
	bundle.Primary = primary.items
	bundle.Tools = tools.items
	bundle.Alternatives = alts.items
	bundle.Comparisons = comparisons.items
	return bundle, nil
}

// sortedUseCases returns a copy of useCases ordered by slug.
func sortedUseCases(useCases []catalog.UseCase) []catalog.UseCase {
	out := make([]catalog.UseCase, len(useCases))
	copy(out, useCases)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Slug < out[j].Slug
	})
	return out
}

// useCasesByFrequency counts use-case tags across items, most frequent first,
// ties by slug.
func useCasesByFrequency(items []catalog.Item) []catalog.UseCase {
	counts := make(map[string]int)
	byID := make(map[string]catalog.UseCase)
	for _, item := range items {
		for _, uc := range item.UseCases {
			if _, ok := byID[uc.ID]; !ok {
				byID[uc.ID] = uc
			}
			counts[uc.ID]++
		}
	}

	out := make([]catalog.UseCase, 0, len(byID))
	for _, uc := range byID {
		out = append(out, uc)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := counts[out[i].ID], counts[out[j].ID]
		if ci != cj {
			return ci > cj
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}
