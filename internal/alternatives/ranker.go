// Package alternatives ranks similar catalog items for a source item using
// weighted set overlap plus administrator-curated edges.
package alternatives

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/findaly/findaly/internal/catalog"
	"github.com/findaly/findaly/internal/ranking"
	"github.com/findaly/findaly/internal/tracing"
)

// Config bounds the candidate pools and the ranked output.
type Config struct {
	CuratedLimit   int // Max curated edges loaded for the source (default: 24)
	PoolLimit      int // Max same-category candidates (default: 120)
	MinPoolSize    int // Pool size below which the pool is broadened (default: 8)
	BroadPoolLimit int // Max candidates in the broadened pool (default: 200)
	MaxResults     int // Max ranked alternatives returned (default: 12)
}

// DefaultConfig returns the default ranker bounds.
func DefaultConfig() Config {
	return Config{
		CuratedLimit:   24,
		PoolLimit:      120,
		MinPoolSize:    8,
		BroadPoolLimit: 200,
		MaxResults:     12,
	}
}

// Alternative is one ranked candidate.
type Alternative struct {
	Item               catalog.Item `json:"item"`
	Score              float64      `json:"score"`
	SharedUseCases     int          `json:"shared_use_cases"`
	SharedIntegrations int          `json:"shared_integrations"`
	Curated            bool         `json:"curated"`
	Note               string       `json:"note,omitempty"`
}

// Result is the ranked alternatives for a source item.
type Result struct {
	Source       catalog.Item  `json:"source"`
	Alternatives []Alternative `json:"alternatives"`
}

// Ranker computes ranked alternatives from a catalog store.
type Ranker struct {
	store   catalog.Store
	weights *ranking.Weights
	config  Config
	metrics *Metrics
	logger  *slog.Logger
}

// NewRanker creates a Ranker. A nil weights argument uses ranking.DefaultWeights,
// and a nil metrics argument disables metrics.
func NewRanker(store catalog.Store, weights *ranking.Weights, config Config, metrics *Metrics, logger *slog.Logger) *Ranker {
	if weights == nil {
		weights = ranking.DefaultWeights()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{
		store:   store,
		weights: weights,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

// curatedInfo is the manual score and note of a curated edge.
type curatedInfo struct {
	score float64
	note  string
}

// Rank returns the ranked alternatives for the item with the given slug.
// Returns nil, nil when no active item has that slug.
func (r *Ranker) Rank(ctx context.Context, slug string) (result *Result, err error) {
	start := time.Now()
	ctx, endSpan := tracing.StartSpan(ctx, "alternatives.rank", attribute.String("tool.slug", slug))
	defer func() {
		endSpan(err)
		r.observe(result, err, time.Since(start))
	}()

	source, err := r.store.FindItemBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load source tool: %w", err)
	}
	if !source.IsActive() {
		return nil, nil
	}

	edges, err := r.store.FindCuratedEdges(ctx, source.ID, r.config.CuratedLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load curated alternatives: %w", err)
	}
	curated := make(map[string]curatedInfo, len(edges))
	var curatedItems []catalog.Item
	for _, e := range edges {
		if !e.Alternative.IsActive() || e.Alternative.ID == source.ID {
			continue
		}
		if _, dup := curated[e.Alternative.ID]; dup {
			continue
		}
		curated[e.Alternative.ID] = curatedInfo{score: e.ManualScore, note: e.Note}
		curatedItems = append(curatedItems, *e.Alternative)
	}

	pool, err := r.candidatePool(ctx, source)
	if err != nil {
		return nil, err
	}

	candidates := mergeCandidates(source.ID, curatedItems, pool)
	alternatives := make([]Alternative, 0, len(candidates))
	for _, c := range candidates {
		alternatives = append(alternatives, r.score(source, c, curated))
	}

	sortAlternatives(alternatives)
	if r.config.MaxResults > 0 && len(alternatives) > r.config.MaxResults {
		alternatives = alternatives[:r.config.MaxResults]
	}

	tracing.SetAttributes(ctx,
		attribute.Int("alternatives.candidates", len(candidates)),
		attribute.Int("alternatives.curated", len(curatedItems)),
		attribute.Int("alternatives.returned", len(alternatives)))

	return &Result{
		Source:       *source,
		Alternatives: alternatives,
	}, nil
}

// candidatePool loads same-category candidates, broadening to shared use-cases
// when the category alone is too thin.
func (r *Ranker) candidatePool(ctx context.Context, source *catalog.Item) ([]catalog.Item, error) {
	pool, err := r.store.FindItemsByCategory(ctx, source.CategoryID, source.ID, r.config.PoolLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load category candidates: %w", err)
	}
	if len(pool) >= r.config.MinPoolSize {
		return pool, nil
	}

	r.logger.DebugContext(ctx, "broadening alternatives pool",
		slog.String("slug", source.Slug),
		slog.Int("pool_size", len(pool)),
		slog.Int("min_pool_size", r.config.MinPoolSize))
	if r.metrics != nil {
		r.metrics.IncPoolBroadened()
	}

	broad, err := r.store.FindItemsByCategoryOrUseCases(ctx, source.CategoryID, source.UseCaseIDs(), source.ID, r.config.BroadPoolLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load broadened candidates: %w", err)
	}
	return broad, nil
}

// mergeCandidates returns curated items followed by pool items, de-duplicated
// by ID, never including the source or inactive items.
func mergeCandidates(sourceID string, curated, pool []catalog.Item) []catalog.Item {
	seen := make(map[string]bool, len(curated)+len(pool))
	merged := make([]catalog.Item, 0, len(curated)+len(pool))
	for _, list := range [][]catalog.Item{curated, pool} {
		for _, item := range list {
			if item.ID == sourceID || seen[item.ID] || !item.IsActive() {
				continue
			}
			seen[item.ID] = true
			merged = append(merged, item)
		}
	}
	return merged
}

func (r *Ranker) score(source *catalog.Item, candidate catalog.Item, curated map[string]curatedInfo) Alternative {
	sourceUseCases := source.UseCaseSlugs()
	candidateUseCases := candidate.UseCaseSlugs()
	sharedIntegrations := ranking.IntersectionCount(source.Integrations, candidate.Integrations)
	info, isCurated := curated[candidate.ID]

	score := ranking.ScoreAlternative(ranking.AlternativeParams{
		UseCaseOverlap:     ranking.Jaccard(sourceUseCases, candidateUseCases),
		AudienceOverlap:    ranking.Jaccard(source.TargetAudience, candidate.TargetAudience),
		FeatureOverlap:     ranking.Jaccard(source.KeyFeatures, candidate.KeyFeatures),
		SharedIntegrations: sharedIntegrations,
		Featured:           candidate.Featured,
		Curated:            isCurated,
		ManualScore:        info.score,
	}, r.weights)

	return Alternative{
		Item:               candidate,
		Score:              score,
		SharedUseCases:     ranking.IntersectionCount(sourceUseCases, candidateUseCases),
		SharedIntegrations: sharedIntegrations,
		Curated:            isCurated,
		Note:               info.note,
	}
}

// sortAlternatives orders by score descending, ties broken by slug ascending.
func sortAlternatives(alts []Alternative) {
	sort.SliceStable(alts, func(i, j int) bool {
		if alts[i].Score != alts[j].Score {
			return alts[i].Score > alts[j].Score
		}
		return alts[i].Item.Slug < alts[j].Item.Slug
	})
}

func (r *Ranker) observe(result *Result, err error, elapsed time.Duration) {
	if r.metrics == nil {
		return
	}
	switch {
	case err != nil:
		r.metrics.IncRankRequests(OutcomeError)
	case result == nil:
		r.metrics.IncRankRequests(OutcomeNotFound)
	default:
		r.metrics.IncRankRequests(OutcomeFound)
	}
	r.metrics.ObserveRankDuration(elapsed.Seconds())
}
