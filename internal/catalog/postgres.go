package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/findaly/findaly/internal/tracing"
)

const itemSelect = `
	SELECT t.id, t.slug, t.name, t.status, t.featured, t.category_id,
	       c.slug, c.name,
	       t.target_audience, t.key_features, t.integrations,
	       t.created_at, t.updated_at
	FROM tools t
	JOIN categories c ON c.id = t.category_id
`

const itemOrder = ` ORDER BY t.featured DESC, lower(t.name), t.slug`

// PostgresStore implements Store on the catalog tables in PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

// FindItemBySlug returns the item with the given slug regardless of status.
func (s *PostgresStore) FindItemBySlug(ctx context.Context, slug string) (item *Item, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "tools", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	items, err := s.queryItems(ctx, itemSelect+` WHERE t.slug = $1`, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to find tool %q: %w", slug, err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// FindItemsByCategory returns active items of a category.
func (s *PostgresStore) FindItemsByCategory(ctx context.Context, categoryID, excludeID string, limit int) (items []Item, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "tools", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := itemSelect + `
		WHERE t.status = 'ACTIVE' AND t.category_id = $1 AND t.id <> $2` +
		itemOrder + ` LIMIT NULLIF($3::int, 0)`

	items, err = s.queryItems(ctx, query, categoryID, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools for category %s: %w", categoryID, err)
	}
	return items, nil
}

// FindItemsByCategoryOrUseCases returns active items in the category or sharing a use-case.
func (s *PostgresStore) FindItemsByCategoryOrUseCases(ctx context.Context, categoryID string, useCaseIDs []string, excludeID string, limit int) (items []Item, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "tools", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := itemSelect + `
		WHERE t.status = 'ACTIVE' AND t.id <> $2
		  AND (t.category_id = $1 OR EXISTS (
		        SELECT 1 FROM tool_use_cases tu
		        WHERE tu.tool_id = t.id AND tu.use_case_id = ANY($3)))` +
		itemOrder + ` LIMIT NULLIF($4::int, 0)`

	items, err = s.queryItems(ctx, query, categoryID, excludeID, pq.Array(useCaseIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools for category %s or use-cases: %w", categoryID, err)
	}
	return items, nil
}

// FindCuratedEdges returns curated edges from itemID with their targets attached.
func (s *PostgresStore) FindCuratedEdges(ctx context.Context, itemID string, limit int) (edges []CuratedAlternative, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "curated_alternatives", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tool_id, alternative_id, manual_score, COALESCE(note, ''), created_at
		FROM curated_alternatives
		WHERE tool_id = $1
		ORDER BY manual_score DESC, created_at DESC
		LIMIT NULLIF($2::int, 0)`, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query curated alternatives: %w", err)
	}
	defer rows.Close()

	var targetIDs []string
	for rows.Next() {
		var e CuratedAlternative
		if err := rows.Scan(&e.ID, &e.ItemID, &e.AlternativeID, &e.ManualScore, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan curated alternative: %w", err)
		}
		edges = append(edges, e)
		targetIDs = append(targetIDs, e.AlternativeID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate curated alternatives: %w", err)
	}
	if len(edges) == 0 {
		return nil, nil
	}

	targets, err := s.queryItems(ctx, itemSelect+` WHERE t.id = ANY($1)`, pq.Array(targetIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load curated targets: %w", err)
	}
	byID := make(map[string]*Item, len(targets))
	for i := range targets {
		byID[targets[i].ID] = &targets[i]
	}
	for i := range edges {
		edges[i].Alternative = byID[edges[i].AlternativeID]
	}
	return edges, nil
}

// FindCategoryBySlug returns the category with the given slug.
func (s *PostgresStore) FindCategoryBySlug(ctx context.Context, slug string) (cat *Category, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "categories", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	var c Category
	err = s.db.QueryRowContext(ctx,
		`SELECT id, slug, name FROM categories WHERE slug = $1`, slug).
		Scan(&c.ID, &c.Slug, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category %q: %w", slug, err)
	}
	return &c, nil
}

// FindUseCaseBySlug returns the use-case with the given slug.
func (s *PostgresStore) FindUseCaseBySlug(ctx context.Context, slug string) (uc *UseCase, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "use_cases", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	var u UseCase
	err = s.db.QueryRowContext(ctx,
		`SELECT id, slug, name FROM use_cases WHERE slug = $1`, slug).
		Scan(&u.ID, &u.Slug, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find use-case %q: %w", slug, err)
	}
	return &u, nil
}

// queryItems runs an item query and attaches use-cases with one follow-up query.
func (s *PostgresStore) queryItems(ctx context.Context, query string, args ...any) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item   Item
			cat    Category
			status string
		)
		if err := rows.Scan(
			&item.ID, &item.Slug, &item.Name, &status, &item.Featured, &item.CategoryID,
			&cat.Slug, &cat.Name,
			pq.Array(&item.TargetAudience), pq.Array(&item.KeyFeatures), pq.Array(&item.Integrations),
			&item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tool: %w", err)
		}
		item.Status = Status(status)
		cat.ID = item.CategoryID
		item.Category = &cat
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.attachUseCases(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// attachUseCases loads the use-cases of every item in a single query.
func (s *PostgresStore) attachUseCases(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	index := make(map[string]int, len(items))
	for i, item := range items {
		ids[i] = item.ID
		index[item.ID] = i
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT tu.tool_id, u.id, u.slug, u.name
		FROM tool_use_cases tu
		JOIN use_cases u ON u.id = tu.use_case_id
		WHERE tu.tool_id = ANY($1)
		ORDER BY u.slug`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query tool use-cases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			toolID string
			uc     UseCase
		)
		if err := rows.Scan(&toolID, &uc.ID, &uc.Slug, &uc.Name); err != nil {
			return fmt.Errorf("failed to scan tool use-case: %w", err)
		}
		if i, ok := index[toolID]; ok {
			items[i].UseCases = append(items[i].UseCases, uc)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate tool use-cases: %w", err)
	}

	s.logger.DebugContext(ctx, "loaded tools", slog.Int("count", len(items)))
	return nil
}
