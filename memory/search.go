package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/victoriahouse/recall/db/models"
)

const (
	defaultSearchLimit = 10
	minFetchSize       = 50
)

// Search runs hybrid retrieval. An empty query lists the most recently
// updated items. Otherwise lexical results from the FTS5 shadow table
// are merged with vector neighbors when a vector index is wired; any
// failure on the vector side degrades to lexical-only.
func (s *SQLiteStore) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}
	if strings.TrimSpace(req.Query) == "" {
		return s.searchRecent(ctx, req)
	}

	fetch := req.Limit * 2
	if fetch < minFetchSize {
		fetch = minFetchSize
	}

	lexical, degraded, err := s.searchLexical(ctx, req, fetch)
	if err != nil {
		return nil, err
	}
	// A rejected full-text query degrades the whole search to the
	// substring scan. Its hits carry no rank, so merging them with
	// vector neighbors would drop every hit without a neighbor; skip
	// the merge and return the same recency-ordered results a
	// lexical-only store would.
	if degraded || !s.vec.Enabled() || s.embedder == nil {
		return truncate(lexical, req.Limit), nil
	}

	neighbors, err := s.searchVector(ctx, req, fetch)
	if err != nil {
		s.log.Warn("vector search failed, using lexical only", "error", err)
		return truncate(lexical, req.Limit), nil
	}

	merged, err := s.mergeHybrid(ctx, req, lexical, neighbors)
	if err != nil {
		return nil, err
	}
	return truncate(merged, req.Limit), nil
}

func (s *SQLiteStore) searchRecent(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	var rows []models.MemoryItem
	q := applyScope(s.db.WithContext(ctx).Model(&models.MemoryItem{}), req, "memory_items")
	err := q.Order("updated_at DESC").Limit(req.Limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list recent memory items: %w", err)
	}
	results := make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, toResult(row, 0))
	}
	return results, nil
}

// searchLexical queries the FTS5 shadow table. The degraded flag is
// true when the full-text query failed and the results came from the
// substring fallback instead.
func (s *SQLiteStore) searchLexical(ctx context.Context, req SearchRequest, fetch int) (results []SearchResult, degraded bool, err error) {
	type matchRow struct {
		models.MemoryItem
		Rank float64
	}
	var rows []matchRow
	q := s.db.WithContext(ctx).
		Table("memory_items").
		Select("memory_items.*, memory_fts.rank AS rank").
		Joins("JOIN memory_fts ON memory_fts.id = memory_items.id").
		Where("memory_fts MATCH ?", quoteFTSQuery(req.Query))
	q = applyScope(q, req, "memory_items")
	err = q.Order("memory_fts.rank").Limit(fetch).Scan(&rows).Error
	if err != nil {
		// A malformed query or a missing shadow table falls back to a
		// plain substring scan, ordered by recency.
		s.log.Debug("fts query failed, falling back to LIKE", "error", err)
		results, err = s.searchLike(ctx, req, fetch)
		return results, true, err
	}

	results = make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, toResult(row.MemoryItem, rankToScore(row.Rank)))
	}
	return results, false, nil
}

func (s *SQLiteStore) searchLike(ctx context.Context, req SearchRequest, fetch int) ([]SearchResult, error) {
	var rows []models.MemoryItem
	pattern := "%" + strings.TrimSpace(req.Query) + "%"
	q := applyScope(s.db.WithContext(ctx).Model(&models.MemoryItem{}), req, "memory_items").
		Where("(content LIKE ? OR metadata LIKE ?)", pattern, pattern)
	err := q.Order("updated_at DESC").Limit(fetch).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("substring search: %w", err)
	}
	results := make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, toResult(row, 0))
	}
	return results, nil
}

func (s *SQLiteStore) searchVector(ctx context.Context, req SearchRequest, fetch int) (map[string]float64, error) {
	vec, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	candidates, err := s.vec.Search(ctx, vec, fetch)
	if err != nil {
		return nil, err
	}
	scores := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		scores[c.ID] = c.Score
	}
	return scores, nil
}

// mergeHybrid unions lexical hits and vector neighbors by id, weighting
// combined = w*lexical + (1-w)*vector. Vector-only ids are backfilled
// from the base table, still honoring the request's scope filters.
func (s *SQLiteStore) mergeHybrid(ctx context.Context, req SearchRequest, lexical []SearchResult, neighbors map[string]float64) ([]SearchResult, error) {
	w := clampWeight(s.lexicalWeight)
	merged, missing := weighResults(w, lexical, neighbors)
	if len(missing) > 0 {
		var rows []models.MemoryItem
		q := applyScope(s.db.WithContext(ctx).Model(&models.MemoryItem{}), req, "memory_items").
			Where("id IN ?", missing)
		if err := q.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("backfill vector hits: %w", err)
		}
		for _, row := range rows {
			merged = append(merged, toResult(row, (1-w)*neighbors[row.ID]))
		}
	}

	filtered := merged[:0]
	for _, r := range merged {
		if r.Score > 0 {
			filtered = append(filtered, r)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})
	return filtered, nil
}

func clampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

// weighResults applies combined = w*lexical + (1-w)*vector to the
// lexical hits and reports vector-only ids that still need a row lookup.
func weighResults(w float64, lexical []SearchResult, neighbors map[string]float64) ([]SearchResult, []string) {
	merged := make([]SearchResult, 0, len(lexical)+len(neighbors))
	seen := make(map[string]struct{}, len(lexical))
	for _, r := range lexical {
		seen[r.ID] = struct{}{}
		r.Score = w*r.Score + (1-w)*neighbors[r.ID]
		merged = append(merged, r)
	}
	var missing []string
	for id := range neighbors {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	return merged, missing
}

func applyScope(q *gorm.DB, req SearchRequest, table string) *gorm.DB {
	if req.TenantID != "" {
		q = q.Where(table+".tenant_id = ?", req.TenantID)
	}
	if req.PersonaID != "" {
		q = q.Where(table+".persona_id = ?", req.PersonaID)
	}
	if req.ProjectID != "" {
		q = q.Where(table+".project_id = ?", req.ProjectID)
	}
	if req.ContactID != "" {
		q = q.Where(table+".contact_id = ?", req.ContactID)
	}
	if req.Type != "" {
		q = q.Where(table+".type = ?", req.Type)
	}
	return q
}

// quoteFTSQuery wraps the query in double quotes so FTS5 treats it as a
// phrase and cannot parse user input as query syntax.
func quoteFTSQuery(query string) string {
	return `"` + strings.ReplaceAll(strings.TrimSpace(query), `"`, `""`) + `"`
}

// rankToScore converts a native full-text rank into 0..1. Ranks at or
// below zero count as perfect matches; positive ranks decay with
// distance from zero.
func rankToScore(rank float64) float64 {
	if rank <= 0 {
		return 1.0
	}
	return 1 / (1 + rank)
}

func toResult(row models.MemoryItem, score float64) SearchResult {
	r := SearchResult{
		ID:       row.ID,
		Content:  row.Content,
		Type:     row.Type,
		Metadata: decodeStringMap(row.Metadata),
		Score:    score,
	}
	if row.LastAccessed != nil {
		r.LastAccessed = *row.LastAccessed
	}
	return r
}

func truncate(results []SearchResult, limit int) []SearchResult {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}
