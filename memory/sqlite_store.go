package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/victoriahouse/recall/db/models"
	"github.com/victoriahouse/recall/embed"
	"github.com/victoriahouse/recall/vector"
)

const defaultLexicalWeight = 0.7

// StoreConfig wires a SQLiteStore. DB is required; Vector and Embedder
// are optional and may be left nil to run lexical-only. LexicalWeight
// is a pointer so that an explicit 0 (pure vector ranking) is distinct
// from unset; nil picks the 0.7 default.
type StoreConfig struct {
	DB            *gorm.DB
	Vector        vector.Index
	Embedder      embed.Embedder
	LexicalWeight *float64
	Logger        *slog.Logger
}

// SQLiteStore keeps memory items in SQLite with an FTS5 shadow table,
// and optionally fans writes out to a vector index.
type SQLiteStore struct {
	db            *gorm.DB
	vec           vector.Index
	embedder      embed.Embedder
	lexicalWeight float64
	log           *slog.Logger
}

func NewSQLiteStore(cfg StoreConfig) *SQLiteStore {
	vec := cfg.Vector
	if vec == nil {
		vec = vector.Disabled{}
	}
	w := defaultLexicalWeight
	if cfg.LexicalWeight != nil {
		w = clampWeight(*cfg.LexicalWeight)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &SQLiteStore{
		db:            cfg.DB,
		vec:           vec,
		embedder:      cfg.Embedder,
		lexicalWeight: w,
		log:           log,
	}
}

func (s *SQLiteStore) Upsert(ctx context.Context, item Item) (Item, error) {
	now := time.Now().Unix()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.UpdatedAt = now
	item.CreatedAt = now

	// An existing row keeps its original creation time.
	var prev models.MemoryItem
	err := s.db.WithContext(ctx).
		Select("created_at").
		Where("id = ?", item.ID).
		First(&prev).Error
	switch {
	case err == nil:
		item.CreatedAt = prev.CreatedAt
	case errors.Is(err, gorm.ErrRecordNotFound):
		// new item
	default:
		return Item{}, fmt.Errorf("lookup memory item %s: %w", item.ID, err)
	}

	if item.Importance == 0 {
		item.Importance = 1.0
	}
	row := toModel(item)
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return Item{}, fmt.Errorf("upsert memory item %s: %w", item.ID, err)
	}

	s.syncShadow(ctx, item.ID, item.Content)
	s.syncVector(ctx, item.ID, item.Content)
	return item, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Item, bool, error) {
	var row models.MemoryItem
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, fmt.Errorf("get memory item %s: %w", id, err)
	}
	return fromModel(row), true, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := s.db.WithContext(ctx).
		Exec("DELETE FROM memory_fts WHERE id = ?", id).Error; err != nil {
		s.log.Warn("fts delete failed", "id", id, "error", err)
	}
	if s.vec.Enabled() {
		if err := s.vec.Delete(ctx, id); err != nil {
			s.log.Warn("vector delete failed", "id", id, "error", err)
		}
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.MemoryItem{})
	if res.Error != nil {
		return false, fmt.Errorf("delete memory item %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *SQLiteStore) Pin(ctx context.Context, id string, pinned bool) error {
	res := s.db.WithContext(ctx).Model(&models.MemoryItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"pinned":     pinned,
			"updated_at": time.Now().Unix(),
		})
	if res.Error != nil {
		return fmt.Errorf("pin memory item %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *SQLiteStore) Touch(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.MemoryItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_accessed": time.Now().Unix(),
			"access_count":  gorm.Expr("access_count + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("touch memory item %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *SQLiteStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.MemoryItem{}).
		Where("pinned = ?", false).
		Where("ttl_seconds IS NOT NULL").
		Where("updated_at + ttl_seconds <= ?", now.Unix()).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("list expired memory items: %w", err)
	}
	// Delete one by one so the shadow and vector indexes stay in sync.
	removed := 0
	for _, id := range ids {
		ok, err := s.Delete(ctx, id)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByType: map[string]int64{}}

	if err := s.db.WithContext(ctx).Model(&models.MemoryItem{}).
		Count(&st.TotalItems).Error; err != nil {
		return Stats{}, fmt.Errorf("count memory items: %w", err)
	}

	type typeCount struct {
		Type  string
		Count int64
	}
	var byType []typeCount
	if err := s.db.WithContext(ctx).Model(&models.MemoryItem{}).
		Select("type, COUNT(*) AS count").
		Group("type").
		Scan(&byType).Error; err != nil {
		return Stats{}, fmt.Errorf("count memory items by type: %w", err)
	}
	for _, tc := range byType {
		st.ByType[tc.Type] = tc.Count
	}

	type aggregate struct {
		TotalAccess   int64
		AvgImportance float64
	}
	var agg aggregate
	if err := s.db.WithContext(ctx).Model(&models.MemoryItem{}).
		Select("COALESCE(SUM(access_count), 0) AS total_access, COALESCE(AVG(importance), 0) AS avg_importance").
		Scan(&agg).Error; err != nil {
		return Stats{}, fmt.Errorf("aggregate memory stats: %w", err)
	}
	st.TotalAccessCount = agg.TotalAccess
	st.AverageImportance = agg.AvgImportance
	return st, nil
}

// syncShadow keeps the FTS5 table in lockstep with the row. Index
// failures are logged but never fail the write.
func (s *SQLiteStore) syncShadow(ctx context.Context, id, content string) {
	if err := s.db.WithContext(ctx).
		Exec("DELETE FROM memory_fts WHERE id = ?", id).Error; err != nil {
		s.log.Warn("fts delete failed", "id", id, "error", err)
		return
	}
	if err := s.db.WithContext(ctx).
		Exec("INSERT INTO memory_fts (id, content) VALUES (?, ?)", id, content).Error; err != nil {
		s.log.Warn("fts insert failed", "id", id, "error", err)
	}
}

// syncVector fans the write out to the vector index, best effort.
func (s *SQLiteStore) syncVector(ctx context.Context, id, content string) {
	if !s.vec.Enabled() || s.embedder == nil || content == "" {
		return
	}
	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		s.log.Warn("embedding failed", "id", id, "error", err)
		return
	}
	if err := s.vec.Upsert(ctx, id, vec); err != nil {
		s.log.Warn("vector upsert failed", "id", id, "error", err)
	}
}

func toModel(item Item) models.MemoryItem {
	var lastAccessed *int64
	if item.LastAccessed != 0 {
		v := item.LastAccessed
		lastAccessed = &v
	}
	return models.MemoryItem{
		ID:           item.ID,
		TenantID:     optionalString(item.TenantID),
		PersonaID:    optionalString(item.PersonaID),
		ProjectID:    optionalString(item.ProjectID),
		ContactID:    optionalString(item.ContactID),
		Type:         item.Type,
		Content:      item.Content,
		Metadata:     encodeStringMap(item.Metadata),
		Lineage:      encodeStringMap(item.Lineage),
		Importance:   item.Importance,
		Pinned:       item.Pinned,
		TTLSeconds:   item.TTLSeconds,
		AccessCount:  item.AccessCount,
		LastAccessed: lastAccessed,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}

func fromModel(row models.MemoryItem) Item {
	item := Item{
		ID:          row.ID,
		TenantID:    derefString(row.TenantID),
		PersonaID:   derefString(row.PersonaID),
		ProjectID:   derefString(row.ProjectID),
		ContactID:   derefString(row.ContactID),
		Type:        row.Type,
		Content:     row.Content,
		Metadata:    decodeStringMap(row.Metadata),
		Lineage:     decodeStringMap(row.Lineage),
		Importance:  row.Importance,
		Pinned:      row.Pinned,
		TTLSeconds:  row.TTLSeconds,
		AccessCount: row.AccessCount,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.LastAccessed != nil {
		item.LastAccessed = *row.LastAccessed
	}
	return item
}

func encodeStringMap(m map[string]string) *string {
	if len(m) == 0 {
		return nil
	}
	buf, _ := json.Marshal(m)
	s := string(buf)
	return &s
}

// decodeStringMap tolerates malformed stored JSON: the field simply
// reads back as nil instead of failing the row.
func decodeStringMap(raw *string) map[string]string {
	if raw == nil || *raw == "" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(*raw), &m); err != nil {
		return nil
	}
	return m
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
