package memory

import (
	"context"
	"testing"

	"github.com/victoriahouse/recall/vector"
)

func TestSearchEmptyQueryListsRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"one", "two", "three"} {
		if _, err := s.Upsert(ctx, Item{ID: id, Content: "content " + id}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}
	// Spread the update times apart so the order is deterministic.
	for i, id := range []string{"one", "two", "three"} {
		if err := s.db.Exec("UPDATE memory_items SET updated_at = ? WHERE id = ?", 1000+i, id).Error; err != nil {
			t.Fatalf("set updated_at: %v", err)
		}
	}

	hits, err := s.Search(ctx, SearchRequest{Limit: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].ID != "three" || hits[1].ID != "two" {
		t.Fatalf("wrong recency order: %s, %s", hits[0].ID, hits[1].ID)
	}
}

func TestSearchLexical(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, Item{ID: "a", Content: "grocery list: milk, eggs, coffee"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.Upsert(ctx, Item{ID: "b", Content: "meeting notes from standup"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hits, err := s.Search(ctx, SearchRequest{Query: "coffee", Limit: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "a" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if hits[0].Score <= 0 || hits[0].Score > 1 {
		t.Fatalf("score out of range: %f", hits[0].Score)
	}
}

func TestSearchQuerySyntaxTreatedAsPhrase(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, Item{ID: "q", Content: `she said "hello AND goodbye" at once`}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Operators and quotes in the query must not reach the FTS parser.
	hits, err := s.Search(ctx, SearchRequest{Query: `"hello AND goodbye"`, Limit: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "q" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}

func TestSearchScopeFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, Item{ID: "w", PersonaID: "work", Content: "quarterly report draft"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.Upsert(ctx, Item{ID: "h", PersonaID: "home", Content: "quarterly tax report"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hits, err := s.Search(ctx, SearchRequest{Query: "report", PersonaID: "work", Limit: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "w" {
		t.Fatalf("scope filter ignored: %+v", hits)
	}
}

func TestSearchLikeFallback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, Item{ID: "f", Content: "fallback content here"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// With the shadow table gone the MATCH query fails and the store
	// must fall back to a substring scan.
	if err := s.db.Exec("DROP TABLE memory_fts").Error; err != nil {
		t.Fatalf("drop fts: %v", err)
	}

	hits, err := s.Search(ctx, SearchRequest{Query: "fallback", Limit: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "f" {
		t.Fatalf("fallback missed: %+v", hits)
	}
	if hits[0].Score != 0 {
		t.Fatalf("fallback score = %f, want 0", hits[0].Score)
	}
}

func TestSearchLikeFallbackWithVectorIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, Item{ID: "f", Content: "fallback content here"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.db.Exec("DROP TABLE memory_fts").Error; err != nil {
		t.Fatalf("drop fts: %v", err)
	}

	// A wired vector index must not eat the substring hits: the
	// degraded query returns the same results a lexical-only store
	// would, even when the neighbor set is disjoint.
	s.embedder = fixedEmbedder{}
	s.vec = fixedVector{candidates: []vector.Candidate{{ID: "other", Score: 0.9}}}
	s.lexicalWeight = 0.5

	hits, err := s.Search(ctx, SearchRequest{Query: "fallback", Limit: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "f" {
		t.Fatalf("degraded search lost substring hit: %+v", hits)
	}
	if hits[0].Score != 0 {
		t.Fatalf("fallback score = %f, want 0", hits[0].Score)
	}
}

func TestWeighResults(t *testing.T) {
	lexical := []SearchResult{{ID: "a", Score: 0.9}}
	neighbors := map[string]float64{"a": 0.5, "b": 0.9}

	merged, missing := weighResults(0.5, lexical, neighbors)
	if len(merged) != 1 || merged[0].ID != "a" {
		t.Fatalf("merged = %+v", merged)
	}
	if got, want := merged[0].Score, 0.5*0.9+0.5*0.5; got != want {
		t.Fatalf("combined score = %f, want %f", got, want)
	}
	if len(missing) != 1 || missing[0] != "b" {
		t.Fatalf("missing = %v", missing)
	}

	// Full lexical weight zeroes out the vector contribution.
	merged, _ = weighResults(1.0, lexical, neighbors)
	if got := merged[0].Score; got != 0.9 {
		t.Fatalf("lexical-only score = %f, want 0.9", got)
	}

	// Zero lexical weight is the mirror case: only the vector score
	// counts.
	merged, _ = weighResults(0, lexical, neighbors)
	if got := merged[0].Score; got != 0.5 {
		t.Fatalf("vector-only score = %f, want 0.5", got)
	}
}

type fixedVector struct {
	candidates []vector.Candidate
	err        error
}

func (fixedVector) Enabled() bool                                   { return true }
func (fixedVector) Upsert(context.Context, string, []float32) error { return nil }
func (fixedVector) Delete(context.Context, string) error            { return nil }
func (v fixedVector) Search(context.Context, []float32, int) ([]vector.Candidate, error) {
	return v.candidates, v.err
}

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}
func (fixedEmbedder) Dimensions() int { return 3 }

func TestHybridSearchMergesVectorHits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, Item{ID: "a", Content: "espresso brewing guide"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.Upsert(ctx, Item{ID: "b", Content: "morning caffeine ritual"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	s.embedder = fixedEmbedder{}
	s.vec = fixedVector{candidates: []vector.Candidate{{ID: "b", Score: 0.9}}}
	s.lexicalWeight = 0.5

	hits, err := s.Search(ctx, SearchRequest{Query: "espresso", Limit: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	var sawB bool
	for _, h := range hits {
		if h.ID == "b" {
			sawB = true
			if h.Score != 0.45 {
				t.Fatalf("vector-only score = %f, want 0.45", h.Score)
			}
		}
	}
	if !sawB {
		t.Fatal("vector-only hit not backfilled")
	}

	// With full lexical weight, vector-only hits carry zero score and
	// are dropped.
	s.lexicalWeight = 1.0
	hits, err = s.Search(ctx, SearchRequest{Query: "espresso", Limit: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "a" {
		t.Fatalf("expected lexical-only result, got %+v", hits)
	}

	// With zero lexical weight, only the vector neighbor survives, at
	// its raw similarity.
	s.lexicalWeight = 0
	hits, err = s.Search(ctx, SearchRequest{Query: "espresso", Limit: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "b" {
		t.Fatalf("expected vector-only result, got %+v", hits)
	}
	if hits[0].Score != 0.9 {
		t.Fatalf("vector score = %f, want 0.9", hits[0].Score)
	}
}

func TestHybridSearchDegradesOnVectorFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, Item{ID: "a", Content: "degradation survives"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	s.embedder = fixedEmbedder{}
	s.vec = fixedVector{err: context.DeadlineExceeded}

	hits, err := s.Search(ctx, SearchRequest{Query: "degradation", Limit: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "a" {
		t.Fatalf("lexical fallback missed: %+v", hits)
	}
}

func TestHybridEndToEnd(t *testing.T) {
	s := newHybridStore(t, 0.7)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, Item{ID: "x", Content: "remember to water the plants"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.Upsert(ctx, Item{ID: "y", Content: "dentist appointment on friday"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hits, err := s.Search(ctx, SearchRequest{Query: "plants", Limit: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) == 0 || hits[0].ID != "x" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}

func TestSearchNoMatchReturnsEmpty(t *testing.T) {
	s := newTestStore(t)
	hits, err := s.Search(context.Background(), SearchRequest{Query: "foo", Limit: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected empty result, got %+v", hits)
	}
}

func TestSearchToleratesMalformedMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, Item{ID: "bad", Content: "salvageable row"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.db.Exec("UPDATE memory_items SET metadata = ? WHERE id = ?", "{not json", "bad").Error; err != nil {
		t.Fatalf("corrupt metadata: %v", err)
	}

	got, ok, err := s.Get(ctx, "bad")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Metadata != nil {
		t.Fatalf("malformed metadata should read as nil, got %+v", got.Metadata)
	}

	hits, err := s.Search(ctx, SearchRequest{Query: "salvageable", Limit: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].Metadata != nil {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}
