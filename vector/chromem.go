package vector

import (
	"context"
	"fmt"
	"strings"

	chromem "github.com/philippgille/chromem-go"
)

const collectionName = "memory"

// ChromemIndex stores item vectors in chromem-go, an embedded pure-Go
// vector database. With an empty path the index lives in memory only.
type ChromemIndex struct {
	db  *chromem.DB
	col *chromem.Collection
}

func NewChromemIndex(path string) (*ChromemIndex, error) {
	var db *chromem.DB
	var err error
	if strings.TrimSpace(path) == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("open vector db: %w", err)
		}
	}

	// Embeddings are always provided explicitly, so no embedding func is
	// registered on the collection.
	col, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open vector collection: %w", err)
	}
	return &ChromemIndex{db: db, col: col}, nil
}

func (x *ChromemIndex) Enabled() bool { return x != nil && x.col != nil }

func (x *ChromemIndex) Upsert(ctx context.Context, id string, vec []float32) error {
	if id == "" || len(vec) == 0 {
		return nil
	}
	return x.col.AddDocument(ctx, chromem.Document{
		ID:        id,
		Content:   id,
		Embedding: vec,
	})
}

func (x *ChromemIndex) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return x.col.Delete(ctx, nil, nil, id)
}

func (x *ChromemIndex) Search(ctx context.Context, vec []float32, k int) ([]Candidate, error) {
	if len(vec) == 0 || k <= 0 {
		return nil, nil
	}
	// chromem rejects nResults larger than the collection.
	if count := x.col.Count(); count < k {
		k = count
	}
	if k == 0 {
		return nil, nil
	}
	results, err := x.col.QueryEmbedding(ctx, vec, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		out = append(out, Candidate{ID: r.ID, Score: float64(r.Similarity)})
	}
	return out, nil
}
