// Package vector defines the optional vector index the memory store fans
// out to. The index is a black box keyed by item id; when it is absent the
// store degrades to lexical-only retrieval, so every call site must branch
// on Enabled.
package vector

import "context"

// Candidate is one nearest-neighbor hit.
type Candidate struct {
	ID    string
	Score float64
}

type Index interface {
	// Enabled reports whether a backend is configured. When false the
	// other methods are never called.
	Enabled() bool

	Upsert(ctx context.Context, id string, vec []float32) error
	Delete(ctx context.Context, id string) error

	// Search returns up to k candidates ordered best first.
	Search(ctx context.Context, vec []float32, k int) ([]Candidate, error)
}

// Disabled is the index used when no vector backend is configured.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) Upsert(context.Context, string, []float32) error { return nil }

func (Disabled) Delete(context.Context, string) error { return nil }

func (Disabled) Search(context.Context, []float32, int) ([]Candidate, error) {
	return nil, nil
}
