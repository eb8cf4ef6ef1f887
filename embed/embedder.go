// Package embed defines the embedding provider contract used by the memory
// store's vector fan-out. Providers are treated as black boxes: the store
// only needs text in, fixed-length vector out. Failures are always caught
// by callers and never fail the primary write or query.
package embed

import "context"

// Embedder converts text to a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
