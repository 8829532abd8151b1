// Package embedder defines the text embedding provider interface used
// for similarity search.
package embedder

import "context"

// Provider is implemented by every embedding backend.
type Provider interface {
	// Embed converts a text string into a vector embedding.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - text: The input text to embed
	//
	// Returns the embedding vector and any error.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch converts multiple texts in one request, which is
	// cheaper than repeated Embed calls.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the vector dimension this provider produces.
	Dimensions() int

	// Close releases any resources held by the provider.
	Close() error
}
