// Package semanticrouter routes free-text queries to named routes by
// embedding similarity.
//
// A Router is built once from a catalog of routes, each described by example
// utterances. Building encodes every example with an Encoder and keeps the
// vectors in an in-memory index. Queries are encoded with the same Encoder
// and scored against every route; a route's score is the highest cosine
// similarity between the query and any of its examples. The best top_k
// routes are returned, ties going to the route defined first.
//
// The index never changes after New returns, so a Router may be shared by
// any number of goroutines. top_k is passed on every call.
package semanticrouter

import (
	"context"

	"github.com/liliang-cn/semrouter/pkg/vector"
)

// DefaultTopK is the number of matches returned when no WithTopK option is given.
const DefaultTopK = 5

// Route represents a single semantic route with associated example utterances.
type Route struct {
	// Name is the unique identifier for this route
	Name string `json:"name" yaml:"name"`

	// Description is a unique human-readable summary of the route's intent
	Description string `json:"description" yaml:"description"`

	// Examples are utterances that represent this route's intent.
	// A route without examples is never matched while other routes have examples.
	Examples []string `json:"examples" yaml:"examples"`

	// Metadata stores additional information about the route
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// clone returns a deep copy so the router never aliases caller memory.
func (r Route) clone() Route {
	out := Route{Name: r.Name, Description: r.Description}
	if r.Examples != nil {
		out.Examples = append([]string(nil), r.Examples...)
	}
	if r.Metadata != nil {
		out.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Match is one ranked route for a query.
type Match struct {
	// Rank is 0 for the best match
	Rank int `json:"rank"`

	// RouteName is the name of the matched route
	RouteName string `json:"route_name"`

	// Score is the best cosine similarity between the query and the route's examples
	Score float64 `json:"cosine_similarity"`
}

// Result holds the ranked matches for one query.
type Result struct {
	Query   string  `json:"query"`
	Matches []Match `json:"routes"`
}

// Best returns the rank-0 match, if any.
func (r Result) Best() (Match, bool) {
	if len(r.Matches) == 0 {
		return Match{}, false
	}
	return r.Matches[0], true
}

// Encoder maps texts to embedding vectors.
//
// Encode must return exactly one vector per input, in input order, and all
// vectors from one Encoder must share a dimensionality. Implementations used
// by a shared Router must be safe for concurrent use.
type Encoder interface {
	Encode(ctx context.Context, inputs []string) ([]vector.Vector, error)
}

// EncoderFunc adapts an ordinary function to the Encoder interface.
type EncoderFunc func(ctx context.Context, inputs []string) ([]vector.Vector, error)

// Encode calls f(ctx, inputs).
func (f EncoderFunc) Encode(ctx context.Context, inputs []string) ([]vector.Vector, error) {
	return f(ctx, inputs)
}

// Embedder is the float32 batch embedding interface common to embedding
// model clients.
type Embedder interface {
	// EmbedBatch converts multiple text strings into vector embeddings.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// FromEmbedder adapts an Embedder to the Encoder interface.
func FromEmbedder(e Embedder) Encoder {
	if e == nil {
		return nil
	}
	return EncoderFunc(func(ctx context.Context, inputs []string) ([]vector.Vector, error) {
		raw, err := e.EmbedBatch(ctx, inputs)
		if err != nil {
			return nil, err
		}
		out := make([]vector.Vector, len(raw))
		for i, v := range raw {
			out[i] = vector.FromFloat32(v)
		}
		return out, nil
	})
}

// Config holds configuration for the semantic router.
type Config struct {
	// TopK is the number of matches returned by callers that use DefaultTopK (default: 5)
	TopK int `json:"topK"`

	// BatchEncoding encodes the examples of every route in a single encoder
	// call instead of one call per route (default: false)
	BatchEncoding bool `json:"batchEncoding"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		TopK: DefaultTopK,
	}
}

// Option is a function that modifies router configuration.
type Option func(*Config)

// WithTopK sets the default number of matches.
func WithTopK(k int) Option {
	return func(c *Config) {
		c.TopK = k
	}
}

// WithBatchEncoding enables or disables single-call example encoding.
func WithBatchEncoding(enabled bool) Option {
	return func(c *Config) {
		c.BatchEncoding = enabled
	}
}

// Stats describes a built router.
type Stats struct {
	RouteCount   int `json:"route_count"`
	ExampleCount int `json:"example_count"`
	EmptyRoutes  int `json:"empty_routes"`
	Dimension    int `json:"dimension"`
	DefaultTopK  int `json:"default_top_k"`
}
