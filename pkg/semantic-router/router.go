package semanticrouter

import (
	"container/heap"
	"context"
	"fmt"
	"reflect"

	"github.com/liliang-cn/semrouter/pkg/vector"
)

// indexEntry is one route and the embeddings of its examples.
type indexEntry struct {
	route    Route
	examples []vector.Vector
}

// Router performs semantic routing using vector similarity.
type Router struct {
	encoder     Encoder
	entries     []indexEntry // catalog order
	byName      map[string]int
	dimension   int // 0 when no route has examples
	defaultTopK int
}

// New validates routes, encodes their examples and returns the routing index.
//
// Every catalog problem is reported together in one *ConfigError, and no
// encoding is attempted unless the catalog and encoder are valid. Encoder
// failures are returned as ErrEncodingFailure with the cause chained.
func New(ctx context.Context, encoder Encoder, routes []Route, opts ...Option) (*Router, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	var problems []error
	if err := ValidateCatalog(routes); err != nil {
		problems = append(problems, err.(*ConfigError).Problems...)
	}
	if isNilEncoder(encoder) {
		problems = append(problems, fmt.Errorf("%w: encoder cannot be nil", ErrInvalidEncoder))
	}
	if config.TopK < 1 {
		problems = append(problems, invalidTopK(config.TopK))
	}
	if len(problems) > 0 {
		return nil, &ConfigError{Problems: problems}
	}

	r := &Router{
		encoder:     encoder,
		entries:     make([]indexEntry, len(routes)),
		byName:      make(map[string]int, len(routes)),
		defaultTopK: config.TopK,
	}
	for i, route := range routes {
		r.entries[i] = indexEntry{route: route.clone()}
		r.byName[route.Name] = i
	}

	var err error
	if config.BatchEncoding {
		err = r.encodeAllExamples(ctx)
	} else {
		err = r.encodeExamplesPerRoute(ctx)
	}
	if err != nil {
		return nil, wrapError("build", err)
	}

	return r, nil
}

// ValidateCatalog checks catalog integrity: at least one route, unique
// names and unique descriptions. All violations are returned together as a
// *ConfigError.
func ValidateCatalog(routes []Route) error {
	var problems []error
	if len(routes) == 0 {
		problems = append(problems, ErrEmptyCatalog)
	}

	names := make(map[string]int, len(routes))
	descriptions := make(map[string]int, len(routes))
	for i, route := range routes {
		if first, ok := names[route.Name]; ok {
			problems = append(problems, fmt.Errorf("%w: %q (routes %d and %d)", ErrDuplicateName, route.Name, first, i))
		} else {
			names[route.Name] = i
		}
		if first, ok := descriptions[route.Description]; ok {
			problems = append(problems, fmt.Errorf("%w: %q (routes %d and %d)", ErrDuplicateDescription, route.Description, first, i))
		} else {
			descriptions[route.Description] = i
		}
	}

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

// isNilEncoder also catches typed nils such as (*MyEncoder)(nil).
func isNilEncoder(e Encoder) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// encodeExamplesPerRoute calls the encoder once per route, in catalog order.
// Routes without examples are not sent to the encoder.
func (r *Router) encodeExamplesPerRoute(ctx context.Context) error {
	for i := range r.entries {
		entry := &r.entries[i]
		if len(entry.route.Examples) == 0 {
			continue
		}
		vectors, err := r.encode(ctx, entry.route.Examples)
		if err != nil {
			return fmt.Errorf("route %q: %w", entry.route.Name, err)
		}
		entry.examples = vectors
	}
	return nil
}

// encodeAllExamples encodes every example in one call and regroups the
// vectors by route.
func (r *Router) encodeAllExamples(ctx context.Context) error {
	var texts []string
	for _, entry := range r.entries {
		texts = append(texts, entry.route.Examples...)
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := r.encode(ctx, texts)
	if err != nil {
		return err
	}

	offset := 0
	for i := range r.entries {
		n := len(r.entries[i].route.Examples)
		if n > 0 {
			r.entries[i].examples = vectors[offset : offset+n : offset+n]
		}
		offset += n
	}
	return nil
}

// encode runs the encoder and enforces its contract: one finite vector per
// input, all sharing the index dimension. The first vector seen fixes the
// dimension.
func (r *Router) encode(ctx context.Context, texts []string) ([]vector.Vector, error) {
	vectors, err := r.encoder.Encode(ctx, texts)
	if err != nil {
		return nil, encodingFailure(err)
	}
	if len(vectors) != len(texts) {
		return nil, encodingFailure(fmt.Errorf("encoder returned %d vectors for %d inputs", len(vectors), len(texts)))
	}

	for i, v := range vectors {
		if err := v.Validate(); err != nil {
			return nil, encodingFailure(fmt.Errorf("vector for input %d: %w", i, err))
		}
		if r.dimension == 0 {
			r.dimension = v.Len()
			continue
		}
		if v.Len() != r.dimension {
			return nil, encodingFailure(fmt.Errorf("vector for input %d: %w: got %d, index has %d",
				i, vector.ErrDimensionMismatch, v.Len(), r.dimension))
		}
	}
	return vectors, nil
}

// encodeQueries is encode for query time: it never changes r.dimension.
func (r *Router) encodeQueries(ctx context.Context, queries []string) ([]vector.Vector, error) {
	vectors, err := r.encoder.Encode(ctx, queries)
	if err != nil {
		return nil, encodingFailure(err)
	}
	if len(vectors) != len(queries) {
		return nil, encodingFailure(fmt.Errorf("encoder returned %d vectors for %d queries", len(vectors), len(queries)))
	}

	for i, v := range vectors {
		if err := v.Validate(); err != nil {
			return nil, encodingFailure(fmt.Errorf("vector for query %d: %w", i, err))
		}
		if r.dimension != 0 && v.Len() != r.dimension {
			return nil, encodingFailure(fmt.Errorf("vector for query %d: %w: got %d, index has %d",
				i, vector.ErrDimensionMismatch, v.Len(), r.dimension))
		}
	}
	return vectors, nil
}

// Route returns the topK best routes for a single query.
func (r *Router) Route(ctx context.Context, query string, topK int) (Result, error) {
	results, err := r.RouteBatch(ctx, []string{query}, topK)
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

// RouteBatch routes queries independently. All queries are encoded in one
// encoder call, and result i belongs to queries[i]. Any encoder failure
// fails the whole batch.
func (r *Router) RouteBatch(ctx context.Context, queries []string, topK int) ([]Result, error) {
	if topK < 1 {
		return nil, wrapError("route", invalidTopK(topK))
	}
	if len(queries) == 0 {
		return []Result{}, nil
	}

	vectors, err := r.encodeQueries(ctx, queries)
	if err != nil {
		return nil, wrapError("route", err)
	}

	results := make([]Result, len(queries))
	for i, query := range queries {
		matches, err := r.rank(vectors[i], topK)
		if err != nil {
			return nil, wrapError("route", err)
		}
		results[i] = Result{Query: query, Matches: matches}
	}
	return results, nil
}

// RouteAny accepts a query of dynamic shape: a string, a []string, or a
// []any holding only strings. Any other shape fails with ErrInvalidArgument.
func (r *Router) RouteAny(ctx context.Context, queries any, topK int) ([]Result, error) {
	switch q := queries.(type) {
	case string:
		return r.RouteBatch(ctx, []string{q}, topK)
	case []string:
		return r.RouteBatch(ctx, q, topK)
	case []any:
		texts := make([]string, len(q))
		for i, item := range q {
			s, ok := item.(string)
			if !ok {
				return nil, wrapError("route", fmt.Errorf("%w: query %d is %T, not a string", ErrInvalidArgument, i, item))
			}
			texts[i] = s
		}
		return r.RouteBatch(ctx, texts, topK)
	default:
		return nil, wrapError("route", fmt.Errorf("%w: queries must be a string or a sequence of strings, got %T", ErrInvalidArgument, queries))
	}
}

// score is the best cosine similarity between query and the route's
// examples. Routes without examples are unreachable and score 0.
func (r *Router) score(query vector.Vector, entry *indexEntry) (float64, bool, error) {
	if len(entry.examples) == 0 {
		return 0, false, nil
	}

	best := 0.0
	for i, example := range entry.examples {
		sim, err := query.CosineSimilarity(example)
		if err != nil {
			return 0, false, err
		}
		if i == 0 || sim > best {
			best = sim
		}
	}
	return best, true, nil
}

// rank selects the k best routes for query, best first.
func (r *Router) rank(query vector.Vector, k int) ([]Match, error) {
	if k > len(r.entries) {
		k = len(r.entries)
	}

	h := make(candidateHeap, 0, k)
	for i := range r.entries {
		s, reachable, err := r.score(query, &r.entries[i])
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", r.entries[i].route.Name, err)
		}
		c := candidate{index: i, score: s, reachable: reachable}

		if h.Len() < k {
			heap.Push(&h, c)
		} else if c.before(h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}

	// Pop worst-first into the tail so the best lands at rank 0
	matches := make([]Match, h.Len())
	for i := len(matches) - 1; i >= 0; i-- {
		c := heap.Pop(&h).(candidate)
		matches[i] = Match{Rank: i, RouteName: r.entries[c.index].route.Name, Score: c.score}
	}
	return matches, nil
}

// DefaultTopK returns the top_k configured at build time.
func (r *Router) DefaultTopK() int {
	return r.defaultTopK
}

// Len returns the number of routes.
func (r *Router) Len() int {
	return len(r.entries)
}

// Dimension returns the embedding dimension of the index, or 0 when no
// route has examples.
func (r *Router) Dimension() int {
	return r.dimension
}

// List returns all route names in catalog order.
func (r *Router) List() []string {
	names := make([]string, len(r.entries))
	for i, entry := range r.entries {
		names[i] = entry.route.Name
	}
	return names
}

// Routes returns copies of all routes in catalog order.
func (r *Router) Routes() []Route {
	routes := make([]Route, len(r.entries))
	for i, entry := range r.entries {
		routes[i] = entry.route.clone()
	}
	return routes
}

// Get retrieves a copy of a route by name.
func (r *Router) Get(name string) (Route, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Route{}, false
	}
	return r.entries[i].route.clone(), true
}

// Stats returns statistics about the router.
func (r *Router) Stats() Stats {
	stats := Stats{
		RouteCount:  len(r.entries),
		Dimension:   r.dimension,
		DefaultTopK: r.defaultTopK,
	}
	for _, entry := range r.entries {
		stats.ExampleCount += len(entry.examples)
		if len(entry.examples) == 0 {
			stats.EmptyRoutes++
		}
	}
	return stats
}
