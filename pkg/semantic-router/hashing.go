package semanticrouter

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/liliang-cn/semrouter/pkg/vector"
)

// DefaultHashingDimension is the dimension used by NewHashingEncoder when
// dim is not positive.
const DefaultHashingDimension = 512

// stopWords are dropped before hashing.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "is": true,
	"are": true, "was": true, "were": true, "be": true, "been": true,
	"this": true, "that": true, "these": true, "those": true,
}

// HashingEncoder is a deterministic local encoder that needs no model.
//
// Each text is tokenized into lowercase words and adjacent word pairs, the
// tokens are hashed into a fixed number of buckets with a signed feature
// hash, term counts are dampened with 1+log(tf), and the result is L2
// normalized. Texts without tokens encode to the zero vector.
type HashingEncoder struct {
	dim     int
	bigrams bool
}

// NewHashingEncoder creates a hashing encoder producing dim-dimensional vectors.
func NewHashingEncoder(dim int) *HashingEncoder {
	if dim <= 0 {
		dim = DefaultHashingDimension
	}
	return &HashingEncoder{dim: dim, bigrams: true}
}

// WithoutBigrams returns a copy of the encoder that hashes single words only.
func (e *HashingEncoder) WithoutBigrams() *HashingEncoder {
	return &HashingEncoder{dim: e.dim, bigrams: false}
}

// Dimensions returns the embedding dimension.
func (e *HashingEncoder) Dimensions() int {
	return e.dim
}

// Encode implements Encoder.
func (e *HashingEncoder) Encode(ctx context.Context, inputs []string) ([]vector.Vector, error) {
	out := make([]vector.Vector, len(inputs))
	for i, text := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("hashing encoder: %w", err)
		}
		out[i] = e.encodeOne(text)
	}
	return out, nil
}

func (e *HashingEncoder) encodeOne(text string) vector.Vector {
	words := tokenize(text)
	counts := make(map[string]int, len(words)*2)
	var order []string // distinct tokens by first occurrence
	add := func(token string) {
		if counts[token] == 0 {
			order = append(order, token)
		}
		counts[token]++
	}
	for i, w := range words {
		add(w)
		if e.bigrams && i > 0 {
			add(words[i-1] + " " + w)
		}
	}

	// accumulate in token order so equal texts give identical bits
	values := make([]float64, e.dim)
	for _, token := range order {
		tf := counts[token]
		h := xxhash.Sum64String(token)
		bucket := h % uint64(e.dim)
		weight := 1 + math.Log(float64(tf))
		// top bit picks the sign
		if h>>63 == 1 {
			weight = -weight
		}
		values[bucket] += weight
	}

	return vector.FromSlice(values).Normalize()
}

// tokenize lowercases text, splits it on anything that is not a letter or
// digit and drops stop words and single-byte tokens.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	terms := fields[:0]
	for _, word := range fields {
		if !stopWords[word] && len(word) > 1 {
			terms = append(terms, word)
		}
	}
	return terms
}
