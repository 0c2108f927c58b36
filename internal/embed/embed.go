package embed

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"newswire/internal/htmltext"
)

// Dim is the embedding dimensionality expected by the search collection.
const Dim = 384

// Embedder maps text to a deterministic, L2-normalized Dim-dimensional
// vector using signed hashed token features. It stands in for an external
// sentence-embedding model: same text, same vector, unit norm.
type Embedder struct{}

func New() *Embedder {
	return &Embedder{}
}

// Encode embeds text (HTML markup is stripped first). Texts with no tokens
// produce the zero vector.
func (e *Embedder) Encode(text string) []float64 {
	vec := make([]float64, Dim)

	tokens := tokenize(htmltext.Clean(text, 0))
	if len(tokens) == 0 {
		return vec
	}

	for _, token := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()
		idx := int(sum % Dim)
		if sum&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
