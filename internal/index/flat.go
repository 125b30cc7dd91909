// Package index implements a flat inner-product vector index with parallel
// document and metadata stores. Vectors are unit-normalized on insert and on
// query, so inner product equals cosine similarity.
package index

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kailas-cloud/schemedex/internal/domain"
)

// Type identifies the index layout in stats and the persisted config.
const Type = "flat_ip"

// Hit is one search result: the ordinal position of an entry and its score.
type Hit struct {
	Ordinal int
	Score   float64
}

// Flat is a brute-force inner-product index. Entries are append-only and the
// three parallel stores (vectors, documents, metadata) always have equal
// length; Add either extends all three or none.
type Flat struct {
	mu      sync.RWMutex
	dim     int
	vectors []float32 // row-major, len == count*dim
	docs    []string
	metas   []domain.SchemeMeta
}

// New creates an empty index for vectors of the given dimension.
func New(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d: %w", dim, domain.ErrInvalidInput)
	}
	return &Flat{dim: dim}, nil
}

// Reconstruct rebuilds an index from persisted state. The caller guarantees
// vectors were unit-normalized before persisting; lengths are re-validated
// here so a corrupt bundle can never become a live index.
func Reconstruct(dim int, vectors []float32, docs []string, metas []domain.SchemeMeta) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d: %w", dim, domain.ErrCorruptIndex)
	}
	if len(vectors)%dim != 0 {
		return nil, fmt.Errorf("vector data length %d not divisible by dimension %d: %w",
			len(vectors), dim, domain.ErrCorruptIndex)
	}
	count := len(vectors) / dim
	if count != len(docs) || count != len(metas) {
		return nil, fmt.Errorf("parallel store lengths diverge: %d vectors, %d documents, %d metadata: %w",
			count, len(docs), len(metas), domain.ErrCorruptIndex)
	}
	return &Flat{dim: dim, vectors: vectors, docs: docs, metas: metas}, nil
}

// Add validates, normalizes, and appends entries to all three parallel stores.
// All-or-nothing: any invalid entry leaves the index untouched.
func (f *Flat) Add(vectors [][]float32, docs []string, metas []domain.SchemeMeta) error {
	if len(vectors) != len(docs) || len(vectors) != len(metas) {
		return fmt.Errorf("parallel input lengths diverge: %d vectors, %d documents, %d metadata: %w",
			len(vectors), len(docs), len(metas), domain.ErrInvalidInput)
	}
	if len(vectors) == 0 {
		return nil
	}

	// Stage outside the lock: validation or normalization failure must not
	// leave a partial append behind.
	staged := make([]float32, 0, len(vectors)*f.dim)
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("vector %d has dimension %d, index expects %d: %w",
				i, len(v), f.dim, domain.ErrDimensionMismatch)
		}
		staged = append(staged, NormalizeL2(v)...)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = append(f.vectors, staged...)
	f.docs = append(f.docs, docs...)
	f.metas = append(f.metas, metas...)
	return nil
}

// Search returns the top min(k, Len()) entries by descending inner product,
// ties broken by ascending ordinal. The query is unit-normalized first.
// Searching an empty index is domain.ErrIndexNotReady, never a silent empty
// result, so callers can tell "no index" from "no matches".
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, domain.ErrInvalidInput)
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("query has dimension %d, index expects %d: %w",
			len(query), f.dim, domain.ErrDimensionMismatch)
	}

	q := NormalizeL2(query)

	f.mu.RLock()
	defer f.mu.RUnlock()

	count := len(f.docs)
	if count == 0 {
		return nil, fmt.Errorf("search on empty index: %w", domain.ErrIndexNotReady)
	}
	if k > count {
		k = count
	}

	hits := make([]Hit, count)
	for i := 0; i < count; i++ {
		hits[i] = Hit{Ordinal: i, Score: dot(f.vectors[i*f.dim:(i+1)*f.dim], q)}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].Ordinal < hits[b].Ordinal
	})

	return hits[:k], nil
}

// Len returns the number of entries.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.docs)
}

// Dim returns the vector dimension.
func (f *Flat) Dim() int { return f.dim }

// Entry returns the document text and metadata at an ordinal position.
// ok is false for out-of-range ordinals so callers can skip defensively.
func (f *Flat) Entry(ordinal int) (doc string, meta domain.SchemeMeta, ok bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if ordinal < 0 || ordinal >= len(f.docs) || ordinal >= len(f.metas) {
		return "", domain.SchemeMeta{}, false
	}
	return f.docs[ordinal], f.metas[ordinal], true
}

// Dump copies out the full index state for persistence.
func (f *Flat) Dump() (dim int, vectors []float32, docs []string, metas []domain.SchemeMeta) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	vectors = make([]float32, len(f.vectors))
	copy(vectors, f.vectors)
	docs = make([]string, len(f.docs))
	copy(docs, f.docs)
	metas = make([]domain.SchemeMeta, len(f.metas))
	copy(metas, f.metas)
	return f.dim, vectors, docs, metas
}

// NormalizeL2 returns a unit-normalized copy of v. A zero vector is returned
// unchanged rather than producing NaNs.
func NormalizeL2(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		copy(out, v)
		return out
	}
	inv := 1 / norm
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
