package index

import (
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/schemedex/internal/domain"
)

func testMeta(name string) domain.SchemeMeta {
	m := domain.SchemeMeta{SchemeName: name}
	m.ApplyDefaults()
	return m
}

func mustIndex(t *testing.T, dim int) *Flat {
	t.Helper()
	f, err := New(dim)
	if err != nil {
		t.Fatalf("New(%d): %v", dim, err)
	}
	return f
}

func TestNewRejectsNonPositiveDimension(t *testing.T) {
	for _, dim := range []int{0, -1} {
		if _, err := New(dim); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("New(%d): got %v, want ErrInvalidInput", dim, err)
		}
	}
}

func TestAddKeepsStoresInLockstep(t *testing.T) {
	f := mustIndex(t, 3)

	err := f.Add(
		[][]float32{{1, 0, 0}, {0, 1, 0}},
		[]string{"a", "b"},
		[]domain.SchemeMeta{testMeta("a"), testMeta("b")},
	)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := f.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}

	// Mismatched inputs must not touch the index.
	err = f.Add([][]float32{{1, 0, 0}}, []string{"c", "d"}, []domain.SchemeMeta{testMeta("c")})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("mismatched Add: got %v, want ErrInvalidInput", err)
	}
	if got := f.Len(); got != 2 {
		t.Errorf("Len after failed Add = %d, want 2", got)
	}
}

func TestAddRejectsWrongDimensionAtomically(t *testing.T) {
	f := mustIndex(t, 3)

	err := f.Add(
		[][]float32{{1, 0, 0}, {0, 1}},
		[]string{"a", "b"},
		[]domain.SchemeMeta{testMeta("a"), testMeta("b")},
	)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("Add: got %v, want ErrDimensionMismatch", err)
	}
	if got := f.Len(); got != 0 {
		t.Errorf("Len after rejected Add = %d, want 0", got)
	}
}

func TestNormalizeL2(t *testing.T) {
	v := NormalizeL2([]float32{3, 4})
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("NormalizeL2(3,4) = %v, want (0.6, 0.8)", v)
	}

	// Normalizing an already-unit vector is a no-op within float tolerance.
	again := NormalizeL2(v)
	for i := range v {
		if math.Abs(float64(again[i]-v[i])) > 1e-6 {
			t.Errorf("double normalize diverged at %d: %v vs %v", i, again[i], v[i])
		}
	}

	zero := NormalizeL2([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("NormalizeL2(zero) = %v, want zero vector", zero)
	}
}

func TestSearchExactMatchScoresNearOne(t *testing.T) {
	f := mustIndex(t, 3)
	err := f.Add(
		[][]float32{{2, 0, 0}, {0, 5, 0}, {0, 0, 1}},
		[]string{"x", "y", "z"},
		[]domain.SchemeMeta{testMeta("x"), testMeta("y"), testMeta("z")},
	)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	hits, err := f.Search([]float32{0, 9, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if hits[0].Ordinal != 1 {
		t.Errorf("top hit ordinal = %d, want 1", hits[0].Ordinal)
	}
	if math.Abs(hits[0].Score-1.0) > 1e-6 {
		t.Errorf("exact match score = %f, want ~1.0", hits[0].Score)
	}
}

func TestSearchClampsKToCount(t *testing.T) {
	f := mustIndex(t, 2)
	err := f.Add(
		[][]float32{{1, 0}, {0, 1}},
		[]string{"a", "b"},
		[]domain.SchemeMeta{testMeta("a"), testMeta("b")},
	)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	hits, err := f.Search([]float32{1, 1}, 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("len(hits) = %d, want 2", len(hits))
	}
}

func TestSearchOrderingAndTieBreak(t *testing.T) {
	f := mustIndex(t, 2)
	// Ordinals 0 and 2 are identical vectors; 1 is orthogonal to the query.
	err := f.Add(
		[][]float32{{1, 0}, {0, 1}, {1, 0}},
		[]string{"first", "off", "dup"},
		[]domain.SchemeMeta{testMeta("first"), testMeta("off"), testMeta("dup")},
	)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	hits, err := f.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []int{0, 2, 1}
	for i, w := range want {
		if hits[i].Ordinal != w {
			t.Errorf("hits[%d].Ordinal = %d, want %d", i, hits[i].Ordinal, w)
		}
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("scores not descending at %d: %f > %f", i, hits[i].Score, hits[i-1].Score)
		}
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	f := mustIndex(t, 2)
	if _, err := f.Search([]float32{1, 0}, 5); !errors.Is(err, domain.ErrIndexNotReady) {
		t.Errorf("Search on empty index: got %v, want ErrIndexNotReady", err)
	}
}

func TestSearchRejectsBadQuery(t *testing.T) {
	f := mustIndex(t, 3)
	err := f.Add([][]float32{{1, 0, 0}}, []string{"a"}, []domain.SchemeMeta{testMeta("a")})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, err := f.Search([]float32{1, 0}, 1); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("short query: got %v, want ErrDimensionMismatch", err)
	}
	if _, err := f.Search([]float32{1, 0, 0}, 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("k=0: got %v, want ErrInvalidInput", err)
	}
}

func TestEntry(t *testing.T) {
	f := mustIndex(t, 2)
	err := f.Add([][]float32{{1, 0}}, []string{"doc text"}, []domain.SchemeMeta{testMeta("s")})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	doc, meta, ok := f.Entry(0)
	if !ok || doc != "doc text" || meta.SchemeName != "s" {
		t.Errorf("Entry(0) = (%q, %+v, %v)", doc, meta, ok)
	}
	if _, _, ok := f.Entry(1); ok {
		t.Error("Entry(1) on single-entry index reported ok")
	}
	if _, _, ok := f.Entry(-1); ok {
		t.Error("Entry(-1) reported ok")
	}
}

func TestReconstructValidatesLengths(t *testing.T) {
	metas := []domain.SchemeMeta{testMeta("a")}

	if _, err := Reconstruct(3, []float32{1, 0}, []string{"a"}, metas); !errors.Is(err, domain.ErrCorruptIndex) {
		t.Errorf("ragged vectors: got %v, want ErrCorruptIndex", err)
	}
	if _, err := Reconstruct(2, []float32{1, 0}, []string{"a", "b"}, metas); !errors.Is(err, domain.ErrCorruptIndex) {
		t.Errorf("diverging stores: got %v, want ErrCorruptIndex", err)
	}

	f, err := Reconstruct(2, []float32{1, 0}, []string{"a"}, metas)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if f.Len() != 1 || f.Dim() != 2 {
		t.Errorf("reconstructed index: Len=%d Dim=%d", f.Len(), f.Dim())
	}
}

func TestDumpReturnsCopies(t *testing.T) {
	f := mustIndex(t, 2)
	err := f.Add([][]float32{{1, 0}}, []string{"a"}, []domain.SchemeMeta{testMeta("a")})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	_, vectors, docs, _ := f.Dump()
	vectors[0] = 42
	docs[0] = "mutated"

	doc, _, _ := f.Entry(0)
	if doc != "a" {
		t.Errorf("Dump leaked internal document slice")
	}
	hits, err := f.Search([]float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if math.Abs(hits[0].Score-1.0) > 1e-6 {
		t.Errorf("Dump leaked internal vector slice: score %f", hits[0].Score)
	}
}
