package search

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/schemedex/internal/domain"
	"github.com/kailas-cloud/schemedex/internal/index"
	"github.com/kailas-cloud/schemedex/internal/repository/bundle"
)

type staticProvider struct {
	idx *index.Flat
	cfg bundle.Config
	err error
}

func (p *staticProvider) Current() (*index.Flat, bundle.Config, error) {
	if p.err != nil {
		return nil, bundle.Config{}, p.err
	}
	return p.idx, p.cfg, nil
}

type fixedEmbedder struct {
	vec    []float32
	tokens int
	err    error
	calls  int
}

func (e *fixedEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	e.calls++
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	return domain.EmbeddingResult{Embedding: e.vec, TotalTokens: e.tokens}, nil
}

func buildTestIndex(t *testing.T) *index.Flat {
	t.Helper()
	idx, err := index.New(3)
	if err != nil {
		t.Fatalf("index.New: %v", err)
	}

	metas := []domain.SchemeMeta{
		{SchemeName: "PM Kisan Samman Nidhi", Sector: "Agriculture", Eligibility: "Small and marginal farmers"},
		{SchemeName: "Mid Day Meal Scheme", Sector: "Education"},
		{SchemeName: "Ayushman Bharat"},
	}
	for i := range metas {
		metas[i].ApplyDefaults()
	}

	err = idx.Add(
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		[]string{
			"Scheme: PM Kisan Samman Nidhi | Eligibility: farmers",
			"Scheme: Mid Day Meal Scheme",
			"Scheme: Ayushman Bharat",
		},
		metas,
	)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return idx
}

func newTestService(t *testing.T, emb domain.Embedder) *Service {
	t.Helper()
	provider := &staticProvider{idx: buildTestIndex(t), cfg: bundle.Config{EmbeddingModel: "test-model"}}
	return NewService(provider, emb, 5, 100, zap.NewNop())
}

func TestSearchRanksByScore(t *testing.T) {
	// Query vector points at the "farmers" document.
	emb := &fixedEmbedder{vec: []float32{0.9, 0.1, 0}, tokens: 4}
	svc := newTestService(t, emb)

	results, err := svc.Search(context.Background(), "schemes for farmers", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if results[0].Scheme != "PM Kisan Samman Nidhi" {
		t.Errorf("top result = %q", results[0].Scheme)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("scores not descending at %d", i)
		}
	}
}

func TestSearchFillsSentinels(t *testing.T) {
	emb := &fixedEmbedder{vec: []float32{0, 0, 1}}
	svc := newTestService(t, emb)

	results, err := svc.Search(context.Background(), "health insurance", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	r := results[0]
	if r.Scheme != "Ayushman Bharat" {
		t.Fatalf("top result = %q", r.Scheme)
	}
	if r.Sector != domain.Unknown || r.State != domain.AllIndia ||
		r.Eligibility != domain.NotSpecified || r.OfficialURL != domain.NotAvailable {
		t.Errorf("sentinels not applied: %+v", r)
	}
	if r.Document == "" {
		t.Error("document text missing")
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	emb := &fixedEmbedder{vec: []float32{1, 0, 0}}
	svc := newTestService(t, emb)

	_, err := svc.Search(context.Background(), "   ", 5)
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("got %v, want ErrInvalidQuery", err)
	}
	if emb.calls != 0 {
		t.Error("empty query must not reach the embedder")
	}
}

func TestSearchIndexNotReadyBeforeEmbedding(t *testing.T) {
	emb := &fixedEmbedder{vec: []float32{1, 0, 0}}
	provider := &staticProvider{err: domain.ErrIndexNotReady}
	svc := NewService(provider, emb, 5, 100, zap.NewNop())

	_, err := svc.Search(context.Background(), "farmers", 5)
	if !errors.Is(err, domain.ErrIndexNotReady) {
		t.Fatalf("got %v, want ErrIndexNotReady", err)
	}
	// Readiness is checked first so no tokens are spent on a dead query.
	if emb.calls != 0 {
		t.Error("unready index must not reach the embedder")
	}
}

func TestSearchDimensionMismatch(t *testing.T) {
	emb := &fixedEmbedder{vec: []float32{1, 0}}
	svc := newTestService(t, emb)

	_, err := svc.Search(context.Background(), "farmers", 5)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("got %v, want ErrDimensionMismatch", err)
	}
}

func TestSearchClampsK(t *testing.T) {
	emb := &fixedEmbedder{vec: []float32{1, 0, 0}}
	svc := newTestService(t, emb)
	ctx := context.Background()

	// k <= 0 falls back to the default and is then capped by index size.
	results, err := svc.Search(ctx, "farmers", 0)
	if err != nil {
		t.Fatalf("Search k=0: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("k=0: got %d results, want all 3", len(results))
	}

	// k beyond the index size returns everything, not an error.
	results, err = svc.Search(ctx, "farmers", 500)
	if err != nil {
		t.Fatalf("Search k=500: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("k=500: got %d results, want 3", len(results))
	}
}

func TestSearchRecordsUsage(t *testing.T) {
	emb := &fixedEmbedder{vec: []float32{1, 0, 0}, tokens: 9}
	svc := newTestService(t, emb)

	ctx, usage := domain.NewContextWithUsage(context.Background())
	if _, err := svc.Search(ctx, "farmers", 2); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !usage.Used || usage.TotalTokens != 9 {
		t.Errorf("usage = %+v, want 9 tokens", usage)
	}
}

func TestSearchEmbedderError(t *testing.T) {
	emb := &fixedEmbedder{err: domain.ErrEmbeddingProviderError}
	svc := newTestService(t, emb)

	_, err := svc.Search(context.Background(), "farmers", 5)
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("got %v, want ErrEmbeddingProviderError", err)
	}
}
