// Package search orchestrates query-time retrieval: embed the query, search
// the live index, and join hits back to documents and metadata.
package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/schemedex/internal/domain"
	"github.com/kailas-cloud/schemedex/internal/index"
	"github.com/kailas-cloud/schemedex/internal/repository/bundle"
)

// IndexProvider hands out the live index. domain.ErrIndexNotReady when no
// index has been built or loaded.
type IndexProvider interface {
	Current() (*index.Flat, bundle.Config, error)
}

// Service answers top-k similarity queries.
type Service struct {
	provider IndexProvider
	embedder domain.Embedder
	defaultK int
	maxK     int
	logger   *zap.Logger
}

// NewService creates the search orchestrator. defaultK is used when the
// caller passes k <= 0; maxK caps runaway requests.
func NewService(provider IndexProvider, embedder domain.Embedder, defaultK, maxK int, logger *zap.Logger) *Service {
	if defaultK <= 0 {
		defaultK = 5
	}
	if maxK <= 0 {
		maxK = 100
	}
	return &Service{
		provider: provider,
		embedder: embedder,
		defaultK: defaultK,
		maxK:     maxK,
		logger:   logger,
	}
}

// Search returns the top-k documents most similar to the query.
// The index readiness check runs before embedding so an unbuilt index never
// costs embedding tokens.
func (s *Service) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query: %w", domain.ErrInvalidQuery)
	}

	idx, cfg, err := s.provider.Current()
	if err != nil {
		return nil, err
	}

	if k <= 0 {
		k = s.defaultK
	}
	if k > s.maxK {
		k = s.maxK
	}

	res, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)

	if len(res.Embedding) != idx.Dim() {
		return nil, fmt.Errorf("query embedding dimension %d, index built for %d (model %s): %w",
			len(res.Embedding), idx.Dim(), cfg.EmbeddingModel, domain.ErrDimensionMismatch)
	}

	hits, err := idx.Search(res.Embedding, k)
	if err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		doc, meta, ok := idx.Entry(hit.Ordinal)
		if !ok {
			// A hit pointing past the parallel stores means corruption
			// elsewhere; skip it rather than fail the whole query.
			s.logger.Warn("Search hit outside parallel stores, skipping",
				zap.Int("ordinal", hit.Ordinal), zap.Int("index_len", idx.Len()))
			continue
		}
		results = append(results, domain.SearchResult{
			Scheme:      meta.SchemeName,
			Sector:      meta.Sector,
			State:       meta.State,
			Eligibility: meta.Eligibility,
			Benefits:    meta.Benefits,
			OfficialURL: meta.OfficialURL,
			Level:       meta.Level,
			Tags:        meta.Tags,
			Score:       hit.Score,
			Document:    doc,
		})
	}
	return results, nil
}
