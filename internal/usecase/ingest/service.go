// Package ingest owns the index lifecycle: building from a CSV dataset,
// persisting the bundle, and exposing the live index to readers.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/schemedex/internal/domain"
	"github.com/kailas-cloud/schemedex/internal/index"
	"github.com/kailas-cloud/schemedex/internal/metrics"
	"github.com/kailas-cloud/schemedex/internal/normalizer"
	"github.com/kailas-cloud/schemedex/internal/repository/bundle"
)

// BuildResult reports a completed (or skipped) build.
type BuildResult struct {
	DocumentsProcessed int
	Rebuilt            bool
	Stats              domain.IndexStats
}

// Service builds and owns the vector index. At most one build runs at a
// time; readers see either the previous index or the fully committed new
// one, never a partial state.
type Service struct {
	buildMu sync.Mutex // held for the whole build, TryLock rejects overlap

	mu  sync.RWMutex // guards idx and cfg
	idx *index.Flat
	cfg bundle.Config

	norm     *normalizer.Normalizer
	embedder domain.Embedder
	bundle   *bundle.Repo
	model    string
	logger   *zap.Logger
}

// NewService creates the index lifecycle service. model names the embedding
// model recorded in the persisted bundle config.
func NewService(
	norm *normalizer.Normalizer,
	embedder domain.Embedder,
	repo *bundle.Repo,
	model string,
	logger *zap.Logger,
) *Service {
	return &Service{
		norm:     norm,
		embedder: embedder,
		bundle:   repo,
		model:    model,
		logger:   logger,
	}
}

// Current returns the live index and its config. domain.ErrIndexNotReady
// when nothing has been built or loaded yet.
func (s *Service) Current() (*index.Flat, bundle.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.idx == nil {
		return nil, bundle.Config{}, domain.ErrIndexNotReady
	}
	return s.idx, s.cfg, nil
}

// LoadExisting restores the index from the persisted bundle, typically at
// process start. A missing bundle is not an error: the service starts empty
// and waits for the first build.
func (s *Service) LoadExisting(ctx context.Context) (bool, error) {
	idx, cfg, err := s.bundle.Load()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("No persisted index found, starting empty",
				zap.String("path", s.bundle.Path()))
			return false, nil
		}
		return false, fmt.Errorf("load persisted index: %w", err)
	}

	s.commit(idx, cfg)
	s.logger.Info("Persisted index loaded",
		zap.String("path", s.bundle.Path()),
		zap.Int("documents", idx.Len()),
		zap.Int("dimension", idx.Dim()),
		zap.String("embedding_model", cfg.EmbeddingModel),
	)
	return true, nil
}

// BuildIndex builds the index from the CSV at csvPath. When an index is
// already live and force is false, the existing index is kept and its stats
// returned. Concurrent builds are rejected with domain.ErrBuildInProgress.
func (s *Service) BuildIndex(ctx context.Context, csvPath string, force bool) (BuildResult, error) {
	if !s.buildMu.TryLock() {
		metrics.IndexBuildsTotal.WithLabelValues("rejected").Inc()
		return BuildResult{}, fmt.Errorf("index build already running: %w", domain.ErrBuildInProgress)
	}
	defer s.buildMu.Unlock()

	if !force {
		if stats, err := s.Stats(); err == nil {
			s.logger.Info("Index already built, skipping rebuild",
				zap.Int("documents", stats.TotalDocuments))
			return BuildResult{DocumentsProcessed: stats.TotalDocuments, Stats: stats}, nil
		}
	}

	start := time.Now()
	result, err := s.build(ctx, csvPath)
	if err != nil {
		metrics.IndexBuildsTotal.WithLabelValues("error").Inc()
		return BuildResult{}, err
	}
	metrics.IndexBuildsTotal.WithLabelValues("success").Inc()
	metrics.IndexBuildDuration.Observe(time.Since(start).Seconds())
	metrics.IndexDocuments.Set(float64(result.Stats.TotalDocuments))

	s.logger.Info("Index built",
		zap.String("csv", csvPath),
		zap.Int("documents", result.DocumentsProcessed),
		zap.Int("dimension", result.Stats.Dimension),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (s *Service) build(ctx context.Context, csvPath string) (BuildResult, error) {
	rows, err := s.norm.ReadCSV(csvPath)
	if err != nil {
		return BuildResult{}, err
	}

	docs := s.norm.Normalize(rows)
	if len(docs) == 0 {
		return BuildResult{}, fmt.Errorf("no usable rows in %s: %w", csvPath, domain.ErrInvalidInput)
	}

	texts := make([]string, len(docs))
	metas := make([]domain.SchemeMeta, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
		metas[i] = d.Meta
	}

	// Embeddings are the slow part and run entirely outside the index
	// critical section; readers keep using the previous index meanwhile.
	embedded, err := s.embedAll(ctx, texts)
	if err != nil {
		return BuildResult{}, fmt.Errorf("embed documents: %w", err)
	}
	if len(embedded.Embeddings) != len(texts) {
		return BuildResult{}, fmt.Errorf("embedder returned %d vectors for %d documents: %w",
			len(embedded.Embeddings), len(texts), domain.ErrEmbeddingProviderError)
	}
	domain.UsageFromContext(ctx).AddTokens(embedded.TotalTokens)

	dim := len(embedded.Embeddings[0])
	idx, err := index.New(dim)
	if err != nil {
		return BuildResult{}, err
	}
	if err := idx.Add(embedded.Embeddings, texts, metas); err != nil {
		return BuildResult{}, fmt.Errorf("populate index: %w", err)
	}

	cfg := bundle.Config{EmbeddingModel: s.model, Dimension: dim, IndexType: index.Type}
	s.commit(idx, cfg)

	// Persist after commit: a failed save leaves the new index serving with
	// a warning rather than throwing away paid-for embeddings.
	if err := s.bundle.Save(idx, cfg); err != nil {
		s.logger.Warn("Failed to persist index bundle", zap.Error(err))
	}

	stats, err := s.Stats()
	if err != nil {
		return BuildResult{}, err
	}
	return BuildResult{DocumentsProcessed: len(docs), Rebuilt: true, Stats: stats}, nil
}

func (s *Service) embedAll(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := s.embedder.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, s.embedder, texts)
}

func (s *Service) commit(idx *index.Flat, cfg bundle.Config) {
	s.mu.Lock()
	s.idx = idx
	s.cfg = cfg
	s.mu.Unlock()
}

// Stats describes the live index. domain.ErrIndexNotReady when empty.
func (s *Service) Stats() (domain.IndexStats, error) {
	idx, cfg, err := s.Current()
	if err != nil {
		return domain.IndexStats{}, err
	}
	n := idx.Len()
	return domain.IndexStats{
		TotalDocuments: n,
		EmbeddingModel: cfg.EmbeddingModel,
		Dimension:      idx.Dim(),
		IndexType:      cfg.IndexType,
		MetadataCount:  n,
		DocumentsCount: n,
	}, nil
}

// Ready reports whether an index is live.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx != nil
}
