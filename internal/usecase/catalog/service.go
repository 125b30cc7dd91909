// Package catalog serves the raw scheme dataset for attribute-based
// filtering and free-text matching. Unlike the vector index, it answers from
// the CSV directly, so it works before any index has been built.
package catalog

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/schemedex/internal/domain"
	"github.com/kailas-cloud/schemedex/internal/matcher"
	"github.com/kailas-cloud/schemedex/internal/normalizer"
)

// Filter narrows the catalog by user attributes. All string matches are
// case-insensitive substring checks; empty fields are skipped.
type Filter struct {
	NameQuery   string
	State       string
	Sector      string
	IncomeLevel string
	Tags        []string
	Limit       int
}

// Recommendation is one catalog entry shaped for clients.
type Recommendation struct {
	SchemeName  string `json:"scheme_name"`
	State       string `json:"state"`
	Category    string `json:"category"`
	Eligibility string `json:"eligibility"`
	Benefits    string `json:"benefits"`
	Application string `json:"application"`
}

// Service loads and caches scheme CSV files keyed by path, since requests
// may override the default dataset.
type Service struct {
	mu           sync.RWMutex
	cache        map[string][]normalizer.Row
	defaultPath  string
	defaultLimit int
	norm         *normalizer.Normalizer
	logger       *zap.Logger
}

// NewService creates a catalog over the CSV at defaultPath.
func NewService(defaultPath string, defaultLimit int, norm *normalizer.Normalizer, logger *zap.Logger) *Service {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &Service{
		cache:        make(map[string][]normalizer.Row),
		defaultPath:  defaultPath,
		defaultLimit: defaultLimit,
		norm:         norm,
		logger:       logger,
	}
}

// Rows returns the cached rows for path, loading the CSV on first use.
// An empty path means the configured default dataset.
func (s *Service) Rows(path string) ([]normalizer.Row, error) {
	if path == "" {
		path = s.defaultPath
	}
	if path == "" {
		return nil, fmt.Errorf("no scheme dataset configured: %w", domain.ErrNotFound)
	}

	s.mu.RLock()
	rows, ok := s.cache[path]
	s.mu.RUnlock()
	if ok {
		return rows, nil
	}

	rows, err := s.norm.ReadCSV(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}

	s.mu.Lock()
	s.cache[path] = rows
	s.mu.Unlock()

	s.logger.Info("Catalog loaded", zap.String("path", path), zap.Int("rows", len(rows)))
	return rows, nil
}

// Invalidate drops the cached rows for path so the next read reloads the
// file. Called after an ingest replaces the dataset.
func (s *Service) Invalidate(path string) {
	if path == "" {
		path = s.defaultPath
	}
	s.mu.Lock()
	delete(s.cache, path)
	s.mu.Unlock()
}

// Filter applies attribute filters to the catalog. When every row is
// filtered out it falls back to the first rows of the full catalog so
// downstream prompts always have material to work with; the second return
// reports whether the filters actually held.
func (s *Service) Filter(path string, f Filter) ([]normalizer.Row, bool, error) {
	rows, err := s.Rows(path)
	if err != nil {
		return nil, false, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	filtered := make([]normalizer.Row, 0, limit)
	for _, row := range rows {
		if matchesFilter(row, f) {
			filtered = append(filtered, row)
			if len(filtered) == limit {
				break
			}
		}
	}

	if len(filtered) > 0 {
		return filtered, true, nil
	}

	// Nothing matched: return the catalog head so the caller can still ask
	// clarifying questions over real data.
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, false, nil
}

func matchesFilter(row normalizer.Row, f Filter) bool {
	if f.State != "" && !containsFold(row[normalizer.FieldState], f.State) {
		return false
	}
	if f.Sector != "" && !containsFold(row[normalizer.FieldCategory], f.Sector) {
		return false
	}
	if f.IncomeLevel != "" && !containsFold(row[normalizer.FieldEligibility], f.IncomeLevel) {
		return false
	}
	if len(f.Tags) > 0 && !anyTag(row[normalizer.FieldTags], f.Tags) {
		return false
	}
	if f.NameQuery != "" {
		q := f.NameQuery
		if !containsFold(row[normalizer.FieldSchemeName], q) &&
			!containsFold(row[normalizer.FieldSlug], q) &&
			!containsFold(row[normalizer.FieldDetails], q) {
			return false
		}
	}
	return true
}

// Candidates shapes rows for fuzzy name matching.
func Candidates(rows []normalizer.Row) []matcher.Candidate {
	out := make([]matcher.Candidate, len(rows))
	for i, row := range rows {
		out[i] = matcher.Candidate{
			Name:    row[normalizer.FieldSchemeName],
			Slug:    row[normalizer.FieldSlug],
			Details: row[normalizer.FieldDetails],
		}
	}
	return out
}

// FormatContext renders rows as a grounding block for generation prompts.
func FormatContext(rows []normalizer.Row) string {
	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		parts = append(parts, strings.Join([]string{
			"Scheme Name: " + r[normalizer.FieldSchemeName],
			"Details: " + r[normalizer.FieldDetails],
			"Benefits: " + r[normalizer.FieldBenefits],
			"Eligibility: " + r[normalizer.FieldEligibility],
			"State: " + r[normalizer.FieldState],
			"Category: " + r[normalizer.FieldCategory],
			"Level: " + r[normalizer.FieldLevel],
			"Tags: " + r[normalizer.FieldTags],
			"Application: " + ApplicationLink(r),
		}, "\n"))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// Recommend shapes rows as client-facing recommendations.
func Recommend(rows []normalizer.Row) []Recommendation {
	out := make([]Recommendation, len(rows))
	for i, r := range rows {
		out[i] = Recommendation{
			SchemeName:  r[normalizer.FieldSchemeName],
			State:       r[normalizer.FieldState],
			Category:    r[normalizer.FieldCategory],
			Eligibility: r[normalizer.FieldEligibility],
			Benefits:    r[normalizer.FieldBenefits],
			Application: ApplicationLink(r),
		}
	}
	return out
}

// ApplicationLink picks the best link field: application first, then the
// official URL.
func ApplicationLink(row normalizer.Row) string {
	if v := strings.TrimSpace(row[normalizer.FieldApplication]); v != "" {
		return v
	}
	return strings.TrimSpace(row[normalizer.FieldOfficialURL])
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

func anyTag(rowTags string, tags []string) bool {
	lowered := strings.ToLower(rowTags)
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && strings.Contains(lowered, t) {
			return true
		}
	}
	return false
}
