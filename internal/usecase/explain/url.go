package explain

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/schemedex/internal/domain"
	"github.com/kailas-cloud/schemedex/internal/matcher"
	"github.com/kailas-cloud/schemedex/internal/normalizer"
	"github.com/kailas-cloud/schemedex/internal/usecase/catalog"
)

var urlPattern = regexp.MustCompile(`https?://[^\s\)]+`)

// URLResult is a resolved application URL. URL is empty when no usable
// link could be found in the dataset or recovered from the generator.
type URLResult struct {
	SchemeName string `json:"scheme_name"`
	URL        string `json:"url,omitempty"`
}

// ResolveURL finds the official application URL for the scheme best
// matching schemeQuery by name.
func (s *Service) ResolveURL(ctx context.Context, schemeQuery, csvPath string) (URLResult, error) {
	if strings.TrimSpace(schemeQuery) == "" {
		return URLResult{}, fmt.Errorf("scheme query required: %w", domain.ErrInvalidInput)
	}

	rows, err := s.catalog.Rows(csvPath)
	if err != nil {
		return URLResult{}, err
	}
	best, bestScore := -1, 0.0
	for i, row := range rows {
		if score := matcher.NameScore(schemeQuery, row[normalizer.FieldSchemeName]); best < 0 || score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return URLResult{}, fmt.Errorf("no matching scheme for %q: %w", schemeQuery, domain.ErrNotFound)
	}

	row := rows[best]
	name := row[normalizer.FieldSchemeName]
	if url := NormalizeURL(catalog.ApplicationLink(row)); url != "" {
		return URLResult{SchemeName: name, URL: url}, nil
	}

	if s.gen != nil {
		prompt := fmt.Sprintf("Return ONLY the official application or information URL for the Indian government scheme %q. "+
			"If you do not know it, reply with the single word NONE.", name)
		reply, err := s.gen.Generate(ctx, "", prompt)
		if err != nil {
			s.logger.Warn("URL generation failed", zap.String("scheme", name), zap.Error(err))
		} else if url := urlPattern.FindString(reply); url != "" {
			return URLResult{SchemeName: name, URL: url}, nil
		}
	}
	return URLResult{SchemeName: name}, nil
}

// NormalizeURL cleans a raw dataset link into a usable absolute URL.
// It strips surrounding quotes, prefixes bare hosts with https:// and
// rejects free-text values. Returns "" when the value is not a link.
func NormalizeURL(raw string) string {
	u := strings.Trim(strings.TrimSpace(raw), `"'`)
	if u == "" {
		return ""
	}
	// Multi-word values are prose ("Apply at the nearest office"), not links.
	if strings.ContainsAny(u, " \t") {
		return ""
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if strings.HasPrefix(u, "www.") || strings.Contains(u, ".") {
		return "https://" + u
	}
	return ""
}
