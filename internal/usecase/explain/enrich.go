package explain

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/schemedex/internal/domain"
	"github.com/kailas-cloud/schemedex/internal/matcher"
	"github.com/kailas-cloud/schemedex/internal/normalizer"
	"github.com/kailas-cloud/schemedex/internal/usecase/catalog"
)

// maxFallbackDescription caps dataset-sourced descriptions when the
// generator is unavailable.
const maxFallbackDescription = 200

// EnrichItem names a scheme to enrich, with optional free-form context
// the caller already has (for example, a search snippet).
type EnrichItem struct {
	SchemeName string `json:"scheme_name"`
	Context    string `json:"context,omitempty"`
}

// EnrichedScheme is a short generated description plus an apply URL.
type EnrichedScheme struct {
	SchemeName  string `json:"scheme_name"`
	Description string `json:"description"`
	ApplyURL    string `json:"apply_url,omitempty"`
}

// Enrich produces a short description and application URL per item.
// Items that name no known scheme are still returned, enriched from the
// generator alone when one is configured.
func (s *Service) Enrich(ctx context.Context, items []EnrichItem, csvPath string) ([]EnrichedScheme, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("at least one scheme required: %w", domain.ErrInvalidInput)
	}
	rows, err := s.catalog.Rows(csvPath)
	if err != nil {
		return nil, err
	}

	out := make([]EnrichedScheme, 0, len(items))
	for _, item := range items {
		name := strings.TrimSpace(item.SchemeName)
		if name == "" {
			continue
		}
		out = append(out, s.enrichOne(ctx, name, item.Context, rows))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one scheme required: %w", domain.ErrInvalidInput)
	}
	return out, nil
}

func (s *Service) enrichOne(ctx context.Context, name, extra string, rows []normalizer.Row) EnrichedScheme {
	var row normalizer.Row
	best, bestScore := -1, 0.0
	for i, r := range rows {
		if score := matcher.NameScore(name, r[normalizer.FieldSchemeName]); best < 0 || score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 {
		row = rows[best]
	}

	enriched := EnrichedScheme{SchemeName: name}
	if row != nil {
		enriched.ApplyURL = NormalizeURL(catalog.ApplicationLink(row))
	}

	if s.gen != nil {
		desc, url, err := s.generateEnrichment(ctx, name, extra, row)
		if err != nil {
			s.logger.Warn("Enrichment generation failed", zap.String("scheme", name), zap.Error(err))
		} else {
			if desc != "" {
				enriched.Description = desc
			}
			if enriched.ApplyURL == "" && url != "" {
				enriched.ApplyURL = url
			}
		}
	}
	if enriched.Description == "" && row != nil {
		enriched.Description = truncate(row[normalizer.FieldDetails], maxFallbackDescription)
	}
	return enriched
}

// generateEnrichment asks for a fixed two-line format and parses it.
func (s *Service) generateEnrichment(ctx context.Context, name, extra string, row normalizer.Row) (desc, url string, err error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a 2-3 sentence citizen-friendly description of the Indian government scheme %q "+
		"and give its official application URL if known.\n", name)
	b.WriteString("Reply in exactly this format:\nDescription: <text>\nURL: <url or NONE>\n")
	if row != nil {
		b.WriteString("\nKnown data:\n" + explainContext(row) + "\n")
	}
	if extra != "" {
		b.WriteString("\nAdditional context:\n" + extra + "\n")
	}

	reply, err := s.gen.Generate(ctx, systemPrompt, b.String())
	if err != nil {
		return "", "", err
	}
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "Description:"); ok {
			desc = strings.TrimSpace(v)
		} else if v, ok := strings.CutPrefix(line, "URL:"); ok {
			url = urlPattern.FindString(v)
		}
	}
	if desc == "" {
		// Free-form reply, use it whole rather than discarding paid tokens.
		desc = strings.TrimSpace(reply)
		if url == "" {
			url = urlPattern.FindString(reply)
		}
	}
	return desc, url, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
