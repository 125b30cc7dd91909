// Package explain answers natural-language questions about individual
// schemes. It grounds a text generator in catalog rows resolved by fuzzy
// matching, and degrades to extractive answers whenever no generator is
// configured or a generation call fails.
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

// systemPrompt frames every generated answer. The assistant persona comes
// from the upstream product this dataset belongs to.
const systemPrompt = "You are Yojana Mitra, an assistant for Indian government schemes.\n" +
	"Answer the user's question ONLY using the provided scheme context.\n" +
	"Be concise, use bullet points, and include key eligibility and benefits.\n" +
	"If an application link is provided, include a clear call to action."

// Result is an answered scheme question.
type Result struct {
	SchemeName      string `json:"scheme_name"`
	Answer          string `json:"answer"`
	ApplicationLink string `json:"application_link,omitempty"`
}

// Service resolves scheme queries against the catalog and explains them.
type Service struct {
	catalog *catalog.Service
	gen     domain.Generator // nil disables generation, extractive only
	logger  *zap.Logger
}

// NewService creates the explain service. gen may be nil.
func NewService(cat *catalog.Service, gen domain.Generator, logger *zap.Logger) *Service {
	return &Service{catalog: cat, gen: gen, logger: logger}
}

// Explain answers a question about the scheme best matching schemeQuery.
// csvPath overrides the default dataset when non-empty.
func (s *Service) Explain(ctx context.Context, schemeQuery, question, csvPath string) (Result, error) {
	if strings.TrimSpace(schemeQuery) == "" {
		return Result{}, fmt.Errorf("scheme query required: %w", domain.ErrInvalidInput)
	}

	row, err := s.bestRow(schemeQuery, csvPath)
	if err != nil {
		return Result{}, err
	}

	name := row[normalizer.FieldSchemeName]
	if name == "" {
		name = domain.Unknown + " Scheme"
	}
	appLink := catalog.ApplicationLink(row)
	grounding := explainContext(row)

	if s.gen != nil {
		if question == "" {
			question = "Explain this scheme"
		}
		prompt := fmt.Sprintf("Question: %s\n\nContext:\n%s", question, grounding)
		answer, err := s.gen.Generate(ctx, systemPrompt, prompt)
		if err == nil {
			return Result{SchemeName: name, Answer: answer, ApplicationLink: appLink}, nil
		}
		s.logger.Warn("Generation failed, falling back to extractive answer",
			zap.String("scheme", name), zap.Error(err))
	}

	return Result{
		SchemeName:      name,
		Answer:          extractiveAnswer(name, row, appLink),
		ApplicationLink: appLink,
	}, nil
}

// bestRow fuzzy-matches a query to a catalog row.
func (s *Service) bestRow(query, csvPath string) (normalizer.Row, error) {
	rows, err := s.catalog.Rows(csvPath)
	if err != nil {
		return nil, err
	}
	best := matcher.Best(query, catalog.Candidates(rows))
	if best < 0 {
		return nil, fmt.Errorf("no matching scheme for %q: %w", query, domain.ErrNotFound)
	}
	return rows[best], nil
}

// explainContext renders a single row for the generation prompt. Absent
// fields are dropped, not filled with sentinels: the generator should not
// see "Not specified" as content.
func explainContext(row normalizer.Row) string {
	var parts []string
	add := func(label, field string) {
		if v := row[field]; v != "" {
			parts = append(parts, label+": "+v)
		}
	}
	add("Scheme Name", normalizer.FieldSchemeName)
	add("Details", normalizer.FieldDetails)
	add("Benefits", normalizer.FieldBenefits)
	add("Eligibility", normalizer.FieldEligibility)
	add("Application", normalizer.FieldApplication)
	add("Documents", normalizer.FieldDocuments)
	add("Level", normalizer.FieldLevel)
	add("Category", normalizer.FieldCategory)
	add("Tags", normalizer.FieldTags)
	add("State", normalizer.FieldState)
	return strings.Join(parts, "\n")
}

func extractiveAnswer(name string, row normalizer.Row, appLink string) string {
	lines := []string{name, "", row[normalizer.FieldDetails]}
	if v := row[normalizer.FieldBenefits]; v != "" {
		lines = append(lines, "", "Benefits:", v)
	}
	if v := row[normalizer.FieldEligibility]; v != "" {
		lines = append(lines, "", "Eligibility:", v)
	}
	if appLink != "" {
		lines = append(lines, "", "Apply: "+appLink)
	}
	return strings.Join(lines, "\n")
}
