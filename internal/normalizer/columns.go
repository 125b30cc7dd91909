package normalizer

import "strings"

// Canonical field names, in the fixed order they appear in a document.
const (
	FieldSchemeName  = "scheme_name"
	FieldDetails     = "details"
	FieldBenefits    = "benefits"
	FieldEligibility = "eligibility"
	FieldApplication = "application"
	FieldDocuments   = "documents"
	FieldCategory    = "scheme_category"
	FieldLevel       = "level"
	FieldTags        = "tags"
	FieldState       = "state"
	FieldOfficialURL = "official_url"

	// FieldSlug is mapped for name matching only and never enters documents.
	FieldSlug = "slug"
)

// fieldOrder is the deterministic document build order. Identical input rows
// must produce byte-identical documents, so this order never changes.
var fieldOrder = []string{
	FieldSchemeName,
	FieldDetails,
	FieldBenefits,
	FieldEligibility,
	FieldApplication,
	FieldDocuments,
	FieldCategory,
	FieldLevel,
	FieldTags,
}

// fieldLabels maps canonical fields to their document segment labels.
var fieldLabels = map[string]string{
	FieldSchemeName:  "Scheme",
	FieldDetails:     "Description",
	FieldBenefits:    "Benefits",
	FieldEligibility: "Eligibility",
	FieldApplication: "Application Process",
	FieldDocuments:   "Required Documents",
	FieldCategory:    "Category",
	FieldLevel:       "Level",
	FieldTags:        "Tags",
}

// columnSynonyms maps each canonical field to its known header spellings.
// Matching is case-insensitive substring, first hit wins.
var columnSynonyms = map[string][]string{
	FieldSchemeName:  {"scheme_name", "schemename", "scheme name", "name"},
	FieldDetails:     {"details", "description", "desc", "about"},
	FieldBenefits:    {"benefits", "benefit", "financial_assistance", "assistance"},
	FieldEligibility: {"eligibility", "eligibilitycriteria", "criteria", "who_can_apply"},
	FieldApplication: {"application", "how_to_apply", "process", "steps"},
	FieldDocuments:   {"documents", "required_documents", "docs"},
	FieldLevel:       {"level", "government_level", "state_central"},
	FieldCategory:    {"schemecategory", "category", "sector", "domain"},
	FieldTags:        {"tags", "tag", "keywords"},
	FieldState:       {"state", "region", "location"},
	FieldOfficialURL: {"officialurl", "url", "link", "website"},
	FieldSlug:        {"slug"},
}

// mappedFields is the order fields claim columns in. FieldState before
// FieldLevel would let a "state_central" header be stolen by state, so the
// claim order matches the synonym specificity of the reference dataset.
var mappedFields = []string{
	FieldSchemeName,
	FieldDetails,
	FieldBenefits,
	FieldEligibility,
	FieldApplication,
	FieldDocuments,
	FieldLevel,
	FieldCategory,
	FieldTags,
	FieldState,
	FieldOfficialURL,
	FieldSlug,
}

// MapColumns resolves a CSV header to canonical field -> column index.
// Each canonical field claims the first unclaimed column whose name contains
// one of its synonyms; unmapped columns are ignored for document construction.
func MapColumns(header []string) map[string]int {
	lowered := make([]string, len(header))
	for i, h := range header {
		lowered[i] = strings.ToLower(strings.TrimSpace(h))
	}

	claimed := make(map[int]bool, len(header))
	mapping := make(map[string]int)

	for _, field := range mappedFields {
	patterns:
		for _, pattern := range columnSynonyms[field] {
			for i, col := range lowered {
				if claimed[i] || !strings.Contains(col, pattern) {
					continue
				}
				mapping[field] = i
				claimed[i] = true
				break patterns
			}
		}
	}

	return mapping
}
