package domain

// Sentinel values for absent metadata fields. Every field of a SchemeMeta is
// either a present, non-empty string or one of these — never empty, so
// downstream joins and response shaping never deal with missing keys.
const (
	Unknown      = "Unknown"
	NotSpecified = "Not specified"
	NotAvailable = "Not available"
	AllIndia     = "All India"
)

// SchemeMeta is the metadata record attached to every indexed document,
// resolved to sentinel defaults once at normalization time.
type SchemeMeta struct {
	SchemeName  string `json:"scheme_name"`
	Sector      string `json:"sector"`
	State       string `json:"state"`
	Eligibility string `json:"eligibility"`
	Benefits    string `json:"benefits"`
	OfficialURL string `json:"official_url"`
	Level       string `json:"level"`
	Tags        string `json:"tags"`
	RowIndex    int    `json:"row_index"`
	// Source is the traceability id: "{scheme_name}_row_{index}_chunk_{n}".
	Source string `json:"source"`
}

// ApplyDefaults replaces empty fields with their sentinel values.
func (m *SchemeMeta) ApplyDefaults() {
	if m.SchemeName == "" {
		m.SchemeName = Unknown
	}
	if m.Sector == "" {
		m.Sector = Unknown
	}
	if m.State == "" {
		m.State = AllIndia
	}
	if m.Eligibility == "" {
		m.Eligibility = NotSpecified
	}
	if m.Benefits == "" {
		m.Benefits = NotSpecified
	}
	if m.OfficialURL == "" {
		m.OfficialURL = NotAvailable
	}
	if m.Level == "" {
		m.Level = Unknown
	}
	// Tags stay empty when absent: the original dataset uses "" as its own sentinel.
}

// Document is one canonical embedded unit: a flattened "Label: value" string
// plus the metadata of the row (or chunk) it came from.
type Document struct {
	Text string
	Meta SchemeMeta
}

// SearchResult is one ranked hit with metadata re-attached.
type SearchResult struct {
	Scheme      string  `json:"scheme"`
	Sector      string  `json:"sector"`
	State       string  `json:"state"`
	Eligibility string  `json:"eligibility"`
	Benefits    string  `json:"benefits"`
	OfficialURL string  `json:"official_url"`
	Level       string  `json:"level"`
	Tags        string  `json:"tags"`
	Score       float64 `json:"score"`
	Document    string  `json:"document"`
}

// IndexStats describes the current index.
type IndexStats struct {
	TotalDocuments int    `json:"total_documents"`
	EmbeddingModel string `json:"embedding_model"`
	Dimension      int    `json:"dimension"`
	IndexType      string `json:"index_type"`
	MetadataCount  int    `json:"metadata_count"`
	DocumentsCount int    `json:"documents_count"`
}
