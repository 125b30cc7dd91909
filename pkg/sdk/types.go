package schemedex

import "time"

// IngestRequest triggers an index build on the server.
type IngestRequest struct {
	CSVPath      string `json:"csv_path,omitempty"`
	ForceRebuild bool   `json:"force_rebuild,omitempty"`
}

// IndexStats describes the server's index.
type IndexStats struct {
	TotalDocuments int    `json:"total_documents"`
	EmbeddingModel string `json:"embedding_model"`
	Dimension      int    `json:"dimension"`
	IndexType      string `json:"index_type"`
	MetadataCount  int    `json:"metadata_count"`
	DocumentsCount int    `json:"documents_count"`
}

// IngestResponse reports a completed (or skipped) build.
type IngestResponse struct {
	Status             string     `json:"status"`
	DocumentsProcessed int        `json:"documents_processed"`
	Rebuilt            bool       `json:"rebuilt"`
	Stats              IndexStats `json:"stats"`

	// EmbeddingTokens is taken from the X-Embedding-Tokens response header.
	EmbeddingTokens int `json:"-"`
}

// QueryRequest is a top-k retrieval request.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SearchResult is one ranked hit.
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

// QueryResponse carries ranked results.
type QueryResponse struct {
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`

	EmbeddingTokens int `json:"-"`
}

// ExplainRequest asks a question about one scheme.
type ExplainRequest struct {
	SchemeQuery string `json:"scheme_query"`
	Question    string `json:"question,omitempty"`
}

// ExplainResponse is an answered scheme question.
type ExplainResponse struct {
	SchemeName      string `json:"scheme_name"`
	Answer          string `json:"answer"`
	ApplicationLink string `json:"application_link,omitempty"`
}

// ResolveURLResponse is a resolved application URL.
type ResolveURLResponse struct {
	SchemeName string `json:"scheme_name"`
	URL        string `json:"url,omitempty"`
}

// EnrichItem names a scheme to enrich.
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

// ChatMessage is one conversation turn. Role is "user" or "assistant".
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest carries the conversation plus optional user attributes.
type ChatRequest struct {
	Messages    []ChatMessage `json:"messages"`
	State       string        `json:"state,omitempty"`
	Sector      string        `json:"sector,omitempty"`
	IncomeLevel string        `json:"income_level,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
}

// Recommendation is one structured scheme suggestion.
type Recommendation struct {
	SchemeName  string `json:"scheme_name"`
	State       string `json:"state"`
	Category    string `json:"category"`
	Eligibility string `json:"eligibility"`
	Benefits    string `json:"benefits"`
	Application string `json:"application"`
}

// ChatResponse is the assistant reply plus its grounding recommendations.
type ChatResponse struct {
	Reply       string           `json:"reply"`
	Recommended []Recommendation `json:"recommended"`
}

// HealthResponse is the aggregated health report.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// UsageReport is a point-in-time token budget snapshot.
type UsageReport struct {
	Period          string     `json:"period"`
	TokensUsed      int64      `json:"tokens_used"`
	TokensLimit     int64      `json:"tokens_limit"`
	TokensRemaining int64      `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	PeriodStartAt   *time.Time `json:"period_start_at,omitempty"`
	PeriodEndAt     *time.Time `json:"period_end_at,omitempty"`
}
