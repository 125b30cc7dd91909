package schemedex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(srv.URL, WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty base URL")
	}
}

func TestQuerySendsAuthAndDecodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "farmers" || req.TopK != 3 {
			t.Errorf("req = %+v", req)
		}

		w.Header().Set("X-Embedding-Tokens", "9")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(QueryResponse{
			Results:      []SearchResult{{Scheme: "PM Kisan", Score: 0.91}},
			TotalResults: 1,
		})
	})

	resp, err := client.Query(context.Background(), QueryRequest{Query: "farmers", TopK: 3})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.TotalResults != 1 || resp.Results[0].Scheme != "PM Kisan" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.EmbeddingTokens != 9 {
		t.Errorf("EmbeddingTokens = %d", resp.EmbeddingTokens)
	}
}

func TestIngest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ingest" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("X-Embedding-Tokens", "210")
		_ = json.NewEncoder(w).Encode(IngestResponse{
			Status:             "success",
			DocumentsProcessed: 30,
			Rebuilt:            true,
		})
	})

	resp, err := client.Ingest(context.Background(), IngestRequest{ForceRebuild: true})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if resp.DocumentsProcessed != 30 || !resp.Rebuilt || resp.EmbeddingTokens != 210 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestAPIErrorMapsToSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "index_not_ready",
			"message": "index not ready",
		})
	})

	_, err := client.Query(context.Background(), QueryRequest{Query: "farmers"})
	if !errors.Is(err, ErrIndexNotReady) {
		t.Errorf("got %v, want ErrIndexNotReady", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatal("expected *APIError")
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable || apiErr.Code != "index_not_ready" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestAPIErrorNonJSONBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream timeout"))
	})

	_, err := client.Stats(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Code != "internal_error" {
		t.Errorf("Code = %q", apiErr.Code)
	}
}

func TestExplain(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ExplainRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.SchemeQuery != "pm kisan" {
			t.Errorf("SchemeQuery = %q", req.SchemeQuery)
		}
		_ = json.NewEncoder(w).Encode(ExplainResponse{
			SchemeName: "PM Kisan Samman Nidhi",
			Answer:     "Rs 6000 per year.",
		})
	})

	resp, err := client.Explain(context.Background(), ExplainRequest{SchemeQuery: "pm kisan", Question: "benefits?"})
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if resp.SchemeName != "PM Kisan Samman Nidhi" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestEnrichUnwrapsSchemes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"schemes": []EnrichedScheme{{SchemeName: "PM Kisan", Description: "Income support."}},
		})
	})

	out, err := client.Enrich(context.Background(), []EnrichItem{{SchemeName: "pm kisan"}})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if len(out) != 1 || out[0].Description != "Income support." {
		t.Errorf("out = %+v", out)
	}
}

func TestUsagePeriodQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("period"); got != "day" {
			t.Errorf("period = %q", got)
		}
		_ = json.NewEncoder(w).Encode(UsageReport{Period: "day", TokensUsed: 42})
	})

	report, err := client.Usage(context.Background(), "day")
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if report.TokensUsed != 42 {
		t.Errorf("report = %+v", report)
	}
}

func TestHealthDegradedIsNotError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "degraded",
			Checks: map[string]string{"index": "error"},
		})
	})

	resp, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if resp.Status != "degraded" || resp.Checks["index"] != "error" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestChat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Reply:       "PM Kisan fits you.",
			Recommended: []Recommendation{{SchemeName: "PM Kisan"}},
		})
	})

	resp, err := client.Chat(context.Background(), ChatRequest{
		Messages: []ChatMessage{{Role: "user", Content: "schemes for farmers"}},
		State:    "All India",
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Reply == "" || len(resp.Recommended) != 1 {
		t.Errorf("resp = %+v", resp)
	}
}
