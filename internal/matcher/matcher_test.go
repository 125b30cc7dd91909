package matcher

import (
	"math"
	"testing"
)

func TestNormalizeQuery(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"PM Kisan Scheme", "pm kisan"},
		{"  pm kisan  ", "pm kisan"},
		{"scheme", "scheme"}, // word alone, no leading space to strip
		{"Crop Insurance scheme", "crop insurance"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeQuery(c.in); got != c.want {
			t.Errorf("NormalizeQuery(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if s := Similarity("kisan", "kisan"); math.Abs(s-1) > 1e-9 {
		t.Errorf("identical strings: got %f, want 1", s)
	}
	if s := Similarity("", ""); s != 1 {
		t.Errorf("empty strings: got %f, want 1", s)
	}
	if s := Similarity("abc", "xyz"); s != 0 {
		t.Errorf("disjoint strings: got %f, want 0", s)
	}
	// A single typo stays close to 1.
	if s := Similarity("kisan", "kisaan"); s < 0.8 {
		t.Errorf("one-typo similarity too low: %f", s)
	}
}

func TestBestPrefersExactTitle(t *testing.T) {
	candidates := []Candidate{
		{Name: "Pradhan Mantri Fasal Bima Yojana", Details: "crop insurance for farmers"},
		{Name: "PM Kisan Samman Nidhi", Details: "income support to farmer families"},
		{Name: "Mid Day Meal Scheme", Details: "school meals for students"},
	}

	if got := Best("pm kisan", candidates); got != 1 {
		t.Errorf("Best(pm kisan) = %d, want 1", got)
	}
	if got := Best("PM Kisan Scheme", candidates); got != 1 {
		t.Errorf("Best with scheme suffix = %d, want 1", got)
	}
}

func TestBestSurvivesTypos(t *testing.T) {
	candidates := []Candidate{
		{Name: "Pradhan Mantri Fasal Bima Yojana", Details: "crop insurance"},
		{Name: "PM Kisan Samman Nidhi", Details: "income support"},
	}

	if got := Best("pm kisaan saman nidhi", candidates); got != 1 {
		t.Errorf("Best with typos = %d, want 1", got)
	}
}

func TestBestUsesSlug(t *testing.T) {
	candidates := []Candidate{
		{Name: "Pradhan Mantri Kisan Samman Nidhi", Slug: "pm-kisan"},
		{Name: "Pradhan Mantri Awas Yojana", Slug: "pmay"},
	}

	if got := Best("pm-kisan", candidates); got != 0 {
		t.Errorf("Best by slug = %d, want 0", got)
	}
}

func TestBestFallsBackToDetailsOverlap(t *testing.T) {
	candidates := []Candidate{
		{Name: "Scheme A", Details: "support for urban housing construction"},
		{Name: "Scheme B", Details: "income support for small and marginal farmers"},
	}

	if got := Best("farmers income", candidates); got != 1 {
		t.Errorf("Best by details overlap = %d, want 1", got)
	}
}

func TestBestTieKeepsFirst(t *testing.T) {
	candidates := []Candidate{
		{Name: "Duplicate Scheme"},
		{Name: "Duplicate Scheme"},
	}

	if got := Best("duplicate", candidates); got != 0 {
		t.Errorf("tie: got %d, want first index 0", got)
	}
}

func TestBestEmptyCandidates(t *testing.T) {
	if got := Best("anything", nil); got != -1 {
		t.Errorf("Best on empty = %d, want -1", got)
	}
}

func TestNameScoreContainsBonus(t *testing.T) {
	contained := NameScore("kisan", "PM Kisan Samman Nidhi")
	unrelated := NameScore("kisan", "Mid Day Meal")
	if contained <= unrelated {
		t.Errorf("contained %f must outrank unrelated %f", contained, unrelated)
	}

	exact := NameScore("PM Kisan Samman Nidhi", "PM Kisan Samman Nidhi")
	if math.Abs(exact-1.5) > 1e-9 {
		t.Errorf("exact name score = %f, want 1.5 (similarity 1 + bonus)", exact)
	}
}
