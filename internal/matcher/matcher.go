// Package matcher scores free-text scheme names against catalog entries.
// Queries arrive with typos, partial names, and boilerplate ("pm kisan
// scheme"), so matching combines a substring signal, edit-distance
// similarity, and token overlap instead of exact comparison.
package matcher

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Weights for the composite score. Title matches dominate: a query contained
// in the scheme name outranks any amount of detail-text overlap.
const (
	substringWeight  = 1.2
	similarityWeight = 1.0
	overlapWeight    = 0.5

	titleTokenWeight   = 1.0
	detailsTokenWeight = 0.2

	// containsBonus is added in name-only matching when the query is a
	// substring of the candidate name.
	containsBonus = 0.5
)

// Candidate is one catalog entry offered for matching.
type Candidate struct {
	Name    string
	Slug    string
	Details string
}

// NormalizeQuery lowercases the query and strips the generic word "scheme",
// which carries no signal ("pm kisan scheme" and "pm kisan" must match the
// same rows).
func NormalizeQuery(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.ReplaceAll(q, " scheme", "")
	return strings.TrimSpace(q)
}

// Score rates a candidate against a normalized query. Higher is better;
// scores are only comparable within one query.
func Score(query string, c Candidate) float64 {
	nameL := strings.ToLower(c.Name)
	slugL := strings.ToLower(c.Slug)
	detailsL := strings.ToLower(c.Details)

	var substr float64
	if query != "" && (strings.Contains(nameL, query) || (slugL != "" && strings.Contains(slugL, query))) {
		substr = 1.0
	}

	similarity := Similarity(query, nameL)

	var overlap float64
	queryTokens := tokens(query)
	if len(queryTokens) > 0 {
		title := tokens(nameL)
		details := tokens(detailsL)
		overlap = float64(intersection(queryTokens, title))*titleTokenWeight +
			float64(intersection(queryTokens, details))*detailsTokenWeight
	}

	return substr*substringWeight + similarity*similarityWeight + overlap*overlapWeight
}

// NameScore rates a candidate by name alone: edit similarity plus a bonus
// when the query is contained in the name. Used where only scheme names are
// compared (URL resolution, enrichment).
func NameScore(query, name string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	n := strings.ToLower(name)

	score := Similarity(q, n)
	if q != "" && strings.Contains(n, q) {
		score += containsBonus
	}
	return score
}

// Best returns the index of the highest-scoring candidate, or -1 for an
// empty slice. Ties keep the first seen, so catalog order is the final
// tie-break and results are deterministic.
func Best(query string, candidates []Candidate) int {
	q := NormalizeQuery(query)

	best := -1
	bestScore := -1.0
	for i, c := range candidates {
		if s := Score(q, c); s > bestScore {
			bestScore = s
			best = i
		}
	}
	return best
}

// Similarity is a normalized edit-distance similarity in [0, 1]:
// 1 for equal strings, 0 for nothing in common.
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

func tokens(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range strings.Fields(s) {
		set[t] = struct{}{}
	}
	return set
}

func intersection(a, b map[string]struct{}) int {
	n := 0
	for t := range a {
		if _, ok := b[t]; ok {
			n++
		}
	}
	return n
}
