package normalizer

import (
	"regexp"
	"strings"
)

// sentenceSplit breaks on sentence-ending punctuation runs.
var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// EstimateTokens approximates the token count of a text (4 chars per token).
func EstimateTokens(text string) int {
	return len(text) / 4
}

// ChunkText splits text into pieces bounded by an approximate token budget.
// Splitting prefers sentence boundaries, falls back to word boundaries, and
// hard-truncates a single word longer than the whole budget.
func ChunkText(text string, maxTokens int) []string {
	if EstimateTokens(text) <= maxTokens {
		return []string{text}
	}

	var chunks []string
	current := ""

	for _, sentence := range sentenceSplit.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if EstimateTokens(current+" "+sentence) <= maxTokens {
			current = join(current, sentence)
			continue
		}

		if current != "" {
			chunks = append(chunks, current)
			current = sentence
			continue
		}

		var wordChunks []string
		wordChunks, current = splitWords(sentence, maxTokens)
		chunks = append(chunks, wordChunks...)
	}

	if current != "" {
		chunks = append(chunks, current)
	}

	return chunks
}

// splitWords splits one oversized sentence on word boundaries. The trailing
// partial chunk is returned separately so the caller can keep filling it.
func splitWords(sentence string, maxTokens int) (chunks []string, rest string) {
	current := ""
	for _, word := range strings.Fields(sentence) {
		if EstimateTokens(current+" "+word) <= maxTokens {
			current = join(current, word)
			continue
		}
		if current != "" {
			chunks = append(chunks, current)
			current = word
			continue
		}
		// Single word longer than the whole budget: hard truncation.
		chunks = append(chunks, word[:maxTokens*4])
	}
	return chunks, current
}

func join(acc, next string) string {
	if acc == "" {
		return next
	}
	return acc + " " + next
}
