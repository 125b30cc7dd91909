package normalizer

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abcd", 1},
		{"abcdefg", 1},
		{strings.Repeat("x", 400), 100},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%d chars) = %d, expected %d", len(tt.text), got, tt.want)
		}
	}
}

func TestChunkText_UnderBudgetIsUntouched(t *testing.T) {
	text := "Income support for small and marginal farmers. Paid in three installments."

	chunks := ChunkText(text, 500)

	if len(chunks) != 1 || chunks[0] != text {
		t.Fatalf("ChunkText = %q, expected the original text in one chunk", chunks)
	}
}

func TestChunkText_SplitsOnSentences(t *testing.T) {
	sentence := strings.Repeat("word ", 7) + "end" // ~9 tokens
	text := sentence + ". " + sentence + ". " + sentence + "."

	chunks := ChunkText(text, 10)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if EstimateTokens(chunk) > 10 {
			t.Errorf("chunk %d is %d tokens, over the budget of 10", i, EstimateTokens(chunk))
		}
	}
	// All words survive splitting, in order.
	want := strings.Fields(strings.ReplaceAll(text, ".", " "))
	got := strings.Fields(strings.Join(chunks, " "))
	if len(got) != len(want) {
		t.Fatalf("got %d words across chunks, expected %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("word %d = %q, expected %q", i, got[i], want[i])
		}
	}
}

func TestChunkText_WordFallbackForOversizedSentence(t *testing.T) {
	// One long sentence without terminal punctuation cannot split on
	// sentence boundaries and falls back to word boundaries.
	text := strings.TrimSpace(strings.Repeat("benefit ", 40))

	chunks := ChunkText(text, 10)

	if len(chunks) < 2 {
		t.Fatalf("expected word-level chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if EstimateTokens(chunk) > 10 {
			t.Errorf("chunk %d is %d tokens, over the budget of 10", i, EstimateTokens(chunk))
		}
	}
}

func TestChunkText_HardTruncatesGiantWord(t *testing.T) {
	word := strings.Repeat("x", 200)

	chunks := ChunkText(word, 10)

	if len(chunks) != 1 {
		t.Fatalf("expected a single truncated chunk, got %d", len(chunks))
	}
	if len(chunks[0]) != 10*4 {
		t.Errorf("truncated chunk is %d chars, expected %d", len(chunks[0]), 10*4)
	}
}
