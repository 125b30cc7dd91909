package explain

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/schemedex/internal/domain"
	"github.com/kailas-cloud/schemedex/internal/usecase/catalog"
)

const chatSystemPrompt = "You are Yojana Mitra, a warm and knowledgeable assistant for Indian government welfare schemes.\n" +
	"Recommend schemes ONLY from the provided catalog context.\n" +
	"Match the user's state, occupation and income level when they are known.\n" +
	"Be concise and practical: name the scheme, why it fits, and how to apply."

// ChatMessage is one turn of a conversation. Role is "user" or "assistant".
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest carries the conversation plus optional user attributes used
// to narrow the catalog before generation.
type ChatRequest struct {
	Messages    []ChatMessage `json:"messages"`
	State       string        `json:"state,omitempty"`
	Sector      string        `json:"sector,omitempty"`
	IncomeLevel string        `json:"income_level,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	CSVPath     string        `json:"csv_path,omitempty"`
}

// ChatResult is the assistant reply plus the structured recommendations
// the reply was grounded in.
type ChatResult struct {
	Reply       string                   `json:"reply"`
	Recommended []catalog.Recommendation `json:"recommended"`
}

// Chat answers a conversational scheme-discovery request. Candidate
// schemes are filtered from the catalog by the last user message and the
// request attributes, then handed to the generator as grounding context.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (ChatResult, error) {
	lastUser := lastUserMessage(req.Messages)
	if lastUser == "" {
		return ChatResult{}, fmt.Errorf("at least one user message required: %w", domain.ErrInvalidInput)
	}

	rows, _, err := s.catalog.Filter(req.CSVPath, catalog.Filter{
		NameQuery:   lastUser,
		State:       req.State,
		Sector:      req.Sector,
		IncomeLevel: req.IncomeLevel,
		Tags:        req.Tags,
	})
	if err != nil {
		return ChatResult{}, err
	}

	grounding := catalog.FormatContext(rows)
	recommended := catalog.Recommend(rows)

	if s.gen == nil {
		return ChatResult{Reply: fallbackReply(grounding), Recommended: recommended}, nil
	}

	reply, err := s.gen.Generate(ctx, chatSystemPrompt, chatPrompt(req, grounding))
	if err != nil {
		s.logger.Warn("Chat generation failed, replying with raw catalog context", zap.Error(err))
		return ChatResult{Reply: fallbackReply(grounding), Recommended: recommended}, nil
	}
	return ChatResult{Reply: reply, Recommended: recommended}, nil
}

func chatPrompt(req ChatRequest, grounding string) string {
	var b strings.Builder
	if req.State != "" {
		fmt.Fprintf(&b, "User state: %s\n", req.State)
	}
	if req.Sector != "" {
		fmt.Fprintf(&b, "User occupation/sector: %s\n", req.Sector)
	}
	if req.IncomeLevel != "" {
		fmt.Fprintf(&b, "User income level: %s\n", req.IncomeLevel)
	}
	if len(req.Tags) > 0 {
		fmt.Fprintf(&b, "User interests: %s\n", strings.Join(req.Tags, ", "))
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString("Conversation:\n")
	for _, m := range req.Messages {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != "assistant" {
			role = "user"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}
	b.WriteString("\nCatalog context:\n" + grounding)
	return b.String()
}

func fallbackReply(grounding string) string {
	if grounding == "" {
		return "Could not find matching schemes in the catalog. Try a broader question."
	}
	return "Could not access the assistant right now. Here are catalog entries that may match:\n\n" + grounding
}

func lastUserMessage(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if strings.EqualFold(strings.TrimSpace(messages[i].Role), "user") {
			if text := strings.TrimSpace(messages[i].Content); text != "" {
				return text
			}
		}
	}
	return ""
}
