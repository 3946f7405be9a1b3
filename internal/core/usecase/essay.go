package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
	"github.com/kirillkom/rag-builder-assistant/internal/core/ports"
)

const (
	essayTemperature  = 0.4
	essayMinChunks    = 2
	essayMinChunkText = 200
)

const essayGroundedSystem = `You write short, presentation-friendly essays about building Retrieval Augmented Generation (RAG) systems.

Hard rules:
- Stay within RAG system building topics only.
- Use ONLY the provided context.
- Do not invent specific facts, benchmark numbers, or implementation details not supported by the context.

Formatting rules:
- Output exactly 2 or 3 paragraphs (choose the best fit).
- Each paragraph must be 2 to 5 sentences.
- No bullet points.
- No headings.
- No prefacing text like "Sure" or "Here is".`

const essayOverviewSystem = `You write a high-level overview about building Retrieval Augmented Generation (RAG) systems.

Rules:
- Write a general overview without specific claims.
- Use cautious language (for example: "typically", "often", "in many systems").
- Do not reference missing sources or say that information is unavailable.

Formatting rules:
- Output exactly 2 paragraphs.
- No bullet points.
- No headings.`

// EssaySynthesizer writes a short prose essay instead of the structured
// answer. Thin evidence switches it to a cautious overview prompt.
type EssaySynthesizer struct {
	completer ports.Completer
}

func NewEssaySynthesizer(completer ports.Completer) *EssaySynthesizer {
	return &EssaySynthesizer{completer: completer}
}

func (s *EssaySynthesizer) Synthesize(ctx context.Context, query string, chunks []domain.RankedChunk) (domain.AnswerResult, error) {
	if len(chunks) == 0 {
		return notCovered(), nil
	}

	system := essayOverviewSystem
	if hasEnoughEssayContext(chunks) {
		system = essayGroundedSystem
	}

	text, err := s.completer.Complete(ctx, domain.CompletionRequest{
		System:      system,
		Prompt:      buildEssayPrompt(query, chunks),
		Temperature: essayTemperature,
	})
	if err != nil {
		return domain.AnswerResult{}, wrapUpstream("complete essay", err)
	}

	return domain.AnswerResult{
		State:     domain.AnswerReady,
		Text:      strings.TrimSpace(text),
		Citations: BuildCitations(chunks),
	}, nil
}

func hasEnoughEssayContext(chunks []domain.RankedChunk) bool {
	if len(chunks) < essayMinChunks {
		return false
	}
	for _, chunk := range chunks {
		if len(chunk.Text) > essayMinChunkText {
			return true
		}
	}
	return false
}

func buildEssayPrompt(query string, chunks []domain.RankedChunk) string {
	excerpts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		title := "Untitled"
		if meta := domain.NormalizePayload(chunk.Payload); meta.Title != nil {
			title = *meta.Title
		}
		excerpts = append(excerpts, strings.TrimSpace(fmt.Sprintf("Excerpt %d: %s\n%s", i+1, title, chunk.Text)))
	}
	block := strings.Join(excerpts, "\n\n---\n\n")
	if block == "" {
		block = "(no context provided)"
	}
	return "User request:\n" + query + "\n\nContext:\n" + block
}
