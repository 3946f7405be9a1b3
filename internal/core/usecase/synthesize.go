package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
	"github.com/kirillkom/rag-builder-assistant/internal/core/ports"
)

const (
	NotCoveredMessage = "This question isn't covered by the current dataset. Try rephrasing it or ask about another RAG topic."
	// NotCoveredPhrase is the literal the model must emit when context is insufficient.
	NotCoveredPhrase = "Not covered by the dataset."

	answerTemperature = 0.2
)

// Synthesizer turns ranked chunks into an answer. Implementations return a
// not_covered result without calling the model when chunks is empty.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, chunks []domain.RankedChunk) (domain.AnswerResult, error)
}

type AnswerSynthesizer struct {
	completer ports.Completer
}

func NewAnswerSynthesizer(completer ports.Completer) *AnswerSynthesizer {
	return &AnswerSynthesizer{completer: completer}
}

func (s *AnswerSynthesizer) Synthesize(ctx context.Context, query string, chunks []domain.RankedChunk) (domain.AnswerResult, error) {
	if len(chunks) == 0 {
		return notCovered(), nil
	}

	text, err := s.completer.Complete(ctx, domain.CompletionRequest{
		Prompt:      buildAnswerPrompt(query, chunks),
		Temperature: answerTemperature,
	})
	if err != nil {
		return domain.AnswerResult{}, wrapUpstream("complete answer", err)
	}

	return domain.AnswerResult{
		State:     domain.AnswerReady,
		Text:      text,
		Citations: BuildCitations(chunks),
	}, nil
}

func notCovered() domain.AnswerResult {
	return domain.AnswerResult{State: domain.AnswerNotCovered, Message: NotCoveredMessage}
}

func buildAnswerContext(chunks []domain.RankedChunk) string {
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		meta := domain.NormalizePayload(chunk.Payload)
		title := "Unknown"
		if meta.Title != nil {
			title = *meta.Title
		}
		section := "General"
		if meta.SectionPath != nil {
			section = *meta.SectionPath
		}
		parts = append(parts, fmt.Sprintf("[#%d] %s\nSOURCE: %s — %s", i+1, chunk.Text, title, section))
	}
	return strings.Join(parts, "\n\n")
}

func buildAnswerPrompt(query string, chunks []domain.RankedChunk) string {
	var b strings.Builder
	b.WriteString("You are a technical assistant for building RAG systems.\n")
	b.WriteString("Answer the question ONLY using the provided context.\n")
	b.WriteString("If the context is insufficient, say \"" + NotCoveredPhrase + "\"\n\n")
	b.WriteString("Format EXACTLY as:\n")
	b.WriteString("Return markdown.\n\n")
	b.WriteString("Use this exact structure and formatting:\n")
	b.WriteString("## Goal\n1–2 sentences\n\n")
	b.WriteString("## Steps\n- bullet point\n- bullet point\n- bullet point\n\n")
	b.WriteString("## Pitfalls\n- bullet point\n- bullet point\n\n")
	b.WriteString("## How to test\n- bullet point\n- bullet point\n\n")
	b.WriteString("Do NOT include a \"Citations\" section.\n")
	b.WriteString("Do NOT mention sources in the answer text.\n")
	b.WriteString("If the context is insufficient, write: \"" + NotCoveredPhrase + "\"\n\n")
	b.WriteString("Question:\n")
	b.WriteString(query)
	b.WriteString("\n\nContext:\n")
	b.WriteString(buildAnswerContext(chunks))
	return b.String()
}
