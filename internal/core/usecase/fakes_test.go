package usecase

import (
	"context"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
)

type embedderFake struct {
	calls int
	query string
	err   error
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.calls++
	f.query = text
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type searchCall struct {
	limit  int
	filter domain.SearchFilter
}

// vectorStoreFake returns results[i] for the i-th call, or the last entry
// once exhausted.
type vectorStoreFake struct {
	results [][]domain.Candidate
	err     error
	calls   []searchCall
}

func (f *vectorStoreFake) Search(_ context.Context, _ []float32, limit int, filter domain.SearchFilter) ([]domain.Candidate, error) {
	f.calls = append(f.calls, searchCall{limit: limit, filter: filter})
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return nil, nil
	}
	idx := len(f.calls) - 1
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	return f.results[idx], nil
}

type rerankClientFake struct {
	documents []string
	topN      int
	hits      []domain.RerankHit
	err       error
}

func (f *rerankClientFake) Rerank(_ context.Context, _ string, documents []string, topN int) ([]domain.RerankHit, error) {
	f.documents = documents
	f.topN = topN
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

type completerFake struct {
	calls int
	req   domain.CompletionRequest
	text  string
	err   error
}

func (f *completerFake) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	f.calls++
	f.req = req
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type upstreamStatusError struct {
	detail string
}

func (e *upstreamStatusError) Error() string        { return "vector store status 400" }
func (e *upstreamStatusError) StatusDetail() string { return e.detail }

func candidate(id string, score float64, payload map[string]any) domain.Candidate {
	return domain.Candidate{ID: id, Score: score, Payload: payload}
}

func chunk(id, text string, payload map[string]any) domain.RankedChunk {
	return domain.RankedChunk{ID: id, Text: text, Score: 0.5, Payload: payload}
}
