package memory

import (
	"context"
)

type similarCall struct {
	coupleID  string
	subject   string
	threshold float64
}

// stubStore records every collaborator call and replays canned answers.
type stubStore struct {
	searchCalls  []ScopedQuery
	searchResult []SearchResult
	searchErr    error

	similarCalls  []similarCall
	similarResult map[string][]Memory
	similarErr    error

	updateCalls  []string
	updateResult *Memory
	updateErr    error

	deleteCalls  []string
	deleteResult bool
	deleteErr    error
}

func (s *stubStore) SearchScoped(_ context.Context, q ScopedQuery) ([]SearchResult, error) {
	s.searchCalls = append(s.searchCalls, q)
	return s.searchResult, s.searchErr
}

func (s *stubStore) FindSimilar(_ context.Context, coupleID, subject string, threshold float64) ([]Memory, error) {
	s.similarCalls = append(s.similarCalls, similarCall{coupleID, subject, threshold})
	if s.similarErr != nil {
		return nil, s.similarErr
	}
	return s.similarResult[subject], nil
}

func (s *stubStore) UpdateContent(_ context.Context, memoryID, content string) (*Memory, error) {
	s.updateCalls = append(s.updateCalls, memoryID+"="+content)
	return s.updateResult, s.updateErr
}

func (s *stubStore) Delete(_ context.Context, memoryID string) (bool, error) {
	s.deleteCalls = append(s.deleteCalls, memoryID)
	return s.deleteResult, s.deleteErr
}

var _ Store = (*stubStore)(nil)
