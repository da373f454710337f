package memory

import (
	"context"
	"log/slog"
)

// Retriever fetches the memories relevant to an incoming message, scoped to
// the session's couple, requester and thread visibility.
//
// Retriever does not consult ShouldRetrieveMemories. Callers gate on it first
// so skip-eligible messages never pay for a search.
type Retriever struct {
	store  Searcher
	logger *slog.Logger
}

// NewRetriever creates a Retriever backed by store. If logger is nil, the
// default slog logger is used.
func NewRetriever(store Searcher, logger *slog.Logger) *Retriever {
	return &Retriever{store: store, logger: logger}
}

// GetMemoriesForContext computes the adaptive limit for message and runs a
// scoped search. Results are returned exactly as the store ordered them.
// Store failures are returned unchanged.
func (r *Retriever) GetMemoriesForContext(ctx context.Context, session SessionContext, message string) ([]SearchResult, error) {
	limit := CalculateMemoryLimit(message)

	results, err := r.store.SearchScoped(ctx, ScopedQuery{
		CoupleID:   session.CoupleID,
		UserID:     session.UserID,
		Text:       message,
		Visibility: session.Visibility,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}

	loggerFor(ctx, r.logger).Debug("memory: retrieved memories for context",
		"couple_id", session.CoupleID,
		"user_id", session.UserID,
		"visibility", session.Visibility,
		"limit", limit,
		"results", len(results),
		"message", preview(message),
	)
	return results, nil
}
