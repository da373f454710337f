package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/bdobrica/Kizuna/common/trace"
)

func TestRetriever_PassesScopeAndLimit(t *testing.T) {
	store := &stubStore{
		searchResult: []SearchResult{
			{Memory: Memory{ID: "m2", Content: "second"}, Relevance: 0.9},
			{Memory: Memory{ID: "m1", Content: "first"}, Relevance: 0.4},
		},
	}
	r := NewRetriever(store, nil)
	session := SessionContext{
		CoupleID:   "couple-1",
		UserID:     "alex",
		Visibility: VisibilityPrivate,
	}
	msg := "What does my mom like and what should we bring?"

	ctx := trace.WithTraceID(context.Background(), "t_test")
	got, err := r.GetMemoriesForContext(ctx, session, msg)
	if err != nil {
		t.Fatalf("GetMemoriesForContext() error: %v", err)
	}

	if len(store.searchCalls) != 1 {
		t.Fatalf("search calls = %d, want 1", len(store.searchCalls))
	}
	want := ScopedQuery{
		CoupleID:   "couple-1",
		UserID:     "alex",
		Text:       msg,
		Visibility: VisibilityPrivate,
		Limit:      CalculateMemoryLimit(msg),
	}
	if store.searchCalls[0] != want {
		t.Errorf("query = %+v, want %+v", store.searchCalls[0], want)
	}
	if want.Limit != 10 {
		t.Errorf("limit = %d, want 10", want.Limit)
	}

	if len(got) != 2 || got[0].ID != "m2" || got[1].ID != "m1" {
		t.Errorf("results reordered or altered: %+v", got)
	}
}

func TestRetriever_PropagatesStoreError(t *testing.T) {
	boom := errors.New("store down")
	r := NewRetriever(&stubStore{searchErr: boom}, nil)

	got, err := r.GetMemoriesForContext(context.Background(), SessionContext{CoupleID: "c"}, "what is new?")
	if err != boom {
		t.Fatalf("error = %v, want the store error unchanged", err)
	}
	if got != nil {
		t.Errorf("results = %v, want nil", got)
	}
}

func TestRetriever_EmptyResults(t *testing.T) {
	r := NewRetriever(&stubStore{}, nil)
	got, err := r.GetMemoriesForContext(context.Background(), SessionContext{CoupleID: "c"}, "anything planned this weekend?")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
	if BuildMemoryContext(got) != "" {
		t.Error("empty results should format to the empty string")
	}
}
