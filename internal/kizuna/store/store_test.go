package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/bdobrica/Kizuna/internal/kizuna/memory"
	"github.com/bdobrica/Kizuna/internal/kizuna/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "kizuna-test.db"), nil, nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreate(t *testing.T, s store.Backend, d memory.Draft) *memory.Memory {
	t.Helper()
	m, err := s.Create(context.Background(), d)
	if err != nil {
		t.Fatalf("Create(%+v): %v", d, err)
	}
	return m
}

// seedCouple stores one memory per visibility/author combination, all of
// which mention dinner, plus one memory of another couple.
func seedCouple(t *testing.T, s store.Backend) map[string]*memory.Memory {
	t.Helper()
	return map[string]*memory.Memory{
		"alex-shared":  mustCreate(t, s, memory.Draft{CoupleID: "c1", AuthorID: "alex", Category: memory.CategoryFact, Content: "Alex cooks dinner on Fridays"}),
		"sam-shared":   mustCreate(t, s, memory.Draft{CoupleID: "c1", AuthorID: "sam", Category: memory.CategoryContext, Content: "Sam booked dinner at Luigi"}),
		"alex-private": mustCreate(t, s, memory.Draft{CoupleID: "c1", AuthorID: "alex", Visibility: memory.VisibilityPrivate, Category: memory.CategoryContext, Content: "Alex is planning a surprise dinner"}),
		"sam-private":  mustCreate(t, s, memory.Draft{CoupleID: "c1", AuthorID: "sam", Visibility: memory.VisibilityPrivate, Category: memory.CategoryFact, Content: "Sam hates dinner parties"}),
		"other-couple": mustCreate(t, s, memory.Draft{CoupleID: "c2", AuthorID: "kim", Category: memory.CategoryFact, Content: "Kim likes dinner"}),
	}
}

func ids(results []memory.SearchResult) map[string]memory.SearchResult {
	out := make(map[string]memory.SearchResult, len(results))
	for _, r := range results {
		out[r.ID] = r
	}
	return out
}

func TestNew_MigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kizuna.db")
	for i := 0; i < 2; i++ {
		s, err := store.New(path, nil, nil)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		var n int
		if err := s.DB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
			t.Fatalf("count migrations: %v", err)
		}
		if n != 1 {
			t.Errorf("schema_migrations rows = %d, want 1", n)
		}
		s.Close()
	}
}

func TestCreate_Validation(t *testing.T) {
	s := newTestStore(t)

	bad := []memory.Draft{
		{CoupleID: "", Category: memory.CategoryFact, Content: "x"},
		{CoupleID: "c1", Category: memory.CategoryFact, Content: "   "},
		{CoupleID: "c1", Category: "gossip", Content: "x"},
		{CoupleID: "c1", Category: memory.CategoryFact, Content: "x", Visibility: "secret"},
		{CoupleID: "c1", Category: memory.CategoryFact, Content: "x", Visibility: memory.VisibilityPrivate},
	}
	for _, d := range bad {
		if _, err := s.Create(context.Background(), d); !errors.Is(err, store.ErrInvalidDraft) {
			t.Errorf("Create(%+v) error = %v, want ErrInvalidDraft", d, err)
		}
	}

	m := mustCreate(t, s, memory.Draft{CoupleID: "c1", Category: memory.CategoryFact, Content: "  Anniversary is May 3  "})
	if m.ID == "" || m.Visibility != memory.VisibilityShared || m.Content != "Anniversary is May 3" {
		t.Errorf("created memory = %+v", m)
	}
	if m.CreatedAt.IsZero() || !m.CreatedAt.Equal(m.UpdatedAt) {
		t.Errorf("timestamps = %v / %v", m.CreatedAt, m.UpdatedAt)
	}
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	seeded := seedCouple(t, s)

	got, err := s.List(context.Background(), "c1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0].ID != seeded["alex-shared"].ID {
		t.Errorf("first = %q, want oldest %q", got[0].ID, seeded["alex-shared"].ID)
	}
}

func TestSearchScoped_PrivateThread(t *testing.T) {
	s := newTestStore(t)
	seeded := seedCouple(t, s)

	results, err := s.SearchScoped(context.Background(), memory.ScopedQuery{
		CoupleID: "c1", UserID: "alex", Text: "what about dinner?", Visibility: memory.VisibilityPrivate, Limit: 10,
	})
	if err != nil {
		t.Fatalf("SearchScoped: %v", err)
	}
	got := ids(results)
	for _, key := range []string{"alex-shared", "sam-shared", "alex-private"} {
		if _, ok := got[seeded[key].ID]; !ok {
			t.Errorf("missing %s", key)
		}
	}
	for _, key := range []string{"sam-private", "other-couple"} {
		if _, ok := got[seeded[key].ID]; ok {
			t.Errorf("%s must not surface", key)
		}
	}

	if !got[seeded["sam-shared"].ID].FromPartner {
		t.Error("partner-authored memory not marked FromPartner")
	}
	if got[seeded["alex-shared"].ID].FromPartner {
		t.Error("own memory marked FromPartner")
	}
}

func TestSearchScoped_SharedThread(t *testing.T) {
	s := newTestStore(t)
	seeded := seedCouple(t, s)

	results, err := s.SearchScoped(context.Background(), memory.ScopedQuery{
		CoupleID: "c1", UserID: "alex", Text: "dinner", Visibility: memory.VisibilityShared, Limit: 10,
	})
	if err != nil {
		t.Fatalf("SearchScoped: %v", err)
	}
	got := ids(results)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 shared memories: %+v", len(got), results)
	}
	if _, ok := got[seeded["alex-private"].ID]; ok {
		t.Error("private memory surfaced in shared thread")
	}
}

func TestSearchScoped_LimitAndOrder(t *testing.T) {
	s := newTestStore(t)
	seedCouple(t, s)

	results, err := s.SearchScoped(context.Background(), memory.ScopedQuery{
		CoupleID: "c1", UserID: "alex", Text: "dinner", Visibility: memory.VisibilityPrivate, Limit: 2,
	})
	if err != nil {
		t.Fatalf("SearchScoped: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len = %d, want 2", len(results))
	}
	if results[0].Relevance < results[1].Relevance {
		t.Errorf("results not in descending relevance: %f < %f", results[0].Relevance, results[1].Relevance)
	}
}

func TestSearchScoped_NoKeywordsFallsBackToRecency(t *testing.T) {
	s := newTestStore(t)
	seedCouple(t, s)

	results, err := s.SearchScoped(context.Background(), memory.ScopedQuery{
		CoupleID: "c1", UserID: "sam", Text: "what is it?", Visibility: memory.VisibilityShared, Limit: 5,
	})
	if err != nil {
		t.Fatalf("SearchScoped: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len = %d, want 2", len(results))
	}
}

func TestSearchScoped_NoMatch(t *testing.T) {
	s := newTestStore(t)
	seedCouple(t, s)

	results, err := s.SearchScoped(context.Background(), memory.ScopedQuery{
		CoupleID: "c1", UserID: "alex", Text: "giraffes", Visibility: memory.VisibilityPrivate, Limit: 5,
	})
	if err != nil {
		t.Fatalf("SearchScoped: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("len = %d, want 0", len(results))
	}
}

func TestFindSimilar(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mom := mustCreate(t, s, memory.Draft{CoupleID: "c1", AuthorID: "alex", Category: memory.CategoryRelationship, Content: "Mom's name is Susan"})
	mustCreate(t, s, memory.Draft{CoupleID: "c1", AuthorID: "alex", Category: memory.CategoryFact, Content: "We love hiking in autumn"})
	mustCreate(t, s, memory.Draft{CoupleID: "c2", AuthorID: "kim", Category: memory.CategoryRelationship, Content: "Mom's name is Ana"})

	got, err := s.FindSimilar(ctx, "c1", "mom", memory.CorrectionSimilarityThreshold)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if len(got) != 1 || got[0].ID != mom.ID {
		t.Fatalf("FindSimilar = %+v, want only %s", got, mom.ID)
	}

	none, err := s.FindSimilar(ctx, "c1", "mom", 0.99)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("threshold 0.99 returned %d results", len(none))
	}
}

func TestUpdateContent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := mustCreate(t, s, memory.Draft{CoupleID: "c1", AuthorID: "alex", Category: memory.CategoryRelationship, Content: "Mom's name is Susan"})

	updated, err := s.UpdateContent(ctx, m.ID, "Mom's name is Sarah")
	if err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	if updated == nil {
		t.Fatal("UpdateContent returned nil for an existing memory")
	}
	if updated.Content != "Mom's name is Sarah" || updated.Category != m.Category || updated.AuthorID != m.AuthorID || !updated.CreatedAt.Equal(m.CreatedAt) {
		t.Errorf("updated = %+v", updated)
	}
	if updated.UpdatedAt.Before(m.UpdatedAt) {
		t.Errorf("updated_at went backwards")
	}

	q := memory.ScopedQuery{CoupleID: "c1", UserID: "alex", Visibility: memory.VisibilityShared, Limit: 5}
	q.Text = "sarah"
	if res, _ := s.SearchScoped(ctx, q); len(res) != 1 {
		t.Errorf("search for new content returned %d results, want 1", len(res))
	}
	q.Text = "susan"
	if res, _ := s.SearchScoped(ctx, q); len(res) != 0 {
		t.Errorf("search for old content returned %d results, want 0", len(res))
	}

	missing, err := s.UpdateContent(ctx, "does-not-exist", "x")
	if err != nil || missing != nil {
		t.Errorf("UpdateContent(missing) = (%v, %v), want (nil, nil)", missing, err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := mustCreate(t, s, memory.Draft{CoupleID: "c1", Category: memory.CategoryFact, Content: "Sam is allergic to shellfish"})

	removed, err := s.Delete(ctx, m.ID)
	if err != nil || !removed {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", removed, err)
	}
	removed, err = s.Delete(ctx, m.ID)
	if err != nil || removed {
		t.Fatalf("second Delete = (%v, %v), want (false, nil)", removed, err)
	}

	res, err := s.SearchScoped(ctx, memory.ScopedQuery{CoupleID: "c1", Text: "shellfish", Visibility: memory.VisibilityShared, Limit: 5})
	if err != nil {
		t.Fatalf("SearchScoped: %v", err)
	}
	if len(res) != 0 {
		t.Errorf("deleted memory still searchable")
	}
}

func TestVisible(t *testing.T) {
	shared := memory.Memory{CoupleID: "c1", AuthorID: "sam", Visibility: memory.VisibilityShared}
	samPrivate := memory.Memory{CoupleID: "c1", AuthorID: "sam", Visibility: memory.VisibilityPrivate}

	tests := []struct {
		name string
		m    memory.Memory
		q    memory.ScopedQuery
		want bool
	}{
		{"shared in shared thread", shared, memory.ScopedQuery{CoupleID: "c1", UserID: "alex", Visibility: memory.VisibilityShared}, true},
		{"shared in private thread", shared, memory.ScopedQuery{CoupleID: "c1", UserID: "alex", Visibility: memory.VisibilityPrivate}, true},
		{"own private in private thread", samPrivate, memory.ScopedQuery{CoupleID: "c1", UserID: "sam", Visibility: memory.VisibilityPrivate}, true},
		{"own private in shared thread", samPrivate, memory.ScopedQuery{CoupleID: "c1", UserID: "sam", Visibility: memory.VisibilityShared}, false},
		{"partner private", samPrivate, memory.ScopedQuery{CoupleID: "c1", UserID: "alex", Visibility: memory.VisibilityPrivate}, false},
		{"other couple", shared, memory.ScopedQuery{CoupleID: "c2", UserID: "alex", Visibility: memory.VisibilityShared}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := store.Visible(tt.m, tt.q); got != tt.want {
				t.Errorf("Visible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromPartner(t *testing.T) {
	if store.FromPartner("", "alex") {
		t.Error("unknown author must not be attributed to the partner")
	}
	if store.FromPartner("alex", "alex") {
		t.Error("own memory attributed to the partner")
	}
	if !store.FromPartner("sam", "alex") {
		t.Error("partner memory not attributed")
	}
}
