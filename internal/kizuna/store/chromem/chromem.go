// Package chromem is an in-process vector Backend built on chromem-go. Each
// couple gets its own collection; rows live only for the lifetime of the
// process.
package chromem

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/bdobrica/Kizuna/internal/kizuna/memory"
	"github.com/bdobrica/Kizuna/internal/kizuna/store"
)

// Store keeps memory rows in a map and their embeddings in per-couple
// chromem collections.
type Store struct {
	db       *chromem.DB
	embedder memory.Embedder
	logger   *slog.Logger

	mu          sync.RWMutex
	collections map[string]*chromem.Collection
	records     map[string]memory.Memory
	seq         map[string]uint64
	next        uint64
}

// New creates an empty Store. A nil embedder selects the offline
// HashEmbedder; a nil logger selects slog.Default().
func New(embedder memory.Embedder, logger *slog.Logger) *Store {
	if embedder == nil {
		embedder = memory.NewHashEmbedder(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:          chromem.NewDB(),
		embedder:    embedder,
		logger:      logger,
		collections: make(map[string]*chromem.Collection),
		records:     make(map[string]memory.Memory),
		seq:         make(map[string]uint64),
	}
}

// collection returns the couple's collection, creating it when create is
// set. Callers hold s.mu for writing when create is true.
func (s *Store) collection(coupleID string, create bool) (*chromem.Collection, error) {
	if col, ok := s.collections[coupleID]; ok || !create {
		return col, nil
	}
	// Embeddings are always supplied, so no embedding func is needed.
	col, err := s.db.CreateCollection("couple_"+coupleID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[coupleID] = col
	return col, nil
}

func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("embedder returned no vector")
	}
	return vec, nil
}

func document(m memory.Memory, embedding []float32) chromem.Document {
	return chromem.Document{
		ID:        m.ID,
		Content:   m.Content,
		Embedding: embedding,
		Metadata: map[string]string{
			"couple_id":  m.CoupleID,
			"author_id":  m.AuthorID,
			"visibility": string(m.Visibility),
			"category":   string(m.Category),
		},
	}
}

// Create persists a new memory.
func (s *Store) Create(ctx context.Context, d memory.Draft) (*memory.Memory, error) {
	d, err := store.ValidateDraft(d)
	if err != nil {
		return nil, err
	}
	vec, err := s.embed(ctx, d.Content)
	if err != nil {
		return nil, fmt.Errorf("chromem: create: embed: %w", err)
	}

	now := time.Now().UTC()
	m := memory.Memory{
		ID:         store.NewID(),
		CoupleID:   d.CoupleID,
		AuthorID:   d.AuthorID,
		Visibility: d.Visibility,
		Category:   d.Category,
		Content:    d.Content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(m.CoupleID, true)
	if err != nil {
		return nil, fmt.Errorf("chromem: create: %w", err)
	}
	if err := col.AddDocument(ctx, document(m, vec)); err != nil {
		return nil, fmt.Errorf("chromem: create: add document: %w", err)
	}
	s.records[m.ID] = m
	s.next++
	s.seq[m.ID] = s.next

	s.logger.Debug("chromem: created memory", "memory_id", m.ID, "couple_id", m.CoupleID)
	return &m, nil
}

// List returns all memories of coupleID, oldest first.
func (s *Store) List(_ context.Context, coupleID string) ([]memory.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []memory.Memory
	for _, m := range s.records {
		if m.CoupleID == coupleID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out, nil
}

// query runs a cosine query over the couple's collection. where narrows the
// candidate documents by metadata; nil considers all of them.
func (s *Store) query(ctx context.Context, coupleID string, vec []float32, n int, where map[string]string) ([]chromem.Result, error) {
	col, _ := s.collection(coupleID, false)
	if col == nil {
		return nil, nil
	}
	// chromem rejects nResults larger than the collection.
	n = min(n, col.Count())
	if n <= 0 {
		return nil, nil
	}
	return col.QueryEmbedding(ctx, vec, n, where, nil)
}

// SearchScoped ranks the couple's visible memories by cosine similarity to
// q.Text. Shared threads filter on metadata inside chromem; private threads
// fetch the whole collection and filter with store.Visible.
func (s *Store) SearchScoped(ctx context.Context, q memory.ScopedQuery) ([]memory.SearchResult, error) {
	if q.Limit <= 0 {
		return nil, nil
	}
	vec, err := s.embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("chromem: scoped search: embed: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where map[string]string
		n     = q.Limit
	)
	if q.Visibility == memory.VisibilityPrivate {
		n = len(s.records)
	} else {
		where = map[string]string{"visibility": string(memory.VisibilityShared)}
	}

	results, err := s.query(ctx, q.CoupleID, vec, n, where)
	if err != nil {
		return nil, fmt.Errorf("chromem: scoped search: %w", err)
	}

	out := make([]memory.SearchResult, 0, min(len(results), q.Limit))
	for _, r := range results {
		m, ok := s.records[r.ID]
		if !ok {
			s.logger.Warn("chromem: skip orphan document", "memory_id", r.ID)
			continue
		}
		if !store.Visible(m, q) {
			continue
		}
		m.FromPartner = store.FromPartner(m.AuthorID, q.UserID)
		out = append(out, memory.SearchResult{Memory: m, Relevance: float64(r.Similarity)})
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// FindSimilar returns the couple's memories with similarity >= threshold,
// most similar first.
func (s *Store) FindSimilar(ctx context.Context, coupleID, subject string, threshold float64) ([]memory.Memory, error) {
	vec, err := s.embed(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("chromem: find similar: embed: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results, err := s.query(ctx, coupleID, vec, len(s.records), nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: find similar: %w", err)
	}

	var out []memory.Memory
	for _, r := range results {
		if float64(r.Similarity) < threshold {
			break
		}
		if m, ok := s.records[r.ID]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// UpdateContent replaces content, embedding and updated_at of memoryID.
func (s *Store) UpdateContent(ctx context.Context, memoryID, content string) (*memory.Memory, error) {
	vec, err := s.embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("chromem: update: embed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.records[memoryID]
	if !ok {
		return nil, nil
	}
	m.Content = content
	m.UpdatedAt = time.Now().UTC()

	col, err := s.collection(m.CoupleID, true)
	if err != nil {
		return nil, fmt.Errorf("chromem: update: %w", err)
	}
	// AddDocument replaces the document with the same ID.
	if err := col.AddDocument(ctx, document(m, vec)); err != nil {
		return nil, fmt.Errorf("chromem: update: add document: %w", err)
	}
	s.records[memoryID] = m

	s.logger.Debug("chromem: updated memory", "memory_id", memoryID, "couple_id", m.CoupleID)
	return &m, nil
}

// Delete removes memoryID and reports whether it existed.
func (s *Store) Delete(ctx context.Context, memoryID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.records[memoryID]
	if !ok {
		return false, nil
	}
	if col, _ := s.collection(m.CoupleID, false); col != nil {
		if err := col.Delete(ctx, nil, nil, memoryID); err != nil {
			return false, fmt.Errorf("chromem: delete: %w", err)
		}
	}
	delete(s.records, memoryID)
	delete(s.seq, memoryID)

	s.logger.Debug("chromem: deleted memory", "memory_id", memoryID)
	return true, nil
}

// Close is a no-op; everything lives in memory.
func (s *Store) Close() error { return nil }

var _ store.Backend = (*Store)(nil)
