package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bdobrica/Kizuna/internal/kizuna/memory"
)

const (
	memoryColumns    = `m.id, m.couple_id, m.author_id, m.visibility, m.category, m.content, m.created_at, m.updated_at`
	returningColumns = `id, couple_id, author_id, visibility, category, content, created_at, updated_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner, extra ...any) (memory.Memory, error) {
	var (
		m                    memory.Memory
		visibility, category string
		createdAt, updatedAt string
	)
	dest := append([]any{&m.ID, &m.CoupleID, &m.AuthorID, &visibility, &category, &m.Content, &createdAt, &updatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return memory.Memory{}, err
	}
	m.Visibility = memory.Visibility(visibility)
	m.Category = memory.Category(category)

	var err error
	if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return memory.Memory{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if m.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return memory.Memory{}, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
	}
	return m, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// embedJSON embeds text and encodes the vector as a JSON array. A nil vector
// is stored as NULL and never matches a similarity search.
func (s *Store) embedJSON(ctx context.Context, text string) (any, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if vec == nil {
		return nil, nil
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Create persists a new memory.
func (s *Store) Create(ctx context.Context, d memory.Draft) (*memory.Memory, error) {
	d, err := ValidateDraft(d)
	if err != nil {
		return nil, err
	}

	embedding, err := s.embedJSON(ctx, d.Content)
	if err != nil {
		return nil, fmt.Errorf("store: create: embed: %w", err)
	}

	now := time.Now().UTC()
	m := memory.Memory{
		ID:         NewID(),
		CoupleID:   d.CoupleID,
		AuthorID:   d.AuthorID,
		Visibility: d.Visibility,
		Category:   d.Category,
		Content:    d.Content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memories (id, couple_id, author_id, visibility, category, content, embedding, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.CoupleID, m.AuthorID, string(m.Visibility), string(m.Category), m.Content,
		embedding, formatTime(m.CreatedAt), formatTime(m.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("store: create: %w", err)
	}

	s.logger.Debug("store: created memory",
		"memory_id", m.ID,
		"couple_id", m.CoupleID,
		"category", m.Category,
		"visibility", m.Visibility,
	)
	return &m, nil
}

// List returns all memories of coupleID, oldest first.
func (s *Store) List(ctx context.Context, coupleID string) ([]memory.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+memoryColumns+`
		FROM memories m
		WHERE m.couple_id = ?
		ORDER BY m.created_at ASC, m.rowid ASC`,
		coupleID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []memory.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			s.logger.Warn("store: skip malformed row", "err", err)
			continue
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: iterate rows: %w", err)
	}
	return out, nil
}

// visibilityClause returns the SQL filter implementing Visible for q.
func visibilityClause(q memory.ScopedQuery) (string, []any) {
	if q.Visibility == memory.VisibilityPrivate && q.UserID != "" {
		return "(m.visibility = 'shared' OR (m.visibility = 'private' AND m.author_id = ?))", []any{q.UserID}
	}
	return "m.visibility = 'shared'", nil
}

// ftsQuery turns message keywords into an FTS5 OR query of quoted terms.
func ftsQuery(keywords []string) string {
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ReplaceAll(k, `"`, "")
		if k != "" {
			quoted = append(quoted, `"`+k+`"`)
		}
	}
	return strings.Join(quoted, " OR ")
}

// SearchScoped ranks the couple's visible memories against the keywords of
// q.Text with bm25. Relevance is the negated bm25 score, so higher is better.
// A message without keywords falls back to the most recently updated
// memories with zero relevance.
func (s *Store) SearchScoped(ctx context.Context, q memory.ScopedQuery) ([]memory.SearchResult, error) {
	if q.Limit <= 0 {
		return nil, nil
	}

	vis, visArgs := visibilityClause(q)
	match := ftsQuery(memory.Keywords(q.Text))

	var (
		query string
		args  []any
	)
	if match == "" {
		query = `
			SELECT ` + memoryColumns + `, 0.0 AS relevance
			FROM memories m
			WHERE m.couple_id = ? AND ` + vis + `
			ORDER BY m.updated_at DESC
			LIMIT ?`
		args = append(append([]any{q.CoupleID}, visArgs...), q.Limit)
	} else {
		query = `
			SELECT ` + memoryColumns + `, -bm25(memories_fts) AS relevance
			FROM memories_fts
			JOIN memories m ON memories_fts.rowid = m.rowid
			WHERE memories_fts MATCH ? AND m.couple_id = ? AND ` + vis + `
			ORDER BY relevance DESC, m.updated_at DESC
			LIMIT ?`
		args = append(append([]any{match, q.CoupleID}, visArgs...), q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: scoped search: %w", err)
	}
	defer rows.Close()

	var results []memory.SearchResult
	for rows.Next() {
		var relevance float64
		m, err := scanMemory(rows, &relevance)
		if err != nil {
			s.logger.Warn("store: skip malformed row", "err", err)
			continue
		}
		m.FromPartner = FromPartner(m.AuthorID, q.UserID)
		results = append(results, memory.SearchResult{Memory: m, Relevance: relevance})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: scoped search: iterate rows: %w", err)
	}
	return results, nil
}

// FindSimilar embeds subject and returns the couple's memories with cosine
// similarity >= threshold, most similar first. All visibilities are
// considered: correction targets are resolved per couple.
func (s *Store) FindSimilar(ctx context.Context, coupleID, subject string, threshold float64) ([]memory.Memory, error) {
	query, err := s.embedder.Embed(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("store: find similar: embed: %w", err)
	}
	if len(query) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+memoryColumns+`, m.embedding
		FROM memories m
		WHERE m.couple_id = ? AND m.embedding IS NOT NULL
		ORDER BY m.updated_at DESC`,
		coupleID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: find similar: %w", err)
	}
	defer rows.Close()

	type scored struct {
		m     memory.Memory
		score float64
	}
	var candidates []scored
	for rows.Next() {
		var raw string
		m, err := scanMemory(rows, &raw)
		if err != nil {
			s.logger.Warn("store: skip malformed row", "err", err)
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(raw), &vec); err != nil {
			s.logger.Warn("store: skip malformed embedding", "memory_id", m.ID, "err", err)
			continue
		}
		if score := memory.CosineSimilarity(query, vec); score >= threshold {
			candidates = append(candidates, scored{m: m, score: score})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: find similar: iterate rows: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	out := make([]memory.Memory, len(candidates))
	for i, c := range candidates {
		out[i] = c.m
	}
	return out, nil
}

// UpdateContent rewrites the content of memoryID together with its
// embedding and updated_at; the FTS row follows via trigger. It returns nil
// when no such memory exists.
func (s *Store) UpdateContent(ctx context.Context, memoryID, content string) (*memory.Memory, error) {
	embedding, err := s.embedJSON(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("store: update: embed: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE memories
		SET content = ?, embedding = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+returningColumns,
		content, embedding, formatTime(time.Now()), memoryID,
	)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: update: %w", err)
	}

	s.logger.Debug("store: updated memory", "memory_id", m.ID, "couple_id", m.CoupleID)
	return &m, nil
}

// Delete removes memoryID and reports whether a row existed.
func (s *Store) Delete(ctx context.Context, memoryID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM memories WHERE id = ?", memoryID)
	if err != nil {
		return false, fmt.Errorf("store: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: delete: rows affected: %w", err)
	}

	s.logger.Debug("store: deleted memory", "memory_id", memoryID, "removed", n > 0)
	return n > 0, nil
}

var _ Backend = (*Store)(nil)
