// Package postgres is the production Backend: memories in a PostgreSQL
// table managed by gorm, full-text ranked scoped search and pg_trgm word
// similarity for correction targets.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bdobrica/Kizuna/common/redact"
	"github.com/bdobrica/Kizuna/common/retry"
	"github.com/bdobrica/Kizuna/internal/kizuna/memory"
	"github.com/bdobrica/Kizuna/internal/kizuna/store"
)

const tableName = "kizuna_memories"

// memoryRow is the gorm model of a stored memory.
type memoryRow struct {
	ID         string    `gorm:"primaryKey;type:text"`
	CoupleID   string    `gorm:"type:text;not null;index:idx_kizuna_memories_scope,priority:1"`
	Visibility string    `gorm:"type:text;not null;default:shared;index:idx_kizuna_memories_scope,priority:2"`
	AuthorID   string    `gorm:"type:text;not null;default:'';index:idx_kizuna_memories_scope,priority:3"`
	Category   string    `gorm:"type:text;not null"`
	Content    string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (memoryRow) TableName() string { return tableName }

func (r memoryRow) toMemory() memory.Memory {
	return memory.Memory{
		ID:         r.ID,
		CoupleID:   r.CoupleID,
		AuthorID:   r.AuthorID,
		Visibility: memory.Visibility(r.Visibility),
		Category:   memory.Category(r.Category),
		Content:    r.Content,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type scoredRow struct {
	memoryRow
	Relevance float64
}

// slogWriter routes gorm's printf-style logger into slog.
type slogWriter struct{ logger *slog.Logger }

func (w slogWriter) Printf(format string, args ...any) {
	w.logger.Debug("postgres: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Store is the PostgreSQL backend.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to dsn (retrying while the server comes up), ensures the
// pg_trgm extension, the table and its indexes exist, and returns the
// backend. A nil logger selects slog.Default().
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := &gorm.Config{
		Logger: gormlogger.New(slogWriter{logger}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	var db *gorm.DB
	connect := retry.DefaultConfig
	connect.Op = "postgres connect"
	connect.Logger = logger
	err := retry.Do(ctx, connect, func() error {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: connect %s: %w", redact.DSN(dsn), err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	logger.Info("postgres: connected", "dsn", redact.DSN(dsn))
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error; err != nil {
		return fmt.Errorf("postgres: enable pg_trgm: %w", err)
	}
	if err := db.AutoMigrate(&memoryRow{}); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_kizuna_memories_content_trgm ON " + tableName + " USING gin (content gin_trgm_ops)").Error; err != nil {
		return fmt.Errorf("postgres: trigram index: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_kizuna_memories_content_fts ON " + tableName + " USING gin (to_tsvector('simple', content))").Error; err != nil {
		return fmt.Errorf("postgres: full-text index: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("postgres: close: %w", err)
	}
	return sqlDB.Close()
}

// Create persists a new memory.
func (s *Store) Create(ctx context.Context, d memory.Draft) (*memory.Memory, error) {
	d, err := store.ValidateDraft(d)
	if err != nil {
		return nil, err
	}

	row := memoryRow{
		ID:         store.NewID(),
		CoupleID:   d.CoupleID,
		AuthorID:   d.AuthorID,
		Visibility: string(d.Visibility),
		Category:   string(d.Category),
		Content:    d.Content,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("postgres: create: %w", err)
	}

	s.logger.Debug("postgres: created memory", "memory_id", row.ID, "couple_id", row.CoupleID)
	m := row.toMemory()
	return &m, nil
}

// List returns all memories of coupleID, oldest first.
func (s *Store) List(ctx context.Context, coupleID string) ([]memory.Memory, error) {
	var rows []memoryRow
	err := s.db.WithContext(ctx).
		Where("couple_id = ?", coupleID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}

	out := make([]memory.Memory, len(rows))
	for i, r := range rows {
		out[i] = r.toMemory()
	}
	return out, nil
}

// scoped applies the couple and visibility filters of q.
func scoped(tx *gorm.DB, q memory.ScopedQuery) *gorm.DB {
	tx = tx.Where("couple_id = ?", q.CoupleID)
	if q.Visibility == memory.VisibilityPrivate && q.UserID != "" {
		return tx.Where("(visibility = ? OR (visibility = ? AND author_id = ?))",
			string(memory.VisibilityShared), string(memory.VisibilityPrivate), q.UserID)
	}
	return tx.Where("visibility = ?", string(memory.VisibilityShared))
}

// tsQuery joins keywords into a to_tsquery OR expression. Only letters and
// digits survive so user text cannot inject tsquery operators.
func tsQuery(keywords []string) string {
	terms := make([]string, 0, len(keywords))
	for _, k := range keywords {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, k)
		if clean != "" {
			terms = append(terms, clean)
		}
	}
	return strings.Join(terms, " | ")
}

// SearchScoped ranks the couple's visible memories with ts_rank over the
// keywords of q.Text. Messages without keywords fall back to recency.
func (s *Store) SearchScoped(ctx context.Context, q memory.ScopedQuery) ([]memory.SearchResult, error) {
	if q.Limit <= 0 {
		return nil, nil
	}

	tx := scoped(s.db.WithContext(ctx).Table(tableName), q)
	if match := tsQuery(memory.Keywords(q.Text)); match != "" {
		tx = tx.Select("*, ts_rank(to_tsvector('simple', content), to_tsquery('simple', ?)) AS relevance", match).
			Where("to_tsvector('simple', content) @@ to_tsquery('simple', ?)", match).
			Order("relevance DESC, updated_at DESC")
	} else {
		tx = tx.Select("*, 0::float8 AS relevance").Order("updated_at DESC")
	}

	var rows []scoredRow
	if err := tx.Limit(q.Limit).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("postgres: scoped search: %w", err)
	}

	out := make([]memory.SearchResult, len(rows))
	for i, r := range rows {
		m := r.toMemory()
		m.FromPartner = store.FromPartner(m.AuthorID, q.UserID)
		out[i] = memory.SearchResult{Memory: m, Relevance: r.Relevance}
	}
	return out, nil
}

// FindSimilar returns the couple's memories whose trigram word similarity
// to subject is at least threshold, best first.
func (s *Store) FindSimilar(ctx context.Context, coupleID, subject string, threshold float64) ([]memory.Memory, error) {
	var rows []memoryRow
	err := s.db.WithContext(ctx).
		Where("couple_id = ? AND word_similarity(?, content) >= ?", coupleID, subject, threshold).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "word_similarity(?, content) DESC, updated_at DESC",
			Vars:               []any{subject},
			WithoutParentheses: true,
		}}).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: find similar: %w", err)
	}

	out := make([]memory.Memory, len(rows))
	for i, r := range rows {
		out[i] = r.toMemory()
	}
	return out, nil
}

// UpdateContent rewrites content and updated_at of memoryID in a single
// UPDATE ... RETURNING. It returns nil when no such memory exists.
func (s *Store) UpdateContent(ctx context.Context, memoryID, content string) (*memory.Memory, error) {
	var row memoryRow
	res := s.db.WithContext(ctx).
		Model(&row).
		Clauses(clause.Returning{}).
		Where("id = ?", memoryID).
		Updates(map[string]any{"content": content, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	s.logger.Debug("postgres: updated memory", "memory_id", memoryID)
	m := row.toMemory()
	return &m, nil
}

// Delete removes memoryID and reports whether a row was removed.
func (s *Store) Delete(ctx context.Context, memoryID string) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ?", memoryID).Delete(&memoryRow{})
	if res.Error != nil {
		return false, fmt.Errorf("postgres: delete: %w", res.Error)
	}

	s.logger.Debug("postgres: deleted memory", "memory_id", memoryID, "removed", res.RowsAffected > 0)
	return res.RowsAffected > 0, nil
}

var _ store.Backend = (*Store)(nil)
