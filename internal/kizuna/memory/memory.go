// Package memory implements Kizuna's long-term memory engine for couples:
// deciding when stored memories are worth fetching for an incoming message,
// retrieving and formatting them for the prompt, and detecting, resolving and
// applying corrections to previously stored facts.
//
// The package owns no persistence. Backends (SQLite, chromem, PostgreSQL)
// implement the collaborator interfaces declared here and own ranking,
// similarity and visibility filtering.
package memory

import (
	"context"
	"time"
)

// Category is the closed, three-way presentation grouping of a memory.
type Category string

const (
	CategoryFact         Category = "fact"
	CategoryRelationship Category = "relationship"
	CategoryContext      Category = "context"
)

// Valid reports whether c is one of the three known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFact, CategoryRelationship, CategoryContext:
		return true
	}
	return false
}

// Visibility is the scope of a conversation thread, and of a stored memory.
//
// A shared thread is seen by both partners. A private thread belongs to the
// requesting user alone.
type Visibility string

const (
	VisibilityShared  Visibility = "shared"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityShared || v == VisibilityPrivate
}

// Memory is a durable fact the assistant knows about a couple.
type Memory struct {
	ID         string     // opaque unique identifier
	CoupleID   string     // owning couple; never shared across couples
	AuthorID   string     // user whose conversation produced the memory ("" = unknown)
	Visibility Visibility // shared, or private to AuthorID
	Category   Category
	Content    string

	// FromPartner is set by scoped search when the memory was authored by
	// the requester's partner. Display attribution only.
	FromPartner bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SearchResult is a Memory annotated with the relevance the backend assigned.
// The order in which a backend returns results is authoritative.
type SearchResult struct {
	Memory
	Relevance float64
}

// Draft carries the fields needed to create a memory. Creation happens outside
// the engine (agent tooling, imports); backends accept drafts for that path.
type Draft struct {
	CoupleID   string
	AuthorID   string
	Visibility Visibility
	Category   Category
	Content    string
}

// SessionContext is the per-message identity resolved by the caller.
// The engine treats it as read-only.
type SessionContext struct {
	CoupleID    string
	UserID      string
	Visibility  Visibility
	UserName    string
	PartnerName string
}

// ScopedQuery is the input of a scoped memory search.
type ScopedQuery struct {
	CoupleID   string
	UserID     string
	Text       string
	Visibility Visibility
	Limit      int
}

// Searcher runs scoped, relevance-ranked searches. Results are ordered by
// descending relevance and never exceed q.Limit entries.
type Searcher interface {
	SearchScoped(ctx context.Context, q ScopedQuery) ([]SearchResult, error)
}

// SimilarityFinder returns the couple's memories whose similarity to subject
// is at least threshold, best match first.
type SimilarityFinder interface {
	FindSimilar(ctx context.Context, coupleID, subject string, threshold float64) ([]Memory, error)
}

// Mutator rewrites or removes a single memory.
type Mutator interface {
	// UpdateContent replaces the content of memoryID. It returns nil with no
	// error when the memory does not exist.
	UpdateContent(ctx context.Context, memoryID, content string) (*Memory, error)

	// Delete removes memoryID and reports whether a row was removed.
	Delete(ctx context.Context, memoryID string) (bool, error)
}

// Store is the full set of backend operations the engine consumes.
type Store interface {
	Searcher
	SimilarityFinder
	Mutator
}
