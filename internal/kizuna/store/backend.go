package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bdobrica/Kizuna/internal/kizuna/memory"
)

// Backend is a complete memory persistence layer: the four collaborator
// operations the engine consumes plus the creation and listing paths used by
// tooling and imports.
type Backend interface {
	memory.Store

	// Create validates d, assigns an ID and timestamps and persists it.
	Create(ctx context.Context, d memory.Draft) (*memory.Memory, error)

	// List returns every memory of coupleID, oldest first, regardless of
	// visibility.
	List(ctx context.Context, coupleID string) ([]memory.Memory, error)

	Close() error
}

// ErrInvalidDraft is returned (wrapped) by Create for drafts that cannot be
// stored.
var ErrInvalidDraft = errors.New("invalid memory draft")

// NewID returns a fresh memory identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidateDraft normalises d (trimmed content, shared visibility by default)
// and checks the fields every backend requires.
func ValidateDraft(d memory.Draft) (memory.Draft, error) {
	d.CoupleID = strings.TrimSpace(d.CoupleID)
	d.AuthorID = strings.TrimSpace(d.AuthorID)
	d.Content = strings.TrimSpace(d.Content)
	if d.Visibility == "" {
		d.Visibility = memory.VisibilityShared
	}

	switch {
	case d.CoupleID == "":
		return d, fmt.Errorf("%w: couple id is required", ErrInvalidDraft)
	case d.Content == "":
		return d, fmt.Errorf("%w: content is required", ErrInvalidDraft)
	case !d.Category.Valid():
		return d, fmt.Errorf("%w: unknown category %q", ErrInvalidDraft, d.Category)
	case !d.Visibility.Valid():
		return d, fmt.Errorf("%w: unknown visibility %q", ErrInvalidDraft, d.Visibility)
	case d.Visibility == memory.VisibilityPrivate && d.AuthorID == "":
		return d, fmt.Errorf("%w: private memories need an author", ErrInvalidDraft)
	}
	return d, nil
}

// Visible reports whether m may surface for q. Shared threads see shared
// memories only. Private threads additionally see the requester's own private
// memories; a partner's private memories never surface.
func Visible(m memory.Memory, q memory.ScopedQuery) bool {
	if m.CoupleID != q.CoupleID {
		return false
	}
	if m.Visibility == memory.VisibilityShared {
		return true
	}
	return q.Visibility == memory.VisibilityPrivate &&
		m.Visibility == memory.VisibilityPrivate &&
		q.UserID != "" && m.AuthorID == q.UserID
}

// FromPartner reports whether a memory authored by authorID should be
// attributed to the partner of userID.
func FromPartner(authorID, userID string) bool {
	return authorID != "" && authorID != userID
}
