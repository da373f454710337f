package memory

import (
	"context"
	"log/slog"
)

// CorrectionAction names the mutation ApplyCorrection performed.
type CorrectionAction string

const (
	ActionUpdated CorrectionAction = "updated"
	ActionDeleted CorrectionAction = "deleted"
)

// CorrectionResult reports the outcome of ApplyCorrection. Success is false
// when the target memory no longer exists.
type CorrectionResult struct {
	Success bool             `json:"success"`
	Action  CorrectionAction `json:"action"`
}

// Applicator executes a correction that the agent loop has already decided on.
type Applicator struct {
	store  Mutator
	logger *slog.Logger
}

// NewApplicator creates an Applicator backed by store. If logger is nil, the
// default slog logger is used.
func NewApplicator(store Mutator, logger *slog.Logger) *Applicator {
	return &Applicator{store: store, logger: logger}
}

// ApplyCorrection deletes memoryID when newContent is nil and otherwise
// replaces its content. Exactly one store mutation is issued. Concurrent
// writers are not detected: the last write wins.
func (a *Applicator) ApplyCorrection(ctx context.Context, memoryID string, newContent *string) (CorrectionResult, error) {
	log := loggerFor(ctx, a.logger)

	if newContent == nil {
		removed, err := a.store.Delete(ctx, memoryID)
		if err != nil {
			return CorrectionResult{}, err
		}
		log.Debug("memory: correction applied", "memory_id", memoryID, "action", ActionDeleted, "success", removed)
		return CorrectionResult{Success: removed, Action: ActionDeleted}, nil
	}

	updated, err := a.store.UpdateContent(ctx, memoryID, *newContent)
	if err != nil {
		return CorrectionResult{}, err
	}
	log.Debug("memory: correction applied", "memory_id", memoryID, "action", ActionUpdated, "success", updated != nil)
	return CorrectionResult{Success: updated != nil, Action: ActionUpdated}, nil
}
