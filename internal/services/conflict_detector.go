package services

import (
	"context"

	"inventar-backend/internal/models"
	"inventar-backend/internal/store"
)

// ConflictDetector decides whether undoing a changelog entry is still safe
type ConflictDetector struct {
	store store.Store
}

func NewConflictDetector(st store.Store) *ConflictDetector {
	return &ConflictDetector{store: st}
}

// FindConflict returns the most recent later entry on the same entity that
// overlaps with entryID, or nil. store.ErrNotFound if the entry does not exist.
func (d *ConflictDetector) FindConflict(ctx context.Context, entryID int64) (*models.ChangelogEntry, error) {
	entry, err := d.store.Changelog().Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	return findConflictIn(ctx, d.store.Changelog(), entry)
}

// findConflictIn scans later entries newest first and returns the first one
// that conflicts with entry
func findConflictIn(ctx context.Context, repo store.ChangelogRepository, entry *models.ChangelogEntry) (*models.ChangelogEntry, error) {
	later, err := repo.ListAfter(ctx, entry.EntityType, entry.EntityID, entry.ChangedAt, entry.ID)
	if err != nil {
		return nil, err
	}
	for _, candidate := range later {
		if candidate.ID == entry.ID || !candidate.IsAfter(entry) {
			continue
		}
		if conflicts(entry, candidate) {
			return candidate, nil
		}
	}
	return nil, nil
}

// conflicts: a delete on either side always conflicts, otherwise the changed
// field sets must overlap
func conflicts(original, later *models.ChangelogEntry) bool {
	if original.ChangeType == models.ChangeDelete || later.ChangeType == models.ChangeDelete {
		return true
	}
	return models.Intersects(original.ChangedFields, later.ChangedFields)
}
