package services

import (
	"context"

	"inventar-backend/internal/cache"
	"inventar-backend/internal/metrics"
	"inventar-backend/internal/models"
)

// ChangeNotifier is told about every committed changelog entry
type ChangeNotifier interface {
	ChangelogAppended(entry *models.ChangelogEntry)
}

// ChangeFeed runs the after-commit side effects of a mutation: metrics, cache
// invalidation and live notifications. A nil feed does nothing.
type ChangeFeed struct {
	cache     cache.Cache
	notifiers []ChangeNotifier
}

func NewChangeFeed(c cache.Cache, notifiers ...ChangeNotifier) *ChangeFeed {
	return &ChangeFeed{cache: c, notifiers: notifiers}
}

// Committed must only be called after the transaction that appended entries committed
func (f *ChangeFeed) Committed(ctx context.Context, entries ...*models.ChangelogEntry) {
	if f == nil || len(entries) == 0 {
		return
	}
	if f.cache != nil {
		cache.InvalidateInventory(ctx, f.cache)
	}
	for _, e := range entries {
		metrics.ChangelogAppended.WithLabelValues(string(e.EntityType), string(e.ChangeType)).Inc()
		for _, n := range f.notifiers {
			n.ChangelogAppended(e)
		}
	}
}

// recordedFields lists the fields a create or delete entry touches: every
// field holding a value, minus the id and store-maintained columns
func recordedFields(s models.Snapshot, order []string) []string {
	skip := map[string]bool{"id": true}
	for _, f := range models.DerivedFields {
		skip[f] = true
	}
	var fields []string
	for _, f := range s.NonNullFields(order) {
		if !skip[f] {
			fields = append(fields, f)
		}
	}
	return fields
}

// changedFields diffs two snapshots ignoring the id and derived columns
func changedFields(before, after models.Snapshot, order []string) []string {
	return models.DiffFields(before, after, order, append([]string{"id"}, models.DerivedFields...)...)
}
