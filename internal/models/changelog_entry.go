package models

import (
	"errors"
	"fmt"
	"time"
)

// DerivedFields are recomputed by the store and never written back on restore
var DerivedFields = []string{"created_at", "updated_at", "search_vector"}

// ChangelogEntry is one immutable audit record of a create, update or delete
type ChangelogEntry struct {
	ID            int64      `json:"id"`
	EntityType    EntityType `json:"entity_type"`
	EntityID      int64      `json:"entity_id"` // not a foreign key, the entity may be gone
	ChangeType    ChangeType `json:"change_type"`
	UserID        *int64     `json:"user_id"`
	ChangedAt     time.Time  `json:"changed_at"`
	BeforeValues  Snapshot   `json:"before_values"`
	AfterValues   Snapshot   `json:"after_values"`
	ChangedFields []string   `json:"changed_fields"`
}

// Validate checks the before/after invariant for the entry's change type
func (e *ChangelogEntry) Validate() error {
	if !e.EntityType.Valid() {
		return fmt.Errorf("unknown entity type %q", e.EntityType)
	}
	switch e.ChangeType {
	case ChangeCreate:
		if e.BeforeValues != nil || e.AfterValues == nil {
			return errors.New("create entry needs after values only")
		}
	case ChangeUpdate:
		if e.BeforeValues == nil || e.AfterValues == nil {
			return errors.New("update entry needs before and after values")
		}
	case ChangeDelete:
		if e.BeforeValues == nil || e.AfterValues != nil {
			return errors.New("delete entry needs before values only")
		}
	default:
		return fmt.Errorf("unknown change type %q", e.ChangeType)
	}
	return nil
}

// IsAfter reports whether e happened after other on the same entity.
// Equal timestamps are ordered by id.
func (e *ChangelogEntry) IsAfter(other *ChangelogEntry) bool {
	if e.ChangedAt.Equal(other.ChangedAt) {
		return e.ID > other.ID
	}
	return e.ChangedAt.After(other.ChangedAt)
}

// ChangelogView is a changelog entry enriched for display
type ChangelogView struct {
	*ChangelogEntry
	UserName     *string `json:"user_name"`
	EntityName   string  `json:"entity_name"`
	EntityExists bool    `json:"entity_exists"`
}

// ChangelogPage is one page of the changelog, newest first
type ChangelogPage struct {
	Items      []*ChangelogView `json:"items"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}
