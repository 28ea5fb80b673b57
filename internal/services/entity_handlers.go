package services

import (
	"context"
	"fmt"

	"inventar-backend/internal/models"
	"inventar-backend/internal/store"
)

// EntityHandler gives the undo engine uniform access to one entity store.
// All methods run on the transaction they are given.
type EntityHandler interface {
	Type() models.EntityType
	// Fields is the canonical field order for changed-field lists
	Fields() []string
	// DerivedFields are dropped from snapshots before writing them back
	DerivedFields() []string
	// Load returns the current state or store.ErrNotFound
	Load(ctx context.Context, tx store.Tx, id int64) (models.Snapshot, error)
	// Apply overlays patch onto the current entity and returns the new state
	Apply(ctx context.Context, tx store.Tx, id int64, patch models.Snapshot) (models.Snapshot, error)
	Delete(ctx context.Context, tx store.Tx, id int64) error
	// Restore inserts record under id and returns the stored state
	Restore(ctx context.Context, tx store.Tx, id int64, record models.Snapshot) (models.Snapshot, error)
	// Names resolves current display names; missing ids are absent
	Names(ctx context.Context, tx store.Tx, ids []int64) (map[int64]string, error)
}

// DefaultEntityHandlers returns one handler per entity type
func DefaultEntityHandlers() []EntityHandler {
	return []EntityHandler{ItemHandler{}, LocationHandler{}}
}

// overlay returns current with patch applied. Derived fields and the id never
// come from the patch.
func overlay(current, patch models.Snapshot, derived []string) models.Snapshot {
	out := current.Clone()
	clean := patch.Without(derived...)
	delete(clean, "id")
	for k, v := range clean {
		out[k] = v
	}
	return out
}

type ItemHandler struct{}

func (ItemHandler) Type() models.EntityType { return models.EntityItem }
func (ItemHandler) Fields() []string        { return models.ItemFields }
func (ItemHandler) DerivedFields() []string { return models.DerivedFields }

func (ItemHandler) Load(ctx context.Context, tx store.Tx, id int64) (models.Snapshot, error) {
	item, err := tx.Items().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return item.Snapshot(), nil
}

func (h ItemHandler) Apply(ctx context.Context, tx store.Tx, id int64, patch models.Snapshot) (models.Snapshot, error) {
	current, err := h.Load(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	item, err := models.ItemFromSnapshot(overlay(current, patch, h.DerivedFields()))
	if err != nil {
		return nil, fmt.Errorf("decode item %d: %w", id, err)
	}
	item.ID = id
	if item.LocationID != nil {
		if _, err := tx.Locations().Get(ctx, *item.LocationID); err != nil {
			return nil, fmt.Errorf("location %d of item %d: %w", *item.LocationID, id, err)
		}
	}
	if err := tx.Items().Update(ctx, item); err != nil {
		return nil, err
	}
	return item.Snapshot(), nil
}

func (ItemHandler) Delete(ctx context.Context, tx store.Tx, id int64) error {
	return tx.Items().Delete(ctx, id)
}

func (h ItemHandler) Restore(ctx context.Context, tx store.Tx, id int64, record models.Snapshot) (models.Snapshot, error) {
	item, err := models.ItemFromSnapshot(record.Without(h.DerivedFields()...))
	if err != nil {
		return nil, fmt.Errorf("decode item %d: %w", id, err)
	}
	item.ID = id
	if err := tx.Items().InsertWithID(ctx, item); err != nil {
		return nil, err
	}
	return item.Snapshot(), nil
}

func (ItemHandler) Names(ctx context.Context, tx store.Tx, ids []int64) (map[int64]string, error) {
	return tx.Items().Names(ctx, ids)
}

type LocationHandler struct{}

func (LocationHandler) Type() models.EntityType { return models.EntityLocation }
func (LocationHandler) Fields() []string        { return models.LocationFields }
func (LocationHandler) DerivedFields() []string { return models.DerivedFields }

func (LocationHandler) Load(ctx context.Context, tx store.Tx, id int64) (models.Snapshot, error) {
	loc, err := tx.Locations().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return loc.Snapshot(), nil
}

func (h LocationHandler) Apply(ctx context.Context, tx store.Tx, id int64, patch models.Snapshot) (models.Snapshot, error) {
	current, err := h.Load(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	loc, err := models.LocationFromSnapshot(overlay(current, patch, h.DerivedFields()))
	if err != nil {
		return nil, fmt.Errorf("decode location %d: %w", id, err)
	}
	loc.ID = id
	// restoring an old parent can close a loop created by later moves elsewhere
	if err := checkParent(ctx, tx.Locations(), id, loc.ParentID); err != nil {
		return nil, err
	}
	if err := tx.Locations().Update(ctx, loc); err != nil {
		return nil, err
	}
	return loc.Snapshot(), nil
}

func (LocationHandler) Delete(ctx context.Context, tx store.Tx, id int64) error {
	used, err := tx.Locations().HasDependents(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return ErrLocationInUse
	}
	return tx.Locations().Delete(ctx, id)
}

func (h LocationHandler) Restore(ctx context.Context, tx store.Tx, id int64, record models.Snapshot) (models.Snapshot, error) {
	loc, err := models.LocationFromSnapshot(record.Without(h.DerivedFields()...))
	if err != nil {
		return nil, fmt.Errorf("decode location %d: %w", id, err)
	}
	loc.ID = id
	if err := tx.Locations().InsertWithID(ctx, loc); err != nil {
		return nil, err
	}
	return loc.Snapshot(), nil
}

func (LocationHandler) Names(ctx context.Context, tx store.Tx, ids []int64) (map[int64]string, error) {
	return tx.Locations().Names(ctx, ids)
}

// checkParent verifies parentID exists and is not id or one of its descendants
func checkParent(ctx context.Context, repo store.LocationRepository, id int64, parentID *int64) error {
	seen := make(map[int64]bool)
	for next := parentID; next != nil; {
		if *next == id {
			return ErrLocationCycle
		}
		if seen[*next] {
			// pre-existing loop above us; refuse rather than spin
			return ErrLocationCycle
		}
		seen[*next] = true
		parent, err := repo.Get(ctx, *next)
		if err != nil {
			return fmt.Errorf("parent location %d: %w", *next, err)
		}
		next = parent.ParentID
	}
	return nil
}
