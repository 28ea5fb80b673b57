package services

import (
	"context"
	"errors"
	"fmt"

	"inventar-backend/internal/metrics"
	"inventar-backend/internal/models"
	"inventar-backend/internal/store"

	log "github.com/sirupsen/logrus"
)

// refusal aborts the undo transaction with a classified result
type refusal struct {
	result models.UndoResult
}

func (r *refusal) Error() string { return string(r.result.Reason) }

func refuse(reason models.UndoFailure, message string) *refusal {
	return &refusal{result: models.UndoResult{Reason: reason, Message: message}}
}

// UndoService applies the inverse of a changelog entry and records the
// reversal as a new entry
type UndoService struct {
	store    store.Store
	handlers map[models.EntityType]EntityHandler
	feed     *ChangeFeed
}

func NewUndoService(st store.Store, feed *ChangeFeed, handlers ...EntityHandler) *UndoService {
	s := &UndoService{store: st, handlers: make(map[models.EntityType]EntityHandler), feed: feed}
	for _, h := range handlers {
		s.handlers[h.Type()] = h
	}
	return s
}

// Undo never returns an error: every outcome, including storage failures, is
// reported in the result. The conflict check and the write share one
// transaction locked on the entity.
func (s *UndoService) Undo(ctx context.Context, entryID int64, userID *int64) models.UndoResult {
	entry, err := s.store.Changelog().Get(ctx, entryID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.finish("", models.UndoResult{Reason: models.UndoNotFound, Message: "changelog entry not found"})
		}
		return s.failed(entryID, "", err)
	}

	handler, ok := s.handlers[entry.EntityType]
	if !ok {
		return s.finish(entry.EntityType, models.UndoResult{
			Reason:  models.UndoUnknownEntityType,
			Message: fmt.Sprintf("unknown entity type %q", entry.EntityType),
		})
	}
	if !entry.ChangeType.Valid() {
		return s.finish(entry.EntityType, models.UndoResult{
			Reason:  models.UndoUnknownChangeType,
			Message: fmt.Sprintf("unknown change type %q", entry.ChangeType),
		})
	}

	var result models.UndoResult
	var appended *models.ChangelogEntry
	err = s.store.InEntityTx(ctx, entry.EntityType, entry.EntityID, func(ctx context.Context, tx store.Tx) error {
		// retried transactions start over
		appended = nil

		conflict, err := findConflictIn(ctx, tx.Changelog(), entry)
		if err != nil {
			return err
		}
		if conflict != nil {
			r := refuse(models.UndoConflicting, "a later change touches the same data")
			r.result.ConflictID = &conflict.ID
			return r
		}

		var action models.UndoAction
		switch entry.ChangeType {
		case models.ChangeCreate:
			action, appended, err = s.undoCreate(ctx, tx, handler, entry, userID)
		case models.ChangeUpdate:
			action, appended, err = s.undoUpdate(ctx, tx, handler, entry, userID)
		case models.ChangeDelete:
			action, appended, err = s.undoDelete(ctx, tx, handler, entry, userID)
		}
		if err != nil {
			return err
		}
		if err := tx.Changelog().Append(ctx, appended); err != nil {
			return fmt.Errorf("append reversal entry: %w", err)
		}
		result = models.UndoResult{
			Success:    true,
			Action:     action,
			EntityID:   entry.EntityID,
			NewEntryID: appended.ID,
		}
		return nil
	})

	var r *refusal
	switch {
	case errors.As(err, &r):
		return s.finish(entry.EntityType, r.result)
	case err != nil:
		return s.failed(entryID, entry.EntityType, err)
	}

	s.feed.Committed(ctx, appended)
	log.WithFields(log.Fields{
		"component":   "undo",
		"entry_id":    entryID,
		"entity_type": entry.EntityType,
		"entity_id":   entry.EntityID,
		"action":      result.Action,
		"new_entry":   result.NewEntryID,
	}).Info("undo applied")
	return s.finish(entry.EntityType, result)
}

// undoCreate deletes the entity the entry created
func (s *UndoService) undoCreate(ctx context.Context, tx store.Tx, h EntityHandler, entry *models.ChangelogEntry, userID *int64) (models.UndoAction, *models.ChangelogEntry, error) {
	current, err := h.Load(ctx, tx, entry.EntityID)
	if err != nil {
		return "", nil, loadError(err)
	}
	if err := h.Delete(ctx, tx, entry.EntityID); err != nil {
		return "", nil, err
	}
	return models.UndoDeleted, &models.ChangelogEntry{
		EntityType:    entry.EntityType,
		EntityID:      entry.EntityID,
		ChangeType:    models.ChangeDelete,
		UserID:        userID,
		BeforeValues:  current,
		ChangedFields: recordedFields(current, h.Fields()),
	}, nil
}

// undoUpdate writes the entry's before values back for its changed fields only
func (s *UndoService) undoUpdate(ctx context.Context, tx store.Tx, h EntityHandler, entry *models.ChangelogEntry, userID *int64) (models.UndoAction, *models.ChangelogEntry, error) {
	if entry.BeforeValues == nil {
		return "", nil, refuse(models.UndoNoData, "the entry has no previous values")
	}
	current, err := h.Load(ctx, tx, entry.EntityID)
	if err != nil {
		return "", nil, loadError(err)
	}
	patch := entry.BeforeValues.Pick(entry.ChangedFields)
	after, err := h.Apply(ctx, tx, entry.EntityID, patch)
	if err != nil {
		return "", nil, err
	}
	return models.UndoRestored, &models.ChangelogEntry{
		EntityType:    entry.EntityType,
		EntityID:      entry.EntityID,
		ChangeType:    models.ChangeUpdate,
		UserID:        userID,
		BeforeValues:  current,
		AfterValues:   after,
		ChangedFields: append([]string(nil), entry.ChangedFields...),
	}, nil
}

// undoDelete re-inserts the deleted record under its original id
func (s *UndoService) undoDelete(ctx context.Context, tx store.Tx, h EntityHandler, entry *models.ChangelogEntry, userID *int64) (models.UndoAction, *models.ChangelogEntry, error) {
	if entry.BeforeValues == nil {
		return "", nil, refuse(models.UndoNoData, "the entry has no values to restore")
	}
	after, err := h.Restore(ctx, tx, entry.EntityID, entry.BeforeValues)
	if err != nil {
		return "", nil, err
	}
	return models.UndoRestored, &models.ChangelogEntry{
		EntityType:    entry.EntityType,
		EntityID:      entry.EntityID,
		ChangeType:    models.ChangeCreate,
		UserID:        userID,
		AfterValues:   after,
		ChangedFields: recordedFields(after, h.Fields()),
	}, nil
}

func loadError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return refuse(models.UndoEntityGone, "the entity no longer exists")
	}
	return err
}

func (s *UndoService) failed(entryID int64, entityType models.EntityType, err error) models.UndoResult {
	log.WithFields(log.Fields{
		"component":   "undo",
		"entry_id":    entryID,
		"entity_type": entityType,
	}).WithError(err).Error("undo failed")
	message := "the undo could not be applied"
	if errors.Is(err, ErrLocationInUse) || errors.Is(err, ErrLocationCycle) {
		message = err.Error()
	}
	return s.finish(entityType, models.UndoResult{Reason: models.UndoFailed, Message: message})
}

func (s *UndoService) finish(entityType models.EntityType, result models.UndoResult) models.UndoResult {
	label := string(result.Reason)
	if result.Success {
		label = string(result.Action)
	}
	if entityType == "" {
		entityType = "unknown"
	}
	metrics.UndoTotal.WithLabelValues(string(entityType), label).Inc()
	return result
}
