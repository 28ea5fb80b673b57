package models

// UndoAction tells the caller what an undo did to the entity
type UndoAction string

const (
	UndoDeleted  UndoAction = "deleted"
	UndoRestored UndoAction = "restored"
)

// UndoFailure classifies why an undo was refused or failed
type UndoFailure string

const (
	UndoNotFound          UndoFailure = "not_found"
	UndoEntityGone        UndoFailure = "entity_gone"
	UndoNoData            UndoFailure = "no_data"
	UndoConflicting       UndoFailure = "conflicting"
	UndoUnknownChangeType UndoFailure = "unknown_change_type"
	UndoUnknownEntityType UndoFailure = "unknown_entity_type"
	UndoFailed            UndoFailure = "failed"
)

// UndoResult is returned by the undo engine instead of an error
type UndoResult struct {
	Success    bool        `json:"success"`
	Action     UndoAction  `json:"action,omitempty"`
	EntityID   int64       `json:"entity_id,omitempty"`
	NewEntryID int64       `json:"new_entry_id,omitempty"`
	Reason     UndoFailure `json:"reason,omitempty"`
	ConflictID *int64      `json:"conflict_id,omitempty"`
	Message    string      `json:"message,omitempty"`
}
