package models

// EntityType identifies which entity store a changelog entry refers to
type EntityType string

const (
	EntityItem     EntityType = "item"
	EntityLocation EntityType = "location"
)

// Valid reports whether t is one of the known entity types
func (t EntityType) Valid() bool {
	return t == EntityItem || t == EntityLocation
}

// ChangeType is the kind of mutation a changelog entry records
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

func (c ChangeType) Valid() bool {
	return c == ChangeCreate || c == ChangeUpdate || c == ChangeDelete
}
