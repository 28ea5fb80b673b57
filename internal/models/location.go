package models

import "time"

type Location struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ParentID    *int64    `json:"parent_id"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var LocationFields = []string{"id", "name", "description", "parent_id", "images", "created_at", "updated_at"}

func (l *Location) Snapshot() Snapshot {
	return toSnapshot(l)
}

func LocationFromSnapshot(s Snapshot) (*Location, error) {
	var loc Location
	if err := fromSnapshot(s, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

type CreateLocationRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ParentID    *int64   `json:"parent_id"`
	Images      []string `json:"images"`
}

type UpdateLocationRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ParentID    *int64   `json:"parent_id"`
	Images      []string `json:"images"`
}

// LocationNode is one node of the location tree
type LocationNode struct {
	Location
	ItemCount int             `json:"item_count"`
	Children  []*LocationNode `json:"children"`
}
