package models

import "time"

type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	Links       []string  `json:"links"`
	Images      []string  `json:"images"` // object keys of the cropped images
	LocationID  *int64    `json:"location_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemFields is the canonical field order used for changed-field lists
var ItemFields = []string{"id", "name", "description", "category", "tags", "links", "images", "location_id", "created_at", "updated_at"}

// Snapshot returns the item as an open field map
func (i *Item) Snapshot() Snapshot {
	return toSnapshot(i)
}

// ItemFromSnapshot decodes a snapshot back into an Item
func ItemFromSnapshot(s Snapshot) (*Item, error) {
	var item Item
	if err := fromSnapshot(s, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateItemRequest represents the request body for creating an item
type CreateItemRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Links       []string `json:"links"`
	Images      []string `json:"images"`
	LocationID  *int64   `json:"location_id"`
}

// UpdateItemRequest carries the full editable state of an item
type UpdateItemRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Links       []string `json:"links"`
	Images      []string `json:"images"`
	LocationID  *int64   `json:"location_id"`
}

// ItemFilter narrows item listings and searches
type ItemFilter struct {
	Query      string
	Tags       []string
	LocationID *int64
	Limit      int
	Offset     int
}
