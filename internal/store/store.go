// Package store defines the persistence contracts shared by the PostgreSQL and
// SQLite backends.
package store

import (
	"context"
	"errors"
	"time"

	"inventar-backend/internal/models"
)

var (
	// ErrNotFound is returned when a row with the requested id does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert collides with an existing primary key or unique column
	ErrDuplicate = errors.New("duplicate")
	// ErrInUse is returned when a delete is blocked by rows referencing the target
	ErrInUse = errors.New("still referenced")
)

// ChangelogRepository is the append-only audit ledger
type ChangelogRepository interface {
	// Append stores e and fills in its ID (and ChangedAt when zero)
	Append(ctx context.Context, e *models.ChangelogEntry) error
	Get(ctx context.Context, id int64) (*models.ChangelogEntry, error)
	// List returns entries newest first
	List(ctx context.Context, limit, offset int) ([]*models.ChangelogEntry, error)
	Count(ctx context.Context) (int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	ListByEntity(ctx context.Context, entityType models.EntityType, entityID int64) ([]*models.ChangelogEntry, error)
	// ListAfter returns the entries on the same entity that happened after
	// (changedAt, id), newest first
	ListAfter(ctx context.Context, entityType models.EntityType, entityID int64, changedAt time.Time, id int64) ([]*models.ChangelogEntry, error)
	// All returns every entry oldest first, used by backups
	All(ctx context.Context) ([]*models.ChangelogEntry, error)
}

type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	// InsertWithID inserts item under item.ID instead of allocating a new id
	InsertWithID(ctx context.Context, item *models.Item) error
	Get(ctx context.Context, id int64) (*models.Item, error)
	Update(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter models.ItemFilter) ([]*models.Item, error)
	Count(ctx context.Context) (int, error)
	CountByLocation(ctx context.Context) (map[int64]int, error)
	Names(ctx context.Context, ids []int64) (map[int64]string, error)
	Tags(ctx context.Context) ([]string, error)
}

type LocationRepository interface {
	Create(ctx context.Context, loc *models.Location) error
	InsertWithID(ctx context.Context, loc *models.Location) error
	Get(ctx context.Context, id int64) (*models.Location, error)
	Update(ctx context.Context, loc *models.Location) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*models.Location, error)
	Count(ctx context.Context) (int, error)
	Names(ctx context.Context, ids []int64) (map[int64]string, error)
	// HasDependents reports whether child locations or items point at id
	HasDependents(ctx context.Context, id int64) (bool, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Count(ctx context.Context) (int, error)
	// DisplayNames resolves user ids to display names; unknown ids are absent
	DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

// Tx is the set of repositories bound to one transaction (or to the pool when
// used outside a transaction)
type Tx interface {
	Changelog() ChangelogRepository
	Items() ItemRepository
	Locations() LocationRepository
	Users() UserRepository
}

// TxFunc runs inside a transaction; returning an error rolls it back
type TxFunc func(ctx context.Context, tx Tx) error

// Store is a database backend
type Store interface {
	Tx
	// InTx runs fn in a transaction
	InTx(ctx context.Context, fn TxFunc) error
	// InEntityTx runs fn in a serializable transaction that holds an exclusive
	// lock on (entityType, entityID) until commit
	InEntityTx(ctx context.Context, entityType models.EntityType, entityID int64, fn TxFunc) error
	Ping(ctx context.Context) error
	Close()
}
