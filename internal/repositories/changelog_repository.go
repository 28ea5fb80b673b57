package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"inventar-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

// ChangelogRepository stores the audit ledger. Rows are only ever inserted; a
// trigger in the schema rejects UPDATE and DELETE.
type ChangelogRepository struct {
	DB DBTX
}

func NewChangelogRepository(db DBTX) *ChangelogRepository {
	return &ChangelogRepository{DB: db}
}

const changelogColumns = `id, entity_type, entity_id, change_type, user_id, changed_at,
	before_values, after_values, changed_fields`

// Append records an entry. ChangedAt is taken from the entry when set, otherwise
// from the database clock.
func (r *ChangelogRepository) Append(ctx context.Context, e *models.ChangelogEntry) error {
	before, err := encodeSnapshot(e.BeforeValues)
	if err != nil {
		return fmt.Errorf("encode before values: %w", err)
	}
	after, err := encodeSnapshot(e.AfterValues)
	if err != nil {
		return fmt.Errorf("encode after values: %w", err)
	}

	var changedAt *time.Time
	if !e.ChangedAt.IsZero() {
		t := e.ChangedAt.UTC()
		changedAt = &t
	}
	fields := e.ChangedFields
	if fields == nil {
		fields = []string{}
	}

	query := `
		INSERT INTO changelog (
			entity_type, entity_id, change_type, user_id, changed_at,
			before_values, after_values, changed_fields
		) VALUES ($1, $2, $3, $4, COALESCE($5::timestamptz, clock_timestamp()), $6, $7, $8)
		RETURNING id, changed_at
	`

	return mapError(r.DB.QueryRow(ctx, query,
		string(e.EntityType), e.EntityID, string(e.ChangeType), e.UserID, changedAt,
		before, after, fields,
	).Scan(&e.ID, &e.ChangedAt))
}

func (r *ChangelogRepository) Get(ctx context.Context, id int64) (*models.ChangelogEntry, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+changelogColumns+` FROM changelog WHERE id = $1`, id)
	e, err := scanChangelogEntry(row)
	if err != nil {
		return nil, mapError(err)
	}
	return e, nil
}

func (r *ChangelogRepository) List(ctx context.Context, limit, offset int) ([]*models.ChangelogEntry, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+changelogColumns+`
		FROM changelog
		ORDER BY changed_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectChangelogEntries(rows)
}

func (r *ChangelogRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM changelog`).Scan(&n)
	return n, err
}

func (r *ChangelogRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM changelog WHERE changed_at >= $1`, since.UTC()).Scan(&n)
	return n, err
}

func (r *ChangelogRepository) ListByEntity(ctx context.Context, entityType models.EntityType, entityID int64) ([]*models.ChangelogEntry, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+changelogColumns+`
		FROM changelog
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY changed_at DESC, id DESC
	`, string(entityType), entityID)
	if err != nil {
		return nil, err
	}
	return collectChangelogEntries(rows)
}

func (r *ChangelogRepository) ListAfter(ctx context.Context, entityType models.EntityType, entityID int64, changedAt time.Time, id int64) ([]*models.ChangelogEntry, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+changelogColumns+`
		FROM changelog
		WHERE entity_type = $1 AND entity_id = $2
		  AND id <> $4
		  AND (changed_at > $3 OR (changed_at = $3 AND id > $4))
		ORDER BY changed_at DESC, id DESC
	`, string(entityType), entityID, changedAt.UTC(), id)
	if err != nil {
		return nil, err
	}
	return collectChangelogEntries(rows)
}

func (r *ChangelogRepository) All(ctx context.Context) ([]*models.ChangelogEntry, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+changelogColumns+` FROM changelog ORDER BY changed_at, id`)
	if err != nil {
		return nil, err
	}
	return collectChangelogEntries(rows)
}

func collectChangelogEntries(rows pgx.Rows) ([]*models.ChangelogEntry, error) {
	defer rows.Close()

	var entries []*models.ChangelogEntry
	for rows.Next() {
		e, err := scanChangelogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanChangelogEntry(row pgx.Row) (*models.ChangelogEntry, error) {
	var (
		e          models.ChangelogEntry
		entityType string
		changeType string
		before     []byte
		after      []byte
	)
	if err := row.Scan(&e.ID, &entityType, &e.EntityID, &changeType, &e.UserID, &e.ChangedAt,
		&before, &after, &e.ChangedFields); err != nil {
		return nil, err
	}
	e.EntityType = models.EntityType(entityType)
	e.ChangeType = models.ChangeType(changeType)

	var err error
	if e.BeforeValues, err = decodeSnapshot(before); err != nil {
		return nil, fmt.Errorf("decode before values of entry %d: %w", e.ID, err)
	}
	if e.AfterValues, err = decodeSnapshot(after); err != nil {
		return nil, fmt.Errorf("decode after values of entry %d: %w", e.ID, err)
	}
	return &e, nil
}

// encodeSnapshot returns the JSON text of s, or nil for a nil snapshot so the
// column stays NULL
func encodeSnapshot(s models.Snapshot) (*string, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	text := string(raw)
	return &text, nil
}

func decodeSnapshot(raw []byte) (models.Snapshot, error) {
	if raw == nil {
		return nil, nil
	}
	var s models.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return s, nil
}
