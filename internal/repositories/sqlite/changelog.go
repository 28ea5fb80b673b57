package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"inventar-backend/internal/models"
)

type changelogRepo struct {
	db dbtx
}

const changelogColumns = `id, entity_type, entity_id, change_type, user_id, changed_at, before_values, after_values, changed_fields`

func (r *changelogRepo) Append(ctx context.Context, e *models.ChangelogEntry) error {
	if e.ChangedAt.IsZero() {
		e.ChangedAt = time.Now().UTC()
	}
	before, err := encodeSnapshot(e.BeforeValues)
	if err != nil {
		return err
	}
	after, err := encodeSnapshot(e.AfterValues)
	if err != nil {
		return err
	}
	fields := e.ChangedFields
	if fields == nil {
		fields = []string{}
	}
	changed, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO changelog(entity_type, entity_id, change_type, user_id, changed_at, before_values, after_values, changed_fields)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		string(e.EntityType), e.EntityID, string(e.ChangeType), nullInt(e.UserID),
		formatTime(e.ChangedAt), before, after, string(changed))
	if err != nil {
		return mapError(err)
	}
	e.ID, err = res.LastInsertId()
	e.ChangedFields = fields
	return err
}

func (r *changelogRepo) Get(ctx context.Context, id int64) (*models.ChangelogEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+changelogColumns+` FROM changelog WHERE id = ?`, id)
	e, err := scanChangelogEntry(row)
	if err != nil {
		return nil, mapError(err)
	}
	return e, nil
}

func (r *changelogRepo) List(ctx context.Context, limit, offset int) ([]*models.ChangelogEntry, error) {
	return r.query(ctx,
		`SELECT `+changelogColumns+` FROM changelog ORDER BY changed_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
}

func (r *changelogRepo) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM changelog`)
}

func (r *changelogRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM changelog WHERE changed_at >= ?`, formatTime(since))
}

func (r *changelogRepo) ListByEntity(ctx context.Context, entityType models.EntityType, entityID int64) ([]*models.ChangelogEntry, error) {
	return r.query(ctx,
		`SELECT `+changelogColumns+` FROM changelog
		 WHERE entity_type = ? AND entity_id = ?
		 ORDER BY changed_at DESC, id DESC`,
		string(entityType), entityID)
}

func (r *changelogRepo) ListAfter(ctx context.Context, entityType models.EntityType, entityID int64, changedAt time.Time, id int64) ([]*models.ChangelogEntry, error) {
	ts := formatTime(changedAt)
	return r.query(ctx,
		`SELECT `+changelogColumns+` FROM changelog
		 WHERE entity_type = ? AND entity_id = ? AND id <> ?
		   AND (changed_at > ? OR (changed_at = ? AND id > ?))
		 ORDER BY changed_at DESC, id DESC`,
		string(entityType), entityID, id, ts, ts, id)
}

func (r *changelogRepo) All(ctx context.Context) ([]*models.ChangelogEntry, error) {
	return r.query(ctx, `SELECT `+changelogColumns+` FROM changelog ORDER BY changed_at, id`)
}

func (r *changelogRepo) query(ctx context.Context, query string, args ...any) ([]*models.ChangelogEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

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

type scanner interface {
	Scan(dest ...any) error
}

func scanChangelogEntry(row scanner) (*models.ChangelogEntry, error) {
	var (
		e                 models.ChangelogEntry
		entityType        string
		changeType        string
		userID            sql.NullInt64
		changedAt         string
		before, after     sql.NullString
		changedFieldsJSON string
	)
	if err := row.Scan(&e.ID, &entityType, &e.EntityID, &changeType, &userID, &changedAt,
		&before, &after, &changedFieldsJSON); err != nil {
		return nil, err
	}
	e.EntityType = models.EntityType(entityType)
	e.ChangeType = models.ChangeType(changeType)
	e.UserID = intPtr(userID)

	var err error
	if e.ChangedAt, err = parseTime(changedAt); err != nil {
		return nil, err
	}
	if e.BeforeValues, err = decodeSnapshot(before); err != nil {
		return nil, err
	}
	if e.AfterValues, err = decodeSnapshot(after); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(changedFieldsJSON), &e.ChangedFields); err != nil {
		return nil, err
	}
	return &e, nil
}

func encodeSnapshot(s models.Snapshot) (sql.NullString, error) {
	if s == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func decodeSnapshot(v sql.NullString) (models.Snapshot, error) {
	if !v.Valid {
		return nil, nil
	}
	var s models.Snapshot
	if err := json.Unmarshal([]byte(v.String), &s); err != nil {
		return nil, err
	}
	return s, nil
}
