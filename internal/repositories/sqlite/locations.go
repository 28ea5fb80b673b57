package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"inventar-backend/internal/models"
)

type locationRepo struct {
	db dbtx
}

const locationColumns = `id, name, description, parent_id, images, created_at, updated_at`

func (r *locationRepo) Create(ctx context.Context, loc *models.Location) error {
	now := time.Now().UTC()
	images, err := encodeList(loc.Images)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO locations(name, description, parent_id, images, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		loc.Name, loc.Description, nullInt(loc.ParentID), images, formatTime(now), formatTime(now))
	if err != nil {
		return mapError(err)
	}
	if loc.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	loc.CreatedAt, loc.UpdatedAt = now, now
	return nil
}

func (r *locationRepo) InsertWithID(ctx context.Context, loc *models.Location) error {
	if loc.ID <= 0 {
		return fmt.Errorf("insert location with id: invalid id %d", loc.ID)
	}
	now := time.Now().UTC()
	images, err := encodeList(loc.Images)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO locations(id, name, description, parent_id, images, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		loc.ID, loc.Name, loc.Description, nullInt(loc.ParentID), images, formatTime(now), formatTime(now))
	if err != nil {
		return mapError(err)
	}
	loc.CreatedAt, loc.UpdatedAt = now, now
	return nil
}

func (r *locationRepo) Get(ctx context.Context, id int64) (*models.Location, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = ?`, id)
	loc, err := scanLocation(row)
	if err != nil {
		return nil, mapError(err)
	}
	return loc, nil
}

func (r *locationRepo) Update(ctx context.Context, loc *models.Location) error {
	now := time.Now().UTC()
	images, err := encodeList(loc.Images)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE locations SET name = ?, description = ?, parent_id = ?, images = ?, updated_at = ? WHERE id = ?`,
		loc.Name, loc.Description, nullInt(loc.ParentID), images, formatTime(now), loc.ID)
	if err != nil {
		return mapError(err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	loc.UpdatedAt = now
	return nil
}

func (r *locationRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM locations WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireRow(res)
}

func (r *locationRepo) List(ctx context.Context) ([]*models.Location, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+locationColumns+` FROM locations ORDER BY lower(name), id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var locations []*models.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

func (r *locationRepo) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM locations`)
}

func (r *locationRepo) Names(ctx context.Context, ids []int64) (map[int64]string, error) {
	return namesByID(ctx, r.db, "locations", ids)
}

func (r *locationRepo) HasDependents(ctx context.Context, id int64) (bool, error) {
	var used bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM locations WHERE parent_id = ?)
		    OR EXISTS (SELECT 1 FROM items WHERE location_id = ?)
	`, id, id).Scan(&used)
	return used, err
}

func scanLocation(row scanner) (*models.Location, error) {
	var (
		loc                  models.Location
		parentID             sql.NullInt64
		images               string
		createdAt, updatedAt string
	)
	if err := row.Scan(&loc.ID, &loc.Name, &loc.Description, &parentID, &images, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	loc.ParentID = intPtr(parentID)

	var err error
	if loc.Images, err = decodeList(images); err != nil {
		return nil, err
	}
	if loc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if loc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &loc, nil
}
