package repositories

import (
	"context"
	"fmt"

	"inventar-backend/internal/models"
	"inventar-backend/internal/store"

	"github.com/jackc/pgx/v5"
)

type LocationRepository struct {
	DB DBTX
}

func NewLocationRepository(db DBTX) *LocationRepository {
	return &LocationRepository{DB: db}
}

const locationColumns = `id, name, description, parent_id, images, created_at, updated_at`

func (r *LocationRepository) Create(ctx context.Context, loc *models.Location) error {
	return mapError(r.DB.QueryRow(ctx,
		`INSERT INTO locations(name, description, parent_id, images)
		 VALUES($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		loc.Name, loc.Description, loc.ParentID, nonNil(loc.Images),
	).Scan(&loc.ID, &loc.CreatedAt, &loc.UpdatedAt))
}

func (r *LocationRepository) InsertWithID(ctx context.Context, loc *models.Location) error {
	if loc.ID <= 0 {
		return fmt.Errorf("insert location with id: invalid id %d", loc.ID)
	}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO locations(id, name, description, parent_id, images)
		 VALUES($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		loc.ID, loc.Name, loc.Description, loc.ParentID, nonNil(loc.Images),
	).Scan(&loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	_, err = r.DB.Exec(ctx,
		`SELECT setval(pg_get_serial_sequence('locations', 'id'), GREATEST((SELECT MAX(id) FROM locations), 1))`)
	return err
}

func (r *LocationRepository) Get(ctx context.Context, id int64) (*models.Location, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id)
	loc, err := scanLocation(row)
	if err != nil {
		return nil, mapError(err)
	}
	return loc, nil
}

func (r *LocationRepository) Update(ctx context.Context, loc *models.Location) error {
	return mapError(r.DB.QueryRow(ctx,
		`UPDATE locations
		 SET name = $2, description = $3, parent_id = $4, images = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING created_at, updated_at`,
		loc.ID, loc.Name, loc.Description, loc.ParentID, nonNil(loc.Images),
	).Scan(&loc.CreatedAt, &loc.UpdatedAt))
}

func (r *LocationRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *LocationRepository) List(ctx context.Context) ([]*models.Location, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+locationColumns+` FROM locations ORDER BY lower(name), id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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

func (r *LocationRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM locations`).Scan(&n)
	return n, err
}

func (r *LocationRepository) Names(ctx context.Context, ids []int64) (map[int64]string, error) {
	return namesByID(ctx, r.DB, "locations", ids)
}

func (r *LocationRepository) HasDependents(ctx context.Context, id int64) (bool, error) {
	var used bool
	err := r.DB.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM locations WHERE parent_id = $1)
		    OR EXISTS (SELECT 1 FROM items WHERE location_id = $1)
	`, id).Scan(&used)
	return used, err
}

func scanLocation(row pgx.Row) (*models.Location, error) {
	var loc models.Location
	err := row.Scan(&loc.ID, &loc.Name, &loc.Description, &loc.ParentID, &loc.Images,
		&loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &loc, nil
}
