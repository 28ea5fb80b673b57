package repositories

import (
	"context"
	"fmt"
	"strings"

	"inventar-backend/internal/models"
	"inventar-backend/internal/store"

	"github.com/jackc/pgx/v5"
)

type ItemRepository struct {
	DB DBTX
}

func NewItemRepository(db DBTX) *ItemRepository {
	return &ItemRepository{DB: db}
}

const itemColumns = `id, name, description, category, tags, links, images, location_id, created_at, updated_at`

func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	return mapError(r.DB.QueryRow(ctx,
		`INSERT INTO items(name, description, category, tags, links, images, location_id)
		 VALUES($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		item.Name, item.Description, item.Category,
		nonNil(item.Tags), nonNil(item.Links), nonNil(item.Images), item.LocationID,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt))
}

// InsertWithID writes the item under its existing id. The identity column is
// GENERATED BY DEFAULT so an explicit id is accepted; the sequence is moved
// past it afterwards.
func (r *ItemRepository) InsertWithID(ctx context.Context, item *models.Item) error {
	if item.ID <= 0 {
		return fmt.Errorf("insert item with id: invalid id %d", item.ID)
	}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO items(id, name, description, category, tags, links, images, location_id)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		item.ID, item.Name, item.Description, item.Category,
		nonNil(item.Tags), nonNil(item.Links), nonNil(item.Images), item.LocationID,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	_, err = r.DB.Exec(ctx,
		`SELECT setval(pg_get_serial_sequence('items', 'id'), GREATEST((SELECT MAX(id) FROM items), 1))`)
	return err
}

func (r *ItemRepository) Get(ctx context.Context, id int64) (*models.Item, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	item, err := scanItem(row)
	if err != nil {
		return nil, mapError(err)
	}
	return item, nil
}

func (r *ItemRepository) Update(ctx context.Context, item *models.Item) error {
	return mapError(r.DB.QueryRow(ctx,
		`UPDATE items
		 SET name = $2, description = $3, category = $4, tags = $5, links = $6, images = $7,
		     location_id = $8, updated_at = NOW()
		 WHERE id = $1
		 RETURNING created_at, updated_at`,
		item.ID, item.Name, item.Description, item.Category,
		nonNil(item.Tags), nonNil(item.Links), nonNil(item.Images), item.LocationID,
	).Scan(&item.CreatedAt, &item.UpdatedAt))
}

func (r *ItemRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// List returns items matching the filter. Free text goes through the German
// full text index with an ILIKE fallback for partial words.
func (r *ItemRepository) List(ctx context.Context, filter models.ItemFilter) ([]*models.Item, error) {
	var conditions []string
	var args []any
	argNum := 1

	if q := strings.TrimSpace(filter.Query); q != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(search_vector @@ plainto_tsquery('german', $%d) OR name ILIKE $%d OR category ILIKE $%d)",
			argNum, argNum+1, argNum+1))
		args = append(args, q, "%"+q+"%")
		argNum += 2
	}

	if len(filter.Tags) > 0 {
		conditions = append(conditions, fmt.Sprintf("tags @> $%d", argNum))
		args = append(args, filter.Tags)
		argNum++
	}

	if filter.LocationID != nil {
		conditions = append(conditions, fmt.Sprintf("location_id = $%d", argNum))
		args = append(args, *filter.LocationID)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM items
		%s
		ORDER BY lower(name), id
		LIMIT $%d OFFSET $%d
	`, itemColumns, whereClause, argNum, argNum+1)
	var limit any // NULL means no limit
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	args = append(args, limit, filter.Offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *ItemRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM items`).Scan(&n)
	return n, err
}

func (r *ItemRepository) CountByLocation(ctx context.Context) (map[int64]int, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT location_id, COUNT(*) FROM items WHERE location_id IS NOT NULL GROUP BY location_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (r *ItemRepository) Names(ctx context.Context, ids []int64) (map[int64]string, error) {
	return namesByID(ctx, r.DB, "items", ids)
}

func (r *ItemRepository) Tags(ctx context.Context) ([]string, error) {
	rows, err := r.DB.Query(ctx, `SELECT DISTINCT unnest(tags) AS tag FROM items ORDER BY tag`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func scanItem(row pgx.Row) (*models.Item, error) {
	var item models.Item
	err := row.Scan(&item.ID, &item.Name, &item.Description, &item.Category,
		&item.Tags, &item.Links, &item.Images, &item.LocationID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// namesByID loads id -> name for the given table. table is never user input.
func namesByID(ctx context.Context, db DBTX, table string, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	rows, err := db.Query(ctx, `SELECT id, name FROM `+table+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

// nonNil keeps NOT NULL array columns from receiving NULL
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
