package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"inventar-backend/internal/models"
	"inventar-backend/internal/store"
)

type itemRepo struct {
	db dbtx
}

const itemColumns = `id, name, description, category, tags, links, images, location_id, created_at, updated_at`

func (r *itemRepo) Create(ctx context.Context, item *models.Item) error {
	now := time.Now().UTC()
	args, err := itemArgs(item)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO items(name, description, category, tags, links, images, location_id, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		append(args, formatTime(now), formatTime(now))...)
	if err != nil {
		return mapError(err)
	}
	if item.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	item.CreatedAt, item.UpdatedAt = now, now
	return nil
}

// InsertWithID keeps item.ID; AUTOINCREMENT moves the sequence past it
func (r *itemRepo) InsertWithID(ctx context.Context, item *models.Item) error {
	if item.ID <= 0 {
		return fmt.Errorf("insert item with id: invalid id %d", item.ID)
	}
	now := time.Now().UTC()
	args, err := itemArgs(item)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO items(id, name, description, category, tags, links, images, location_id, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		append(append([]any{item.ID}, args...), formatTime(now), formatTime(now))...)
	if err != nil {
		return mapError(err)
	}
	item.CreatedAt, item.UpdatedAt = now, now
	return nil
}

func (r *itemRepo) Get(ctx context.Context, id int64) (*models.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err != nil {
		return nil, mapError(err)
	}
	return item, nil
}

func (r *itemRepo) Update(ctx context.Context, item *models.Item) error {
	now := time.Now().UTC()
	args, err := itemArgs(item)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE items
		 SET name = ?, description = ?, category = ?, tags = ?, links = ?, images = ?, location_id = ?, updated_at = ?
		 WHERE id = ?`,
		append(args, formatTime(now), item.ID)...)
	if err != nil {
		return mapError(err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	item.UpdatedAt = now
	return nil
}

func (r *itemRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireRow(res)
}

func (r *itemRepo) List(ctx context.Context, filter models.ItemFilter) ([]*models.Item, error) {
	var conditions []string
	var args []any

	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + q + "%"
		conditions = append(conditions, "(name LIKE ? OR description LIKE ? OR category LIKE ?)")
		args = append(args, like, like, like)
	}
	for _, tag := range filter.Tags {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM json_each(items.tags) WHERE json_each.value = ?)")
		args = append(args, tag)
	}
	if filter.LocationID != nil {
		conditions = append(conditions, "location_id = ?")
		args = append(args, *filter.LocationID)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query := fmt.Sprintf(`SELECT %s FROM items %s ORDER BY lower(name), id LIMIT ? OFFSET ?`, itemColumns, whereClause)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

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

func (r *itemRepo) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM items`)
}

func (r *itemRepo) CountByLocation(ctx context.Context) (map[int64]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT location_id, COUNT(*) FROM items WHERE location_id IS NOT NULL GROUP BY location_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

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

func (r *itemRepo) Names(ctx context.Context, ids []int64) (map[int64]string, error) {
	return namesByID(ctx, r.db, "items", ids)
}

func (r *itemRepo) Tags(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT json_each.value FROM items, json_each(items.tags) ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

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

func itemArgs(item *models.Item) ([]any, error) {
	tags, err := encodeList(item.Tags)
	if err != nil {
		return nil, err
	}
	links, err := encodeList(item.Links)
	if err != nil {
		return nil, err
	}
	images, err := encodeList(item.Images)
	if err != nil {
		return nil, err
	}
	return []any{item.Name, item.Description, item.Category, tags, links, images, nullInt(item.LocationID)}, nil
}

func scanItem(row scanner) (*models.Item, error) {
	var (
		item                 models.Item
		tags, links, images  string
		locationID           sql.NullInt64
		createdAt, updatedAt string
	)
	if err := row.Scan(&item.ID, &item.Name, &item.Description, &item.Category,
		&tags, &links, &images, &locationID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	item.LocationID = intPtr(locationID)

	var err error
	if item.Tags, err = decodeList(tags); err != nil {
		return nil, err
	}
	if item.Links, err = decodeList(links); err != nil {
		return nil, err
	}
	if item.Images, err = decodeList(images); err != nil {
		return nil, err
	}
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &item, nil
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	raw, err := json.Marshal(list)
	return string(raw), err
}

func decodeList(raw string) ([]string, error) {
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
