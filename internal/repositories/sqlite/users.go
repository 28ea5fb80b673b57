package sqlite

import (
	"context"
	"time"

	"inventar-backend/internal/models"
)

type userRepo struct {
	db dbtx
}

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	if u.Role == "" {
		u.Role = models.RoleMember
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users(name, email, password_hash, role, is_active, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, u.Role, u.IsActive, formatTime(now), formatTime(now))
	if err != nil {
		return mapError(err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

func (r *userRepo) Get(ctx context.Context, id int64) (*models.User, error) {
	return r.scanOne(ctx, `WHERE id = ?`, id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.scanOne(ctx, `WHERE email = ?`, email) // email column is NOCASE
}

func (r *userRepo) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, `SELECT COUNT(*) FROM users`)
}

func (r *userRepo) DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	return namesByID(ctx, r.db, "users", ids)
}

func (r *userRepo) scanOne(ctx context.Context, where string, args ...any) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, role, is_active, created_at, updated_at FROM users `+where, args...)

	var (
		u                    models.User
		createdAt, updatedAt string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &createdAt, &updatedAt); err != nil {
		return nil, mapError(err)
	}
	var err error
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
