package repositories

import (
	"context"
	"fmt"

	"inventar-backend/internal/models"
	"inventar-backend/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// entityTxAttempts bounds retries of serializable transactions
const entityTxAttempts = 3

// queries binds the repositories to one DBTX
type queries struct {
	db DBTX
}

func (q queries) Changelog() store.ChangelogRepository { return NewChangelogRepository(q.db) }
func (q queries) Items() store.ItemRepository          { return NewItemRepository(q.db) }
func (q queries) Locations() store.LocationRepository  { return NewLocationRepository(q.db) }
func (q queries) Users() store.UserRepository          { return NewUserRepository(q.db) }

// Store is the PostgreSQL backend
type Store struct {
	queries
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{queries: queries{db: pool}, pool: pool}
}

// Pool exposes the underlying pool for health checks
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) InTx(ctx context.Context, fn store.TxFunc) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, queries{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// InEntityTx runs fn in a SERIALIZABLE transaction holding a transaction-scoped
// advisory lock on the entity. Serialization failures are retried.
func (s *Store) InEntityTx(ctx context.Context, entityType models.EntityType, entityID int64, fn store.TxFunc) error {
	lockKey := fmt.Sprintf("%s:%d", entityType, entityID)

	var err error
	for attempt := 1; attempt <= entityTxAttempts; attempt++ {
		err = s.entityTx(ctx, lockKey, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		log.WithFields(log.Fields{
			"component": "store",
			"lock":      lockKey,
			"attempt":   attempt,
		}).Warn("serialization failure, retrying entity transaction")
	}
	return err
}

func (s *Store) entityTx(ctx context.Context, lockKey string, fn store.TxFunc) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
		return fmt.Errorf("lock %s: %w", lockKey, err)
	}

	if err := fn(ctx, queries{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}
