package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
)

type appliedRepository struct {
	db *sql.DB
}

// NewAppliedTransitionRepository создаёт PostgreSQL-реализацию AppliedTransitionRepository.
func NewAppliedTransitionRepository(store *Store) domain.AppliedTransitionRepository {
	return &appliedRepository{db: store.DB()}
}

// MarkApplied вставляет ключ перехода. Гонка двух вставок разрешается на
// уровне БД: ON CONFLICT DO NOTHING, победитель определяется по rows affected.
func (r *appliedRepository) MarkApplied(key, orderID string, to domain.OrderStatus, ttlAt time.Time) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, domain.ErrAppliedKeyRequired
	}

	now := time.Now().UTC()
	if ttlAt.IsZero() {
		ttlAt = now.Add(24 * time.Hour)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO applied_transitions (key, order_id, to_status, ttl_at, applied_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (key) DO NOTHING
	`, key, orderID, string(to), ttlAt, now)
	if err != nil {
		return false, fmt.Errorf("mark transition applied: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("applied rows affected: %w", err)
	}

	return affected > 0, nil
}

func (r *appliedRepository) DeleteExpired(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		res sql.Result
		err error
	)

	if limit > 0 {
		res, err = r.db.ExecContext(ctx, `
			DELETE FROM applied_transitions
			WHERE key IN (
				SELECT key
				FROM applied_transitions
				WHERE ttl_at <= $1
				ORDER BY ttl_at ASC
				LIMIT $2
			)
		`, before, limit)
	} else {
		res, err = r.db.ExecContext(ctx, `
			DELETE FROM applied_transitions
			WHERE ttl_at <= $1
		`, before)
	}
	if err != nil {
		return 0, fmt.Errorf("delete expired applied transitions: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("applied rows affected: %w", err)
	}

	return int(affected), nil
}

var _ domain.AppliedTransitionRepository = (*appliedRepository)(nil)
