package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
)

type inventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository создаёт PostgreSQL-реализацию InventoryRepository.
func NewInventoryRepository(store *Store) domain.InventoryRepository {
	return &inventoryRepository{db: store.DB()}
}

// ReserveAndCommit атомарно списывает сток по всем позициям в одной
// транзакции. Условие available >= qty проверяется самим UPDATE: ноль
// затронутых строк означает нехватку стока либо неизвестный товар, и
// транзакция откатывается целиком.
func (r *inventoryRepository) ReserveAndCommit(adjustments []domain.StockAdjustment) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for _, adj := range adjustments {
		var res sql.Result
		res, err = tx.ExecContext(ctx, `
			UPDATE stock_levels
			SET available = available - $1,
			    sold = sold + $1,
			    updated_at = $2
			WHERE product_id = $3
			  AND available >= $1
		`, adj.Qty, now, adj.ProductID)
		if err != nil {
			return fmt.Errorf("commit stock for %s: %w", adj.ProductID, err)
		}

		var affected int64
		affected, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			var exists bool
			exists, err = r.productExistsTx(ctx, tx, adj.ProductID)
			if err != nil {
				return err
			}
			if !exists {
				err = domain.ErrProductNotFound
				return err
			}
			err = domain.ErrInsufficientStock
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit stock reservation: %w", err)
	}

	return nil
}

// Release возвращает сток отменённого или возвращённого заказа. Счётчик sold
// ограничивается снизу нулём.
func (r *inventoryRepository) Release(adjustments []domain.StockAdjustment) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for _, adj := range adjustments {
		if _, err = tx.ExecContext(ctx, `
			UPDATE stock_levels
			SET available = available + $1,
			    sold = GREATEST(sold - $1, 0),
			    updated_at = $2
			WHERE product_id = $3
		`, adj.Qty, now, adj.ProductID); err != nil {
			return fmt.Errorf("release stock for %s: %w", adj.ProductID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit stock release: %w", err)
	}

	return nil
}

// Restock относительно пополняет доступный сток (приём поставки).
func (r *inventoryRepository) Restock(productID string, qty int32) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stock_levels (product_id, available, sold, updated_at)
		VALUES ($1,$2,0,$3)
		ON CONFLICT (product_id)
		DO UPDATE SET available = stock_levels.available + EXCLUDED.available,
		              updated_at = EXCLUDED.updated_at
	`, productID, qty, now)
	if err != nil {
		return fmt.Errorf("restock %s: %w", productID, err)
	}

	return nil
}

func (r *inventoryRepository) Get(productID string) (domain.StockLevel, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var level domain.StockLevel
	err := r.db.QueryRowContext(ctx, `
		SELECT product_id, available, sold, updated_at
		FROM stock_levels
		WHERE product_id = $1
	`, productID).Scan(&level.ProductID, &level.Available, &level.Sold, &level.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StockLevel{}, domain.ErrProductNotFound
		}
		return domain.StockLevel{}, fmt.Errorf("select stock level: %w", err)
	}

	return level, nil
}

func (r *inventoryRepository) productExistsTx(ctx context.Context, tx *sql.Tx, productID string) (bool, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT product_id FROM stock_levels WHERE product_id = $1`, productID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check product exists: %w", err)
}

var _ domain.InventoryRepository = (*inventoryRepository)(nil)
