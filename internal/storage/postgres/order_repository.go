package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
)

const (
	opTimeout = 5 * time.Second

	defaultPageSize = 10
	maxPageSize     = 100
)

const orderColumns = `
	id, order_number, buyer_id, merchant_id, status, total_minor,
	receiver, phone, province, city, district, detail,
	version, created_at, updated_at`

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(order domain.Order) error {
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

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, order_number, buyer_id, merchant_id, status, total_minor,
			receiver, phone, province, city, district, detail,
			version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		order.ID, order.Number, order.BuyerID, order.MerchantID,
		string(order.Status), order.TotalMinor,
		order.Shipping.Receiver, order.Shipping.Phone, order.Shipping.Province,
		order.Shipping.City, order.Shipping.District, order.Shipping.Detail,
		order.Version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, line := range order.Lines {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (
				id, order_id, product_id, name, thumbnail_url,
				price_minor, qty, subtotal_minor, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`,
			line.ID, order.ID, line.ProductID, line.Name, line.ThumbnailURL,
			line.PriceMinor, line.Qty, line.SubtotalMinor, line.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	if err = r.insertActions(ctx, tx, order.ID, order.ActionLog, 0); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	return nil
}

func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	order, err := r.getOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}

	if err := r.loadDetails(ctx, &order); err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

func (r *orderRepository) List(filter domain.OrderFilter) (domain.OrderPage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	where := " WHERE 1=1"
	args := make([]any, 0, 4)

	switch filter.ActorType {
	case domain.ActorBuyer:
		args = append(args, filter.ActorID)
		where += fmt.Sprintf(" AND buyer_id = $%d", len(args))
	case domain.ActorMerchant:
		args = append(args, filter.ActorID)
		where += fmt.Sprintf(" AND merchant_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (order_number ILIKE $%d OR receiver ILIKE $%d OR phone ILIKE $%d)", n, n, n)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return domain.OrderPage{}, fmt.Errorf("count orders: %w", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := "SELECT" + orderColumns + " FROM orders" + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.OrderPage{}, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, pageSize)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return domain.OrderPage{}, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return domain.OrderPage{}, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		if err := r.loadDetails(ctx, &orders[i]); err != nil {
			return domain.OrderPage{}, err
		}
	}

	return domain.OrderPage{
		Orders:   orders,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (r *orderRepository) Save(order domain.Order) error {
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

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    total_minor = $2,
		    version = version + 1,
		    updated_at = $3
		WHERE id = $4
		  AND version = $5
	`,
		string(order.Status),
		order.TotalMinor,
		order.UpdatedAt,
		order.ID,
		order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		exists, err = r.orderExistsTx(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if !exists {
			err = domain.ErrOrderNotFound
			return err
		}
		err = domain.ErrVersionConflict
		return err
	}

	// Журнал append-only: дописываем только записи сверх уже сохранённых.
	var savedActions int
	if err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM order_actions WHERE order_id = $1
	`, order.ID).Scan(&savedActions); err != nil {
		return fmt.Errorf("count order actions: %w", err)
	}
	if err = r.insertActions(ctx, tx, order.ID, order.ActionLog, savedActions); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save order: %w", err)
	}

	return nil
}

func (r *orderRepository) CountsByStatus(merchantID string) (map[domain.OrderStatus]domain.StatusCount, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(total_minor), 0)
		FROM orders
		WHERE merchant_id = $1
		GROUP BY status
	`, merchantID)
	if err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}
	defer rows.Close()

	result := make(map[domain.OrderStatus]domain.StatusCount)
	for rows.Next() {
		var (
			status string
			count  domain.StatusCount
		)
		if err := rows.Scan(&status, &count.Count, &count.AmountMinor); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		result[domain.OrderStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	return result, nil
}

func (r *orderRepository) SalesSince(merchantID string, since time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var total int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_minor), 0)
		FROM orders
		WHERE merchant_id = $1
		  AND status = $2
		  AND updated_at >= $3
	`, merchantID, string(domain.OrderStatusCompleted), since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum sales: %w", err)
	}

	return total, nil
}

func (r *orderRepository) getOrder(ctx context.Context, id string) (domain.Order, error) {
	row := r.db.QueryRowContext(ctx, "SELECT"+orderColumns+" FROM orders WHERE id = $1", id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, err
	}
	return order, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order  domain.Order
		status string
	)
	err := row.Scan(
		&order.ID, &order.Number, &order.BuyerID, &order.MerchantID,
		&status, &order.TotalMinor,
		&order.Shipping.Receiver, &order.Shipping.Phone, &order.Shipping.Province,
		&order.Shipping.City, &order.Shipping.District, &order.Shipping.Detail,
		&order.Version, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("scan order row: %w", err)
	}
	order.Status = domain.OrderStatus(status)
	return order, nil
}

func (r *orderRepository) loadDetails(ctx context.Context, order *domain.Order) error {
	lines, err := r.loadLines(ctx, order.ID)
	if err != nil {
		return err
	}
	order.Lines = lines

	actions, err := r.loadActions(ctx, order.ID)
	if err != nil {
		return err
	}
	order.ActionLog = actions

	return nil
}

func (r *orderRepository) loadLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, name, thumbnail_url, price_minor, qty, subtotal_minor, created_at
		FROM order_lines
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(
			&line.ID, &line.ProductID, &line.Name, &line.ThumbnailURL,
			&line.PriceMinor, &line.Qty, &line.SubtotalMinor, &line.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	return lines, nil
}

func (r *orderRepository) loadActions(ctx context.Context, orderID string) ([]domain.ActionEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT actor, action, note, occurred_at
		FROM order_actions
		WHERE order_id = $1
		ORDER BY seq ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order actions: %w", err)
	}
	defer rows.Close()

	actions := make([]domain.ActionEntry, 0)
	for rows.Next() {
		var (
			entry  domain.ActionEntry
			actor  string
			action string
		)
		if err := rows.Scan(&actor, &action, &entry.Note, &entry.Occurred); err != nil {
			return nil, fmt.Errorf("scan order action: %w", err)
		}
		entry.Actor = domain.ActorType(actor)
		entry.Action = domain.Action(action)
		actions = append(actions, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order actions: %w", err)
	}

	return actions, nil
}

func (r *orderRepository) insertActions(ctx context.Context, tx *sql.Tx, orderID string, actions []domain.ActionEntry, from int) error {
	for i := from; i < len(actions); i++ {
		entry := actions[i]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_actions (order_id, seq, actor, action, note, occurred_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, orderID, i, string(entry.Actor), string(entry.Action), entry.Note, entry.Occurred); err != nil {
			return fmt.Errorf("insert order action: %w", err)
		}
	}
	return nil
}

func (r *orderRepository) orderExistsTx(ctx context.Context, tx *sql.Tx, orderID string) (bool, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
