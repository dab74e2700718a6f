package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
)

const shipmentColumns = `
	id, order_id, carrier, tracking_number, status,
	version, shipped_at, delivered_at, created_at, updated_at`

type shipmentRepository struct {
	db *sql.DB
}

// NewShipmentRepository создаёт PostgreSQL-реализацию ShipmentRepository.
func NewShipmentRepository(store *Store) domain.ShipmentRepository {
	return &shipmentRepository{db: store.DB()}
}

func (r *shipmentRepository) Create(shipment domain.Shipment) error {
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
		INSERT INTO shipments (
			id, order_id, carrier, tracking_number, status,
			version, shipped_at, delivered_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		shipment.ID, shipment.OrderID, shipment.Carrier, shipment.TrackingNumber,
		string(shipment.Status), shipment.Version, shipment.ShippedAt,
		nullableTime(shipment.DeliveredAt), shipment.CreatedAt, shipment.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("insert shipment: %w", err)
	}

	if err = insertTrackingEvents(ctx, tx, shipment.ID, shipment.Events, 0); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create shipment: %w", err)
	}

	return nil
}

func (r *shipmentRepository) Get(id string) (domain.Shipment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, "SELECT"+shipmentColumns+" FROM shipments WHERE id = $1", id)
	return r.scanWithEvents(ctx, row)
}

// GetByOrderID возвращает актуальное отправление заказа. После сбоя доставки
// отгрузка может повториться новой записью; актуальной считается последняя.
func (r *shipmentRepository) GetByOrderID(orderID string) (domain.Shipment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, "SELECT"+shipmentColumns+` FROM shipments
		WHERE order_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, orderID)
	return r.scanWithEvents(ctx, row)
}

func (r *shipmentRepository) Save(shipment domain.Shipment) error {
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
		UPDATE shipments
		SET status = $1,
		    delivered_at = $2,
		    version = version + 1,
		    updated_at = $3
		WHERE id = $4
		  AND version = $5
	`,
		string(shipment.Status),
		nullableTime(shipment.DeliveredAt),
		shipment.UpdatedAt,
		shipment.ID,
		shipment.Version,
	)
	if err != nil {
		return fmt.Errorf("update shipment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		exists, err = r.shipmentExistsTx(ctx, tx, shipment.ID)
		if err != nil {
			return err
		}
		if !exists {
			err = domain.ErrShipmentNotFound
			return err
		}
		err = domain.ErrVersionConflict
		return err
	}

	// Лента трекинга append-only: дописываем только новые записи.
	var savedEvents int
	if err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM shipment_events WHERE shipment_id = $1
	`, shipment.ID).Scan(&savedEvents); err != nil {
		return fmt.Errorf("count shipment events: %w", err)
	}
	if err = insertTrackingEvents(ctx, tx, shipment.ID, shipment.Events, savedEvents); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save shipment: %w", err)
	}

	return nil
}

func (r *shipmentRepository) scanWithEvents(ctx context.Context, row rowScanner) (domain.Shipment, error) {
	var (
		shipment    domain.Shipment
		status      string
		deliveredAt sql.NullTime
	)

	err := row.Scan(
		&shipment.ID, &shipment.OrderID, &shipment.Carrier, &shipment.TrackingNumber,
		&status, &shipment.Version, &shipment.ShippedAt, &deliveredAt,
		&shipment.CreatedAt, &shipment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Shipment{}, domain.ErrShipmentNotFound
		}
		return domain.Shipment{}, fmt.Errorf("scan shipment row: %w", err)
	}
	shipment.Status = domain.ShipmentStatus(status)
	if deliveredAt.Valid {
		shipment.DeliveredAt = deliveredAt.Time.UTC()
	}

	events, err := r.loadEvents(ctx, shipment.ID)
	if err != nil {
		return domain.Shipment{}, err
	}
	shipment.Events = events

	return shipment, nil
}

func (r *shipmentRepository) loadEvents(ctx context.Context, shipmentID string) ([]domain.TrackingEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT occurred_at, description, location
		FROM shipment_events
		WHERE shipment_id = $1
		ORDER BY seq ASC
	`, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("load shipment events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.TrackingEvent, 0)
	for rows.Next() {
		var event domain.TrackingEvent
		if err := rows.Scan(&event.Time, &event.Description, &event.Location); err != nil {
			return nil, fmt.Errorf("scan shipment event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shipment events: %w", err)
	}

	return events, nil
}

func insertTrackingEvents(ctx context.Context, tx *sql.Tx, shipmentID string, events []domain.TrackingEvent, from int) error {
	for i := from; i < len(events); i++ {
		event := events[i]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO shipment_events (shipment_id, seq, occurred_at, description, location)
			VALUES ($1,$2,$3,$4,$5)
		`, shipmentID, i, event.Time, event.Description, event.Location); err != nil {
			return fmt.Errorf("insert shipment event: %w", err)
		}
	}
	return nil
}

func (r *shipmentRepository) shipmentExistsTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var found string
	err := tx.QueryRowContext(ctx, `SELECT id FROM shipments WHERE id = $1`, id).Scan(&found)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check shipment exists: %w", err)
}

func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

var _ domain.ShipmentRepository = (*shipmentRepository)(nil)
