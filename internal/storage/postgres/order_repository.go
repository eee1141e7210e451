package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vladislavdragonenkov/breaks/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// Insert сохраняет запись очереди. Повторная доставка того же номера —
// no-op: webhook магазина может прислать заказ дважды.
func (r *orderRepository) Insert(rec domain.OrderRecord, position int) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("marshal order payload: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (order_id, twitch_username, payload, position)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id) DO NOTHING
	`, int32(rec.OrderNumber), rec.DisplayName, payload, position); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

// Delete удаляет запись. Отсутствие строки — не ошибка.
func (r *orderRepository) Delete(n domain.OrderNumber) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM orders
		WHERE order_id = $1
	`, int32(n)); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	return nil
}

// UpdateDisplayName перезаписывает отображаемое имя заказа.
func (r *orderRepository) UpdateDisplayName(n domain.OrderNumber, name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET twitch_username = $1
		WHERE order_id = $2
	`, name, int32(n)); err != nil {
		return fmt.Errorf("update display name: %w", err)
	}

	return nil
}

// UpdatePositions записывает новый порядок обслуживания одной транзакцией.
func (r *orderRepository) UpdatePositions(positions map[domain.OrderNumber]int) error {
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

	for n, pos := range positions {
		if _, err = tx.ExecContext(ctx, `
			UPDATE orders
			SET position = $1
			WHERE order_id = $2
		`, pos, int32(n)); err != nil {
			return fmt.Errorf("update position: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit positions: %w", err)
	}

	return nil
}

// SelectAll возвращает все записи в сохранённом порядке обслуживания.
func (r *orderRepository) SelectAll() ([]domain.OrderRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, twitch_username, payload
		FROM orders
		ORDER BY position ASC, order_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	records := make([]domain.OrderRecord, 0)
	for rows.Next() {
		var (
			orderID  int32
			name     sql.NullString
			rawOrder []byte
		)
		if err := rows.Scan(&orderID, &name, &rawOrder); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}

		rec := domain.OrderRecord{OrderNumber: domain.OrderNumber(orderID)}
		if name.Valid {
			value := name.String
			rec.DisplayName = &value
		}
		if err := json.Unmarshal(rawOrder, &rec.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal order payload #%d: %w", orderID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return records, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
