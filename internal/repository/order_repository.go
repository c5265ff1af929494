package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/ordermgr/internal/domain"
	"github.com/nikolayk812/ordermgr/internal/port"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const (
	orderColumns = `id, owner_id, status, postal_address, total_amount, total_currency, revision, created_at, updated_at`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at, id`

	searchOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
WHERE ($1::uuid[] IS NULL OR id = ANY ($1::uuid[]))
  AND ($2::text[] IS NULL OR owner_id = ANY ($2::text[]))
  AND ($3::text[] IS NULL OR status = ANY ($3::text[]))
  AND ($4::timestamptz IS NULL OR created_at > $4::timestamptz)
  AND ($5::timestamptz IS NULL OR created_at < $5::timestamptz)
ORDER BY created_at, id`

	getOrderItemsSQL = `SELECT order_id, item_id, quantity FROM order_items
WHERE order_id = ANY ($1::uuid[])
ORDER BY order_id, line_no`

	insertOrderSQL = `INSERT INTO orders (owner_id, status, postal_address, total_amount, total_currency)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, revision, created_at, updated_at`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, item_id, line_no, quantity) VALUES ($1, $2, $3, $4)`

	updateOrderSQL = `UPDATE orders
SET status = $3, postal_address = $4, total_amount = $5, total_currency = $6,
    revision = revision + 1, updated_at = now()
WHERE id = $1 AND revision = $2
RETURNING revision, updated_at`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	deleteOrderItemsSQL = `DELETE FROM order_items WHERE order_id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

type orderRow struct {
	ID            uuid.UUID       `db:"id"`
	OwnerID       string          `db:"owner_id"`
	Status        string          `db:"status"`
	PostalAddress string          `db:"postal_address"`
	TotalAmount   decimal.Decimal `db:"total_amount"`
	TotalCurrency string          `db:"total_currency"`
	Revision      int64           `db:"revision"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

type orderItemRow struct {
	OrderID  uuid.UUID `db:"order_id"`
	ItemID   uuid.UUID `db:"item_id"`
	Quantity int       `db:"quantity"`
}

type orderRepository struct {
	db DBTX
}

func NewOrder(pool *pgxpool.Pool) port.OrderRepository {
	return &orderRepository{db: pool}
}

func NewOrderWithTx(tx pgx.Tx) port.OrderRepository {
	return &orderRepository{db: tx} // use provided transaction instead
}

func (r *orderRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	var o domain.Order

	if orderID == uuid.Nil {
		return o, fmt.Errorf("orderID is empty")
	}

	order, err := withTx(ctx, r.db, func(q DBTX) (domain.Order, error) {
		rows, err := q.Query(ctx, getOrderSQL, orderID)
		if err != nil {
			return o, fmt.Errorf("q.GetOrder: %w", err)
		}

		dbOrder, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[orderRow])
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return o, fmt.Errorf("q.GetOrder: %w", port.ErrOrderNotFound)
			}
			return o, fmt.Errorf("q.GetOrder: %w", err)
		}

		orders, err := loadOrderItems(ctx, q, []orderRow{dbOrder})
		if err != nil {
			return o, fmt.Errorf("loadOrderItems: %w", err)
		}

		return orders[0], nil
	})
	if err != nil {
		return o, fmt.Errorf("withTx: %w", err)
	}

	return order, nil
}

func (r *orderRepository) SearchOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter.Validate: %w", err)
	}

	statuses := lo.Map(filter.Statuses, func(s domain.OrderStatus, _ int) string {
		return s.String()
	})

	var createdAfter, createdBefore *time.Time
	if filter.CreatedAt != nil {
		createdAfter = filter.CreatedAt.After
		createdBefore = filter.CreatedAt.Before
	}

	orders, err := r.queryOrders(ctx, searchOrdersSQL,
		nilSliceIfEmpty(filter.IDs),
		nilSliceIfEmpty(filter.OwnerIDs),
		nilSliceIfEmpty(statuses),
		createdAfter,
		createdBefore,
	)
	if err != nil {
		return nil, fmt.Errorf("r.queryOrders: %w", err)
	}

	return orders, nil
}

func (r *orderRepository) ListOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := r.queryOrders(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("r.queryOrders: %w", err)
	}

	return orders, nil
}

func (r *orderRepository) InsertOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	if len(order.Items) == 0 {
		return order, errors.New("no items in order")
	}
	if strings.TrimSpace(order.PostalAddress) == "" {
		return order, errors.New("postal address is empty")
	}

	inserted, err := withTx(ctx, r.db, func(q DBTX) (domain.Order, error) {
		result := order

		err := q.QueryRow(ctx, insertOrderSQL,
			order.OwnerID,
			order.Status.String(),
			order.PostalAddress,
			order.TotalPrice.Amount,
			order.TotalPrice.Currency.String(),
		).Scan(&result.ID, &result.Revision, &result.CreatedAt, &result.UpdatedAt)
		if err != nil {
			return order, fmt.Errorf("q.InsertOrder: %w", err)
		}

		if err := insertOrderItems(ctx, q, result.ID, result.Items); err != nil {
			return order, fmt.Errorf("insertOrderItems: %w", err)
		}

		return result, nil
	})
	if err != nil {
		return order, fmt.Errorf("withTx: %w", err)
	}

	return inserted, nil
}

func (r *orderRepository) UpdateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	if order.ID == uuid.Nil {
		return order, fmt.Errorf("orderID is empty")
	}
	if len(order.Items) == 0 {
		return order, errors.New("no items in order")
	}

	updated, err := withTx(ctx, r.db, func(q DBTX) (domain.Order, error) {
		result := order

		err := q.QueryRow(ctx, updateOrderSQL,
			order.ID,
			order.Revision,
			order.Status.String(),
			order.PostalAddress,
			order.TotalPrice.Amount,
			order.TotalPrice.Currency.String(),
		).Scan(&result.Revision, &result.UpdatedAt)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return order, fmt.Errorf("q.UpdateOrder: %w", err)
			}

			var exists bool
			if err := q.QueryRow(ctx, orderExistsSQL, order.ID).Scan(&exists); err != nil {
				return order, fmt.Errorf("q.OrderExists: %w", err)
			}
			if !exists {
				return order, fmt.Errorf("q.UpdateOrder: %w", port.ErrOrderNotFound)
			}
			return order, fmt.Errorf("q.UpdateOrder: %w", port.ErrRevisionConflict)
		}

		if _, err := q.Exec(ctx, deleteOrderItemsSQL, order.ID); err != nil {
			return order, fmt.Errorf("q.DeleteOrderItems: %w", err)
		}

		if err := insertOrderItems(ctx, q, order.ID, order.Items); err != nil {
			return order, fmt.Errorf("insertOrderItems: %w", err)
		}

		return result, nil
	})
	if err != nil {
		return order, fmt.Errorf("withTx: %w", err)
	}

	return updated, nil
}

func (r *orderRepository) DeleteOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	if orderID == uuid.Nil {
		return false, fmt.Errorf("orderID is empty")
	}

	// order_items go away through ON DELETE CASCADE
	cmdTag, err := r.db.Exec(ctx, deleteOrderSQL, orderID)
	if err != nil {
		return false, fmt.Errorf("q.DeleteOrder: %w", err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

func (r *orderRepository) queryOrders(ctx context.Context, sql string, args ...any) ([]domain.Order, error) {
	return withTx(ctx, r.db, func(q DBTX) ([]domain.Order, error) {
		rows, err := q.Query(ctx, sql, args...)
		if err != nil {
			return nil, fmt.Errorf("q.Query: %w", err)
		}

		dbOrders, err := pgx.CollectRows(rows, pgx.RowToStructByName[orderRow])
		if err != nil {
			return nil, fmt.Errorf("pgx.CollectRows: %w", err)
		}

		if len(dbOrders) == 0 {
			return nil, nil
		}

		return loadOrderItems(ctx, q, dbOrders)
	})
}

// loadOrderItems fetches the line items of all given orders in one query
// and maps the result, keeping the order of dbOrders.
func loadOrderItems(ctx context.Context, q DBTX, dbOrders []orderRow) ([]domain.Order, error) {
	ids := lo.Map(dbOrders, func(row orderRow, _ int) uuid.UUID {
		return row.ID
	})

	rows, err := q.Query(ctx, getOrderItemsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("q.GetOrderItems: %w", err)
	}

	dbItems, err := pgx.CollectRows(rows, pgx.RowToStructByName[orderItemRow])
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}

	itemsByOrder := lo.GroupBy(dbItems, func(row orderItemRow) uuid.UUID {
		return row.OrderID
	})

	orders := make([]domain.Order, 0, len(dbOrders))
	for _, dbOrder := range dbOrders {
		order, err := mapDBOrderToDomain(dbOrder, itemsByOrder[dbOrder.ID])
		if err != nil {
			return nil, fmt.Errorf("mapDBOrderToDomain: %w", err)
		}
		orders = append(orders, order)
	}

	return orders, nil
}

func insertOrderItems(ctx context.Context, q DBTX, orderID uuid.UUID, items []domain.OrderItem) error {
	batch := &pgx.Batch{}
	for position, item := range items {
		batch.Queue(insertOrderItemSQL, orderID, item.ItemID, position, item.Quantity)
	}

	results := q.SendBatch(ctx, batch)
	for range items {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("q.InsertOrderItem: %w", err)
		}
	}

	if err := results.Close(); err != nil {
		return fmt.Errorf("results.Close: %w", err)
	}

	return nil
}

func mapDBOrderToDomain(dbOrder orderRow, dbItems []orderItemRow) (domain.Order, error) {
	var o domain.Order

	parsedCurrency, err := currency.ParseISO(strings.TrimSpace(dbOrder.TotalCurrency))
	if err != nil {
		return o, fmt.Errorf("currency[%s] is not valid: %w", dbOrder.TotalCurrency, err)
	}

	status, err := domain.ToOrderStatus(dbOrder.Status)
	if err != nil {
		return o, fmt.Errorf("domain.ToOrderStatus[%s]: %w", dbOrder.Status, err)
	}

	items := lo.Map(dbItems, func(row orderItemRow, _ int) domain.OrderItem {
		return domain.OrderItem{ItemID: row.ItemID, Quantity: row.Quantity}
	})

	return domain.Order{
		ID:            dbOrder.ID,
		OwnerID:       dbOrder.OwnerID,
		Items:         items,
		Status:        status,
		PostalAddress: dbOrder.PostalAddress,
		TotalPrice:    domain.Money{Amount: dbOrder.TotalAmount, Currency: parsedCurrency},
		Revision:      dbOrder.Revision,
		CreatedAt:     dbOrder.CreatedAt,
		UpdatedAt:     dbOrder.UpdatedAt,
	}, nil
}

func nilSliceIfEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}
