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
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const (
	itemColumns = `id, name, price_amount, price_currency, availability, created_at`

	getItemSQL = `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	listItemsSQL = `SELECT ` + itemColumns + ` FROM items ORDER BY created_at, id`

	insertItemSQL = `INSERT INTO items (name, price_amount, price_currency, availability)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`
)

type itemRow struct {
	ID            uuid.UUID       `db:"id"`
	Name          string          `db:"name"`
	PriceAmount   decimal.Decimal `db:"price_amount"`
	PriceCurrency string          `db:"price_currency"`
	Availability  string          `db:"availability"`
	CreatedAt     time.Time       `db:"created_at"`
}

type itemRepository struct {
	db DBTX
}

func NewItem(pool *pgxpool.Pool) port.ItemRepository {
	return &itemRepository{db: pool}
}

func NewItemWithTx(tx pgx.Tx) port.ItemRepository {
	return &itemRepository{db: tx}
}

func (r *itemRepository) FindItem(ctx context.Context, itemID uuid.UUID) (domain.Item, error) {
	var i domain.Item

	rows, err := r.db.Query(ctx, getItemSQL, itemID)
	if err != nil {
		return i, fmt.Errorf("q.GetItem: %w", err)
	}

	dbItem, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[itemRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return i, fmt.Errorf("q.GetItem: %w", port.ErrItemNotFound)
		}
		return i, fmt.Errorf("q.GetItem: %w", err)
	}

	item, err := mapDBItemToDomain(dbItem)
	if err != nil {
		return i, fmt.Errorf("mapDBItemToDomain: %w", err)
	}

	return item, nil
}

func (r *itemRepository) ListItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := r.db.Query(ctx, listItemsSQL)
	if err != nil {
		return nil, fmt.Errorf("q.ListItems: %w", err)
	}

	dbItems, err := pgx.CollectRows(rows, pgx.RowToStructByName[itemRow])
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}

	items := make([]domain.Item, 0, len(dbItems))
	for _, dbItem := range dbItems {
		item, err := mapDBItemToDomain(dbItem)
		if err != nil {
			return nil, fmt.Errorf("mapDBItemToDomain: %w", err)
		}
		items = append(items, item)
	}

	return items, nil
}

func (r *itemRepository) InsertItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	if strings.TrimSpace(item.Name) == "" {
		return item, errors.New("item name is empty")
	}
	if item.Availability == "" {
		item.Availability = domain.ItemAvailable
	}

	err := r.db.QueryRow(ctx, insertItemSQL,
		item.Name,
		item.Price.Amount,
		item.Price.Currency.String(),
		string(item.Availability),
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return item, fmt.Errorf("q.InsertItem: %w", err)
	}

	return item, nil
}

func mapDBItemToDomain(row itemRow) (domain.Item, error) {
	parsedCurrency, err := currency.ParseISO(strings.TrimSpace(row.PriceCurrency))
	if err != nil {
		return domain.Item{}, fmt.Errorf("currency[%s] is not valid: %w", row.PriceCurrency, err)
	}

	availability, err := domain.ToItemAvailability(row.Availability)
	if err != nil {
		return domain.Item{}, fmt.Errorf("domain.ToItemAvailability[%s]: %w", row.Availability, err)
	}

	return domain.Item{
		ID:           row.ID,
		Name:         row.Name,
		Price:        domain.Money{Amount: row.PriceAmount, Currency: parsedCurrency},
		Availability: availability,
		CreatedAt:    row.CreatedAt,
	}, nil
}
