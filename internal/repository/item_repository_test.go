package repository_test

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/ordermgr/internal/domain"
	"github.com/nikolayk812/ordermgr/internal/port"
	"github.com/nikolayk812/ordermgr/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
)

type itemRepositorySuite struct {
	suite.Suite

	pool      *pgxpool.Pool
	repo      port.ItemRepository
	container testcontainers.Container
}

// entry point to run the tests in the suite
func TestItemRepositorySuite(t *testing.T) {
	suite.Run(t, new(itemRepositorySuite))
}

// before all tests in the suite
func (suite *itemRepositorySuite) SetupSuite() {
	ctx := suite.T().Context()

	var (
		connStr string
		err     error
	)

	suite.container, connStr, err = startPostgres(ctx)
	suite.Require().NoError(err)

	suite.pool, err = pgxpool.New(ctx, connStr)
	suite.Require().NoError(err)

	suite.repo = repository.NewItem(suite.pool)
}

// after all tests in the suite
func (suite *itemRepositorySuite) TearDownSuite() {
	ctx := suite.T().Context()

	if suite.pool != nil {
		suite.pool.Close()
	}
	if suite.container != nil {
		suite.NoError(suite.container.Terminate(ctx))
	}
}

func (suite *itemRepositorySuite) TestInsertItem() {
	tests := []struct {
		name      string
		itemFunc  func() domain.Item
		wantError string
	}{
		{
			name:     "available item: ok",
			itemFunc: fakeItem,
		},
		{
			name: "not available item: ok",
			itemFunc: func() domain.Item {
				i := fakeItem()
				i.Availability = domain.ItemNotAvailable
				return i
			},
		},
		{
			name: "empty name: fail",
			itemFunc: func() domain.Item {
				i := fakeItem()
				i.Name = ""
				return i
			},
			wantError: "item name is empty",
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			t := suite.T()
			ctx := t.Context()

			ttItem := tt.itemFunc()

			inserted, err := suite.repo.InsertItem(ctx, ttItem)
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)

			actual, err := suite.repo.FindItem(ctx, inserted.ID)
			require.NoError(t, err)

			assertItem(t, ttItem, actual)
		})
	}
}

func (suite *itemRepositorySuite) TestFindItem() {
	t := suite.T()

	_, err := suite.repo.FindItem(t.Context(), uuid.New())
	require.EqualError(t, err, "q.GetItem: item not found")
	require.ErrorIs(t, err, port.ErrItemNotFound)
}

func (suite *itemRepositorySuite) TestListItems() {
	t := suite.T()
	ctx := t.Context()

	_, err := suite.pool.Exec(ctx, "TRUNCATE TABLE items")
	require.NoError(t, err)

	item1, item2 := fakeItem(), fakeItem()
	for _, item := range []domain.Item{item1, item2} {
		_, err := suite.repo.InsertItem(ctx, item)
		require.NoError(t, err)
	}

	items, err := suite.repo.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assertItem(t, item1, items[0])
	assertItem(t, item2, items[1])
}

func fakeItem() domain.Item {
	return domain.Item{
		Name: gofakeit.ProductName(),
		Price: domain.Money{
			Amount:   decimal.NewFromFloat(gofakeit.Price(1, 100)).Round(2),
			Currency: randomCurrency(),
		},
		Availability: domain.ItemAvailable,
	}
}

func assertItem(t *testing.T, expected, actual domain.Item) {
	t.Helper()

	opts := cmp.Options{
		cmpopts.IgnoreFields(domain.Item{}, "ID", "CreatedAt"),
		currencyComparer,
		decimalComparer,
	}

	diff := cmp.Diff(expected, actual, opts)
	assert.Empty(t, diff)

	assert.NotEqual(t, uuid.Nil, actual.ID)
	assert.False(t, actual.CreatedAt.IsZero())
}
