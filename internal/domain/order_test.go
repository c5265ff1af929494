package domain_test

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/nikolayk812/ordermgr/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
)

func TestOrder_MergeItem(t *testing.T) {
	x, y := uuid.New(), uuid.New()

	order := domain.NewOrder("u1", x, 2, eur("10"), "Main street 1")
	assertMoney(t, eur("20"), order.TotalPrice)

	require.NoError(t, order.MergeItem(x, 1, eur("10")))
	require.NoError(t, order.MergeItem(y, 3, eur("2.50")))

	assert.Equal(t, []domain.OrderItem{
		{ItemID: x, Quantity: 3},
		{ItemID: y, Quantity: 3},
	}, order.Items)
	assertMoney(t, eur("37.50"), order.TotalPrice)

	err := order.MergeItem(y, 1, domain.Money{Amount: decimal.NewFromInt(1), Currency: currency.USD})
	require.ErrorIs(t, err, domain.ErrCurrencyMismatch)
	assertMoney(t, eur("37.50"), order.TotalPrice)
	assert.Equal(t, 3, order.Items[1].Quantity)
}

func TestOrder_MergeItem_QuantityBound(t *testing.T) {
	x, y := uuid.New(), uuid.New()

	tests := []struct {
		name      string
		existing  int
		item      uuid.UUID
		quantity  int
		wantQty   int
		wantError error
	}{
		{
			name:     "merge up to the bound",
			existing: domain.MaxItemQuantity - 2,
			item:     x,
			quantity: 2,
			wantQty:  domain.MaxItemQuantity,
		},
		{
			name:      "merge past the bound",
			existing:  domain.MaxItemQuantity - 1,
			item:      x,
			quantity:  2,
			wantError: domain.ErrQuantityTooLarge,
		},
		{
			name:      "huge merge wraps nothing",
			existing:  2,
			item:      x,
			quantity:  math.MaxInt,
			wantError: domain.ErrQuantityTooLarge,
		},
		{
			name:      "new line item past the bound",
			existing:  1,
			item:      y,
			quantity:  domain.MaxItemQuantity + 1,
			wantError: domain.ErrQuantityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := domain.NewOrder("u1", x, tt.existing, eur("1"), "Main street 1")
			before := order.TotalPrice

			err := order.MergeItem(tt.item, tt.quantity, eur("1"))
			if tt.wantError != nil {
				require.ErrorIs(t, err, tt.wantError)
				assert.Equal(t, []domain.OrderItem{{ItemID: x, Quantity: tt.existing}}, order.Items)
				assertMoney(t, before, order.TotalPrice)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantQty, order.Items[order.ItemIndex(tt.item)].Quantity)
		})
	}
}

func TestOrder_RemoveUnit(t *testing.T) {
	x, y := uuid.New(), uuid.New()

	tests := []struct {
		name      string
		items     []domain.OrderItem
		total     string
		remove    uuid.UUID
		price     string
		wantItems []domain.OrderItem
		wantTotal string
		wantError error
	}{
		{
			name:      "several units: decrement and reduce total",
			items:     []domain.OrderItem{{ItemID: x, Quantity: 2}, {ItemID: y, Quantity: 1}},
			total:     "25",
			remove:    x,
			price:     "10",
			wantItems: []domain.OrderItem{{ItemID: x, Quantity: 1}, {ItemID: y, Quantity: 1}},
			wantTotal: "15",
		},
		{
			name:      "last unit: line dropped, total unchanged",
			items:     []domain.OrderItem{{ItemID: x, Quantity: 1}, {ItemID: y, Quantity: 1}},
			total:     "15",
			remove:    x,
			price:     "10",
			wantItems: []domain.OrderItem{{ItemID: y, Quantity: 1}},
			wantTotal: "15",
		},
		{
			name:      "only unit: order left empty",
			items:     []domain.OrderItem{{ItemID: x, Quantity: 1}},
			total:     "10",
			remove:    x,
			price:     "10",
			wantItems: []domain.OrderItem{},
			wantTotal: "10",
		},
		{
			name:      "price went up since adding: total floored at zero",
			items:     []domain.OrderItem{{ItemID: x, Quantity: 2}},
			total:     "4",
			remove:    x,
			price:     "10",
			wantItems: []domain.OrderItem{{ItemID: x, Quantity: 1}},
			wantTotal: "0",
		},
		{
			name:      "absent item: error",
			items:     []domain.OrderItem{{ItemID: x, Quantity: 2}},
			total:     "20",
			remove:    y,
			price:     "10",
			wantItems: []domain.OrderItem{{ItemID: x, Quantity: 2}},
			wantTotal: "20",
			wantError: domain.ErrItemNotInOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := domain.Order{Items: tt.items, TotalPrice: eur(tt.total)}.Clone()

			err := order.RemoveUnit(tt.remove, eur(tt.price))
			if tt.wantError != nil {
				require.ErrorIs(t, err, tt.wantError)
			} else {
				require.NoError(t, err)
			}

			assert.ElementsMatch(t, tt.wantItems, order.Items)
			assertMoney(t, eur(tt.wantTotal), order.TotalPrice)
		})
	}
}

func TestOrder_RemoveUnitDoesNotAlias(t *testing.T) {
	x, y := uuid.New(), uuid.New()
	original := domain.Order{Items: []domain.OrderItem{{ItemID: x, Quantity: 1}, {ItemID: y, Quantity: 1}}, TotalPrice: eur("2")}

	working := original.Clone()
	require.NoError(t, working.RemoveUnit(x, eur("1")))

	assert.Equal(t, x, original.Items[0].ItemID)
	assert.Equal(t, []domain.OrderItem{{ItemID: y, Quantity: 1}}, working.Items)
}

func TestDecideAdd(t *testing.T) {
	open := domain.NewOrder("u1", uuid.New(), 1, eur("1"), "a")
	open.ID = uuid.New()

	confirmed := open.Clone()
	confirmed.Status = domain.OrderStatusPending

	tests := []struct {
		name   string
		found  *domain.Order
		userID string
		merge  bool
	}{
		{name: "nothing found: create", found: nil, userID: "u1"},
		{name: "other owner: create", found: &open, userID: "u2"},
		{name: "frozen order: create", found: &confirmed, userID: "u1"},
		{name: "open own order: merge", found: &open, userID: "u1", merge: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := domain.DecideAdd(tt.found, tt.userID)

			switch d := decision.(type) {
			case domain.MergeInto:
				require.True(t, tt.merge)
				assert.Equal(t, open.ID, d.Order.ID)

				d.Order.Items[0].Quantity = 99
				assert.Equal(t, 1, open.Items[0].Quantity, "decision holds a copy")
			case domain.CreateNew:
				require.False(t, tt.merge)
			default:
				t.Fatalf("unexpected decision %T", decision)
			}
		})
	}
}

func TestOrderStatus(t *testing.T) {
	for _, status := range domain.OrderStatuses() {
		text, err := status.MarshalText()
		require.NoError(t, err)

		var parsed domain.OrderStatus
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, status, parsed)
	}

	assert.Equal(t, domain.OrderStatusNone, domain.OrderStatus(0))
	assert.Len(t, domain.OrderStatuses(), 7)

	_, err := domain.ToOrderStatus("CONFIRMED")
	require.Error(t, err)

	_, err = domain.OrderStatus(42).MarshalText()
	require.Error(t, err)
	assert.Equal(t, "OrderStatus(42)", domain.OrderStatus(42).String())
}

func TestOrderFilter_Validate(t *testing.T) {
	require.EqualError(t, domain.OrderFilter{}.Validate(), "all fields are empty")
	require.EqualError(t, domain.OrderFilter{CreatedAt: &domain.TimeRange{}}.Validate(),
		"createdAt: both Before and After are nil")
	require.NoError(t, domain.OrderFilter{OwnerIDs: []string{"u1"}}.Validate())
}

func TestToRole(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.Role
		wantErr bool
	}{
		{in: "", want: domain.RoleUser},
		{in: "user", want: domain.RoleUser},
		{in: " Admin ", want: domain.RoleAdmin},
		{in: "root", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			role, err := domain.ToRole(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, role)
		})
	}

	assert.False(t, domain.Identity{UserID: " "}.IsAuthenticated())
	assert.True(t, domain.Identity{UserID: "u1", Role: domain.RoleAdmin}.IsAdmin())
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "12.50 EUR", eur("12.5").String())
	assert.Equal(t, "0.00 USD", domain.ZeroMoney(currency.USD).String())

	_, err := eur("1").Sub(domain.ZeroMoney(currency.USD))
	require.ErrorIs(t, err, domain.ErrCurrencyMismatch)

	assert.True(t, eur("-0.01").IsNegative())
	assertMoney(t, eur("7.5"), eur("2.5").Times(3))

	assert.False(t, eur("10.50").HasSubunits())
	assert.False(t, eur("10.500").HasSubunits())
	assert.True(t, eur("10.005").HasSubunits())
}

func eur(amount string) domain.Money {
	return domain.Money{Amount: decimal.RequireFromString(amount), Currency: currency.EUR}
}

func assertMoney(t *testing.T, expected, actual domain.Money) {
	t.Helper()

	assert.True(t, expected.Amount.Equal(actual.Amount), "expected %s, got %s", expected, actual)
	assert.Equal(t, expected.Currency, actual.Currency)
}
