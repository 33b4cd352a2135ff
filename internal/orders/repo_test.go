package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ikrcommerce/ikr-backend/pkg/db/models"
	"github.com/ikrcommerce/ikr-backend/pkg/enums"
	"github.com/ikrcommerce/ikr-backend/pkg/pagination"
	"github.com/ikrcommerce/ikr-backend/pkg/types"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ordersDDL := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  customer_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  shipping_full_name TEXT NOT NULL DEFAULT '',
  shipping_phone TEXT NOT NULL DEFAULT '',
  shipping_email TEXT NOT NULL DEFAULT '',
  shipping_line1 TEXT NOT NULL DEFAULT '',
  shipping_line2 TEXT NOT NULL DEFAULT '',
  shipping_city TEXT NOT NULL DEFAULT '',
  shipping_postal_code TEXT NOT NULL DEFAULT '',
  shipping_country TEXT NOT NULL DEFAULT '',
  billing_full_name TEXT NOT NULL DEFAULT '',
  billing_phone TEXT NOT NULL DEFAULT '',
  billing_email TEXT NOT NULL DEFAULT '',
  billing_line1 TEXT NOT NULL DEFAULT '',
  billing_line2 TEXT NOT NULL DEFAULT '',
  billing_city TEXT NOT NULL DEFAULT '',
  billing_postal_code TEXT NOT NULL DEFAULT '',
  billing_country TEXT NOT NULL DEFAULT '',
  billing_same_as_shipping INTEGER NOT NULL DEFAULT 1,
  shipping_method_id TEXT,
  coupon_id TEXT,
  coupon_code TEXT,
  subtotal NUMERIC NOT NULL DEFAULT 0,
  tax_amount NUMERIC NOT NULL DEFAULT 0,
  shipping_amount NUMERIC NOT NULL DEFAULT 0,
  discount_amount NUMERIC NOT NULL DEFAULT 0,
  total_amount NUMERIC NOT NULL DEFAULT 0,
  customer_note TEXT,
  internal_note TEXT,
  tracking_number TEXT,
  shipped_at DATETIME,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	itemsDDL := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  product_name TEXT NOT NULL,
  sku TEXT NOT NULL,
  unit_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  total_price NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(ordersDDL).Error)
	require.NoError(t, conn.Exec(itemsDDL).Error)

	t.Cleanup(func() {
		conn.Exec("DELETE FROM order_items")
		conn.Exec("DELETE FROM orders")
	})

	return conn
}

func testAddress() types.Address {
	return types.Address{
		FullName:   "Wanjiku Kamau",
		Phone:      "254712345678",
		Email:      "wanjiku@example.com",
		Line1:      "Kimathi Street 12",
		City:       "Nairobi",
		PostalCode: "00100",
		Country:    "KE",
	}
}

func TestRepositoryCreateAssignsOrderNumber(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)

	customerID := uuid.New()
	order := &models.Order{
		ID:                    uuid.New(),
		CustomerID:            &customerID,
		Status:                enums.OrderStatusPending,
		PaymentStatus:         enums.OrderPaymentStatusPending,
		Shipping:              testAddress(),
		BillingSameAsShipping: true,
	}

	created, err := repo.Create(context.Background(), order)
	require.NoError(t, err)
	assert.Regexp(t, `^IKR-[0-9A-F]{8}$`, created.OrderNumber)
	assert.Equal(t, created.Shipping, created.Billing, "billing copied from shipping")

	require.NoError(t, repo.CreateItems(context.Background(), []models.OrderItem{{
		ID:          uuid.New(),
		OrderID:     created.ID,
		ProductID:   uuid.New(),
		ProductName: "Maasai Blanket",
		SKU:         "IKR-9F2C41AB",
		UnitPrice:   decimal.RequireFromString("350.50"),
		Quantity:    3,
	}}))

	found, err := repo.FindByNumber(context.Background(), created.OrderNumber)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.True(t, found.Items[0].TotalPrice.Equal(decimal.RequireFromString("1051.50")),
		"line total recomputed on save, got %s", found.Items[0].TotalPrice)
}

func TestRepositoryFindByIDMissing(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepositoryListPagesAndFilters(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)

	customerID := uuid.New()
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		status := enums.OrderStatusPending
		if i == 0 {
			status = enums.OrderStatusConfirmed
		}
		order := &models.Order{
			ID:          uuid.New(),
			CustomerID:  &customerID,
			Status:      status,
			Shipping:    testAddress(),
			TotalAmount: decimal.NewFromInt(int64(100 * (i + 1))),
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
			UpdatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
		_, err := repo.Create(context.Background(), order)
		require.NoError(t, err)

		require.NoError(t, repo.CreateItems(context.Background(), []models.OrderItem{{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   uuid.New(),
			ProductName: "Shuka",
			SKU:         "IKR-00000001",
			UnitPrice:   decimal.NewFromInt(100),
			Quantity:    2,
		}}))
	}
	// An order belonging to someone else must never appear.
	otherID := uuid.New()
	_, err := repo.Create(context.Background(), &models.Order{
		ID: uuid.New(), CustomerID: &otherID, Shipping: testAddress(),
	})
	require.NoError(t, err)

	page1, err := repo.List(context.Background(), customerID, pagination.Params{Limit: 3}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, page1.Orders, 3)
	require.NotEmpty(t, page1.NextCursor)
	assert.Equal(t, 2, page1.Orders[0].ItemsCount)

	page2, err := repo.List(context.Background(), customerID,
		pagination.Params{Limit: 3, Cursor: page1.NextCursor}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, page2.Orders, 2)
	assert.Empty(t, page2.NextCursor)

	confirmed := enums.OrderStatusConfirmed
	filtered, err := repo.List(context.Background(), customerID,
		pagination.Params{Limit: 10}, ListFilters{Status: &confirmed})
	require.NoError(t, err)
	require.Len(t, filtered.Orders, 1)
	assert.Equal(t, enums.OrderStatusConfirmed, filtered.Orders[0].Status)
}

func TestRepositorySavePersistsTotals(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)

	customerID := uuid.New()
	order, err := repo.Create(context.Background(), &models.Order{
		ID: uuid.New(), CustomerID: &customerID, Shipping: testAddress(),
	})
	require.NoError(t, err)

	order.Subtotal = decimal.NewFromInt(1500)
	order.TaxAmount = decimal.NewFromInt(240)
	order.TotalAmount = decimal.NewFromInt(1740)
	_, err = repo.Save(context.Background(), order)
	require.NoError(t, err)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, found.TotalAmount.Equal(decimal.NewFromInt(1740)))
	assert.True(t, found.Subtotal.Equal(decimal.NewFromInt(1500)))
}
