package coupons

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
)

func setupCouponsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	coupons := `
CREATE TABLE IF NOT EXISTS coupons (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  description TEXT,
  discount_type TEXT NOT NULL,
  value NUMERIC NOT NULL,
  minimum_amount NUMERIC,
  maximum_discount NUMERIC,
  usage_limit INTEGER,
  usage_count INTEGER NOT NULL DEFAULT 0,
  first_order_only INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  valid_from DATETIME NOT NULL,
  valid_until DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  customer_id TEXT,
  payment_status TEXT NOT NULL
);`
	require.NoError(t, db.Exec(coupons).Error)
	require.NoError(t, db.Exec(orders).Error)

	t.Cleanup(func() {
		db.Exec("DELETE FROM coupons")
		db.Exec("DELETE FROM orders")
	})

	return db
}

func seedCoupon(t *testing.T, db *gorm.DB, mutate func(*models.Coupon)) *models.Coupon {
	t.Helper()

	coupon := &models.Coupon{
		ID:           uuid.New(),
		Code:         "SAVE" + uuid.NewString()[:8],
		DiscountType: enums.DiscountTypeFixed,
		Value:        decimal.NewFromInt(100),
		IsActive:     true,
		ValidFrom:    time.Now().Add(-time.Hour),
		ValidUntil:   time.Now().Add(time.Hour),
	}
	if mutate != nil {
		mutate(coupon)
	}
	require.NoError(t, db.Create(coupon).Error)
	return coupon
}

func TestRepositoryFindByCodeCaseInsensitive(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)
	coupon := seedCoupon(t, db, func(c *models.Coupon) { c.Code = "WELCOME10" })

	got, err := repo.FindByCode(context.Background(), "  welcome10 ")
	require.NoError(t, err)
	assert.Equal(t, coupon.ID, got.ID)

	_, err = repo.FindByCode(context.Background(), "MISSING")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepositoryIncrementUsage(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)

	limit := 2
	coupon := seedCoupon(t, db, func(c *models.Coupon) { c.UsageLimit = &limit })

	for i := 0; i < limit; i++ {
		ok, err := repo.IncrementUsage(context.Background(), coupon.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := repo.IncrementUsage(context.Background(), coupon.ID)
	require.NoError(t, err)
	assert.False(t, ok, "increments past the cap must be refused")

	got, err := repo.FindByID(context.Background(), coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, limit, got.UsageCount)
}

func TestRepositoryIncrementUsageUnlimited(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)
	coupon := seedCoupon(t, db, nil)

	ok, err := repo.IncrementUsage(context.Background(), coupon.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.FindByID(context.Background(), coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsageCount)
}

func TestRepositoryCountOrders(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)

	customerID := uuid.New()
	otherID := uuid.New()
	insert := "INSERT INTO orders (id, customer_id, payment_status) VALUES (?, ?, ?)"
	require.NoError(t, db.Exec(insert, uuid.NewString(), customerID.String(), "paid").Error)
	require.NoError(t, db.Exec(insert, uuid.NewString(), customerID.String(), "pending").Error)
	require.NoError(t, db.Exec(insert, uuid.NewString(), customerID.String(), "failed").Error)
	require.NoError(t, db.Exec(insert, uuid.NewString(), otherID.String(), "paid").Error)

	count, err := repo.CountOrders(context.Background(), customerID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count, "unpaid orders count against first-order eligibility")

	count, err = repo.CountOrders(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestRepositoryWithTx(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := repo.WithTx(tx).Create(context.Background(), &models.Coupon{
			ID:           uuid.New(),
			Code:         "TXONLY",
			DiscountType: enums.DiscountTypeFixed,
			Value:        decimal.NewFromInt(50),
			IsActive:     true,
			ValidFrom:    time.Now(),
			ValidUntil:   time.Now().Add(time.Hour),
		})
		if err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	_, err = repo.FindByCode(context.Background(), "TXONLY")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
