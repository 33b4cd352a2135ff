package payments

import (
	"context"
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

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  method TEXT NOT NULL DEFAULT 'mpesa',
  status TEXT NOT NULL DEFAULT 'pending',
  amount NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'KES',
  phone_number TEXT NOT NULL,
  merchant_request_id TEXT,
  checkout_request_id TEXT UNIQUE,
  result_code TEXT,
  result_description TEXT,
  mpesa_receipt_number TEXT,
  raw_callback TEXT,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(ddl).Error)

	t.Cleanup(func() {
		conn.Exec("DELETE FROM payments")
	})

	return conn
}

func seedPayment(t *testing.T, repo Repository, orderID uuid.UUID, checkoutRequestID string, createdAt time.Time) *models.Payment {
	t.Helper()
	payment := &models.Payment{
		ID:                uuid.New(),
		OrderID:           orderID,
		Method:            enums.PaymentMethodMpesa,
		Status:            enums.PaymentStatusPending,
		Amount:            decimal.NewFromInt(1740),
		Currency:          "KES",
		PhoneNumber:       "254712345678",
		CheckoutRequestID: strPtr(checkoutRequestID),
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
	created, err := repo.Create(context.Background(), payment)
	require.NoError(t, err)
	return created
}

func TestRepositoryFindByCheckoutRequestID(t *testing.T) {
	conn := setupPaymentsTestDB(t)
	repo := NewRepository(conn)

	seeded := seedPayment(t, repo, uuid.New(), "ws_CO_100", time.Now())

	found, err := repo.FindByCheckoutRequestID(context.Background(), "ws_CO_100")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)

	_, err = repo.FindByCheckoutRequestID(context.Background(), "ws_CO_missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryLatestByOrder(t *testing.T) {
	conn := setupPaymentsTestDB(t)
	repo := NewRepository(conn)

	orderID := uuid.New()
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	seedPayment(t, repo, orderID, "ws_CO_200", base)
	newest := seedPayment(t, repo, orderID, "ws_CO_201", base.Add(time.Hour))
	seedPayment(t, repo, uuid.New(), "ws_CO_202", base.Add(2*time.Hour))

	latest, err := repo.LatestByOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, newest.ID, latest.ID)
}

func TestRepositoryApplyOutcomeIsCompareAndSet(t *testing.T) {
	conn := setupPaymentsTestDB(t)
	repo := NewRepository(conn)

	payment := seedPayment(t, repo, uuid.New(), "ws_CO_300", time.Now())

	completedAt := time.Now().UTC()
	applied, err := repo.ApplyOutcome(context.Background(), payment.ID, map[string]any{
		"status":               enums.PaymentStatusSuccess,
		"result_code":          "0",
		"mpesa_receipt_number": "SGR7TYKQ1X",
		"completed_at":         completedAt,
	})
	require.NoError(t, err)
	assert.True(t, applied)

	// The losing path sees zero rows and must not overwrite the verdict.
	applied, err = repo.ApplyOutcome(context.Background(), payment.ID, map[string]any{
		"status":      enums.PaymentStatusFailed,
		"result_code": "1032",
	})
	require.NoError(t, err)
	assert.False(t, applied)

	settled, err := repo.FindByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusSuccess, settled.Status)
	require.NotNil(t, settled.MpesaReceiptNumber)
	assert.Equal(t, "SGR7TYKQ1X", *settled.MpesaReceiptNumber)
	require.NotNil(t, settled.CompletedAt)
}
