package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ikrcommerce/ikr-backend/pkg/db/models"
)

// Repository defines persistence operations for payment attempts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Payment, error)
	LatestByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	ApplyOutcome(ctx context.Context, paymentID uuid.UUID, updates map[string]any) (bool, error)
}
