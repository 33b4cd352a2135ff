package coupons

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ikrcommerce/ikr-backend/pkg/db/models"
)

// Repository defines persistence operations for coupons.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	CountOrders(ctx context.Context, customerID uuid.UUID) (int64, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error)
	Create(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error)
}
