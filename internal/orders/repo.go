package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ikrcommerce/ikr-backend/pkg/db/models"
	"github.com/ikrcommerce/ikr-backend/pkg/enums"
	"github.com/ikrcommerce/ikr-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Omit("Items").Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "order_number = ?", strings.TrimSpace(orderNumber)).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List pages through a customer's orders with keyset pagination on
// (created_at, id) descending.
func (r *repository) List(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Table("orders o").
		Select(strings.Join([]string{
			"o.id",
			"o.order_number",
			"o.status",
			"o.payment_status",
			"o.total_amount",
			"COALESCE((SELECT SUM(i.quantity) FROM order_items i WHERE i.order_id = o.id), 0) AS items_count",
			"o.created_at",
		}, ", ")).
		Where("o.customer_id = ?", customerID)

	if filters.Status != nil {
		qb = qb.Where("o.status = ?", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		qb = qb.Where("o.payment_status = ?", *filters.PaymentStatus)
	}
	if filters.DateFrom != nil {
		qb = qb.Where("o.created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		qb = qb.Where("o.created_at <= ?", *filters.DateTo)
	}

	if cursor != nil {
		qb = qb.Where("(o.created_at < ?) OR (o.created_at = ? AND o.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	qb = qb.Order("o.created_at DESC").Order("o.id DESC").Limit(limitWithBuffer)

	var records []orderSummaryRecord
	if err := qb.Scan(&records).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(records) > pageSize {
		records = records[:pageSize]
		last := records[len(records)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]OrderSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, record.toSummary())
	}

	return &OrderList{Orders: summaries, NextCursor: nextCursor}, nil
}

func (r *repository) Save(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Omit("Items").Save(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) UpdateFields(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).
		Error
}

type orderSummaryRecord struct {
	ID            uuid.UUID
	OrderNumber   string
	Status        string
	PaymentStatus string
	TotalAmount   decimal.Decimal
	ItemsCount    int
	CreatedAt     time.Time
}

func (r orderSummaryRecord) toSummary() OrderSummary {
	return OrderSummary{
		ID:            r.ID,
		OrderNumber:   r.OrderNumber,
		Status:        enums.OrderStatus(r.Status),
		PaymentStatus: enums.OrderPaymentStatus(r.PaymentStatus),
		TotalAmount:   r.TotalAmount,
		ItemsCount:    r.ItemsCount,
		CreatedAt:     r.CreatedAt,
	}
}
