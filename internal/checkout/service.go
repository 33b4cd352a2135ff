package checkout

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ikrcommerce/ikr-backend/internal/cart"
	"github.com/ikrcommerce/ikr-backend/internal/catalog"
	"github.com/ikrcommerce/ikr-backend/internal/coupons"
	"github.com/ikrcommerce/ikr-backend/internal/orders"
	"github.com/ikrcommerce/ikr-backend/internal/pricing"
	"github.com/ikrcommerce/ikr-backend/pkg/db/models"
	"github.com/ikrcommerce/ikr-backend/pkg/enums"
	pkgerrors "github.com/ikrcommerce/ikr-backend/pkg/errors"
	"github.com/ikrcommerce/ikr-backend/pkg/logger"
	"github.com/ikrcommerce/ikr-backend/pkg/outbox"
	"github.com/ikrcommerce/ikr-backend/pkg/outbox/payloads"
	"github.com/ikrcommerce/ikr-backend/pkg/types"
)

const currencyKES = "KES"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartAccess interface {
	Get(ctx context.Context, sessionID string) (*cart.Cart, error)
	Clear(ctx context.Context, sessionID string) error
}

type snapshotter interface {
	Snapshot(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*catalog.ItemSnapshot, error)
}

type couponChecker interface {
	Validate(ctx context.Context, input coupons.ValidateInput) (*models.Coupon, error)
	Discount(coupon *models.Coupon, amount decimal.Decimal) decimal.Decimal
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service turns a session cart into a captured order.
type Service interface {
	Execute(ctx context.Context, customerID uuid.UUID, sessionID string, input Input) (*models.Order, error)
}

// Input carries the capture form: where to ship, how to bill, and an
// optional coupon.
type Input struct {
	Shipping              types.Address
	Billing               types.Address
	BillingSameAsShipping bool
	CouponCode            string
	CustomerNote          *string
}

type service struct {
	tx      txRunner
	carts   cartAccess
	catalog snapshotter
	coupons couponChecker
	orders  orders.Repository
	engine  *pricing.Engine
	outbox  outboxPublisher
	logg    *logger.Logger
}

// NewService wires the checkout orchestrator. Every collaborator is
// required.
func NewService(
	tx txRunner,
	carts cartAccess,
	catalogSvc snapshotter,
	couponsSvc couponChecker,
	ordersRepo orders.Repository,
	engine *pricing.Engine,
	outboxSvc outboxPublisher,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog snapshotter required")
	}
	if couponsSvc == nil {
		return nil, fmt.Errorf("coupons service required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:      tx,
		carts:   carts,
		catalog: catalogSvc,
		coupons: couponsSvc,
		orders:  ordersRepo,
		engine:  engine,
		outbox:  outboxSvc,
		logg:    logg,
	}, nil
}

// Execute loads the session cart, re-snapshots every line against the live
// catalog, applies an optional coupon, prices the order, and captures it in
// one transaction. The cart is cleared only after the commit, so an aborted
// checkout leaves it intact.
func (s *service) Execute(ctx context.Context, customerID uuid.UUID, sessionID string, input Input) (*models.Order, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if err := input.Shipping.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}
	if !input.BillingSameAsShipping {
		if err := input.Billing.Validate(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid billing address")
		}
	}

	sessionCart, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sessionCart.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	items, lines, err := s.snapshotLines(ctx, sessionCart)
	if err != nil {
		return nil, err
	}
	subtotal := s.engine.Subtotal(lines)

	var coupon *models.Coupon
	discount := decimal.Zero
	if code := strings.TrimSpace(input.CouponCode); code != "" {
		coupon, err = s.coupons.Validate(ctx, coupons.ValidateInput{
			Code:        code,
			OrderAmount: subtotal,
			CustomerID:  &customerID,
		})
		if err != nil {
			return nil, err
		}
		discount = s.coupons.Discount(coupon, subtotal)
	}

	quote := s.engine.Quote(lines, discount)

	order := &models.Order{
		ID:                    uuid.New(),
		CustomerID:            &customerID,
		Status:                enums.OrderStatusPending,
		PaymentStatus:         enums.OrderPaymentStatusPending,
		Shipping:              input.Shipping,
		Billing:               input.Billing,
		BillingSameAsShipping: input.BillingSameAsShipping,
		Subtotal:              quote.Subtotal,
		TaxAmount:             quote.TaxAmount,
		ShippingAmount:        quote.ShippingAmount,
		DiscountAmount:        quote.DiscountAmount,
		TotalAmount:           quote.TotalAmount,
		CustomerNote:          input.CustomerNote,
	}
	if coupon != nil {
		order.CouponID = &coupon.ID
		order.CouponCode = &coupon.Code
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		if created, err = repo.Create(ctx, order); err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = created.ID
		}
		if err = repo.CreateItems(ctx, items); err != nil {
			return err
		}
		created.Items = items

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   created.ID,
			Data: payloads.OrderCreatedEvent{
				OrderID:     created.ID,
				OrderNumber: created.OrderNumber,
				CustomerID:  created.CustomerID,
				TotalAmount: created.TotalAmount,
				Currency:    currencyKES,
				ItemCount:   created.ItemsCount(),
			},
		})
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "capture order")
	}

	// The order exists either way; a stale cart is an inconvenience, not a
	// reason to fail the capture.
	if err := s.carts.Clear(ctx, sessionID); err != nil {
		s.logg.Error(s.logg.WithOrderNumber(ctx, created.OrderNumber), "clear cart after checkout", err)
	}

	return created, nil
}

// snapshotLines re-reads every cart line from the catalog so the order
// captures current prices and purchasable products only. Lines are walked
// in key order to keep item rows deterministic.
func (s *service) snapshotLines(ctx context.Context, sessionCart *cart.Cart) ([]models.OrderItem, []pricing.Line, error) {
	keys := make([]string, 0, len(sessionCart.Items))
	for key := range sessionCart.Items {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	items := make([]models.OrderItem, 0, len(keys))
	lines := make([]pricing.Line, 0, len(keys))
	for _, key := range keys {
		line := sessionCart.Items[key]
		if line.Quantity <= 0 {
			continue
		}
		snapshot, err := s.catalog.Snapshot(ctx, line.ProductID, line.VariantID)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, models.OrderItem{
			ID:          uuid.New(),
			ProductID:   snapshot.ProductID,
			VariantID:   snapshot.VariantID,
			ProductName: snapshot.Name,
			SKU:         snapshot.SKU,
			UnitPrice:   snapshot.UnitPrice,
			Quantity:    line.Quantity,
			TotalPrice:  snapshot.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
		lines = append(lines, pricing.Line{UnitPrice: snapshot.UnitPrice, Quantity: line.Quantity})
	}
	if len(items) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	return items, lines, nil
}
