package checkout

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ikrcommerce/ikr-backend/internal/cart"
	"github.com/ikrcommerce/ikr-backend/internal/catalog"
	"github.com/ikrcommerce/ikr-backend/internal/coupons"
	"github.com/ikrcommerce/ikr-backend/internal/orders"
	"github.com/ikrcommerce/ikr-backend/internal/pricing"
	"github.com/ikrcommerce/ikr-backend/pkg/config"
	"github.com/ikrcommerce/ikr-backend/pkg/db/models"
	"github.com/ikrcommerce/ikr-backend/pkg/enums"
	pkgerrors "github.com/ikrcommerce/ikr-backend/pkg/errors"
	"github.com/ikrcommerce/ikr-backend/pkg/logger"
	"github.com/ikrcommerce/ikr-backend/pkg/outbox"
	"github.com/ikrcommerce/ikr-backend/pkg/pagination"
	"github.com/ikrcommerce/ikr-backend/pkg/types"
)

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubCarts struct {
	cart    *cart.Cart
	cleared []string
}

func (s *stubCarts) Get(_ context.Context, _ string) (*cart.Cart, error) {
	if s.cart == nil {
		return cart.NewCart(), nil
	}
	return s.cart, nil
}

func (s *stubCarts) Clear(_ context.Context, sessionID string) error {
	s.cleared = append(s.cleared, sessionID)
	return nil
}

type stubSnapshotter struct {
	snapshots map[uuid.UUID]*catalog.ItemSnapshot
}

func (s *stubSnapshotter) Snapshot(_ context.Context, productID uuid.UUID, _ *uuid.UUID) (*catalog.ItemSnapshot, error) {
	snapshot, ok := s.snapshots[productID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return snapshot, nil
}

type stubCoupons struct {
	coupon   *models.Coupon
	err      error
	discount decimal.Decimal
}

func (s *stubCoupons) Validate(_ context.Context, _ coupons.ValidateInput) (*models.Coupon, error) {
	return s.coupon, s.err
}

func (s *stubCoupons) Discount(_ *models.Coupon, _ decimal.Decimal) decimal.Decimal {
	return s.discount
}

type stubOrdersRepo struct {
	created *models.Order
	items   []models.OrderItem
}

func (s *stubOrdersRepo) WithTx(_ *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	if err := order.BeforeSave(nil); err != nil {
		return nil, err
	}
	s.created = order
	return order, nil
}

func (s *stubOrdersRepo) CreateItems(_ context.Context, items []models.OrderItem) error {
	s.items = items
	return nil
}

func (s *stubOrdersRepo) FindByID(_ context.Context, _ uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) FindByNumber(_ context.Context, _ string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) List(_ context.Context, _ uuid.UUID, _ pagination.Params, _ orders.ListFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (s *stubOrdersRepo) Save(_ context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (s *stubOrdersRepo) UpdateFields(_ context.Context, _ uuid.UUID, _ map[string]any) error {
	return nil
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func sessionCartWith(items ...cart.Item) *cart.Cart {
	c := cart.NewCart()
	for _, item := range items {
		c.Items[item.ProductID.String()] = item
	}
	return c
}

func shippingAddress() types.Address {
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

type checkoutFixture struct {
	svc     Service
	carts   *stubCarts
	coupons *stubCoupons
	repo    *stubOrdersRepo
	outbox  *stubOutbox
}

func newCheckoutFixture(t *testing.T, c *cart.Cart, snapshots map[uuid.UUID]*catalog.ItemSnapshot, coup *stubCoupons) checkoutFixture {
	t.Helper()
	if coup == nil {
		coup = &stubCoupons{}
	}
	carts := &stubCarts{cart: c}
	repo := &stubOrdersRepo{}
	ob := &stubOutbox{}
	svc, err := NewService(
		stubTx{},
		carts,
		&stubSnapshotter{snapshots: snapshots},
		coup,
		repo,
		pricing.NewEngine(config.PricingConfig{}),
		ob,
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return checkoutFixture{svc: svc, carts: carts, coupons: coup, repo: repo, outbox: ob}
}

func TestExecuteCapturesOrder(t *testing.T) {
	productA := uuid.New()
	productB := uuid.New()
	snapshots := map[uuid.UUID]*catalog.ItemSnapshot{
		productA: {ProductID: productA, Name: "Maasai Blanket", SKU: "IKR-9F2C41AB", UnitPrice: decimal.NewFromInt(1000)},
		productB: {ProductID: productB, Name: "Kiondo Basket", SKU: "IKR-1A2B3C4D", UnitPrice: decimal.NewFromInt(250)},
	}
	sessionCart := sessionCartWith(
		cart.Item{ProductID: productA, Quantity: 1, Price: decimal.NewFromInt(1000), Name: "Maasai Blanket"},
		cart.Item{ProductID: productB, Quantity: 2, Price: decimal.NewFromInt(250), Name: "Kiondo Basket"},
	)
	fx := newCheckoutFixture(t, sessionCart, snapshots, nil)

	order, err := fx.svc.Execute(context.Background(), uuid.New(), "sess-1", Input{
		Shipping:              shippingAddress(),
		BillingSameAsShipping: true,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !order.Subtotal.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("subtotal = %s, want 1500", order.Subtotal)
	}
	if !order.TaxAmount.Equal(decimal.NewFromInt(240)) {
		t.Fatalf("tax = %s, want 240", order.TaxAmount)
	}
	if !order.ShippingAmount.IsZero() {
		t.Fatalf("shipping = %s, want 0 at the free threshold", order.ShippingAmount)
	}
	if !order.TotalAmount.Equal(decimal.NewFromInt(1740)) {
		t.Fatalf("total = %s, want 1740", order.TotalAmount)
	}
	if order.OrderNumber == "" {
		t.Fatal("order number not assigned")
	}
	if order.Billing != order.Shipping {
		t.Fatal("billing not copied from shipping")
	}
	if len(fx.repo.items) != 2 {
		t.Fatalf("created %d items, want 2", len(fx.repo.items))
	}
	if len(fx.outbox.events) != 1 || fx.outbox.events[0].EventType != enums.EventOrderCreated {
		t.Fatalf("events = %+v, want one order_created", fx.outbox.events)
	}
	if len(fx.carts.cleared) != 1 || fx.carts.cleared[0] != "sess-1" {
		t.Fatalf("cart not cleared, got %v", fx.carts.cleared)
	}
}

func TestExecuteRejectsEmptyCart(t *testing.T) {
	fx := newCheckoutFixture(t, cart.NewCart(), nil, nil)

	_, err := fx.svc.Execute(context.Background(), uuid.New(), "sess-1", Input{
		Shipping:              shippingAddress(),
		BillingSameAsShipping: true,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("err = %v, want VALIDATION", err)
	}
	if fx.repo.created != nil {
		t.Fatal("order created from an empty cart")
	}
}

func TestExecuteAppliesCoupon(t *testing.T) {
	productID := uuid.New()
	snapshots := map[uuid.UUID]*catalog.ItemSnapshot{
		productID: {ProductID: productID, Name: "Shuka", SKU: "IKR-00000001", UnitPrice: decimal.NewFromInt(500)},
	}
	coupon := &models.Coupon{ID: uuid.New(), Code: "KARIBU100"}
	fx := newCheckoutFixture(t, sessionCartWith(cart.Item{ProductID: productID, Quantity: 1, Price: decimal.NewFromInt(500)}), snapshots, &stubCoupons{
		coupon:   coupon,
		discount: decimal.NewFromInt(100),
	})

	order, err := fx.svc.Execute(context.Background(), uuid.New(), "sess-2", Input{
		Shipping:              shippingAddress(),
		BillingSameAsShipping: true,
		CouponCode:            "KARIBU100",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// 500 + 80 tax + 200 shipping - 100 discount.
	if !order.TotalAmount.Equal(decimal.NewFromInt(680)) {
		t.Fatalf("total = %s, want 680", order.TotalAmount)
	}
	if order.CouponID == nil || *order.CouponID != coupon.ID {
		t.Fatal("coupon id not stamped on the order")
	}
	if order.CouponCode == nil || *order.CouponCode != "KARIBU100" {
		t.Fatalf("coupon code = %v, want KARIBU100", order.CouponCode)
	}
}

func TestExecuteRejectsIneligibleCoupon(t *testing.T) {
	productID := uuid.New()
	snapshots := map[uuid.UUID]*catalog.ItemSnapshot{
		productID: {ProductID: productID, Name: "Shuka", SKU: "IKR-00000001", UnitPrice: decimal.NewFromInt(500)},
	}
	fx := newCheckoutFixture(t, sessionCartWith(cart.Item{ProductID: productID, Quantity: 1, Price: decimal.NewFromInt(500)}), snapshots, &stubCoupons{
		err: pkgerrors.New(pkgerrors.CodeValidation, "this coupon has expired"),
	})

	_, err := fx.svc.Execute(context.Background(), uuid.New(), "sess-3", Input{
		Shipping:              shippingAddress(),
		BillingSameAsShipping: true,
		CouponCode:            "EXPIRED",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Message() != "this coupon has expired" {
		t.Fatalf("err = %v, want coupon rejection", err)
	}
	if fx.repo.created != nil {
		t.Fatal("order created despite coupon rejection")
	}
	if len(fx.carts.cleared) != 0 {
		t.Fatal("cart cleared despite failed checkout")
	}
}

func TestExecuteFailsWhenProductGone(t *testing.T) {
	fx := newCheckoutFixture(t, sessionCartWith(cart.Item{ProductID: uuid.New(), Quantity: 1, Price: decimal.NewFromInt(500)}), nil, nil)

	_, err := fx.svc.Execute(context.Background(), uuid.New(), "sess-4", Input{
		Shipping:              shippingAddress(),
		BillingSameAsShipping: true,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
	if len(fx.carts.cleared) != 0 {
		t.Fatal("cart cleared despite failed checkout")
	}
}

func TestExecuteValidatesShippingAddress(t *testing.T) {
	fx := newCheckoutFixture(t, cart.NewCart(), nil, nil)

	_, err := fx.svc.Execute(context.Background(), uuid.New(), "sess-5", Input{
		Shipping:              types.Address{FullName: "Wanjiku Kamau"},
		BillingSameAsShipping: true,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("err = %v, want VALIDATION", err)
	}
}
