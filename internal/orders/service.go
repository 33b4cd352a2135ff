package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ikrcommerce/ikr-backend/internal/pricing"
	"github.com/ikrcommerce/ikr-backend/pkg/db/models"
	"github.com/ikrcommerce/ikr-backend/pkg/enums"
	pkgerrors "github.com/ikrcommerce/ikr-backend/pkg/errors"
	"github.com/ikrcommerce/ikr-backend/pkg/outbox"
	"github.com/ikrcommerce/ikr-backend/pkg/outbox/payloads"
	"github.com/ikrcommerce/ikr-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines order-level operations beyond repository reads.
type Service interface {
	Get(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error)
	GetByNumber(ctx context.Context, customerID uuid.UUID, orderNumber string) (*models.Order, error)
	List(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	CalculateTotals(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	pricing *pricing.Engine
	outbox  outboxPublisher
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, engine *pricing.Engine, publisher outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, pricing: engine, outbox: publisher}, nil
}

// allowedTransitions is the validated status machine. Cancellation and
// refunds are reachable from every non-terminal state; anything absent from
// the table is rejected.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusConfirmed, enums.OrderStatusCancelled, enums.OrderStatusRefunded},
	enums.OrderStatusConfirmed:  {enums.OrderStatusProcessing, enums.OrderStatusCancelled, enums.OrderStatusRefunded},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled, enums.OrderStatusRefunded},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered, enums.OrderStatusCancelled, enums.OrderStatusRefunded},
	enums.OrderStatusDelivered:  {},
	enums.OrderStatusCancelled:  {},
	enums.OrderStatusRefunded:   {},
}

func transitionAllowed(from, to enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func (s *service) Get(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if err := ensureOwnership(order, customerID); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) GetByNumber(ctx context.Context, customerID uuid.UUID, orderNumber string) (*models.Order, error) {
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if err := ensureOwnership(order, customerID); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	list, err := s.repo.List(ctx, customerID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// CalculateTotals reloads the order's items, reprices them, and persists the
// aggregates in one transaction. The stored discount is carried through
// unchanged.
func (s *service) CalculateTotals(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}

		lines := make([]pricing.Line, 0, len(order.Items))
		for _, item := range order.Items {
			lines = append(lines, pricing.Line{UnitPrice: item.UnitPrice, Quantity: item.Quantity})
		}

		quote := s.pricing.Quote(lines, order.DiscountAmount)
		order.Subtotal = quote.Subtotal
		order.TaxAmount = quote.TaxAmount
		order.ShippingAmount = quote.ShippingAmount
		order.DiscountAmount = quote.DiscountAmount
		order.TotalAmount = quote.TotalAmount

		updated, err = repo.Save(ctx, order)
		return err
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calculate totals")
	}
	return updated, nil
}

// Transition applies a status change through the validated table, stamps
// shipment bookkeeping, and queues the status event in the same transaction.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if !input.To.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", input.To))
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}

		from := order.Status
		if from == input.To {
			updated = order
			return nil
		}
		if !transitionAllowed(from, input.To) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot transition order from %s to %s", from, input.To))
		}

		now := time.Now()
		order.Status = input.To
		switch input.To {
		case enums.OrderStatusShipped:
			if input.TrackingNumber == nil || *input.TrackingNumber == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "tracking number is required to mark an order shipped")
			}
			order.TrackingNumber = input.TrackingNumber
			order.ShippedAt = &now
		case enums.OrderStatusDelivered:
			order.DeliveredAt = &now
		}
		if input.InternalNote != nil {
			order.InternalNote = input.InternalNote
		}

		if updated, err = repo.Save(ctx, order); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				From:        from,
				To:          input.To,
				ChangedAt:   now,
			},
		})
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition order")
	}
	return updated, nil
}

func ensureOwnership(order *models.Order, customerID uuid.UUID) error {
	if order.CustomerID == nil || *order.CustomerID != customerID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return nil
}
