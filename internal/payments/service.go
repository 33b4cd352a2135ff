package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ikrcommerce/ikr-backend/internal/coupons"
	"github.com/ikrcommerce/ikr-backend/internal/orders"
	"github.com/ikrcommerce/ikr-backend/pkg/db/models"
	"github.com/ikrcommerce/ikr-backend/pkg/enums"
	pkgerrors "github.com/ikrcommerce/ikr-backend/pkg/errors"
	"github.com/ikrcommerce/ikr-backend/pkg/logger"
	"github.com/ikrcommerce/ikr-backend/pkg/mpesa"
	"github.com/ikrcommerce/ikr-backend/pkg/outbox"
	"github.com/ikrcommerce/ikr-backend/pkg/outbox/payloads"
	"github.com/ikrcommerce/ikr-backend/pkg/types"
)

const currencyKES = "KES"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service reconciles M-Pesa payments against orders. The push callback and
// the status poll race each other for every payment; both funnel through
// the same compare-and-set so whichever lands first wins and the loser is a
// no-op.
type Service interface {
	Initiate(ctx context.Context, orderID, customerID uuid.UUID, phone string) (*models.Payment, error)
	Poll(ctx context.Context, orderID, customerID uuid.UUID) (*models.Payment, error)
	HandleCallback(ctx context.Context, envelope CallbackEnvelope) error
}

type service struct {
	tx       txRunner
	payments Repository
	orders   orders.Repository
	coupons  coupons.Repository
	gateway  Gateway
	outbox   outboxPublisher
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the reconciliation workflow. Every collaborator is
// required.
func NewService(
	tx txRunner,
	paymentsRepo Repository,
	ordersRepo orders.Repository,
	couponsRepo coupons.Repository,
	gateway Gateway,
	outboxSvc outboxPublisher,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if paymentsRepo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if couponsRepo == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:       tx,
		payments: paymentsRepo,
		orders:   ordersRepo,
		coupons:  couponsRepo,
		gateway:  gateway,
		outbox:   outboxSvc,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Initiate pushes a payment prompt to the customer's phone and records the
// attempt. The payment row is created even when the gateway declines the
// push, so every attempt leaves an audit trail.
func (s *service) Initiate(ctx context.Context, orderID, customerID uuid.UUID, phone string) (*models.Payment, error) {
	order, err := s.loadOwnedOrder(ctx, orderID, customerID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}
	switch order.Status {
	case enums.OrderStatusCancelled, enums.OrderStatusRefunded:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not payable")
	}

	phone = strings.TrimSpace(phone)
	if phone == "" {
		phone = strings.TrimSpace(order.Shipping.Phone)
	}
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone number is required")
	}

	ack, err := s.gateway.InitiatePayment(ctx, mpesa.STKPushRequest{
		PhoneNumber:      phone,
		Amount:           int(order.TotalAmount.IntPart()),
		AccountReference: "Order " + order.OrderNumber,
		Description:      "Payment for order " + order.OrderNumber,
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initiate payment")
	}

	payment := &models.Payment{
		ID:                uuid.New(),
		OrderID:           order.ID,
		Method:            enums.PaymentMethodMpesa,
		Status:            enums.PaymentStatusPending,
		Amount:            order.TotalAmount,
		Currency:          currencyKES,
		PhoneNumber:       phone,
		MerchantRequestID: optional(ack.MerchantRequestID),
		CheckoutRequestID: optional(ack.CheckoutRequestID),
		ResultCode:        optional(ack.ResponseCode),
		ResultDescription: optional(ack.ResponseDescription),
	}
	if !ack.Accepted() {
		payment.Status = enums.PaymentStatusFailed
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.payments.WithTx(tx).Create(ctx, payment); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentInitiated,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Data: payloads.PaymentInitiatedEvent{
				PaymentID:         payment.ID,
				OrderID:           order.ID,
				OrderNumber:       order.OrderNumber,
				Amount:            payment.Amount,
				PhoneNumber:       payment.PhoneNumber,
				CheckoutRequestID: ack.CheckoutRequestID,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment attempt")
	}

	if !ack.Accepted() {
		return payment, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway declined the push")
	}
	return payment, nil
}

// Poll asks the gateway for the outcome of the latest payment attempt. A
// transport failure leaves the payment untouched; a definitive answer is
// applied through the same compare-and-set the callback uses.
func (s *service) Poll(ctx context.Context, orderID, customerID uuid.UUID) (*models.Payment, error) {
	order, err := s.loadOwnedOrder(ctx, orderID, customerID)
	if err != nil {
		return nil, err
	}

	payment, err := s.payments.LatestByOrder(ctx, order.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment found for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.IsSettled() {
		return payment, nil
	}
	if payment.CheckoutRequestID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment has no gateway correlation id")
	}

	verdict, err := s.gateway.ConfirmPayment(ctx, *payment.CheckoutRequestID)
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query payment status")
	}

	if err := s.applyOutcome(ctx, payment, outcome{
		success:    verdict.Succeeded(),
		resultCode: verdict.ResultCode,
		resultDesc: verdict.ResultDesc,
	}); err != nil {
		return nil, err
	}
	return s.payments.FindByID(ctx, payment.ID)
}

// HandleCallback applies the gateway's asynchronous verdict. An unknown
// correlation id mutates nothing; a repeat delivery for a settled payment
// is a no-op.
func (s *service) HandleCallback(ctx context.Context, envelope CallbackEnvelope) error {
	callback := envelope.Callback()
	if strings.TrimSpace(callback.CheckoutRequestID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "callback missing CheckoutRequestID")
	}

	payment, err := s.payments.FindByCheckoutRequestID(ctx, callback.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "unknown checkout request id")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	raw, err := rawPayload(envelope)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode callback payload")
	}

	return s.applyOutcome(ctx, payment, outcome{
		success:    callback.Succeeded(),
		resultCode: strconv.Itoa(callback.ResultCode),
		resultDesc: callback.ResultDesc,
		receipt:    callback.ReceiptNumber(),
		raw:        raw,
	})
}

// outcome is a terminal verdict from either reconciliation path.
type outcome struct {
	success    bool
	resultCode string
	resultDesc string
	receipt    string
	raw        *types.JSONMap
}

// applyOutcome settles the payment and its order in one transaction. The
// guarded update on the payment row is the serialization point: whichever
// path loses the race affects zero rows and leaves everything untouched.
func (s *service) applyOutcome(ctx context.Context, payment *models.Payment, result outcome) error {
	completedAt := s.now().UTC()

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		status := enums.PaymentStatusFailed
		if result.success {
			status = enums.PaymentStatusSuccess
		}
		updates := map[string]any{
			"status":             status,
			"result_code":        result.resultCode,
			"result_description": result.resultDesc,
		}
		if result.receipt != "" {
			updates["mpesa_receipt_number"] = result.receipt
		}
		if result.raw != nil {
			updates["raw_callback"] = result.raw
		}
		if result.success {
			updates["completed_at"] = completedAt
		}

		applied, err := s.payments.WithTx(tx).ApplyOutcome(ctx, payment.ID, updates)
		if err != nil {
			return err
		}
		if !applied {
			s.logg.Info(s.logg.WithPaymentID(ctx, payment.ID.String()), "payment already settled, outcome ignored")
			return nil
		}

		ordersRepo := s.orders.WithTx(tx)
		order, err := ordersRepo.FindByID(ctx, payment.OrderID)
		if err != nil {
			return err
		}

		if result.success {
			return s.settleSuccess(ctx, tx, ordersRepo, order, payment, result, completedAt)
		}
		return s.settleFailure(ctx, tx, ordersRepo, order, payment, result)
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return appErr
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply payment outcome")
	}
	return nil
}

func (s *service) settleSuccess(
	ctx context.Context,
	tx *gorm.DB,
	ordersRepo orders.Repository,
	order *models.Order,
	payment *models.Payment,
	result outcome,
	completedAt time.Time,
) error {
	order.PaymentStatus = enums.OrderPaymentStatusPaid
	if order.Status == enums.OrderStatusPending {
		order.Status = enums.OrderStatusConfirmed
	}
	if _, err := ordersRepo.Save(ctx, order); err != nil {
		return err
	}

	if order.CouponID != nil {
		couponsRepo := s.coupons.WithTx(tx)
		incremented, err := couponsRepo.IncrementUsage(ctx, *order.CouponID)
		if err != nil {
			return err
		}
		// A coupon at its cap after capture still settles the payment; the
		// redemption just is not counted twice.
		if incremented {
			coupon, err := couponsRepo.FindByID(ctx, *order.CouponID)
			if err != nil {
				return err
			}
			if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventCouponRedeemed,
				AggregateType: enums.AggregateCoupon,
				AggregateID:   coupon.ID,
				Data: payloads.CouponRedeemedEvent{
					CouponID:   coupon.ID,
					Code:       coupon.Code,
					OrderID:    order.ID,
					Discount:   order.DiscountAmount,
					UsageCount: coupon.UsageCount,
				},
			}); err != nil {
				return err
			}
		}
	}

	return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentSucceeded,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Data: payloads.PaymentSucceededEvent{
			PaymentID:          payment.ID,
			OrderID:            order.ID,
			OrderNumber:        order.OrderNumber,
			Amount:             payment.Amount,
			MpesaReceiptNumber: result.receipt,
			CompletedAt:        completedAt,
		},
	})
}

func (s *service) settleFailure(
	ctx context.Context,
	tx *gorm.DB,
	ordersRepo orders.Repository,
	order *models.Order,
	payment *models.Payment,
	result outcome,
) error {
	// A failed retry must never demote an order a previous attempt paid.
	if !order.IsPaid() {
		order.PaymentStatus = enums.OrderPaymentStatusFailed
		if _, err := ordersRepo.Save(ctx, order); err != nil {
			return err
		}
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Data: payloads.PaymentFailedEvent{
			PaymentID:   payment.ID,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			ResultCode:  result.resultCode,
			Reason:      result.resultDesc,
		},
	})
}

func (s *service) loadOwnedOrder(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.CustomerID == nil || *order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func rawPayload(envelope CallbackEnvelope) (*types.JSONMap, error) {
	encoded, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}
	var raw types.JSONMap
	if err := json.Unmarshal(encoded, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

func optional(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
