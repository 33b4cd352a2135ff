package mpesawebhook

import (
	"context"

	"github.com/ikrcommerce/ikr-backend/internal/payments"
	pkgerrors "github.com/ikrcommerce/ikr-backend/pkg/errors"
	"github.com/ikrcommerce/ikr-backend/pkg/logger"
)

type callbackHandler interface {
	HandleCallback(ctx context.Context, envelope payments.CallbackEnvelope) error
}

type guard interface {
	CheckAndMark(ctx context.Context, checkoutRequestID string) (bool, error)
	Release(ctx context.Context, checkoutRequestID string) error
}

// Service fronts the payment callback with a redis idempotency fence.
type Service struct {
	payments callbackHandler
	guard    guard
	logg     *logger.Logger
}

func NewService(paymentsSvc callbackHandler, idempotency guard, logg *logger.Logger) (*Service, error) {
	if paymentsSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	if idempotency == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{payments: paymentsSvc, guard: idempotency, logg: logg}, nil
}

// HandleCallback claims the correlation id, then hands the verdict to the
// reconciliation workflow. A duplicate delivery is acknowledged without
// reprocessing. When the handler fails the claim is released so the
// gateway's next retry gets a clean attempt.
func (s *Service) HandleCallback(ctx context.Context, envelope payments.CallbackEnvelope) error {
	checkoutRequestID := envelope.Callback().CheckoutRequestID
	if checkoutRequestID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "callback missing CheckoutRequestID")
	}

	duplicate, err := s.guard.CheckAndMark(ctx, checkoutRequestID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency check")
	}
	if duplicate {
		s.logg.Info(ctx, "duplicate mpesa callback ignored")
		return nil
	}

	if err := s.payments.HandleCallback(ctx, envelope); err != nil {
		if releaseErr := s.guard.Release(ctx, checkoutRequestID); releaseErr != nil {
			s.logg.Error(ctx, "release idempotency claim", releaseErr)
		}
		return err
	}
	return nil
}
