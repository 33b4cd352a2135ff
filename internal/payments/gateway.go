package payments

import (
	"context"
	"fmt"

	"github.com/ikrcommerce/ikr-backend/pkg/mpesa"
)

// Gateway is the provider contract the reconciliation workflow depends on.
// Each payment provider gets its own implementation; call sites never
// branch on a provider name.
type Gateway interface {
	InitiatePayment(ctx context.Context, req mpesa.STKPushRequest) (*mpesa.STKPushResponse, error)
	ConfirmPayment(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error)
	RefundPayment(ctx context.Context, transactionID string) (*mpesa.RefundResponse, error)
}

type mpesaGateway struct {
	client *mpesa.Client
}

// NewMpesaGateway adapts the Daraja client to the Gateway contract.
func NewMpesaGateway(client *mpesa.Client) (Gateway, error) {
	if client == nil {
		return nil, fmt.Errorf("mpesa client required")
	}
	return &mpesaGateway{client: client}, nil
}

func (g *mpesaGateway) InitiatePayment(ctx context.Context, req mpesa.STKPushRequest) (*mpesa.STKPushResponse, error) {
	return g.client.STKPush(ctx, req)
}

func (g *mpesaGateway) ConfirmPayment(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error) {
	return g.client.QueryStatus(ctx, checkoutRequestID)
}

func (g *mpesaGateway) RefundPayment(ctx context.Context, transactionID string) (*mpesa.RefundResponse, error) {
	return g.client.Refund(ctx, transactionID)
}
