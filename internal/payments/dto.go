package payments

import (
	"fmt"
	"strconv"
	"strings"
)

// CallbackEnvelope mirrors the Daraja STK callback body verbatim. Daraja
// nests the verdict under Body.stkCallback, but some relays flatten the
// same fields to the top level, so both shapes are accepted.
type CallbackEnvelope struct {
	Body CallbackBody `json:"Body"`

	MerchantRequestID string            `json:"MerchantRequestID,omitempty"`
	CheckoutRequestID string            `json:"CheckoutRequestID,omitempty"`
	ResultCode        *int              `json:"ResultCode,omitempty"`
	ResultDesc        string            `json:"ResultDesc,omitempty"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

// Callback returns the stkCallback verdict, falling back to the flattened
// top-level fields when the nested envelope is absent.
func (e CallbackEnvelope) Callback() StkCallback {
	if strings.TrimSpace(e.Body.StkCallback.CheckoutRequestID) != "" {
		return e.Body.StkCallback
	}
	var code int
	if e.ResultCode != nil {
		code = *e.ResultCode
	}
	return StkCallback{
		MerchantRequestID: e.MerchantRequestID,
		CheckoutRequestID: e.CheckoutRequestID,
		ResultCode:        code,
		ResultDesc:        e.ResultDesc,
		CallbackMetadata:  e.CallbackMetadata,
	}
}

// CallbackBody wraps the single stkCallback object.
type CallbackBody struct {
	StkCallback StkCallback `json:"stkCallback"`
}

// StkCallback is the gateway's verdict on one push. ResultCode 0 means the
// customer authorized the payment.
type StkCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

// CallbackMetadata carries the receipt details on successful pushes only.
type CallbackMetadata struct {
	Items []CallbackItem `json:"Item"`
}

// CallbackItem is a loosely typed name/value pair from the gateway.
type CallbackItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value,omitempty"`
}

// Succeeded reports whether the customer authorized the push.
func (c StkCallback) Succeeded() bool {
	return c.ResultCode == 0
}

// ReceiptNumber extracts the MpesaReceiptNumber metadata item, empty when
// the push failed or the gateway omitted it.
func (c StkCallback) ReceiptNumber() string {
	if c.CallbackMetadata == nil {
		return ""
	}
	for _, item := range c.CallbackMetadata.Items {
		if item.Name != "MpesaReceiptNumber" {
			continue
		}
		switch v := item.Value.(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}
