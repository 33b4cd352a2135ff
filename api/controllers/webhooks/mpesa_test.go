package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ikrcommerce/ikr-backend/internal/payments"
	pkgerrors "github.com/ikrcommerce/ikr-backend/pkg/errors"
	"github.com/ikrcommerce/ikr-backend/pkg/logger"
)

type stubCallbackService struct {
	err  error
	seen []payments.CallbackEnvelope
}

func (s *stubCallbackService) HandleCallback(_ context.Context, envelope payments.CallbackEnvelope) error {
	s.seen = append(s.seen, envelope)
	return s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

const successCallback = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363925",
      "ResultCode": 0,
      "ResultDesc": "The service request is processed successfully.",
      "CallbackMetadata": {
        "Item": [
          {"Name": "Amount", "Value": 1740.0},
          {"Name": "MpesaReceiptNumber", "Value": "SGR7TYKQ1X"},
          {"Name": "PhoneNumber", "Value": 254712345678}
        ]
      }
    }
  }
}`

func TestMpesaCallbackAcksSuccess(t *testing.T) {
	svc := &stubCallbackService{}
	handler := MpesaCallback(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/mpesa", strings.NewReader(successCallback))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var ack providerAck
	if err := json.NewDecoder(rec.Body).Decode(&ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.Status != "success" {
		t.Fatalf("ack status = %q, want success", ack.Status)
	}
	if len(svc.seen) != 1 {
		t.Fatalf("handler invoked %d times, want 1", len(svc.seen))
	}
	callback := svc.seen[0].Body.StkCallback
	if callback.CheckoutRequestID != "ws_CO_191220191020363925" {
		t.Fatalf("checkout request id = %q", callback.CheckoutRequestID)
	}
	if got := callback.ReceiptNumber(); got != "SGR7TYKQ1X" {
		t.Fatalf("receipt = %q, want SGR7TYKQ1X", got)
	}
}

func TestMpesaCallbackAcceptsFlatBody(t *testing.T) {
	svc := &stubCallbackService{}
	handler := MpesaCallback(svc, testLogger())

	body := `{"CheckoutRequestID":"ws_CO_12345","ResultCode":0,"ResultDesc":"The service request is processed successfully."}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/mpesa", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(svc.seen) != 1 {
		t.Fatalf("handler invoked %d times, want 1", len(svc.seen))
	}
	callback := svc.seen[0].Callback()
	if callback.CheckoutRequestID != "ws_CO_12345" {
		t.Fatalf("checkout request id = %q", callback.CheckoutRequestID)
	}
	if !callback.Succeeded() {
		t.Fatal("flat ResultCode 0 should read as success")
	}
}

func TestMpesaCallbackErrorIsNotAcknowledged(t *testing.T) {
	svc := &stubCallbackService{err: pkgerrors.New(pkgerrors.CodeNotFound, "unknown checkout request id")}
	handler := MpesaCallback(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/mpesa", strings.NewReader(successCallback))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var ack providerAck
	if err := json.NewDecoder(rec.Body).Decode(&ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.Status != "error" || ack.Message == "" {
		t.Fatalf("ack = %+v, want error with message", ack)
	}
}

func TestMpesaCallbackRejectsMalformedBody(t *testing.T) {
	svc := &stubCallbackService{}
	handler := MpesaCallback(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/mpesa", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(svc.seen) != 0 {
		t.Fatal("handler should not run on malformed bodies")
	}
}
