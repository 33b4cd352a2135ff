package webhooks

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ikrcommerce/ikr-backend/internal/payments"
	pkgerrors "github.com/ikrcommerce/ikr-backend/pkg/errors"
	"github.com/ikrcommerce/ikr-backend/pkg/logger"
)

type callbackService interface {
	HandleCallback(ctx context.Context, envelope payments.CallbackEnvelope) error
}

// Daraja acknowledgement bodies. The gateway retries anything that is not
// a 2xx with {"status":"success"}, so this surface ignores the app-wide
// response envelope.
type providerAck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// MpesaCallback receives the STK push verdict from Daraja.
func MpesaCallback(svc callbackService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var envelope payments.CallbackEnvelope
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			writeAck(w, http.StatusBadRequest, providerAck{Status: "error", Message: "malformed callback body"})
			return
		}

		if err := svc.HandleCallback(r.Context(), envelope); err != nil {
			status := http.StatusInternalServerError
			message := "callback processing failed"
			if typed := pkgerrors.As(err); typed != nil {
				status = pkgerrors.MetadataFor(typed.Code()).HTTPStatus
				message = typed.Message()
			}
			if logg != nil {
				logg.Error(r.Context(), "mpesa.callback", err)
			}
			writeAck(w, status, providerAck{Status: "error", Message: message})
			return
		}

		writeAck(w, http.StatusOK, providerAck{Status: "success"})
	}
}

func writeAck(w http.ResponseWriter, status int, ack providerAck) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ack)
}
