package webhook

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/checkout-gateway/internal/common"
	"github.com/noah-isme/checkout-gateway/internal/host"
)

// SignatureHeader carries the hex signature on inbound deliveries.
const SignatureHeader = "X-Signature"

// maxBodyBytes bounds inbound webhook payloads.
const maxBodyBytes = 1 << 20

// Handler wires the webhook processor to HTTP.
type Handler struct {
	Proc *Processor
	Log  zerolog.Logger
}

// Receive accepts one webhook delivery. The signature covers the exact raw
// body, so the body is read before any decoding.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	if h.Proc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "webhook processor not configured", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unable to read request body", nil)
		return
	}

	ack, err := h.Proc.Handle(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, ErrBadSignature):
			h.Log.Warn().Str("remote_ip", common.ClientIP(r)).Msg("webhook signature rejected")
			common.JSONError(w, http.StatusUnauthorized, "BAD_SIGNATURE", "signature verification failed", nil)
		case errors.Is(err, ErrUnknownInvoice):
			common.JSONError(w, http.StatusNotFound, "UNKNOWN_INVOICE", "invoice not found", nil)
		case errors.Is(err, host.ErrDuplicateTransaction):
			common.JSON(w, http.StatusConflict, ack)
		case errors.Is(err, ErrBadPayload):
			common.JSONError(w, http.StatusBadRequest, "BAD_PAYLOAD", err.Error(), nil)
		default:
			common.WriteError(w, common.NewAppError("INTERNAL", "webhook processing failed", http.StatusInternalServerError, err))
		}
		return
	}
	common.JSON(w, http.StatusOK, ack)
}
