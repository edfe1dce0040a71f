package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/checkout-gateway/internal/checkout"
	"github.com/noah-isme/checkout-gateway/internal/common"
)

// Handler wires the admin gateway operations to HTTP.
type Handler struct {
	Svc        *Service
	ModuleName string
	Version    string
}

// Describe returns the gateway descriptor.
func (h *Handler) Describe(w http.ResponseWriter, r *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": Describe(h.ModuleName, h.Version)})
}

// Payment returns a payment by transaction id.
func (h *Handler) Payment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.Svc.Payment(r.Context(), chi.URLParam(r, "txnID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": payment})
}

// Refund requests a refund of a transaction. Remote rejections return 200
// with status "error" in the body, matching the host's expectation that a
// refund outcome is data.
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	result, err := h.Svc.Refund(r.Context(), chi.URLParam(r, "txnID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// Subscription returns a recurring payment by reference.
func (h *Handler) Subscription(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Svc.Subscription(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rec})
}

// CancelSubscription cancels a recurring payment.
func (h *Handler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.CancelSubscription(r.Context(), chi.URLParam(r, "reference")); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"status": "success"}})
}

// PauseSubscription pauses billing on a recurring payment.
func (h *Handler) PauseSubscription(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.PauseSubscription(r.Context(), chi.URLParam(r, "reference")); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"status": "paused"}})
}

// ReactivateSubscription resumes billing on a paused recurring payment.
func (h *Handler) ReactivateSubscription(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.ReactivateSubscription(r.Context(), chi.URLParam(r, "reference")); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"status": "active"}})
}

// UpdateSubscribedProduct replaces the items billed on a recurring payment.
func (h *Handler) UpdateSubscribedProduct(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Items []checkout.BasketItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload.Items) == 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "items are required", nil)
		return
	}
	rec, err := h.Svc.UpdateSubscribedProduct(r.Context(), chi.URLParam(r, "reference"), payload.Items)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rec})
}

// writeError maps remote API failures onto admin responses, preserving the
// remote's own status and detail where it exists.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *checkout.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		common.JSONError(w, status, string(apiErr.Category()), apiErr.Detail, nil)
		return
	}
	var transportErr *checkout.TransportError
	if errors.As(err, &transportErr) {
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_UNREACHABLE", "payment provider unreachable", nil)
		return
	}
	common.WriteError(w, err)
}
