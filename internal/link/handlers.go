package link

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/checkout-gateway/internal/common"
	"github.com/noah-isme/checkout-gateway/internal/host"
)

// Handler wires the link builder to HTTP.
type Handler struct {
	Builder  *Builder
	Validate *validator.Validate
}

// Create builds a hosted checkout link for the invoice in the path.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Builder == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "link builder not configured", nil)
		return
	}
	invoiceID, err := strconv.Atoi(chi.URLParam(r, "invoiceID"))
	if err != nil || invoiceID <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid invoice id", nil)
		return
	}

	var details ClientDetails
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(details); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid client details", err.Error())
			return
		}
	}

	link, err := h.Builder.BuildCheckoutLink(r.Context(), invoiceID, details)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": link})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, host.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "invoice not found", nil)
	case errors.Is(err, ErrMultipleSubscriptionItems):
		common.JSONError(w, http.StatusUnprocessableEntity, "MULTIPLE_SUBSCRIPTIONS", err.Error(), nil)
	case errors.Is(err, ErrUnknownBillingCycle):
		common.JSONError(w, http.StatusUnprocessableEntity, "UNKNOWN_CYCLE", err.Error(), nil)
	case errors.Is(err, ErrNoCheckoutLink):
		common.JSONError(w, http.StatusBadGateway, "NO_CHECKOUT_LINK", "payment provider returned no checkout link", nil)
	default:
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM", "unable to create checkout link", nil)
	}
}
