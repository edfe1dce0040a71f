package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/checkout-gateway/internal/checkout"
	"github.com/noah-isme/checkout-gateway/internal/host"
	"github.com/noah-isme/checkout-gateway/internal/obs"
)

// RefundStatus is the host-facing outcome of a refund attempt.
type RefundStatus string

const (
	RefundSuccess RefundStatus = "success"
	RefundError   RefundStatus = "error"
)

// RefundResult is what the host receives for a refund attempt. A rejected
// refund is a result, not an error: the remote's answer travels back in Raw
// either way, with the combined tax and gateway fees.
type RefundResult struct {
	Status        RefundStatus     `json:"status"`
	TransactionID string           `json:"transactionId"`
	Fees          float64          `json:"fees"`
	Raw           checkout.Payment `json:"rawdata"`
}

// Service exposes the admin-side gateway operations: refunds, payment
// lookups and subscription lifecycle management.
type Service struct {
	API        *checkout.Client
	Host       host.Repository
	ModuleName string
	Log        zerolog.Logger
}

// Refund asks the remote to refund a transaction. Remote-side rejections
// come back as a RefundResult with status error; only transport-level
// failures surface as a Go error.
func (s *Service) Refund(ctx context.Context, txnID string) (RefundResult, error) {
	payment, err := s.API.RefundPayment(ctx, txnID)
	s.logModuleCall(ctx, "api refund", txnID, payment, err)

	if err != nil {
		var apiErr *checkout.APIError
		if errors.As(err, &apiErr) {
			obs.RefundTotal.WithLabelValues("rejected").Inc()
			s.Log.Warn().Str("txn_id", txnID).Str("category", string(apiErr.Category())).Msg("refund rejected")
			return RefundResult{Status: RefundError, TransactionID: txnID}, nil
		}
		obs.RefundTotal.WithLabelValues("error").Inc()
		return RefundResult{}, fmt.Errorf("refund %s: %w", txnID, err)
	}

	result := RefundResult{
		TransactionID: txnID,
		Fees:          payment.Fees.Tax.Amount + payment.Fees.Gateway.Amount,
		Raw:           payment,
	}
	if payment.TransactionID != "" {
		result.Status = RefundSuccess
		obs.RefundTotal.WithLabelValues("ok").Inc()
	} else {
		result.Status = RefundError
		obs.RefundTotal.WithLabelValues("rejected").Inc()
	}
	return result, nil
}

// Payment fetches a payment by transaction id.
func (s *Service) Payment(ctx context.Context, txnID string) (checkout.Payment, error) {
	return s.API.FetchPayment(ctx, txnID)
}

// Subscription fetches a recurring payment by reference.
func (s *Service) Subscription(ctx context.Context, reference string) (checkout.RecurringPayment, error) {
	return s.API.FetchRecurringPayment(ctx, reference)
}

// CancelSubscription cancels a recurring payment on the remote.
func (s *Service) CancelSubscription(ctx context.Context, reference string) error {
	err := s.API.CancelRecurringPayment(ctx, reference)
	s.logModuleCall(ctx, "api subscription cancel", reference, nil, err)
	return err
}

// PauseSubscription pauses billing on a recurring payment.
func (s *Service) PauseSubscription(ctx context.Context, reference string) error {
	err := s.API.PauseRecurringPayment(ctx, reference)
	s.logModuleCall(ctx, "api subscription pause", reference, nil, err)
	return err
}

// ReactivateSubscription resumes billing on a paused recurring payment.
func (s *Service) ReactivateSubscription(ctx context.Context, reference string) error {
	err := s.API.ReactivateRecurringPayment(ctx, reference)
	s.logModuleCall(ctx, "api subscription reactivate", reference, nil, err)
	return err
}

// UpdateSubscribedProduct swaps the items billed on a recurring payment,
// used for upgrades and downgrades with prorated billing handled remotely.
func (s *Service) UpdateSubscribedProduct(ctx context.Context, reference string, items []checkout.BasketItem) (checkout.RecurringPayment, error) {
	rec, err := s.API.UpdateSubscribedProduct(ctx, reference, items)
	s.logModuleCall(ctx, "api subscription update", reference, rec, err)
	return rec, err
}

// logModuleCall persists an audit record of an admin-side remote call.
// Audit failures are logged and swallowed so they never mask the call result.
func (s *Service) logModuleCall(ctx context.Context, action, subject string, response any, cause error) {
	entry := map[string]any{"subject": subject, "response": response}
	if cause != nil {
		entry["error"] = cause.Error()
	}
	payload, _ := json.Marshal(entry)
	if err := s.Host.AppendGatewayLog(ctx, host.LogEntry{
		Module:  s.ModuleName,
		Action:  action,
		Payload: payload,
	}); err != nil {
		s.Log.Warn().Err(err).Str("action", action).Msg("gateway log append failed")
	}
}
