package webhook_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-gateway/internal/host"
	"github.com/noah-isme/checkout-gateway/internal/obs"
	"github.com/noah-isme/checkout-gateway/internal/webhook"
)

func TestMain(m *testing.M) {
	obs.MustRegisterDomainMetrics("gateway", prometheus.NewRegistry())
	m.Run()
}

type stubRepo struct {
	invoices map[int]host.Invoice
	txns     map[string]bool
	hosting  map[int]host.Hosting

	recorded []host.PaymentRecord
	linked   map[int]string
	logs     []host.LogEntry

	recordErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		invoices: map[int]host.Invoice{},
		txns:     map[string]bool{},
		hosting:  map[int]host.Hosting{},
		linked:   map[int]string{},
	}
}

func (s *stubRepo) InvoiceByID(_ context.Context, id int) (host.Invoice, error) {
	inv, ok := s.invoices[id]
	if !ok {
		return host.Invoice{}, host.ErrNotFound
	}
	return inv, nil
}

func (s *stubRepo) InvoiceExists(_ context.Context, id int) (bool, error) {
	_, ok := s.invoices[id]
	return ok, nil
}

func (s *stubRepo) TransactionExists(_ context.Context, txnID string) (bool, error) {
	return s.txns[txnID], nil
}

func (s *stubRepo) RecordPayment(_ context.Context, rec host.PaymentRecord) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	if s.txns[rec.TransactionID] {
		return host.ErrDuplicateTransaction
	}
	s.txns[rec.TransactionID] = true
	s.recorded = append(s.recorded, rec)
	return nil
}

func (s *stubRepo) HostingByID(_ context.Context, relID int) (host.Hosting, error) {
	h, ok := s.hosting[relID]
	if !ok {
		return host.Hosting{}, host.ErrNotFound
	}
	return h, nil
}

func (s *stubRepo) UpdateSubscriptionID(_ context.Context, relID int, reference string) error {
	if _, ok := s.hosting[relID]; !ok {
		return host.ErrNotFound
	}
	s.linked[relID] = reference
	return nil
}

func (s *stubRepo) AppendGatewayLog(_ context.Context, entry host.LogEntry) error {
	s.logs = append(s.logs, entry)
	return nil
}

const testSecret = "wh-secret"

func newProcessor(t *testing.T, repo *stubRepo) *webhook.Processor {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &webhook.Processor{
		Secret:     testSecret,
		ModuleName: "tebexcheckout",
		Host:       repo,
		Replay:     webhook.RedisReplayer{R: client},
		ReplayTTL:  time.Hour,
		Log:        zerolog.Nop(),
	}
}

func signed(body string) (bodyBytes []byte, signature string) {
	b := []byte(body)
	return b, webhook.Signature(testSecret, b)
}

func paymentBody(id, eventType, txn string, invoiceID int) string {
	return fmt.Sprintf(`{
		"id": %q,
		"type": %q,
		"date": "2024-03-01T10:00:00Z",
		"subject": {
			"transaction_id": %q,
			"price_paid": {"amount": 25.5, "currency": "USD"},
			"fees": {"gateway": {"amount": 1.2, "currency": "USD"}, "tax": {"amount": 2, "currency": "USD"}},
			"custom": {"invoiceId": %d}
		}
	}`, id, eventType, txn, invoiceID)
}

func TestHandleRejectsBadSignature(t *testing.T) {
	repo := newStubRepo()
	proc := newProcessor(t, repo)

	body, _ := signed(paymentBody("wh-1", "payment.completed", "t-1", 42))
	_, err := proc.Handle(context.Background(), body, "deadbeef")
	require.ErrorIs(t, err, webhook.ErrBadSignature)
	require.Empty(t, repo.recorded)
}

func TestHandleValidationShortCircuit(t *testing.T) {
	repo := newStubRepo()
	proc := newProcessor(t, repo)

	body, sig := signed(`{"id":"wh-v","type":"validation.webhook","date":"","subject":{}}`)
	ack, err := proc.Handle(context.Background(), body, sig)
	require.NoError(t, err)
	require.Equal(t, "wh-v", ack.ID)
	// no subject is constructed and no state is touched
	require.Empty(t, repo.logs)
	require.Empty(t, repo.recorded)
}

func TestHandleRecordsCompletedPayment(t *testing.T) {
	repo := newStubRepo()
	repo.invoices[42] = host.Invoice{ID: 42}
	proc := newProcessor(t, repo)

	body, sig := signed(paymentBody("wh-2", "payment.completed", "t-100", 42))
	ack, err := proc.Handle(context.Background(), body, sig)
	require.NoError(t, err)
	require.Equal(t, "ok", ack.Status)

	require.Len(t, repo.recorded, 1)
	rec := repo.recorded[0]
	require.Equal(t, 42, rec.InvoiceID)
	require.Equal(t, "t-100", rec.TransactionID)
	require.Equal(t, 25.5, rec.Amount)
	require.Equal(t, 1.2, rec.Fee)
	require.Equal(t, "tebexcheckout", rec.Gateway)

	// raw payload lands in the gateway log
	require.Len(t, repo.logs, 1)
	require.Equal(t, "payment.completed", repo.logs[0].Action)
	require.JSONEq(t, string(body), string(repo.logs[0].Payload))
}

func TestHandleDeclinedRecordsNothing(t *testing.T) {
	repo := newStubRepo()
	repo.invoices[42] = host.Invoice{ID: 42}
	proc := newProcessor(t, repo)

	body, sig := signed(paymentBody("wh-3", "payment.declined", "t-101", 42))
	ack, err := proc.Handle(context.Background(), body, sig)
	require.NoError(t, err)
	require.Equal(t, "declined", ack.Status)
	require.Empty(t, repo.recorded)
}

func TestHandleDeclinedWithKnownTransactionIsDuplicate(t *testing.T) {
	repo := newStubRepo()
	repo.invoices[42] = host.Invoice{ID: 42}
	repo.txns["t-101"] = true
	proc := newProcessor(t, repo)

	body, sig := signed(paymentBody("wh-3b", "payment.declined", "t-101", 42))
	ack, err := proc.Handle(context.Background(), body, sig)
	require.ErrorIs(t, err, host.ErrDuplicateTransaction)
	require.Equal(t, "duplicate", ack.Status)
	require.Empty(t, repo.recorded)
}

func TestHandleUnknownInvoice(t *testing.T) {
	repo := newStubRepo()
	proc := newProcessor(t, repo)

	body, sig := signed(paymentBody("wh-4", "payment.completed", "t-102", 999))
	_, err := proc.Handle(context.Background(), body, sig)
	require.ErrorIs(t, err, webhook.ErrUnknownInvoice)
}

func TestHandleDuplicateTransaction(t *testing.T) {
	repo := newStubRepo()
	repo.invoices[42] = host.Invoice{ID: 42}
	repo.txns["t-103"] = true
	proc := newProcessor(t, repo)

	body, sig := signed(paymentBody("wh-5", "payment.completed", "t-103", 42))
	ack, err := proc.Handle(context.Background(), body, sig)
	require.ErrorIs(t, err, host.ErrDuplicateTransaction)
	require.Equal(t, "duplicate", ack.Status)
	require.Empty(t, repo.recorded)
}

func TestHandleReplaySuppressed(t *testing.T) {
	repo := newStubRepo()
	repo.invoices[42] = host.Invoice{ID: 42}
	proc := newProcessor(t, repo)

	body, sig := signed(paymentBody("wh-6", "payment.completed", "t-104", 42))
	_, err := proc.Handle(context.Background(), body, sig)
	require.NoError(t, err)

	_, err = proc.Handle(context.Background(), body, sig)
	require.ErrorIs(t, err, host.ErrDuplicateTransaction)
	require.Len(t, repo.recorded, 1)
}

func TestHandleInvoiceIDFromLastPaymentString(t *testing.T) {
	repo := newStubRepo()
	repo.invoices[42] = host.Invoice{ID: 42}
	proc := newProcessor(t, repo)

	body, sig := signed(`{
		"id": "wh-7",
		"type": "recurring-payment.renewed",
		"date": "2024-03-01T10:00:00Z",
		"subject": {
			"reference": "rp-1",
			"initial_payment": {"transaction_id": "t-first"},
			"last_payment": {
				"transaction_id": "t-renewal",
				"price_paid": {"amount": 5, "currency": "USD"},
				"fees": {"gateway": {"amount": 0.25, "currency": "USD"}},
				"custom": {"invoiceId": "42"}
			}
		}
	}`)
	ack, err := proc.Handle(context.Background(), body, sig)
	require.NoError(t, err)
	require.Equal(t, "ok", ack.Status)
	require.Len(t, repo.recorded, 1)
	require.Equal(t, "t-renewal", repo.recorded[0].TransactionID)
	require.Equal(t, 0.25, repo.recorded[0].Fee)
}

func TestHandleRecurringStartedLinksSubscription(t *testing.T) {
	repo := newStubRepo()
	repo.invoices[42] = host.Invoice{ID: 42}
	repo.hosting[11] = host.Hosting{ID: 11, BillingCycle: "Monthly"}
	proc := newProcessor(t, repo)

	custom, _ := json.Marshal(`{"relid":11}`)
	body, sig := signed(fmt.Sprintf(`{
		"id": "wh-8",
		"type": "recurring-payment.started",
		"date": "2024-03-01T10:00:00Z",
		"subject": {
			"reference": "rp-777",
			"initial_payment": {
				"transaction_id": "t-sub-1",
				"price_paid": {"amount": 12, "currency": "USD"},
				"fees": {"gateway": {"amount": 0.6, "currency": "USD"}},
				"products": [{"id": "p1", "name": "Hosting", "custom": %s}],
				"custom": {"invoiceId": 42}
			},
			"last_payment": {"transaction_id": "t-sub-1", "custom": {"invoiceId": 42}}
		}
	}`, custom))
	ack, err := proc.Handle(context.Background(), body, sig)
	require.NoError(t, err)
	require.Equal(t, "rp-777", repo.linked[11])
	require.Contains(t, ack.Message, "subscription reference stored")

	// payment comes from the initial payment on a started event
	require.Len(t, repo.recorded, 1)
	require.Equal(t, "t-sub-1", repo.recorded[0].TransactionID)
	require.Equal(t, 12.0, repo.recorded[0].Amount)
}

func TestHandleUnknownTypeAcknowledged(t *testing.T) {
	repo := newStubRepo()
	proc := newProcessor(t, repo)

	body, sig := signed(`{"id":"wh-10","type":"payment.dispute.opened","date":"","subject":{"transaction_id":"t-x"}}`)
	ack, err := proc.Handle(context.Background(), body, sig)
	require.NoError(t, err)
	require.Equal(t, "ignored", ack.Status)
	require.Empty(t, repo.recorded)
	require.Len(t, repo.logs, 1)
}

func TestReceiveStatusCodes(t *testing.T) {
	repo := newStubRepo()
	repo.invoices[42] = host.Invoice{ID: 42}
	proc := newProcessor(t, repo)
	handler := &webhook.Handler{Proc: proc}

	post := func(body, sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/checkout", strings.NewReader(body))
		req.Header.Set(webhook.SignatureHeader, sig)
		rr := httptest.NewRecorder()
		handler.Receive(rr, req)
		return rr
	}

	valBody, valSig := signed(`{"id":"wh-ok","type":"validation.webhook","date":"","subject":{}}`)
	rr := post(string(valBody), valSig)
	require.Equal(t, http.StatusOK, rr.Code)
	var ack webhook.Ack
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ack))
	require.Equal(t, "wh-ok", ack.ID)

	rr = post(string(valBody), "bad-signature")
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	missingBody, missingSig := signed(paymentBody("wh-miss", "payment.completed", "t-200", 777))
	rr = post(string(missingBody), missingSig)
	require.Equal(t, http.StatusNotFound, rr.Code)

	okBody, okSig := signed(paymentBody("wh-first", "payment.completed", "t-201", 42))
	rr = post(string(okBody), okSig)
	require.Equal(t, http.StatusOK, rr.Code)

	dupBody, dupSig := signed(paymentBody("wh-dup", "payment.completed", "t-201", 42))
	rr = post(string(dupBody), dupSig)
	require.Equal(t, http.StatusConflict, rr.Code)
}
