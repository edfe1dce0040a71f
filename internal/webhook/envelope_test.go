package webhook_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-gateway/internal/webhook"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := webhook.Decode([]byte(`{"id":"wh-9","type":"validation.webhook","date":"2024-01-01T00:00:00Z","subject":{}}`))
	require.NoError(t, err)
	require.Equal(t, "wh-9", env.ID)
	require.Equal(t, webhook.EventValidation, env.Type)
	require.Equal(t, webhook.KindValidation, env.Type.Kind())
}

func TestDecodeRejectsMissingFields(t *testing.T) {
	_, err := webhook.Decode([]byte(`{"subject":{}}`))
	require.Error(t, err)

	_, err = webhook.Decode([]byte(`not json`))
	require.Error(t, err)
}

func TestEventTypeKind(t *testing.T) {
	cases := []struct {
		eventType webhook.EventType
		want      webhook.Kind
	}{
		{webhook.EventValidation, webhook.KindValidation},
		{webhook.EventPaymentCompleted, webhook.KindPayment},
		{webhook.EventPaymentDeclined, webhook.KindPayment},
		{webhook.EventPaymentRefunded, webhook.KindPayment},
		{webhook.EventRecurringStarted, webhook.KindRecurring},
		{webhook.EventRecurringRenewed, webhook.KindRecurring},
		{webhook.EventRecurringDeclined, webhook.KindRecurring},
		{webhook.EventRecurringEnded, webhook.KindRecurring},
		{webhook.EventRecurringCancelRequested, webhook.KindRecurring},
		{webhook.EventRecurringCancelAborted, webhook.KindRecurring},
		{webhook.EventType("payment.dispute.opened"), webhook.KindUnknown},
		{webhook.EventType(""), webhook.KindUnknown},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tc.eventType.Kind(), "type %q", tc.eventType)
	}
}

func TestEventTypeDeclined(t *testing.T) {
	require.True(t, webhook.EventPaymentDeclined.Declined())
	require.True(t, webhook.EventRecurringDeclined.Declined())
	require.False(t, webhook.EventPaymentCompleted.Declined())
	require.False(t, webhook.EventRecurringStarted.Declined())
}

func TestPaymentSubjectDecode(t *testing.T) {
	env, err := webhook.Decode([]byte(`{
		"id": "wh-1",
		"type": "payment.completed",
		"date": "2024-03-01T10:00:00Z",
		"subject": {
			"transaction_id": "tbx-123",
			"status": {"id": 1, "description": "Complete"},
			"price": {"amount": 10.0, "currency": "USD"},
			"price_paid": {"amount": 9.5, "currency": "USD"},
			"fees": {"tax": {"amount": 0.5, "currency": "USD"}, "gateway": {"amount": 0.3, "currency": "USD"}},
			"custom": {"invoiceId": 42}
		}
	}`))
	require.NoError(t, err)

	payment, err := env.PaymentSubject()
	require.NoError(t, err)
	require.Equal(t, "tbx-123", payment.TransactionID)
	require.Equal(t, 9.5, payment.PricePaid.Amount)
	require.Equal(t, 0.3, payment.Fees.Gateway.Amount)
	require.Equal(t, "Complete", payment.Status.Description)
}

func TestRecurringSubjectDecode(t *testing.T) {
	env, err := webhook.Decode([]byte(`{
		"id": "wh-2",
		"type": "recurring-payment.started",
		"date": "2024-03-01T10:00:00Z",
		"subject": {
			"reference": "rp-777",
			"status": {"id": 2, "description": "Active"},
			"initial_payment": {
				"transaction_id": "tbx-first",
				"price_paid": {"amount": 5, "currency": "USD"},
				"fees": {"gateway": {"amount": 0.2, "currency": "USD"}},
				"products": [{"id": "p1", "name": "Hosting", "custom": "{\"relid\":11}"}]
			},
			"last_payment": {"transaction_id": "tbx-last", "custom": {"invoiceId": "42"}}
		}
	}`))
	require.NoError(t, err)
	require.Equal(t, webhook.KindRecurring, env.Type.Kind())

	rec, err := env.RecurringSubject()
	require.NoError(t, err)
	require.Equal(t, "rp-777", rec.Reference)
	require.Equal(t, "tbx-first", rec.InitialPayment.TransactionID)
	require.Equal(t, `{"relid":11}`, rec.InitialPayment.Products[0].Custom)
	require.Equal(t, "tbx-last", rec.LastPayment.TransactionID)
}
