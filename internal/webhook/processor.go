package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/checkout-gateway/internal/checkout"
	"github.com/noah-isme/checkout-gateway/internal/host"
	"github.com/noah-isme/checkout-gateway/internal/obs"
)

var (
	// ErrBadSignature is returned when the presented signature does not
	// match the body.
	ErrBadSignature = errors.New("webhook: signature mismatch")
	// ErrUnknownInvoice is returned when the subject references an invoice
	// the host does not know.
	ErrUnknownInvoice = errors.New("webhook: unknown invoice")
	// ErrBadPayload is returned when the body or subject cannot be decoded.
	ErrBadPayload = errors.New("webhook: bad payload")
)

// Ack is the body returned to the remote platform for an accepted webhook.
type Ack struct {
	ID      string `json:"id"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// Replayer reserves an envelope id once per retention window.
type Replayer interface {
	// Reserve returns false when the id was already seen.
	Reserve(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

// Processor applies verified webhook events to host invoice state.
type Processor struct {
	Secret     string
	ModuleName string
	Host       host.Repository
	Replay     Replayer
	ReplayTTL  time.Duration
	Log        zerolog.Logger
}

// Handle verifies, decodes and applies one webhook delivery. The returned
// Ack is what the endpoint should echo back on success paths; error paths
// surface as sentinel or host errors for the handler to map onto status
// codes.
func (p *Processor) Handle(ctx context.Context, body []byte, signature string) (Ack, error) {
	ctx, span := otel.Tracer("webhook").Start(ctx, "webhook.Handle")
	defer span.End()

	if !Verify(p.Secret, body, signature) {
		obs.WebhookTotal.WithLabelValues("unknown", "bad_signature").Inc()
		return Ack{}, ErrBadSignature
	}

	env, err := Decode(body)
	if err != nil {
		obs.WebhookTotal.WithLabelValues("unknown", "bad_payload").Inc()
		return Ack{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	span.SetAttributes(attribute.String("webhook.type", string(env.Type)))
	log := p.Log.With().Str("webhook_id", env.ID).Str("type", string(env.Type)).Logger()

	if env.Type.Kind() == KindValidation {
		obs.WebhookTotal.WithLabelValues(string(env.Type), "validated").Inc()
		return Ack{ID: env.ID}, nil
	}

	if p.Replay != nil {
		fresh, err := p.Replay.Reserve(ctx, "webhook:"+env.ID, p.ReplayTTL)
		if err != nil {
			log.Warn().Err(err).Msg("replay guard unavailable, continuing")
		} else if !fresh {
			obs.WebhookTotal.WithLabelValues(string(env.Type), "replay").Inc()
			log.Info().Msg("webhook replay suppressed")
			return Ack{ID: env.ID, Status: "duplicate"}, host.ErrDuplicateTransaction
		}
	}

	if err := p.Host.AppendGatewayLog(ctx, host.LogEntry{
		Module:  p.ModuleName,
		Action:  string(env.Type),
		Payload: body,
	}); err != nil {
		log.Warn().Err(err).Msg("gateway log append failed")
	}

	if env.Type.Kind() == KindUnknown {
		obs.WebhookTotal.WithLabelValues(string(env.Type), "ignored").Inc()
		log.Info().Msg("unrecognised webhook type acknowledged without action")
		return Ack{ID: env.ID, Status: "ignored"}, nil
	}

	payment, recurring, err := p.subject(env)
	if err != nil {
		obs.WebhookTotal.WithLabelValues(string(env.Type), "bad_payload").Inc()
		return Ack{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	invoiceID, err := extractInvoiceID(env.Subject)
	if err != nil {
		obs.WebhookTotal.WithLabelValues(string(env.Type), "bad_payload").Inc()
		return Ack{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	log = log.With().Int("invoice_id", invoiceID).Logger()

	exists, err := p.Host.InvoiceExists(ctx, invoiceID)
	if err != nil {
		return Ack{}, fmt.Errorf("invoice lookup: %w", err)
	}
	if !exists {
		obs.WebhookTotal.WithLabelValues(string(env.Type), "unknown_invoice").Inc()
		return Ack{}, ErrUnknownInvoice
	}

	// txn uniqueness is validated for every non-validation event, declined
	// ones included, before deciding what to do with it.
	dup, err := p.Host.TransactionExists(ctx, payment.TransactionID)
	if err != nil {
		return Ack{}, fmt.Errorf("transaction lookup: %w", err)
	}
	if dup {
		obs.WebhookTotal.WithLabelValues(string(env.Type), "duplicate").Inc()
		return Ack{ID: env.ID, Status: "duplicate"}, host.ErrDuplicateTransaction
	}

	if env.Type.Declined() {
		obs.WebhookTotal.WithLabelValues(string(env.Type), "declined").Inc()
		log.Info().Str("txn_id", payment.TransactionID).Msg("declined payment acknowledged")
		return Ack{ID: env.ID, Status: "declined"}, nil
	}

	rec := host.PaymentRecord{
		InvoiceID:     invoiceID,
		TransactionID: payment.TransactionID,
		Amount:        payment.PricePaid.Amount,
		Fee:           payment.Fees.Gateway.Amount,
		Gateway:       p.ModuleName,
	}
	if err := p.Host.RecordPayment(ctx, rec); err != nil {
		if errors.Is(err, host.ErrDuplicateTransaction) {
			obs.WebhookTotal.WithLabelValues(string(env.Type), "duplicate").Inc()
			return Ack{ID: env.ID, Status: "duplicate"}, err
		}
		obs.WebhookTotal.WithLabelValues(string(env.Type), "error").Inc()
		return Ack{}, fmt.Errorf("record payment: %w", err)
	}
	log.Info().
		Str("txn_id", payment.TransactionID).
		Float64("amount", rec.Amount).
		Float64("fee", rec.Fee).
		Msg("payment recorded")

	ack := Ack{ID: env.ID, Status: "ok"}
	if env.Type == EventRecurringStarted && recurring != nil {
		if err := p.linkSubscription(ctx, *recurring, log); err != nil {
			log.Error().Err(err).Msg("subscription linkage failed")
			ack.Message = "payment recorded, subscription linkage failed"
		} else {
			ack.Message = "subscription reference stored"
		}
	}
	obs.WebhookTotal.WithLabelValues(string(env.Type), "recorded").Inc()
	return ack, nil
}

// subject decodes the envelope into its typed subject. For recurring events
// the effective payment is the initial payment on "started" and the last
// payment on every later lifecycle event; the recurring subject itself has
// no transaction fields.
func (p *Processor) subject(env Envelope) (checkout.Payment, *checkout.RecurringPayment, error) {
	switch env.Type.Kind() {
	case KindPayment:
		pay, err := env.PaymentSubject()
		return pay, nil, err
	case KindRecurring:
		rec, err := env.RecurringSubject()
		if err != nil {
			return checkout.Payment{}, nil, err
		}
		if env.Type == EventRecurringStarted {
			return rec.InitialPayment, &rec, nil
		}
		return rec.LastPayment, &rec, nil
	}
	return checkout.Payment{}, nil, fmt.Errorf("no subject for event type %q", env.Type)
}

// linkSubscription stores the recurring-payment reference on the host
// service record named by the relid metadata of the first purchased product.
func (p *Processor) linkSubscription(ctx context.Context, rec checkout.RecurringPayment, log zerolog.Logger) error {
	if len(rec.InitialPayment.Products) == 0 {
		return fmt.Errorf("recurring subject has no products")
	}
	var ref checkout.RelationRef
	if err := json.Unmarshal([]byte(rec.InitialPayment.Products[0].Custom), &ref); err != nil {
		return fmt.Errorf("decode product custom metadata: %w", err)
	}
	if ref.RelID == 0 {
		return fmt.Errorf("product custom metadata has no relid")
	}
	if err := p.Host.UpdateSubscriptionID(ctx, ref.RelID, rec.Reference); err != nil {
		return fmt.Errorf("store subscription reference: %w", err)
	}
	log.Info().Int("rel_id", ref.RelID).Str("reference", rec.Reference).Msg("subscription reference stored")
	return nil
}

// invoiceEnvelope mirrors just the metadata paths an invoice id can arrive
// through: subject.custom.invoiceId for one-off payments, or
// subject.last_payment.custom.invoiceId for recurring shapes.
type invoiceEnvelope struct {
	Custom      map[string]json.RawMessage `json:"custom"`
	LastPayment struct {
		Custom map[string]json.RawMessage `json:"custom"`
	} `json:"last_payment"`
}

func extractInvoiceID(subject json.RawMessage) (int, error) {
	var probe invoiceEnvelope
	if err := json.Unmarshal(subject, &probe); err != nil {
		return 0, fmt.Errorf("decode subject metadata: %w", err)
	}
	raw, ok := probe.Custom["invoiceId"]
	if !ok {
		raw, ok = probe.LastPayment.Custom["invoiceId"]
	}
	if !ok {
		return 0, fmt.Errorf("subject carries no invoiceId metadata")
	}
	return parseInvoiceID(raw)
}

// parseInvoiceID accepts both encodings seen in the wild: a JSON number and
// a quoted numeric string.
func parseInvoiceID(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("invoiceId is neither number nor string")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invoiceId %q is not numeric", s)
	}
	return n, nil
}
