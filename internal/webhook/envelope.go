package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/noah-isme/checkout-gateway/internal/checkout"
)

// EventType is the discriminator string on a webhook envelope.
type EventType string

const (
	EventValidation EventType = "validation.webhook"

	EventPaymentCompleted EventType = "payment.completed"
	EventPaymentDeclined  EventType = "payment.declined"
	EventPaymentRefunded  EventType = "payment.refunded"

	EventRecurringStarted         EventType = "recurring-payment.started"
	EventRecurringRenewed         EventType = "recurring-payment.renewed"
	EventRecurringDeclined        EventType = "recurring-payment.declined"
	EventRecurringEnded           EventType = "recurring-payment.ended"
	EventRecurringCancelRequested EventType = "recurring-payment.cancellation.requested"
	EventRecurringCancelAborted   EventType = "recurring-payment.cancellation.aborted"
)

// Kind classifies an event type into the subject shape it carries.
type Kind int

const (
	// KindUnknown marks an event type outside the known set. Unknown
	// events are acknowledged but never applied to invoice state.
	KindUnknown Kind = iota
	// KindValidation is the endpoint-verification handshake; it carries
	// no subject.
	KindValidation
	// KindPayment events carry a payment subject.
	KindPayment
	// KindRecurring events carry a recurring-payment subject.
	KindRecurring
)

// Kind maps the event type onto its subject shape. The set is closed:
// strings outside it classify as KindUnknown rather than being guessed at.
func (t EventType) Kind() Kind {
	switch t {
	case EventValidation:
		return KindValidation
	case EventPaymentCompleted, EventPaymentDeclined, EventPaymentRefunded:
		return KindPayment
	case EventRecurringStarted, EventRecurringRenewed, EventRecurringDeclined,
		EventRecurringEnded, EventRecurringCancelRequested, EventRecurringCancelAborted:
		return KindRecurring
	}
	return KindUnknown
}

// Declined reports whether the event represents a failed payment attempt.
func (t EventType) Declined() bool {
	return strings.Contains(string(t), "declined")
}

// Envelope is the outer webhook payload. Subject stays raw until the event
// type has been classified.
type Envelope struct {
	ID      string          `json:"id"`
	Type    EventType       `json:"type"`
	Date    string          `json:"date"`
	Subject json.RawMessage `json:"subject"`
}

// Decode parses the raw body into an envelope. The subject is left
// untouched; use PaymentSubject or RecurringSubject after classifying.
func Decode(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode webhook envelope: %w", err)
	}
	if env.ID == "" || env.Type == "" {
		return Envelope{}, fmt.Errorf("decode webhook envelope: missing id or type")
	}
	return env, nil
}

// PaymentSubject decodes the subject as a payment.
func (e Envelope) PaymentSubject() (checkout.Payment, error) {
	var p checkout.Payment
	if err := json.Unmarshal(e.Subject, &p); err != nil {
		return checkout.Payment{}, fmt.Errorf("decode payment subject: %w", err)
	}
	return p, nil
}

// RecurringSubject decodes the subject as a recurring payment.
func (e Envelope) RecurringSubject() (checkout.RecurringPayment, error) {
	var r checkout.RecurringPayment
	if err := json.Unmarshal(e.Subject, &r); err != nil {
		return checkout.RecurringPayment{}, fmt.Errorf("decode recurring subject: %w", err)
	}
	return r, nil
}
