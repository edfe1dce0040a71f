package host

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a host record does not exist.
var ErrNotFound = errors.New("host: record not found")

// ErrDuplicateTransaction is returned when a payment with the same
// transaction id was already recorded against the host.
var ErrDuplicateTransaction = errors.New("host: duplicate transaction")

// Invoice is the host's view of an invoice and its line items.
type Invoice struct {
	ID       int
	UserID   int
	Status   string
	Currency string
	Total    float64
	Items    []LineItem
}

// LineItem is one billable row on an invoice. RelationID links the row to
// the underlying service record (the host's internal foreign key).
type LineItem struct {
	ID          int
	Type        string
	RelationID  int
	Description string
	Amount      float64
}

// Hosting is the host's service record behind a recurring line item.
type Hosting struct {
	ID             int
	PackageID      int
	BillingCycle   string
	SubscriptionID string
}

// PaymentRecord captures a payment to apply against an invoice.
type PaymentRecord struct {
	InvoiceID     int
	TransactionID string
	Amount        float64
	Fee           float64
	Gateway       string
}

// LogEntry is an audit record of a gateway interaction.
type LogEntry struct {
	Module    string
	Action    string
	Payload   []byte
	CreatedAt time.Time
}

// Repository exposes exactly the host collaborator calls the adapter needs,
// so the core logic can be tested without a live host database.
type Repository interface {
	// InvoiceByID fetches an invoice with its line items.
	InvoiceByID(ctx context.Context, id int) (Invoice, error)
	// InvoiceExists reports whether the invoice id is valid, in any status.
	InvoiceExists(ctx context.Context, id int) (bool, error)
	// TransactionExists reports whether a payment with this transaction id
	// was already recorded.
	TransactionExists(ctx context.Context, txnID string) (bool, error)
	// RecordPayment applies a payment to an invoice. Returns
	// ErrDuplicateTransaction when the transaction id is already recorded.
	RecordPayment(ctx context.Context, rec PaymentRecord) error
	// HostingByID fetches the service record behind a relation id.
	HostingByID(ctx context.Context, relID int) (Hosting, error)
	// UpdateSubscriptionID stores the remote recurring-payment reference on
	// the service record.
	UpdateSubscriptionID(ctx context.Context, relID int, reference string) error
	// AppendGatewayLog appends an audit-log entry.
	AppendGatewayLog(ctx context.Context, entry LogEntry) error
}
