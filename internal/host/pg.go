package host

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the pool surface the repository uses. *pgxpool.Pool satisfies it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PG implements Repository against the host's Postgres schema.
type PG struct {
	Pool DB
}

// InvoiceByID fetches an invoice and its line items.
func (p PG) InvoiceByID(ctx context.Context, id int) (Invoice, error) {
	var inv Invoice
	row := p.Pool.QueryRow(ctx,
		`SELECT id, user_id, status, currency, total FROM invoices WHERE id = $1`, id)
	if err := row.Scan(&inv.ID, &inv.UserID, &inv.Status, &inv.Currency, &inv.Total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, err
	}

	rows, err := p.Pool.Query(ctx,
		`SELECT id, item_type, rel_id, description, amount
		 FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, id)
	if err != nil {
		return Invoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ID, &item.Type, &item.RelationID, &item.Description, &item.Amount); err != nil {
			return Invoice{}, err
		}
		inv.Items = append(inv.Items, item)
	}
	return inv, rows.Err()
}

// InvoiceExists reports whether the invoice id is valid, in any status.
func (p PG) InvoiceExists(ctx context.Context, id int) (bool, error) {
	var exists bool
	err := p.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM invoices WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// TransactionExists reports whether the transaction id was already recorded.
func (p PG) TransactionExists(ctx context.Context, txnID string) (bool, error) {
	var exists bool
	err := p.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE txn_id = $1)`, txnID).Scan(&exists)
	return exists, err
}

// RecordPayment inserts the payment and credits the invoice atomically. The
// unique constraint on txn_id makes the insert the authoritative idempotency
// guard; a 23505 maps to ErrDuplicateTransaction. Running both statements in
// one transaction keeps a crash between them from stranding a txn row whose
// invoice was never credited.
func (p PG) RecordPayment(ctx context.Context, rec PaymentRecord) error {
	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO transactions (id, invoice_id, txn_id, amount, fee, gateway, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())`,
		uuid.New(), rec.InvoiceID, rec.TransactionID, rec.Amount, rec.Fee, rec.Gateway)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateTransaction
		}
		return err
	}
	_, err = tx.Exec(ctx,
		`UPDATE invoices SET amount_paid = amount_paid + $2,
		        status = CASE WHEN amount_paid + $2 >= total THEN 'Paid' ELSE status END
		 WHERE id = $1`,
		rec.InvoiceID, rec.Amount)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// HostingByID fetches the service record behind a relation id.
func (p PG) HostingByID(ctx context.Context, relID int) (Hosting, error) {
	var h Hosting
	err := p.Pool.QueryRow(ctx,
		`SELECT id, package_id, billing_cycle, COALESCE(subscription_id, '')
		 FROM hosting WHERE id = $1`, relID).
		Scan(&h.ID, &h.PackageID, &h.BillingCycle, &h.SubscriptionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Hosting{}, ErrNotFound
	}
	return h, err
}

// UpdateSubscriptionID stores the recurring-payment reference on the
// service record.
func (p PG) UpdateSubscriptionID(ctx context.Context, relID int, reference string) error {
	tag, err := p.Pool.Exec(ctx,
		`UPDATE hosting SET subscription_id = $2 WHERE id = $1`, relID, reference)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendGatewayLog appends an audit-log entry.
func (p PG) AppendGatewayLog(ctx context.Context, entry LogEntry) error {
	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	payload := entry.Payload
	if len(payload) == 0 || !json.Valid(payload) {
		encoded, err := json.Marshal(map[string]string{"raw": string(payload)})
		if err != nil {
			return err
		}
		payload = encoded
	}
	_, err := p.Pool.Exec(ctx,
		`INSERT INTO gateway_log (module, action, payload, created_at)
		 VALUES ($1, $2, $3::jsonb, $4)`,
		entry.Module, entry.Action, string(payload), created)
	return err
}
