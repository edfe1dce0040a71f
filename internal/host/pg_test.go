package host_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-gateway/internal/host"
)

type stubTx struct {
	execSQL    []string
	execErrs   []error
	committed  bool
	rolledBack bool
}

func (t *stubTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.execSQL = append(t.execSQL, sql)
	idx := len(t.execSQL) - 1
	if idx < len(t.execErrs) && t.execErrs[idx] != nil {
		return pgconn.CommandTag{}, t.execErrs[idx]
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (t *stubTx) Commit(context.Context) error   { t.committed = true; return nil }
func (t *stubTx) Rollback(context.Context) error { t.rolledBack = true; return nil }

func (t *stubTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t *stubTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not implemented")
}
func (t *stubTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *stubTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *stubTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("not implemented")
}
func (t *stubTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}
func (t *stubTx) QueryRow(context.Context, string, ...any) pgx.Row { return nil }
func (t *stubTx) Conn() *pgx.Conn                                  { return nil }

type stubDB struct {
	tx       *stubTx
	beginErr error
}

func (d *stubDB) Begin(context.Context) (pgx.Tx, error) {
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	return d.tx, nil
}

func (d *stubDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not implemented")
}
func (d *stubDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}
func (d *stubDB) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func paymentRecord() host.PaymentRecord {
	return host.PaymentRecord{
		InvoiceID:     42,
		TransactionID: "txn-1",
		Amount:        25.5,
		Fee:           1.2,
		Gateway:       "tebexcheckout",
	}
}

func TestRecordPaymentCommitsInsertAndCredit(t *testing.T) {
	tx := &stubTx{}
	repo := host.PG{Pool: &stubDB{tx: tx}}

	require.NoError(t, repo.RecordPayment(context.Background(), paymentRecord()))
	require.True(t, tx.committed)
	require.Len(t, tx.execSQL, 2)
	require.Contains(t, tx.execSQL[0], "INSERT INTO transactions")
	require.Contains(t, tx.execSQL[1], "UPDATE invoices")
}

func TestRecordPaymentDuplicateRollsBack(t *testing.T) {
	tx := &stubTx{execErrs: []error{&pgconn.PgError{Code: "23505"}}}
	repo := host.PG{Pool: &stubDB{tx: tx}}

	err := repo.RecordPayment(context.Background(), paymentRecord())
	require.ErrorIs(t, err, host.ErrDuplicateTransaction)
	require.False(t, tx.committed)
	require.True(t, tx.rolledBack)
}

func TestRecordPaymentCreditFailureRollsBackInsert(t *testing.T) {
	tx := &stubTx{execErrs: []error{nil, errors.New("connection reset")}}
	repo := host.PG{Pool: &stubDB{tx: tx}}

	err := repo.RecordPayment(context.Background(), paymentRecord())
	require.Error(t, err)
	require.False(t, tx.committed)
	require.True(t, tx.rolledBack)
	// the insert must not survive the failed credit
	require.True(t, strings.Contains(tx.execSQL[0], "INSERT INTO transactions"))
}

func TestRecordPaymentBeginFailure(t *testing.T) {
	repo := host.PG{Pool: &stubDB{beginErr: errors.New("pool exhausted")}}
	err := repo.RecordPayment(context.Background(), paymentRecord())
	require.Error(t, err)
}
