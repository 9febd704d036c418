package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/programmierbude/trxps-gateway/internal/domain"
	"github.com/programmierbude/trxps-gateway/internal/repository"
	"github.com/programmierbude/trxps-gateway/pkg/database"
	apperrors "github.com/programmierbude/trxps-gateway/pkg/errors"
)

var (
	testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	orderCols = []string{
		"id", "order_number", "sales_channel_id", "customer_id", "currency",
		"amount_total", "amount_net", "tax_status", "state", "custom_fields",
		"created_at", "updated_at",
	}
	transactionCols = []string{"id", "order_id", "payment_method", "state", "created_at", "updated_at"}
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	return database.NewMockPool(t)
}

// ─── Orders ──────────────────────────────────────────────────────────────────

func TestOrderRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("FROM orders WHERE id").WithArgs("ord-1").
		WillReturnRows(pgxmock.NewRows(orderCols).AddRow(
			"ord-1", "ORD1001", "sc-1", "cus-1", "EUR",
			"59.50", "50.00", domain.TaxStatusTaxFree, domain.OrderStateOpen,
			[]byte(`{"trxps_payments":{"order_id":"co_1","payment_url":"https://pay/co_1"},"other":1}`),
			testTime, testTime,
		))

	o, err := repo.GetByID(context.Background(), "ord-1")
	require.NoError(t, err)

	assert.Equal(t, "ORD1001", o.OrderNumber)
	assert.True(t, decimal.RequireFromString("50").Equal(o.AmountNet))
	assert.True(t, decimal.RequireFromString("59.5").Equal(o.AmountTotal))
	assert.True(t, o.IsTaxFree())
	assert.Contains(t, o.CustomFields, domain.SessionNamespace)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByOrderNumber_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("FROM orders WHERE order_number").WithArgs("ORD404").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByOrderNumber(context.Background(), "ORD404")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_MergeCustomField(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectExec("UPDATE orders").
		WithArgs(domain.SessionNamespace, []byte(`{"order_id":"co_1","payment_url":"https://pay/co_1"}`), "ord-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.MergeCustomField(context.Background(), "ord-1", domain.SessionNamespace,
		domain.CheckoutSession{RemoteID: "co_1", PaymentURL: "https://pay/co_1"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_MergeCustomField_UnknownOrder(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectExec("UPDATE orders").
		WithArgs(domain.SessionNamespace, pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.MergeCustomField(context.Background(), "missing", domain.SessionNamespace, domain.CheckoutSession{RemoteID: "co_1"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderRepository_UpdateState(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectExec("UPDATE orders SET state").WithArgs(domain.OrderStateOpen, "ord-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.UpdateState(context.Background(), "ord-1", domain.OrderStateOpen))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── Transactions ────────────────────────────────────────────────────────────

func expectState(mock pgxmock.PgxPoolIface, id string, state domain.TransactionState) {
	mock.ExpectQuery("SELECT state FROM order_transactions").WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow(string(state)))
}

func TestTransactionRepository_Transition(t *testing.T) {
	mock := newMock(t)
	repo := NewTransactionRepository(mock)

	expectState(mock, "tx-1", domain.TransactionStateInProgress)
	mock.ExpectExec("UPDATE order_transactions").
		WithArgs("paid", "tx-1", "in_progress").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	res, err := repo.Transition(context.Background(), "tx-1", domain.ActionPay)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, domain.TransactionStateInProgress, res.From)
	assert.Equal(t, domain.TransactionStatePaid, res.To)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_Transition_SameStateIsNoop(t *testing.T) {
	mock := newMock(t)
	repo := NewTransactionRepository(mock)

	expectState(mock, "tx-1", domain.TransactionStatePaid)

	res, err := repo.Transition(context.Background(), "tx-1", domain.ActionPay)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_Transition_Refused(t *testing.T) {
	mock := newMock(t)
	repo := NewTransactionRepository(mock)

	expectState(mock, "tx-1", domain.TransactionStatePaid)

	_, err := repo.Transition(context.Background(), "tx-1", domain.ActionReopen)
	assert.ErrorIs(t, err, apperrors.ErrReconciliationConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_Transition_ConcurrentWriterWins(t *testing.T) {
	mock := newMock(t)
	repo := NewTransactionRepository(mock)

	expectState(mock, "tx-1", domain.TransactionStateInProgress)
	mock.ExpectExec("UPDATE order_transactions").
		WithArgs("paid", "tx-1", "in_progress").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	expectState(mock, "tx-1", domain.TransactionStatePaid)

	res, err := repo.Transition(context.Background(), "tx-1", domain.ActionPay)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_Transition_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewTransactionRepository(mock)

	mock.ExpectQuery("SELECT state FROM order_transactions").WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Transition(context.Background(), "nope", domain.ActionPay)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTransactionRepository_GetLatestByOrderID(t *testing.T) {
	mock := newMock(t)
	repo := NewTransactionRepository(mock)

	mock.ExpectQuery("FROM order_transactions").WithArgs("ord-1").
		WillReturnRows(pgxmock.NewRows(transactionCols).
			AddRow("tx-2", "ord-1", "creditcard", "reopened", testTime, testTime))

	tx, err := repo.GetLatestByOrderID(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "tx-2", tx.ID)
	assert.Equal(t, domain.MethodCreditCard, tx.PaymentMethod)
	assert.Equal(t, domain.TransactionStateReopened, tx.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── Customers / sales channels ──────────────────────────────────────────────

func TestCustomerRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewCustomerRepository(mock)

	mock.ExpectQuery("FROM customers").WithArgs("cus-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "first_name", "last_name", "company", "billing_address"}).
			AddRow("cus-1", "jane@example.com", "Jane", "Doe", "", []byte(`{"line1":"Hauptstr. 1","city":"Berlin","country":"DE","postal_code":"10115"}`)))

	c, err := repo.GetByID(context.Background(), "cus-1")
	require.NoError(t, err)
	require.NotNil(t, c.BillingAddress)
	assert.Equal(t, "Berlin", c.BillingAddress.City)
}

func TestCustomerRepository_GetByID_NoAddress(t *testing.T) {
	mock := newMock(t)
	repo := NewCustomerRepository(mock)

	mock.ExpectQuery("FROM customers").WithArgs("cus-2").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "first_name", "last_name", "company", "billing_address"}).
			AddRow("cus-2", "max@example.com", "Max", "Muster", "ACME", []byte(nil)))

	c, err := repo.GetByID(context.Background(), "cus-2")
	require.NoError(t, err)
	assert.Nil(t, c.BillingAddress)
	assert.Equal(t, "ACME", c.Company)
}

func TestSalesChannelRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewSalesChannelRepository(mock)

	mock.ExpectQuery("FROM sales_channels").WithArgs("sc-x").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "sc-x")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ─── Store ───────────────────────────────────────────────────────────────────

func TestStore_WithTx_Commits(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectState(mock, "tx-1", domain.TransactionStateOpen)
	mock.ExpectExec("UPDATE order_transactions").WithArgs("in_progress", "tx-1", "open").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(s repository.Store) error {
		if err := s.Orders().MergeCustomField(context.Background(), "ord-1", domain.SessionNamespace, domain.CheckoutSession{RemoteID: "co_1"}); err != nil {
			return err
		}
		_, err := s.Transactions().Transition(context.Background(), "tx-1", domain.ActionProcess)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(s repository.Store) error {
		return s.Orders().UpdateState(context.Background(), "ord-1", domain.OrderStateOpen)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}
