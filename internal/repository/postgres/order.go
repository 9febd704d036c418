package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/programmierbude/trxps-gateway/internal/domain"
	"github.com/programmierbude/trxps-gateway/pkg/database"
	apperrors "github.com/programmierbude/trxps-gateway/pkg/errors"
)

const orderColumns = `id, order_number, sales_channel_id, COALESCE(customer_id::text, ''),
		COALESCE(currency, ''), amount_total::text, amount_net::text, tax_status, state,
		custom_fields, created_at, updated_at`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	db database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(db database.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.scanOrder(ctx, "GetOrderByID", query, id)
}

// GetByOrderNumber retrieves an order by its order number.
func (r *OrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`
	return r.scanOrder(ctx, "GetOrderByNumber", query, orderNumber)
}

// MergeCustomField writes value under key in custom_fields. Concurrent
// writers of the same key are last-writer-wins.
func (r *OrderRepository) MergeCustomField(ctx context.Context, orderID, key string, value any) (err error) {
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal custom field %s: %w", key, err)
	}

	query := `
		UPDATE orders
		SET custom_fields = COALESCE(custom_fields, '{}'::jsonb) || jsonb_build_object($1::text, $2::jsonb),
		    updated_at = now()
		WHERE id = $3`

	ctx, end := database.TraceQuery(ctx, "MergeOrderCustomField", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, key, valueJSON, orderID)
	if err != nil {
		return fmt.Errorf("merge custom field: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", orderID)
	}
	return nil
}

// UpdateState sets the order state.
func (r *OrderRepository) UpdateState(ctx context.Context, orderID, state string) (err error) {
	query := `UPDATE orders SET state = $1, updated_at = now() WHERE id = $2`

	ctx, end := database.TraceQuery(ctx, "UpdateOrderState", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, state, orderID)
	if err != nil {
		return fmt.Errorf("update order state: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", orderID)
	}
	return nil
}

func (r *OrderRepository) scanOrder(ctx context.Context, operation, query string, args ...any) (_ *domain.Order, err error) {
	ctx, end := database.TraceQuery(ctx, operation, query)
	defer func() { end(err) }()

	var (
		o                domain.Order
		totalStr, netStr string
		customFieldsJSON []byte
	)

	err = r.db.QueryRow(ctx, query, args...).Scan(
		&o.ID,
		&o.OrderNumber,
		&o.SalesChannelID,
		&o.CustomerID,
		&o.Currency,
		&totalStr,
		&netStr,
		&o.TaxStatus,
		&o.State,
		&customFieldsJSON,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", fmt.Sprint(args[0]))
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if o.AmountTotal, err = decimal.NewFromString(totalStr); err != nil {
		return nil, fmt.Errorf("parse amount_total: %w", err)
	}
	if o.AmountNet, err = decimal.NewFromString(netStr); err != nil {
		return nil, fmt.Errorf("parse amount_net: %w", err)
	}

	if len(customFieldsJSON) > 0 {
		if err := json.Unmarshal(customFieldsJSON, &o.CustomFields); err != nil {
			return nil, fmt.Errorf("unmarshal custom fields: %w", err)
		}
	}

	return &o, nil
}
