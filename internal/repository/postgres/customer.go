package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/programmierbude/trxps-gateway/internal/domain"
	"github.com/programmierbude/trxps-gateway/pkg/database"
	apperrors "github.com/programmierbude/trxps-gateway/pkg/errors"
)

// CustomerRepository implements repository.CustomerRepository using PostgreSQL.
type CustomerRepository struct {
	db database.DBTX
}

// NewCustomerRepository creates a new PostgreSQL-backed customer repository.
func NewCustomerRepository(db database.DBTX) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// GetByID retrieves a customer with its billing address.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (_ *domain.Customer, err error) {
	query := `
		SELECT id, email, first_name, last_name, COALESCE(company, ''), billing_address
		FROM customers
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetCustomerByID", query)
	defer func() { end(err) }()

	var (
		c           domain.Customer
		addressJSON []byte
	)
	err = r.db.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Email,
		&c.FirstName,
		&c.LastName,
		&c.Company,
		&addressJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("customer", id)
		}
		return nil, fmt.Errorf("scan customer: %w", err)
	}

	if len(addressJSON) > 0 && string(addressJSON) != "null" {
		var a domain.Address
		if err := json.Unmarshal(addressJSON, &a); err != nil {
			return nil, fmt.Errorf("unmarshal billing address: %w", err)
		}
		c.BillingAddress = &a
	}

	return &c, nil
}
