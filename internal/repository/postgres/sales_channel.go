package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/programmierbude/trxps-gateway/internal/domain"
	"github.com/programmierbude/trxps-gateway/pkg/database"
	apperrors "github.com/programmierbude/trxps-gateway/pkg/errors"
)

// SalesChannelRepository implements repository.SalesChannelRepository using PostgreSQL.
type SalesChannelRepository struct {
	db database.DBTX
}

// NewSalesChannelRepository creates a new PostgreSQL-backed sales channel repository.
func NewSalesChannelRepository(db database.DBTX) *SalesChannelRepository {
	return &SalesChannelRepository{db: db}
}

// GetByID retrieves a sales channel by its ID.
func (r *SalesChannelRepository) GetByID(ctx context.Context, id string) (_ *domain.SalesChannel, err error) {
	query := `
		SELECT id, name, COALESCE(default_currency, ''), COALESCE(default_locale, ''),
		       COALESCE(default_customer_id::text, '')
		FROM sales_channels
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetSalesChannelByID", query)
	defer func() { end(err) }()

	var sc domain.SalesChannel
	err = r.db.QueryRow(ctx, query, id).Scan(
		&sc.ID,
		&sc.Name,
		&sc.DefaultCurrency,
		&sc.DefaultLocale,
		&sc.DefaultCustomerID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("sales channel", id)
		}
		return nil, fmt.Errorf("scan sales channel: %w", err)
	}
	return &sc, nil
}
