package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/biodivhub/biodiv-api/internal/models"
	"github.com/biodivhub/biodiv-api/pkg/database"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
)

// FundingSourceRepository persists funding sources. Updates carry the caller's
// expected revision_count; the tr_revision_count trigger rejects stale writes
// with SQLSTATE 40001, which the gateway translates to ErrStaleRevision.
type FundingSourceRepository struct {
	db     database.Querier
	logger *zap.Logger
}

// NewFundingSourceRepository constructs the repository.
func NewFundingSourceRepository(db *sqlx.DB, logger *zap.Logger) *FundingSourceRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FundingSourceRepository{db: db, logger: logger}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *FundingSourceRepository) WithTx(tx *sqlx.Tx) *FundingSourceRepository {
	return &FundingSourceRepository{db: tx, logger: r.logger}
}

// Create inserts a funding source and returns the generated id.
func (r *FundingSourceRepository) Create(ctx context.Context, fs *models.FundingSource) (int64, error) {
	if fs.Name == "" {
		return 0, appErrors.Clone(appErrors.ErrBuildSQL, "funding source requires a name")
	}
	if fs.CreatedAt.IsZero() {
		fs.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO funding_source
	(name, description, start_date, end_date, created_at)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING funding_source_id`

	var id int64
	if err := r.db.GetContext(ctx, &id, query, fs.Name, fs.Description, fs.StartDate, fs.EndDate, fs.CreatedAt); err != nil {
		return 0, fmt.Errorf("create funding source: %w", err)
	}
	return id, nil
}

// GetByID fetches one funding source.
func (r *FundingSourceRepository) GetByID(ctx context.Context, id int64) (*models.FundingSource, error) {
	const query = `SELECT funding_source_id, name, description, start_date, end_date, revision_count, created_at, updated_at
	FROM funding_source WHERE funding_source_id = $1`

	var fs models.FundingSource
	if err := r.db.GetContext(ctx, &fs, query, id); err != nil {
		return nil, err
	}
	return &fs, nil
}

// List returns all funding sources ordered by name.
func (r *FundingSourceRepository) List(ctx context.Context) ([]models.FundingSource, error) {
	const query = `SELECT funding_source_id, name, description, start_date, end_date, revision_count, created_at, updated_at
	FROM funding_source ORDER BY name`

	var sources []models.FundingSource
	if err := r.db.SelectContext(ctx, &sources, query); err != nil {
		return nil, fmt.Errorf("list funding sources: %w", err)
	}
	return sources, nil
}

// Update rewrites the mutable columns. The expected revision rides along in
// the SET list; a mismatch trips the revision trigger and surfaces as a typed
// stale-revision error rather than a matched string.
func (r *FundingSourceRepository) Update(ctx context.Context, id int64, name, description string, expectedRevision int) error {
	if id <= 0 || name == "" {
		return appErrors.Clone(appErrors.ErrBuildSQL, "funding source update requires id and name")
	}

	const query = `UPDATE funding_source
	SET name = $1, description = $2, revision_count = $3, updated_at = now()
	WHERE funding_source_id = $4`

	res, err := r.db.ExecContext(ctx, query, name, description, expectedRevision, id)
	if err != nil {
		return database.TranslateError(fmt.Errorf("update funding source: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check funding source update rows: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrApplyFailed, "funding source not found")
	}
	return nil
}

// Delete removes a funding source.
func (r *FundingSourceRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM funding_source WHERE funding_source_id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete funding source: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check funding source delete rows: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "funding source not found")
	}
	return nil
}
