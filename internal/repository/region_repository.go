package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/biodivhub/biodiv-api/internal/models"
	"github.com/biodivhub/biodiv-api/pkg/database"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
)

// RegionOwner selects which association table a region link belongs to.
type RegionOwner string

const (
	RegionOwnerProject RegionOwner = "project"
	RegionOwnerSurvey  RegionOwner = "survey"
)

// RegionRepository reads the region lookup table and maintains the
// project/survey region association tables.
type RegionRepository struct {
	db     database.Querier
	logger *zap.Logger
}

// NewRegionRepository constructs the repository.
func NewRegionRepository(db *sqlx.DB, logger *zap.Logger) *RegionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegionRepository{db: db, logger: logger}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *RegionRepository) WithTx(tx *sqlx.Tx) *RegionRepository {
	return &RegionRepository{db: tx, logger: r.logger}
}

func associationFor(owner RegionOwner) (table, column string, err error) {
	switch owner {
	case RegionOwnerProject:
		return "project_region", "project_id", nil
	case RegionOwnerSurvey:
		return "survey_region", "survey_id", nil
	default:
		return "", "", appErrors.Clone(appErrors.ErrMissingParameter, "failed to resolve region association table")
	}
}

// SearchByDetails looks up regions matching any of the provided name and
// source-layer pairs.
func (r *RegionRepository) SearchByDetails(ctx context.Context, details []models.RegionDetail) ([]models.Region, error) {
	if len(details) == 0 {
		return nil, appErrors.Clone(appErrors.ErrBuildSQL, "region search requires at least one detail")
	}

	builder := strings.Builder{}
	builder.WriteString(`SELECT region_id, region_name, org_unit, org_unit_name, feature_code, feature_name, object_id, geojson
	FROM region_lookup WHERE `)

	args := make([]interface{}, 0, len(details)*2)
	conditions := make([]string, 0, len(details))
	for _, detail := range details {
		args = append(args, detail.RegionName)
		nameIdx := len(args)
		args = append(args, detail.SourceLayer)
		layerIdx := len(args)
		conditions = append(conditions, fmt.Sprintf("(region_name = $%d AND feature_code = $%d)", nameIdx, layerIdx))
	}
	builder.WriteString(strings.Join(conditions, " OR "))

	var regions []models.Region
	if err := r.db.SelectContext(ctx, &regions, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("search regions: %w", err)
	}
	return regions, nil
}

// GetByIDs resolves region rows for the given ids.
func (r *RegionRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.Region, error) {
	if len(ids) == 0 {
		return []models.Region{}, nil
	}

	query, args, err := sqlx.In(`SELECT region_id, region_name, org_unit, org_unit_name, feature_code, feature_name, object_id, geojson
	FROM region_lookup WHERE region_id IN (?)`, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBuildSQL.Code, appErrors.ErrBuildSQL.Status, "failed to build region id query")
	}
	query = r.db.Rebind(query)

	var regions []models.Region
	if err := r.db.SelectContext(ctx, &regions, query, args...); err != nil {
		return nil, fmt.Errorf("get regions by id: %w", err)
	}
	return regions, nil
}

// ReplaceAssociations fully replaces the owner's region links: delete-all then
// insert-all. Association rows carry nothing beyond the two foreign keys, so
// no diffing is attempted.
func (r *RegionRepository) ReplaceAssociations(ctx context.Context, owner RegionOwner, ownerID int64, regionIDs []int64) error {
	table, column, err := associationFor(owner)
	if err != nil {
		return err
	}
	if ownerID <= 0 {
		return appErrors.Clone(appErrors.ErrBuildSQL, "owner id required for region associations")
	}

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, table, column)
	if _, err := r.db.ExecContext(ctx, deleteQuery, ownerID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	if len(regionIDs) == 0 {
		return nil
	}

	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("INSERT INTO %s (%s, region_id) VALUES ", table, column))
	args := make([]interface{}, 0, len(regionIDs)*2)
	values := make([]string, 0, len(regionIDs))
	for _, regionID := range regionIDs {
		args = append(args, ownerID)
		ownerIdx := len(args)
		args = append(args, regionID)
		regionIdx := len(args)
		values = append(values, fmt.Sprintf("($%d, $%d)", ownerIdx, regionIdx))
	}
	builder.WriteString(strings.Join(values, ", "))

	if _, err := r.db.ExecContext(ctx, builder.String(), args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// ListAssociated returns the regions currently linked to the owner.
func (r *RegionRepository) ListAssociated(ctx context.Context, owner RegionOwner, ownerID int64) ([]models.Region, error) {
	table, column, err := associationFor(owner)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT rl.region_id, rl.region_name, rl.org_unit, rl.org_unit_name,
       rl.feature_code, rl.feature_name, rl.object_id, rl.geojson
	FROM region_lookup rl
	JOIN %s assoc ON assoc.region_id = rl.region_id
	WHERE assoc.%s = $1
	ORDER BY rl.region_name`, table, column)

	var regions []models.Region
	if err := r.db.SelectContext(ctx, &regions, query, ownerID); err != nil {
		return nil, fmt.Errorf("list %s regions: %w", owner, err)
	}
	return regions, nil
}
