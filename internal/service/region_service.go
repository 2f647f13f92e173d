package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/biodivhub/biodiv-api/internal/models"
	"github.com/biodivhub/biodiv-api/internal/repository"
	"github.com/biodivhub/biodiv-api/pkg/database"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
)

type regionCacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// RegionService wraps region lookups and association replacement.
type RegionService struct {
	db       *sqlx.DB
	regions  *repository.RegionRepository
	cache    regionCacheStore
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewRegionService constructs the service.
func NewRegionService(db *sqlx.DB, regions *repository.RegionRepository, cache regionCacheStore, logger *zap.Logger, cacheTTL time.Duration) *RegionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Minute
	}
	return &RegionService{db: db, regions: regions, cache: cache, logger: logger, cacheTTL: cacheTTL}
}

// SearchByDetails looks up regions by name/source-layer pairs. Lookups are
// cached keyed on the request digest; the reference table changes rarely.
func (s *RegionService) SearchByDetails(ctx context.Context, details []models.RegionDetail) ([]models.Region, error) {
	if len(details) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one region detail is required")
	}

	cacheKey := repository.CacheKeyRegionSearch + digestDetails(details)
	if s.cache != nil {
		var cached []models.Region
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	regions, err := s.regions.SearchByDetails(ctx, details)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && len(regions) > 0 {
		if err := s.cache.Set(ctx, cacheKey, regions, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache region search", zap.Error(err))
		}
	}
	return regions, nil
}

// ReplaceAssociations fully replaces the region links of a project or survey.
// The association rows are delete-all/insert-all inside one transaction; no
// partial diffing is performed.
func (s *RegionService) ReplaceAssociations(ctx context.Context, owner repository.RegionOwner, ownerID int64, regionIDs []int64) error {
	if ownerID <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "owner id is required")
	}

	return database.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		return s.regions.WithTx(tx).ReplaceAssociations(ctx, owner, ownerID, regionIDs)
	})
}

// ListAssociated returns the regions currently linked to a project or survey.
func (s *RegionService) ListAssociated(ctx context.Context, owner repository.RegionOwner, ownerID int64) ([]models.Region, error) {
	return s.regions.ListAssociated(ctx, owner, ownerID)
}

func digestDetails(details []models.RegionDetail) string {
	payload, _ := json.Marshal(details)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}
