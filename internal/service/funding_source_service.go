package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/biodivhub/biodiv-api/internal/dto"
	"github.com/biodivhub/biodiv-api/internal/models"
	"github.com/biodivhub/biodiv-api/internal/repository"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
)

// FundingSourceService manages funding source CRUD. Stale updates are rejected
// by the revision trigger and surface to callers as a 409 conflict the client
// resolves by reloading; no automatic retry happens here.
type FundingSourceService struct {
	repo   *repository.FundingSourceRepository
	logger *zap.Logger
}

// NewFundingSourceService constructs the service.
func NewFundingSourceService(repo *repository.FundingSourceRepository, logger *zap.Logger) *FundingSourceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FundingSourceService{repo: repo, logger: logger}
}

// Create validates and inserts a funding source.
func (s *FundingSourceService) Create(ctx context.Context, req dto.CreateFundingSourceRequest) (*models.FundingSource, error) {
	fs := &models.FundingSource{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.StartDate != "" {
		start, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "startDate must be YYYY-MM-DD")
		}
		fs.StartDate = &start
	}
	if req.EndDate != "" {
		end, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must be YYYY-MM-DD")
		}
		fs.EndDate = &end
	}

	id, err := s.repo.Create(ctx, fs)
	if err != nil {
		return nil, err
	}
	fs.ID = id
	return fs, nil
}

// Get returns one funding source.
func (s *FundingSourceService) Get(ctx context.Context, id int64) (*models.FundingSource, error) {
	fs, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "funding source not found")
		}
		return nil, err
	}
	return fs, nil
}

// List returns all funding sources.
func (s *FundingSourceService) List(ctx context.Context) ([]models.FundingSource, error) {
	return s.repo.List(ctx)
}

// Update rewrites the mutable columns, passing the caller's expected revision
// through to the trigger-guarded statement.
func (s *FundingSourceService) Update(ctx context.Context, id int64, req dto.UpdateFundingSourceRequest) (*models.FundingSource, error) {
	if err := s.repo.Update(ctx, id, req.Name, req.Description, req.RevisionCount); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a funding source.
func (s *FundingSourceService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
