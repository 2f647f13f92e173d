package service

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biodivhub/biodiv-api/internal/dto"
	"github.com/biodivhub/biodiv-api/internal/repository"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
)

func TestFundingSourceServiceCreate(t *testing.T) {
	db, mock, cleanup := newServiceMock(t)
	defer cleanup()

	svc := NewFundingSourceService(repository.NewFundingSourceRepository(db, nil), nil)

	mock.ExpectQuery("INSERT INTO funding_source").
		WillReturnRows(sqlmock.NewRows([]string{"funding_source_id"}).AddRow(4))

	fs, err := svc.Create(context.Background(), dto.CreateFundingSourceRequest{
		Name:        "Wildlife Trust",
		Description: "multi-year grant",
		StartDate:   "2026-01-01",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), fs.ID)
	require.NotNil(t, fs.StartDate)
	assert.Equal(t, 2026, fs.StartDate.Year())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFundingSourceServiceCreateRejectsBadDate(t *testing.T) {
	db, _, cleanup := newServiceMock(t)
	defer cleanup()

	svc := NewFundingSourceService(repository.NewFundingSourceRepository(db, nil), nil)

	_, err := svc.Create(context.Background(), dto.CreateFundingSourceRequest{
		Name:      "Wildlife Trust",
		StartDate: "01/01/2026",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestFundingSourceServiceGetNotFound(t *testing.T) {
	db, mock, cleanup := newServiceMock(t)
	defer cleanup()

	svc := NewFundingSourceService(repository.NewFundingSourceRepository(db, nil), nil)

	mock.ExpectQuery("SELECT funding_source_id").
		WithArgs(int64(999)).
		WillReturnRows(sqlmock.NewRows([]string{"funding_source_id", "name", "description", "start_date", "end_date", "revision_count", "created_at", "updated_at"}))

	_, err := svc.Get(context.Background(), 999)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFundingSourceServiceUpdateStaleRevision(t *testing.T) {
	db, mock, cleanup := newServiceMock(t)
	defer cleanup()

	svc := NewFundingSourceService(repository.NewFundingSourceRepository(db, nil), nil)

	mock.ExpectExec("UPDATE funding_source").
		WithArgs("Wildlife Trust", "updated", 2, int64(4)).
		WillReturnError(&pq.Error{Code: "40001", Message: "revision_count mismatch"})

	_, err := svc.Update(context.Background(), 4, dto.UpdateFundingSourceRequest{
		Name:          "Wildlife Trust",
		Description:   "updated",
		RevisionCount: 2,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrStaleRevision)
	assert.NoError(t, mock.ExpectationsWereMet())
}
