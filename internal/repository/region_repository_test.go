package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biodivhub/biodiv-api/internal/models"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
)

func TestRegionRepositorySearchByDetails(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegionRepository(db, nil)

	rows := sqlmock.NewRows([]string{"region_id", "region_name", "org_unit", "org_unit_name", "feature_code", "feature_name", "object_id", "geojson"}).
		AddRow(1, "Skeena", "1", "Skeena Region", "NRM", "Natural Resource Region", 100, []byte(`{}`)).
		AddRow(2, "Omineca", "2", "Omineca Region", "NRM", "Natural Resource Region", 101, []byte(`{}`))

	mock.ExpectQuery("SELECT region_id, region_name").
		WithArgs("Skeena", "NRM", "Omineca", "NRM").
		WillReturnRows(rows)

	regions, err := repo.SearchByDetails(context.Background(), []models.RegionDetail{
		{RegionName: "Skeena", SourceLayer: "NRM"},
		{RegionName: "Omineca", SourceLayer: "NRM"},
	})
	require.NoError(t, err)
	assert.Len(t, regions, 2)
	assert.Equal(t, "Skeena", regions[0].RegionName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegionRepositorySearchByDetailsRequiresInput(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegionRepository(db, nil)

	_, err := repo.SearchByDetails(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrBuildSQL)
}

func TestRegionRepositoryReplaceAssociations(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegionRepository(db, nil)

	mock.ExpectExec("DELETE FROM survey_region").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO survey_region").
		WithArgs(int64(3), int64(1), int64(3), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.ReplaceAssociations(context.Background(), RegionOwnerSurvey, 3, []int64{1, 2})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegionRepositoryReplaceAssociationsEmptyClears(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegionRepository(db, nil)

	mock.ExpectExec("DELETE FROM project_region").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 4))

	err := repo.ReplaceAssociations(context.Background(), RegionOwnerProject, 7, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegionRepositoryReplaceAssociationsUnknownOwner(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegionRepository(db, nil)

	err := repo.ReplaceAssociations(context.Background(), RegionOwner("organisation"), 7, []int64{1})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrMissingParameter)
}

func TestRegionRepositoryListAssociated(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegionRepository(db, nil)

	rows := sqlmock.NewRows([]string{"region_id", "region_name", "org_unit", "org_unit_name", "feature_code", "feature_name", "object_id", "geojson"}).
		AddRow(1, "Skeena", "1", "Skeena Region", "NRM", "Natural Resource Region", 100, []byte(`{}`))

	mock.ExpectQuery("SELECT rl.region_id").
		WithArgs(int64(3)).
		WillReturnRows(rows)

	regions, err := repo.ListAssociated(context.Background(), RegionOwnerSurvey, 3)
	require.NoError(t, err)
	assert.Len(t, regions, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
