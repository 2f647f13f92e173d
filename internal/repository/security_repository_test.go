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

func TestSecurityRepositoryReplaceAppliedRules(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSecurityRepository(db, nil)

	mock.ExpectExec("DELETE FROM survey_report_attachment_security").
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO survey_report_attachment_security").
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.ReplaceAppliedRules(context.Background(), models.AttachmentTypeReport, 8, []int64{1, 2, 3}, "reviewer-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSecurityRepositoryReplaceAppliedRulesEmptySet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSecurityRepository(db, nil)

	// Removing every rule only clears the association table.
	mock.ExpectExec("DELETE FROM survey_attachment_security").
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.ReplaceAppliedRules(context.Background(), models.AttachmentTypeOther, 8, nil, "reviewer-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSecurityRepositoryReplaceAppliedRulesUnknownType(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSecurityRepository(db, nil)

	err := repo.ReplaceAppliedRules(context.Background(), models.AttachmentType("Video"), 8, []int64{1}, "reviewer-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrMissingParameter)
}

func TestSecurityRepositoryListAppliedRuleIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSecurityRepository(db, nil)

	rows := sqlmock.NewRows([]string{"security_reason_id"}).AddRow(2).AddRow(5)
	mock.ExpectQuery("SELECT security_reason_id FROM survey_attachment_security").
		WithArgs(int64(8)).
		WillReturnRows(rows)

	ids, err := repo.ListAppliedRuleIDs(context.Background(), models.AttachmentTypeOther, 8)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 5}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
