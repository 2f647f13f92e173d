package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biodivhub/biodiv-api/internal/models"
	"github.com/biodivhub/biodiv-api/internal/repository"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
	"github.com/biodivhub/biodiv-api/pkg/storage"
)

// newStorageStub backs file operations with a per-test temporary directory.
func newStorageStub(t *testing.T) *storage.LocalStorage {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestAttachmentServiceUpload(t *testing.T) {
	db, mock, cleanup := newServiceMock(t)
	defer cleanup()

	store := newStorageStub(t)
	svc := NewAttachmentService(
		repository.NewAttachmentRepository(db, nil),
		repository.NewSecurityRepository(db, nil),
		store, nil, nil, 0,
	)

	mock.ExpectQuery("INSERT INTO survey_report_attachment").
		WillReturnRows(sqlmock.NewRows([]string{"survey_report_attachment_id"}).AddRow(8))

	att, err := svc.Upload(context.Background(), 3, AttachmentUpload{
		Filename: "owl_report.pdf",
		Size:     2048,
		Title:    "Owl nesting report",
		Type:     "Report",
		Content:  strings.NewReader("%PDF-1.4"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), att.ID)
	assert.Equal(t, models.AttachmentTypeReport, att.FileType)
	require.NotNil(t, att.Title)
	assert.Equal(t, "Owl nesting report", *att.Title)

	// The stream must have been persisted under the generated key.
	file, err := store.Open(att.FileKey)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentServiceUploadUnknownType(t *testing.T) {
	db, _, cleanup := newServiceMock(t)
	defer cleanup()

	svc := NewAttachmentService(
		repository.NewAttachmentRepository(db, nil),
		repository.NewSecurityRepository(db, nil),
		newStorageStub(t), nil, nil, 0,
	)

	_, err := svc.Upload(context.Background(), 3, AttachmentUpload{
		Filename: "clip.mp4",
		Type:     "Video",
		Content:  strings.NewReader("data"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrMissingParameter)
}

func TestAttachmentServiceUploadCleansUpOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newServiceMock(t)
	defer cleanup()

	store := newStorageStub(t)
	svc := NewAttachmentService(
		repository.NewAttachmentRepository(db, nil),
		repository.NewSecurityRepository(db, nil),
		store, nil, nil, 0,
	)

	mock.ExpectQuery("INSERT INTO survey_attachment").
		WillReturnRows(sqlmock.NewRows([]string{"survey_attachment_id"}))

	_, err := svc.Upload(context.Background(), 3, AttachmentUpload{
		Filename: "site_photo.jpg",
		Size:     1024,
		Type:     "Other",
		Content:  strings.NewReader("jpeg-bytes"),
	})
	require.Error(t, err)

	// The orphaned file is removed when the row insert fails.
	deleted, cleanupErr := store.CleanupOlderThan(-time.Hour)
	require.NoError(t, cleanupErr)
	assert.Empty(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentServiceListWithClassification(t *testing.T) {
	db, mock, cleanup := newServiceMock(t)
	defer cleanup()

	svc := NewAttachmentService(
		repository.NewAttachmentRepository(db, nil),
		repository.NewSecurityRepository(db, nil),
		newStorageStub(t), nil, nil, 0,
	)

	reviewedAt := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"survey_attachment_id", "survey_id", "file_name", "file_key", "file_type",
		"file_size", "title", "description", "security_review_timestamp", "security_reviewed_by",
		"revision_count", "created_at",
	}).
		AddRow(8, 3, "owl_report.pdf", "surveys/3/attachments/owl_report.pdf", "Report", 2048, nil, nil, reviewedAt, "reviewer-1", 1, reviewedAt).
		AddRow(9, 3, "raptor_survey.pdf", "surveys/3/attachments/raptor_survey.pdf", "Report", 4096, nil, nil, nil, nil, 0, reviewedAt)

	// The per-attachment rule lookups run concurrently, so their order is
	// not fixed.
	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery("SELECT survey_report_attachment_id AS survey_attachment_id").
		WithArgs(int64(3)).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT security_reason_id FROM survey_report_attachment_security").
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"security_reason_id"}).AddRow(2).AddRow(5))
	mock.ExpectQuery("SELECT security_reason_id FROM survey_report_attachment_security").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"security_reason_id"}))

	items, err := svc.ListWithClassification(context.Background(), "Report", 3)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.SecurityStateSecured, items[0].State)
	assert.Equal(t, []int64{2, 5}, items[0].AppliedRuleIDs)
	assert.Equal(t, models.SecurityStateAwaitingReview, items[1].State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentServiceSignedDownloadRoundTrip(t *testing.T) {
	db, mock, cleanup := newServiceMock(t)
	defer cleanup()

	store := newStorageStub(t)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	svc := NewAttachmentService(
		repository.NewAttachmentRepository(db, nil),
		repository.NewSecurityRepository(db, nil),
		store, signer, nil, 0,
	)

	_, err := store.Save("surveys/3/attachments/owl_report.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"survey_attachment_id", "survey_id", "file_name", "file_key", "file_type",
		"file_size", "title", "description", "security_review_timestamp", "security_reviewed_by",
		"revision_count", "created_at",
	}).AddRow(8, 3, "owl_report.pdf", "surveys/3/attachments/owl_report.pdf", "Report", 2048, nil, nil, nil, nil, 0, now)

	mock.ExpectQuery("SELECT survey_report_attachment_id AS survey_attachment_id").
		WithArgs(int64(8), int64(3)).
		WillReturnRows(rows)

	grant, err := svc.SignDownload(context.Background(), "Report", 3, 8)
	require.NoError(t, err)
	assert.NotEmpty(t, grant.Token)
	assert.True(t, grant.ExpiresAt.After(now))

	file, err := svc.OpenSigned(grant.Token)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentServiceOpenSignedRejectsTamperedToken(t *testing.T) {
	db, _, cleanup := newServiceMock(t)
	defer cleanup()

	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	svc := NewAttachmentService(
		repository.NewAttachmentRepository(db, nil),
		repository.NewSecurityRepository(db, nil),
		newStorageStub(t), signer, nil, 0,
	)

	_, err := svc.OpenSigned("attachment-8.12345.cGF0aA.deadbeef")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
