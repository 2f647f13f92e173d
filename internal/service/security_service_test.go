package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biodivhub/biodiv-api/internal/models"
	"github.com/biodivhub/biodiv-api/internal/repository"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
)

type ruleSearchStub struct {
	proprietary []models.SecurityRule
	persecution []models.SecurityRule
	err         error
	calls       int
}

func (s *ruleSearchStub) GetProprietarySecurityRules(ctx context.Context) ([]models.SecurityRule, error) {
	s.calls++
	return s.proprietary, s.err
}

func (s *ruleSearchStub) GetPersecutionSecurityRules(ctx context.Context) ([]models.SecurityRule, error) {
	s.calls++
	return s.persecution, s.err
}

func (s *ruleSearchStub) GetPersecutionSecurityFromIDs(ctx context.Context, ids []int64) ([]models.SecurityRule, error) {
	s.calls++
	return s.persecution, s.err
}

type auditLoggerStub struct {
	logs []*models.AuditLog
}

func (s *auditLoggerStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

type securityMetricsStub struct {
	decisions []string
	failures  []string
}

func (s *securityMetricsStub) ObserveClassificationDecision(state string) {
	s.decisions = append(s.decisions, state)
}

func (s *securityMetricsStub) ObserveSearchFailure(index string) {
	s.failures = append(s.failures, index)
}

type cacheStoreStub struct {
	entries map[string][]byte
}

func newCacheStoreStub() *cacheStoreStub {
	return &cacheStoreStub{entries: map[string][]byte{}}
}

func (s *cacheStoreStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheStoreStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.entries[key] = raw
	return nil
}

func newSecurityService(t *testing.T, rules securityRuleSearch, cache securityCacheStore, audit securityAuditLogger, metrics securityMetrics) (*SecurityService, sqlmock.Sqlmock, func()) {
	db, mock, cleanup := newServiceMock(t)
	svc := NewSecurityService(
		db,
		repository.NewAttachmentRepository(db, nil),
		repository.NewSecurityRepository(db, nil),
		rules, cache, audit, metrics, nil,
		SecurityServiceConfig{CacheEnabled: cache != nil},
	)
	return svc, mock, cleanup
}

func TestSecurityServiceMakeAttachmentSecure(t *testing.T) {
	audit := &auditLoggerStub{}
	metrics := &securityMetricsStub{}
	svc, mock, cleanup := newSecurityService(t, &ruleSearchStub{}, nil, audit, metrics)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE survey_report_attachment").
		WithArgs(sqlmock.AnyArg(), "reviewer-1", int64(8), int64(3), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM survey_report_attachment_security").
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO survey_report_attachment_security").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	affected, err := svc.MakeAttachmentSecure(context.Background(), MakeSecureParams{
		ProjectID:      1,
		SurveyID:       3,
		AttachmentID:   8,
		AttachmentType: "Report",
		RuleIDs:        []int64{2, 5},
		Actor:          &models.JWTClaims{UserID: "reviewer-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	assert.Equal(t, []string{string(models.SecurityStateSecured)}, metrics.decisions)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionApplySecurity, audit.logs[0].Action)
	assert.Equal(t, "attachment_security", audit.logs[0].Resource)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSecurityServiceMakeAttachmentSecureUnknownType(t *testing.T) {
	svc, _, cleanup := newSecurityService(t, &ruleSearchStub{}, nil, nil, nil)
	defer cleanup()

	_, err := svc.MakeAttachmentSecure(context.Background(), MakeSecureParams{
		SurveyID:       3,
		AttachmentID:   8,
		AttachmentType: "Video",
		RuleIDs:        []int64{1},
		Actor:          &models.JWTClaims{UserID: "reviewer-1"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrMissingParameter)
}

func TestSecurityServiceMakeAttachmentSecureRequiresRules(t *testing.T) {
	svc, _, cleanup := newSecurityService(t, &ruleSearchStub{}, nil, nil, nil)
	defer cleanup()

	_, err := svc.MakeAttachmentSecure(context.Background(), MakeSecureParams{
		SurveyID:       3,
		AttachmentID:   8,
		AttachmentType: "Report",
		Actor:          &models.JWTClaims{UserID: "reviewer-1"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSecurityServiceMakeAttachmentSecureMissingAttachment(t *testing.T) {
	metrics := &securityMetricsStub{}
	svc, mock, cleanup := newSecurityService(t, &ruleSearchStub{}, nil, nil, metrics)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE survey_attachment").
		WithArgs(sqlmock.AnyArg(), "reviewer-1", int64(99), int64(3), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.MakeAttachmentSecure(context.Background(), MakeSecureParams{
		ProjectID:      1,
		SurveyID:       3,
		AttachmentID:   99,
		AttachmentType: "Other",
		RuleIDs:        []int64{1},
		Actor:          &models.JWTClaims{UserID: "reviewer-1"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrApplyFailed)
	assert.Empty(t, metrics.decisions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSecurityServiceMakeAttachmentSecureProjectMismatch(t *testing.T) {
	metrics := &securityMetricsStub{}
	svc, mock, cleanup := newSecurityService(t, &ruleSearchStub{}, nil, nil, metrics)
	defer cleanup()

	// The survey exists but belongs to another project; the scoped update
	// touches no rows.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE survey_report_attachment").
		WithArgs(sqlmock.AnyArg(), "reviewer-1", int64(8), int64(3), int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.MakeAttachmentSecure(context.Background(), MakeSecureParams{
		ProjectID:      99,
		SurveyID:       3,
		AttachmentID:   8,
		AttachmentType: "Report",
		RuleIDs:        []int64{2},
		Actor:          &models.JWTClaims{UserID: "reviewer-1"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrApplyFailed)
	assert.Empty(t, metrics.decisions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSecurityServiceMakeAttachmentSecureRequiresActor(t *testing.T) {
	svc, _, cleanup := newSecurityService(t, &ruleSearchStub{}, nil, nil, nil)
	defer cleanup()

	_, err := svc.MakeAttachmentSecure(context.Background(), MakeSecureParams{
		ProjectID:      1,
		SurveyID:       3,
		AttachmentID:   8,
		AttachmentType: "Report",
		RuleIDs:        []int64{2},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.RemoveAttachmentSecurity(context.Background(), RemoveSecurityParams{
		ProjectID:      1,
		SurveyID:       3,
		AttachmentID:   8,
		AttachmentType: "Report",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestSecurityServiceRemoveAttachmentSecurity(t *testing.T) {
	audit := &auditLoggerStub{}
	metrics := &securityMetricsStub{}
	svc, mock, cleanup := newSecurityService(t, &ruleSearchStub{}, nil, audit, metrics)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE survey_attachment").
		WithArgs(sqlmock.AnyArg(), "reviewer-1", int64(8), int64(3), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Removal clears the association table without re-inserting.
	mock.ExpectExec("DELETE FROM survey_attachment_security").
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	affected, err := svc.RemoveAttachmentSecurity(context.Background(), RemoveSecurityParams{
		ProjectID:      1,
		SurveyID:       3,
		AttachmentID:   8,
		AttachmentType: "Other",
		Actor:          &models.JWTClaims{UserID: "reviewer-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	assert.Equal(t, []string{string(models.SecurityStateUnsecured)}, metrics.decisions)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRemoveSecurity, audit.logs[0].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSecurityServiceGetAttachmentSecurityReasons(t *testing.T) {
	search := &ruleSearchStub{
		persecution: []models.SecurityRule{
			{SecurityReasonID: 2, Category: models.SecurityCategoryPersecution, ReasonTitle: "Nest site", TaxonCode: "B-GOEA"},
		},
		proprietary: []models.SecurityRule{
			{SecurityReasonID: 5, Category: models.SecurityCategoryProprietary, ReasonTitle: "Third-party data"},
		},
	}
	svc, mock, cleanup := newSecurityService(t, search, nil, nil, nil)
	defer cleanup()

	reviewedAt := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"survey_attachment_id", "survey_id", "file_name", "file_key", "file_type",
		"file_size", "title", "description", "security_review_timestamp", "security_reviewed_by",
		"revision_count", "created_at",
	}).AddRow(8, 3, "owl_report.pdf", "surveys/3/attachments/owl_report.pdf", "Report", 2048, nil, nil, reviewedAt, "reviewer-1", 1, reviewedAt)

	mock.ExpectQuery("SELECT survey_report_attachment_id AS survey_attachment_id").
		WithArgs(int64(8), int64(3)).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT security_reason_id FROM survey_report_attachment_security").
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"security_reason_id"}).AddRow(2).AddRow(5))

	resp, err := svc.GetAttachmentSecurityReasons(context.Background(), "Report", 3, 8)
	require.NoError(t, err)
	assert.Equal(t, models.SecurityStateSecured, resp.State)
	require.Len(t, resp.Reasons, 2)
	assert.Equal(t, "Nest site", resp.Reasons[0].ReasonTitle)
	assert.Equal(t, "Third-party data", resp.Reasons[1].ReasonTitle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSecurityServiceGetAttachmentSecurityReasonsDegradesToBareIDs(t *testing.T) {
	search := &ruleSearchStub{err: appErrors.ErrSearchUnavailable}
	metrics := &securityMetricsStub{}
	svc, mock, cleanup := newSecurityService(t, search, nil, nil, metrics)
	defer cleanup()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"survey_attachment_id", "survey_id", "file_name", "file_key", "file_type",
		"file_size", "title", "description", "security_review_timestamp", "security_reviewed_by",
		"revision_count", "created_at",
	}).AddRow(8, 3, "site_photo.jpg", "surveys/3/attachments/site_photo.jpg", "Other", 1024, nil, nil, now, "reviewer-1", 1, now)

	mock.ExpectQuery("SELECT survey_attachment_id").
		WithArgs(int64(8), int64(3)).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT security_reason_id FROM survey_attachment_security").
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"security_reason_id"}).AddRow(9))

	resp, err := svc.GetAttachmentSecurityReasons(context.Background(), "Other", 3, 8)
	require.NoError(t, err)
	assert.Equal(t, models.SecurityStateSecured, resp.State)
	require.Len(t, resp.Reasons, 1)
	assert.Equal(t, int64(9), resp.Reasons[0].SecurityReasonID)
	assert.Empty(t, resp.Reasons[0].ReasonTitle)
	assert.NotEmpty(t, metrics.failures)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSecurityServiceListSecurityRulesDegradesToEmptyCatalog(t *testing.T) {
	search := &ruleSearchStub{err: appErrors.ErrSearchUnavailable}
	metrics := &securityMetricsStub{}
	svc, _, cleanup := newSecurityService(t, search, nil, nil, metrics)
	defer cleanup()

	rules, err := svc.ListSecurityRules(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, rules)
	assert.Equal(t, []string{"persecution", "proprietary"}, metrics.failures)
}

func TestSecurityServiceListSecurityRulesUnknownCategory(t *testing.T) {
	svc, _, cleanup := newSecurityService(t, &ruleSearchStub{}, nil, nil, nil)
	defer cleanup()

	_, err := svc.ListSecurityRules(context.Background(), "Restricted")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSecurityServiceListSecurityRulesUsesCache(t *testing.T) {
	search := &ruleSearchStub{
		proprietary: []models.SecurityRule{
			{SecurityReasonID: 5, Category: models.SecurityCategoryProprietary, ReasonTitle: "Third-party data"},
		},
	}
	cache := newCacheStoreStub()
	svc, _, cleanup := newSecurityService(t, search, cache, nil, nil)
	defer cleanup()

	first, err := svc.ListSecurityRules(context.Background(), string(models.SecurityCategoryProprietary))
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, search.calls)

	second, err := svc.ListSecurityRules(context.Background(), string(models.SecurityCategoryProprietary))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, search.calls, "second read is served from cache")
}
