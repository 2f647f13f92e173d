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

// AttachmentRepository persists survey attachments. Report attachments and
// generic attachments live in separate tables; every method resolves the
// target table from the closed AttachmentType enum.
type AttachmentRepository struct {
	db     database.Querier
	logger *zap.Logger
}

// NewAttachmentRepository constructs the repository.
func NewAttachmentRepository(db *sqlx.DB, logger *zap.Logger) *AttachmentRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentRepository{db: db, logger: logger}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *AttachmentRepository) WithTx(tx *sqlx.Tx) *AttachmentRepository {
	return &AttachmentRepository{db: tx, logger: r.logger}
}

// tableFor maps the attachment variant to its table name. The enum is closed;
// an unknown variant is a build failure, not a fallback.
func tableFor(attachmentType models.AttachmentType) (string, error) {
	switch attachmentType {
	case models.AttachmentTypeReport:
		return "survey_report_attachment", nil
	case models.AttachmentTypeOther:
		return "survey_attachment", nil
	default:
		return "", appErrors.Clone(appErrors.ErrMissingParameter, "failed to resolve attachment table")
	}
}

// Create inserts attachment metadata and returns the generated id.
func (r *AttachmentRepository) Create(ctx context.Context, att *models.SurveyAttachment) (int64, error) {
	table, err := tableFor(att.FileType)
	if err != nil {
		return 0, err
	}
	if att.SurveyID <= 0 || att.FileName == "" {
		return 0, appErrors.Clone(appErrors.ErrBuildSQL, "attachment requires survey id and file name")
	}

	if att.CreatedAt.IsZero() {
		att.CreatedAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`INSERT INTO %s
	(survey_id, file_name, file_key, file_size, title, description, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING %s_id`, table, table)

	var id int64
	if err := r.db.GetContext(ctx, &id, query, att.SurveyID, att.FileName, att.FileKey, att.FileSize, att.Title, att.Description, att.CreatedAt); err != nil {
		return 0, fmt.Errorf("create %s: %w", table, err)
	}
	return id, nil
}

// Get fetches one attachment row scoped to its survey.
func (r *AttachmentRepository) Get(ctx context.Context, attachmentType models.AttachmentType, surveyID, attachmentID int64) (*models.SurveyAttachment, error) {
	table, err := tableFor(attachmentType)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s_id AS survey_attachment_id, survey_id, file_name, file_key,
       '%s' AS file_type, file_size, title, description,
       security_review_timestamp, security_reviewed_by, revision_count, created_at
	FROM %s WHERE %s_id = $1 AND survey_id = $2`, table, attachmentType, table, table)

	var att models.SurveyAttachment
	if err := r.db.GetContext(ctx, &att, query, attachmentID, surveyID); err != nil {
		return nil, err
	}
	return &att, nil
}

// StampSecurityReview records the review decision timestamp and reviewer on
// the attachment row. The update is scoped to the project as well as the
// survey; a zero affected-row count means the attachment does not exist under
// the survey, or the survey does not belong to the project, and fails with
// ErrApplyFailed.
func (r *AttachmentRepository) StampSecurityReview(ctx context.Context, attachmentType models.AttachmentType, projectID, surveyID, attachmentID int64, reviewedBy string, reviewedAt time.Time) (int64, error) {
	table, err := tableFor(attachmentType)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`UPDATE %s
	SET security_review_timestamp = $1, security_reviewed_by = $2
	WHERE %s_id = $3 AND survey_id = $4
	  AND EXISTS (SELECT 1 FROM survey WHERE survey.survey_id = $4 AND survey.project_id = $5)`, table, table)

	res, err := r.db.ExecContext(ctx, query, reviewedAt, reviewedBy, attachmentID, surveyID, projectID)
	if err != nil {
		return 0, fmt.Errorf("stamp security review on %s: %w", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check security review rows: %w", err)
	}
	if affected == 0 {
		return 0, appErrors.Clone(appErrors.ErrApplyFailed, "attachment not found under the given project and survey")
	}
	return affected, nil
}

// ListBySurvey returns attachment metadata for one survey and variant.
func (r *AttachmentRepository) ListBySurvey(ctx context.Context, attachmentType models.AttachmentType, surveyID int64) ([]models.SurveyAttachment, error) {
	table, err := tableFor(attachmentType)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s_id AS survey_attachment_id, survey_id, file_name, file_key,
       '%s' AS file_type, file_size, title, description,
       security_review_timestamp, security_reviewed_by, revision_count, created_at
	FROM %s WHERE survey_id = $1 ORDER BY created_at DESC`, table, attachmentType, table)

	var items []models.SurveyAttachment
	if err := r.db.SelectContext(ctx, &items, query, surveyID); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return items, nil
}
