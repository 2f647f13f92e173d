package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/biodivhub/biodiv-api/internal/models"
	"github.com/biodivhub/biodiv-api/pkg/database"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
)

// SubmissionRepository persists occurrence submissions and their append-only
// status/message trail.
type SubmissionRepository struct {
	db     database.Querier
	logger *zap.Logger
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB, logger *zap.Logger) *SubmissionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionRepository{db: db, logger: logger}
}

// WithTx returns a copy of the repository bound to the given transaction.
// Status and message inserts composed by a service must share one transaction;
// the repository itself holds no transaction semantics.
func (r *SubmissionRepository) WithTx(tx *sqlx.Tx) *SubmissionRepository {
	return &SubmissionRepository{db: tx, logger: r.logger}
}

// CreateSubmission inserts a new submission row in its initial state and
// returns the generated id.
func (r *SubmissionRepository) CreateSubmission(ctx context.Context, sub *models.Submission) (int64, error) {
	if sub.SurveyID <= 0 || sub.FileName == "" {
		return 0, appErrors.Clone(appErrors.ErrBuildSQL, "submission requires survey id and file name")
	}

	const query = `INSERT INTO occurrence_submission
	(survey_id, source, file_name, file_key, created_by, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING occurrence_submission_id`

	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}

	var id int64
	err := r.db.GetContext(ctx, &id, query, sub.SurveyID, sub.Source, sub.FileName, sub.FileKey, sub.CreatedBy, sub.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrInsertFailed, "failed to insert submission")
		}
		return 0, fmt.Errorf("create submission: %w", err)
	}
	return id, nil
}

// InsertSubmissionStatus appends one lifecycle status for a submission and
// returns the new submission_status_id. The status type is resolved through
// the lookup table inside the statement.
func (r *SubmissionRepository) InsertSubmissionStatus(ctx context.Context, submissionID int64, statusType models.SubmissionStatusType) (int64, error) {
	if submissionID <= 0 || statusType == "" {
		return 0, appErrors.Clone(appErrors.ErrBuildSQL, "failed to build submission status SQL statement")
	}

	const query = `INSERT INTO submission_status
	(occurrence_submission_id, submission_status_type_id, event_timestamp)
	VALUES (
		$1,
		(SELECT submission_status_type_id FROM submission_status_type WHERE name = $2),
		now()
	)
	RETURNING submission_status_id`

	var statusID int64
	err := r.db.GetContext(ctx, &statusID, query, submissionID, string(statusType))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrUpdateRejected, "failed to insert submission status")
		}
		return 0, fmt.Errorf("insert submission status: %w", err)
	}
	if statusID <= 0 {
		return 0, appErrors.Clone(appErrors.ErrSchemaValidation, "submission status insert returned an invalid id")
	}
	return statusID, nil
}

// InsertSubmissionMessage attaches one message to an existing status entry and
// returns the inserted row.
func (r *SubmissionRepository) InsertSubmissionMessage(ctx context.Context, statusID int64, messageType models.SubmissionMessageType, message, errorCode string) (*models.SubmissionMessage, error) {
	if statusID <= 0 || messageType == "" {
		return nil, appErrors.Clone(appErrors.ErrBuildSQL, "failed to build submission message SQL statement")
	}

	const query = `INSERT INTO submission_message
	(submission_status_id, submission_message_type_id, message, error_code, event_timestamp)
	VALUES (
		$1,
		(SELECT submission_message_type_id FROM submission_message_type WHERE name = $2),
		$3,
		$4,
		now()
	)
	RETURNING submission_message_id, submission_status_id, $2 AS message_type, message, error_code, event_timestamp AS created_at`

	var msg models.SubmissionMessage
	err := r.db.GetContext(ctx, &msg, query, statusID, string(messageType), message, errorCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInsertFailed, "failed to insert submission message")
		}
		return nil, fmt.Errorf("insert submission message: %w", err)
	}
	if msg.ID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrSchemaValidation, "submission message insert returned an invalid id")
	}
	return &msg, nil
}

// GetLatestSubmissionStatus returns the most recent status entry for a
// submission, or sql.ErrNoRows when none exist yet.
func (r *SubmissionRepository) GetLatestSubmissionStatus(ctx context.Context, submissionID int64) (*models.SubmissionStatus, error) {
	const query = `SELECT ss.submission_status_id, ss.occurrence_submission_id,
       sst.name AS status_type, ss.event_timestamp AS created_at
	FROM submission_status ss
	JOIN submission_status_type sst ON sst.submission_status_type_id = ss.submission_status_type_id
	WHERE ss.occurrence_submission_id = $1
	ORDER BY ss.event_timestamp DESC, ss.submission_status_id DESC
	LIMIT 1`

	var status models.SubmissionStatus
	if err := r.db.GetContext(ctx, &status, query, submissionID); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListSubmissionMessages returns all messages recorded against a submission,
// newest status first.
func (r *SubmissionRepository) ListSubmissionMessages(ctx context.Context, submissionID int64) ([]models.SubmissionMessage, error) {
	const query = `SELECT sm.submission_message_id, sm.submission_status_id,
       smt.name AS message_type, sm.message, sm.error_code, sm.event_timestamp AS created_at
	FROM submission_message sm
	JOIN submission_message_type smt ON smt.submission_message_type_id = sm.submission_message_type_id
	JOIN submission_status ss ON ss.submission_status_id = sm.submission_status_id
	WHERE ss.occurrence_submission_id = $1
	ORDER BY ss.event_timestamp DESC, sm.submission_message_id ASC`

	var messages []models.SubmissionMessage
	if err := r.db.SelectContext(ctx, &messages, query, submissionID); err != nil {
		return nil, fmt.Errorf("list submission messages: %w", err)
	}
	return messages, nil
}

// GetSubmission fetches one submission row.
func (r *SubmissionRepository) GetSubmission(ctx context.Context, submissionID int64) (*models.Submission, error) {
	const query = `SELECT occurrence_submission_id, survey_id, source, file_name, file_key, created_by, created_at
	FROM occurrence_submission WHERE occurrence_submission_id = $1`

	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, submissionID); err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetSummarySubmission returns the latest summary submission for a survey, or
// nil when the survey has none (soft-deleted rows are excluded).
func (r *SubmissionRepository) GetSummarySubmission(ctx context.Context, surveyID int64) (*models.SummarySubmission, error) {
	const query = `SELECT survey_summary_submission_id, file_name
	FROM survey_summary_submission
	WHERE survey_id = $1 AND delete_timestamp IS NULL
	ORDER BY event_timestamp DESC
	LIMIT 1`

	var summary models.SummarySubmission
	if err := r.db.GetContext(ctx, &summary, query, surveyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get summary submission: %w", err)
	}
	return &summary, nil
}
