package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/biodivhub/biodiv-api/internal/models"
	"github.com/biodivhub/biodiv-api/pkg/database"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
)

// SecurityRepository persists attachment-to-rule associations. Rule metadata
// itself lives in the search index; only the applied ids are stored here.
type SecurityRepository struct {
	db     database.Querier
	logger *zap.Logger
}

// NewSecurityRepository constructs the repository.
func NewSecurityRepository(db *sqlx.DB, logger *zap.Logger) *SecurityRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SecurityRepository{db: db, logger: logger}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *SecurityRepository) WithTx(tx *sqlx.Tx) *SecurityRepository {
	return &SecurityRepository{db: tx, logger: r.logger}
}

func associationTableFor(attachmentType models.AttachmentType) (string, error) {
	switch attachmentType {
	case models.AttachmentTypeReport:
		return "survey_report_attachment_security", nil
	case models.AttachmentTypeOther:
		return "survey_attachment_security", nil
	default:
		return "", appErrors.Clone(appErrors.ErrMissingParameter, "failed to resolve security association table")
	}
}

// ReplaceAppliedRules swaps the attachment's rule set: delete-all then
// insert-all, no diffing. Caller supplies the transaction.
func (r *SecurityRepository) ReplaceAppliedRules(ctx context.Context, attachmentType models.AttachmentType, attachmentID int64, ruleIDs []int64, createdBy string) error {
	table, err := associationTableFor(attachmentType)
	if err != nil {
		return err
	}
	if attachmentID <= 0 {
		return appErrors.Clone(appErrors.ErrBuildSQL, "attachment id required for security rules")
	}

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE attachment_id = $1`, table)
	if _, err := r.db.ExecContext(ctx, deleteQuery, attachmentID); err != nil {
		return fmt.Errorf("clear applied rules on %s: %w", table, err)
	}

	if len(ruleIDs) == 0 {
		return nil
	}

	insertQuery := fmt.Sprintf(`INSERT INTO %s (attachment_id, security_reason_id, created_by)
	VALUES (:attachment_id, :security_reason_id, :created_by)`, table)

	rows := make([]models.AppliedSecurityRule, 0, len(ruleIDs))
	for _, ruleID := range ruleIDs {
		rows = append(rows, models.AppliedSecurityRule{
			AttachmentID:     attachmentID,
			SecurityReasonID: ruleID,
			CreatedBy:        createdBy,
		})
	}
	if _, err := sqlx.NamedExecContext(ctx, r.db, insertQuery, rows); err != nil {
		return fmt.Errorf("insert applied rules on %s: %w", table, err)
	}
	return nil
}

// ListAppliedRuleIDs returns the rule ids currently applied to an attachment.
func (r *SecurityRepository) ListAppliedRuleIDs(ctx context.Context, attachmentType models.AttachmentType, attachmentID int64) ([]int64, error) {
	table, err := associationTableFor(attachmentType)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT security_reason_id FROM %s WHERE attachment_id = $1 ORDER BY security_reason_id`, table)

	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, attachmentID); err != nil {
		return nil, fmt.Errorf("list applied rules on %s: %w", table, err)
	}
	return ids, nil
}
