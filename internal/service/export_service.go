package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/biodivhub/biodiv-api/internal/models"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
	"github.com/biodivhub/biodiv-api/pkg/export"
)

type exportSubmissionReader interface {
	GetSubmission(ctx context.Context, submissionID int64) (*models.Submission, error)
	ListSubmissionMessages(ctx context.Context, submissionID int64) ([]models.SubmissionMessage, error)
}

type exportAttachmentReader interface {
	ListBySurvey(ctx context.Context, attachmentType models.AttachmentType, surveyID int64) ([]models.SurveyAttachment, error)
}

type exportSecurityReader interface {
	ListAppliedRuleIDs(ctx context.Context, attachmentType models.AttachmentType, attachmentID int64) ([]int64, error)
}

// ExportService renders submission findings and attachment security summaries
// into downloadable documents.
type ExportService struct {
	submissions exportSubmissionReader
	attachments exportAttachmentReader
	security    exportSecurityReader
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(submissions exportSubmissionReader, attachments exportAttachmentReader, security exportSecurityReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		submissions: submissions,
		attachments: attachments,
		security:    security,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// ExportResult bundles rendered bytes with download metadata.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

// SubmissionMessagesCSV renders every finding recorded against a submission as
// a CSV report.
func (s *ExportService) SubmissionMessagesCSV(ctx context.Context, submissionID int64) (*ExportResult, error) {
	sub, err := s.submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "submission not found")
	}

	messages, err := s.submissions.ListSubmissionMessages(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Message ID", "Type", "Error Code", "Message", "Recorded At"},
		Rows:    make([]map[string]string, 0, len(messages)),
	}
	for _, msg := range messages {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Message ID":  fmt.Sprintf("%d", msg.ID),
			"Type":        string(msg.MessageType),
			"Error Code":  msg.ErrorCode,
			"Message":     msg.Message,
			"Recorded At": msg.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	data, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
	}

	return &ExportResult{
		FileName:    fmt.Sprintf("submission_%d_messages_%s.csv", sub.ID, time.Now().UTC().Format("20060102")),
		ContentType: "text/csv",
		Data:        data,
	}, nil
}

// SurveySecuritySummaryPDF renders the security review state of every
// attachment on a survey, both variants, as a PDF table.
func (s *ExportService) SurveySecuritySummaryPDF(ctx context.Context, surveyID int64) (*ExportResult, error) {
	if surveyID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "survey id is required")
	}

	dataset := export.Dataset{
		Headers: []string{"Attachment", "Type", "State", "Rules", "Reviewed By", "Reviewed At"},
	}

	for _, attachmentType := range []models.AttachmentType{models.AttachmentTypeReport, models.AttachmentTypeOther} {
		items, err := s.attachments.ListBySurvey(ctx, attachmentType, surveyID)
		if err != nil {
			return nil, err
		}
		for _, att := range items {
			ruleIDs, err := s.security.ListAppliedRuleIDs(ctx, attachmentType, att.ID)
			if err != nil {
				return nil, err
			}

			row := map[string]string{
				"Attachment": att.FileName,
				"Type":       string(attachmentType),
				"State":      string(models.SecurityStateOf(att.ReviewTimestamp, len(ruleIDs))),
				"Rules":      fmt.Sprintf("%d", len(ruleIDs)),
			}
			if att.ReviewedBy != nil {
				row["Reviewed By"] = *att.ReviewedBy
			}
			if att.ReviewTimestamp != nil {
				row["Reviewed At"] = att.ReviewTimestamp.UTC().Format("2006-01-02 15:04")
			}
			dataset.Rows = append(dataset.Rows, row)
		}
	}

	title := fmt.Sprintf("Survey %d Attachment Security Summary", surveyID)
	data, err := s.pdf.Render(dataset, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
	}

	return &ExportResult{
		FileName:    fmt.Sprintf("survey_%d_security_%s.pdf", surveyID, time.Now().UTC().Format("20060102")),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}
