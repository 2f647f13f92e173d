package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/biodivhub/biodiv-api/internal/models"
	"github.com/biodivhub/biodiv-api/internal/repository"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
)

type attachmentFileStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type attachmentURLSigner interface {
	Generate(subject, fileKey string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (subject, fileKey string, expiresAt time.Time, err error)
}

// AttachmentUpload carries upload metadata and the stream reader.
type AttachmentUpload struct {
	Filename    string
	Size        int64
	Title       string
	Description string
	Type        string
	Content     io.Reader
}

// SignedDownload is a time-limited download grant for an attachment.
type SignedDownload struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AttachmentService manages survey attachment files. New attachments always
// enter the review workflow in AWAITING_REVIEW; classification itself is
// handled by SecurityService.
type AttachmentService struct {
	repo     *repository.AttachmentRepository
	security *repository.SecurityRepository
	storage  attachmentFileStorage
	signer   attachmentURLSigner
	logger   *zap.Logger
	maxSize  int64
}

// NewAttachmentService constructs the service.
func NewAttachmentService(repo *repository.AttachmentRepository, security *repository.SecurityRepository, storage attachmentFileStorage, signer attachmentURLSigner, logger *zap.Logger, maxSize int64) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxSize <= 0 {
		maxSize = 50 * 1024 * 1024
	}
	return &AttachmentService{
		repo:     repo,
		security: security,
		storage:  storage,
		signer:   signer,
		logger:   logger,
		maxSize:  maxSize,
	}
}

// Upload stores the file and inserts the attachment row. The row starts with a
// nil review timestamp, which reads back as AWAITING_REVIEW.
func (s *AttachmentService) Upload(ctx context.Context, surveyID int64, upload AttachmentUpload) (*models.SurveyAttachment, error) {
	attachmentType, ok := models.ParseAttachmentType(upload.Type)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrMissingParameter, "unable to resolve attachment type")
	}
	if surveyID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "survey id is required")
	}
	if upload.Filename == "" || upload.Content == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "attachment file is required")
	}
	if upload.Size > s.maxSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, "attachment exceeds the size limit")
	}

	fileKey := fmt.Sprintf("surveys/%d/attachments/%d_%s", surveyID, time.Now().UTC().UnixNano(), filepath.Base(upload.Filename))
	if _, err := s.storage.SaveStream(fileKey, upload.Content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attachment file")
	}

	att := &models.SurveyAttachment{
		SurveyID: surveyID,
		FileName: upload.Filename,
		FileKey:  fileKey,
		FileType: attachmentType,
		FileSize: upload.Size,
	}
	if upload.Title != "" {
		att.Title = &upload.Title
	}
	if upload.Description != "" {
		att.Description = &upload.Description
	}

	id, err := s.repo.Create(ctx, att)
	if err != nil {
		if delErr := s.storage.Delete(fileKey); delErr != nil {
			s.logger.Warn("failed to remove orphaned attachment file", zap.String("file_key", fileKey), zap.Error(delErr))
		}
		return nil, err
	}
	att.ID = id
	return att, nil
}

// ListWithClassification returns a survey's attachments of one variant with
// their derived security state and applied rule ids. The per-attachment rule
// lookups fan out over the connection pool; result order follows the listing.
func (s *AttachmentService) ListWithClassification(ctx context.Context, attachmentTypeRaw string, surveyID int64) ([]models.AttachmentSecurityClassification, error) {
	attachmentType, ok := models.ParseAttachmentType(attachmentTypeRaw)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrMissingParameter, "unable to resolve attachment type")
	}

	items, err := s.repo.ListBySurvey(ctx, attachmentType, surveyID)
	if err != nil {
		return nil, err
	}

	out := make([]models.AttachmentSecurityClassification, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, att := range items {
		i, att := i, att
		g.Go(func() error {
			ruleIDs, err := s.security.ListAppliedRuleIDs(gctx, attachmentType, att.ID)
			if err != nil {
				return err
			}
			out[i] = models.AttachmentSecurityClassification{
				AttachmentID:    att.ID,
				AttachmentType:  attachmentType,
				State:           models.SecurityStateOf(att.ReviewTimestamp, len(ruleIDs)),
				AppliedRuleIDs:  ruleIDs,
				ReviewTimestamp: att.ReviewTimestamp,
				ReviewedBy:      att.ReviewedBy,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// SignDownload issues a time-limited download token for one attachment.
func (s *AttachmentService) SignDownload(ctx context.Context, attachmentTypeRaw string, surveyID, attachmentID int64) (*SignedDownload, error) {
	attachmentType, ok := models.ParseAttachmentType(attachmentTypeRaw)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrMissingParameter, "unable to resolve attachment type")
	}

	att, err := s.repo.Get(ctx, attachmentType, surveyID, attachmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
		}
		return nil, err
	}

	subject := fmt.Sprintf("attachment-%d", att.ID)
	token, expiresAt, err := s.signer.Generate(subject, att.FileKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return &SignedDownload{Token: token, ExpiresAt: expiresAt}, nil
}

// OpenSigned validates a download token and opens the referenced file.
func (s *AttachmentService) OpenSigned(token string) (*os.File, error) {
	_, fileKey, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	file, err := s.storage.Open(fileKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "stored file not found")
	}
	return file, nil
}
