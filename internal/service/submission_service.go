package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/biodivhub/biodiv-api/internal/dto"
	"github.com/biodivhub/biodiv-api/internal/models"
	"github.com/biodivhub/biodiv-api/internal/repository"
	"github.com/biodivhub/biodiv-api/pkg/database"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
	"github.com/biodivhub/biodiv-api/pkg/jobs"
)

type submissionFileStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
}

type submissionJobQueue interface {
	Enqueue(job jobs.Job) error
}

type submissionMetrics interface {
	ObserveSubmissionIngested(source string)
	ObserveSubmissionStatus(statusType string)
}

// SubmissionUpload carries upload metadata and the stream reader.
type SubmissionUpload struct {
	Filename string
	Size     int64
	Source   string
	Content  io.Reader
}

// SubmissionService composes submission repository calls into logical
// operations: status+message recording, structured error recording, upload
// intake and background validation.
type SubmissionService struct {
	db      *sqlx.DB
	repo    *repository.SubmissionRepository
	storage submissionFileStorage
	queue   submissionJobQueue
	metrics submissionMetrics
	logger  *zap.Logger
	maxSize int64
}

// NewSubmissionService constructs the service.
func NewSubmissionService(db *sqlx.DB, repo *repository.SubmissionRepository, storage submissionFileStorage, queue submissionJobQueue, metrics submissionMetrics, logger *zap.Logger, maxSize int64) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxSize <= 0 {
		maxSize = 50 * 1024 * 1024
	}
	return &SubmissionService{
		db:      db,
		repo:    repo,
		storage: storage,
		queue:   queue,
		metrics: metrics,
		logger:  logger,
		maxSize: maxSize,
	}
}

// SetQueue attaches the background validation queue after construction. The
// queue handler calls back into this service, so the two are wired in stages.
func (s *SubmissionService) SetQueue(queue submissionJobQueue) {
	s.queue = queue
}

// InsertSubmissionStatusAndMessage records one status and one dependent
// message in a single transaction. The message insert always references the
// status id returned by the status insert; a message can never exist without
// its parent status committed alongside it.
func (s *SubmissionService) InsertSubmissionStatusAndMessage(ctx context.Context, submissionID int64, statusType models.SubmissionStatusType, messageType models.SubmissionMessageType, message string) (*dto.StatusAndMessageResponse, error) {
	var result dto.StatusAndMessageResponse

	err := database.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		txRepo := s.repo.WithTx(tx)

		statusID, err := txRepo.InsertSubmissionStatus(ctx, submissionID, statusType)
		if err != nil {
			return err
		}

		msg, err := txRepo.InsertSubmissionMessage(ctx, statusID, messageType, message, "")
		if err != nil {
			return err
		}

		result.SubmissionStatusID = statusID
		result.SubmissionMessageID = msg.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveSubmissionStatus(string(statusType))
	}
	return &result, nil
}

// InsertSubmissionError records a structured failure: the status umbrella is
// inserted once, then every sibling message under it. Sibling order carries no
// meaning; the inserts run sequentially because the transaction is pinned to a
// single connection, and the first failure rolls the whole operation back.
func (s *SubmissionService) InsertSubmissionError(ctx context.Context, submissionID int64, subErr models.SubmissionError) error {
	if len(subErr.Messages) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "submission error requires at least one message")
	}

	err := database.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		txRepo := s.repo.WithTx(tx)

		statusID, err := txRepo.InsertSubmissionStatus(ctx, submissionID, subErr.Status)
		if err != nil {
			return err
		}

		for _, descriptor := range subErr.Messages {
			if _, err := txRepo.InsertSubmissionMessage(ctx, statusID, descriptor.Type, descriptor.Message, descriptor.ErrorCode); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.ObserveSubmissionStatus(string(subErr.Status))
	}
	return nil
}

// UploadSubmission stores the uploaded file, creates the submission in its
// initial Submitted state and enqueues background validation.
func (s *SubmissionService) UploadSubmission(ctx context.Context, surveyID int64, upload SubmissionUpload, actor *models.JWTClaims) (*dto.SubmissionResponse, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "an authenticated user is required to upload submissions")
	}
	if surveyID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "survey id is required")
	}
	if upload.Filename == "" || upload.Content == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "submission file is required")
	}
	if upload.Size > s.maxSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, "submission file exceeds the size limit")
	}

	fileKey := fmt.Sprintf("surveys/%d/submissions/%d_%s", surveyID, time.Now().UTC().UnixNano(), filepath.Base(upload.Filename))
	if _, err := s.storage.SaveStream(fileKey, upload.Content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store submission file")
	}

	sub := &models.Submission{
		SurveyID:  surveyID,
		Source:    upload.Source,
		FileName:  upload.Filename,
		FileKey:   fileKey,
		CreatedBy: actor.UserID,
	}

	err := database.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		txRepo := s.repo.WithTx(tx)

		id, err := txRepo.CreateSubmission(ctx, sub)
		if err != nil {
			return err
		}
		sub.ID = id

		_, err = txRepo.InsertSubmissionStatus(ctx, id, models.SubmissionStatusSubmitted)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveSubmissionIngested(upload.Source)
	}

	if s.queue != nil {
		job := jobs.Job{
			ID:      fmt.Sprintf("submission-%d", sub.ID),
			Type:    "submission.validate",
			Payload: sub.ID,
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue submission validation", zap.Int64("submission_id", sub.ID), zap.Error(err))
		}
	}

	return &dto.SubmissionResponse{
		ID:       sub.ID,
		FileName: sub.FileName,
		Status:   string(models.SubmissionStatusSubmitted),
	}, nil
}

// ProcessSubmission is the background validation body. Basic file checks run
// against the stored object; findings are recorded as one structured error
// under a single failure status, otherwise the submission advances to
// Template Validated.
func (s *SubmissionService) ProcessSubmission(ctx context.Context, submissionID int64) error {
	sub, err := s.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return err
	}

	findings := s.validateSubmissionFile(sub)
	if len(findings) > 0 {
		return s.InsertSubmissionError(ctx, submissionID, models.SubmissionError{
			Status:   models.SubmissionStatusFailedValidation,
			Messages: findings,
		})
	}

	err = database.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		_, err := s.repo.WithTx(tx).InsertSubmissionStatus(ctx, submissionID, models.SubmissionStatusTemplateValidated)
		return err
	})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ObserveSubmissionStatus(string(models.SubmissionStatusTemplateValidated))
	}
	return nil
}

func (s *SubmissionService) validateSubmissionFile(sub *models.Submission) []models.SubmissionMessageDescriptor {
	var findings []models.SubmissionMessageDescriptor

	ext := strings.ToLower(filepath.Ext(sub.FileName))
	switch ext {
	case ".csv", ".zip", ".xlsx":
	default:
		findings = append(findings, models.SubmissionMessageDescriptor{
			Type:      models.SubmissionMessageError,
			Message:   fmt.Sprintf("unsupported submission file type %q", ext),
			ErrorCode: "UNSUPPORTED_FILE_TYPE",
		})
	}

	file, err := s.storage.Open(sub.FileKey)
	if err != nil {
		findings = append(findings, models.SubmissionMessageDescriptor{
			Type:      models.SubmissionMessageError,
			Message:   "submission file could not be read",
			ErrorCode: "FILE_UNREADABLE",
		})
		return findings
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err == nil && info.Size() == 0 {
		findings = append(findings, models.SubmissionMessageDescriptor{
			Type:      models.SubmissionMessageError,
			Message:   "submission file is empty",
			ErrorCode: "EMPTY_FILE",
		})
	}

	return findings
}

// GetLatestStatus returns the most recent status together with its messages.
func (s *SubmissionService) GetLatestStatus(ctx context.Context, submissionID int64) (*dto.SubmissionStatusResponse, error) {
	status, err := s.repo.GetLatestSubmissionStatus(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission has no recorded status")
		}
		return nil, err
	}

	messages, err := s.repo.ListSubmissionMessages(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	return &dto.SubmissionStatusResponse{
		SubmissionID: submissionID,
		Status:       status.StatusType,
		Messages:     messages,
	}, nil
}

// GetSummarySubmission returns the latest summary submission for a survey, or
// nil when none exists.
func (s *SubmissionService) GetSummarySubmission(ctx context.Context, surveyID int64) (*models.SummarySubmission, error) {
	return s.repo.GetSummarySubmission(ctx, surveyID)
}
