package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/biodivhub/biodiv-api/internal/dto"
	"github.com/biodivhub/biodiv-api/internal/models"
	"github.com/biodivhub/biodiv-api/internal/repository"
	"github.com/biodivhub/biodiv-api/pkg/database"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
)

type securityRuleSearch interface {
	GetProprietarySecurityRules(ctx context.Context) ([]models.SecurityRule, error)
	GetPersecutionSecurityRules(ctx context.Context) ([]models.SecurityRule, error)
	GetPersecutionSecurityFromIDs(ctx context.Context, ids []int64) ([]models.SecurityRule, error)
}

type securityCacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type securityAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type securityMetrics interface {
	ObserveClassificationDecision(state string)
	ObserveSearchFailure(index string)
}

// SecurityServiceConfig tunes catalog caching.
type SecurityServiceConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// MakeSecureParams carries one classification decision.
type MakeSecureParams struct {
	ProjectID      int64
	SurveyID       int64
	AttachmentID   int64
	AttachmentType string
	RuleIDs        []int64
	Actor          *models.JWTClaims
}

// RemoveSecurityParams clears an attachment's security reasons.
type RemoveSecurityParams struct {
	ProjectID      int64
	SurveyID       int64
	AttachmentID   int64
	AttachmentType string
	Actor          *models.JWTClaims
}

// SecurityService drives the attachment security review workflow. An
// attachment is AWAITING_REVIEW until a decision is recorded, SECURED while at
// least one rule is applied, and UNSECURED after an explicit zero-rule
// decision. Both terminal states are re-enterable.
type SecurityService struct {
	db          *sqlx.DB
	attachments *repository.AttachmentRepository
	security    *repository.SecurityRepository
	rules       securityRuleSearch
	cache       securityCacheStore
	audit       securityAuditLogger
	metrics     securityMetrics
	logger      *zap.Logger
	cfg         SecurityServiceConfig
}

// NewSecurityService constructs the service.
func NewSecurityService(db *sqlx.DB, attachments *repository.AttachmentRepository, security *repository.SecurityRepository, rules securityRuleSearch, cache securityCacheStore, audit securityAuditLogger, metrics securityMetrics, logger *zap.Logger, cfg SecurityServiceConfig) *SecurityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	return &SecurityService{
		db:          db,
		attachments: attachments,
		security:    security,
		rules:       rules,
		cache:       cache,
		audit:       audit,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
	}
}

// MakeAttachmentSecure applies the given rule ids to an attachment and stamps
// the review. The attachment type must resolve to a known variant; a zero
// affected-row count (missing attachment, or project/survey mismatch) fails
// with ErrApplyFailed. Returns the affected-row count.
func (s *SecurityService) MakeAttachmentSecure(ctx context.Context, params MakeSecureParams) (int64, error) {
	attachmentType, ok := models.ParseAttachmentType(params.AttachmentType)
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrMissingParameter, "unable to resolve attachment type")
	}
	if params.Actor == nil {
		return 0, appErrors.Clone(appErrors.ErrUnauthorized, "an authenticated reviewer is required")
	}
	if len(params.RuleIDs) == 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "at least one security reason is required")
	}

	reviewedAt := time.Now().UTC()
	var affected int64

	err := database.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		count, err := s.attachments.WithTx(tx).StampSecurityReview(ctx, attachmentType, params.ProjectID, params.SurveyID, params.AttachmentID, params.Actor.UserID, reviewedAt)
		if err != nil {
			return err
		}
		affected = count

		return s.security.WithTx(tx).ReplaceAppliedRules(ctx, attachmentType, params.AttachmentID, params.RuleIDs, params.Actor.UserID)
	})
	if err != nil {
		return 0, err
	}

	s.recordDecision(ctx, models.AuditActionApplySecurity, params.AttachmentID, params.Actor, models.SecurityStateSecured, params.RuleIDs)
	return affected, nil
}

// RemoveAttachmentSecurity records an explicit zero-rule decision. The review
// stamp is kept, which is what distinguishes UNSECURED from never reviewed.
func (s *SecurityService) RemoveAttachmentSecurity(ctx context.Context, params RemoveSecurityParams) (int64, error) {
	attachmentType, ok := models.ParseAttachmentType(params.AttachmentType)
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrMissingParameter, "unable to resolve attachment type")
	}
	if params.Actor == nil {
		return 0, appErrors.Clone(appErrors.ErrUnauthorized, "an authenticated reviewer is required")
	}

	reviewedAt := time.Now().UTC()
	var affected int64

	err := database.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		count, err := s.attachments.WithTx(tx).StampSecurityReview(ctx, attachmentType, params.ProjectID, params.SurveyID, params.AttachmentID, params.Actor.UserID, reviewedAt)
		if err != nil {
			return err
		}
		affected = count

		return s.security.WithTx(tx).ReplaceAppliedRules(ctx, attachmentType, params.AttachmentID, nil, params.Actor.UserID)
	})
	if err != nil {
		return 0, err
	}

	s.recordDecision(ctx, models.AuditActionRemoveSecurity, params.AttachmentID, params.Actor, models.SecurityStateUnsecured, nil)
	return affected, nil
}

// GetAttachmentSecurityReasons returns the attachment's workflow state and the
// applied rules enriched with metadata from the search index. Metadata that
// cannot be resolved (rule removed from the index, or the index being down)
// degrades to a bare id rather than failing the read.
func (s *SecurityService) GetAttachmentSecurityReasons(ctx context.Context, attachmentTypeRaw string, surveyID, attachmentID int64) (*dto.SecurityReasonsResponse, error) {
	attachmentType, ok := models.ParseAttachmentType(attachmentTypeRaw)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrMissingParameter, "unable to resolve attachment type")
	}

	att, err := s.attachments.Get(ctx, attachmentType, surveyID, attachmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
		}
		return nil, err
	}

	appliedIDs, err := s.security.ListAppliedRuleIDs(ctx, attachmentType, attachmentID)
	if err != nil {
		return nil, err
	}

	resolved := s.resolveRuleMetadata(ctx, appliedIDs)
	reasons := make([]models.SecurityRule, 0, len(appliedIDs))
	for _, id := range appliedIDs {
		if rule, ok := resolved[id]; ok {
			reasons = append(reasons, rule)
			continue
		}
		reasons = append(reasons, models.SecurityRule{SecurityReasonID: id})
	}

	return &dto.SecurityReasonsResponse{
		State:   models.SecurityStateOf(att.ReviewTimestamp, len(appliedIDs)),
		Reasons: reasons,
	}, nil
}

// ListSecurityRules returns the rule catalog for one category, or both when
// category is empty. Catalog reads are cached; a failing search index yields
// an empty catalog with a warning rather than an error, so the admin UI keeps
// rendering while the index is down.
func (s *SecurityService) ListSecurityRules(ctx context.Context, category string) ([]models.SecurityRule, error) {
	cacheKey := repository.CacheKeySecurityCatalog + category
	if s.cfg.CacheEnabled && s.cache != nil {
		var cached []models.SecurityRule
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	var rules []models.SecurityRule
	switch models.SecurityRuleCategory(category) {
	case models.SecurityCategoryProprietary:
		rules = s.fetchCatalog(ctx, s.rules.GetProprietarySecurityRules, "proprietary")
	case models.SecurityCategoryPersecution:
		rules = s.fetchCatalog(ctx, s.rules.GetPersecutionSecurityRules, "persecution")
	case "":
		rules = append(
			s.fetchCatalog(ctx, s.rules.GetPersecutionSecurityRules, "persecution"),
			s.fetchCatalog(ctx, s.rules.GetProprietarySecurityRules, "proprietary")...,
		)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown security rule category %q", category))
	}

	if s.cfg.CacheEnabled && s.cache != nil && len(rules) > 0 {
		if err := s.cache.Set(ctx, cacheKey, rules, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("failed to cache security rule catalog", zap.Error(err))
		}
	}
	return rules, nil
}

func (s *SecurityService) fetchCatalog(ctx context.Context, fetch func(context.Context) ([]models.SecurityRule, error), index string) []models.SecurityRule {
	rules, err := fetch(ctx)
	if err != nil {
		s.logger.Warn("security rule catalog unavailable", zap.String("index", index), zap.Error(err))
		if s.metrics != nil {
			s.metrics.ObserveSearchFailure(index)
		}
		return []models.SecurityRule{}
	}
	return rules
}

func (s *SecurityService) resolveRuleMetadata(ctx context.Context, ids []int64) map[int64]models.SecurityRule {
	resolved := make(map[int64]models.SecurityRule, len(ids))
	if len(ids) == 0 {
		return resolved
	}

	persecution, err := s.rules.GetPersecutionSecurityFromIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to resolve persecution rules", zap.Error(err))
		if s.metrics != nil {
			s.metrics.ObserveSearchFailure("persecution")
		}
	}
	for _, rule := range persecution {
		resolved[rule.SecurityReasonID] = rule
	}

	if len(resolved) == len(ids) {
		return resolved
	}

	proprietary, err := s.rules.GetProprietarySecurityRules(ctx)
	if err != nil {
		s.logger.Warn("failed to resolve proprietary rules", zap.Error(err))
		if s.metrics != nil {
			s.metrics.ObserveSearchFailure("proprietary")
		}
		return resolved
	}
	for _, rule := range proprietary {
		for _, id := range ids {
			if rule.SecurityReasonID == id {
				resolved[id] = rule
			}
		}
	}
	return resolved
}

func (s *SecurityService) recordDecision(ctx context.Context, action string, attachmentID int64, actor *models.JWTClaims, state models.SecurityState, ruleIDs []int64) {
	if s.metrics != nil {
		s.metrics.ObserveClassificationDecision(string(state))
	}
	if s.audit == nil || actor == nil {
		return
	}

	resourceID := fmt.Sprintf("%d", attachmentID)
	payload, _ := json.Marshal(map[string]interface{}{
		"state":    state,
		"rule_ids": ruleIDs,
	})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "attachment_security",
		ResourceID: &resourceID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to write security audit log", zap.Error(err))
	}
}
