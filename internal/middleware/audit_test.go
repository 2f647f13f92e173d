package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/biodivhub/biodiv-api/internal/models"
)

type auditWriterStub struct {
	logs []*models.AuditLog
	err  error
}

func (s *auditWriterStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if s.err != nil {
		return s.err
	}
	s.logs = append(s.logs, log)
	return nil
}

func runAuditRequest(writer *auditWriterStub, logger *zap.Logger, status int, claims *models.JWTClaims) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
	})
	r.PUT("/reviews", Audit(writer, logger, models.AuditActionApplySecurity, "attachment_security"), func(c *gin.Context) {
		c.Status(status)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/reviews", nil))
	return rec
}

func TestAuditRecordsSuccessfulRequest(t *testing.T) {
	writer := &auditWriterStub{}

	runAuditRequest(writer, nil, http.StatusOK, &models.JWTClaims{UserID: "reviewer-1"})

	require.Len(t, writer.logs, 1)
	entry := writer.logs[0]
	assert.Equal(t, models.AuditActionApplySecurity, entry.Action)
	assert.Equal(t, "attachment_security", entry.Resource)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "reviewer-1", *entry.UserID)
}

func TestAuditSkipsFailedRequests(t *testing.T) {
	writer := &auditWriterStub{}

	runAuditRequest(writer, nil, http.StatusBadRequest, &models.JWTClaims{UserID: "reviewer-1"})

	assert.Empty(t, writer.logs)
}

func TestAuditWarnsWhenWriteFails(t *testing.T) {
	core, observed := observer.New(zap.WarnLevel)
	writer := &auditWriterStub{err: assert.AnError}

	rec := runAuditRequest(writer, zap.New(core), http.StatusOK, &models.JWTClaims{UserID: "reviewer-1"})

	// The request still succeeds; the failed write is surfaced as a warning.
	assert.Equal(t, http.StatusOK, rec.Code)
	entries := observed.FilterMessage("failed to write audit log").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
}
