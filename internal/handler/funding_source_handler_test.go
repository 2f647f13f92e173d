package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biodivhub/biodiv-api/internal/repository"
	"github.com/biodivhub/biodiv-api/internal/service"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
	"github.com/biodivhub/biodiv-api/pkg/response"
)

func newFundingSourceHandler(db *sqlx.DB) *FundingSourceHandler {
	return NewFundingSourceHandler(service.NewFundingSourceService(repository.NewFundingSourceRepository(db, nil), nil))
}

func TestFundingSourceHandlerCreate(t *testing.T) {
	db, mock, cleanup := newHandlerMock(t)
	defer cleanup()
	h := newFundingSourceHandler(db)

	mock.ExpectQuery("INSERT INTO funding_source").
		WillReturnRows(sqlmock.NewRows([]string{"funding_source_id"}).AddRow(4))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(t, http.MethodPost, map[string]interface{}{
		"name":        "Wildlife Trust",
		"description": "multi-year grant",
	})

	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	envelope := decodeEnvelope(t, rec)
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(envelope["data"], &created))
	assert.Equal(t, float64(4), created["funding_source_id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFundingSourceHandlerCreateRequiresName(t *testing.T) {
	db, _, cleanup := newHandlerMock(t)
	defer cleanup()
	h := newFundingSourceHandler(db)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(t, http.MethodPost, map[string]interface{}{
		"description": "missing name",
	})

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFundingSourceHandlerGetInvalidID(t *testing.T) {
	db, _, cleanup := newHandlerMock(t)
	defer cleanup()
	h := newFundingSourceHandler(db)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/funding-sources/abc", nil)

	h.Get(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, envelope.Error.Code)
}

func TestFundingSourceHandlerUpdateStaleRevision(t *testing.T) {
	db, mock, cleanup := newHandlerMock(t)
	defer cleanup()
	h := newFundingSourceHandler(db)

	mock.ExpectExec("UPDATE funding_source").
		WithArgs("Wildlife Trust", "updated", 2, int64(4)).
		WillReturnError(&pq.Error{Code: "40001", Message: "revision_count mismatch"})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "4"}}
	c.Request = jsonRequest(t, http.MethodPut, map[string]interface{}{
		"name":          "Wildlife Trust",
		"description":   "updated",
		"revisionCount": 2,
	})

	h.Update(c)

	// A stale revision surfaces as a conflict the client resolves by reloading.
	require.Equal(t, http.StatusConflict, rec.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrStaleRevision.Code, envelope.Error.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFundingSourceHandlerDelete(t *testing.T) {
	db, mock, cleanup := newHandlerMock(t)
	defer cleanup()
	h := newFundingSourceHandler(db)

	mock.ExpectExec("DELETE FROM funding_source").
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "4"}}
	c.Request = httptest.NewRequest(http.MethodDelete, "/funding-sources/4", nil)

	h.Delete(c)
	// gin buffers a body-less status; flush it so the recorder sees it.
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
