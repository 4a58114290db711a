package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/billhub/internal/domain/shared"
	"github.com/erp/billhub/internal/interfaces/http/dto"
	"github.com/erp/billhub/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func newTestContext(method, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "")
	assert.Empty(t, getRequestID(c))

	c.Request.Header.Set(middleware.RequestIDHeader, "header-id")
	assert.Equal(t, "header-id", getRequestID(c))

	c.Set(middleware.RequestIDKey, "ctx-id")
	assert.Equal(t, "ctx-id", getRequestID(c))
}

func TestBaseHandler_SuccessResponses(t *testing.T) {
	h := &BaseHandler{}

	c, w := newTestContext(http.MethodGet, "")
	h.Success(c, gin.H{"id": "b1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeResponse(t, w).Success)

	c, w = newTestContext(http.MethodPost, "")
	h.Created(c, gin.H{"id": "b1"})
	assert.Equal(t, http.StatusCreated, w.Code)

	c, w = newTestContext(http.MethodDelete, "")
	h.NoContent(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		retryAfter bool
	}{
		{"not found", shared.ErrNotFound.WithMessage("Bill not found"), http.StatusNotFound, dto.ErrCodeNotFound, false},
		{"cross ownership", shared.ErrCrossOwnership, http.StatusUnprocessableEntity, dto.ErrCodeCrossOwnership, false},
		{"invalid quantity", shared.ErrInvalidQuantity, http.StatusUnprocessableEntity, dto.ErrCodeInvalidQuantity, false},
		{"invalid state", shared.ErrInvalidState, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState, false},
		{"validation", shared.ErrValidation.WithMessage("price must not be negative"), http.StatusBadRequest, dto.ErrCodeValidation, false},
		{"store failure", shared.ErrStoreFailure.Wrap(errors.New("deadlock")), http.StatusServiceUnavailable, dto.ErrCodeStoreUnavailable, true},
		{"export failed", shared.ErrExportFailed.Wrap(errors.New("chrome gone")), http.StatusBadGateway, dto.ErrCodeExportFailed, false},
		{"wrapped domain error", fmt.Errorf("settle: %w", shared.ErrNotFound), http.StatusNotFound, dto.ErrCodeNotFound, false},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext(http.MethodPost, "")
			c.Set(middleware.RequestIDKey, "req-err")

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "req-err", resp.Error.RequestID)
			assert.Equal(t, tt.wantCode, c.GetString(middleware.ErrorCodeKey))
			if tt.retryAfter {
				assert.NotEmpty(t, w.Header().Get("Retry-After"))
			} else {
				assert.Empty(t, w.Header().Get("Retry-After"))
			}
		})
	}
}

func TestBaseHandler_HandleError_HidesInternalMessage(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(http.MethodGet, "")

	h.HandleError(c, errors.New("pq: password authentication failed"))

	assert.NotContains(t, w.Body.String(), "password")
	assert.Len(t, c.Errors, 1)
}

func TestBaseHandler_BindJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name" binding:"required"`
	}

	t.Run("malformed JSON", func(t *testing.T) {
		h := &BaseHandler{}
		c, w := newTestContext(http.MethodPost, `{"name":`)
		var p payload
		assert.False(t, h.bindJSON(c, &p))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decodeResponse(t, w).Error.Code)
	})

	t.Run("validation failure", func(t *testing.T) {
		h := &BaseHandler{}
		c, w := newTestContext(http.MethodPost, `{}`)
		var p payload
		assert.False(t, h.bindJSON(c, &p))
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "name", resp.Error.Details[0].Field)
	})

	t.Run("optional body may be empty", func(t *testing.T) {
		h := &BaseHandler{}
		c, _ := newTestContext(http.MethodPost, "")
		var p payload
		assert.True(t, h.bindOptionalJSON(c, &p))
	})
}

func TestBaseHandler_PathUUID(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(http.MethodGet, "")
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	_, ok := h.pathUUID(c, "id")

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidInput, decodeResponse(t, w).Error.Code)
}
