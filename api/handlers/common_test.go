package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/tuneflow/internal/ctxkeys"
	"github.com/BaSui01/tuneflow/types"
)

// =============================================================================
// 🧪 Common 函数测试
// =============================================================================

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]string{"message": "hello"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestWriteSuccess_IncludesRequestID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(ctxkeys.WithRequestID(r.Context(), "req-42"))
	w := httptest.NewRecorder()

	WriteSuccess(w, r, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "req-42", resp.RequestID)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantStatus    int
		wantCode      string
		wantRetryable bool
		wantMessage   string
	}{
		{
			name:       "validation",
			err:        types.NewValidationError("strategy_id is required"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "unauthorized",
			err:        types.NewUnauthorizedError("missing caller identity"),
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
		},
		{
			name:       "not found",
			err:        types.NewNotFoundError("strategy", "s-1"),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:          "version conflict",
			err:           types.NewVersionConflictError("catalog changed concurrently"),
			wantStatus:    http.StatusConflict,
			wantCode:      "VERSION_CONFLICT",
			wantRetryable: true,
		},
		{
			name:       "code without explicit status",
			err:        types.NewError(types.ErrRateLimited, "slow down"),
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "RATE_LIMITED",
		},
		{
			name:        "plain error is hidden",
			err:         errors.New("pq: connection refused"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "INTERNAL_ERROR",
			wantMessage: "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, httptest.NewRequest(http.MethodPost, "/", nil), tt.err, zap.NewNop())

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.wantRetryable, resp.Error.Retryable)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, resp.Error.Message)
			}
		})
	}
}

func TestDecodeJSONBody(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"name":"x"}`},
		{name: "empty", body: "", wantErr: true},
		{name: "malformed", body: `{"name":`, wantErr: true},
		{name: "unknown field", body: `{"name":"x","extra":1}`, wantErr: true},
		{name: "trailing object", body: `{"name":"x"}{"name":"y"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			var dst payload
			err := DecodeJSONBody(w, r, &dst, zap.NewNop())
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "x", dst.Name)
		})
	}
}

func TestDecodeJSONBody_MaxBodySize(t *testing.T) {
	big := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	w := httptest.NewRecorder()

	var dst map[string]string
	err := DecodeJSONBody(w, r, &dst, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)

	n, err := rw.Write([]byte("hello"))
	require.NoError(t, err)
	rw.WriteHeader(http.StatusTeapot)

	assert.Equal(t, 5, n)
	assert.Equal(t, http.StatusOK, rw.StatusCode)
	assert.Equal(t, 5, rw.BytesWritten)
	assert.True(t, rw.Written)
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	cases := map[types.ErrorCode]int{
		types.ErrInvalidRequest:  http.StatusBadRequest,
		types.ErrUnauthorized:    http.StatusUnauthorized,
		types.ErrNotFound:        http.StatusNotFound,
		types.ErrVersionConflict: http.StatusConflict,
		types.ErrRateLimited:     http.StatusTooManyRequests,
		types.ErrInternalError:   http.StatusInternalServerError,
		"SOMETHING_ELSE":         http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, mapErrorCodeToHTTPStatus(code), string(code))
	}
}
