package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/apperrors"
)

func TestParseChatID(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name       string
		pathValue  string
		wantOK     bool
		wantStatus int
	}{
		{name: "valid UUID", pathValue: "550e8400-e29b-41d4-a716-446655440000", wantOK: true},
		{name: "invalid UUID", pathValue: "not-a-uuid", wantStatus: http.StatusBadRequest},
		{name: "empty UUID", pathValue: "", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.SetPathValue("id", tt.pathValue)
			rec := httptest.NewRecorder()

			id, ok := ParseChatID(rec, req, logger)

			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Equal(t, uuid.Nil, id)
				assert.Equal(t, tt.wantStatus, rec.Code)

				var body map[string]string
				assert.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, "invalid_chat_id", body["error"])
			}
		})
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid", fmt.Errorf("%w: bad", apperrors.ErrInvalidInput), http.StatusBadRequest, "invalid_request"},
		{"not found", apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"upstream", fmt.Errorf("%w: card", apperrors.ErrUpstream), http.StatusBadGateway, "ask_failed"},
		{"other", fmt.Errorf("db down"), http.StatusInternalServerError, "ask_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tt.err, "ask_failed", zap.NewNop())

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]string
			assert.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body["error"])
		})
	}
}
