package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/apperrors"
	"github.com/bcgov/unity-ai/pkg/auth"
	"github.com/bcgov/unity-ai/pkg/models"
)

func newChatsMux(svc *mockChatService) *http.ServeMux {
	mux := http.NewServeMux()
	NewChatsHandler(svc, zap.NewNop()).RegisterRoutes(mux, auth.NewMiddleware(zap.NewNop()), passthrough)
	return mux
}

func TestChatsHandler_List(t *testing.T) {
	id := uuid.New()
	mux := newChatsMux(&mockChatService{chats: []*models.ChatSummary{{ID: id, Title: "Apps by status"}}})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, newRequest(http.MethodGet, "/api/chats", "", false))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []models.ChatSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, id, resp[0].ID)
}

func TestChatsHandler_PostRoutes(t *testing.T) {
	id := uuid.New()
	svc := &mockChatService{
		chats:   []*models.ChatSummary{{ID: id, Title: "Apps by status"}},
		chat:    &models.Chat{ID: id, Title: "Apps by status"},
		savedID: id,
	}
	mux := newChatsMux(svc)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, newRequest(http.MethodPost, "/api/chats", `{}`, false))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.ChatSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, newRequest(http.MethodPost, "/api/chats/"+id.String(), `{}`, false))
	require.Equal(t, http.StatusOK, rec.Code)
	var chat models.Chat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chat))
	assert.Equal(t, id, chat.ID)

	// The literal save route wins over the {id} pattern.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, newRequest(http.MethodPost, "/api/chats/save", `{"title":"New"}`, false))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"chat_id":"`+id.String()+`"}`, rec.Body.String())
}

func TestChatsHandler_Get(t *testing.T) {
	id := uuid.New()
	mux := newChatsMux(&mockChatService{chat: &models.Chat{ID: id, Title: "t"}})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, newRequest(http.MethodGet, "/api/chats/"+id.String(), "", false))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, newRequest(http.MethodGet, "/api/chats/not-a-uuid", "", false))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatsHandler_Get_NotFound(t *testing.T) {
	mux := newChatsMux(&mockChatService{getErr: apperrors.ErrNotFound})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, newRequest(http.MethodGet, "/api/chats/"+uuid.NewString(), "", false))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatsHandler_Save(t *testing.T) {
	savedID := uuid.New()
	svc := &mockChatService{savedID: savedID}
	mux := newChatsMux(svc)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, newRequest(http.MethodPost, "/api/chats/save", `{"title":"New","conversation":[]}`, false))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"chat_id":"`+savedID.String()+`"}`, rec.Body.String())
	assert.Equal(t, uuid.Nil, svc.lastSave.ChatID)
	assert.Equal(t, "New", svc.lastSave.Title)
}

func TestChatsHandler_Save_InvalidChatID(t *testing.T) {
	mux := newChatsMux(&mockChatService{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, newRequest(http.MethodPost, "/api/chats/save", `{"chat_id":"abc","title":"x"}`, false))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_chat_id", resp["error"])
}

func TestChatsHandler_Delete(t *testing.T) {
	mux := newChatsMux(&mockChatService{deleted: true})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, newRequest(http.MethodDelete, "/api/chats/"+uuid.NewString(), "", false))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestChatsHandler_Delete_NotFound(t *testing.T) {
	mux := newChatsMux(&mockChatService{deleted: false})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, newRequest(http.MethodDelete, "/api/chats/"+uuid.NewString(), "", false))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
