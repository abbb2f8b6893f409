package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/auth"
	"github.com/bcgov/unity-ai/pkg/models"
	"github.com/bcgov/unity-ai/pkg/services"
)

// TenantMiddleware wraps a handler with a tenant-scoped database connection.
type TenantMiddleware func(http.HandlerFunc) http.HandlerFunc

// ============================================================================
// Request/Response Types
// ============================================================================

// SaveChatRequest for POST /api/chats/save. An empty chat_id creates a chat.
type SaveChatRequest struct {
	ChatID       string                    `json:"chat_id"`
	Title        string                    `json:"title"`
	Conversation []models.ConversationTurn `json:"conversation"`
}

// SaveChatResponse returns the id of the saved chat.
type SaveChatResponse struct {
	ChatID uuid.UUID `json:"chat_id"`
}

// SuccessResponse is a bare success acknowledgement.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ============================================================================
// Handler
// ============================================================================

// ChatsHandler handles saved conversation requests.
type ChatsHandler struct {
	chatService services.ChatService
	logger      *zap.Logger
}

// NewChatsHandler creates a new chats handler.
func NewChatsHandler(chatService services.ChatService, logger *zap.Logger) *ChatsHandler {
	return &ChatsHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// RegisterRoutes registers the chats handler's routes on the given mux.
func (h *ChatsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	list := authMiddleware.RequireAuth(tenantMiddleware(h.List))
	get := authMiddleware.RequireAuth(tenantMiddleware(h.Get))
	mux.HandleFunc("POST /api/chats", list)
	mux.HandleFunc("GET /api/chats", list)
	mux.HandleFunc("POST /api/chats/save", authMiddleware.RequireAuth(tenantMiddleware(h.Save)))
	mux.HandleFunc("POST /api/chats/{id}", get)
	mux.HandleFunc("GET /api/chats/{id}", get)
	mux.HandleFunc("DELETE /api/chats/{id}", authMiddleware.RequireAuth(tenantMiddleware(h.Delete)))
}

// List handles POST /api/chats (GET is accepted too)
func (h *ChatsHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r, h.logger)
	if !ok {
		return
	}

	chats, err := h.chatService.List(r.Context(), caller)
	if err != nil {
		writeServiceError(w, err, "list_chats_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, chats); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles POST /api/chats/{id} (GET is accepted too)
func (h *ChatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r, h.logger)
	if !ok {
		return
	}

	chatID, ok := ParseChatID(w, r, h.logger)
	if !ok {
		return
	}

	chat, err := h.chatService.Get(r.Context(), caller, chatID)
	if err != nil {
		writeServiceError(w, err, "get_chat_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, chat); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Save handles POST /api/chats/save
func (h *ChatsHandler) Save(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r, h.logger)
	if !ok {
		return
	}

	var req SaveChatRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	chatID := uuid.Nil
	if s := strings.TrimSpace(req.ChatID); s != "" {
		parsed, err := uuid.Parse(s)
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_chat_id", "Invalid chat ID format"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		chatID = parsed
	}

	id, err := h.chatService.Save(r.Context(), caller, services.SaveChatRequest{
		ChatID:       chatID,
		Title:        req.Title,
		Conversation: req.Conversation,
	})
	if err != nil {
		writeServiceError(w, err, "save_chat_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, SaveChatResponse{ChatID: id}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/chats/{id}
func (h *ChatsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r, h.logger)
	if !ok {
		return
	}

	chatID, ok := ParseChatID(w, r, h.logger)
	if !ok {
		return
	}

	deleted, err := h.chatService.Delete(r.Context(), caller, chatID)
	if err != nil {
		writeServiceError(w, err, "delete_chat_failed", h.logger)
		return
	}
	if !deleted {
		if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Chat not found"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, SuccessResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
