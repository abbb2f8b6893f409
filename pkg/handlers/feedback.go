package handlers

import (
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/auth"
	"github.com/bcgov/unity-ai/pkg/models"
	"github.com/bcgov/unity-ai/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// SubmitFeedbackRequest for POST /api/feedback
type SubmitFeedbackRequest struct {
	ChatID                 string `json:"chat_id"`
	FeedbackType           string `json:"feedback_type"`
	Message                string `json:"message"`
	CurrentQuestion        string `json:"current_question"`
	CurrentSQL             string `json:"current_sql"`
	CurrentSQLExplanation  string `json:"current_sql_explanation"`
	PreviousQuestion       string `json:"previous_question"`
	PreviousSQL            string `json:"previous_sql"`
	PreviousSQLExplanation string `json:"previous_sql_explanation"`
	Timestamp              string `json:"timestamp"`
	FrontendVersion        string `json:"frontend_version"`
}

// SubmitFeedbackResponse acknowledges a stored entry.
type SubmitFeedbackResponse struct {
	Success    bool      `json:"success"`
	FeedbackID uuid.UUID `json:"feedback_id"`
	Message    string    `json:"message"`
}

// FeedbackListResponse for GET /api/admin/feedback
type FeedbackListResponse struct {
	Feedback []*models.Feedback `json:"feedback"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
	Count    int                `json:"count"`
}

// UpdateFeedbackStatusRequest for PUT /api/admin/feedback/{id}/status
type UpdateFeedbackStatusRequest struct {
	Status string `json:"status"`
}

// ============================================================================
// Handler
// ============================================================================

// FeedbackHandler handles user feedback and its admin review.
type FeedbackHandler struct {
	feedbackService services.FeedbackService
	logger          *zap.Logger
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(feedbackService services.FeedbackService, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		feedbackService: feedbackService,
		logger:          logger,
	}
}

// RegisterRoutes registers the feedback handler's routes on the given mux.
// Admin routes read across tenants through adminMiddleware.
func (h *FeedbackHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware, adminMiddleware TenantMiddleware) {
	mux.HandleFunc("POST /api/feedback", authMiddleware.RequireAuth(tenantMiddleware(h.Submit)))
	mux.HandleFunc("GET /api/feedback/{id}", authMiddleware.RequireAuth(tenantMiddleware(h.Get)))
	mux.HandleFunc("GET /api/chats/{id}/feedback", authMiddleware.RequireAuth(tenantMiddleware(h.ListForChat)))

	mux.HandleFunc("GET /api/admin/feedback", authMiddleware.RequireAdmin(adminMiddleware(h.ListAll)))
	mux.HandleFunc("PUT /api/admin/feedback/{id}/status", authMiddleware.RequireAdmin(adminMiddleware(h.UpdateStatus)))
}

// Submit handles POST /api/feedback
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r, h.logger)
	if !ok {
		return
	}

	var req SubmitFeedbackRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	chatID, err := uuid.Parse(req.ChatID)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_chat_id", "chat_id is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	// Unparseable client timestamps fall back to the server clock.
	timestamp, _ := time.Parse(time.RFC3339, req.Timestamp)

	feedback, err := h.feedbackService.Submit(r.Context(), caller, services.SubmitFeedbackRequest{
		ChatID:       chatID,
		FeedbackType: models.FeedbackType(req.FeedbackType),
		Message:      req.Message,
		Context: models.FeedbackContext{
			CurrentQuestion:        req.CurrentQuestion,
			CurrentSQL:             req.CurrentSQL,
			CurrentSQLExplanation:  req.CurrentSQLExplanation,
			PreviousQuestion:       req.PreviousQuestion,
			PreviousSQL:            req.PreviousSQL,
			PreviousSQLExplanation: req.PreviousSQLExplanation,
		},
		Timestamp:       timestamp,
		FrontendVersion: req.FrontendVersion,
		UserAgent:       r.UserAgent(),
		IP:              remoteIP(r),
	})
	if err != nil {
		writeServiceError(w, err, "submit_feedback_failed", h.logger)
		return
	}

	resp := SubmitFeedbackResponse{
		Success:    true,
		FeedbackID: feedback.ID,
		Message:    "Feedback submitted successfully",
	}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/feedback/{id}
func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r, h.logger)
	if !ok {
		return
	}

	id, ok := ParseFeedbackID(w, r, h.logger)
	if !ok {
		return
	}

	feedback, err := h.feedbackService.Get(r.Context(), caller, id)
	if err != nil {
		writeServiceError(w, err, "get_feedback_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, feedback); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListForChat handles GET /api/chats/{id}/feedback
func (h *FeedbackHandler) ListForChat(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r, h.logger)
	if !ok {
		return
	}

	chatID, ok := ParseChatID(w, r, h.logger)
	if !ok {
		return
	}

	list, err := h.feedbackService.ListForChat(r.Context(), caller, chatID)
	if err != nil {
		writeServiceError(w, err, "list_feedback_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, list); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListAll handles GET /api/admin/feedback?limit=&offset=
func (h *FeedbackHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	limit, err := parseQueryInt(r, "limit", services.DefaultFeedbackLimit)
	if err != nil {
		h.badPagination(w)
		return
	}
	offset, err := parseQueryInt(r, "offset", 0)
	if err != nil {
		h.badPagination(w)
		return
	}

	list, limit, offset, err := h.feedbackService.ListAll(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err, "list_feedback_failed", h.logger)
		return
	}

	resp := FeedbackListResponse{
		Feedback: list,
		Limit:    limit,
		Offset:   offset,
		Count:    len(list),
	}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateStatus handles PUT /api/admin/feedback/{id}/status
func (h *FeedbackHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseFeedbackID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateFeedbackStatusRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	if err := h.feedbackService.UpdateStatus(r.Context(), id, req.Status); err != nil {
		writeServiceError(w, err, "update_feedback_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, SuccessResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *FeedbackHandler) badPagination(w http.ResponseWriter) {
	if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid pagination parameters"); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// remoteIP strips the port from the request's remote address.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
