package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/auth"
	"github.com/bcgov/unity-ai/pkg/jsonutil"
	"github.com/bcgov/unity-ai/pkg/models"
	"github.com/bcgov/unity-ai/pkg/services"
)

// fallbackExplanation is returned when no explanation could be produced.
const fallbackExplanation = "This query retrieves and analyzes your data."

// ============================================================================
// Request/Response Types
// ============================================================================

// AskRequest for POST /api/ask
type AskRequest struct {
	Question     string                    `json:"question"`
	Conversation []models.ConversationTurn `json:"conversation"`
}

// ChangeDisplayRequest for POST /api/change_display
type ChangeDisplayRequest struct {
	Mode                 string               `json:"mode"`
	CardID               jsonutil.FlexibleInt `json:"card_id"`
	XField               jsonutil.StringList  `json:"x_field"`
	YField               jsonutil.StringList  `json:"y_field"`
	VisualizationOptions jsonutil.StringList  `json:"visualization_options"`
}

// DeleteCardRequest for POST /api/delete
type DeleteCardRequest struct {
	CardID jsonutil.FlexibleInt `json:"card_id"`
}

// DeleteCardResponse reports whether the card was removed.
type DeleteCardResponse struct {
	Success bool `json:"success"`
}

// ExplainSQLRequest for POST /api/explain_sql
type ExplainSQLRequest struct {
	SQL string `json:"sql"`
}

// ExplainSQLResponse carries a plain-language description of a query.
type ExplainSQLResponse struct {
	Explanation string `json:"explanation"`
}

// ============================================================================
// Handler
// ============================================================================

// ReportsHandler handles question answering and card management.
type ReportsHandler struct {
	reportService services.ReportService
	logger        *zap.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(reportService services.ReportService, logger *zap.Logger) *ReportsHandler {
	return &ReportsHandler{
		reportService: reportService,
		logger:        logger,
	}
}

// RegisterRoutes registers the reports handler's routes on the given mux.
func (h *ReportsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/ask", authMiddleware.RequireAuth(h.Ask))
	mux.HandleFunc("POST /api/change_display", authMiddleware.RequireAuth(h.ChangeDisplay))
	mux.HandleFunc("POST /api/delete", authMiddleware.RequireAuth(h.Delete))
	mux.HandleFunc("POST /api/explain_sql", authMiddleware.RequireAuth(h.ExplainSQL))
}

// Ask handles POST /api/ask
func (h *ReportsHandler) Ask(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r, h.logger)
	if !ok {
		return
	}

	var req AskRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	resp, err := h.reportService.Ask(r.Context(), caller, services.AskRequest{
		Question:     req.Question,
		Conversation: req.Conversation,
	})
	if err != nil {
		writeServiceError(w, err, "ask_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ChangeDisplay handles POST /api/change_display
func (h *ReportsHandler) ChangeDisplay(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r, h.logger)
	if !ok {
		return
	}

	var req ChangeDisplayRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	resp, err := h.reportService.ChangeDisplay(r.Context(), caller, services.DisplayRequest{
		Mode:                 req.Mode,
		CardID:               int(req.CardID),
		XField:               []string(req.XField),
		YField:               []string(req.YField),
		VisualizationOptions: []string(req.VisualizationOptions),
	})
	if err != nil {
		writeServiceError(w, err, "change_display_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles POST /api/delete
func (h *ReportsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r, h.logger)
	if !ok {
		return
	}

	var req DeleteCardRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	deleted, err := h.reportService.DeleteCard(r.Context(), caller, int(req.CardID))
	if err != nil {
		writeServiceError(w, err, "delete_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, DeleteCardResponse{Success: deleted}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ExplainSQL handles POST /api/explain_sql. It always answers 200 once the
// body names a query.
func (h *ReportsHandler) ExplainSQL(w http.ResponseWriter, r *http.Request) {
	var req ExplainSQLRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	if strings.TrimSpace(req.SQL) == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "sql is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	explanation := h.reportService.Explain(r.Context(), req.SQL)
	if explanation == "" {
		explanation = fallbackExplanation
	}

	if err := WriteJSON(w, http.StatusOK, ExplainSQLResponse{Explanation: explanation}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
