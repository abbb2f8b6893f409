package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/google/uuid"

	"github.com/bcgov/unity-ai/pkg/auth"
	"github.com/bcgov/unity-ai/pkg/models"
	"github.com/bcgov/unity-ai/pkg/schema"
	"github.com/bcgov/unity-ai/pkg/services"
)

// passthrough stands in for the tenant-scoped connection middleware.
func passthrough(next http.HandlerFunc) http.HandlerFunc { return next }

// newRequest builds a request carrying the gateway identity headers.
func newRequest(method, target, body string, admin bool) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(auth.HeaderUserID, "user-1")
	req.Header.Set(auth.HeaderTenant, "tenant-a")
	if admin {
		req.Header.Set(auth.HeaderIsAdmin, "true")
	}
	return req
}

type mockReportService struct {
	askResp     *services.AskResponse
	askErr      error
	lastAsk     services.AskRequest
	displayResp *services.DisplayResponse
	displayErr  error
	lastDisplay services.DisplayRequest
	deleted     bool
	deleteErr   error
	explanation string
}

func (m *mockReportService) Ask(ctx context.Context, caller *auth.Caller, req services.AskRequest) (*services.AskResponse, error) {
	m.lastAsk = req
	return m.askResp, m.askErr
}

func (m *mockReportService) ChangeDisplay(ctx context.Context, caller *auth.Caller, req services.DisplayRequest) (*services.DisplayResponse, error) {
	m.lastDisplay = req
	return m.displayResp, m.displayErr
}

func (m *mockReportService) DeleteCard(ctx context.Context, caller *auth.Caller, cardID int) (bool, error) {
	return m.deleted, m.deleteErr
}

func (m *mockReportService) Explain(ctx context.Context, sql string) string {
	return m.explanation
}

type mockChatService struct {
	chats    []*models.ChatSummary
	chat     *models.Chat
	getErr   error
	savedID  uuid.UUID
	lastSave services.SaveChatRequest
	deleted  bool
}

func (m *mockChatService) List(ctx context.Context, caller *auth.Caller) ([]*models.ChatSummary, error) {
	return m.chats, nil
}

func (m *mockChatService) Get(ctx context.Context, caller *auth.Caller, chatID uuid.UUID) (*models.Chat, error) {
	return m.chat, m.getErr
}

func (m *mockChatService) Save(ctx context.Context, caller *auth.Caller, req services.SaveChatRequest) (uuid.UUID, error) {
	m.lastSave = req
	return m.savedID, nil
}

func (m *mockChatService) Delete(ctx context.Context, caller *auth.Caller, chatID uuid.UUID) (bool, error) {
	return m.deleted, nil
}

type mockFeedbackService struct {
	submitted  services.SubmitFeedbackRequest
	list       []*models.Feedback
	limitIn    int
	offsetIn   int
	statusErr  error
	lastStatus string
}

func (m *mockFeedbackService) Submit(ctx context.Context, caller *auth.Caller, req services.SubmitFeedbackRequest) (*models.Feedback, error) {
	m.submitted = req
	return &models.Feedback{ID: uuid.MustParse("11111111-1111-1111-1111-111111111111")}, nil
}

func (m *mockFeedbackService) Get(ctx context.Context, caller *auth.Caller, id uuid.UUID) (*models.Feedback, error) {
	return &models.Feedback{ID: id}, nil
}

func (m *mockFeedbackService) ListForChat(ctx context.Context, caller *auth.Caller, chatID uuid.UUID) ([]*models.Feedback, error) {
	return m.list, nil
}

func (m *mockFeedbackService) ListAll(ctx context.Context, limit, offset int) ([]*models.Feedback, int, int, error) {
	m.limitIn, m.offsetIn = limit, offset
	return m.list, min(limit, services.MaxFeedbackLimit), max(offset, 0), nil
}

func (m *mockFeedbackService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	m.lastStatus = status
	return m.statusErr
}

type mockEmbeddingService struct {
	tenantCalls []string
	allCalls    int
}

func (m *mockEmbeddingService) EmbedTenant(ctx context.Context, tenantID string) (*schema.IndexResult, error) {
	m.tenantCalls = append(m.tenantCalls, tenantID)
	return &schema.IndexResult{DBID: 7}, nil
}

func (m *mockEmbeddingService) EmbedAll(ctx context.Context) ([]*schema.IndexResult, error) {
	m.allCalls++
	return []*schema.IndexResult{{DBID: 7}, {DBID: 5}}, nil
}

type mockPinger struct{ err error }

func (m mockPinger) Ping(ctx context.Context) error { return m.err }
