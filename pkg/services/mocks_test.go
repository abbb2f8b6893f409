package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bcgov/unity-ai/pkg/apperrors"
	"github.com/bcgov/unity-ai/pkg/config"
	"github.com/bcgov/unity-ai/pkg/models"
	"github.com/bcgov/unity-ai/pkg/repositories"
	"github.com/bcgov/unity-ai/pkg/schema"
	"github.com/bcgov/unity-ai/pkg/sqlgen"
)

var errBoom = errors.New("boom")

// ============================================================================
// Chat repository
// ============================================================================

type mockChatRepo struct {
	chats       map[uuid.UUID]*models.Chat
	updateCalls int
	listErr     error
}

func newMockChatRepo() *mockChatRepo {
	return &mockChatRepo{chats: make(map[uuid.UUID]*models.Chat)}
}

func (m *mockChatRepo) owned(tenantID, userID string, chatID uuid.UUID) (*models.Chat, bool) {
	c, ok := m.chats[chatID]
	if !ok || c.TenantID != tenantID || c.UserID != userID {
		return nil, false
	}
	return c, true
}

func (m *mockChatRepo) List(ctx context.Context, tenantID, userID string) ([]*models.ChatSummary, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*models.ChatSummary, 0)
	for _, c := range m.chats {
		if c.TenantID == tenantID && c.UserID == userID {
			out = append(out, &models.ChatSummary{ID: c.ID, Title: c.Title})
		}
	}
	return out, nil
}

func (m *mockChatRepo) Get(ctx context.Context, tenantID, userID string, chatID uuid.UUID) (*models.Chat, error) {
	c, ok := m.owned(tenantID, userID, chatID)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	clone := *c
	clone.Conversation = append([]models.ConversationTurn(nil), c.Conversation...)
	for i := range clone.Conversation {
		if e := clone.Conversation[i].Embed; e != nil {
			copied := *e
			clone.Conversation[i].Embed = &copied
		}
	}
	return &clone, nil
}

func (m *mockChatRepo) Create(ctx context.Context, chat *models.Chat) error {
	if chat.ID == uuid.Nil {
		chat.ID = uuid.New()
	}
	chat.CreatedAt = time.Now()
	chat.UpdatedAt = chat.CreatedAt
	m.chats[chat.ID] = chat
	return nil
}

func (m *mockChatRepo) Update(ctx context.Context, chat *models.Chat) error {
	if _, ok := m.owned(chat.TenantID, chat.UserID, chat.ID); !ok {
		return apperrors.ErrNotFound
	}
	m.chats[chat.ID] = chat
	return nil
}

func (m *mockChatRepo) UpdateConversation(ctx context.Context, tenantID, userID string, chatID uuid.UUID, conversation []models.ConversationTurn) error {
	c, ok := m.owned(tenantID, userID, chatID)
	if !ok {
		return apperrors.ErrNotFound
	}
	m.updateCalls++
	c.Conversation = conversation
	return nil
}

func (m *mockChatRepo) Delete(ctx context.Context, tenantID, userID string, chatID uuid.UUID) (bool, error) {
	if _, ok := m.owned(tenantID, userID, chatID); !ok {
		return false, nil
	}
	delete(m.chats, chatID)
	return true, nil
}

var _ repositories.ChatRepository = (*mockChatRepo)(nil)

// ============================================================================
// Feedback repository
// ============================================================================

type mockFeedbackRepo struct {
	entries   map[uuid.UUID]*models.Feedback
	lastLimit int
	lastOff   int
}

func newMockFeedbackRepo() *mockFeedbackRepo {
	return &mockFeedbackRepo{entries: make(map[uuid.UUID]*models.Feedback)}
}

func (m *mockFeedbackRepo) Create(ctx context.Context, f *models.Feedback) error {
	f.ID = uuid.New()
	if f.Status == "" {
		f.Status = models.FeedbackStatusOpen
	}
	m.entries[f.ID] = f
	return nil
}

func (m *mockFeedbackRepo) Get(ctx context.Context, id uuid.UUID) (*models.Feedback, error) {
	f, ok := m.entries[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return f, nil
}

func (m *mockFeedbackRepo) ListByChat(ctx context.Context, chatID uuid.UUID) ([]*models.Feedback, error) {
	out := make([]*models.Feedback, 0)
	for _, f := range m.entries {
		if f.ChatID == chatID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockFeedbackRepo) List(ctx context.Context, limit, offset int) ([]*models.Feedback, error) {
	m.lastLimit, m.lastOff = limit, offset
	return []*models.Feedback{}, nil
}

func (m *mockFeedbackRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (bool, error) {
	f, ok := m.entries[id]
	if !ok {
		return false, nil
	}
	f.Status = status
	return true, nil
}

var _ repositories.FeedbackRepository = (*mockFeedbackRepo)(nil)

// ============================================================================
// BI backend
// ============================================================================

type visualizationCall struct {
	CardID  int
	Display string
	X, Y    []string
}

type fakeCardBackend struct {
	mu          sync.Mutex
	nextID      int
	existing    []int
	created     []string
	deleted     []int
	visuals     []visualizationCall
	createErr   error
	listErr     error
	updateErr   error
	deleteErr   error
	deleteFalse bool
}

func newFakeCardBackend(existing ...int) *fakeCardBackend {
	return &fakeCardBackend{nextID: 100, existing: existing}
}

func (f *fakeCardBackend) CreateCard(ctx context.Context, sql string, dbID, collectionID int, name string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	f.created = append(f.created, name)
	f.existing = append(f.existing, f.nextID)
	return f.nextID, nil
}

func (f *fakeCardBackend) UpdateCardVisualization(ctx context.Context, cardID int, display string, xFields, yFields []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.visuals = append(f.visuals, visualizationCall{CardID: cardID, Display: display, X: xFields, Y: yFields})
	return nil
}

func (f *fakeCardBackend) DeleteCard(ctx context.Context, cardID int) (bool, error) {
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	f.deleted = append(f.deleted, cardID)
	return !f.deleteFalse, nil
}

func (f *fakeCardBackend) ListCardIDs(ctx context.Context) ([]int, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]int(nil), f.existing...), nil
}

func (f *fakeCardBackend) EmbedURL(cardID int) (string, error) {
	return fmt.Sprintf("http://metabase/embed/question/card-%d", cardID), nil
}

// fakeBackends resolves every tenant to the same backend.
type fakeBackends struct {
	tenant   config.Tenant
	backend  *fakeCardBackend
	resolved []string
}

func newFakeBackends(backend *fakeCardBackend) *fakeBackends {
	return &fakeBackends{
		tenant:  config.Tenant{DBID: 5, CollectionID: 16, SchemaTypes: []string{"public"}},
		backend: backend,
	}
}

func (f *fakeBackends) Resolve(tenantID string) (config.Tenant, CardBackend) {
	f.resolved = append(f.resolved, tenantID)
	return f.tenant, f.backend
}

// ============================================================================
// SQL generator
// ============================================================================

type fakeGenerator struct {
	result      *sqlgen.Result
	explanation string
	questions   []sqlgen.Question
	dbIDs       []int
}

func (f *fakeGenerator) GenerateSQL(ctx context.Context, q sqlgen.Question, dbID int, categories []string) *sqlgen.Result {
	f.questions = append(f.questions, q)
	f.dbIDs = append(f.dbIDs, dbID)
	return f.result
}

func (f *fakeGenerator) ExplainSQL(ctx context.Context, sql string) (string, sqlgen.Usage) {
	return f.explanation, sqlgen.Usage{TotalTokens: 5}
}

// ============================================================================
// Schema indexer
// ============================================================================

type fakeIndexer struct {
	calls []indexCall
	err   error
}

type indexCall struct {
	DBID       int
	Categories []string
}

func (f *fakeIndexer) Reindex(ctx context.Context, dbID int, categories []string) (*schema.IndexResult, error) {
	f.calls = append(f.calls, indexCall{DBID: dbID, Categories: categories})
	if f.err != nil {
		return nil, f.err
	}
	return &schema.IndexResult{DBID: dbID, Added: map[string]int{}}, nil
}
