package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bcgov/unity-ai/pkg/apperrors"
	"github.com/bcgov/unity-ai/pkg/database"
	"github.com/bcgov/unity-ai/pkg/models"
)

// ChatRepository provides data access for saved chats.
// Every read and write is restricted to the owning user and tenant.
type ChatRepository interface {
	List(ctx context.Context, tenantID, userID string) ([]*models.ChatSummary, error)
	Get(ctx context.Context, tenantID, userID string, chatID uuid.UUID) (*models.Chat, error)
	Create(ctx context.Context, chat *models.Chat) error
	Update(ctx context.Context, chat *models.Chat) error
	UpdateConversation(ctx context.Context, tenantID, userID string, chatID uuid.UUID, conversation []models.ConversationTurn) error
	Delete(ctx context.Context, tenantID, userID string, chatID uuid.UUID) (bool, error)
}

type chatRepository struct{}

// NewChatRepository creates a new ChatRepository.
func NewChatRepository() ChatRepository {
	return &chatRepository{}
}

var _ ChatRepository = (*chatRepository)(nil)

func (r *chatRepository) List(ctx context.Context, tenantID, userID string) ([]*models.ChatSummary, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, title, created_at, updated_at
		FROM chats
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY updated_at DESC`

	rows, err := scope.Conn.Query(ctx, query, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	chats := make([]*models.ChatSummary, 0)
	for rows.Next() {
		var c models.ChatSummary
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chats: %w", err)
	}

	return chats, nil
}

func (r *chatRepository) Get(ctx context.Context, tenantID, userID string, chatID uuid.UUID) (*models.Chat, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, tenant_id, user_id, title, conversation, created_at, updated_at
		FROM chats
		WHERE id = $1 AND tenant_id = $2 AND user_id = $3`

	var (
		c            models.Chat
		conversation []byte
	)
	err := scope.Conn.QueryRow(ctx, query, chatID, tenantID, userID).Scan(
		&c.ID, &c.TenantID, &c.UserID, &c.Title, &conversation, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}

	if err := json.Unmarshal(conversation, &c.Conversation); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	if c.Conversation == nil {
		c.Conversation = []models.ConversationTurn{}
	}

	return &c, nil
}

func (r *chatRepository) Create(ctx context.Context, chat *models.Chat) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	if chat.ID == uuid.Nil {
		chat.ID = uuid.New()
	}
	now := time.Now()
	chat.CreatedAt = now
	chat.UpdatedAt = now

	conversation, err := marshalConversation(chat.Conversation)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO chats (id, tenant_id, user_id, title, conversation, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = scope.Conn.Exec(ctx, query,
		chat.ID, chat.TenantID, chat.UserID, chat.Title, conversation, chat.CreatedAt, chat.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}

	return nil
}

// Update replaces title and conversation. Returns apperrors.ErrNotFound when
// the chat does not exist for this user.
func (r *chatRepository) Update(ctx context.Context, chat *models.Chat) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	conversation, err := marshalConversation(chat.Conversation)
	if err != nil {
		return err
	}
	chat.UpdatedAt = time.Now()

	query := `
		UPDATE chats
		SET title = $4, conversation = $5, updated_at = $6
		WHERE id = $1 AND tenant_id = $2 AND user_id = $3`

	tag, err := scope.Conn.Exec(ctx, query,
		chat.ID, chat.TenantID, chat.UserID, chat.Title, conversation, chat.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *chatRepository) UpdateConversation(ctx context.Context, tenantID, userID string, chatID uuid.UUID, conversation []models.ConversationTurn) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	data, err := marshalConversation(conversation)
	if err != nil {
		return err
	}

	query := `
		UPDATE chats
		SET conversation = $4, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND user_id = $3`

	tag, err := scope.Conn.Exec(ctx, query, chatID, tenantID, userID, data)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *chatRepository) Delete(ctx context.Context, tenantID, userID string, chatID uuid.UUID) (bool, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return false, fmt.Errorf("no tenant scope in context")
	}

	tag, err := scope.Conn.Exec(ctx,
		`DELETE FROM chats WHERE id = $1 AND tenant_id = $2 AND user_id = $3`,
		chatID, tenantID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete chat: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func marshalConversation(conversation []models.ConversationTurn) ([]byte, error) {
	if conversation == nil {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(conversation)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conversation: %w", err)
	}
	return data, nil
}
