package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/apperrors"
	"github.com/bcgov/unity-ai/pkg/auth"
	"github.com/bcgov/unity-ai/pkg/logging"
	"github.com/bcgov/unity-ai/pkg/models"
	"github.com/bcgov/unity-ai/pkg/repositories"
	"github.com/bcgov/unity-ai/pkg/sqlgen"
)

// SaveChatRequest creates a chat when ChatID is nil, otherwise replaces it.
type SaveChatRequest struct {
	ChatID       uuid.UUID
	Title        string
	Conversation []models.ConversationTurn
}

// ChatService manages saved conversations.
type ChatService interface {
	List(ctx context.Context, caller *auth.Caller) ([]*models.ChatSummary, error)

	// Get loads a chat and recreates any card the BI backend no longer has,
	// persisting the conversation when a card was replaced.
	Get(ctx context.Context, caller *auth.Caller, chatID uuid.UUID) (*models.Chat, error)

	Save(ctx context.Context, caller *auth.Caller, req SaveChatRequest) (uuid.UUID, error)
	Delete(ctx context.Context, caller *auth.Caller, chatID uuid.UUID) (bool, error)
}

type chatService struct {
	repo     repositories.ChatRepository
	backends TenantBackends
	logger   *zap.Logger
}

// NewChatService creates a new ChatService.
func NewChatService(repo repositories.ChatRepository, backends TenantBackends, logger *zap.Logger) ChatService {
	return &chatService{
		repo:     repo,
		backends: backends,
		logger:   logger.Named("chats"),
	}
}

var _ ChatService = (*chatService)(nil)

func (s *chatService) List(ctx context.Context, caller *auth.Caller) ([]*models.ChatSummary, error) {
	return s.repo.List(ctx, caller.TenantID, caller.UserID)
}

func (s *chatService) Get(ctx context.Context, caller *auth.Caller, chatID uuid.UUID) (*models.Chat, error) {
	chat, err := s.repo.Get(ctx, caller.TenantID, caller.UserID, chatID)
	if err != nil {
		return nil, err
	}

	tenant, backend := s.backends.Resolve(caller.TenantID)

	changed, err := s.restoreCards(ctx, backend, tenant.DBID, tenant.CollectionID, chat.Conversation)
	if err != nil {
		// The chat is still readable with stale cards.
		s.logger.Warn("Card validation skipped",
			zap.String("chat_id", chatID.String()),
			zap.String("error", logging.SanitizeError(err)))
		return chat, nil
	}

	if changed {
		if err := s.repo.UpdateConversation(ctx, caller.TenantID, caller.UserID, chatID, chat.Conversation); err != nil {
			return nil, fmt.Errorf("failed to persist recreated cards: %w", err)
		}
	}

	return chat, nil
}

// restoreCards recreates cards missing from the backend in place and
// reports whether any turn changed.
func (s *chatService) restoreCards(ctx context.Context, backend CardBackend, dbID, collectionID int, turns []models.ConversationTurn) (bool, error) {
	needsCheck := false
	for i := range turns {
		if turns[i].HasCard() {
			needsCheck = true
			break
		}
	}
	if !needsCheck {
		return false, nil
	}

	ids, err := backend.ListCardIDs(ctx)
	if err != nil {
		return false, fmt.Errorf("list cards: %w", err)
	}
	existing := make(map[int]bool, len(ids))
	for _, id := range ids {
		existing[id] = true
	}

	changed := false
	for i := range turns {
		embed := turns[i].Embed
		if !turns[i].HasCard() || existing[embed.CardID] || strings.TrimSpace(embed.SQL) == "" {
			continue
		}

		title := embed.Title
		if title == "" {
			title = untitledReport
		}

		newID, err := backend.CreateCard(ctx, embed.SQL, dbID, collectionID, title)
		if err != nil {
			s.logger.Warn("Failed to recreate card",
				zap.Int("card_id", embed.CardID),
				zap.String("error", logging.SanitizeError(err)))
			continue
		}

		if embed.CurrentVisualization != "" && len(embed.XField) > 0 && len(embed.YField) > 0 {
			if err := backend.UpdateCardVisualization(ctx, newID, embed.CurrentVisualization, embed.XField, embed.YField); err != nil {
				s.logger.Warn("Failed to restore card visualization",
					zap.Int("card_id", newID),
					zap.String("error", logging.SanitizeError(err)))
			}
		}

		url, err := backend.EmbedURL(newID)
		if err != nil {
			s.logger.Warn("Failed to sign embed for recreated card",
				zap.Int("card_id", newID),
				zap.String("error", logging.SanitizeError(err)))
			continue
		}

		s.logger.Info("Recreated missing card",
			zap.Int("old_card_id", embed.CardID),
			zap.Int("new_card_id", newID))

		embed.CardID = newID
		embed.URL = url
		changed = true
	}

	return changed, nil
}

func (s *chatService) Save(ctx context.Context, caller *auth.Caller, req SaveChatRequest) (uuid.UUID, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || len(req.Conversation) == 0 {
		return uuid.Nil, fmt.Errorf("%w: title and conversation are required", apperrors.ErrInvalidInput)
	}

	chat := &models.Chat{
		ID:           req.ChatID,
		TenantID:     caller.TenantID,
		UserID:       caller.UserID,
		Title:        title,
		Conversation: req.Conversation,
	}

	if req.ChatID == uuid.Nil {
		if err := s.repo.Create(ctx, chat); err != nil {
			return uuid.Nil, err
		}
		return chat.ID, nil
	}

	if err := s.repo.Update(ctx, chat); err != nil {
		return uuid.Nil, err
	}
	return chat.ID, nil
}

func (s *chatService) Delete(ctx context.Context, caller *auth.Caller, chatID uuid.UUID) (bool, error) {
	return s.repo.Delete(ctx, caller.TenantID, caller.UserID, chatID)
}

// ExtractPastTurns returns the question and SQL of every turn that has both.
func ExtractPastTurns(conversation []models.ConversationTurn) []sqlgen.Turn {
	past := make([]sqlgen.Turn, 0, len(conversation))
	for _, turn := range conversation {
		if turn.Question == "" || turn.Embed == nil || turn.Embed.SQL == "" {
			continue
		}
		past = append(past, sqlgen.Turn{Question: turn.Question, SQL: turn.Embed.SQL})
	}
	return past
}
