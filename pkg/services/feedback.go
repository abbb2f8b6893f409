package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/apperrors"
	"github.com/bcgov/unity-ai/pkg/auth"
	"github.com/bcgov/unity-ai/pkg/models"
	"github.com/bcgov/unity-ai/pkg/repositories"
)

// Admin listing bounds.
const (
	DefaultFeedbackLimit = 100
	MaxFeedbackLimit     = 1000
)

// SubmitFeedbackRequest is a user's report about a chat.
type SubmitFeedbackRequest struct {
	ChatID          uuid.UUID
	FeedbackType    models.FeedbackType
	Message         string
	Context         models.FeedbackContext
	Timestamp       time.Time
	FrontendVersion string
	UserAgent       string
	IP              string
}

// FeedbackService records and serves user feedback.
type FeedbackService interface {
	// Submit stores feedback for a chat the caller owns.
	Submit(ctx context.Context, caller *auth.Caller, req SubmitFeedbackRequest) (*models.Feedback, error)

	// Get returns an entry the caller submitted. Admins may read any entry.
	Get(ctx context.Context, caller *auth.Caller, id uuid.UUID) (*models.Feedback, error)

	// ListForChat returns feedback on a chat the caller owns, newest first.
	ListForChat(ctx context.Context, caller *auth.Caller, chatID uuid.UUID) ([]*models.Feedback, error)

	// ListAll pages through every entry, newest first. limit is clamped to
	// MaxFeedbackLimit; zero means DefaultFeedbackLimit.
	ListAll(ctx context.Context, limit, offset int) ([]*models.Feedback, int, int, error)

	// UpdateStatus sets an entry's triage status.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type feedbackService struct {
	feedbackRepo repositories.FeedbackRepository
	chatRepo     repositories.ChatRepository
	logger       *zap.Logger
}

// NewFeedbackService creates a new FeedbackService.
func NewFeedbackService(feedbackRepo repositories.FeedbackRepository, chatRepo repositories.ChatRepository, logger *zap.Logger) FeedbackService {
	return &feedbackService{
		feedbackRepo: feedbackRepo,
		chatRepo:     chatRepo,
		logger:       logger.Named("feedback"),
	}
}

var _ FeedbackService = (*feedbackService)(nil)

func (s *feedbackService) Submit(ctx context.Context, caller *auth.Caller, req SubmitFeedbackRequest) (*models.Feedback, error) {
	if req.ChatID == uuid.Nil {
		return nil, fmt.Errorf("%w: chat_id is required", apperrors.ErrInvalidInput)
	}

	if _, err := s.chatRepo.Get(ctx, caller.TenantID, caller.UserID, req.ChatID); err != nil {
		return nil, err
	}

	feedbackType := req.FeedbackType
	if feedbackType == "" {
		feedbackType = models.FeedbackTypeBugReport
	}

	timestamp := req.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	feedback := &models.Feedback{
		ChatID:       req.ChatID,
		TenantID:     caller.TenantID,
		UserID:       caller.UserID,
		FeedbackType: feedbackType,
		Message:      strings.TrimSpace(req.Message),
		Context:      req.Context,
		Metadata: models.FeedbackMetadata{
			Timestamp:       timestamp,
			FrontendVersion: req.FrontendVersion,
			BrowserInfo:     models.BrowserInfo{UserAgent: req.UserAgent, IP: req.IP},
		},
	}

	if err := s.feedbackRepo.Create(ctx, feedback); err != nil {
		return nil, err
	}

	s.logger.Info("Feedback submitted",
		zap.String("feedback_id", feedback.ID.String()),
		zap.String("chat_id", req.ChatID.String()),
		zap.String("user_id", caller.UserID))

	return feedback, nil
}

func (s *feedbackService) Get(ctx context.Context, caller *auth.Caller, id uuid.UUID) (*models.Feedback, error) {
	feedback, err := s.feedbackRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if feedback.UserID != caller.UserID && !caller.IsAdmin {
		return nil, apperrors.ErrForbidden
	}
	return feedback, nil
}

func (s *feedbackService) ListForChat(ctx context.Context, caller *auth.Caller, chatID uuid.UUID) ([]*models.Feedback, error) {
	if _, err := s.chatRepo.Get(ctx, caller.TenantID, caller.UserID, chatID); err != nil {
		return nil, err
	}
	return s.feedbackRepo.ListByChat(ctx, chatID)
}

func (s *feedbackService) ListAll(ctx context.Context, limit, offset int) ([]*models.Feedback, int, int, error) {
	if limit <= 0 {
		limit = DefaultFeedbackLimit
	}
	limit = min(limit, MaxFeedbackLimit)
	offset = max(offset, 0)

	list, err := s.feedbackRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, 0, err
	}
	return list, limit, offset, nil
}

func (s *feedbackService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !models.IsValidFeedbackStatus(status) {
		return fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidInput, status)
	}

	updated, err := s.feedbackRepo.UpdateStatus(ctx, id, status)
	if err != nil {
		return err
	}
	if !updated {
		return apperrors.ErrNotFound
	}
	return nil
}
