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

// FeedbackRepository provides data access for user feedback.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	Get(ctx context.Context, id uuid.UUID) (*models.Feedback, error)
	ListByChat(ctx context.Context, chatID uuid.UUID) ([]*models.Feedback, error)
	List(ctx context.Context, limit, offset int) ([]*models.Feedback, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (bool, error)
}

type feedbackRepository struct{}

// NewFeedbackRepository creates a new FeedbackRepository.
func NewFeedbackRepository() FeedbackRepository {
	return &feedbackRepository{}
}

var _ FeedbackRepository = (*feedbackRepository)(nil)

const feedbackColumns = `
	f.id, f.chat_id, f.tenant_id, f.user_id, f.feedback_type, f.message,
	f.current_question, f.current_sql, f.current_sql_explanation,
	f.previous_question, f.previous_sql, f.previous_sql_explanation,
	f.metadata, f.status, f.created_at, f.updated_at`

func (r *feedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	if feedback.ID == uuid.Nil {
		feedback.ID = uuid.New()
	}
	if feedback.Status == "" {
		feedback.Status = models.FeedbackStatusOpen
	}
	now := time.Now()
	feedback.CreatedAt = now
	feedback.UpdatedAt = now

	metadata, err := json.Marshal(feedback.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO feedback (
			id, chat_id, tenant_id, user_id, feedback_type, message,
			current_question, current_sql, current_sql_explanation,
			previous_question, previous_sql, previous_sql_explanation,
			metadata, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	fc := feedback.Context
	_, err = scope.Conn.Exec(ctx, query,
		feedback.ID, feedback.ChatID, feedback.TenantID, feedback.UserID, feedback.FeedbackType, feedback.Message,
		fc.CurrentQuestion, fc.CurrentSQL, fc.CurrentSQLExplanation,
		fc.PreviousQuestion, fc.PreviousSQL, fc.PreviousSQLExplanation,
		metadata, feedback.Status, feedback.CreatedAt, feedback.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}

	return nil
}

func (r *feedbackRepository) Get(ctx context.Context, id uuid.UUID) (*models.Feedback, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT` + feedbackColumns + `, COALESCE(c.title, '')
		FROM feedback f
		LEFT JOIN chats c ON c.id = f.chat_id
		WHERE f.id = $1`

	row := scope.Conn.QueryRow(ctx, query, id)
	f, err := scanFeedback(row, true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}

	return f, nil
}

func (r *feedbackRepository) ListByChat(ctx context.Context, chatID uuid.UUID) ([]*models.Feedback, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT` + feedbackColumns + `
		FROM feedback f
		WHERE f.chat_id = $1
		ORDER BY f.created_at DESC`

	rows, err := scope.Conn.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return collectFeedback(rows)
}

// List returns the newest feedback first across every tenant the scope admits.
func (r *feedbackRepository) List(ctx context.Context, limit, offset int) ([]*models.Feedback, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT` + feedbackColumns + `
		FROM feedback f
		ORDER BY f.created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := scope.Conn.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return collectFeedback(rows)
}

func (r *feedbackRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (bool, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return false, fmt.Errorf("no tenant scope in context")
	}

	tag, err := scope.Conn.Exec(ctx,
		`UPDATE feedback SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return false, fmt.Errorf("failed to update feedback status: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func collectFeedback(rows pgx.Rows) ([]*models.Feedback, error) {
	defer rows.Close()

	list := make([]*models.Feedback, 0)
	for rows.Next() {
		f, err := scanFeedback(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		list = append(list, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback: %w", err)
	}

	return list, nil
}

func scanFeedback(row pgx.Row, withTitle bool) (*models.Feedback, error) {
	var (
		f        models.Feedback
		metadata []byte
	)
	dest := []any{
		&f.ID, &f.ChatID, &f.TenantID, &f.UserID, &f.FeedbackType, &f.Message,
		&f.Context.CurrentQuestion, &f.Context.CurrentSQL, &f.Context.CurrentSQLExplanation,
		&f.Context.PreviousQuestion, &f.Context.PreviousSQL, &f.Context.PreviousSQLExplanation,
		&metadata, &f.Status, &f.CreatedAt, &f.UpdatedAt,
	}
	if withTitle {
		dest = append(dest, &f.ChatTitle)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &f.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &f, nil
}
