package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/apperrors"
	"github.com/bcgov/unity-ai/pkg/audit"
	"github.com/bcgov/unity-ai/pkg/auth"
	"github.com/bcgov/unity-ai/pkg/logging"
	"github.com/bcgov/unity-ai/pkg/models"
	sqlcheck "github.com/bcgov/unity-ai/pkg/sql"
	"github.com/bcgov/unity-ai/pkg/sqlgen"
)

// FailURL is the url value of an ask response that produced no report.
const FailURL = "fail"

const (
	untitledReport = "Untitled"
	maxCardID      = 999999999
	maxFieldLength = 100
)

// displayModes are the chart types a card can be switched to.
var displayModes = map[string]bool{
	"table": true, "bar": true, "line": true, "pie": true,
	"map": true, "scatter": true, "area": true, "column": true,
}

var fieldNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// SQLGenerator is the natural-language-to-SQL engine.
type SQLGenerator interface {
	GenerateSQL(ctx context.Context, q sqlgen.Question, dbID int, categories []string) *sqlgen.Result
	ExplainSQL(ctx context.Context, sql string) (string, sqlgen.Usage)
}

// AskRequest is a question in the context of a conversation.
type AskRequest struct {
	Question     string
	Conversation []models.ConversationTurn
}

// AskResponse describes the card created for a question. A failed ask has
// URL set to FailURL and CardID 0.
type AskResponse struct {
	URL                  string        `json:"url"`
	CardID               int           `json:"card_id"`
	XField               []string      `json:"x_field"`
	YField               []string      `json:"y_field"`
	Title                string        `json:"title,omitempty"`
	VisualizationOptions []string      `json:"visualization_options,omitempty"`
	SQL                  string        `json:"SQL,omitempty"`
	Usage                *sqlgen.Usage `json:"usage,omitempty"`
	Failure              string        `json:"failure,omitempty"`
}

// DisplayRequest switches a card to another chart type.
type DisplayRequest struct {
	Mode                 string
	CardID               int
	XField               []string
	YField               []string
	VisualizationOptions []string
}

// DisplayResponse is the refreshed card after a display change.
type DisplayResponse struct {
	URL                  string   `json:"url"`
	CardID               int      `json:"card_id"`
	XField               []string `json:"x_field"`
	YField               []string `json:"y_field"`
	VisualizationOptions []string `json:"visualization_options"`
}

// ReportService turns questions into embedded reports and manages their cards.
type ReportService interface {
	// Ask generates SQL for a question, saves it as a card and returns its embed.
	Ask(ctx context.Context, caller *auth.Caller, req AskRequest) (*AskResponse, error)

	// ChangeDisplay updates a card's chart type and axes.
	ChangeDisplay(ctx context.Context, caller *auth.Caller, req DisplayRequest) (*DisplayResponse, error)

	// DeleteCard removes a card. Returns false when the backend did not delete it.
	DeleteCard(ctx context.Context, caller *auth.Caller, cardID int) (bool, error)

	// Explain describes a query in plain language. It always returns text.
	Explain(ctx context.Context, sql string) string
}

type reportService struct {
	generator SQLGenerator
	backends  TenantBackends
	auditor   *audit.SecurityAuditor
	logger    *zap.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(generator SQLGenerator, backends TenantBackends, logger *zap.Logger) ReportService {
	return &reportService{
		generator: generator,
		backends:  backends,
		auditor:   audit.NewSecurityAuditor(logger),
		logger:    logger.Named("reports"),
	}
}

var _ ReportService = (*reportService)(nil)

func (s *reportService) Ask(ctx context.Context, caller *auth.Caller, req AskRequest) (*AskResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", apperrors.ErrInvalidInput)
	}

	tenant, backend := s.backends.Resolve(caller.TenantID)
	past := ExtractPastTurns(req.Conversation)

	s.logger.Info("Generating report",
		zap.String("tenant_id", caller.TenantID),
		zap.Int("db_id", tenant.DBID),
		zap.Int("collection_id", tenant.CollectionID),
		zap.Int("past_turns", len(past)))

	result := s.generator.GenerateSQL(ctx, sqlgen.Question{Text: question, History: past}, tenant.DBID, tenant.SchemaTypes)
	if !result.OK() {
		s.logger.Info("No report produced",
			zap.String("tenant_id", caller.TenantID),
			zap.String("failure", result.Failure.String()))
		usage := result.Usage
		return &AskResponse{
			URL:     FailURL,
			XField:  []string{},
			YField:  []string{},
			Usage:   &usage,
			Failure: result.Failure.String(),
		}, nil
	}

	md := result.Metadata
	if md == nil {
		md = &sqlgen.Metadata{XAxis: []string{}, YAxis: []string{}}
	}
	title := s.cardTitle(md.Title)

	cardID, err := backend.CreateCard(ctx, result.SQL, tenant.DBID, tenant.CollectionID, title)
	if err != nil {
		s.logger.Error("Failed to create card",
			zap.String("sql", logging.TruncateSQL(result.SQL)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("%w: create card: %v", apperrors.ErrUpstream, err)
	}

	url, err := backend.EmbedURL(cardID)
	if err != nil {
		return nil, fmt.Errorf("%w: embed url: %v", apperrors.ErrUpstream, err)
	}

	options := make([]string, len(md.VisualizationOptions))
	for i, opt := range md.VisualizationOptions {
		options[i] = string(opt)
	}

	usage := result.Usage
	return &AskResponse{
		URL:                  url,
		CardID:               cardID,
		XField:               md.XAxis,
		YField:               md.YAxis,
		Title:                title,
		VisualizationOptions: options,
		SQL:                  result.SQL,
		Usage:                &usage,
	}, nil
}

// cardTitle falls back to untitledReport for empty or suspicious titles.
func (s *reportService) cardTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return untitledReport
	}
	if hit := sqlcheck.CheckValueForInjection("title", title); hit != nil {
		s.logger.Warn("Generated title rejected",
			zap.String("title", title),
			zap.String("fingerprint", hit.Fingerprint))
		return untitledReport
	}
	return title
}

func (s *reportService) ChangeDisplay(ctx context.Context, caller *auth.Caller, req DisplayRequest) (*DisplayResponse, error) {
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if !displayModes[mode] {
		return nil, fmt.Errorf("%w: invalid mode parameter", apperrors.ErrInvalidInput)
	}
	if err := validateCardID(req.CardID); err != nil {
		return nil, err
	}

	auditCtx := auth.WithCaller(ctx, caller)
	xFields := s.sanitizeFields(auditCtx, req.CardID, "x_field", req.XField)
	yFields := s.sanitizeFields(auditCtx, req.CardID, "y_field", req.YField)
	options := s.sanitizeFields(auditCtx, req.CardID, "visualization_options", req.VisualizationOptions)

	_, backend := s.backends.Resolve(caller.TenantID)

	if err := backend.UpdateCardVisualization(ctx, req.CardID, mode, xFields, yFields); err != nil {
		return nil, fmt.Errorf("%w: update card: %v", apperrors.ErrUpstream, err)
	}

	url, err := backend.EmbedURL(req.CardID)
	if err != nil {
		return nil, fmt.Errorf("%w: embed url: %v", apperrors.ErrUpstream, err)
	}

	return &DisplayResponse{
		URL:                  url,
		CardID:               req.CardID,
		XField:               xFields,
		YField:               yFields,
		VisualizationOptions: options,
	}, nil
}

// sanitizeFields keeps only plain identifiers that pass injection screening.
// Dropped values are recorded in the security audit log.
func (s *reportService) sanitizeFields(ctx context.Context, cardID int, field string, values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if hit := sqlcheck.CheckValueForInjection(field, v); hit != nil {
			s.auditor.LogInjectionAttempt(ctx, cardID, audit.InjectionDetails{
				Field:       field,
				Value:       v,
				Fingerprint: hit.Fingerprint,
			})
			continue
		}
		if len(v) > maxFieldLength || !fieldNamePattern.MatchString(v) {
			s.auditor.LogInputRejected(ctx, cardID, field, "not a plain field name")
			continue
		}
		out = append(out, v)
	}
	return out
}

func (s *reportService) DeleteCard(ctx context.Context, caller *auth.Caller, cardID int) (bool, error) {
	if err := validateCardID(cardID); err != nil {
		return false, err
	}

	_, backend := s.backends.Resolve(caller.TenantID)

	deleted, err := backend.DeleteCard(ctx, cardID)
	if err != nil {
		s.logger.Warn("Failed to delete card",
			zap.Int("card_id", cardID),
			zap.String("error", logging.SanitizeError(err)))
		return false, nil
	}
	return deleted, nil
}

func (s *reportService) Explain(ctx context.Context, sql string) string {
	explanation, usage := s.generator.ExplainSQL(ctx, sql)
	s.logger.Debug("Explained SQL", zap.Int("total_tokens", usage.TotalTokens))
	return explanation
}

func validateCardID(cardID int) error {
	if cardID < 1 || cardID > maxCardID {
		return fmt.Errorf("%w: invalid card_id parameter", apperrors.ErrInvalidInput)
	}
	return nil
}
