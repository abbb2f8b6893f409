package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/auth"
	"github.com/bcgov/unity-ai/pkg/config"
	"github.com/bcgov/unity-ai/pkg/sqlgen"
)

// SQLGenerator is the natural-language-to-SQL engine behind the tools.
type SQLGenerator interface {
	GenerateSQL(ctx context.Context, q sqlgen.Question, dbID int, categories []string) *sqlgen.Result
	ExplainSQL(ctx context.Context, sql string) (string, sqlgen.Usage)
}

// TenantResolver maps tenant ids to their BI database.
type TenantResolver interface {
	Get(id string) config.Tenant
	IDs() []string
}

// ReportToolDeps contains the dependencies for the report tools.
type ReportToolDeps struct {
	Generator SQLGenerator
	Tenants   TenantResolver
	Logger    *zap.Logger
}

type generateSQLResult struct {
	SQL                  string                       `json:"sql"`
	Title                string                       `json:"title"`
	XAxis                []string                     `json:"x_axis"`
	YAxis                []string                     `json:"y_axis"`
	VisualizationOptions []sqlgen.VisualizationOption `json:"visualization_options"`
	Shortcut             bool                         `json:"shortcut,omitempty"`
	Usage                sqlgen.Usage                 `json:"usage"`
}

type explainSQLResult struct {
	Explanation string       `json:"explanation"`
	Usage       sqlgen.Usage `json:"usage"`
}

// RegisterReportTools registers generate_sql and explain_sql.
func RegisterReportTools(s *server.MCPServer, deps *ReportToolDeps) {
	registerGenerateSQLTool(s, deps)
	registerExplainSQLTool(s, deps)
}

func registerGenerateSQLTool(s *server.MCPServer, deps *ReportToolDeps) {
	tool := mcp.NewTool(
		"generate_sql",
		mcp.WithDescription(
			"Translate a natural-language question into a read-only SQL query against a tenant's "+
				"reporting database. Returns the query with a suggested title, chart axes and chart types.",
		),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("The question to answer, e.g. 'How many applications were submitted per region?'"),
		),
		mcp.WithString(
			"tenant",
			mcp.Description("Tenant id. Defaults to the caller's tenant, then to the default tenant."),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil || strings.TrimSpace(question) == "" {
			return NewErrorResult("invalid_argument", "question is required"), nil
		}

		tenantID := strings.TrimSpace(req.GetString("tenant", ""))
		if tenantID == "" {
			tenantID = auth.GetTenantIDFromContext(ctx)
		}
		if tenantID == "" {
			tenantID = config.DefaultTenant
		}
		tenant := deps.Tenants.Get(tenantID)

		deps.Logger.Info("MCP generate_sql",
			zap.String("tenant_id", tenantID),
			zap.Int("db_id", tenant.DBID))

		result := deps.Generator.GenerateSQL(ctx, sqlgen.Question{Text: strings.TrimSpace(question)}, tenant.DBID, tenant.SchemaTypes)
		if !result.OK() {
			return NewErrorResultWithDetails("no_sql", "No query could be produced for this question", map[string]any{
				"failure": result.Failure.String(),
				"usage":   result.Usage,
			}), nil
		}

		out := generateSQLResult{
			SQL:      result.SQL,
			Shortcut: result.Shortcut,
			Usage:    result.Usage,
		}
		if md := result.Metadata; md != nil {
			out.Title = md.Title
			out.XAxis = md.XAxis
			out.YAxis = md.YAxis
			out.VisualizationOptions = md.VisualizationOptions
		}
		return newJSONResult(out)
	})
}

func registerExplainSQLTool(s *server.MCPServer, deps *ReportToolDeps) {
	tool := mcp.NewTool(
		"explain_sql",
		mcp.WithDescription("Describe what a SQL query does in plain language for a non-technical reader."),
		mcp.WithString(
			"sql",
			mcp.Required(),
			mcp.Description("The SQL query to explain"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil || strings.TrimSpace(sql) == "" {
			return NewErrorResult("invalid_argument", "sql is required"), nil
		}

		explanation, usage := deps.Generator.ExplainSQL(ctx, sql)
		return newJSONResult(explainSQLResult{Explanation: explanation, Usage: usage})
	})
}
