package schema

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bcgov/unity-ai/pkg/metabase"
)

// MaxExampleLength is the longest example value kept verbatim.
const MaxExampleLength = 50

// Columns and tables that carry no reporting value.
var (
	junkColumns = map[string]bool{
		"CreatorId":            true,
		"LastModificationTime": true,
		"LastModifierId":       true,
		"ExtraProperties":      true,
		"ConcurrencyStamp":     true,
		"CreationTime":         true,
		"CorrelationProvider":  true,
	}
	junkTables = map[string]bool{
		"ApplicationFormSubmissions": true,
		"__EFMigrationsHistory":      true,
	}
)

// MetadataSource is the part of the BI backend the extractor reads.
type MetadataSource interface {
	GetDatabaseMetadata(ctx context.Context, dbID int) (*metabase.DatabaseMetadata, error)
	ExecuteSQL(ctx context.Context, sql string, dbID int) (*metabase.DatasetResult, error)
}

// Extractor builds table descriptions with an example value per column.
type Extractor struct {
	source          MetadataSource
	exampleParallel int
	logger          *zap.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(source MetadataSource, logger *zap.Logger) *Extractor {
	return &Extractor{
		source:          source,
		exampleParallel: 4,
		logger:          logger.Named("schema-extractor"),
	}
}

// Extract returns one description per non-empty table of the category.
// Tables whose probe query fails are logged and skipped.
func (e *Extractor) Extract(ctx context.Context, dbID int, category string) ([]string, error) {
	schemaName, err := schemaFor(category)
	if err != nil {
		return nil, err
	}

	md, err := e.source.GetDatabaseMetadata(ctx, dbID)
	if err != nil {
		return nil, err
	}

	var docs []string
	for _, table := range md.Tables {
		if !includeTable(table, category) {
			continue
		}

		probe := fmt.Sprintf(`SELECT * FROM %s.%s LIMIT 1`, quoteIdent(schemaName), quoteIdent(table.Name))
		result, err := e.source.ExecuteSQL(ctx, probe, dbID)
		if err != nil {
			e.logger.Warn("Skipping table, probe failed",
				zap.String("table", table.Name),
				zap.Error(err))
			continue
		}
		if len(result.Rows) == 0 {
			continue
		}

		doc, err := e.describe(ctx, dbID, schemaName, table)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
		e.logger.Debug("Extracted table schema", zap.String("table", table.Name))
	}

	e.logger.Info("Extracted schemas",
		zap.Int("db_id", dbID),
		zap.String("category", category),
		zap.Int("tables", len(docs)))

	return docs, nil
}

func (e *Extractor) describe(ctx context.Context, dbID int, schemaName string, table metabase.Table) (string, error) {
	var fields []metabase.Field
	for _, f := range table.Fields {
		if !junkColumns[f.Name] {
			fields = append(fields, f)
		}
	}

	examples := make([]string, len(fields))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.exampleParallel)
	for i, f := range fields {
		g.Go(func() error {
			examples[i] = e.example(gctx, dbID, schemaName, table.Name, f)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, `# "%s"."%s"`, schemaName, table.Name)
	for i, f := range fields {
		if examples[i] == "" {
			continue
		}
		fmt.Fprintf(&b, "\n - %s (%s): '%s'", f.Name, f.BaseType, truncateExample(examples[i]))
	}
	return b.String(), nil
}

// example returns the first non-null value of a column, or "" when there is none.
func (e *Extractor) example(ctx context.Context, dbID int, schemaName, table string, f metabase.Field) string {
	col := quoteIdent(f.Name)
	sql := fmt.Sprintf(`SELECT %s FROM %s.%s WHERE %s IS NOT null`, col, quoteIdent(schemaName), quoteIdent(table), col)
	if strings.Contains(f.BaseType, "Text") {
		sql += fmt.Sprintf(` and %s <> ''`, col)
	}
	sql += " LIMIT 1"

	result, err := e.source.ExecuteSQL(ctx, sql, dbID)
	if err != nil || len(result.Rows) == 0 || len(result.Rows[0]) == 0 || result.Rows[0][0] == nil {
		return ""
	}
	return fmt.Sprint(result.Rows[0][0])
}

func schemaFor(category string) (string, error) {
	switch category {
	case CategoryPublic:
		return "public", nil
	case CategoryCustom:
		return "Reporting", nil
	default:
		return "", fmt.Errorf("unknown schema category %q", category)
	}
}

func includeTable(t metabase.Table, category string) bool {
	if junkTables[t.Name] {
		return false
	}
	if category == CategoryCustom {
		return strings.Contains(t.Name, "Worksheet")
	}
	return t.Schema == "public"
}

func truncateExample(s string) string {
	if utf8.RuneCountInString(s) <= MaxExampleLength {
		return s
	}
	return string([]rune(s)[:MaxExampleLength]) + "..."
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
