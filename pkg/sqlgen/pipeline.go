package sqlgen

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bcgov/unity-ai/pkg/llm"
	"github.com/bcgov/unity-ai/pkg/logging"
	"github.com/bcgov/unity-ai/pkg/prompts"
	"github.com/bcgov/unity-ai/pkg/schema"
	sqlcheck "github.com/bcgov/unity-ai/pkg/sql"
)

// Defaults for Config fields left zero.
const (
	DefaultKSamples        = 7
	DefaultTemperature     = 0.2
	DefaultEvalConcurrency = 3
	explainTemperature     = 0.3
)

// SchemaRetriever finds table descriptions relevant to a question.
type SchemaRetriever interface {
	Retrieve(ctx context.Context, question string, dbID int, categories []string) ([]schema.Snippet, error)
}

// Backend validates and executes SQL.
type Backend interface {
	Executor
	ValidateSQL(ctx context.Context, sql string, dbID int) (bool, string)
}

// Config tunes a Pipeline.
type Config struct {
	KSamples        int
	Temperature     float64
	MaxConcurrent   int // in-flight completions; zero means KSamples
	EvalConcurrency int // candidates evaluated at once
	EnablePruning   bool
}

// Deps are the collaborators a Pipeline calls.
type Deps struct {
	Retriever SchemaRetriever
	Builder   *prompts.Builder
	LLM       llm.LLMClient
	Backend   Backend
	Parser    Parser     // nil means MarkdownParser
	Shortcuts *Shortcuts // nil means none
}

// Pipeline answers questions with majority-voted SQL.
type Pipeline struct {
	deps          Deps
	cfg           Config
	generator     *Generator
	fingerprinter *Fingerprinter
	logger        *zap.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(deps Deps, cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.KSamples < 1 {
		cfg.KSamples = DefaultKSamples
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = cfg.KSamples
	}
	if cfg.EvalConcurrency < 1 {
		cfg.EvalConcurrency = DefaultEvalConcurrency
	}
	if deps.Parser == nil {
		deps.Parser = MarkdownParser{}
	}

	logger = logger.Named("sqlgen")
	pool := llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: cfg.MaxConcurrent}, logger)

	return &Pipeline{
		deps:          deps,
		cfg:           cfg,
		generator:     NewGenerator(deps.LLM, pool, cfg.Temperature, logger),
		fingerprinter: NewFingerprinter(deps.Backend),
		logger:        logger,
	}
}

// GenerateSQL runs retrieval, prompting, sampling, evaluation and voting.
// It never returns an error; Result.OK and Result.Failure tell the outcome.
func (p *Pipeline) GenerateSQL(ctx context.Context, q Question, dbID int, categories []string) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Pipeline panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			res = &Result{Failure: FailureStructural}
		}
		pipelineRuns.WithLabelValues(outcome(res)).Inc()
	}()

	if sc, ok := p.deps.Shortcuts.Lookup(q.Text); ok {
		md := sc.Metadata
		p.logger.Info("Answered from shortcut", zap.String("question", q.Text))
		return &Result{SQL: sc.SQL, Metadata: &md, Shortcut: true}
	}

	start := time.Now()
	snippets, err := p.deps.Retriever.Retrieve(ctx, q.Text, dbID, categories)
	observeStage("retrieval", start)
	if err != nil {
		p.logger.Error("Schema retrieval failed",
			zap.Int("db_id", dbID),
			zap.String("error", logging.SanitizeError(err)))
		return &Result{Failure: FailureStructural}
	}
	schemaText := schema.Format(snippets)

	if p.cfg.EnablePruning && schemaText != "" {
		pruned, rejected := p.prune(ctx, q.Text, schemaText)
		if rejected {
			p.logger.Warn("Question rejected by schema pruning", zap.String("question", q.Text))
			return &Result{Failure: FailureRejected}
		}
		schemaText = pruned
	}

	prompt := p.deps.Builder.Build(q.Text, schemaText, q.History)

	start = time.Now()
	completions := p.generator.Generate(ctx, prompt, p.cfg.KSamples)
	observeStage("generation", start)

	var usage Usage
	for _, c := range completions {
		if c != nil {
			usage.Add(c.Usage)
		}
	}

	start = time.Now()
	candidates, err := p.evaluate(ctx, completions, dbID)
	observeStage("evaluation", start)
	if err != nil {
		p.logger.Error("Candidate evaluation failed", zap.Error(err))
		return &Result{Failure: FailureStructural}
	}
	survivingCandidates.Observe(float64(len(candidates)))

	winner, ok := SelectConsensus(candidates)
	if !ok {
		p.logger.Warn("No valid candidates generated",
			zap.Int("k", p.cfg.KSamples),
			zap.Int("total_tokens", usage.TotalTokens))
		return &Result{Usage: usage, Failure: FailureNoConsensus}
	}

	p.logger.Info("Selected SQL",
		zap.Int("index", winner.Index),
		zap.Int("candidates", len(candidates)),
		zap.String("sql", logging.TruncateSQL(winner.SQL)))

	return &Result{SQL: winner.SQL, Metadata: winner.Metadata, Usage: usage}
}

// prune asks the model to trim schemaText. Any failure keeps the full schema.
func (p *Pipeline) prune(ctx context.Context, question, schemaText string) (string, bool) {
	start := time.Now()
	defer observeStage("pruning", start)

	resp, err := p.deps.LLM.GenerateResponse(ctx, prompts.PruneSchema(question, schemaText), prompts.SQLSystemMessage, p.cfg.Temperature)
	if err != nil || resp == nil || strings.TrimSpace(resp.Content) == "" {
		p.logger.Warn("Schema pruning failed, using full schema", zap.Error(err))
		return schemaText, false
	}
	if prompts.IsRejection(resp.Content) {
		return "", true
	}
	return strings.TrimSpace(resp.Content), false
}

// evaluate turns completions into candidates, preserving dispatch order.
// A panic in any evaluation aborts the run.
func (p *Pipeline) evaluate(ctx context.Context, completions []*Completion, dbID int) ([]Candidate, error) {
	slots := make([]*Candidate, len(completions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.EvalConcurrency)
	for i, c := range completions {
		if c == nil {
			continue
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("candidate %d panicked: %v", i, r)
				}
			}()
			slots[i] = p.evaluateOne(gctx, i, c.Text, dbID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(slots))
	for _, c := range slots {
		if c != nil {
			candidates = append(candidates, *c)
		}
	}
	return candidates, nil
}

// evaluateOne returns nil when the completion is dropped.
func (p *Pipeline) evaluateOne(ctx context.Context, index int, raw string, dbID int) *Candidate {
	log := p.logger.With(zap.Int("index", index))

	sql, ok := p.deps.Parser.ExtractSQL(raw)
	if !ok {
		log.Debug("No SQL found in completion")
		candidateFailures.WithLabelValues(stageExtraction).Inc()
		return nil
	}
	md, ok := p.deps.Parser.ExtractMetadata(raw)
	if !ok {
		log.Debug("No metadata found in completion")
		candidateFailures.WithLabelValues(stageExtraction).Inc()
		return nil
	}

	normalized := sqlcheck.ValidateAndNormalize(sql)
	if normalized.Error != nil {
		log.Debug("SQL rejected locally", zap.Error(normalized.Error))
		candidateFailures.WithLabelValues(stageNormalize).Inc()
		return nil
	}
	sql = normalized.NormalizedSQL

	if valid, reason := p.deps.Backend.ValidateSQL(ctx, sql, dbID); !valid {
		log.Warn("SQL validation failed",
			zap.String("reason", logging.TruncateString(reason, 300)),
			zap.String("sql", logging.TruncateSQL(sql)))
		candidateFailures.WithLabelValues(stageValidation).Inc()
		return nil
	}

	fp, err := p.fingerprinter.Fingerprint(ctx, sql, dbID)
	if err != nil {
		log.Warn("Fingerprinting failed", zap.String("error", logging.SanitizeError(err)))
		candidateFailures.WithLabelValues(stageFingerprint).Inc()
		return nil
	}

	return &Candidate{
		Index:       index,
		RawText:     raw,
		SQL:         sql,
		Metadata:    md,
		Fingerprint: fp,
	}
}

// ExplainSQL returns a short plain-language summary of sql. Any failure
// yields a generic sentence and zero usage.
func (p *Pipeline) ExplainSQL(ctx context.Context, sql string) (string, Usage) {
	resp, err := p.deps.LLM.GenerateResponse(ctx, prompts.ExplainSQL(sql), prompts.ExplainSystemMessage, explainTemperature)
	if err != nil || resp == nil || strings.TrimSpace(resp.Content) == "" {
		p.logger.Warn("SQL explanation failed", zap.Error(err))
		return prompts.FallbackExplanation, Usage{}
	}
	return strings.TrimSpace(resp.Content), Usage{
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		TotalTokens:      resp.TotalTokens,
	}
}

func observeStage(stage string, start time.Time) {
	pipelineDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func outcome(r *Result) string {
	switch {
	case r == nil:
		return FailureStructural.String()
	case r.Shortcut:
		return "shortcut"
	case r.OK():
		return "ok"
	default:
		return r.Failure.String()
	}
}
