package sqlgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bcgov/unity-ai/pkg/llm"
	"github.com/bcgov/unity-ai/pkg/metabase"
	"github.com/bcgov/unity-ai/pkg/prompts"
	"github.com/bcgov/unity-ai/pkg/schema"
)

var errBoom = errors.New("boom")

// fakeBackend serves canned results keyed by exact SQL text.
type fakeBackend struct {
	results map[string]*metabase.DatasetResult
	invalid map[string]string
	execErr map[string]error

	mu        sync.Mutex
	validated []string
	executed  []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		results: make(map[string]*metabase.DatasetResult),
		invalid: make(map[string]string),
		execErr: make(map[string]error),
	}
}

func (b *fakeBackend) ValidateSQL(_ context.Context, sql string, _ int) (bool, string) {
	b.mu.Lock()
	b.validated = append(b.validated, sql)
	b.mu.Unlock()
	if reason, ok := b.invalid[sql]; ok {
		return false, reason
	}
	if _, ok := b.results[sql]; !ok {
		if _, failing := b.execErr[sql]; !failing {
			return false, "relation does not exist"
		}
	}
	return true, ""
}

func (b *fakeBackend) ExecuteSQL(_ context.Context, sql string, _ int) (*metabase.DatasetResult, error) {
	b.mu.Lock()
	b.executed = append(b.executed, sql)
	b.mu.Unlock()
	if err, ok := b.execErr[sql]; ok {
		return nil, err
	}
	if r, ok := b.results[sql]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("no result for %q", sql)
}

func (b *fakeBackend) executedSQL() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.executed...)
}

type fakeRetriever struct {
	snippets []schema.Snippet
	err      error
	panics   bool
}

func (r *fakeRetriever) Retrieve(context.Context, string, int, []string) ([]schema.Snippet, error) {
	if r.panics {
		panic("retriever exploded")
	}
	return r.snippets, r.err
}

func rows(cols []string, data ...[]any) *metabase.DatasetResult {
	r := &metabase.DatasetResult{Rows: data}
	for _, c := range cols {
		r.Cols = append(r.Cols, metabase.Column{Name: c})
	}
	if r.Rows == nil {
		r.Rows = [][]any{}
	}
	return r
}

func num(s string) json.Number { return json.Number(s) }

// completionText renders a well-formed model answer.
func completionText(sql, title string) string {
	return "### Reasoning:\nCount things.\n### SQL:\n```sql\n" + sql + "\n```\n### Metadata:\n" +
		`{"title": "` + title + `", "x_axis": ["region"], "y_axis": ["total"], "visualization_options": ["bar", "pie"]}`
}

// scriptedLLM answers pruning and explanation prompts with fixed text and
// hands out generation answers from a queue.
type scriptedLLM struct {
	*llm.MockLLMClient

	mu          sync.Mutex
	generations []scripted
	pruneReply  string
	pruneErr    error
	explain     *llm.GenerateResponseResult
	explainErr  error
	genCalls    int
}

type scripted struct {
	text  string
	usage Usage
	err   error
}

func newScriptedLLM(generations ...scripted) *scriptedLLM {
	s := &scriptedLLM{MockLLMClient: llm.NewMockLLMClient(), generations: generations}
	s.GenerateResponseFunc = s.respond
	return s
}

func (s *scriptedLLM) respond(_ context.Context, prompt, system string, _ float64) (*llm.GenerateResponseResult, error) {
	switch {
	case strings.HasPrefix(prompt, "Please parse this schema"):
		if s.pruneErr != nil {
			return nil, s.pruneErr
		}
		return &llm.GenerateResponseResult{Content: s.pruneReply, TotalTokens: 1000}, nil
	case system == prompts.ExplainSystemMessage:
		if s.explainErr != nil {
			return nil, s.explainErr
		}
		return s.explain, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.genCalls++
	if len(s.generations) == 0 {
		return nil, errors.New("script exhausted")
	}
	next := s.generations[0]
	s.generations = s.generations[1:]
	if next.err != nil {
		return nil, next.err
	}
	return &llm.GenerateResponseResult{
		Content:          next.text,
		PromptTokens:     next.usage.PromptTokens,
		CompletionTokens: next.usage.CompletionTokens,
		TotalTokens:      next.usage.TotalTokens,
	}, nil
}

func (s *scriptedLLM) generationCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.genCalls
}
