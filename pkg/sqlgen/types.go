// Package sqlgen turns a natural-language question into a single SQL query
// by sampling several completions, running each one, and voting on results.
package sqlgen

import (
	"slices"
	"strings"

	"github.com/bcgov/unity-ai/pkg/jsonutil"
	"github.com/bcgov/unity-ai/pkg/prompts"
)

// Turn is a prior question and the SQL it produced.
type Turn = prompts.Turn

// Question is the user's request with its conversation so far.
type Question struct {
	Text    string
	History []Turn
}

// VisualizationOption names a chart type the frontend can render.
type VisualizationOption string

const (
	VisualizationBar     VisualizationOption = "bar"
	VisualizationLine    VisualizationOption = "line"
	VisualizationPie     VisualizationOption = "pie"
	VisualizationMap     VisualizationOption = "map"
	VisualizationTable   VisualizationOption = "table"
	VisualizationRow     VisualizationOption = "row"
	VisualizationArea    VisualizationOption = "area"
	VisualizationScatter VisualizationOption = "scatter"
	VisualizationScalar  VisualizationOption = "scalar"
)

var knownVisualizations = map[VisualizationOption]bool{
	VisualizationBar: true, VisualizationLine: true, VisualizationPie: true,
	VisualizationMap: true, VisualizationTable: true, VisualizationRow: true,
	VisualizationArea: true, VisualizationScatter: true, VisualizationScalar: true,
}

// IsKnown reports whether v is one of the supported chart types.
func (v VisualizationOption) IsKnown() bool {
	return knownVisualizations[v]
}

// Metadata is the presentation hint produced alongside each query.
type Metadata struct {
	Title                string                `json:"title" yaml:"title"`
	XAxis                []string              `json:"x_axis" yaml:"x_axis"`
	YAxis                []string              `json:"y_axis" yaml:"y_axis"`
	VisualizationOptions []VisualizationOption `json:"visualization_options" yaml:"visualization_options"`
}

// Clone returns a copy that shares no slices with m.
func (m Metadata) Clone() Metadata {
	m.XAxis = slices.Clone(m.XAxis)
	m.YAxis = slices.Clone(m.YAxis)
	m.VisualizationOptions = slices.Clone(m.VisualizationOptions)
	return m
}

// rawMetadata is the lenient wire form: axes and options may be a single
// string instead of a list.
type rawMetadata struct {
	Title                string              `json:"title"`
	XAxis                jsonutil.StringList `json:"x_axis"`
	YAxis                jsonutil.StringList `json:"y_axis"`
	VisualizationOptions jsonutil.StringList `json:"visualization_options"`
}

func (r rawMetadata) normalize() *Metadata {
	md := &Metadata{
		Title: strings.TrimSpace(r.Title),
		XAxis: nonNil(r.XAxis),
		YAxis: nonNil(r.YAxis),
	}
	md.VisualizationOptions = make([]VisualizationOption, 0, len(r.VisualizationOptions))
	for _, opt := range r.VisualizationOptions {
		md.VisualizationOptions = append(md.VisualizationOptions, VisualizationOption(strings.ToLower(strings.TrimSpace(opt))))
	}
	return md
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Fingerprint summarises a query's result so equivalent queries compare equal.
type Fingerprint struct {
	RowCount string
	Columns  []string
	Digest   string
}

// Key returns a comparable form of the fingerprint.
func (f Fingerprint) Key() string {
	return f.RowCount + "\x00" + strings.Join(f.Columns, "\x1f") + "\x00" + f.Digest
}

// Candidate is one completion that survived extraction, validation and execution.
type Candidate struct {
	Index       int
	RawText     string
	SQL         string
	Metadata    *Metadata
	Fingerprint Fingerprint
}

// Usage is token accounting across the completions of one request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates other into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Completion is the text and usage of one successful model call.
type Completion struct {
	Text  string
	Usage Usage
}

// FailureKind tells why no SQL was produced.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureStructural means retrieval or prompt assembly failed.
	FailureStructural
	// FailureRejected means the question was flagged as disallowed or unrelated.
	FailureRejected
	// FailureNoConsensus means no candidate survived evaluation.
	FailureNoConsensus
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureStructural:
		return "structural"
	case FailureRejected:
		return "rejected"
	case FailureNoConsensus:
		return "no_consensus"
	default:
		return "unknown"
	}
}

// Result is what one pipeline run produced.
type Result struct {
	SQL      string
	Metadata *Metadata
	Usage    Usage
	Failure  FailureKind
	Shortcut bool
}

// OK reports whether the run produced SQL.
func (r *Result) OK() bool {
	return r != nil && r.Failure == FailureNone && r.SQL != ""
}
