// Package prompts builds the text sent to the completion model.
package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Example is one worked question used for few-shot prompting.
// The file may be JSON or YAML; the keys match the historical examples file.
type Example struct {
	Schema               []string `yaml:"Schema"`
	Question             string   `yaml:"Question"`
	Reasoning            string   `yaml:"Reasoning"`
	SQL                  string   `yaml:"SQL"`
	Title                string   `yaml:"title"`
	XAxis                []string `yaml:"x_axis"`
	YAxis                []string `yaml:"y_axis"`
	VisualizationOptions []string `yaml:"visualization_options"`
}

type exampleMetadata struct {
	Title                string   `json:"title"`
	XAxis                []string `json:"x_axis"`
	YAxis                []string `json:"y_axis"`
	VisualizationOptions []string `json:"visualization_options"`
}

// LoadExamples reads examples from path. A missing file yields no examples
// and a warning.
func LoadExamples(path string, logger *zap.Logger) ([]Example, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Examples file not found, prompting without examples", zap.String("path", path))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read examples: %w", err)
	}
	return ParseExamples(data)
}

// ParseExamples decodes a JSON or YAML list of examples.
func ParseExamples(data []byte) ([]Example, error) {
	var examples []Example
	if err := yaml.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("parse examples: %w", err)
	}
	return examples, nil
}

// Format renders the example in the same section layout the model is asked to answer in.
func (e Example) Format() string {
	md, _ := json.Marshal(exampleMetadata{
		Title:                e.Title,
		XAxis:                e.XAxis,
		YAxis:                e.YAxis,
		VisualizationOptions: e.VisualizationOptions,
	})

	var b strings.Builder
	b.WriteString("### Schema:\n")
	b.WriteString(strings.Join(e.Schema, "\n"))
	b.WriteString("\n### Question:\n")
	b.WriteString(e.Question)
	b.WriteString("\n### Reasoning:\n")
	b.WriteString(e.Reasoning)
	b.WriteString("\n### SQL:\n")
	b.WriteString(e.SQL)
	b.WriteString("\n### Metadata:\n")
	b.Write(md)
	return b.String()
}

func formatExamples(examples []Example) string {
	blocks := make([]string, len(examples))
	for i, ex := range examples {
		blocks[i] = ex.Format()
	}
	return strings.Join(blocks, "\n\n")
}
