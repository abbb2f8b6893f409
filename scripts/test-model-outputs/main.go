// test-model-outputs checks that candidate models answer in the format the
// SQL generator parses. Each model gets the same generation prompt and the
// response must yield a SQL block and a metadata block.
//
// Usage: go run ./scripts/test-model-outputs [-models gpt-4o-mini,gpt-4o]
//
// Configuration: provider, endpoint and key come from config.yaml and the
// environment like the server; -models overrides the model name.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/config"
	"github.com/bcgov/unity-ai/pkg/llm"
	"github.com/bcgov/unity-ai/pkg/prompts"
	"github.com/bcgov/unity-ai/pkg/sqlgen"
)

const sampleSchema = `# "public"."Applications"
 - Id (type/UUID): '3fa85f64-5717-4562-b3fc-2c963f66afa6'
 - ApplicationStatus (type/Text): 'Submitted'
 - RequestedAmount (type/Decimal): '25000.00'
 - SubmissionDate (type/DateTime): '2024-03-14T09:21:00'
# "public"."Applicants"
 - Id (type/UUID): '9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d'
 - OrgName (type/Text): 'Northern Farms Co-op'
 - ApplicationId (type/UUID): '3fa85f64-5717-4562-b3fc-2c963f66afa6'`

const sampleQuestion = "How many applications are in each status?"

func main() {
	timeout := flag.Duration("timeout", 120*time.Second, "Timeout for each model call")
	models := flag.String("models", "", "Comma-separated model names (default: configured model)")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath, "test-model-outputs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	logger, _ := logConfig.Build()
	defer func() { _ = logger.Sync() }()

	base := cfg.AI.CompletionConfig()
	names := []string{base.Model}
	if *models != "" {
		names = strings.Split(*models, ",")
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("SQL Generation Format Test")
	fmt.Printf("Provider: %s  Endpoint: %s\n", base.Provider, base.Endpoint)
	fmt.Println(strings.Repeat("=", 80))

	prompt := prompts.NewBuilder(nil).Build(sampleQuestion, sampleSchema, nil)
	ctx := context.Background()

	allPassed := true
	for _, name := range names {
		modelCfg := *base
		modelCfg.Model = strings.TrimSpace(name)

		fmt.Printf("\n%s\nTesting: %s\n%s\n", strings.Repeat("-", 80), modelCfg.Model, strings.Repeat("-", 80))
		result := testModel(ctx, &modelCfg, prompt, logger, *timeout)
		printResult(result)
		if !result.Success {
			allPassed = false
		}
	}

	if !allPassed {
		fmt.Println("\nSome models failed.")
		os.Exit(1)
	}
	fmt.Println("\nAll models passed!")
}

type TestResult struct {
	Success      bool
	Error        string
	SQL          string
	Metadata     *sqlgen.Metadata
	DurationMs   int64
	TokensPerSec float64
}

func testModel(ctx context.Context, cfg *llm.Config, prompt string, logger *zap.Logger, timeout time.Duration) TestResult {
	result := TestResult{}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := llm.NewCompletionClient(cfg, logger)
	if err != nil {
		result.Error = fmt.Sprintf("Failed to create client: %v", err)
		return result
	}

	resp, err := client.GenerateResponse(ctx, prompt, prompts.SQLSystemMessage, sqlgen.DefaultTemperature)
	if err != nil {
		result.Error = fmt.Sprintf("API call failed: %v", err)
		return result
	}

	result.DurationMs = time.Since(start).Milliseconds()
	if result.DurationMs > 0 && resp.CompletionTokens > 0 {
		result.TokensPerSec = float64(resp.CompletionTokens) / (float64(result.DurationMs) / 1000.0)
	}

	fmt.Println("--- Raw Response (first 800 chars) ---")
	fmt.Println(truncateString(resp.Content, 800))
	fmt.Println("--- End Raw Response ---")
	fmt.Printf("Tokens: prompt=%d, completion=%d, total=%d\n",
		resp.PromptTokens, resp.CompletionTokens, resp.TotalTokens)
	fmt.Printf("Duration: %dms, Throughput: %.1f tok/s\n", result.DurationMs, result.TokensPerSec)

	parser := sqlgen.MarkdownParser{}
	sql, ok := parser.ExtractSQL(resp.Content)
	if !ok {
		result.Error = "no SQL block found"
		return result
	}
	result.SQL = sql

	metadata, ok := parser.ExtractMetadata(resp.Content)
	if !ok {
		result.Error = "no metadata block found"
		return result
	}
	result.Metadata = metadata

	result.Success = true
	return result
}

func printResult(result TestResult) {
	fmt.Println("\n--- Test Result ---")
	if !result.Success {
		fmt.Println("Status: FAIL")
		fmt.Printf("Error: %s\n", result.Error)
		return
	}
	fmt.Println("Status: PASS")
	fmt.Printf("SQL: %s\n", truncateString(result.SQL, 200))
	fmt.Printf("Title: %q  x=%v  y=%v  options=%v\n",
		result.Metadata.Title, result.Metadata.XAxis, result.Metadata.YAxis, result.Metadata.VisualizationOptions)
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
