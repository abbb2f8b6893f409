package metabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/jsonutil"
	"github.com/bcgov/unity-ai/pkg/logging"
)

// Column is a result column. Metabase reports columns as objects; older
// payloads and test fixtures may use bare names.
type Column struct {
	Name     string `json:"name"`
	BaseType string `json:"base_type,omitempty"`
}

// UnmarshalJSON accepts either {"name": ...} or "name".
func (c *Column) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &c.Name)
	}
	type plain Column
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Column(p)
	return nil
}

// DatasetResult is the data section of a native query response.
// Numbers are kept as json.Number so their wire form survives re-encoding.
type DatasetResult struct {
	Rows [][]any  `json:"rows"`
	Cols []Column `json:"cols"`
}

// ColumnNames returns the column names in result order.
func (r *DatasetResult) ColumnNames() []string {
	names := make([]string, len(r.Cols))
	for i, col := range r.Cols {
		names[i] = col.Name
	}
	return names
}

type nativeQuery struct {
	Database int               `json:"database"`
	Type     string            `json:"type"`
	Native   map[string]string `json:"native"`
}

func newNativeQuery(sql string, dbID int) nativeQuery {
	return nativeQuery{Database: dbID, Type: "native", Native: map[string]string{"query": sql}}
}

// datasetBody is the part of /api/dataset and /api/async responses we read.
type datasetBody struct {
	ID       json.RawMessage `json:"id"`
	Status   string          `json:"status"`
	Data     *DatasetResult  `json:"data"`
	Error    json.RawMessage `json:"error"`
	hasError bool
}

func decodeDatasetBody(data []byte) (*datasetBody, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var body datasetBody
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	_, body.hasError = keys["error"]
	return &body, nil
}

func (b *datasetBody) errorMessage() string {
	if msg := jsonutil.FlexibleStringValue(b.Error); msg != "" {
		return msg
	}
	return "query failed"
}

// runNative submits sql and, if Metabase answers 202 with a running job,
// polls /api/async/{id} until the first 200 or the validation deadline.
// The returned body is whatever was last received.
func (c *Client) runNative(ctx context.Context, sql string, dbID int) (*datasetBody, error) {
	resp, err := c.do(ctx, http.MethodPost, newNativeQuery(sql, dbID), "api", "dataset")
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK && resp.status != http.StatusAccepted {
		return nil, &HTTPError{StatusCode: resp.status, Body: string(resp.body)}
	}

	body, err := decodeDatasetBody(resp.body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset response: %w", err)
	}

	if resp.status == http.StatusAccepted && body.Status == "running" {
		jobID := jobIDString(body.ID)
		deadline := time.Now().Add(c.validationTimeout)

		for time.Now().Before(deadline) {
			poll, err := c.do(ctx, http.MethodGet, nil, "api", "async", jobID)
			if err != nil {
				return nil, err
			}
			if poll.status == http.StatusOK {
				if body, err = decodeDatasetBody(poll.body); err != nil {
					return nil, fmt.Errorf("failed to parse async response: %w", err)
				}
				break
			}

			select {
			case <-time.After(c.pollInterval):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return body, nil
}

func jobIDString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}

// ExecuteSQL runs a native query and returns its rows and columns.
func (c *Client) ExecuteSQL(ctx context.Context, sql string, dbID int) (*DatasetResult, error) {
	body, err := c.runNative(ctx, sql, dbID)
	if err != nil {
		return nil, fmt.Errorf("execute sql: %w", err)
	}
	if body.hasError {
		return nil, fmt.Errorf("execute sql: %s", body.errorMessage())
	}
	if body.Data == nil {
		return nil, fmt.Errorf("execute sql: response has no data (status %q)", body.Status)
	}
	return body.Data, nil
}

// ValidateSQL reports whether Metabase accepts and runs sql. The second
// value carries the failure reason when invalid.
//
// Statuses other than 200 and 202 are invalid. A running async job is
// polled for up to the validation timeout; a job still running at the
// deadline counts as valid since no error was reported.
func (c *Client) ValidateSQL(ctx context.Context, sql string, dbID int) (bool, string) {
	body, err := c.runNative(ctx, sql, dbID)
	if err != nil {
		c.logger.Debug("SQL validation request failed",
			zap.Int("db_id", dbID),
			zap.String("sql", logging.TruncateSQL(sql)),
			zap.String("error", logging.SanitizeError(err)))
		return false, err.Error()
	}
	if body.hasError {
		return false, body.errorMessage()
	}
	return true, ""
}

// RowCount returns len(rows) as a decimal string.
func (r *DatasetResult) RowCount() string {
	return strconv.Itoa(len(r.Rows))
}
