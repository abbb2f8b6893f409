package sqlgen

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bcgov/unity-ai/pkg/metabase"
)

// digestRows is how many leading rows contribute to the digest.
const digestRows = 5

// Executor runs SQL on the BI backend.
type Executor interface {
	ExecuteSQL(ctx context.Context, sql string, dbID int) (*metabase.DatasetResult, error)
}

// Fingerprinter executes queries and summarises their results.
type Fingerprinter struct {
	executor Executor
}

// NewFingerprinter creates a Fingerprinter.
func NewFingerprinter(executor Executor) *Fingerprinter {
	return &Fingerprinter{executor: executor}
}

// Fingerprint runs sql and returns its row count, column names and an MD5
// digest of the first rows.
func (f *Fingerprinter) Fingerprint(ctx context.Context, sql string, dbID int) (Fingerprint, error) {
	result, err := f.executor.ExecuteSQL(ctx, sql, dbID)
	if err != nil {
		return Fingerprint{}, err
	}
	return FingerprintResult(result)
}

// FingerprintResult computes the fingerprint of an already executed query.
func FingerprintResult(result *metabase.DatasetResult) (Fingerprint, error) {
	head := result.Rows
	if len(head) > digestRows {
		head = head[:digestRows]
	}

	canonical := make([][]any, len(head))
	for i, row := range head {
		canonical[i] = make([]any, len(row))
		for j, v := range row {
			canonical[i][j] = canonicalValue(v)
		}
	}

	data, err := json.Marshal(canonical)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("encode rows: %w", err)
	}
	sum := md5.Sum(data)

	return Fingerprint{
		RowCount: result.RowCount(),
		Columns:  result.ColumnNames(),
		Digest:   hex.EncodeToString(sum[:]),
	}, nil
}

// canonicalValue renders values json cannot encode stably as strings.
func canonicalValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		return t
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	default:
		return v
	}
}
