// Package executor runs validated statements against PostgreSQL. It does
// no safety checking of its own; statements must come from the validator.
package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"school-query-workers/internal/common/database"
	apperrors "school-query-workers/internal/common/errors"
	"school-query-workers/internal/common/logger"
	"school-query-workers/internal/common/metrics"
	"school-query-workers/internal/models"
)

const (
	DefaultRowLimit = 100
	DefaultTimeout  = 15 * time.Second
)

// Executor runs one statement. The error is reserved for infrastructure
// failures; a statement the database rejects comes back as an unsuccessful
// result.
type Executor interface {
	Execute(ctx context.Context, sql string) (models.ExecutionResult, error)
}

// PostgresExecutor runs each statement in its own read-only transaction.
type PostgresExecutor struct {
	db       *database.PostgresClient
	rowLimit int
	timeout  time.Duration
	logger   logger.Logger
}

func NewPostgresExecutor(db *database.PostgresClient, rowLimit int, timeout time.Duration, log logger.Logger) *PostgresExecutor {
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PostgresExecutor{
		db:       db,
		rowLimit: rowLimit,
		timeout:  timeout,
		logger:   log.With(map[string]interface{}{"component": "executor"}),
	}
}

func (e *PostgresExecutor) Execute(ctx context.Context, stmt string) (models.ExecutionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	tx, err := e.db.BeginReadOnly(ctx, e.timeout)
	if err != nil {
		return models.ExecutionResult{}, apperrors.NewExecutorUnavailableError(fmt.Errorf("begin: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, stmt)
	if err != nil {
		return e.classify(ctx, err)
	}
	defer rows.Close()

	result, err := e.collect(rows)
	if err != nil {
		return e.classify(ctx, err)
	}

	metrics.ExecutedRows.Observe(float64(result.RowCount))
	return result, nil
}

func (e *PostgresExecutor) collect(rows *sql.Rows) (models.ExecutionResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		return models.ExecutionResult{}, fmt.Errorf("query columns: %w", err)
	}

	result := models.ExecutionResult{
		Success: true,
		Columns: columns,
		Rows:    make([]map[string]interface{}, 0),
	}
	for rows.Next() {
		if len(result.Rows) == e.rowLimit {
			result.Truncated = true
			break
		}
		values := make([]interface{}, len(columns))
		scanTargets := make([]interface{}, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return models.ExecutionResult{}, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return models.ExecutionResult{}, fmt.Errorf("iterate rows: %w", err)
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

// classify separates errors raised by the database for this statement from
// failures to reach it at all.
func (e *PostgresExecutor) classify(ctx context.Context, err error) (models.ExecutionResult, error) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() != "08" {
		e.logger.Error("statement failed", map[string]interface{}{
			"code":  string(pqErr.Code),
			"error": pqErr.Message,
		})
		return models.ExecutionResult{Success: false, Error: pqErr.Message}, nil
	}
	if ctx.Err() != nil {
		return models.ExecutionResult{}, apperrors.NewExecutorUnavailableError(fmt.Errorf("query: %w", ctx.Err()))
	}
	return models.ExecutionResult{}, apperrors.NewExecutorUnavailableError(err)
}

func normalizeValue(value interface{}) interface{} {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	case time.Time:
		return typed.Format(time.RFC3339)
	default:
		return typed
	}
}
