package executor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-db/meridian/entity"
)

// HistoryStatus is the lifecycle state of one migration-history row.
type HistoryStatus string

const (
	HistoryPending HistoryStatus = "pending"
	HistoryApplied HistoryStatus = "applied"
	HistoryFailed  HistoryStatus = "failed"
)

// DefaultHistoryTable is the table name used when the caller doesn't
// override it via WithHistoryTable.
const DefaultHistoryTable = "__meridian_migration_history"

// ensureHistoryTable creates the migration-history table if it doesn't
// already exist. It is schema-qualified like everything else the
// executor touches.
func (e *Executor) ensureHistoryTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`IF NOT EXISTS (SELECT 1 FROM sys.tables t JOIN sys.schemas s ON t.schema_id = s.schema_id WHERE s.name = N'%s' AND t.name = N'%s')
EXEC('CREATE TABLE %s.%s (
  id UNIQUEIDENTIFIER NOT NULL PRIMARY KEY,
  entity_name NVARCHAR(256) NOT NULL,
  content_hash CHAR(64) NOT NULL,
  status NVARCHAR(20) NOT NULL,
  group_label NVARCHAR(256) NULL,
  snapshot NVARCHAR(MAX) NULL,
  error_message NVARCHAR(MAX) NULL,
  duration_ms BIGINT NULL,
  created_at DATETIME2 NOT NULL,
  updated_at DATETIME2 NOT NULL
)')`, e.schema, e.historyTable, e.schema, e.historyTable)
	_, err := e.db.ExecContext(ctx, ddl)
	if err != nil {
		return fmt.Errorf("ensure migration history table: %w", err)
	}
	return nil
}

// findAppliedByHash implements §4.G's idempotence short-circuit: if a row
// with this content hash is already `applied`, the executor returns
// early without doing any work.
func (e *Executor) findAppliedByHash(ctx context.Context, contentHash string) (bool, error) {
	row := e.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(1) FROM %s.%s WHERE content_hash = @p1 AND status = @p2`, e.schema, e.historyTable),
		contentHash, string(HistoryApplied))
	var count int
	if err := row.Scan(&count); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check migration history: %w", err)
	}
	return count > 0, nil
}

// insertPending records a new pending row and returns its id.
func (e *Executor) insertPending(ctx context.Context, def *entity.Definition, contentHash, groupLabel string) (string, error) {
	id := uuid.NewString()
	snapshot, err := json.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	now := time.Now().UTC()
	_, err = e.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s.%s (id, entity_name, content_hash, status, group_label, snapshot, created_at, updated_at) VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p7)`, e.schema, e.historyTable),
		id, def.Name, contentHash, string(HistoryPending), groupLabel, string(snapshot), now)
	if err != nil {
		return "", fmt.Errorf("insert migration history row: %w", err)
	}
	return id, nil
}

// markApplied updates a history row to applied with its duration and a
// refreshed snapshot.
func (e *Executor) markApplied(ctx context.Context, id string, def *entity.Definition, duration time.Duration) error {
	snapshot, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = e.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s.%s SET status = @p1, snapshot = @p2, duration_ms = @p3, updated_at = @p4 WHERE id = @p5`, e.schema, e.historyTable),
		string(HistoryApplied), string(snapshot), duration.Milliseconds(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark migration history applied: %w", err)
	}
	return nil
}

// markFailed updates a history row to failed with the error message.
func (e *Executor) markFailed(ctx context.Context, id string, cause error) error {
	_, err := e.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s.%s SET status = @p1, error_message = @p2, updated_at = @p3 WHERE id = @p4`, e.schema, e.historyTable),
		string(HistoryFailed), cause.Error(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark migration history failed: %w", err)
	}
	return nil
}
