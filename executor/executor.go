// Package executor applies a planner.Plan against a live database: it
// splits the rendered script back into GO batches, runs each inside a
// transaction, and records the attempt in a migration-history table
// keyed by content hash for idempotence (§4.G).
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridian-db/meridian/dialect"
	"github.com/meridian-db/meridian/diff"
	"github.com/meridian-db/meridian/entity"
	"github.com/meridian-db/meridian/planner"
	"github.com/meridian-db/meridian/safety"
)

// Mode selects one of §4.G's five execution modes.
type Mode string

const (
	// ModeDryRun renders the script without touching the target database
	// at all.
	ModeDryRun Mode = "dry-run"
	// ModePreview renders the script plus the safety analysis and impact
	// diff without executing anything.
	ModePreview Mode = "preview"
	// ModeInteractive executes batch by batch, calling StepFunc before
	// each one so a caller can prompt for Execute/Skip/Quit.
	ModeInteractive Mode = "interactive"
	// ModeAutoMerge executes immediately, but only when the plan's safety
	// analysis reports no unsafe statements at all.
	ModeAutoMerge Mode = "auto-merge"
	// ModeImpactAnalysis runs the same diff/safety analysis as preview and
	// additionally renders a report artifact (Markdown or HTML).
	ModeImpactAnalysis Mode = "impact-analysis"
)

// StepDecision is what an interactive StepFunc returns for one batch.
type StepDecision int

const (
	StepExecute StepDecision = iota
	StepSkip
	StepQuit
)

// StepFunc is called once per batch in ModeInteractive, before the batch
// runs, so a caller (CLI prompt, TUI) can decide its fate.
type StepFunc func(batch planner.Batch, batchIndex, batchCount int) StepDecision

// ExecuteOptions configures one call to Execute.
type ExecuteOptions struct {
	Mode Mode

	// GroupLabel tags the history row, e.g. a migration run identifier
	// shared across every entity applied in the same invocation.
	GroupLabel string

	// OldEntity/NewEntity feed the diff and safety analyses for preview,
	// auto-merge, and impact-analysis modes. OldEntity may be nil for a
	// brand-new table.
	OldEntity *entity.Definition
	NewEntity *entity.Definition

	// ExcludedColumns is forwarded to safety.Analyze — the columns
	// participating in an active primary-key migration (§4.E.2).
	ExcludedColumns map[string]bool

	// Tx lets a caller fold this Execute call into a transaction it
	// already owns (e.g. a multi-entity run wrapped in one transaction).
	// When set, Execute neither commits nor rolls it back — that is the
	// caller's responsibility. When nil, Execute opens and manages its
	// own transaction for the whole plan.
	Tx *sql.Tx

	// OnStep is required in ModeInteractive.
	OnStep StepFunc

	// ReportFormat selects "markdown" or "html" for ModeImpactAnalysis.
	ReportFormat string

	// SnapshotDir, when set, receives one JSON file per applied version
	// named "<contentHash>.json" (§6, §8.2), in addition to the copy
	// already stored in the history row's snapshot column.
	SnapshotDir string

	// Logger receives one line per lifecycle event (idempotence skip,
	// batch run, batch skip, applied, failed) when set. nil disables
	// logging entirely (§6's logToFile is opt-in).
	Logger *slog.Logger
}

// logger returns opts.Logger, or slog.Default's "discard" equivalent when
// unset, so call sites never need a nil check.
func (opts ExecuteOptions) logger() *slog.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// ExecutionResult is what Execute returns regardless of mode; fields not
// relevant to the chosen mode are left zero.
type ExecutionResult struct {
	Mode           Mode
	Script         string
	BatchesRun     int
	BatchesSkipped int
	Applied        bool
	Skipped        bool // true when idempotence short-circuited a rerun
	Safety         *safety.MigrationSafetyResult
	Impact         []diff.ImpactItem
	Report         string
	Duration       time.Duration
	HistoryID      string
}

// Executor applies plans against one schema in one database.
type Executor struct {
	db           *sql.DB
	dialect      dialect.Adapter
	schema       string
	historyTable string
}

// NewExecutor builds an Executor against db, scoped to schema, using the
// default migration-history table name.
func NewExecutor(db *sql.DB, d dialect.Adapter, schema string) *Executor {
	return &Executor{
		db:           db,
		dialect:      d,
		schema:       schema,
		historyTable: DefaultHistoryTable,
	}
}

// WithHistoryTable overrides the migration-history table name.
func (e *Executor) WithHistoryTable(name string) *Executor {
	e.historyTable = name
	return e
}

// Execute applies plan according to opts.Mode (§4.G).
func (e *Executor) Execute(ctx context.Context, plan *planner.Plan, opts ExecuteOptions) (*ExecutionResult, error) {
	result := &ExecutionResult{
		Mode:   opts.Mode,
		Script: plan.Script(),
	}

	if opts.OldEntity != nil || opts.NewEntity != nil {
		oldE := opts.OldEntity
		if oldE == nil {
			oldE = &entity.Definition{}
		}
		newE := opts.NewEntity
		if newE == nil {
			newE = &entity.Definition{}
		}
		result.Impact = diff.Diff(oldE, newE)
	}

	if opts.Mode == ModePreview || opts.Mode == ModeAutoMerge || opts.Mode == ModeImpactAnalysis {
		sr := safety.Analyze(plan, opts.ExcludedColumns)
		result.Safety = &sr
	}

	switch opts.Mode {
	case ModeDryRun:
		return result, nil

	case ModePreview:
		return result, nil

	case ModeImpactAnalysis:
		result.Report = renderImpactReport(plan, result.Impact, *result.Safety, opts.ReportFormat)
		return result, nil

	case ModeAutoMerge:
		if !result.Safety.IsSafe {
			return result, fmt.Errorf("auto-merge refused: plan contains unsafe statements: %v", result.Safety.Reasons)
		}
		return e.run(ctx, plan, opts, result, nil)

	case ModeInteractive:
		if opts.OnStep == nil {
			return nil, fmt.Errorf("interactive execution requires OnStep")
		}
		return e.run(ctx, plan, opts, result, opts.OnStep)

	default:
		return e.run(ctx, plan, opts, result, nil)
	}
}

// run performs the actual idempotence check, history bookkeeping, and
// transactional batch execution shared by the "really do it" modes.
func (e *Executor) run(ctx context.Context, plan *planner.Plan, opts ExecuteOptions, result *ExecutionResult, step StepFunc) (*ExecutionResult, error) {
	log := opts.logger().With("schema", e.schema, "entity", plan.Entity, "version", plan.SourceHash)

	if err := e.dialectEnsureSchema(ctx); err != nil {
		return nil, err
	}
	if err := e.ensureHistoryTable(ctx); err != nil {
		return nil, err
	}

	newEntityForHash := opts.NewEntity
	if newEntityForHash == nil {
		newEntityForHash = &entity.Definition{Name: plan.Entity}
	}

	alreadyApplied, err := e.findAppliedByHash(ctx, plan.SourceHash)
	if err != nil {
		return nil, err
	}
	if alreadyApplied {
		log.InfoContext(ctx, "skip: version already applied")
		result.Skipped = true
		return result, nil
	}

	historyID, err := e.insertPending(ctx, newEntityForHash, plan.SourceHash, opts.GroupLabel)
	if err != nil {
		return nil, err
	}
	result.HistoryID = historyID
	log.InfoContext(ctx, "start", "batches", len(plan.Batches), "historyID", historyID)

	start := time.Now()
	runErr := e.runBatches(ctx, plan, opts, result, step)
	duration := time.Since(start)
	result.Duration = duration

	if runErr != nil {
		log.ErrorContext(ctx, "failed", "error", runErr, "durationMs", duration.Milliseconds())
		if markErr := e.markFailed(ctx, historyID, runErr); markErr != nil {
			return result, fmt.Errorf("%w (and failed to record failure: %v)", runErr, markErr)
		}
		return result, runErr
	}

	if err := e.markApplied(ctx, historyID, newEntityForHash, duration); err != nil {
		return result, err
	}
	if err := writeSnapshotFile(opts.SnapshotDir, plan.SourceHash, newEntityForHash); err != nil {
		return result, err
	}
	result.Applied = true
	log.InfoContext(ctx, "applied", "batchesRun", result.BatchesRun, "batchesSkipped", result.BatchesSkipped, "durationMs", duration.Milliseconds())
	return result, nil
}

// runBatches executes plan's batches in order inside a transaction,
// honoring a caller-supplied *sql.Tx if present (in which case this
// method never commits or rolls it back).
func (e *Executor) runBatches(ctx context.Context, plan *planner.Plan, opts ExecuteOptions, result *ExecutionResult, step StepFunc) error {
	log := opts.logger().With("schema", e.schema, "entity", plan.Entity, "version", plan.SourceHash)

	tx := opts.Tx
	ownTx := false
	if tx == nil {
		var err error
		tx, err = e.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		ownTx = true
	}

	for i, batch := range plan.Batches {
		if step != nil {
			switch step(batch, i, len(plan.Batches)) {
			case StepSkip:
				log.InfoContext(ctx, "batch skipped", "batch", batch.Name, "index", i)
				result.BatchesSkipped++
				continue
			case StepQuit:
				if ownTx {
					_ = tx.Rollback()
				}
				log.WarnContext(ctx, "execution stopped by user", "batch", batch.Name, "index", i)
				return fmt.Errorf("execution stopped by user before batch %d/%d", i+1, len(plan.Batches))
			}
		}

		for _, stmt := range batch.Statements {
			if stmt.IsSkip {
				continue
			}
			if _, err := tx.ExecContext(ctx, stmt.SQL); err != nil {
				if ownTx {
					_ = tx.Rollback()
				}
				return fmt.Errorf("batch %q (%s): %w", batch.Name, stmt.Description, err)
			}
		}
		log.InfoContext(ctx, "batch run", "batch", batch.Name, "index", i)
		result.BatchesRun++
	}

	if ownTx {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
	}
	return nil
}

func (e *Executor) dialectEnsureSchema(ctx context.Context) error {
	_, err := e.db.ExecContext(ctx, e.dialect.SchemaCreateIfMissing(e.schema))
	if err != nil {
		return fmt.Errorf("ensure schema %s: %w", e.schema, err)
	}
	return nil
}
