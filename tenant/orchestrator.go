package tenant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// RunFunc performs one tenant's full migration pipeline (§4.A-§4.G
// invoked against that tenant's connection) and returns its report.
type RunFunc func(ctx context.Context, t Tenant) (MigrationRunReport, error)

// Options configures one call to Run.
type Options struct {
	// Parallelism is the bounded concurrency level P ≥ 1 (§4.H). Values
	// below 1 are treated as 1.
	Parallelism int

	// ContinueOnError controls whether a failing tenant aborts the whole
	// batch or is merely recorded and the run proceeds.
	ContinueOnError bool

	// IncludeInactive controls whether Store.GetAll-returned tenants that
	// are inactive are still run. Filtering happens before scheduling.
	IncludeInactive bool

	OnTenantStart     func(tenantID string)
	OnTenantCompleted func(tenantID string, report MigrationRunReport)
}

// AggregateResult is the §4.H aggregate: {totalTenants, succeeded,
// failed, reports, totalDuration}.
type AggregateResult struct {
	TotalTenants int
	Succeeded    int
	Failed       int
	Reports      map[string]MigrationRunReport
	TotalDuration time.Duration
}

// AbortedError is returned when continueOnError is false and a tenant
// failed; it carries the offending tenant id (§8 error taxonomy).
type AbortedError struct {
	TenantID string
	Cause    error
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("migration run aborted at tenant %s: %v", e.TenantID, e.Cause)
}

func (e *AbortedError) Unwrap() error { return e.Cause }

// Run fans run out across tenants with bounded parallelism P. If P == 1
// it iterates sequentially; otherwise it schedules up to P concurrent
// tenant tasks behind a counting semaphore. Cancellation is cooperative:
// ctx cancellation stops pending tasks from starting and is observed by
// in-flight tasks at their next suspension point inside run itself.
func Run(ctx context.Context, tenants []Tenant, opts Options, run RunFunc) (*AggregateResult, error) {
	selected := tenants
	if !opts.IncludeInactive {
		selected = make([]Tenant, 0, len(tenants))
		for _, t := range tenants {
			if t.IsActive {
				selected = append(selected, t)
			}
		}
	}

	p := opts.Parallelism
	if p < 1 {
		p = 1
	}

	result := &AggregateResult{
		TotalTenants: len(selected),
		Reports:      make(map[string]MigrationRunReport, len(selected)),
	}

	start := time.Now()
	defer func() { result.TotalDuration = time.Since(start) }()

	if p == 1 {
		for _, t := range selected {
			if err := runOne(ctx, t, opts, run, result); err != nil {
				return result, err
			}
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
		}
		return result, nil
	}

	sem := semaphore.NewWeighted(int64(p))
	var mu sync.Mutex
	var wg sync.WaitGroup
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var aborted error

	for _, t := range selected {
		if runCtx.Err() != nil {
			break
		}
		if err := sem.Acquire(runCtx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(t Tenant) {
			defer wg.Done()
			defer sem.Release(1)

			mu.Lock()
			locallyAborted := aborted != nil
			mu.Unlock()
			if locallyAborted {
				return
			}

			report, err := runSingle(runCtx, t, opts, run)

			mu.Lock()
			result.Reports[t.TenantID] = report
			if err != nil {
				result.Failed++
				if !opts.ContinueOnError && aborted == nil {
					aborted = &AbortedError{TenantID: t.TenantID, Cause: err}
					cancel()
				}
			} else {
				result.Succeeded++
			}
			mu.Unlock()
		}(t)
	}

	wg.Wait()

	if aborted != nil {
		return result, aborted
	}
	return result, ctx.Err()
}

func runOne(ctx context.Context, t Tenant, opts Options, run RunFunc, result *AggregateResult) error {
	report, err := runSingle(ctx, t, opts, run)
	result.Reports[t.TenantID] = report
	if err != nil {
		result.Failed++
		if !opts.ContinueOnError {
			return &AbortedError{TenantID: t.TenantID, Cause: err}
		}
		return nil
	}
	result.Succeeded++
	return nil
}

func runSingle(ctx context.Context, t Tenant, opts Options, run RunFunc) (MigrationRunReport, error) {
	if opts.OnTenantStart != nil {
		opts.OnTenantStart(t.TenantID)
	}

	start := time.Now()
	report, err := run(ctx, t)
	if report.TenantID == "" {
		report.TenantID = t.TenantID
	}
	if report.Duration == 0 {
		report.Duration = time.Since(start)
	}
	if err != nil {
		report.Err = err
	}

	if opts.OnTenantCompleted != nil {
		opts.OnTenantCompleted(t.TenantID, report)
	}
	return report, err
}
