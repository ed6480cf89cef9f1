package tenant

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureTenants(n int) []Tenant {
	out := make([]Tenant, n)
	for i := range out {
		out[i] = Tenant{TenantID: fmt.Sprintf("tenant-%d", i), IsActive: true}
	}
	return out
}

func TestRun_SequentialSucceedsForAllTenants(t *testing.T) {
	tenants := fixtureTenants(3)
	result, err := Run(context.Background(), tenants, Options{Parallelism: 1}, func(ctx context.Context, tn Tenant) (MigrationRunReport, error) {
		return MigrationRunReport{MigrationsApplied: true}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalTenants)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
}

func TestRun_InactiveTenantsAreExcludedByDefault(t *testing.T) {
	tenants := []Tenant{
		{TenantID: "active", IsActive: true},
		{TenantID: "inactive", IsActive: false},
	}
	result, err := Run(context.Background(), tenants, Options{Parallelism: 1}, func(ctx context.Context, tn Tenant) (MigrationRunReport, error) {
		return MigrationRunReport{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalTenants)
}

func TestRun_SequentialAbortsOnFirstFailureByDefault(t *testing.T) {
	tenants := fixtureTenants(3)
	var ran []string
	var mu sync.Mutex
	result, err := Run(context.Background(), tenants, Options{Parallelism: 1}, func(ctx context.Context, tn Tenant) (MigrationRunReport, error) {
		mu.Lock()
		ran = append(ran, tn.TenantID)
		mu.Unlock()
		if tn.TenantID == "tenant-1" {
			return MigrationRunReport{}, fmt.Errorf("boom")
		}
		return MigrationRunReport{}, nil
	})
	require.Error(t, err)
	var aborted *AbortedError
	require.ErrorAs(t, err, &aborted)
	assert.Equal(t, "tenant-1", aborted.TenantID)
	assert.Equal(t, []string{"tenant-0", "tenant-1"}, ran)
	assert.Equal(t, 1, result.Failed)
}

func TestRun_ContinueOnErrorRunsEveryTenantAndAggregates(t *testing.T) {
	tenants := fixtureTenants(3)
	result, err := Run(context.Background(), tenants, Options{Parallelism: 2, ContinueOnError: true}, func(ctx context.Context, tn Tenant) (MigrationRunReport, error) {
		if tn.TenantID == "tenant-1" {
			return MigrationRunReport{}, fmt.Errorf("boom")
		}
		return MigrationRunReport{MigrationsApplied: true}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, result.Reports, 3)
	assert.Error(t, result.Reports["tenant-1"].Err)
}

func TestRun_LifecycleCallbacksFireForEveryTenant(t *testing.T) {
	tenants := fixtureTenants(2)
	var mu sync.Mutex
	var started, completed []string
	opts := Options{
		Parallelism: 2,
		OnTenantStart: func(id string) {
			mu.Lock()
			started = append(started, id)
			mu.Unlock()
		},
		OnTenantCompleted: func(id string, report MigrationRunReport) {
			mu.Lock()
			completed = append(completed, id)
			mu.Unlock()
		},
	}
	_, err := Run(context.Background(), tenants, opts, func(ctx context.Context, tn Tenant) (MigrationRunReport, error) {
		return MigrationRunReport{}, nil
	})
	require.NoError(t, err)
	assert.Len(t, started, 2)
	assert.Len(t, completed, 2)
}

func TestRun_ParallelContinueOnErrorNeverExceedsParallelismBound(t *testing.T) {
	tenants := fixtureTenants(6)
	var mu sync.Mutex
	current, peak := 0, 0
	_, err := Run(context.Background(), tenants, Options{Parallelism: 2, ContinueOnError: true}, func(ctx context.Context, tn Tenant) (MigrationRunReport, error) {
		mu.Lock()
		current++
		if current > peak {
			peak = current
		}
		mu.Unlock()

		mu.Lock()
		current--
		mu.Unlock()
		return MigrationRunReport{}, nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, 2)
}
