package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_AddOrUpdateThenGetAll(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.AddOrUpdate(Tenant{TenantID: "acme", IsActive: true}))
	require.NoError(t, s.AddOrUpdate(Tenant{TenantID: "globex", IsActive: false}))

	all, err := s.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryStore_GetExcludesInactiveByDefault(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.AddOrUpdate(Tenant{TenantID: "globex", IsActive: false}))

	_, err := s.Get("globex", false)
	assert.Error(t, err)

	got, err := s.Get("globex", true)
	require.NoError(t, err)
	assert.Equal(t, "globex", got.TenantID)
}

func TestMemoryStore_GetUnknownTenantErrors(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get("nope", true)
	assert.Error(t, err)
}

func TestMemoryStore_AddOrUpdateRejectsEmptyID(t *testing.T) {
	s := NewMemoryStore()
	assert.Error(t, s.AddOrUpdate(Tenant{}))
}
