package mcp

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreCreate(t *testing.T) {
	store := NewSessionStore()

	session := store.Create("user-a", false, InitializeParams{
		ProtocolVersion: "2025-03-26",
		ClientInfo:      ClientInfo{Name: "test-client", Version: "1.0"},
	})

	require.NotNil(t, session)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "user-a", session.Tenant)
	assert.False(t, session.TenantGenerated)
	assert.Equal(t, "2025-03-26", session.ProtocolVersion)
	assert.Equal(t, "test-client", session.ClientInfo.Name)
	assert.False(t, session.CreatedAt.IsZero())

	// Register-before-return: the new identifier is immediately usable.
	assert.Same(t, session, store.Get(session.ID))
}

func TestSessionStoreCreateUniqueIDs(t *testing.T) {
	store := NewSessionStore()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		session := store.Create("user-a", false, InitializeParams{})
		assert.False(t, seen[session.ID], "duplicate session ID %s", session.ID)
		seen[session.ID] = true
	}
	assert.Equal(t, 100, store.Len())
}

func TestSessionStoreGetUnknown(t *testing.T) {
	store := NewSessionStore()
	assert.Nil(t, store.Get("no-such-session"))
}

func TestSessionStoreGetRefreshesLastAccessed(t *testing.T) {
	store := NewSessionStore()
	session := store.Create("user-a", false, InitializeParams{})
	created := session.LastAccessedAt

	time.Sleep(5 * time.Millisecond)
	got := store.Get(session.ID)
	require.NotNil(t, got)
	assert.True(t, got.LastAccessedAt.After(created))
}

func TestSessionStoreDelete(t *testing.T) {
	store := NewSessionStore()
	session := store.Create("user-a", false, InitializeParams{})

	assert.True(t, store.Delete(session.ID))
	assert.Nil(t, store.Get(session.ID))

	// Idempotent close.
	assert.False(t, store.Delete(session.ID))
	assert.False(t, store.Delete("never-existed"))
}

func TestSessionStoreConcurrentAccess(t *testing.T) {
	store := NewSessionStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				session := store.Create(fmt.Sprintf("user-%d", n), false, InitializeParams{})
				require.NotNil(t, store.Get(session.ID))
				if j%2 == 0 {
					store.Delete(session.ID)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 16*25, store.Len())
}

func TestNegotiateProtocolVersion(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		want      string
	}{
		{"latest supported", "2025-03-26", "2025-03-26"},
		{"older supported", "2024-11-05", "2024-11-05"},
		{"unsupported falls back to latest", "1999-01-01", "2025-03-26"},
		{"empty falls back to latest", "", "2025-03-26"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, negotiateProtocolVersion(tt.requested))
		})
	}
}
