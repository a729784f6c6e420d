package mcp

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionStore owns the session table: session identifier -> session.
// It is the only component that creates or destroys sessions.
//
// Create registers the session in the table before the caller
// dispatches the request body, so a fast-following request carrying
// the new identifier always finds it. Delete is idempotent.
type SessionStore struct {
	sessions sync.Map // map[string]*Session
	mu       sync.Mutex
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Create allocates a session bound to the given tenant. The session is
// visible in the table before Create returns.
func (s *SessionStore) Create(tenant string, tenantGenerated bool, params InitializeParams) *Session {
	now := time.Now()
	session := &Session{
		ID:              uuid.New().String(),
		Tenant:          tenant,
		TenantGenerated: tenantGenerated,
		ProtocolVersion: negotiateProtocolVersion(params.ProtocolVersion),
		ClientInfo:      params.ClientInfo,
		CreatedAt:       now,
		LastAccessedAt:  now,
	}
	s.sessions.Store(session.ID, session)
	return session
}

// Get retrieves a session by ID, refreshing its last-accessed time.
// Returns nil if the session doesn't exist.
func (s *SessionStore) Get(sessionID string) *Session {
	val, ok := s.sessions.Load(sessionID)
	if !ok {
		return nil
	}
	session, ok := val.(*Session)
	if !ok {
		return nil
	}

	s.mu.Lock()
	session.LastAccessedAt = time.Now()
	s.mu.Unlock()
	return session
}

// Delete removes a session from the table, reporting whether it was
// present. Closing an already-removed entry is a no-op.
func (s *SessionStore) Delete(sessionID string) bool {
	_, existed := s.sessions.LoadAndDelete(sessionID)
	return existed
}

// Len counts the active sessions.
func (s *SessionStore) Len() int {
	n := 0
	s.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// negotiateProtocolVersion negotiates the protocol version between
// client and server, defaulting to the latest supported version when
// the client requests an unsupported one.
func negotiateProtocolVersion(requested string) string {
	supportedVersions := []string{
		"2025-03-26",
		"2024-11-05",
	}

	for _, supported := range supportedVersions {
		if requested == supported {
			return supported
		}
	}
	return supportedVersions[0]
}
