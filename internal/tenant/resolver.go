// Package tenant derives the tenant identifier that scopes every note
// operation to one partition.
//
// A tenant is fixed once per session at session creation and never
// changes for the lifetime of that session. Resolution priority:
// explicit hint from the client, pinned identifier from process
// configuration, then a synthesized random identifier. Synthesized
// tenants are surfaced to the caller so operators know notes are not
// portable across restarts unless pinned.
package tenant

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notesd/internal/logging"
)

// Resolver resolves tenant identifiers for new sessions.
type Resolver struct {
	pinned string
	logger *logging.Logger
}

// NewResolver creates a resolver. pinned may be empty, in which case
// sessions without an explicit hint get a synthesized tenant.
func NewResolver(pinned string, logger *logging.Logger) *Resolver {
	return &Resolver{
		pinned: Sanitize(pinned),
		logger: logger,
	}
}

// Resolve fixes the tenant for a new session. generated is true when
// the identifier was synthesized rather than supplied or pinned.
//
// Resolve never fails: an unusable hint (empty after sanitizing) falls
// through to the next strategy.
func (r *Resolver) Resolve(ctx context.Context, hint string) (id string, generated bool) {
	if s := Sanitize(hint); s != "" {
		r.logger.Debug(ctx, "tenant adopted from client hint", zap.String("tenant", s))
		return s, false
	}

	if r.pinned != "" {
		r.logger.Debug(ctx, "tenant adopted from pinned configuration", zap.String("tenant", r.pinned))
		return r.pinned, false
	}

	id = "user-" + uuid.NewString()
	r.logger.Info(ctx, "tenant synthesized for session; notes will not survive restarts unless a tenant is pinned",
		zap.String("tenant", id))
	return id, true
}

// Sanitize normalizes an identifier for use as a partition key. Keeps
// lowercase alphanumerics, hyphens and underscores; everything else is
// dropped. Returns "" when nothing usable remains.
func Sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
