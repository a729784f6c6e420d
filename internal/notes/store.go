package notes

import (
	"context"
	"errors"
)

// Sentinel errors for store operations.
var (
	// ErrUnavailable is returned when the durable backend cannot be
	// reached or no credential strategy succeeds.
	ErrUnavailable = errors.New("durable store unavailable")

	// ErrNotFound is returned by Delete when no record has the given id.
	// Callers treat it as non-fatal.
	ErrNotFound = errors.New("record not found")
)

// Store is the capability set shared by the durable and transient
// backends. Every operation is scoped to exactly one tenant partition;
// no operation may read or write outside its partition.
//
// QueryGroup matches records whose logical key equals key OR whose id
// equals key. The id match is legacy compatibility for callers that
// look a note up by its unique id.
type Store interface {
	// Upsert writes a record keyed by its unique id.
	Upsert(ctx context.Context, tenant string, rec Record) error

	// QueryGroup returns all records matching the logical key or id.
	// An absent key yields an empty slice, not an error.
	QueryGroup(ctx context.Context, tenant, key string) ([]Record, error)

	// QueryAll returns every record in the tenant partition.
	QueryAll(ctx context.Context, tenant string) ([]Record, error)

	// Delete removes one record by id. Returns ErrNotFound when no
	// such record exists.
	Delete(ctx context.Context, tenant, id string) error
}
