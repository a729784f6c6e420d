package notes

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notesd/internal/logging"
)

// Repository unifies the durable and transient stores behind one
// contract with a single governing failure policy: every public
// operation runs against the durable store first, and retries once
// against the transient store when the durable path fails for any
// reason. Exactly one backend services a given call; divergent state
// between the two is never reconciled.
//
// Failover is per call, not sticky. A call that fell back does not put
// the repository in a degraded mode; the next call attempts the
// durable path again. The trade-off is documented, not hidden: notes
// written during an outage of the durable backend live only in the
// transient store and are lost on restart.
//
// The repository owns no state of its own and is safe for concurrent
// use as long as both stores are.
type Repository struct {
	durable   Store
	transient Store
	logger    *logging.Logger
	metrics   *Metrics
}

// NewRepository creates the façade. metrics may be nil.
func NewRepository(durable, transient Store, logger *logging.Logger, metrics *Metrics) *Repository {
	return &Repository{
		durable:   durable,
		transient: transient,
		logger:    logger.Named("repository"),
		metrics:   metrics,
	}
}

// execute is the failover decorator applied uniformly to every public
// operation. fn must be restartable: when the durable attempt fails it
// runs again, from scratch, against the transient store. Transient
// failures are logged and swallowed; callers never see a storage error.
func (r *Repository) execute(ctx context.Context, op string, fn func(ctx context.Context, s Store) error) {
	err := fn(ctx, r.durable)
	if err == nil {
		r.count(op, "durable")
		return
	}

	r.logger.Warn(ctx, "durable store failed, serving call from transient store",
		zap.String("operation", op),
		zap.Error(err))
	r.fellBack(op)

	if err := fn(ctx, r.transient); err != nil {
		// Cannot happen by construction for the in-process store, but
		// log rather than lose the signal if it ever does.
		r.logger.Error(ctx, "transient store failed",
			zap.String("operation", op),
			zap.Error(err))
		return
	}
	r.count(op, "transient")
}

// Add stores a new note. Always succeeds from the caller's point of
// view; the created record is returned for response rendering.
func (r *Repository) Add(ctx context.Context, tenant, key, text string) Record {
	rec := NewRecord(key, text)
	r.execute(ctx, "add", func(ctx context.Context, s Store) error {
		return s.Upsert(ctx, tenant, rec)
	})
	return rec
}

// GetLatest returns the newest record matching the logical key (or,
// for legacy callers, the record whose id equals key), or nil when
// none exists.
//
// Ties on CreatedAt are broken by whichever record is encountered last
// during the scan. On the durable path records stream in
// server-defined order, so tie-breaking there is not deterministic.
func (r *Repository) GetLatest(ctx context.Context, tenant, key string) *Record {
	var out *Record
	r.execute(ctx, "get_latest", func(ctx context.Context, s Store) error {
		out = nil
		recs, err := s.QueryGroup(ctx, tenant, NormalizeKey(key))
		if err != nil {
			return err
		}
		for i := range recs {
			if out == nil || !recs[i].CreatedAt.Before(out.CreatedAt) {
				out = &recs[i]
			}
		}
		return nil
	})
	return out
}

// ListGrouped returns all records in the partition grouped by logical
// key: keys sorted lexicographically, records within a group sorted
// newest-first.
func (r *Repository) ListGrouped(ctx context.Context, tenant string) []Group {
	var out []Group
	r.execute(ctx, "list_grouped", func(ctx context.Context, s Store) error {
		out = nil
		recs, err := s.QueryAll(ctx, tenant)
		if err != nil {
			return err
		}
		out = groupRecords(recs)
		return nil
	})
	return out
}

// RemoveByKey deletes every record in the logical group, not just the
// newest. Returns true when at least one record was deleted.
func (r *Repository) RemoveByKey(ctx context.Context, tenant, key string) bool {
	return r.removeGroup(ctx, tenant, NormalizeKey(key)) > 0
}

// RemoveAll deletes every record in the partition and returns the
// number deleted. Implemented as "list grouped keys, then remove each
// group": not atomic, and a crash mid-sequence leaves a partial
// deletion.
func (r *Repository) RemoveAll(ctx context.Context, tenant string) int {
	deleted := 0
	for _, group := range r.ListGrouped(ctx, tenant) {
		deleted += r.removeGroup(ctx, tenant, group.Key)
	}
	return deleted
}

// removeGroup deletes all records matching key and returns the count.
func (r *Repository) removeGroup(ctx context.Context, tenant, key string) int {
	deleted := 0
	r.execute(ctx, "remove_group", func(ctx context.Context, s Store) error {
		deleted = 0
		recs, err := s.QueryGroup(ctx, tenant, key)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if err := s.Delete(ctx, tenant, rec.ID); err != nil {
				if errors.Is(err, ErrNotFound) {
					// Raced with another deletion; non-fatal.
					continue
				}
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted
}

// groupRecords materializes logical groups from a flat record list.
func groupRecords(recs []Record) []Group {
	byKey := make(map[string][]Record)
	for _, rec := range recs {
		byKey[rec.LogicalKey] = append(byKey[rec.LogicalKey], rec)
	}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]Group, 0, len(keys))
	for _, key := range keys {
		group := byKey[key]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].CreatedAt.After(group[j].CreatedAt)
		})
		out = append(out, Group{Key: key, Records: group})
	}
	return out
}

func (r *Repository) count(op, backend string) {
	if r.metrics != nil {
		r.metrics.Operations.WithLabelValues(op, backend).Inc()
	}
}

func (r *Repository) fellBack(op string) {
	if r.metrics != nil {
		r.metrics.Fallbacks.WithLabelValues(op).Inc()
	}
}
