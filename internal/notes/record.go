// Package notes implements the partitioned note store: one durable
// backend (Azure Table Storage), one transient in-process backend, and
// a repository façade that silently falls back from the first to the
// second per call.
package notes

import (
	"time"

	"github.com/google/uuid"
)

// DefaultKey is the logical key used when a caller omits one.
const DefaultKey = "default"

// Record is a single stored note. ID and CreatedAt are assigned at
// creation and immutable.
type Record struct {
	ID         string    `json:"id"`
	LogicalKey string    `json:"logicalKey"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Group is the materialized set of records sharing one logical key,
// ordered newest-first. Groups are computed on read, never stored.
type Group struct {
	Key     string   `json:"key"`
	Records []Record `json:"records"`
}

// NewRecord creates a record with a fresh unique id and the current
// timestamp. An empty key becomes DefaultKey.
func NewRecord(key, text string) Record {
	return Record{
		ID:         uuid.NewString(),
		LogicalKey: NormalizeKey(key),
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}
}

// NormalizeKey maps an omitted logical key to the default sentinel.
func NormalizeKey(key string) string {
	if key == "" {
		return DefaultKey
	}
	return key
}
