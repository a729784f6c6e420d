package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notesd/internal/config"
	"github.com/fyrsmithlabs/notesd/internal/logging"
)

// Entity property names in the backing table. PartitionKey is the
// tenant, RowKey the record id.
const (
	propLogicalKey = "logicalKey"
	propText       = "text"
	propCreatedAt  = "createdAt"
)

// TableStore is the durable backend: an adapter over one Azure Storage
// table partitioned by tenant.
//
// The connection is established lazily. Credential strategies are tried
// in order: ambient (DefaultAzureCredential, which covers managed
// identity, workload identity and developer logins), then the explicit
// shared key when configured. A successful connection is verified by an
// idempotent CreateTable and cached for the process lifetime; failed
// attempts are retried on the next call.
type TableStore struct {
	cfg    config.StorageConfig
	logger *logging.Logger

	mu     sync.Mutex
	client *aztables.Client // non-nil once ready
}

// NewTableStore creates the adapter. No connection is attempted until
// the first operation.
func NewTableStore(cfg config.StorageConfig, logger *logging.Logger) *TableStore {
	return &TableStore{
		cfg:    cfg,
		logger: logger.Named("table"),
	}
}

// ensureReady returns the cached table client, connecting first if
// needed. All failures are reported as ErrUnavailable; per-operation
// errors after a successful connection are not routed back here.
func (s *TableStore) ensureReady(ctx context.Context) (*aztables.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}
	if s.cfg.Account == "" {
		return nil, fmt.Errorf("%w: no storage account configured", ErrUnavailable)
	}

	client, err := s.connectAmbient(ctx)
	if err != nil {
		s.logger.Warn(ctx, "ambient credential strategy failed", zap.Error(err))
		client, err = s.connectSharedKey(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.client = client
	s.logger.Info(ctx, "durable store ready",
		zap.String("account", s.cfg.Account),
		zap.String("table", s.cfg.Table))
	return s.client, nil
}

func (s *TableStore) connectAmbient(ctx context.Context) (*aztables.Client, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("default credential: %w", err)
	}
	svc, err := aztables.NewServiceClient(s.cfg.TableURL(), cred, nil)
	if err != nil {
		return nil, fmt.Errorf("service client: %w", err)
	}
	return s.verify(ctx, svc)
}

func (s *TableStore) connectSharedKey(ctx context.Context) (*aztables.Client, error) {
	if s.cfg.Key == "" {
		return nil, errors.New("no shared key configured")
	}
	cred, err := aztables.NewSharedKeyCredential(s.cfg.Account, s.cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("shared key credential: %w", err)
	}
	svc, err := aztables.NewServiceClientWithSharedKey(s.cfg.TableURL(), cred, nil)
	if err != nil {
		return nil, fmt.Errorf("service client: %w", err)
	}
	return s.verify(ctx, svc)
}

// verify proves the connection works with an idempotent table create.
func (s *TableStore) verify(ctx context.Context, svc *aztables.ServiceClient) (*aztables.Client, error) {
	client := svc.NewClient(s.cfg.Table)
	if _, err := client.CreateTable(ctx, nil); err != nil && !isConflict(err) {
		return nil, fmt.Errorf("create table %q: %w", s.cfg.Table, err)
	}
	return client, nil
}

// Upsert writes a record keyed by its unique id.
func (s *TableStore) Upsert(ctx context.Context, tenant string, rec Record) error {
	client, err := s.ensureReady(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(encodeEntity(tenant, rec))
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}
	_, err = client.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{
		UpdateMode: aztables.UpdateModeReplace,
	})
	if err != nil {
		return fmt.Errorf("upsert entity %s: %w", rec.ID, err)
	}
	return nil
}

// QueryGroup returns records whose logical key or id equals key.
//
// Results stream back in server-defined order; callers must not rely
// on any ordering from this method.
func (s *TableStore) QueryGroup(ctx context.Context, tenant, key string) ([]Record, error) {
	filter := fmt.Sprintf("PartitionKey eq '%s' and (%s eq '%s' or RowKey eq '%s')",
		escapeODataString(tenant), propLogicalKey, escapeODataString(key), escapeODataString(key))
	return s.query(ctx, filter)
}

// QueryAll returns every record in the tenant partition.
func (s *TableStore) QueryAll(ctx context.Context, tenant string) ([]Record, error) {
	filter := fmt.Sprintf("PartitionKey eq '%s'", escapeODataString(tenant))
	return s.query(ctx, filter)
}

func (s *TableStore) query(ctx context.Context, filter string) ([]Record, error) {
	client, err := s.ensureReady(ctx)
	if err != nil {
		return nil, err
	}

	var out []Record
	pager := client.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list entities: %w", err)
		}
		for _, raw := range page.Entities {
			rec, err := decodeEntity(raw)
			if err != nil {
				s.logger.Warn(ctx, "skipping undecodable entity", zap.Error(err))
				continue
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

// Delete removes one record by id.
func (s *TableStore) Delete(ctx context.Context, tenant, id string) error {
	client, err := s.ensureReady(ctx)
	if err != nil {
		return err
	}

	if _, err := client.DeleteEntity(ctx, tenant, id, nil); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete entity %s: %w", id, err)
	}
	return nil
}

// encodeEntity maps a record onto a table entity.
func encodeEntity(tenant string, rec Record) aztables.EDMEntity {
	return aztables.EDMEntity{
		Entity: aztables.Entity{
			PartitionKey: tenant,
			RowKey:       rec.ID,
		},
		Properties: map[string]any{
			propLogicalKey: rec.LogicalKey,
			propText:       rec.Text,
			propCreatedAt:  rec.CreatedAt.Format(time.RFC3339Nano),
		},
	}
}

// decodeEntity maps a raw table entity back to a record.
func decodeEntity(raw []byte) (Record, error) {
	var ent aztables.EDMEntity
	if err := json.Unmarshal(raw, &ent); err != nil {
		return Record{}, fmt.Errorf("unmarshal entity: %w", err)
	}

	rec := Record{
		ID:         ent.RowKey,
		LogicalKey: stringProp(ent.Properties, propLogicalKey),
		Text:       stringProp(ent.Properties, propText),
	}
	if rec.ID == "" {
		return Record{}, errors.New("entity missing RowKey")
	}
	if ts := stringProp(ent.Properties, propCreatedAt); ts != "" {
		created, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return Record{}, fmt.Errorf("parse %s: %w", propCreatedAt, err)
		}
		rec.CreatedAt = created
	}
	return rec, nil
}

func stringProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

// escapeODataString escapes single quotes in an OData filter literal.
func escapeODataString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func isConflict(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusConflict
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
