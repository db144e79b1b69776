package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"amoebius/internal/logging"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const instancePrefix = "/amoebius/instances/"

// EtcdStore persists instance records in etcd, one key per instance.
type EtcdStore struct {
	client *clientv3.Client
}

// NewEtcdStore connects to etcd at the given endpoints.
func NewEtcdStore(endpoints []string) (*EtcdStore, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}
	return &EtcdStore{client: cli}, nil
}

// Save writes or replaces the record for rec.Name.
func (s *EtcdStore) Save(ctx context.Context, rec InstanceRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal instance record: %w", err)
	}
	if _, err := s.client.Put(ctx, instancePrefix+rec.Name, string(data)); err != nil {
		return fmt.Errorf("failed to save instance record to etcd: %w", err)
	}
	return nil
}

// Get returns the record for name, if present.
func (s *EtcdStore) Get(ctx context.Context, name string) (InstanceRecord, bool, error) {
	resp, err := s.client.Get(ctx, instancePrefix+name)
	if err != nil {
		return InstanceRecord{}, false, fmt.Errorf("failed to get instance record from etcd: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return InstanceRecord{}, false, nil
	}

	var rec InstanceRecord
	if err := json.Unmarshal(resp.Kvs[0].Value, &rec); err != nil {
		return InstanceRecord{}, false, fmt.Errorf("failed to unmarshal instance record: %w", err)
	}
	return rec, true, nil
}

// List returns all records under the instance prefix in key order.
func (s *EtcdStore) List(ctx context.Context) ([]InstanceRecord, error) {
	resp, err := s.client.Get(ctx, instancePrefix, clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, fmt.Errorf("failed to list instance records from etcd: %w", err)
	}

	records := make([]InstanceRecord, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var rec InstanceRecord
		if err := json.Unmarshal(kv.Value, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal instance record %s: %w", kv.Key, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Delete removes the record for name.
func (s *EtcdStore) Delete(ctx context.Context, name string) error {
	if _, err := s.client.Delete(ctx, instancePrefix+name); err != nil {
		return fmt.Errorf("failed to delete instance record from etcd: %w", err)
	}
	return nil
}

// Close closes the etcd client.
func (s *EtcdStore) Close() error {
	return s.client.Close()
}

// NewStore selects the state backend: etcd when endpoints are configured and
// reachable, otherwise the local file store.
func NewStore(path string, etcdEndpoints []string) Store {
	if len(etcdEndpoints) == 0 {
		return NewFileStore(path)
	}

	store, err := NewEtcdStore(etcdEndpoints)
	if err != nil {
		logging.Logger().Warn("failed to connect to etcd, falling back to file state store",
			zap.Error(err))
		return NewFileStore(path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := store.client.Get(ctx, instancePrefix); err != nil {
		logging.Logger().Warn("etcd connection test failed, falling back to file state store",
			zap.Error(err))
		if closeErr := store.Close(); closeErr != nil {
			logging.Logger().Warn("failed to close etcd client", zap.Error(closeErr))
		}
		return NewFileStore(path)
	}

	logging.Logger().Info("using etcd state store",
		zap.Strings("endpoints", etcdEndpoints))
	return store
}
