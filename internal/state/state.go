package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// InstanceRecord is the persisted view of one live instance: enough to tear
// it down and to revoke the exact secret path that holds its credential.
type InstanceRecord struct {
	Key        string    `json:"key"`
	Group      string    `json:"group"`
	Name       string    `json:"name"`
	Provider   string    `json:"provider"`
	InstanceID string    `json:"instance_id"`
	Zone       string    `json:"zone"`
	PrivateIP  string    `json:"private_ip"`
	PublicIP   string    `json:"public_ip"`
	SecretPath string    `json:"secret_path"`
	Phase      string    `json:"phase"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists run state across deploy and destroy runs.
type Store interface {
	Save(ctx context.Context, rec InstanceRecord) error
	Get(ctx context.Context, name string) (InstanceRecord, bool, error)
	List(ctx context.Context) ([]InstanceRecord, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// fileState is the JSON document a FileStore writes.
type fileState struct {
	CreatedAt time.Time                 `json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`
	Instances map[string]InstanceRecord `json:"instances"`
}

// FileStore persists instance records in a single JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() (*fileState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &fileState{
			CreatedAt: time.Now(),
			Instances: make(map[string]InstanceRecord),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if st.Instances == nil {
		st.Instances = make(map[string]InstanceRecord)
	}
	return &st, nil
}

func (s *FileStore) save(st *fileState) error {
	st.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	return os.WriteFile(s.path, data, 0600)
}

// Save writes or replaces the record for rec.Name.
func (s *FileStore) Save(ctx context.Context, rec InstanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	st.Instances[rec.Name] = rec
	return s.save(st)
}

// Get returns the record for name, if present.
func (s *FileStore) Get(ctx context.Context, name string) (InstanceRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return InstanceRecord{}, false, err
	}
	rec, ok := st.Instances[name]
	return rec, ok, nil
}

// List returns all records sorted by name for stable output.
func (s *FileStore) List(ctx context.Context) ([]InstanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}

	records := make([]InstanceRecord, 0, len(st.Instances))
	for _, rec := range st.Instances {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

// Delete removes the record for name. Deleting a missing record is a no-op.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	delete(st.Instances, name)
	return s.save(st)
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }
