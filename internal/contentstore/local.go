package contentstore

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed local_schema.json
var localSchemaJSON []byte

var localSchema = jsonschema.MustCompileString("local_schema.json", string(localSchemaJSON))

// LocalStore persists records in a single JSON object file keyed by id.
// Every write rewrites the whole file, so it is meant for small histories.
type LocalStore struct {
	path string
	mu   sync.Mutex
}

// NewLocalStore opens the store at path, creating the parent directory and
// an empty "{}" file if none exists.
func NewLocalStore(path string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeFileAtomic(path, []byte("{}")); err != nil {
			return nil, fmt.Errorf("initialize store file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat store file: %w", err)
	}

	return &LocalStore{path: path}, nil
}

// Path returns the backing file path.
func (s *LocalStore) Path() string {
	return s.path
}

// Put inserts or overwrites the record stored under id.
func (s *LocalStore) Put(id string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	records[id] = rec

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

// Get returns the record stored under id. ok is false when the id is absent.
func (s *LocalStore) Get(id string) (rec Record, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return Record{}, false, err
	}
	rec, ok = records[id]
	if ok {
		rec.ID = id
	}
	return rec, ok, nil
}

// List returns up to limit records, newest first. limit <= 0 returns all.
func (s *LocalStore) List(limit int) ([]Record, error) {
	s.mu.Lock()
	records, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(records))
	for id, rec := range records {
		rec.ID = id
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].ID > out[j].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// load reads and validates the whole file. Callers hold s.mu.
func (s *LocalStore) load() (map[string]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]Record), nil
		}
		return nil, fmt.Errorf("read store: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return make(map[string]Record), nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	if err := localSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}

	records := make(map[string]Record)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	return records, nil
}

// writeFileAtomic writes data to a temp file beside path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
