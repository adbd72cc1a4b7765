package file

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

const fileName = "config.toml"

// ConfigStore keeps the polyrag settings file. Keys are exposed in dot
// notation and written back as nested TOML tables.
type ConfigStore struct {
	mu   sync.RWMutex
	path string
	data map[string]any
}

// NewConfigStore opens config.toml inside dir, creating dir if needed.
// An empty dir means ~/.polyrag.
func NewConfigStore(dir string) (*ConfigStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".polyrag")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return NewConfigStoreAt(filepath.Join(dir, fileName))
}

// NewConfigStoreAt opens the settings file at path. The parent directory
// must exist; the file itself may not.
func NewConfigStoreAt(path string) (*ConfigStore, error) {
	s := &ConfigStore{path: path, data: map[string]any{}}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the stored value for key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// All returns a copy of every stored key.
func (s *ConfigStore) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data)
}

// Set stores value under key and rewrites the file. The in-memory state is
// left unchanged when the write fails.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.data)
	next[key] = value
	return s.commit(next)
}

// Unset removes key and the keys nested under it, then rewrites the file.
func (s *ConfigStore) Unset(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.data)
	removed := false
	for k := range next {
		if k == key || strings.HasPrefix(k, key+".") {
			delete(next, k)
			removed = true
		}
	}
	if !removed {
		return nil
	}
	return s.commit(next)
}

// Load re-reads the file. A missing file is an empty configuration.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.data = map[string]any{}
		return nil
	}
	if err != nil {
		return err
	}

	var tree map[string]any
	if err := toml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	s.data = flattenMap(tree, "")
	return nil
}

// Path returns the settings file location.
func (s *ConfigStore) Path() string {
	return s.path
}

// commit writes next to disk and makes it current. Callers hold s.mu.
// The file is replaced through a rename so readers never see a partial write.
func (s *ConfigStore) commit(next map[string]any) error {
	raw, err := toml.Marshal(unflattenMap(next))
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+fileName+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return err
	}
	s.data = next
	return nil
}

// flattenMap turns nested tables into dot-notation keys.
func flattenMap(tree map[string]any, prefix string) map[string]any {
	out := make(map[string]any)
	for k, v := range tree {
		if prefix != "" {
			k = prefix + "." + k
		}
		if table, ok := v.(map[string]any); ok {
			maps.Copy(out, flattenMap(table, k))
			continue
		}
		out[k] = v
	}
	return out
}

// unflattenMap rebuilds nested tables from dot-notation keys. A scalar that
// collides with a table of the same name is dropped in favour of the table.
func unflattenMap(flat map[string]any) map[string]any {
	root := make(map[string]any)
	for key, v := range flat {
		parts := strings.Split(key, ".")
		node := root
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[p] = child
			}
			node = child
		}
		leaf := parts[len(parts)-1]
		if _, table := node[leaf].(map[string]any); table {
			continue
		}
		node[leaf] = v
	}
	return root
}
