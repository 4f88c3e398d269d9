package state

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const fileSuffix = "-updates.json"

// FileStore persists one JSON file per source under a data directory,
// in the layout the dashboard and external consumers read directly.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store rooted at dir. The directory
// is created lazily on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(source string) string {
	return filepath.Join(s.dir, Slug(source)+fileSuffix)
}

// Load reads a source's state file. A missing or corrupt file yields an
// empty state.
func (s *FileStore) Load(source string) (*SourceState, error) {
	data, err := os.ReadFile(s.path(source))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Could not read state for %s: %v", source, err)
		}
		return &SourceState{}, nil
	}

	var st SourceState
	if err := json.Unmarshal(data, &st); err != nil {
		log.Printf("Corrupt state for %s, starting fresh: %v", source, err)
		return &SourceState{}, nil
	}
	return &st, nil
}

// Save writes the state to a temporary file in the same directory and
// renames it into place, so a failed write leaves the previous file
// untouched.
func (s *FileStore) Save(source string, st *SourceState) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &PersistError{Source: source, Err: err}
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return &PersistError{Source: source, Err: err}
	}

	tmp, err := os.CreateTemp(s.dir, "."+Slug(source)+"-*.tmp")
	if err != nil {
		return &PersistError{Source: source, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &PersistError{Source: source, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &PersistError{Source: source, Err: err}
	}
	if err := os.Rename(tmp.Name(), s.path(source)); err != nil {
		os.Remove(tmp.Name())
		return &PersistError{Source: source, Err: err}
	}
	return nil
}

// Sources lists source names found in the data directory, sorted.
func (s *FileStore) Sources() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		slug := strings.TrimSuffix(e.Name(), fileSuffix)
		st, err := s.Load(slug)
		if err != nil || st.Metadata.SourceName == "" {
			names = append(names, slug)
			continue
		}
		names = append(names, st.Metadata.SourceName)
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileStore) Close() error { return nil }
